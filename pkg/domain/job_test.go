package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobTransitions(t *testing.T) {
	cases := []struct {
		from    JobStatus
		to      JobStatus
		allowed bool
	}{
		{JobStatusPending, JobStatusAssigned, true},
		{JobStatusPending, JobStatusCancelled, true},
		{JobStatusPending, JobStatusRejected, true},
		{JobStatusPending, JobStatusDeadLettered, true},
		{JobStatusPending, JobStatusExecuting, false},
		{JobStatusAssigned, JobStatusExecuting, true},
		{JobStatusAssigned, JobStatusCancelled, true},
		{JobStatusAssigned, JobStatusSucceeded, false},
		{JobStatusExecuting, JobStatusSucceeded, true},
		{JobStatusExecuting, JobStatusPending, true},
		{JobStatusExecuting, JobStatusDeadLettered, true},
		{JobStatusSucceeded, JobStatusPending, false},
		{JobStatusCancelled, JobStatusAssigned, false},
		{JobStatusDeadLettered, JobStatusExecuting, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestJobTransitionEnforcesStateMachine(t *testing.T) {
	job := &Job{Status: JobStatusPending}

	require.NoError(t, job.Transition(JobStatusAssigned))
	require.NoError(t, job.Transition(JobStatusExecuting))
	require.NoError(t, job.Transition(JobStatusSucceeded))

	err := job.Transition(JobStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, JobStatusSucceeded, job.Status)
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []JobStatus{JobStatusSucceeded, JobStatusRejected, JobStatusDeadLettered, JobStatusCancelled} {
		assert.True(t, s.Terminal(), "%s", s)
	}
	for _, s := range []JobStatus{JobStatusPending, JobStatusAssigned, JobStatusExecuting} {
		assert.False(t, s.Terminal(), "%s", s)
	}
}

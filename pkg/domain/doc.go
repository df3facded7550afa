// Package domain defines the core types of the mission control unit:
// decisions and their proposed actions, jobs with their lifecycle state
// machine, versioned portfolio state, risk verdicts and the error
// taxonomy used to classify execution failures.
package domain

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/internal/application/dispatcher"
	"github.com/nexuswealth/mcu/internal/application/ledger"
	"github.com/nexuswealth/mcu/internal/application/registry"
	"github.com/nexuswealth/mcu/internal/application/riskgate"
	"github.com/nexuswealth/mcu/pkg/adapters/agents"
	memorybus "github.com/nexuswealth/mcu/pkg/adapters/events/memory"
	searchmemory "github.com/nexuswealth/mcu/pkg/adapters/search/memory"
	"github.com/nexuswealth/mcu/pkg/adapters/storage/memory"
	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

type nopMetrics struct{}

func (nopMetrics) RecordDecisionSubmitted(string)           {}
func (nopMetrics) RecordJobCreated(string)                  {}
func (nopMetrics) RecordJobCompleted(string, time.Duration) {}
func (nopMetrics) RecordJobRetry(string)                    {}
func (nopMetrics) RecordDeadLetter(string)                  {}
func (nopMetrics) RecordLedgerApply(string)                 {}
func (nopMetrics) SetPendingJobs(int)                       {}
func (nopMetrics) RecordRegistryStatus(int, int)            {}

type quoteTable map[string]decimal.Decimal

func (q quoteTable) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := q[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote for %s", symbol)
	}
	return price, nil
}

func (q quoteTable) Describe(ctx context.Context, symbol string) (ports.InstrumentInfo, error) {
	return ports.InstrumentInfo{Symbol: symbol, Name: symbol, Category: "Equities"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := zap.NewNop()
	quotes := quoteTable{"AAPL": decimal.NewFromInt(100)}
	store := memory.NewStore()
	bus := memorybus.NewBus()
	reg := registry.New(logger, nopMetrics{})
	ldg := ledger.New(store, quotes, quotes, nopMetrics{}, logger)

	core := dispatcher.New(dispatcher.Config{
		MaxAttempts:              3,
		RetryBaseDelay:           time.Millisecond,
		RetryMaxDelay:            5 * time.Millisecond,
		AgentJobDeadline:         2 * time.Second,
		DefaultMaxSingleTradePct: decimal.NewFromInt(50),
	}, reg, riskgate.New(quotes), ldg, store, bus, store, nopMetrics{}, logger, ports.SystemClock())
	core.Start()
	t.Cleanup(func() {
		ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = core.Shutdown(ctx)
	})

	require.NoError(t, reg.Register(agents.NewCashAgent("cash-1", 2, logger)))

	_, err := ldg.CreateAccount(context.Background(), "acct-1", decimal.NewFromInt(10000))
	require.NoError(t, err)

	index := searchmemory.NewIndex()
	index.Add(ports.Document{ID: "1", Content: "quarterly earnings summary"})

	return NewServer(&Config{
		Port:       0,
		Dispatcher: core,
		Ledger:     ldg,
		Registry:   reg,
		Feed:       store,
		Search:     index,
		Logger:     logger,
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSubmitDecisionLifecycle(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	body := `{
		"account_id": "acct-1",
		"epoch": 1,
		"actions": [{"type": "deposit", "cash": {"amount": "500"}}]
	}`
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/decisions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp DecisionSubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	jobID := resp.Jobs[0].JobID

	// Poll until the job lands in a terminal state.
	deadline := time.Now().Add(5 * time.Second)
	var status struct {
		Status   domain.JobStatus `json:"status"`
		Terminal bool             `json:"terminal"`
	}
	for {
		rec = doJSON(t, handler, http.MethodGet, "/api/v1/jobs/"+jobID+"/status", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		if status.Terminal {
			break
		}
		require.True(t, time.Now().Before(deadline), "job never terminalized")
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, domain.JobStatusSucceeded, status.Status)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/portfolio?account_id=acct-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "10500")

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/portfolio/transactions?account_id=acct-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "acct-1:1:0")

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/decisions?account_id=acct-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "epoch 1")
}

func TestSubmitDecisionStaleEpochConflicts(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	body := `{
		"account_id": "acct-1",
		"epoch": 2,
		"actions": [{"type": "deposit", "cash": {"amount": "1"}}]
	}`
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/decisions", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/decisions", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "EPOCH_SUPERSEDED")
}

func TestSubmitDecisionUnknownAccount(t *testing.T) {
	s := newTestServer(t)

	body := `{
		"account_id": "ghost",
		"epoch": 1,
		"actions": [{"type": "deposit", "cash": {"amount": "1"}}]
	}`
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/decisions", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ACCOUNT_NOT_FOUND")
}

func TestSubmitDecisionMalformedBody(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/decisions", `{"epoch": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPortfolioRequiresAccount(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/portfolio", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_ACCOUNT")
}

func TestListAgents(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cash-1")
}

func TestSearchEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/search", `{"query": "earnings", "k": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quarterly earnings summary")

	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/v1/search", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

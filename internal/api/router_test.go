package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradebot/internal/api/handlers"
	"github.com/wonny/tradebot/internal/api/ws"
	"github.com/wonny/tradebot/internal/app"
	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/external/notify"
	"github.com/wonny/tradebot/internal/external/paper"
	"github.com/wonny/tradebot/internal/scheduler"
	"github.com/wonny/tradebot/internal/scheduler/jobs"
	"github.com/wonny/tradebot/internal/storage/memory"
	"github.com/wonny/tradebot/pkg/config"
	"github.com/wonny/tradebot/pkg/database"
	"github.com/wonny/tradebot/pkg/logger"
)

type fixture struct {
	app    *app.App
	hub    *ws.Hub
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Now()
	a, err := app.Assemble(context.Background(), app.Parts{
		Config:   &config.Config{Timezone: "UTC"},
		Logger:   logger.Nop(),
		Store:    memory.NewStore(),
		Gateway:  paper.NewDemo(now),
		Notifier: notify.NewRecorder(),
	})
	require.NoError(t, err)

	hub := ws.NewHub(logger.Nop())
	a.Runner.AddObserver(hub.Observe)

	sched := scheduler.New(logger.Nop(), time.UTC)
	require.NoError(t, sched.AddJob(jobs.NewRetentionJob(a.Store.Executions, time.Hour, logger.Nop())))

	srv := httptest.NewServer(NewRouter(a, hub, sched, logger.Nop()))
	t.Cleanup(srv.Close)

	return &fixture{app: a, hub: hub, server: srv}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	return resp, raw
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
	assert.Contains(t, string(body), `"storage":"memory"`)
}

type stubDatabase struct {
	status *database.HealthStatus
	err    error
}

func (s stubDatabase) HealthCheck(ctx context.Context) (*database.HealthStatus, error) {
	return s.status, s.err
}

func TestHealth_ReportsDatabase(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		db       stubDatabase
		wantCode int
		want     string
	}{
		{
			name:     "healthy",
			db:       stubDatabase{status: &database.HealthStatus{Healthy: true, Stats: database.PoolStats{MaxConns: 10}}},
			wantCode: http.StatusOK,
			want:     `"status":"ok"`,
		},
		{
			name:     "unreachable",
			db:       stubDatabase{status: &database.HealthStatus{Error: "connection refused"}, err: errors.New("connection refused")},
			wantCode: http.StatusServiceUnavailable,
			want:     `"status":"degraded"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			healthCheckHandler(f.app, tt.db)(rec, httptest.NewRequest("GET", "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Contains(t, rec.Body.String(), `"database":`)
		})
	}
}

func TestHealth_NoDatabaseForMemoryBackend(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, "GET", "/health", "")
	assert.NotContains(t, string(body), `"database"`)
}

func TestRunPipeline_WaitReturnsRecord(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, "POST", "/api/pipelines/analysis/run?wait=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var record contracts.PipelineExecutionRecord
	require.NoError(t, json.Unmarshal(body, &record))
	assert.Equal(t, contracts.PipelineAnalysis, record.Pipeline)
	assert.Equal(t, contracts.StatusCompleted, record.Status)
	assert.False(t, record.Scheduled)

	resp, body = f.do(t, "GET", "/api/executions/"+record.ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), record.ID)

	resp, body = f.do(t, "GET", "/api/executions?pipeline=analysis&limit=5", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var records []contracts.PipelineExecutionRecord
	require.NoError(t, json.Unmarshal(body, &records))
	assert.Len(t, records, 1)

	resp, body = f.do(t, "GET", "/api/signals?all=true", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "SBER")
}

func TestRunPipeline_AutoTradeDisabledExitsEarly(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, "POST", "/api/pipelines/autotrade/run?wait=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record contracts.PipelineExecutionRecord
	require.NoError(t, json.Unmarshal(body, &record))
	assert.Equal(t, contracts.StatusRunning, record.Status)
	assert.Equal(t, "auto-trading is disabled", record.ExitReason)
	assert.True(t, record.IsFinal())

	resp, body = f.do(t, "GET", "/api/pipelines", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pipelines []handlers.PipelineInfo
	require.NoError(t, json.Unmarshal(body, &pipelines))
	byName := map[string]handlers.PipelineInfo{}
	for _, p := range pipelines {
		byName[p.Name] = p
	}

	autotrade := byName["autotrade"]
	assert.False(t, autotrade.Running)
	require.NotNil(t, autotrade.LastRun)
	assert.Equal(t, record.ID, autotrade.LastRun.ID)
	assert.Equal(t, contracts.StatusRunning, autotrade.LastRun.Status)
	assert.True(t, autotrade.LastRun.Finished)
	assert.True(t, autotrade.LastRun.Exited)
	assert.Equal(t, "auto-trading is disabled", autotrade.LastRun.ExitReason)

	assert.Nil(t, byName["analysis"].LastRun, "never run")
}

func TestRunPipeline_Unknown(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, "POST", "/api/pipelines/backtest/run", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "unknown pipeline")
}

func TestRunPipeline_Background(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, "POST", "/api/pipelines/analysis/run", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Contains(t, string(body), "accepted")

	require.Eventually(t, func() bool {
		records, err := f.app.Store.Executions.GetAll(context.Background(), nil)
		return err == nil && len(records) == 1 && records[0].IsFinal()
	}, 5*time.Second, 20*time.Millisecond)
}

func TestGetExecution_NotFound(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, "GET", "/api/executions/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListPipelines(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, "GET", "/api/pipelines", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	for _, name := range []string{"analysis", "autotrade", "autotrade-preview"} {
		assert.Contains(t, string(body), `"name":"`+name+`"`)
	}
}

func TestSignals_InvalidDate(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, "GET", "/api/signals?date=16-10-2026", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPortfolioAndTrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.app.Store.Holdings.AddRange(ctx, []contracts.PortfolioAsset{
		{Ticker: contracts.Ticker{Symbol: "SBER"}, Quantity: 10, CurrentPrice: 100},
		{Ticker: contracts.Ticker{Symbol: "GAZP"}, Quantity: 10, CurrentPrice: 300},
	}))
	at := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.app.Store.Trades.AddRange(ctx, []contracts.ExecutedTrade{
		{ID: "t1", Ticker: contracts.Ticker{Symbol: "SBER"}, Side: contracts.ActionBuy, Quantity: 1, ExecutedAt: at, Status: contracts.TradeSuccess},
		{ID: "t2", Ticker: contracts.Ticker{Symbol: "GAZP"}, Side: contracts.ActionSell, Quantity: 1, ExecutedAt: at.AddDate(0, 0, -1), Status: contracts.TradeSuccess},
	}))

	resp, body := f.do(t, "GET", "/api/portfolio", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var portfolio struct {
		Holdings   []contracts.PortfolioAsset `json:"holdings"`
		TotalValue float64                    `json:"total_value"`
	}
	require.NoError(t, json.Unmarshal(body, &portfolio))
	assert.InDelta(t, 4000, portfolio.TotalValue, 1e-9)
	assert.Equal(t, "GAZP", portfolio.Holdings[0].Ticker.Symbol)

	resp, body = f.do(t, "GET", "/api/trades?date=2026-10-16", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var trades []contracts.ExecutedTrade
	require.NoError(t, json.Unmarshal(body, &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, "t1", trades[0].ID)
}

func TestSettings_GetAndUpdate(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, "GET", "/api/settings", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"auto_trading_enabled":false`)

	update := `{"auto_trading_enabled":true,"max_position_percent":15,"min_trade_amount":50,"schedule":"0 0 11 * * 1-5"}`
	resp, body = f.do(t, "PUT", "/api/settings", update)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"auto_trading_enabled":true`)
	assert.Contains(t, string(body), `"id":"bot"`)

	s, err := f.app.Settings.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15.0, s.MaxPositionPercent)
}

func TestSettings_RejectsInvalid(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, "PUT", "/api/settings", `{"max_position_percent":150}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, "PUT", "/api/settings", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusWebSocket(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/status"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	_, err = f.app.Runner.Run(context.Background(), contracts.PipelineAnalysis, false)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ws.StatusMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, contracts.PipelineAnalysis, msg.Pipeline)
	assert.NotEmpty(t, msg.RunID)
}

func TestSchedulerJobs(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, "GET", "/api/scheduler/jobs", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats []scheduler.JobStats
	require.NoError(t, json.Unmarshal(body, &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "execution_retention", stats[0].JobName)
	assert.Equal(t, 0, stats[0].TotalRuns)
}

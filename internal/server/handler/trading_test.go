package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seojun-park/kisbot/internal/domain"
)

type fakeEngine struct {
	report  domain.RunReport
	err     error
	running bool
}

func (f *fakeEngine) RunOnce(ctx context.Context) (domain.RunReport, error) {
	return f.report, f.err
}

func (f *fakeEngine) Running() bool { return f.running }

type fakeScheduler struct {
	status      domain.SchedulerStatus
	intervalErr error
	dailyErr    error

	startedInterval time.Duration
	startedAt       string
	stopped         bool
}

func (f *fakeScheduler) StartInterval(interval time.Duration) error {
	f.startedInterval = interval
	return f.intervalErr
}

func (f *fakeScheduler) StartDaily(at string) error {
	f.startedAt = at
	return f.dailyErr
}

func (f *fakeScheduler) Stop() { f.stopped = true }

func (f *fakeScheduler) Status() domain.SchedulerStatus { return f.status }

type fakeMarketClock struct {
	status domain.MarketStatus
}

func (f *fakeMarketClock) Status(t time.Time) domain.MarketStatus { return f.status }

type fakeReportCache struct {
	report domain.RunReport
	err    error
}

func (f *fakeReportCache) SetLastReport(ctx context.Context, report domain.RunReport) error {
	f.report = report
	return nil
}

func (f *fakeReportCache) LastReport(ctx context.Context) (domain.RunReport, error) {
	return f.report, f.err
}

func newTradingHandler(eng *fakeEngine, sched *fakeScheduler, reports domain.ReportCache) *TradingHandler {
	clock := &fakeMarketClock{status: domain.MarketStatus{Open: true}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTradingHandler(eng, sched, clock, reports, logger)
}

func TestExecuteReturnsReport(t *testing.T) {
	eng := &fakeEngine{report: domain.RunReport{
		Timestamp: time.Now().UTC(),
		Signals: []domain.Signal{
			{Strategy: "golden-cross", Action: domain.SignalActionBuy, Code: "005930", Quantity: 10},
		},
	}}
	h := newTradingHandler(eng, &fakeScheduler{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/trading/execute", nil)
	rec := httptest.NewRecorder()
	h.Execute(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Signals, 1)
	assert.Equal(t, "005930", report.Signals[0].Code)
}

func TestExecuteRunInProgressConflict(t *testing.T) {
	eng := &fakeEngine{err: domain.ErrRunInProgress}
	h := newTradingHandler(eng, &fakeScheduler{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/trading/execute", nil)
	rec := httptest.NewRecorder()
	h.Execute(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "in progress")
}

func TestExecuteMarketClosedUnprocessable(t *testing.T) {
	eng := &fakeEngine{
		report: domain.RunReport{Message: "market is closed, next open 2025-06-02T09:00:00+09:00"},
		err:    domain.ErrMarketClosed,
	}
	h := newTradingHandler(eng, &fakeScheduler{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/trading/execute", nil)
	rec := httptest.NewRecorder()
	h.Execute(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var report domain.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Contains(t, report.Message, "market is closed")
}

func TestStatusIncludesLastReport(t *testing.T) {
	reports := &fakeReportCache{report: domain.RunReport{Message: "done"}}
	sched := &fakeScheduler{status: domain.SchedulerStatus{Running: true, Mode: "interval", Interval: "30s"}}
	h := newTradingHandler(&fakeEngine{running: true}, sched, reports)

	req := httptest.NewRequest(http.MethodGet, "/api/trading/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp tradingStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Running)
	assert.True(t, resp.Scheduler.Running)
	require.NotNil(t, resp.LastReport)
	assert.Equal(t, "done", resp.LastReport.Message)
}

func TestStatusNoReportYet(t *testing.T) {
	reports := &fakeReportCache{err: domain.ErrNotFound}
	h := newTradingHandler(&fakeEngine{}, &fakeScheduler{}, reports)

	req := httptest.NewRequest(http.MethodGet, "/api/trading/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp tradingStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.LastReport)
}

func TestStartSchedulerInterval(t *testing.T) {
	sched := &fakeScheduler{}
	h := newTradingHandler(&fakeEngine{}, sched, nil)

	body := strings.NewReader(`{"mode":"interval","interval":"30s"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/trading/scheduler/start", body)
	rec := httptest.NewRecorder()
	h.StartScheduler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30*time.Second, sched.startedInterval)
}

func TestStartSchedulerDaily(t *testing.T) {
	sched := &fakeScheduler{}
	h := newTradingHandler(&fakeEngine{}, sched, nil)

	body := strings.NewReader(`{"mode":"daily","at":"09:05"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/trading/scheduler/start", body)
	rec := httptest.NewRecorder()
	h.StartScheduler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "09:05", sched.startedAt)
}

func TestStartSchedulerRejectsBadMode(t *testing.T) {
	h := newTradingHandler(&fakeEngine{}, &fakeScheduler{}, nil)

	body := strings.NewReader(`{"mode":"hourly"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/trading/scheduler/start", body)
	rec := httptest.NewRecorder()
	h.StartScheduler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartSchedulerRejectsBadInterval(t *testing.T) {
	sched := &fakeScheduler{}
	h := newTradingHandler(&fakeEngine{}, sched, nil)

	body := strings.NewReader(`{"mode":"interval","interval":"soon"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/trading/scheduler/start", body)
	rec := httptest.NewRecorder()
	h.StartScheduler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, sched.startedInterval)
}

func TestStopScheduler(t *testing.T) {
	sched := &fakeScheduler{}
	h := newTradingHandler(&fakeEngine{}, sched, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/trading/scheduler/stop", nil)
	rec := httptest.NewRecorder()
	h.StopScheduler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sched.stopped)
}

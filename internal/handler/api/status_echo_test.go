package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FarePull/internal/domain/models"
	"FarePull/internal/service/ratelimit"
	"FarePull/internal/services/alerts"
	"FarePull/pkg/cache"
	xhttp "FarePull/pkg/http"
	xlogger "FarePull/pkg/logger"
	"FarePull/pkg/scheduler"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCycles struct {
	summary *models.CycleSummary
}

func (s *stubCycles) LastSummary(context.Context) (*models.CycleSummary, error) {
	if s.summary == nil {
		return nil, cache.ErrCacheMiss
	}
	return s.summary, nil
}

type stubFlags struct{}

func (stubFlags) LastCheck(context.Context) (*models.FlagCheckSummary, error) {
	return nil, cache.ErrCacheMiss
}

type stubTrigger struct {
	calls  int
	err    error
	cycles *stubCycles
}

func (t *stubTrigger) RunNow(_ context.Context, name string) error {
	t.calls++
	if t.err == nil {
		t.cycles.summary = &models.CycleSummary{ID: "manual-" + name, PairsAttempted: 3}
	}
	return t.err
}

type stubHistory struct {
	entries []models.HistoryEntry
	since   time.Time
}

func (s *stubHistory) Append(context.Context, models.HistoryEntry) error        { return nil }
func (s *stubHistory) AppendBatch(context.Context, []models.HistoryEntry) error { return nil }
func (s *stubHistory) RecentEntries(_ context.Context, stream models.Stream, key string, since time.Time) ([]models.HistoryEntry, error) {
	s.since = since
	var out []models.HistoryEntry
	for _, e := range s.entries {
		if e.Stream == stream && e.Key == key {
			out = append(out, e)
		}
	}
	return out, nil
}
func (s *stubHistory) Load(ctx context.Context, st models.Stream, k string) ([]models.HistoryEntry, error) {
	return s.RecentEntries(ctx, st, k, time.Time{})
}
func (s *stubHistory) Latest(context.Context, models.Stream, string) (*models.HistoryEntry, error) {
	return nil, nil
}
func (s *stubHistory) Trim(context.Context, models.Stream, int) error { return nil }
func (s *stubHistory) Close() error                                   { return nil }

type stubItineraries struct {
	limit int
}

func (s *stubItineraries) SaveItineraries(context.Context, []models.RoundTripCombo) error { return nil }
func (s *stubItineraries) Recent(_ context.Context, limit int) ([]models.RoundTripCombo, error) {
	s.limit = limit
	return []models.RoundTripCombo{{ID: "c1", Total: decimal.NewFromInt(380000)}}, nil
}
func (s *stubItineraries) Health(context.Context) error { return nil }
func (s *stubItineraries) Close() error                 { return nil }

type fixture struct {
	e       *echo.Echo
	cycles  *stubCycles
	trigger *stubTrigger
	history *stubHistory
	itins   *stubItineraries
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	classifier, err := alerts.NewClassifier(models.Thresholds{
		GreenMax:   decimal.NewFromInt(400000),
		YellowMax:  decimal.NewFromInt(500000),
		CeilingMax: decimal.NewFromInt(600000),
	})
	require.NoError(t, err)

	f := &fixture{e: echo.New(), cycles: &stubCycles{}, history: &stubHistory{}, itins: &stubItineraries{}}
	f.trigger = &stubTrigger{cycles: f.cycles}
	h := NewStatusEchoHandler(xlogger.Nop(), f.cycles, stubFlags{}, f.trigger, f.history, f.itins, classifier, ratelimit.New())
	h.RegisterRoutes(f.e)
	return f
}

func (f *fixture) do(method, target string) (*httptest.ResponseRecorder, xhttp.APIResponse) {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var body xhttp.APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestLatestCycle(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(http.MethodGet, "/api/cycles/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.cycles.summary = &models.CycleSummary{ID: "abc"}
	rec, body := f.do(http.MethodGet, "/api/cycles/latest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", body.Data.(map[string]any)["id"])
}

func TestTriggerCycle(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(http.MethodPost, "/api/cycles")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "manual-prices", body.Data.(map[string]any)["id"])

	f.trigger.err = scheduler.ErrBusy
	rec, _ = f.do(http.MethodPost, "/api/cycles")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = f.do(http.MethodPost, "/api/cycles")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 2, f.trigger.calls)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	e, err := models.NewHistoryEntry(models.StreamAvailability, "FO5000_2026-03-08_2026-03-15", time.Now(), models.AvailabilitySample{Availability: 3})
	require.NoError(t, err)
	f.history.entries = []models.HistoryEntry{e}

	rec, body := f.do(http.MethodGet, "/api/history/availability?key=FO5000_2026-03-08_2026-03-15&since=2026-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body.Data.(map[string]any)["total"])
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), f.history.since.UTC())
}

func TestHistory_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		target string
		field  string
	}{
		{name: "unknown stream", target: "/api/history/trades?key=x", field: "stream"},
		{name: "missing key", target: "/api/history/flags", field: "key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := f.do(http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"field":"`+tt.field+`"`)
		})
	}

	rec, _ := f.do(http.MethodGet, "/api/history/flags?key=snapshot&since=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTier(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		price  string
		tier   string
		silent bool
	}{
		{"400000", "GREEN", false},
		{"400001", "YELLOW", true},
		{"600000", "NORMAL", true},
		{"600000.5", "OVERPRICED", true},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			rec, body := f.do(http.MethodGet, "/api/tiers?price="+tt.price)
			require.Equal(t, http.StatusOK, rec.Code)
			data := body.Data.(map[string]any)
			assert.Equal(t, tt.tier, data["tier"])
			assert.Equal(t, tt.silent, data["silent"])
		})
	}

	rec, _ := f.do(http.MethodGet, "/api/tiers?price=cheap")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItineraries(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(http.MethodGet, "/api/itineraries")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, f.itins.limit)
	assert.True(t, strings.Contains(rec.Body.String(), `"c1"`))
	assert.EqualValues(t, 1, body.Data.(map[string]any)["total"])

	rec, _ = f.do(http.MethodGet, "/api/itineraries?limit=5000")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/helmcode/labs-ai/pkg/formatter"
	"github.com/helmcode/labs-ai/pkg/merger"
	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/helmcode/labs-ai/pkg/reference"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	history model.History
	err     error
}

func (f *fakeStore) PanelHistory(ctx context.Context) (model.History, error) {
	return f.history, f.err
}

type serviceFunc func(ctx context.Context, panel model.Panel) (*model.RemoteAnalysis, error)

func (f serviceFunc) Analyze(ctx context.Context, panel model.Panel) (*model.RemoteAnalysis, error) {
	return f(ctx, panel)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func day(m time.Month) time.Time {
	return time.Date(2025, m, 1, 0, 0, 0, 0, time.UTC)
}

func sampleHistory() model.History {
	return model.History{
		model.NewPanel(day(1), model.Measurement{Analyte: "glucose", Value: 92}, model.Measurement{Analyte: "ldl", Value: 110}),
		model.NewPanel(day(4), model.Measurement{Analyte: "glucose", Value: 104}, model.Measurement{Analyte: "ldl", Value: 98}),
		model.NewPanel(day(6), model.Measurement{Analyte: "glucose", Value: 135}, model.Measurement{Analyte: "ldl", Value: 95}),
	}
}

func newTestServer(st *fakeStore, m *merger.Merger) *Server {
	s := New(Options{
		Store:  st,
		Ranges: reference.Default(),
		Merger: m,
		Logger: quietLogger(),
	})
	gin.SetMode(gin.TestMode)
	return s
}

func do(s *Server, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeStore{}, nil)

	w := do(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestLatest(t *testing.T) {
	s := newTestServer(&fakeStore{history: sampleHistory()}, nil)

	w := do(s, http.MethodGet, "/api/labs/latest")
	require.Equal(t, http.StatusOK, w.Code)

	var view formatter.LatestView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "2025-06-01", view.Date)
	require.Len(t, view.Results, 2)
	assert.Equal(t, model.SeverityCritical, view.Results[0].Severity)
	assert.Equal(t, model.StatusDistribution{Normal: 1, Critical: 1}, view.Distribution)
}

func TestLatest_EmptyHistory(t *testing.T) {
	s := newTestServer(&fakeStore{}, nil)

	w := do(s, http.MethodGet, "/api/labs/latest")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
}

func TestLatest_StoreError(t *testing.T) {
	s := newTestServer(&fakeStore{err: errors.New("disk I/O error")}, nil)

	w := do(s, http.MethodGet, "/api/labs/latest")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "failed to load lab history"}`, w.Body.String())
}

func TestSeries(t *testing.T) {
	s := newTestServer(&fakeStore{history: sampleHistory()}, nil)

	w := do(s, http.MethodGet, "/api/labs/series?analyte=glucose&window=3m")
	require.Equal(t, http.StatusOK, w.Code)

	var view formatter.SeriesView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "3m", view.Window)
	require.Len(t, view.Points, 2)
	assert.Equal(t, "Apr 25", view.Points[0].Date)
	assert.Equal(t, 135.0, *view.Points[1].Value)
	assert.Equal(t, "increasing", view.Summary.Trend)
}

func TestSeries_BadRequests(t *testing.T) {
	s := newTestServer(&fakeStore{history: sampleHistory()}, nil)

	tests := []struct {
		name   string
		target string
	}{
		{"missing analyte", "/api/labs/series"},
		{"invalid window", "/api/labs/series?analyte=glucose&window=fortnight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestChart(t *testing.T) {
	s := newTestServer(&fakeStore{history: sampleHistory()}, nil)

	w := do(s, http.MethodGet, "/api/labs/chart?analyte=ldl")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "Ref Max")
}

func TestExport(t *testing.T) {
	s := newTestServer(&fakeStore{history: sampleHistory()}, nil)

	w := do(s, http.MethodGet, "/api/labs/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="lab-results.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "date,glucose,ldl\n2025-01-01,92,110\n2025-04-01,104,98\n2025-06-01,135,95\n", w.Body.String())
}

func TestExport_Errors(t *testing.T) {
	mismatched := model.History{
		model.NewPanel(day(1), model.Measurement{Analyte: "glucose", Value: 92}),
		model.NewPanel(day(2), model.Measurement{Analyte: "glucose", Value: 95}, model.Measurement{Analyte: "hdl", Value: 50}),
	}

	w := do(newTestServer(&fakeStore{}, nil), http.MethodGet, "/api/labs/export")
	assert.Equal(t, http.StatusNotFound, w.Code)

	s := newTestServer(&fakeStore{history: mismatched}, nil)
	w = do(s, http.MethodGet, "/api/labs/export")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(s, http.MethodGet, "/api/labs/export?union=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "date,glucose,hdl\n2025-01-01,92,\n2025-02-01,95,50\n", w.Body.String())

	w = do(s, http.MethodGet, "/api/labs/export?union=maybe")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalysis_Lifecycle(t *testing.T) {
	fail := make(chan bool, 2)
	fail <- false
	fail <- true
	svc := serviceFunc(func(ctx context.Context, p model.Panel) (*model.RemoteAnalysis, error) {
		if <-fail {
			return nil, errors.New("HTTP 502")
		}
		return &model.RemoteAnalysis{Narrative: "Glucose needs attention.", Source: "service"}, nil
	})
	m := merger.New(svc, time.Second, quietLogger())
	defer m.Close()
	s := newTestServer(&fakeStore{history: sampleHistory()}, m)

	snapshot := func() merger.Snapshot {
		w := do(s, http.MethodGet, "/api/labs/analysis")
		require.Equal(t, http.StatusOK, w.Code)
		var snap merger.Snapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		return snap
	}

	w := do(s, http.MethodPost, "/api/labs/analysis")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"seq":1`)

	require.Eventually(t, func() bool { return !m.Pending() }, 2*time.Second, 10*time.Millisecond)
	snap := snapshot()
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Glucose needs attention.", snap.Result.Narrative)
	assert.Nil(t, snap.LastError)

	require.Equal(t, http.StatusAccepted, do(s, http.MethodPost, "/api/labs/analysis").Code)
	require.Eventually(t, func() bool { return !m.Pending() }, 2*time.Second, 10*time.Millisecond)

	snap = snapshot()
	require.NotNil(t, snap.LastError)
	assert.Contains(t, snap.LastError.Message, "HTTP 502")
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Glucose needs attention.", snap.Result.Narrative)

	assert.Equal(t, http.StatusNoContent, do(s, http.MethodDelete, "/api/labs/analysis/error").Code)
	snap = snapshot()
	assert.Nil(t, snap.LastError)
	assert.NotNil(t, snap.Result)
}

func TestAnalysis_NoHistoryOrBackend(t *testing.T) {
	m := merger.New(serviceFunc(func(ctx context.Context, p model.Panel) (*model.RemoteAnalysis, error) {
		return &model.RemoteAnalysis{Narrative: "x"}, nil
	}), time.Second, quietLogger())
	defer m.Close()

	w := do(newTestServer(&fakeStore{}, m), http.MethodPost, "/api/labs/analysis")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(newTestServer(&fakeStore{history: sampleHistory()}, nil), http.MethodGet, "/api/labs/analysis")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(&fakeStore{}, nil)

	w := do(s, http.MethodOptions, "/api/labs/latest")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}


package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestObserveQuestion(t *testing.T) {
	m := New()
	m.ObserveQuestion("lead", "ok", 10*time.Millisecond)
	m.ObserveQuestion("lead", "ok", 10*time.Millisecond)
	m.ObserveQuestion("general", "error", time.Second)

	body := scrape(t, m)
	assert.Contains(t, body, `amitybot_questions_total{kind="lead",outcome="ok"} 2`)
	assert.Contains(t, body, `amitybot_questions_total{kind="general",outcome="error"} 1`)
}

func TestObserveReindex(t *testing.T) {
	m := New()
	m.ObserveReindex(42, 3, time.Second, nil)
	m.ObserveReindex(0, 0, 0, errors.New("embed failed"))

	body := scrape(t, m)
	assert.Contains(t, body, "amitybot_index_chunks 42")
	assert.Contains(t, body, "amitybot_ingest_documents_skipped_total 3")
	assert.Contains(t, body, `amitybot_reindex_runs_total{outcome="error"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveQuestion("general", "ok", time.Second)
	m.ObserveReindex(1, 1, time.Second, nil)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
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

func TestMetrics_Middleware(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search?topic=x", nil))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `knowledge_extractor_http_requests_total{method="GET",route="/search",status="200"} 3`)
	assert.Contains(t, body, "knowledge_extractor_http_requests_in_flight 0")
}

func TestMetrics_ObserveAnalysis(t *testing.T) {
	m := NewMetrics()
	m.ObserveAnalysis("success", 120*time.Millisecond)
	m.ObserveAnalysis("upstream_error", time.Second)
	m.ObserveAnalysis("success", 80*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `knowledge_extractor_analyses_total{outcome="success"} 2`)
	assert.Contains(t, body, `knowledge_extractor_analyses_total{outcome="upstream_error"} 1`)
	assert.Contains(t, body, "knowledge_extractor_analysis_duration_seconds_count 3")
}

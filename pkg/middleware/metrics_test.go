package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func routedWith(mw func(http.Handler) http.Handler, status int) *chi.Mux {
	r := chi.NewRouter()
	r.Use(mw)
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
		}
		_, _ = w.Write([]byte("{}"))
	})
	return r
}

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	h := routedWith(PrometheusMetrics("count-svc"), http.StatusOK)

	for _, id := range []string{"a", "b", "c"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/"+id, nil))
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("count-svc", "GET", "/products/{id}", "200"))
	assert.Equal(t, 3.0, got)
}

func TestPrometheusMetrics_CapturesStatus(t *testing.T) {
	h := routedWith(PrometheusMetrics("status-svc"), http.StatusNotFound)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/missing", nil))

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("status-svc", "GET", "/products/{id}", "404"))
	assert.Equal(t, 1.0, got)
}

func TestPrometheusMetrics_InFlightReturnsToZero(t *testing.T) {
	h := routedWith(PrometheusMetrics("inflight-svc"), http.StatusOK)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/1", nil))

	assert.Equal(t, 0.0, testutil.ToFloat64(httpRequestsInFlight.WithLabelValues("inflight-svc")))
}

func TestPrometheusMetrics_RecordsDuration(t *testing.T) {
	before := testutil.CollectAndCount(httpRequestDuration)
	h := routedWith(PrometheusMetrics("duration-svc"), http.StatusOK)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/1", nil))

	assert.Equal(t, before+1, testutil.CollectAndCount(httpRequestDuration))
}

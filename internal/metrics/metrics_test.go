package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.ObserveDiscovery("proximity", "None", 3, 2*time.Millisecond)
	r.ObserveDiscovery("proximity", "None", 0, time.Millisecond)
	r.ObserveModeration("request", "APPROVE", "ok")
	r.PartialMutation("request")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.DiscoveryTotal.WithLabelValues("proximity", "None")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ModerationTotal.WithLabelValues("request", "APPROVE", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PartialMutations.WithLabelValues("request")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveDiscovery("region", "NoMatches", 0, time.Millisecond)
		r.ObserveModeration("comment", "REJECT", "ok")
		r.PartialMutation("comment")
		r.ObserveHTTP("/health", http.StatusOK)
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.ObserveHTTP("/health", http.StatusOK)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "barfinder_http_requests_total")
}

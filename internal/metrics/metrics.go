package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder держит коллекторы сервиса. Nil-получатель допустим: все методы
// тогда ничего не делают.
type Recorder struct {
	gatherer prometheus.Gatherer

	DiscoveryTotal      *prometheus.CounterVec
	DiscoveryDurationMs *prometheus.HistogramVec
	DiscoveryResults    *prometheus.HistogramVec
	ModerationTotal     *prometheus.CounterVec
	PartialMutations    *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
}

// New создает коллекторы и регистрирует их в reg.
// Для продакшена передается prometheus.NewRegistry(), в тестах - свой реестр.
func New(reg *prometheus.Registry) *Recorder {
	r := &Recorder{
		gatherer: reg,
		DiscoveryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barfinder_discovery_total",
			Help: "Discovery queries by strategy and diagnostic",
		}, []string{"strategy", "diagnostic"}),
		DiscoveryDurationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "barfinder_discovery_duration_ms",
			Help:    "Discovery duration in milliseconds",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
		}, []string{"strategy"}),
		DiscoveryResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "barfinder_discovery_results",
			Help:    "Number of places returned by discovery",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}, []string{"strategy"}),
		ModerationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barfinder_moderation_decisions_total",
			Help: "Moderation decisions by entity, decision and result",
		}, []string{"entity", "decision", "result"}),
		PartialMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barfinder_moderation_partial_mutations_total",
			Help: "Transitions that created a record but failed to remove the pending one",
		}, []string{"entity"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barfinder_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"route", "status"}),
	}
	reg.MustRegister(
		r.DiscoveryTotal,
		r.DiscoveryDurationMs,
		r.DiscoveryResults,
		r.ModerationTotal,
		r.PartialMutations,
		r.HTTPRequestsTotal,
	)
	return r
}

// ObserveDiscovery учитывает один поиск.
func (r *Recorder) ObserveDiscovery(strategy, diagnostic string, results int, took time.Duration) {
	if r == nil {
		return
	}
	r.DiscoveryTotal.WithLabelValues(strategy, diagnostic).Inc()
	r.DiscoveryDurationMs.WithLabelValues(strategy).Observe(float64(took.Microseconds()) / 1000)
	r.DiscoveryResults.WithLabelValues(strategy).Observe(float64(results))
}

// ObserveModeration учитывает решение модератора; result - "ok" или вид ошибки.
func (r *Recorder) ObserveModeration(entity, decision, result string) {
	if r == nil {
		return
	}
	r.ModerationTotal.WithLabelValues(entity, decision, result).Inc()
}

// PartialMutation учитывает незавершенный переход.
func (r *Recorder) PartialMutation(entity string) {
	if r == nil {
		return
	}
	r.PartialMutations.WithLabelValues(entity).Inc()
}

// ObserveHTTP учитывает обработанный HTTP-запрос.
func (r *Recorder) ObserveHTTP(route string, status int) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler отдает метрики реестра в формате Prometheus.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

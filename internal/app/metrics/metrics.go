package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	storeMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Total number of entity store mutations by operation.",
		},
		[]string{"op"},
	)

	generatorEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "generator",
			Name:      "events_total",
			Help:      "Total number of simulated realtime events by behaviour.",
		},
		[]string{"behaviour"},
	)

	generatorTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "generator",
			Name:      "ticks_total",
			Help:      "Total number of generator ticks.",
		},
	)

	persistWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "persist",
			Name:      "writes_total",
			Help:      "Total number of key/value writes by result.",
		},
		[]string{"result"},
	)

	persistFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "persist",
			Name:      "load_fallbacks_total",
			Help:      "Total number of slot loads that fell back to the default value.",
		},
		[]string{"key"},
	)

	pendingTimers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "console",
			Subsystem: "timers",
			Name:      "pending",
			Help:      "Current number of scheduled deferred tasks.",
		},
	)
)

func init() {
	Registry.MustRegister(
		storeMutations,
		generatorEvents,
		generatorTicks,
		persistWrites,
		persistFallbacks,
		pendingTimers,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordMutation counts one store mutation.
func RecordMutation(op string) {
	storeMutations.WithLabelValues(op).Inc()
}

// RecordGeneratorTick counts one generator tick.
func RecordGeneratorTick() {
	generatorTicks.Inc()
}

// RecordGeneratorEvent counts one simulated event.
func RecordGeneratorEvent(behaviour string) {
	generatorEvents.WithLabelValues(behaviour).Inc()
}

// RecordPersistWrite counts one backend write.
func RecordPersistWrite(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	persistWrites.WithLabelValues(result).Inc()
}

// RecordLoadFallback counts a slot load that used its default.
func RecordLoadFallback(key string) {
	persistFallbacks.WithLabelValues(key).Inc()
}

// SetPendingTimers reports the number of scheduled deferred tasks.
func SetPendingTimers(n int) {
	pendingTimers.Set(float64(n))
}

package phonecomplete

import (
	"github.com/prometheus/client_golang/prometheus"
)

var buildRecords = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "phonecomplete",
	Subsystem: "build",
	Name:      "records_total",
	Help:      "Records scanned from the record source.",
})

var buildPhones = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "phonecomplete",
	Subsystem: "build",
	Name:      "phones_total",
	Help:      "Phone fields seen while building, by outcome.",
}, []string{"result"})

var buildDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "phonecomplete",
	Subsystem: "build",
	Name:      "duration_seconds",
	Help:      "Index build wall time, by result.",
	Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
}, []string{"result"})

var indexState = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "phonecomplete",
	Subsystem: "index",
	Name:      "state",
	Help:      "0 empty, 1 building, 2 ready.",
})

var indexKeys = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "phonecomplete",
	Subsystem: "index",
	Name:      "keys",
	Help:      "Keys in the published index.",
})

var searchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "phonecomplete",
	Subsystem: "search",
	Name:      "requests_total",
	Help:      "Searches served, by outcome.",
}, []string{"outcome"})

var searchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "phonecomplete",
	Subsystem: "search",
	Name:      "duration_seconds",
	Help:      "Search latency, cache hits included.",
	Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
})

var strategyResults = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "phonecomplete",
	Subsystem: "search",
	Name:      "strategy_results_total",
	Help:      "Matches contributed to merged results, by strategy.",
}, []string{"strategy"})

// Collectors returns the package metrics for registration, e.g.
//
//	prometheus.MustRegister(phonecomplete.Collectors()...)
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		buildRecords,
		buildPhones,
		buildDuration,
		indexState,
		indexKeys,
		searchTotal,
		searchDuration,
		strategyResults,
	}
}

package anchor

import "github.com/prometheus/client_golang/prometheus"

var (
	anchored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "carbontrace",
		Subsystem: "anchor",
		Name:      "anchored_total",
		Help:      "Number of activities successfully anchored.",
	})

	anchorFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "carbontrace",
		Subsystem: "anchor",
		Name:      "failures_total",
		Help:      "Number of anchor attempts that failed and were swallowed.",
	})
)

func init() {
	prometheus.MustRegister(anchored, anchorFailures)
}

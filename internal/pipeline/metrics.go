package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/omrscan/internal/marks"
)

// Metrics are the counters of one scan session, kept in a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Pages          prometheus.Counter
	Decisions      *prometheus.CounterVec
	DecodeFailures prometheus.Counter
	PageDuration   prometheus.Histogram
}

// NewMetrics registers the session metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Pages: f.NewCounter(prometheus.CounterOpts{
			Name: "omrscan_pages_processed_total",
			Help: "Total number of scanned pages processed",
		}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "omrscan_mark_decisions_total",
			Help: "Reconciliation decisions by class",
		}, []string{"class"}), // class: ok, too-big, too-small, unfilled, ignored, fallback
		DecodeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "omrscan_barcode_decode_failures_total",
			Help: "Pages whose identity barcode could not be read",
		}),
		PageDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "omrscan_page_duration_seconds",
			Help:    "Processing time per page in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) observeDetection(d marks.Detection) {
	for _, c := range marks.Classes() {
		if n := d.Count(c); n > 0 {
			m.Decisions.WithLabelValues(c.String()).Add(float64(n))
		}
	}
}

// WriteToTextfile exports the metrics in the text exposition format, for
// the node exporter's textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

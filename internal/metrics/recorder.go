package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/tenderscan/internal/model"
)

const namespace = "tenderscan"

// Recorder collects fetch metrics in its own registry.
// It implements session.Observer and crawler.Observer.
type Recorder struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	pages       *prometheus.CounterVec
	records     *prometheus.CounterVec
	years       *prometheus.CounterVec
	duration    prometheus.Gauge
	lastRunTime prometheus.Gauge
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Bulletin requests by crawl phase and HTTP status (\"error\" when no response).",
			},
			[]string{"phase", "status"},
		),
		pages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_total",
				Help:      "Result pages by parse outcome.",
			},
			[]string{"outcome"},
		),
		records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Parsed bulletin rows by notice kind.",
			},
			[]string{"kind"},
		),
		years: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "years_total",
				Help:      "Fiscal years processed by status.",
			},
			[]string{"status"},
		),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last fetch run.",
		}),
		lastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last fetch run finished.",
		}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRequest counts one logical request. status is 0 when the request
// failed without a response.
func (r *Recorder) ObserveRequest(phase string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.requests.WithLabelValues(phase, label).Inc()
}

// ObservePage counts one parsed page.
func (r *Recorder) ObservePage(outcome model.PageOutcome) {
	r.pages.WithLabelValues(outcome.String()).Inc()
}

// ObserveRecords adds n rows of the given kind.
func (r *Recorder) ObserveRecords(kind model.NoticeKind, n int) {
	if n <= 0 {
		return
	}
	r.records.WithLabelValues(kind.String()).Add(float64(n))
}

// ObserveYear counts a finished year by its status.
func (r *Recorder) ObserveYear(run *model.YearRun) {
	r.years.WithLabelValues(run.Status()).Inc()
}

// ObserveRun records the duration of a whole fetch.
func (r *Recorder) ObserveRun(elapsed time.Duration, finished time.Time) {
	r.duration.Set(elapsed.Seconds())
	r.lastRunTime.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Package metrics exposes guard measurements as Prometheus metrics. The
// Recorder implements wait.Observer, so attaching it to an observable or
// stopwatch guard feeds every completed pass into a histogram.
package metrics

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/psantana5/timerguard/pkg/wait"
)

// Recorder collects guard measurements into a private Prometheus registry.
type Recorder struct {
	registry    *prometheus.Registry
	runtime     prometheus.Histogram
	lastRuntime prometheus.Gauge
	timeouts    prometheus.Counter
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runtime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timerguard_region_runtime_seconds",
			Help:    "Runtime of guarded regions, excluding enforced waits",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		lastRuntime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timerguard_region_last_runtime_seconds",
			Help: "Runtime of the most recently completed guarded region",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timerguard_timeouts_total",
			Help: "Number of deadline guard timeouts",
		}),
	}
	r.registry.MustRegister(r.runtime, r.lastRuntime, r.timeouts)
	return r
}

// Observe records one completed guard pass. Implements wait.Observer.
func (r *Recorder) Observe(m wait.Measurement) {
	seconds := m.Runtime.Seconds()
	r.runtime.Observe(seconds)
	r.lastRuntime.Set(seconds)
}

// ObserveTimeout counts a fired deadline.
func (r *Recorder) ObserveTimeout() {
	r.timeouts.Inc()
}

// Handler returns an HTTP handler serving the recorder's registry in
// Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTo renders the current metrics as text exposition, for writing
// one-shot snapshots to a file.
func (r *Recorder) WriteTo(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// NewServer returns an HTTP server exposing the recorder at /metrics along
// with a /health endpoint. The caller owns the server's lifecycle.
func (r *Recorder) NewServer(addr string) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", r.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	return &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

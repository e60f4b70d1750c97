// Package telemetry exposes Prometheus metrics, adapted from the teacher's
// promhttp wrapper and extended with counters for the sideline lifecycle
// (grounded in SidelineMetrics.java's START/STOP counters) and the
// Coordinator's running-consumer gauge.
package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Expose starts the /metrics endpoint in the background.
func Expose(port int) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
	}()
}

// Recorder is the metrics sink the Coordinator and Sideline Handler record
// against.
type Recorder struct {
	sidelineStarted *prometheus.CounterVec
	sidelineStopped *prometheus.CounterVec
	messagesEmitted prometheus.Counter
	runningConsumers prometheus.Gauge
	flushesTotal    prometheus.Counter
}

// NewRecorder registers and returns a Recorder against the default
// registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		sidelineStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firehose_sideline_started_total",
			Help: "Total number of sideline requests started.",
		}, []string{"request_id"}),
		sidelineStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firehose_sideline_stopped_total",
			Help: "Total number of sideline requests stopped.",
		}, []string{"request_id"}),
		messagesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "firehose_messages_emitted_total",
			Help: "Total number of messages emitted onto the output queue.",
		}),
		runningConsumers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "firehose_running_consumers",
			Help: "Number of Virtual Consumers currently running under the coordinator.",
		}),
		flushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "firehose_state_flushes_total",
			Help: "Total number of consumer state flushes to the persistence layer.",
		}),
	}
	prometheus.MustRegister(r.sidelineStarted, r.sidelineStopped, r.messagesEmitted, r.runningConsumers, r.flushesTotal)
	return r
}

// SidelineStarted records a START trigger for requestID.
func (r *Recorder) SidelineStarted(requestID string) {
	r.sidelineStarted.WithLabelValues(requestID).Inc()
}

// SidelineStopped records a STOP trigger for requestID.
func (r *Recorder) SidelineStopped(requestID string) {
	r.sidelineStopped.WithLabelValues(requestID).Inc()
}

// MessageEmitted increments the emitted-message counter.
func (r *Recorder) MessageEmitted() { r.messagesEmitted.Inc() }

// SetRunningConsumers sets the running-consumer gauge.
func (r *Recorder) SetRunningConsumers(n int) { r.runningConsumers.Set(float64(n)) }

// StateFlushed increments the flush counter.
func (r *Recorder) StateFlushed() { r.flushesTotal.Inc() }

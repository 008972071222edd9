package nativemsg

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts traffic through a Host.  A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	framesIn   prometheus.Counter
	framesOut  prometheus.Counter
	bytesIn    prometheus.Counter
	bytesOut   prometheus.Counter
	errors     *prometheus.CounterVec
	queueDepth *prometheus.GaugeVec
	handlerDur prometheus.Histogram
}

// NewMetrics creates the host collectors and registers them with reg.  If reg
// is nil the collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nmhost_frames_received_total",
			Help: "Frames decoded from the browser",
		}),
		framesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nmhost_frames_sent_total",
			Help: "Frames written to the browser",
		}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nmhost_payload_bytes_received_total",
			Help: "Payload bytes decoded from the browser, excluding headers",
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nmhost_payload_bytes_sent_total",
			Help: "Payload bytes written to the browser, excluding headers",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nmhost_errors_total",
			Help: "Errors observed by the host, by kind",
		}, []string{"kind"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nmhost_queue_depth",
			Help: "Frames waiting in a pump queue",
		}, []string{"queue"}),
		handlerDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nmhost_handler_duration_seconds",
			Help:    "Time spent in the message handler",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.framesIn, m.framesOut, m.bytesIn, m.bytesOut,
			m.errors, m.queueDepth, m.handlerDur)
	}
	return m
}

func (m *Metrics) received(msg Message) {
	if m == nil {
		return
	}
	m.framesIn.Inc()
	m.bytesIn.Add(float64(len(msg)))
}

func (m *Metrics) sent(frame []byte) {
	if m == nil {
		return
	}
	m.framesOut.Inc()
	m.bytesOut.Add(float64(len(frame) - headerLen))
}

func (m *Metrics) failed(err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(KindOf(err).String()).Inc()
}

func (m *Metrics) depth(queue string, n int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(n))
}

func (m *Metrics) handled(seconds float64) {
	if m == nil {
		return
	}
	m.handlerDur.Observe(seconds)
}

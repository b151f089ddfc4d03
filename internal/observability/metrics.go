package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keybridge",
			Subsystem: "transport",
			Name:      "frames_received_total",
			Help:      "Frames received from the kernel peer.",
		},
		[]string{"type"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keybridge",
			Subsystem: "transport",
			Name:      "frames_sent_total",
			Help:      "Frames transmitted to the kernel peer.",
		},
		[]string{"type"},
	)
	receiveErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "keybridge",
			Subsystem: "transport",
			Name:      "receive_errors_total",
			Help:      "Receive attempts that failed or produced a malformed frame.",
		},
	)
	spoofRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "keybridge",
			Subsystem: "transport",
			Name:      "spoof_rejections_total",
			Help:      "Frames rejected because the sender was not the kernel.",
		},
	)
	sendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "keybridge",
			Subsystem: "transport",
			Name:      "send_failures_total",
			Help:      "Outbound frames the transport failed to deliver.",
		},
	)
	handlerFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "keybridge",
			Subsystem: "dispatch",
			Name:      "handler_failures_total",
			Help:      "Requests the key-module handler failed to answer.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesReceived,
			framesSent,
			receiveErrors,
			spoofRejections,
			sendFailures,
			handlerFailures,
		)
	})
}

func RecordFrameReceived(msgType string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(msgType).Inc()
}

func RecordFrameSent(msgType string) {
	RegisterMetrics()
	framesSent.WithLabelValues(msgType).Inc()
}

func RecordReceiveError() {
	RegisterMetrics()
	receiveErrors.Inc()
}

func RecordSpoofRejection() {
	RegisterMetrics()
	spoofRejections.Inc()
}

func RecordSendFailure() {
	RegisterMetrics()
	sendFailures.Inc()
}

func RecordHandlerFailure() {
	RegisterMetrics()
	handlerFailures.Inc()
}

// MetricsHandler exposes the default registry for an optional scrape
// listener.
func MetricsHandler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

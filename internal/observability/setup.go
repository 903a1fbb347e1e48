package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	reportOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calladmin_report_outcomes_total",
			Help: "Report command outcomes by kind",
		},
		[]string{"flow", "outcome"},
	)

	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calladmin_webhook_deliveries_total",
			Help: "Webhook deliveries by action and result",
		},
		[]string{"action", "result"},
	)

	escalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calladmin_escalations_total",
			Help: "Escalation actions fired against reported players",
		},
		[]string{"action"},
	)

	flowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calladmin_flow_duration_seconds",
			Help:    "Time spent running report lifecycle flows",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"flow"},
	)
)

func Init(metricsAddr string) {
	prometheus.MustRegister(reportOutcomesTotal)
	prometheus.MustRegister(webhookDeliveriesTotal)
	prometheus.MustRegister(escalationsTotal)
	prometheus.MustRegister(flowDuration)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()
}

func RecordReportOutcome(flow, outcome string) {
	reportOutcomesTotal.WithLabelValues(flow, outcome).Inc()
}

func RecordWebhookDelivery(action string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	webhookDeliveriesTotal.WithLabelValues(action, result).Inc()
}

func RecordEscalation(action string) {
	escalationsTotal.WithLabelValues(action).Inc()
}

// StartFlow returns a stop function recording the flow's duration.
func StartFlow(flow string) func() {
	timer := prometheus.NewTimer(flowDuration.WithLabelValues(flow))
	return func() { timer.ObserveDuration() }
}

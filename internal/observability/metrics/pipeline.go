package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics covers the document pipeline stages run by the worker and
// by the explicit trigger endpoints.
type PipelineMetrics struct {
	registry *prometheus.Registry

	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageInFlight prometheus.Gauge
	pagesTotal    *prometheus.CounterVec
	modelLoads    *prometheus.CounterVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docuclass",
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Total stage executions by stage and status.",
		},
		[]string{"service", "stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docuclass",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Stage duration in seconds by stage and status.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "stage", "status"},
	)
	stageInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docuclass",
			Subsystem: "pipeline",
			Name:      "stage_in_flight",
			Help:      "Number of in-flight stage executions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	pagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docuclass",
			Subsystem: "pipeline",
			Name:      "ocr_pages_total",
			Help:      "Total pages pushed through the OCR engine.",
		},
		[]string{"service"},
	)
	modelLoads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docuclass",
			Subsystem: "pipeline",
			Name:      "model_loads_total",
			Help:      "Model load operations by model name and outcome.",
		},
		[]string{"service", "model", "outcome"},
	)

	registry.MustRegister(stageTotal, stageDuration, stageInFlight, pagesTotal, modelLoads)

	return &PipelineMetrics{
		registry:      registry,
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		stageInFlight: stageInFlight,
		pagesTotal:    pagesTotal,
		modelLoads:    modelLoads,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartStage() {
	m.stageInFlight.Inc()
}

func (m *PipelineMetrics) FinishStage(service, stage string, duration time.Duration, err error) {
	m.stageInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.stageTotal.WithLabelValues(service, stage, status).Inc()
	m.stageDuration.WithLabelValues(service, stage, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) AddOCRPages(service string, pages int) {
	if pages <= 0 {
		return
	}
	m.pagesTotal.WithLabelValues(service).Add(float64(pages))
}

func (m *PipelineMetrics) ObserveModelLoad(service, model string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.modelLoads.WithLabelValues(service, model, outcome).Inc()
}

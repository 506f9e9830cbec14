// Package metrics expone las métricas Prometheus del pipeline de emisión SRI.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

var _ billing.Metrics = (*PipelineMetrics)(nil)

// PipelineMetrics implementa billing.Metrics sobre un prometheus.Registerer.
type PipelineMetrics struct {
	tasks       *prometheus.CounterVec
	taskLatency *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	retries     *prometheus.CounterVec
}

// NewPipelineMetrics registra los colectores en registerer (DefaultRegisterer si es nil).
func NewPipelineMetrics(registerer prometheus.Registerer, environment string) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{"env": environment}

	m := &PipelineMetrics{
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "sri_tasks_total",
			Help:        "Tareas del pipeline procesadas por tipo y resultado.",
			ConstLabels: constLabels,
		}, []string{"kind", "outcome"}),
		taskLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "sri_task_duration_seconds",
			Help:        "Duración de cada tarea, incluida la llamada SOAP.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			ConstLabels: constLabels,
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "sri_invoice_transitions_total",
			Help:        "Transiciones de estado SRI aplicadas a facturas.",
			ConstLabels: constLabels,
		}, []string{"to"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "sri_task_retries_total",
			Help:        "Reintentos agendados por tipo de tarea.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
	}

	registerer.MustRegister(m.tasks, m.taskLatency, m.transitions, m.retries)
	return m
}

func (m *PipelineMetrics) ObserveTask(kind billing.TaskKind, outcome string, elapsed time.Duration) {
	m.tasks.WithLabelValues(string(kind), outcome).Inc()
	m.taskLatency.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) ObserveTransition(to sri.State) {
	m.transitions.WithLabelValues(to.String()).Inc()
}

func (m *PipelineMetrics) ObserveRetry(kind billing.TaskKind) {
	m.retries.WithLabelValues(string(kind)).Inc()
}

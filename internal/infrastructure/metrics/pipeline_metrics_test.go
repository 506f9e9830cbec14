package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/metrics"
)

func TestPipelineMetrics_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewPipelineMetrics(registry, "1")

	m.ObserveTask(billing.TaskSubmit, sri.KindNone.String(), 150*time.Millisecond)
	m.ObserveTask(billing.TaskSubmit, sri.KindNetwork.String(), time.Second)
	m.ObserveTask(billing.TaskSubmit, sri.KindNetwork.String(), time.Second)
	m.ObserveRetry(billing.TaskPoll)
	m.ObserveTransition(sri.StateAuthorized)

	count, err := testutil.GatherAndCount(registry, "sri_tasks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "una serie por (kind, outcome)")

	count, err = testutil.GatherAndCount(registry, "sri_task_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(registry, "sri_task_retries_total", "sri_invoice_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPipelineMetrics_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics.NewPipelineMetrics(registry, "")

	assert.Panics(t, func() { metrics.NewPipelineMetrics(registry, "") })
}

package bootstrap_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/bootstrap"
	"github.com/jhoicas/sri-facturacion/pkg/config"
)

func TestPipelineConfig_MapeaPresupuestos(t *testing.T) {
	got := bootstrap.PipelineConfig(config.RetryConfig{
		Submit:          config.Budget{MaxAttempts: 3, Delay: time.Minute},
		Poll:            config.Budget{MaxAttempts: 5, Delay: 5 * time.Minute},
		Notify:          config.Budget{MaxAttempts: 3, Delay: 2 * time.Minute},
		FirstPollDelay:  2 * time.Minute,
		ProcessingDelay: 3 * time.Minute,
	})

	assert.Equal(t, billing.DefaultPipelineConfig(), got)
}

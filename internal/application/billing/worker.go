package billing

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/sri-facturacion/pkg/logger"
)

// TaskRunner procesa una tarea reclamada. Un error deja la tarea sin confirmar.
type TaskRunner interface {
	Handle(ctx context.Context, task Task) error
}

// WorkerConfig tamaño del pool y espera cuando la cola está vacía.
type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
	TaskTimeout  time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 2 * time.Minute
	}
	return c
}

// WorkerPool N goroutines que reclaman tareas vencidas de la cola.
// Las esperas entre etapas viven en la cola (RunAt), nunca dentro de una tarea.
type WorkerPool struct {
	queue  Queue
	runner TaskRunner
	log    *logger.Logger
	cfg    WorkerConfig
}

// NewWorkerPool construye el pool.
func NewWorkerPool(queue Queue, runner TaskRunner, log *logger.Logger, cfg WorkerConfig) *WorkerPool {
	if log == nil {
		log = logger.Nop()
	}
	return &WorkerPool{queue: queue, runner: runner, log: log.Component("worker"), cfg: cfg.withDefaults()}
}

// Run bloquea hasta que ctx se cancela.
func (p *WorkerPool) Run(ctx context.Context) error {
	p.log.Info().Int("concurrency", p.cfg.Concurrency).Msg("workers SRI iniciados")
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Concurrency; i++ {
		id := i
		g.Go(func() error {
			p.loop(ctx, id)
			return nil
		})
	}
	err := g.Wait()
	p.log.Info().Msg("workers SRI detenidos")
	return err
}

func (p *WorkerPool) loop(ctx context.Context, id int) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		worked, err := p.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			p.log.Warn().Err(err).Int("worker", id).Msg("ciclo del worker con error")
		}
		if worked {
			timer.Reset(0)
		} else {
			timer.Reset(p.cfg.PollInterval)
		}
	}
}

// RunOnce reclama y procesa una tarea. worked=false si la cola no tenía nada vencido.
func (p *WorkerPool) RunOnce(ctx context.Context) (worked bool, err error) {
	task, err := p.queue.Claim(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	taskCtx, cancel := context.WithTimeout(ctx, p.cfg.TaskTimeout)
	defer cancel()

	if err := p.runner.Handle(taskCtx, *task); err != nil {
		p.log.Error().Err(err).
			Str("task", string(task.Kind)).
			Str("invoice_id", task.InvoiceID).
			Int("attempt", task.Attempt).
			Msg("tarea sin confirmar; se reentregará al vencer la visibilidad")
		return true, nil
	}
	if err := p.queue.Ack(ctx, task.ID); err != nil {
		return true, err
	}
	return true, nil
}

package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

// TaskHandler ejecuta una tarea del pipeline y aplica la política de reintentos:
//
//	sri.submit  RECIBIDA → agenda sri.poll (FirstPollDelay) y pasa a PENDING
//	sri.poll    AUTORIZADO → encola sri.notify; EN PROCESO → reintento (ProcessingDelay)
//	sri.notify  sin efecto en el estado SRI; reintenta hasta agotar su presupuesto
//
// Los errores reintentables consumen un intento; al agotar el presupuesto la factura
// pasa a FAILED. Los terminales se registran de inmediato. Un error devuelto significa
// que no se pudo encolar ni persistir: la tarea no debe confirmarse.
type TaskHandler struct {
	orch *Orchestrator
}

// NewTaskHandler construye el handler sobre el orquestador.
func NewTaskHandler(orch *Orchestrator) *TaskHandler {
	return &TaskHandler{orch: orch}
}

// Handle procesa la tarea.
func (h *TaskHandler) Handle(ctx context.Context, task Task) error {
	o := h.orch
	started := o.now()

	var out sri.Outcome
	switch task.Kind {
	case TaskSubmit:
		out = o.Submit(ctx, task.InvoiceID)
	case TaskPoll:
		out = o.Poll(ctx, task.InvoiceID)
	case TaskNotify:
		out = o.Notify(ctx, task.InvoiceID)
	default:
		o.log.Error().Str("task", string(task.Kind)).Msg("tarea desconocida, se descarta")
		return nil
	}
	o.metrics.ObserveTask(task.Kind, out.Kind.String(), o.now().Sub(started))

	log := o.log.With().
		Str("task", string(task.Kind)).
		Str("invoice_id", task.InvoiceID).
		Int("attempt", task.Attempt).
		Logger()

	if out.Kind == sri.KindNone {
		return h.chain(ctx, task, out)
	}

	if out.Kind.Retryable() {
		budget := o.cfg.budget(task.Kind)
		if task.Attempt < budget.MaxAttempts {
			delay := budget.Delay
			if out.Kind == sri.KindStillProcessing {
				delay = o.cfg.ProcessingDelay
			}
			if out.Delay > 0 {
				delay = out.Delay
			}
			log.Warn().Err(out.Err).Dur("delay", delay).Msg("reintento agendado")
			o.metrics.ObserveRetry(task.Kind)
			return o.queue.Enqueue(ctx, Task{
				Kind:      task.Kind,
				InvoiceID: task.InvoiceID,
				Attempt:   task.Attempt + 1,
				RunAt:     o.now().Add(delay),
				Manual:    task.Manual,
			})
		}
		out = sri.Fail(&sri.RetryBudgetExhausted{Stage: string(task.Kind), Attempts: task.Attempt, Last: out.Err})
	}

	if task.Kind == TaskNotify {
		// la notificación no altera el estado SRI de una factura autorizada
		log.Error().Err(out.Err).Msg("notificación abandonada")
		return nil
	}

	log.Warn().Str("motivo", out.Kind.String()).Str("sri_error", out.Message()).Msg("resultado terminal")
	if err := o.Finish(ctx, task.InvoiceID, out); err != nil {
		return fmt.Errorf("registrar resultado terminal: %w", err)
	}
	return nil
}

// chain encola la siguiente etapa tras un paso exitoso.
func (h *TaskHandler) chain(ctx context.Context, task Task, out sri.Outcome) error {
	o := h.orch
	switch out.Next {
	case sri.StateSubmitted:
		delay := o.cfg.FirstPollDelay
		if out.Delay > 0 {
			delay = out.Delay
		}
		return o.SchedulePoll(ctx, task.InvoiceID, delay)
	case sri.StateAuthorized:
		if task.Kind != TaskPoll {
			return nil
		}
		return o.queue.Enqueue(ctx, Task{
			Kind:      TaskNotify,
			InvoiceID: task.InvoiceID,
			Attempt:   1,
			RunAt:     o.now(),
		})
	}
	return nil
}

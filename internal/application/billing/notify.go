package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

// Notify envía el RIDE y el XML autorizado al comprador una sola vez.
// notified_at se reclama antes de enviar y se libera si el envío falla.
func (o *Orchestrator) Notify(ctx context.Context, invoiceID string) sri.Outcome {
	inv, err := o.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return sri.Fail(&sri.NetworkError{Op: "leer factura", Cause: err})
	}
	if inv == nil {
		o.log.Warn().Str("invoice_id", invoiceID).Msg("sri.notify: factura no encontrada, se descarta")
		return skip
	}
	log := o.log.Invoice(inv.ID, inv.AccessKey)
	if inv.SRIStatus != sri.StateAuthorized {
		log.Info().Str("estado", inv.SRIStatus.String()).Msg("sri.notify: la factura no está autorizada")
		return skip
	}

	claimed, err := o.invoices.MarkNotified(ctx, inv.ID, o.now())
	if err != nil {
		return sri.Fail(&sri.NetworkError{Op: "marcar notificación", Cause: err})
	}
	if !claimed {
		log.Info().Msg("sri.notify: ya notificada")
		return skip
	}

	release := func(cause error) sri.Outcome {
		if err := o.invoices.ClearNotified(ctx, inv.ID); err != nil {
			log.Error().Err(err).Msg("sri.notify: no se pudo liberar notified_at")
		}
		return sri.Fail(&sri.NetworkError{Op: "notificar comprador", Cause: cause})
	}

	data, err := o.rides.load(ctx, inv.ID)
	if err != nil {
		return release(err)
	}
	if data.Customer.Email == "" {
		log.Warn().Msg("sri.notify: el comprador no tiene correo, no se envía")
		return sri.Ok(sri.StateAuthorized)
	}

	var pdf []byte
	if o.ride != nil {
		pdf, err = o.ride.GenerateRIDE(ctx, *data)
		if err != nil {
			return release(fmt.Errorf("generar RIDE: %w", err))
		}
	}

	if err := o.notifier.NotifyAuthorized(ctx, NotifyInput{
		InvoiceID:      inv.ID,
		To:             data.Customer.Email,
		CustomerName:   data.Customer.Name,
		CompanyName:    data.Company.Name,
		DocumentNumber: inv.DocumentNumber(data.Point.Establishment, data.Point.EmissionPoint),
		Sequence:       inv.Sequence,
		AccessKey:      inv.AccessKey,
		PDF:            pdf,
		AuthorizedXML:  inv.XMLAuthorized,
	}); err != nil {
		log.Warn().Err(err).Msg("sri.notify: envío fallido")
		return release(err)
	}

	log.Info().Str("email", data.Customer.Email).Msg("sri.notify: comprobante enviado")
	return sri.Ok(sri.StateAuthorized)
}

// Resend reenvía el correo de una factura autorizada. Nunca vuelve a enviar al SRI.
func (o *Orchestrator) Resend(ctx context.Context, companyID, invoiceID string) error {
	inv, err := o.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("reenvío: obtener factura: %w", err)
	}
	if inv == nil {
		return domain.ErrNotFound
	}
	if inv.CompanyID != companyID {
		return domain.ErrForbidden
	}
	if inv.SRIStatus != sri.StateAuthorized {
		return fmt.Errorf("%w: estado actual %s", domain.ErrNotAuthorized, inv.SRIStatus)
	}
	if err := o.invoices.ClearNotified(ctx, inv.ID); err != nil {
		return fmt.Errorf("reenvío: liberar notificación: %w", err)
	}
	if err := o.queue.Enqueue(ctx, Task{
		Kind:      TaskNotify,
		InvoiceID: inv.ID,
		Attempt:   1,
		RunAt:     o.now(),
		Manual:    true,
	}); err != nil {
		return fmt.Errorf("reenvío: encolar: %w", err)
	}
	o.log.Invoice(inv.ID, inv.AccessKey).Info().Msg("reenvío de correo encolado")
	return nil
}

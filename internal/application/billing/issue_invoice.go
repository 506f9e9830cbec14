package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	pkgsri "github.com/jhoicas/sri-facturacion/pkg/sri"
)

// Issue finaliza una factura en DRAFT y la pone en el pipeline:
//
//	secuencial (atómico) → clave de acceso → modelo → XML → BUILT → encola sri.submit
//
// Una factura ya en BUILT solo se vuelve a encolar (p. ej. si el encolado anterior falló).
// El secuencial reservado nunca se devuelve: un fallo posterior deja un hueco.
//
// Retorna:
//   - domain.ErrNotFound     si la factura no existe.
//   - domain.ErrForbidden    si pertenece a otra empresa.
//   - domain.ErrConflict     si ya pasó de BUILT.
//   - domain.ErrInvalidInput si los datos no forman un comprobante válido.
func (o *Orchestrator) Issue(ctx context.Context, companyID, invoiceID string) (*entity.Invoice, error) {
	// ── 1. Cargar factura ─────────────────────────────────────────────────────
	inv, err := o.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("emitir: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	switch inv.SRIStatus {
	case sri.StateDraft:
	case sri.StateBuilt:
		if err := o.enqueueSubmit(ctx, inv.ID); err != nil {
			return nil, err
		}
		return inv, nil
	default:
		return nil, fmt.Errorf("%w: la factura ya está en estado %s", domain.ErrConflict, inv.SRIStatus)
	}

	// ── 2. Cargar emisor, punto de emisión, comprador y detalles ──────────────
	company, err := o.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("emitir: obtener empresa: %w", err)
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	point, err := o.points.GetByID(ctx, inv.PointOfEmissionID)
	if err != nil {
		return nil, fmt.Errorf("emitir: obtener punto de emisión: %w", err)
	}
	if point == nil || point.CompanyID != companyID {
		return nil, fmt.Errorf("%w: punto de emisión no encontrado", domain.ErrInvalidInput)
	}
	customer, err := o.customers.GetByID(ctx, inv.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("emitir: obtener cliente: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: cliente no encontrado", domain.ErrInvalidInput)
	}
	lines, err := loadLines(ctx, o.invoices, o.products, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("emitir: %w", err)
	}

	in := BuildInput{Company: company, Point: point, Customer: customer, Invoice: inv, Lines: lines}
	if err := o.builder.Precheck(in); err != nil {
		return nil, err
	}

	// ── 3. Secuencial y clave de acceso ───────────────────────────────────────
	seq, err := o.points.NextSequence(ctx, point.ID)
	if err != nil {
		return nil, fmt.Errorf("emitir: reservar secuencial: %w", err)
	}
	in.Sequence = pkgsri.FormatSequence(seq)
	if inv.Date.IsZero() {
		inv.Date = o.now()
	}
	in.AccessKey, err = pkgsri.GenerateAccessKey(pkgsri.AccessKeyInput{
		Date:          inv.Date,
		DocType:       pkgsri.DocTypeFactura,
		RUC:           company.RUC,
		Environment:   company.Environment,
		Establishment: point.Establishment,
		EmissionPoint: point.EmissionPoint,
		Sequence:      in.Sequence,
		NumericCode:   pkgsri.DefaultNumericCode,
		EmissionType:  pkgsri.EmissionTypeNormal,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: clave de acceso: %v", domain.ErrInvalidInput, err)
	}

	// ── 4. Modelo + XML ───────────────────────────────────────────────────────
	doc, err := o.builder.Build(in)
	if err != nil {
		return nil, err
	}
	xmlBytes, err := o.serializer.Build(doc)
	if err != nil {
		return nil, fmt.Errorf("emitir: serializar XML: %w", err)
	}

	inv.Sequence = doc.Sequence
	inv.AccessKey = doc.AccessKey
	inv.NetTotal = doc.Totals.Subtotal
	inv.DiscountTotal = doc.Totals.Discount
	inv.TaxTotal = doc.Totals.TaxTotal
	inv.Tip = doc.Totals.Tip
	inv.GrandTotal = doc.Totals.GrandTotal
	inv.PaymentMethodCode = doc.Payments[0].MethodCode
	inv.XMLGenerated = string(xmlBytes)

	// ── 5. Persistir BUILT en una transacción ─────────────────────────────────
	err = o.txRunner.RunIssue(ctx, func(repo repository.InvoiceRepository) error {
		locked, err := repo.GetForUpdate(ctx, inv.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrNotFound
		}
		if locked.SRIStatus != sri.StateDraft {
			return fmt.Errorf("%w: estado %s", domain.ErrStaleState, locked.SRIStatus)
		}
		for i, l := range in.Lines {
			l.Detail.Subtotal = doc.Items[i].Subtotal
			l.Detail.TaxAmount = doc.Items[i].Taxes[0].Amount
			if err := repo.UpdateDetailAmounts(ctx, l.Detail); err != nil {
				return err
			}
		}
		return repo.SaveBuilt(ctx, inv)
	})
	if err != nil {
		return nil, fmt.Errorf("emitir: guardar comprobante: %w", err)
	}
	inv.SRIStatus = sri.StateBuilt
	o.metrics.ObserveTransition(sri.StateBuilt)

	log := o.log.Invoice(inv.ID, inv.AccessKey)
	log.Info().Str("secuencial", inv.Sequence).Str("total", inv.GrandTotal.StringFixed(2)).Msg("comprobante generado")

	// ── 6. Encolar envío ──────────────────────────────────────────────────────
	if err := o.enqueueSubmit(ctx, inv.ID); err != nil {
		log.Error().Err(err).Msg("no se pudo encolar sri.submit; reintentar la emisión")
		return inv, err
	}
	return inv, nil
}

func (o *Orchestrator) enqueueSubmit(ctx context.Context, invoiceID string) error {
	if err := o.queue.Enqueue(ctx, Task{
		Kind:      TaskSubmit,
		InvoiceID: invoiceID,
		Attempt:   1,
		RunAt:     o.now(),
	}); err != nil {
		return fmt.Errorf("emitir: encolar %s: %w", TaskSubmit, err)
	}
	return nil
}

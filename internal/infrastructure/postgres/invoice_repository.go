package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, company_id, customer_id, point_of_emission_id, date,
	COALESCE(sequence, ''), COALESCE(access_key, ''),
	net_total, discount_total, tax_total, tip, grand_total, payment_method_code,
	sri_status, sri_error, xml_generated, xml_signed, xml_authorized,
	authorized_at, notified_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var status string
	var sriError, xmlGenerated, xmlSigned, xmlAuthorized *string
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.PointOfEmissionID, &inv.Date,
		&inv.Sequence, &inv.AccessKey,
		&inv.NetTotal, &inv.DiscountTotal, &inv.TaxTotal, &inv.Tip, &inv.GrandTotal, &inv.PaymentMethodCode,
		&status, &sriError, &xmlGenerated, &xmlSigned, &xmlAuthorized,
		&inv.AuthorizedAt, &inv.NotifiedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.SRIStatus = sri.State(status)
	inv.SRIError = derefStr(sriError)
	inv.XMLGenerated = derefStr(xmlGenerated)
	inv.XMLSigned = derefStr(xmlSigned)
	inv.XMLAuthorized = derefStr(xmlAuthorized)
	return &inv, nil
}

// GetByID obtiene una factura completa por ID. nil, nil si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetForUpdate igual que GetByID pero bloquea la fila hasta el fin de la transacción.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock invoice: %w", err)
	}
	return inv, nil
}

// GetDetailsByInvoiceID devuelve las líneas en orden de inserción.
func (r *InvoiceRepo) GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	const query = `
		SELECT id, invoice_id, product_id, quantity, unit_price, discount, subtotal, tax_amount
		FROM invoice_details WHERE invoice_id = $1 ORDER BY line_number, id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice details: %w", err)
	}
	defer rows.Close()

	var list []*entity.InvoiceDetail
	for rows.Next() {
		var d entity.InvoiceDetail
		if err := rows.Scan(&d.ID, &d.InvoiceID, &d.ProductID, &d.Quantity, &d.UnitPrice,
			&d.Discount, &d.Subtotal, &d.TaxAmount); err != nil {
			return nil, fmt.Errorf("scan invoice detail: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

// SaveBuilt guarda el resultado de la emisión y mueve DRAFT → BUILT.
func (r *InvoiceRepo) SaveBuilt(ctx context.Context, inv *entity.Invoice) error {
	const query = `
		UPDATE invoices
		SET sequence       = $3,
		    access_key     = $4,
		    net_total      = $5,
		    discount_total = $6,
		    tax_total      = $7,
		    grand_total    = $8,
		    xml_generated  = $9,
		    sri_status     = $10,
		    sri_error      = NULL,
		    updated_at     = $11
		WHERE id = $1 AND sri_status = $2`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, string(sri.StateDraft),
		inv.Sequence, inv.AccessKey,
		inv.NetTotal, inv.DiscountTotal, inv.TaxTotal, inv.GrandTotal,
		inv.XMLGenerated, string(sri.StateBuilt), time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("clave de acceso duplicada: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("save built invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleState
	}
	inv.SRIStatus = sri.StateBuilt
	return nil
}

// UpdateDetailAmounts guarda subtotal e IVA de la línea.
func (r *InvoiceRepo) UpdateDetailAmounts(ctx context.Context, d *entity.InvoiceDetail) error {
	_, err := r.q.Exec(ctx,
		`UPDATE invoice_details SET subtotal = $2, tax_amount = $3 WHERE id = $1`,
		d.ID, d.Subtotal, d.TaxAmount)
	if err != nil {
		return fmt.Errorf("update invoice detail: %w", err)
	}
	return nil
}

// Transition compare-and-swap del estado SRI. Una fila terminal nunca se reescribe
// porque ninguna arista sale de un estado terminal.
func (r *InvoiceRepo) Transition(ctx context.Context, id string, from, to sri.State, upd repository.StatusUpdate) error {
	if !sri.CanTransition(from, to) {
		return fmt.Errorf("transición %s → %s: %w", from, to, domain.ErrConflict)
	}
	const query = `
		UPDATE invoices
		SET sri_status     = $3,
		    xml_signed     = COALESCE($4, xml_signed),
		    xml_authorized = COALESCE($5, xml_authorized),
		    authorized_at  = COALESCE($6, authorized_at),
		    sri_error      = CASE WHEN $7::text IS NULL THEN sri_error ELSE NULLIF($7::text, '') END,
		    updated_at     = $8
		WHERE id = $1 AND sri_status = $2`
	tag, err := r.q.Exec(ctx, query,
		id, string(from), string(to),
		upd.XMLSigned, upd.XMLAuthorized, upd.AuthorizedAt, upd.SRIError,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("transition invoice %s → %s: %w", from, to, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleState
	}
	return nil
}

// UpdateSignedXML refresca xml_signed si el estado sigue siendo from.
func (r *InvoiceRepo) UpdateSignedXML(ctx context.Context, id string, from sri.State, xmlSigned string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE invoices SET xml_signed = $3, updated_at = $4 WHERE id = $1 AND sri_status = $2`,
		id, string(from), xmlSigned, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update signed xml: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleState
	}
	return nil
}

// MarkNotified fija notified_at solo si estaba vacío y la factura está autorizada.
func (r *InvoiceRepo) MarkNotified(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE invoices SET notified_at = $2 WHERE id = $1 AND notified_at IS NULL AND sri_status = $3`,
		id, at, string(sri.StateAuthorized))
	if err != nil {
		return false, fmt.Errorf("mark notified: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClearNotified habilita un nuevo envío de correo (reenvío manual).
func (r *InvoiceRepo) ClearNotified(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE invoices SET notified_at = NULL WHERE id = $1 AND sri_status = $2`,
		id, string(sri.StateAuthorized))
	if err != nil {
		return fmt.Errorf("clear notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotAuthorized
	}
	return nil
}

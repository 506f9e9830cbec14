package email_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/email"
)

type captureDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *captureDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func notifyInput() billing.NotifyInput {
	return billing.NotifyInput{
		InvoiceID:      "inv-1",
		To:             "juan@example.com",
		CustomerName:   "Juan <Pérez>",
		CompanyName:    "ACME S.A.",
		DocumentNumber: "001-001-000000001",
		Sequence:       "000000001",
		AccessKey:      "1503202501179000000000110010010000000011234567815",
		PDF:            []byte("%PDF-1.3"),
		AuthorizedXML:  "<autorizacion/>",
	}
}

func TestSMTPNotifier_SendsAttachments(t *testing.T) {
	d := &captureDialer{}
	n := email.NewSMTPNotifierWithDialer(d, "facturas@acme.ec")

	require.NoError(t, n.NotifyAuthorized(context.Background(), notifyInput()))
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"Comprobante Electrónico: Factura 000000001"}, m.GetHeader("Subject"))
	assert.Equal(t, []string{"juan@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"facturas@acme.ec"}, m.GetHeader("From"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "factura_000000001.pdf")
	assert.Contains(t, raw, "factura_000000001.xml")
	assert.Contains(t, raw, "Juan &lt;P")
}

func TestSMTPNotifier_Errors(t *testing.T) {
	d := &captureDialer{err: errors.New("connection refused")}
	n := email.NewSMTPNotifierWithDialer(d, "facturas@acme.ec")

	err := n.NotifyAuthorized(context.Background(), notifyInput())
	assert.ErrorContains(t, err, "connection refused")

	in := notifyInput()
	in.To = ""
	assert.Error(t, n.NotifyAuthorized(context.Background(), in))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.NotifyAuthorized(ctx, notifyInput()), context.Canceled)
}

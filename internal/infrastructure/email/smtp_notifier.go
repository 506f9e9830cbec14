// Package email envía al comprador el comprobante autorizado por el SRI.
package email

import (
	"context"
	"fmt"
	"html"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/pkg/config"
)

var _ billing.Notifier = (*SMTPNotifier)(nil)

// Dialer abstrae gomail.Dialer para poder capturar los mensajes en pruebas.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier implementa billing.Notifier con gomail.
type SMTPNotifier struct {
	dialer Dialer
	from   string
}

// NewSMTPNotifier construye el notificador a partir de la configuración SMTP.
func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   from,
	}
}

// NewSMTPNotifierWithDialer permite inyectar el Dialer.
func NewSMTPNotifierWithDialer(d Dialer, from string) *SMTPNotifier {
	return &SMTPNotifier{dialer: d, from: from}
}

// Subject asunto del correo de una factura autorizada.
func Subject(sequence string) string {
	return "Comprobante Electrónico: Factura " + sequence
}

// NotifyAuthorized envía el RIDE y el XML autorizado como adjuntos.
func (n *SMTPNotifier) NotifyAuthorized(ctx context.Context, in billing.NotifyInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if in.To == "" {
		return fmt.Errorf("email: destinatario vacío")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", in.To)
	m.SetHeader("Subject", Subject(in.Sequence))
	m.SetBody("text/html", body(in))

	if len(in.PDF) > 0 {
		m.Attach(billing.RIDEFilename(in.Sequence),
			attachment(in.PDF),
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
		)
	}
	if in.AuthorizedXML != "" {
		m.Attach(billing.XMLFilename(in.Sequence),
			attachment([]byte(in.AuthorizedXML)),
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/xml"}}),
		)
	}

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("email: enviar factura %s: %w", in.Sequence, err)
	}
	return nil
}

func attachment(data []byte) gomail.FileSetting {
	return gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func body(in billing.NotifyInput) string {
	return fmt.Sprintf(`<p>Estimado(a) %s,</p>
<p>%s le informa que se ha emitido la factura electrónica <strong>%s</strong>, autorizada por el SRI.</p>
<p>Clave de acceso: <code>%s</code></p>
<p>Adjuntamos la representación impresa (RIDE) y el comprobante en formato XML.</p>`,
		html.EscapeString(in.CustomerName),
		html.EscapeString(in.CompanyName),
		html.EscapeString(in.DocumentNumber),
		html.EscapeString(in.AccessKey),
	)
}

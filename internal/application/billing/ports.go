package billing

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

// IssueTxRunner ejecuta la persistencia del comprobante construido en una sola transacción.
type IssueTxRunner interface {
	RunIssue(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository) error) error
}

// ── Cola de tareas ────────────────────────────────────────────────────────────

// TaskKind nombre de la tarea del pipeline.
type TaskKind string

const (
	TaskSubmit TaskKind = "sri.submit"
	TaskPoll   TaskKind = "sri.poll"
	TaskNotify TaskKind = "sri.notify"
)

// Task unidad de trabajo diferida. Attempt empieza en 1.
type Task struct {
	ID        string    `json:"id"`
	Kind      TaskKind  `json:"kind"`
	InvoiceID string    `json:"invoice_id"`
	Attempt   int       `json:"attempt"`
	RunAt     time.Time `json:"run_at"`
	Manual    bool      `json:"manual,omitempty"`
}

// Queue cola con entrega diferida y al menos una vez.
// Claim devuelve (nil, nil) si no hay tareas vencidas; una tarea reclamada y no
// confirmada con Ack vuelve a la cola al vencer su visibilidad.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Claim(ctx context.Context) (*Task, error)
	Ack(ctx context.Context, taskID string) error
}

// ── Colaboradores SRI ─────────────────────────────────────────────────────────

// Serializer convierte el modelo del comprobante en el XML de la factura.
type Serializer interface {
	Build(doc *sri.TaxDocument) ([]byte, error)
}

// Signer aplica la firma XAdES-BES.
type Signer interface {
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}

// SchemaValidator valida el XML firmado contra el XSD oficial.
type SchemaValidator interface {
	Validate(doc []byte) error
}

// CertificateProvider entrega el certificado de firma de una empresa (normalmente cacheado).
type CertificateProvider interface {
	Get(companyID, path, password string, version int) (tls.Certificate, error)
}

// ReceptionClient WS RecepcionComprobantesOffline.
type ReceptionClient interface {
	Submit(ctx context.Context, signed []byte) (*sri.ReceptionResult, error)
}

// AuthorizationClient WS AutorizacionComprobantesOffline.
type AuthorizationClient interface {
	Authorize(ctx context.Context, accessKey string) (*sri.AuthorizationResult, error)
}

// Gateway resuelve los clientes SOAP según el ambiente de la empresa.
type Gateway interface {
	Reception(environment string) ReceptionClient
	Authorization(environment string) AuthorizationClient
}

// ── Notificación y RIDE ───────────────────────────────────────────────────────

// RIDELine línea de detalle enriquecida con el producto.
type RIDELine struct {
	entity.InvoiceDetail
	ProductCode string
	ProductName string
}

// RIDEData datos de la representación impresa (RIDE) de una factura autorizada.
type RIDEData struct {
	Invoice  *entity.Invoice
	Company  *entity.Company
	Customer *entity.Customer
	Point    *entity.PointOfEmission
	Lines    []RIDELine
}

// RIDEGenerator genera el PDF del RIDE.
type RIDEGenerator interface {
	GenerateRIDE(ctx context.Context, data RIDEData) ([]byte, error)
}

// NotifyInput contenido del correo al comprador.
type NotifyInput struct {
	InvoiceID      string
	To             string
	CustomerName   string
	CompanyName    string
	DocumentNumber string
	Sequence       string
	AccessKey      string
	PDF            []byte
	AuthorizedXML  string
}

// Notifier envía el comprobante autorizado al comprador.
type Notifier interface {
	NotifyAuthorized(ctx context.Context, in NotifyInput) error
}

// NoopNotifier descarta las notificaciones (desarrollo, SMTP sin configurar).
type NoopNotifier struct{}

// NotifyAuthorized no hace nada.
func (NoopNotifier) NotifyAuthorized(context.Context, NotifyInput) error { return nil }

// ── Métricas ──────────────────────────────────────────────────────────────────

// Metrics observa el pipeline. Los valores de outcome son los nombres de sri.ErrorKind.
type Metrics interface {
	ObserveTask(kind TaskKind, outcome string, elapsed time.Duration)
	ObserveTransition(to sri.State)
	ObserveRetry(kind TaskKind)
}

// NopMetrics implementación vacía.
type NopMetrics struct{}

func (NopMetrics) ObserveTask(TaskKind, string, time.Duration) {}
func (NopMetrics) ObserveTransition(sri.State)                 {}
func (NopMetrics) ObserveRetry(TaskKind)                       {}

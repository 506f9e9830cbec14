package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	"github.com/jhoicas/sri-facturacion/pkg/logger"
)

// RetryBudget intentos máximos y espera entre intentos de una tarea.
type RetryBudget struct {
	MaxAttempts int
	Delay       time.Duration
}

// PipelineConfig presupuestos de reintento y esperas del pipeline.
type PipelineConfig struct {
	Submit          RetryBudget
	Poll            RetryBudget
	Notify          RetryBudget
	FirstPollDelay  time.Duration // espera entre RECIBIDA y la primera consulta
	ProcessingDelay time.Duration // espera cuando el SRI responde EN PROCESO
}

// DefaultPipelineConfig valores de producción.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Submit:          RetryBudget{MaxAttempts: 3, Delay: 60 * time.Second},
		Poll:            RetryBudget{MaxAttempts: 5, Delay: 300 * time.Second},
		Notify:          RetryBudget{MaxAttempts: 3, Delay: 120 * time.Second},
		FirstPollDelay:  120 * time.Second,
		ProcessingDelay: 180 * time.Second,
	}
}

func (c PipelineConfig) budget(kind TaskKind) RetryBudget {
	switch kind {
	case TaskSubmit:
		return c.Submit
	case TaskPoll:
		return c.Poll
	default:
		return c.Notify
	}
}

// Deps colaboradores del orquestador.
type Deps struct {
	Invoices   repository.InvoiceRepository
	Companies  repository.CompanyRepository
	Customers  repository.CustomerRepository
	Products   repository.ProductRepository
	Points     repository.PointOfEmissionRepository
	TxRunner   IssueTxRunner
	Builder    *DocumentBuilder
	Serializer Serializer
	Signer     Signer
	Validator  SchemaValidator
	Certs      CertificateProvider
	Gateway    Gateway
	RIDE       RIDEGenerator
	Notifier   Notifier
	Queue      Queue
	Metrics    Metrics
	Logger     *logger.Logger
	Now        func() time.Time
}

// Orchestrator conduce cada factura por el ciclo de emisión SRI:
//
//	Issue:  secuencial → clave de acceso → modelo → XML → BUILT → encola sri.submit
//	Submit: firma XAdES-BES → XSD → RecepcionComprobantesOffline → SUBMITTED
//	Poll:   AutorizacionComprobantesOffline → AUTHORIZED | REJECTED | reintento
//	Notify: RIDE + correo al comprador, una sola vez
//
// Cada paso devuelve un sri.Outcome; TaskHandler decide reintentos y estados terminales.
// Los estados se persisten con compare-and-swap, así que nunca retroceden.
type Orchestrator struct {
	invoices   repository.InvoiceRepository
	companies  repository.CompanyRepository
	customers  repository.CustomerRepository
	products   repository.ProductRepository
	points     repository.PointOfEmissionRepository
	txRunner   IssueTxRunner
	builder    *DocumentBuilder
	serializer Serializer
	signer     Signer
	validator  SchemaValidator
	certs      CertificateProvider
	gateway    Gateway
	ride       RIDEGenerator
	notifier   Notifier
	queue      Queue
	metrics    Metrics
	rides      rideLoader
	log        *logger.Logger
	now        func() time.Time
	cfg        PipelineConfig
}

// NewOrchestrator construye el orquestador. Metrics, Notifier, Logger y Now son opcionales.
func NewOrchestrator(d Deps, cfg PipelineConfig) *Orchestrator {
	if d.Builder == nil {
		d.Builder = NewDocumentBuilder()
	}
	if d.Metrics == nil {
		d.Metrics = NopMetrics{}
	}
	if d.Notifier == nil {
		d.Notifier = NoopNotifier{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Orchestrator{
		invoices:   d.Invoices,
		companies:  d.Companies,
		customers:  d.Customers,
		products:   d.Products,
		points:     d.Points,
		txRunner:   d.TxRunner,
		builder:    d.Builder,
		serializer: d.Serializer,
		signer:     d.Signer,
		validator:  d.Validator,
		certs:      d.Certs,
		gateway:    d.Gateway,
		ride:       d.RIDE,
		notifier:   d.Notifier,
		queue:      d.Queue,
		metrics:    d.Metrics,
		rides:      rideLoader{d.Invoices, d.Companies, d.Customers, d.Products, d.Points},
		log:        d.Logger.Component("orchestrator"),
		now:        d.Now,
		cfg:        cfg,
	}
}

// skip outcome sin trabajo pendiente: factura inexistente o en un estado que ya no corresponde.
var skip = sri.Outcome{Kind: sri.KindNone}

// transition aplica el CAS y registra la métrica.
func (o *Orchestrator) transition(ctx context.Context, id string, from, to sri.State, upd repository.StatusUpdate) error {
	if err := o.invoices.Transition(ctx, id, from, to, upd); err != nil {
		return fmt.Errorf("sri: transición %s → %s: %w", from, to, err)
	}
	o.metrics.ObserveTransition(to)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Submit: firma → XSD → recepción
// ═══════════════════════════════════════════════════════════════════════════

// Submit firma, valida y envía el comprobante. Un reintento vuelve a firmar en memoria
// (nuevo signingTime) y refresca xml_firmado sin mover el estado hacia atrás.
func (o *Orchestrator) Submit(ctx context.Context, invoiceID string) sri.Outcome {
	inv, err := o.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return sri.Fail(&sri.NetworkError{Op: "leer factura", Cause: err})
	}
	if inv == nil {
		o.log.Warn().Str("invoice_id", invoiceID).Msg("sri.submit: factura no encontrada, se descarta")
		return skip
	}
	log := o.log.Invoice(inv.ID, inv.AccessKey)

	state := inv.SRIStatus
	switch state {
	case sri.StateBuilt, sri.StateSigned, sri.StateSchemaValid:
	case sri.StateSubmitted:
		// RECIBIDA ya persistida; falta agendar la consulta
		return sri.Ok(sri.StateSubmitted)
	default:
		log.Info().Str("estado", state.String()).Msg("sri.submit: nada que hacer")
		return skip
	}

	company, err := o.companies.GetByID(ctx, inv.CompanyID)
	if err != nil || company == nil {
		return sri.Fail(&sri.NetworkError{Op: "leer empresa", Cause: orNotFound(err)})
	}
	if !company.HasCertificate() {
		return sri.Fail(&sri.SigningError{Reason: "la empresa no tiene certificado de firma", Cause: domain.ErrNoCertificate})
	}

	// ── 1. Firma ─────────────────────────────────────────────────────────────
	cert, err := o.certs.Get(company.ID, company.CertPath, company.CertPassword, company.CertVersion)
	if err != nil {
		return sri.Fail(asSigningError("cargar certificado", err))
	}
	signed, err := o.signer.Sign([]byte(inv.XMLGenerated), cert)
	if err != nil {
		return sri.Fail(asSigningError("firmar comprobante", err))
	}
	signedXML := string(signed)
	if state == sri.StateBuilt {
		if err := o.transition(ctx, inv.ID, sri.StateBuilt, sri.StateSigned, repository.StatusUpdate{XMLSigned: &signedXML}); err != nil {
			return o.storeFailure(err)
		}
		state = sri.StateSigned
	} else if err := o.invoices.UpdateSignedXML(ctx, inv.ID, state, signedXML); err != nil {
		return o.storeFailure(err)
	}

	// ── 2. XSD ───────────────────────────────────────────────────────────────
	if err := o.validator.Validate(signed); err != nil {
		log.Warn().Err(err).Msg("sri.submit: XML no cumple el XSD")
		return sri.Fail(err)
	}
	if state == sri.StateSigned {
		if err := o.transition(ctx, inv.ID, sri.StateSigned, sri.StateSchemaValid, repository.StatusUpdate{}); err != nil {
			return o.storeFailure(err)
		}
	}

	// ── 3. Recepción ─────────────────────────────────────────────────────────
	res, err := o.gateway.Reception(company.Environment).Submit(ctx, signed)
	if err != nil {
		log.Warn().Err(err).Msg("sri.submit: error de red en recepción")
		return sri.Fail(err)
	}
	if !res.Received {
		return sri.Fail(&sri.AuthorityRejection{Status: res.Status, Message: sri.JoinMessages(res.Messages)})
	}

	cleared := ""
	if err := o.transition(ctx, inv.ID, sri.StateSchemaValid, sri.StateSubmitted, repository.StatusUpdate{SRIError: &cleared}); err != nil {
		return o.storeFailure(err)
	}
	log.Info().Msg("sri.submit: comprobante RECIBIDA")
	return sri.Ok(sri.StateSubmitted)
}

// ═══════════════════════════════════════════════════════════════════════════
// Poll: consulta de autorización
// ═══════════════════════════════════════════════════════════════════════════

// SchedulePoll encola la primera consulta y mueve SUBMITTED → PENDING.
// Si la factura ya está en PENDING solo encola.
func (o *Orchestrator) SchedulePoll(ctx context.Context, invoiceID string, delay time.Duration) error {
	if err := o.queue.Enqueue(ctx, Task{
		Kind:      TaskPoll,
		InvoiceID: invoiceID,
		Attempt:   1,
		RunAt:     o.now().Add(delay),
	}); err != nil {
		return err
	}
	err := o.transition(ctx, invoiceID, sri.StateSubmitted, sri.StatePending, repository.StatusUpdate{})
	if errors.Is(err, domain.ErrStaleState) {
		return nil
	}
	return err
}

// Poll consulta la autorización de un comprobante en PENDING.
func (o *Orchestrator) Poll(ctx context.Context, invoiceID string) sri.Outcome {
	inv, err := o.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return sri.Fail(&sri.NetworkError{Op: "leer factura", Cause: err})
	}
	if inv == nil {
		o.log.Warn().Str("invoice_id", invoiceID).Msg("sri.poll: factura no encontrada, se descarta")
		return skip
	}
	log := o.log.Invoice(inv.ID, inv.AccessKey)
	if inv.SRIStatus == sri.StateAuthorized && inv.NotifiedAt == nil {
		// AUTORIZADO ya persistido; falta encolar la notificación
		return sri.Ok(sri.StateAuthorized)
	}
	if inv.SRIStatus != sri.StatePending {
		log.Info().Str("estado", inv.SRIStatus.String()).Msg("sri.poll: nada que hacer")
		return skip
	}

	company, err := o.companies.GetByID(ctx, inv.CompanyID)
	if err != nil || company == nil {
		return sri.Fail(&sri.NetworkError{Op: "leer empresa", Cause: orNotFound(err)})
	}

	res, err := o.gateway.Authorization(company.Environment).Authorize(ctx, inv.AccessKey)
	if err != nil {
		log.Warn().Err(err).Msg("sri.poll: error de red en autorización")
		return sri.Fail(err)
	}

	switch res.Status {
	case sri.AuthorizationAuthorized:
		authorizedAt := res.AuthorizedAt
		if authorizedAt.IsZero() {
			authorizedAt = o.now()
		}
		xmlAuth, cleared := res.AuthorizedXML, ""
		if err := o.transition(ctx, inv.ID, sri.StatePending, sri.StateAuthorized, repository.StatusUpdate{
			XMLAuthorized: &xmlAuth,
			AuthorizedAt:  &authorizedAt,
			SRIError:      &cleared,
		}); err != nil {
			return o.storeFailure(err)
		}
		log.Info().Str("numero_autorizacion", res.AuthorizationNumber).Msg("sri.poll: AUTORIZADO")
		return sri.Ok(sri.StateAuthorized)
	case sri.AuthorizationNotAuthorized:
		return sri.Fail(&sri.AuthorityRejection{Status: string(res.Status), Message: res.Message()})
	default:
		log.Info().Msg("sri.poll: comprobante EN PROCESO")
		return sri.Fail(sri.ErrStillProcessing)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Estados terminales
// ═══════════════════════════════════════════════════════════════════════════

// Finish registra un resultado terminal: XSD, DEVUELTA y NO AUTORIZADO → REJECTED;
// firma y reintentos agotados → FAILED. El mensaje se guarda en sri_error.
func (o *Orchestrator) Finish(ctx context.Context, invoiceID string, out sri.Outcome) error {
	var target sri.State
	switch out.Kind {
	case sri.KindValidation, sri.KindAuthorityRejection:
		target = sri.StateRejected
	case sri.KindSigning, sri.KindRetryBudgetExhausted:
		target = sri.StateFailed
	default:
		return fmt.Errorf("sri: %s no es un resultado terminal", out.Kind)
	}

	inv, err := o.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv == nil || inv.SRIStatus.IsTerminal() {
		return nil
	}
	if !sri.CanTransition(inv.SRIStatus, target) {
		o.log.Invoice(inv.ID, inv.AccessKey).Error().
			Str("estado", inv.SRIStatus.String()).
			Str("destino", target.String()).
			Str("sri_error", out.Message()).
			Msg("sri: resultado terminal sin transición válida")
		return nil
	}
	msg := out.Message()
	if err := o.transition(ctx, inv.ID, inv.SRIStatus, target, repository.StatusUpdate{SRIError: &msg}); err != nil {
		if errors.Is(err, domain.ErrStaleState) {
			return nil
		}
		return err
	}
	o.log.Invoice(inv.ID, inv.AccessKey).Warn().
		Str("estado", target.String()).
		Str("motivo", out.Kind.String()).
		Str("sri_error", msg).
		Msg("sri: comprobante finalizado sin autorización")
	return nil
}

// storeFailure clasifica errores de persistencia. Un CAS perdido significa que otra
// ejecución avanzó la factura: no hay nada más que hacer.
func (o *Orchestrator) storeFailure(err error) sri.Outcome {
	if errors.Is(err, domain.ErrStaleState) {
		o.log.Info().Err(err).Msg("sri: estado modificado por otra ejecución")
		return skip
	}
	return sri.Fail(&sri.NetworkError{Op: "persistir estado", Cause: err})
}

func asSigningError(reason string, err error) error {
	var se *sri.SigningError
	if errors.As(err, &se) {
		return err
	}
	return &sri.SigningError{Reason: reason, Cause: err}
}

func orNotFound(err error) error {
	if err != nil {
		return err
	}
	return domain.ErrNotFound
}

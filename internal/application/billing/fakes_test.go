package billing_test

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	"github.com/jhoicas/sri-facturacion/internal/domain"
	"github.com/jhoicas/sri-facturacion/internal/domain/entity"
	"github.com/jhoicas/sri-facturacion/internal/domain/repository"
	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/queue"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── reloj ─────────────────────────────────────────────────────────────────────

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(dur time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(dur)
}

// ── repositorio de facturas ───────────────────────────────────────────────────

type invoiceStore struct {
	mu       sync.Mutex
	invoices map[string]*entity.Invoice
	details  map[string][]*entity.InvoiceDetail
	history  map[string][]sri.State
}

func newInvoiceStore() *invoiceStore {
	return &invoiceStore{
		invoices: map[string]*entity.Invoice{},
		details:  map[string][]*entity.InvoiceDetail{},
		history:  map[string][]sri.State{},
	}
}

func (s *invoiceStore) put(inv *entity.Invoice, details ...*entity.InvoiceDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inv
	s.invoices[inv.ID] = &cp
	s.details[inv.ID] = details
	s.history[inv.ID] = []sri.State{inv.SRIStatus}
}

func (s *invoiceStore) snapshot(id string) *entity.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil
	}
	cp := *inv
	return &cp
}

func (s *invoiceStore) states(id string) []sri.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sri.State(nil), s.history[id]...)
}

func (s *invoiceStore) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	return s.snapshot(id), nil
}

func (s *invoiceStore) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return s.GetByID(ctx, id)
}

func (s *invoiceStore) GetDetailsByInvoiceID(_ context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.InvoiceDetail, 0, len(s.details[invoiceID]))
	for _, det := range s.details[invoiceID] {
		cp := *det
		out = append(out, &cp)
	}
	return out, nil
}

func (s *invoiceStore) SaveBuilt(_ context.Context, inv *entity.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.invoices[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.SRIStatus != sri.StateDraft {
		return domain.ErrStaleState
	}
	for _, other := range s.invoices {
		if other.ID != inv.ID && other.AccessKey == inv.AccessKey {
			return domain.ErrDuplicate
		}
	}
	cp := *inv
	cp.SRIStatus = sri.StateBuilt
	s.invoices[inv.ID] = &cp
	s.history[inv.ID] = append(s.history[inv.ID], sri.StateBuilt)
	return nil
}

func (s *invoiceStore) UpdateDetailAmounts(_ context.Context, det *entity.InvoiceDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.details[det.InvoiceID] {
		if cur.ID == det.ID {
			cur.Subtotal, cur.TaxAmount = det.Subtotal, det.TaxAmount
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *invoiceStore) Transition(_ context.Context, id string, from, to sri.State, upd repository.StatusUpdate) error {
	if !sri.CanTransition(from, to) {
		return domain.ErrConflict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.SRIStatus != from {
		return domain.ErrStaleState
	}
	inv.SRIStatus = to
	if upd.XMLSigned != nil {
		inv.XMLSigned = *upd.XMLSigned
	}
	if upd.XMLAuthorized != nil {
		inv.XMLAuthorized = *upd.XMLAuthorized
	}
	if upd.AuthorizedAt != nil {
		at := *upd.AuthorizedAt
		inv.AuthorizedAt = &at
	}
	if upd.SRIError != nil {
		inv.SRIError = *upd.SRIError
	}
	s.history[id] = append(s.history[id], to)
	return nil
}

func (s *invoiceStore) UpdateSignedXML(_ context.Context, id string, from sri.State, xmlSigned string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.SRIStatus != from {
		return domain.ErrStaleState
	}
	inv.XMLSigned = xmlSigned
	return nil
}

func (s *invoiceStore) MarkNotified(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.NotifiedAt != nil || inv.SRIStatus != sri.StateAuthorized {
		return false, nil
	}
	inv.NotifiedAt = &at
	return true, nil
}

func (s *invoiceStore) ClearNotified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := s.invoices[id]; ok && inv.SRIStatus == sri.StateAuthorized {
		inv.NotifiedAt = nil
	}
	return nil
}

type txRunner struct{ store *invoiceStore }

func (r txRunner) RunIssue(_ context.Context, fn func(repository.InvoiceRepository) error) error {
	return fn(r.store)
}

// ── catálogos ─────────────────────────────────────────────────────────────────

type companyRepo struct{ byID map[string]*entity.Company }

func (r companyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	return r.byID[id], nil
}

func (r companyRepo) UpdateCertificate(_ context.Context, id, path, password string) (int, error) {
	c, ok := r.byID[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	c.CertPath, c.CertPassword = path, password
	c.CertVersion++
	return c.CertVersion, nil
}

type customerRepo struct{ byID map[string]*entity.Customer }

func (r customerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	return r.byID[id], nil
}

type productRepo struct{ byID map[string]*entity.Product }

func (r productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	return r.byID[id], nil
}

type pointRepo struct {
	mu   sync.Mutex
	byID map[string]*entity.PointOfEmission
}

func (r *pointRepo) GetByID(_ context.Context, id string) (*entity.PointOfEmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *pointRepo) NextSequence(_ context.Context, id string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || !p.IsActive {
		return 0, domain.ErrNotFound
	}
	n := p.InvoiceSequence
	p.InvoiceSequence++
	return n, nil
}

// ── colaboradores SRI ─────────────────────────────────────────────────────────

type serializer struct{}

func (serializer) Build(doc *sri.TaxDocument) ([]byte, error) {
	return []byte(`<factura id="comprobante" version="1.1.0"><claveAcceso>` + doc.AccessKey + `</claveAcceso></factura>`), nil
}

type signer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *signer) Sign(xmlBytes []byte, _ tls.Certificate) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append(append([]byte{}, xmlBytes...), []byte("<!--firmado-->")...), nil
}

type validator struct{ err error }

func (v validator) Validate([]byte) error { return v.err }

type certs struct{ err error }

func (c certs) Get(string, string, string, int) (tls.Certificate, error) {
	return tls.Certificate{}, c.err
}

type receptionStep struct {
	res *sri.ReceptionResult
	err error
}

type authorizationStep struct {
	res *sri.AuthorizationResult
	err error
}

// gateway devuelve respuestas en orden; la última se repite.
type gateway struct {
	mu            sync.Mutex
	reception     []receptionStep
	authorization []authorizationStep
	submits       int
	polls         int
	environments  []string
}

func (g *gateway) Reception(env string) billing.ReceptionClient {
	g.mu.Lock()
	g.environments = append(g.environments, env)
	g.mu.Unlock()
	return receptionFunc(func(context.Context, []byte) (*sri.ReceptionResult, error) {
		g.mu.Lock()
		defer g.mu.Unlock()
		step := g.reception[min(g.submits, len(g.reception)-1)]
		g.submits++
		return step.res, step.err
	})
}

func (g *gateway) Authorization(string) billing.AuthorizationClient {
	return authorizationFunc(func(context.Context, string) (*sri.AuthorizationResult, error) {
		g.mu.Lock()
		defer g.mu.Unlock()
		step := g.authorization[min(g.polls, len(g.authorization)-1)]
		g.polls++
		return step.res, step.err
	})
}

type receptionFunc func(context.Context, []byte) (*sri.ReceptionResult, error)

func (f receptionFunc) Submit(ctx context.Context, signed []byte) (*sri.ReceptionResult, error) {
	return f(ctx, signed)
}

type authorizationFunc func(context.Context, string) (*sri.AuthorizationResult, error)

func (f authorizationFunc) Authorize(ctx context.Context, key string) (*sri.AuthorizationResult, error) {
	return f(ctx, key)
}

var (
	recibida = receptionStep{res: &sri.ReceptionResult{Received: true, Status: "RECIBIDA"}}
	netDown  = receptionStep{err: &sri.NetworkError{Op: "recepción", Cause: errors.New("connection refused")}}
)

func autorizado(at time.Time) authorizationStep {
	return authorizationStep{res: &sri.AuthorizationResult{
		Status:              sri.AuthorizationAuthorized,
		AuthorizationNumber: "1503202501179000000000110010010000000011234567815",
		AuthorizedAt:        at,
		AuthorizedXML:       "<autorizacion>ok</autorizacion>",
	}}
}

var enProceso = authorizationStep{res: &sri.AuthorizationResult{Status: sri.AuthorizationProcessing}}

// ── notificación y RIDE ───────────────────────────────────────────────────────

type notifier struct {
	mu    sync.Mutex
	sent  []billing.NotifyInput
	fails int
}

func (n *notifier) NotifyAuthorized(_ context.Context, in billing.NotifyInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fails > 0 {
		n.fails--
		return errors.New("smtp: 421 servicio no disponible")
	}
	n.sent = append(n.sent, in)
	return nil
}

func (n *notifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type ride struct{}

func (ride) GenerateRIDE(_ context.Context, data billing.RIDEData) ([]byte, error) {
	return []byte("%PDF-" + data.Invoice.AccessKey), nil
}

// ── fixture ───────────────────────────────────────────────────────────────────

const (
	companyID = "company-1"
	invoiceID = "invoice-1"
	pointID   = "pos-1"
	scenarioA = "1503202501179000000000110010010000000011234567815"
)

type fixture struct {
	clock    *clock
	store    *invoiceStore
	points   *pointRepo
	signer   *signer
	gateway  *gateway
	notifier *notifier
	queue    *queue.MemoryQueue
	orch     *billing.Orchestrator
	handler  *billing.TaskHandler
	deps     billing.Deps
}

func sampleCompany() *entity.Company {
	return &entity.Company{
		ID:          companyID,
		Name:        "Compañía Ejemplo S.A.",
		RUC:         "1790000000001",
		Address:     "Av. Amazonas y Colón",
		Environment: "1",
		IVARate:     d("15"),
		IVARateCode: "4",
		CertPath:    "/certs/company-1.p12",
		Status:      "active",
	}
}

// newFixture arma una factura DRAFT con el escenario de 100 (IVA 0%) + 2 × 25 (IVA 15%).
func newFixture(opts ...func(*billing.Deps)) *fixture {
	f := &fixture{
		clock:    newClock(),
		store:    newInvoiceStore(),
		signer:   &signer{},
		gateway:  &gateway{reception: []receptionStep{recibida}},
		notifier: &notifier{},
	}
	f.gateway.authorization = []authorizationStep{autorizado(f.clock.Now())}
	f.points = &pointRepo{byID: map[string]*entity.PointOfEmission{
		pointID: {ID: pointID, CompanyID: companyID, Establishment: "001", EmissionPoint: "001", InvoiceSequence: 1, IsActive: true},
	}}
	f.queue = queue.NewMemoryQueue(time.Minute, f.clock.Now)

	f.store.put(&entity.Invoice{
		ID:                invoiceID,
		CompanyID:         companyID,
		CustomerID:        "customer-1",
		PointOfEmissionID: pointID,
		Date:              time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC),
		SRIStatus:         sri.StateDraft,
	},
		&entity.InvoiceDetail{ID: "det-1", InvoiceID: invoiceID, ProductID: "serv", Quantity: d("1"), UnitPrice: d("100"), Discount: d("0")},
		&entity.InvoiceDetail{ID: "det-2", InvoiceID: invoiceID, ProductID: "prod", Quantity: d("2"), UnitPrice: d("25"), Discount: d("0")},
	)

	f.deps = billing.Deps{
		Invoices:  f.store,
		Companies: companyRepo{byID: map[string]*entity.Company{companyID: sampleCompany()}},
		Customers: customerRepo{byID: map[string]*entity.Customer{
			"customer-1": {ID: "customer-1", CompanyID: companyID, Name: "José Pérez", TaxID: "1712345678", Email: "jose@example.com"},
		}},
		Products: productRepo{byID: map[string]*entity.Product{
			"serv": {ID: "serv", CompanyID: companyID, SKU: "SERV-1", Name: "Asesoría", Taxable: false},
			"prod": {ID: "prod", CompanyID: companyID, SKU: "PROD-2", Name: "Cuaderno", Taxable: true},
		}},
		Points:     f.points,
		TxRunner:   txRunner{store: f.store},
		Serializer: serializer{},
		Signer:     f.signer,
		Validator:  validator{},
		Certs:      certs{},
		Gateway:    f.gateway,
		RIDE:       ride{},
		Notifier:   f.notifier,
		Queue:      f.queue,
		Now:        f.clock.Now,
	}
	for _, opt := range opts {
		opt(&f.deps)
	}
	f.orch = billing.NewOrchestrator(f.deps, billing.DefaultPipelineConfig())
	f.handler = billing.NewTaskHandler(f.orch)
	return f
}

// drain ejecuta tareas avanzando el reloj hasta vaciar la cola. Devuelve las tareas ejecutadas.
func (f *fixture) drain(ctx context.Context) ([]billing.Task, error) {
	var ran []billing.Task
	for i := 0; i < 100; i++ {
		pending := f.queue.Pending()
		if len(pending) == 0 {
			return ran, nil
		}
		if wait := pending[0].RunAt.Sub(f.clock.Now()); wait > 0 {
			f.clock.Advance(wait)
		}
		task, err := f.queue.Claim(ctx)
		if err != nil {
			return ran, err
		}
		if task == nil {
			continue
		}
		ran = append(ran, *task)
		if err := f.handler.Handle(ctx, *task); err != nil {
			return ran, err
		}
		if err := f.queue.Ack(ctx, task.ID); err != nil {
			return ran, err
		}
	}
	return ran, errors.New("la cola no se vació")
}

func kinds(tasks []billing.Task) []billing.TaskKind {
	out := make([]billing.TaskKind, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Kind)
	}
	return out
}

// Package bootstrap arma el grafo de dependencias compartido por cmd/api y cmd/worker.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
	infraemail "github.com/jhoicas/sri-facturacion/internal/infrastructure/email"
	inframetrics "github.com/jhoicas/sri-facturacion/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/sri-facturacion/internal/infrastructure/pdf"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/postgres"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/queue"
	infrasri "github.com/jhoicas/sri-facturacion/internal/infrastructure/sri"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/sri/signer"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/sri/xsd"
	"github.com/jhoicas/sri-facturacion/pkg/config"
	"github.com/jhoicas/sri-facturacion/pkg/logger"
)

// Container dependencias construidas a partir de la configuración.
type Container struct {
	Config       *config.Config
	Log          *logger.Logger
	Pool         *pgxpool.Pool
	Queue        billing.Queue
	Orchestrator *billing.Orchestrator
	Tasks        *billing.TaskHandler
	Status       *billing.StatusUseCase
	PDF          *billing.PDFUseCase
	Certificates *billing.CertificateUseCase
	Registry     *prometheus.Registry

	closers []func()
}

// New conecta PostgreSQL, la cola y los clientes SRI y construye los casos de uso.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	pool, err := postgres.NewPool(ctx, cfg.DB, postgres.DefaultPoolOptions(cfg.Worker.Concurrency))
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	c.Pool = pool
	c.closers = append(c.closers, pool.Close)

	switch cfg.Queue.Backend {
	case "redis":
		client, err := queue.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = client.Close() })
		c.Queue = queue.NewRedisQueue(client, cfg.Queue.Prefix, cfg.Queue.Visibility, nil)
	default:
		c.Queue = queue.NewMemoryQueue(cfg.Queue.Visibility, nil)
	}

	validator, err := xsd.NewValidator(cfg.SRI.XSDPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("cargar XSD %s: %w", cfg.SRI.XSDPath, err)
	}
	c.closers = append(c.closers, validator.Close)

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var metrics billing.Metrics = billing.NopMetrics{}
	if cfg.Metrics.Enabled {
		metrics = inframetrics.NewPipelineMetrics(c.Registry, cfg.SRI.Environment)
	}

	var notifier billing.Notifier = billing.NoopNotifier{}
	if cfg.SMTP.Enabled() {
		notifier = infraemail.NewSMTPNotifier(cfg.SMTP)
	} else {
		log.Warn().Msg("SMTP sin configurar: los comprobantes autorizados no se enviarán por correo")
	}

	invoiceRepo := postgres.NewInvoiceRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	pointRepo := postgres.NewPointOfEmissionRepository(pool)
	ride := infrapdf.NewMarotoRIDEGenerator()
	certs := signer.NewKeyStoreCache(nil, cfg.SRI.CertCacheSize)

	c.Orchestrator = billing.NewOrchestrator(billing.Deps{
		Invoices:   invoiceRepo,
		Companies:  companyRepo,
		Customers:  customerRepo,
		Products:   productRepo,
		Points:     pointRepo,
		TxRunner:   postgres.NewTxRunner(pool),
		Serializer: infrasri.NewXMLBuilderService(),
		Signer:     signer.NewDigitalSignatureService(),
		Validator:  validator,
		Certs:      certs,
		Gateway: infrasri.NewGateway(cfg.SRI.HTTPTimeout, infrasri.Endpoints{
			Reception:     cfg.SRI.ReceptionURL,
			Authorization: cfg.SRI.AuthorizationURL,
		}),
		RIDE:     ride,
		Notifier: notifier,
		Queue:    c.Queue,
		Metrics:  metrics,
		Logger:   log,
	}, PipelineConfig(cfg.Retry))

	c.Tasks = billing.NewTaskHandler(c.Orchestrator)
	c.Status = billing.NewStatusUseCase(invoiceRepo)
	c.PDF = billing.NewPDFUseCase(invoiceRepo, companyRepo, customerRepo, productRepo, pointRepo, ride)
	c.Certificates = billing.NewCertificateUseCase(companyRepo, signer.NewFileKeystoreStore(cfg.SRI.CertDir), signer.LoadFromP12, certs)
	return c, nil
}

// Workers pool de workers del pipeline según WORKER_*.
func (c *Container) Workers() *billing.WorkerPool {
	return billing.NewWorkerPool(c.Queue, c.Tasks, c.Log, billing.WorkerConfig{
		Concurrency:  c.Config.Worker.Concurrency,
		PollInterval: c.Config.Worker.PollInterval,
	})
}

// Close libera conexiones en orden inverso.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// PipelineConfig traduce los presupuestos de reintento de la configuración.
func PipelineConfig(r config.RetryConfig) billing.PipelineConfig {
	return billing.PipelineConfig{
		Submit:          billing.RetryBudget{MaxAttempts: r.Submit.MaxAttempts, Delay: r.Submit.Delay},
		Poll:            billing.RetryBudget{MaxAttempts: r.Poll.MaxAttempts, Delay: r.Poll.Delay},
		Notify:          billing.RetryBudget{MaxAttempts: r.Notify.MaxAttempts, Delay: r.Notify.Delay},
		FirstPollDelay:  r.FirstPollDelay,
		ProcessingDelay: r.ProcessingDelay,
	}
}

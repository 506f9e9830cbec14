package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/sri-facturacion/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Issuer      InvoiceIssuer
	Status      InvoiceStatusReader
	RIDE        RIDEDownloader
	Certificate CertificateUploader
	JWTSecret   string
	ServiceName string

	// Gatherer para /metrics; nil desactiva la ruta.
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	if deps.Gatherer != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), RequireRole(jwt.RoleOperator, jwt.RoleAdmin))

	// Invoices: emisión y seguimiento SRI
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Issuer, deps.Status, deps.RIDE)
	invoices.Post("/:id/issue", invoiceHandler.Issue)
	invoices.Get("/:id/sri", invoiceHandler.GetSRIStatus)
	invoices.Post("/:id/resend", invoiceHandler.Resend)
	invoices.Get("/:id/xml", invoiceHandler.GetXML)
	invoices.Get("/:id/ride", invoiceHandler.GetRIDE)

	// Certificado de firma de la empresa (solo admin)
	if deps.Certificate != nil {
		certHandler := NewCertificateHandler(deps.Certificate)
		protected.Put("/company/certificate", RequireRole(jwt.RoleAdmin), certHandler.Upload)
	}
}

package sri

import (
	"net/http"
	"time"

	"github.com/jhoicas/sri-facturacion/internal/application/billing"
)

var (
	_ billing.Gateway    = (*Gateway)(nil)
	_ billing.Serializer = (*XMLBuilderService)(nil)
)

// Gateway entrega los clientes SOAP del ambiente de cada empresa.
// Todos comparten el mismo *http.Client.
type Gateway struct {
	httpClient *http.Client
	override   Endpoints
}

// NewGateway construye el gateway. override permite apuntar a un simulador en pruebas.
func NewGateway(timeout time.Duration, override Endpoints) *Gateway {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gateway{httpClient: &http.Client{Timeout: timeout}, override: override}
}

// Reception cliente de recepción del ambiente.
func (g *Gateway) Reception(environment string) billing.ReceptionClient {
	return NewReceptionClient(g.httpClient, EndpointsFor(environment, g.override).Reception)
}

// Authorization cliente de autorización del ambiente.
func (g *Gateway) Authorization(environment string) billing.AuthorizationClient {
	return NewAuthorizationClient(g.httpClient, EndpointsFor(environment, g.override).Authorization)
}

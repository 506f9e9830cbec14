package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	pkgsri "github.com/jhoicas/sri-facturacion/pkg/sri"
)

// ── Endpoints ─────────────────────────────────────────────────────────────────

const (
	receptionURLTest     = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	receptionURLProd     = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	authorizationURLTest = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"
	authorizationURLProd = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"

	soapNS = "http://schemas.xmlsoap.org/soap/envelope/"
	wsNS   = "http://ec.gob.sri.ws.recepcion"
	authNS = "http://ec.gob.sri.ws.autorizacion"

	maxResponseBytes = 4 << 20
)

// Endpoints URLs de los web services para un ambiente.
type Endpoints struct {
	Reception     string
	Authorization string
}

// EndpointsFor devuelve los endpoints oficiales del ambiente (1 pruebas, 2 producción).
// Los valores no vacíos de override reemplazan a los oficiales.
func EndpointsFor(environment string, override Endpoints) Endpoints {
	ep := Endpoints{Reception: receptionURLTest, Authorization: authorizationURLTest}
	if environment == pkgsri.EnvironmentProduction {
		ep = Endpoints{Reception: receptionURLProd, Authorization: authorizationURLProd}
	}
	if override.Reception != "" {
		ep.Reception = override.Reception
	}
	if override.Authorization != "" {
		ep.Authorization = override.Authorization
	}
	return ep
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soapenv:Envelope"`
	XmlnsS  string     `xml:"xmlns:soapenv,attr"`
	XmlnsE  string     `xml:"xmlns:ec,attr"`
	Header  soapHeader `xml:"soapenv:Header"`
	Body    soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// validarComprobanteBody operación de recepción: el comprobante firmado en Base64.
type validarComprobanteBody struct {
	XMLName xml.Name `xml:"ec:validarComprobante"`
	XML     string   `xml:"xml"`
}

// autorizacionComprobanteBody operación de autorización por clave de acceso.
type autorizacionComprobanteBody struct {
	XMLName   xml.Name `xml:"ec:autorizacionComprobante"`
	AccessKey string   `xml:"claveAccesoComprobante"`
}

// ── Estructuras de respuesta ──────────────────────────────────────────────────

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

type soapMessage struct {
	Identificador        string `xml:"identificador"`
	Mensaje              string `xml:"mensaje"`
	InformacionAdicional string `xml:"informacionAdicional"`
	Tipo                 string `xml:"tipo"`
}

type receptionEnvelope struct {
	Body struct {
		Fault    *soapFault `xml:"Fault"`
		Response *struct {
			Result struct {
				Estado       string `xml:"estado"`
				Comprobantes struct {
					Comprobante []struct {
						ClaveAcceso string        `xml:"claveAcceso"`
						Mensajes    []soapMessage `xml:"mensajes>mensaje"`
					} `xml:"comprobante"`
				} `xml:"comprobantes"`
			} `xml:"RespuestaRecepcionComprobante"`
		} `xml:"validarComprobanteResponse"`
	} `xml:"Body"`
}

type authorizationEnvelope struct {
	Body struct {
		Fault    *soapFault `xml:"Fault"`
		Response *struct {
			Result struct {
				ClaveAcceso     string `xml:"claveAccesoConsultada"`
				Autorizaciones  []struct {
					Estado             string        `xml:"estado"`
					NumeroAutorizacion string        `xml:"numeroAutorizacion"`
					FechaAutorizacion  string        `xml:"fechaAutorizacion"`
					Ambiente           string        `xml:"ambiente"`
					Comprobante        string        `xml:"comprobante"`
					Mensajes           []soapMessage `xml:"mensajes>mensaje"`
				} `xml:"autorizaciones>autorizacion"`
			} `xml:"RespuestaAutorizacionComprobante"`
		} `xml:"autorizacionComprobanteResponse"`
	} `xml:"Body"`
}

// ── Transporte compartido ─────────────────────────────────────────────────────

type soapTransport struct {
	httpClient *http.Client
	url        string
	op         string
}

// call serializa el envelope, hace POST y devuelve el cuerpo. Cualquier fallo de red,
// timeout o status HTTP >= 500 se reporta como *sri.NetworkError (reintentable).
func (t *soapTransport) call(ctx context.Context, ns string, content interface{}) ([]byte, error) {
	payload, err := xml.Marshal(soapEnvelope{XmlnsS: soapNS, XmlnsE: ns, Body: soapBody{Content: content}})
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &sri.NetworkError{Op: t.op, Cause: fmt.Errorf("timeout o cancelación: %w", ctx.Err())}
		}
		return nil, &sri.NetworkError{Op: t.op, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &sri.NetworkError{Op: t.op, Cause: fmt.Errorf("leer respuesta: %w", err)}
	}
	// 500 con SOAP Fault se decodifica en parse; el resto de 5xx es transporte.
	if resp.StatusCode >= 500 && !bytes.Contains(raw, []byte("Fault")) {
		return nil, &sri.NetworkError{Op: t.op, Cause: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, &sri.NetworkError{Op: t.op, Cause: fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(raw, 200))}
	}
	return raw, nil
}

func toMessages(in []soapMessage) []sri.Message {
	out := make([]sri.Message, 0, len(in))
	for _, m := range in {
		out = append(out, sri.Message{
			ID:             strings.TrimSpace(m.Identificador),
			Text:           strings.TrimSpace(m.Mensaje),
			AdditionalInfo: strings.TrimSpace(m.InformacionAdicional),
			Type:           strings.TrimSpace(m.Tipo),
		})
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// ── Recepción ─────────────────────────────────────────────────────────────────

// ReceptionClient cliente del web service RecepcionComprobantesOffline.
type ReceptionClient struct {
	t soapTransport
}

// NewReceptionClient construye el cliente con un *http.Client explícito.
func NewReceptionClient(httpClient *http.Client, url string) *ReceptionClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ReceptionClient{t: soapTransport{httpClient: httpClient, url: url, op: "recepción"}}
}

// Submit envía el comprobante firmado (validarComprobante). Received == true solo si
// estado == RECIBIDA; DEVUELTA trae los mensajes del SRI. Errores de transporte → *sri.NetworkError.
func (c *ReceptionClient) Submit(ctx context.Context, signed []byte) (*sri.ReceptionResult, error) {
	raw, err := c.t.call(ctx, wsNS, &validarComprobanteBody{XML: base64.StdEncoding.EncodeToString(signed)})
	if err != nil {
		return nil, err
	}

	var env receptionEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, &sri.NetworkError{Op: c.t.op, Cause: fmt.Errorf("respuesta no parseable: %w", err)}
	}
	if f := env.Body.Fault; f != nil {
		return nil, &sri.NetworkError{Op: c.t.op, Cause: fmt.Errorf("SOAP Fault [%s]: %s", f.FaultCode, f.FaultString)}
	}
	if env.Body.Response == nil {
		return nil, &sri.NetworkError{Op: c.t.op, Cause: fmt.Errorf("respuesta SOAP vacía: %s", truncate(raw, 200))}
	}

	res := env.Body.Response.Result
	out := &sri.ReceptionResult{
		Status:   strings.TrimSpace(res.Estado),
		Received: strings.TrimSpace(res.Estado) == pkgsri.ReceptionReceived,
	}
	for _, comp := range res.Comprobantes.Comprobante {
		out.Messages = append(out.Messages, toMessages(comp.Mensajes)...)
	}
	return out, nil
}

// ── Autorización ──────────────────────────────────────────────────────────────

// AuthorizationClient cliente del web service AutorizacionComprobantesOffline.
type AuthorizationClient struct {
	t soapTransport
}

// NewAuthorizationClient construye el cliente con un *http.Client explícito.
func NewAuthorizationClient(httpClient *http.Client, url string) *AuthorizationClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &AuthorizationClient{t: soapTransport{httpClient: httpClient, url: url, op: "autorización"}}
}

// Authorize consulta autorizacionComprobante. Sin autorizaciones (o con un estado distinto
// de AUTORIZADO / NO AUTORIZADO) el comprobante sigue en procesamiento.
func (c *AuthorizationClient) Authorize(ctx context.Context, accessKey string) (*sri.AuthorizationResult, error) {
	raw, err := c.t.call(ctx, authNS, &autorizacionComprobanteBody{AccessKey: accessKey})
	if err != nil {
		return nil, err
	}

	var env authorizationEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, &sri.NetworkError{Op: c.t.op, Cause: fmt.Errorf("respuesta no parseable: %w", err)}
	}
	if f := env.Body.Fault; f != nil {
		return nil, &sri.NetworkError{Op: c.t.op, Cause: fmt.Errorf("SOAP Fault [%s]: %s", f.FaultCode, f.FaultString)}
	}
	if env.Body.Response == nil || len(env.Body.Response.Result.Autorizaciones) == 0 {
		return &sri.AuthorizationResult{Status: sri.AuthorizationProcessing}, nil
	}

	a := env.Body.Response.Result.Autorizaciones[0]
	switch strings.TrimSpace(a.Estado) {
	case pkgsri.AuthorizationGranted:
		// Una fecha ilegible no anula la autorización: AuthorizedAt queda en cero.
		at, err := parseAuthorizationDate(a.FechaAutorizacion)
		if err != nil {
			log.Warn().Err(err).
				Str("clave_acceso", accessKey).
				Str("fecha_autorizacion", a.FechaAutorizacion).
				Msg("sri: fechaAutorizacion no reconocida")
		}
		return &sri.AuthorizationResult{
			Status:              sri.AuthorizationAuthorized,
			AuthorizationNumber: strings.TrimSpace(a.NumeroAutorizacion),
			AuthorizedAt:        at,
			AuthorizedXML:       strings.TrimSpace(a.Comprobante),
			Messages:            toMessages(a.Mensajes),
		}, nil
	case pkgsri.AuthorizationDenied:
		return &sri.AuthorizationResult{
			Status:   sri.AuthorizationNotAuthorized,
			Messages: toMessages(a.Mensajes),
		}, nil
	default:
		return &sri.AuthorizationResult{Status: sri.AuthorizationProcessing, Messages: toMessages(a.Mensajes)}, nil
	}
}

// ecuadorTZ hora de Ecuador continental (UTC-5, sin horario de verano).
var ecuadorTZ = time.FixedZone("ECT", -5*60*60)

// parseAuthorizationDate acepta RFC3339 (con o sin fracción) y el formato local del SRI.
func parseAuthorizationDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000-07:00", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	t, err := time.ParseInLocation("02/01/2006 15:04:05", s, ecuadorTZ)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

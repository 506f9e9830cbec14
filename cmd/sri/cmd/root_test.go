package cmd_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sri-facturacion/cmd/sri/cmd"
	"github.com/jhoicas/sri-facturacion/pkg/jwt"
)

const scenarioA = "1503202501179000000000110010010000000011234567815"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := cmd.NewRootCmd(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClave_Genera(t *testing.T) {
	out, err := run(t, "clave", "--fecha", "15/03/2025", "--ruc", "1790000000001", "--secuencial", "1")
	require.NoError(t, err)
	assert.Equal(t, scenarioA, strings.TrimSpace(out))
}

func TestClave_Verifica(t *testing.T) {
	out, err := run(t, "clave", "--verificar", scenarioA)
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "001-001-000000001", got["numero"])
	assert.Equal(t, "1790000000001", got["ruc"])
	assert.Equal(t, "15/03/2025", got["fecha"])

	_, err = run(t, "clave", "--verificar", scenarioA[:48]+"0")
	assert.Error(t, err)
}

func TestClave_FechaInvalida(t *testing.T) {
	_, err := run(t, "clave", "--fecha", "2025-03-15", "--ruc", "1790000000001")
	assert.ErrorContains(t, err, "dd/mm/aaaa")
}

func TestConsult_Autorizado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		_, _ = w.Write([]byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
<RespuestaAutorizacionComprobante><claveAccesoConsultada>` + scenarioA + `</claveAccesoConsultada>
<autorizaciones><autorizacion><estado>AUTORIZADO</estado><numeroAutorizacion>` + scenarioA + `</numeroAutorizacion>
<fechaAutorizacion>2025-03-15T10:20:30-05:00</fechaAutorizacion><comprobante><![CDATA[<factura/>]]></comprobante>
<mensajes/></autorizacion></autorizaciones></RespuestaAutorizacionComprobante>
</ns2:autorizacionComprobanteResponse></soap:Body></soap:Envelope>`))
	}))
	defer srv.Close()

	out, err := run(t, "consult", "--url", srv.URL, scenarioA)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "AUTORIZADO", got["estado"])
	assert.Equal(t, scenarioA, got["numero"])
	assert.NotContains(t, got, "comprobante")
}

func TestConsult_ClaveInvalida(t *testing.T) {
	_, err := run(t, "consult", "123")
	assert.Error(t, err)
}

func TestToken_Operador(t *testing.T) {
	out, err := run(t, "token", "--secret", "s3cr3t", "--empresa", "c-1")
	require.NoError(t, err)

	claims, err := jwt.Parse("s3cr3t", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "c-1", claims.CompanyID)
	assert.Equal(t, jwt.RoleOperator, claims.Role)

	_, err = run(t, "token", "--secret", "s3cr3t", "--empresa", "c-1", "--rol", "root")
	assert.Error(t, err)
}

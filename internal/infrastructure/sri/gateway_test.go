package sri_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	infrasri "github.com/jhoicas/sri-facturacion/internal/infrastructure/sri"
)

func TestGateway_RoutesToOverrideEndpoints(t *testing.T) {
	var receptionHits, authorizationHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/recepcion", func(w http.ResponseWriter, _ *http.Request) {
		receptionHits.Add(1)
		_, _ = w.Write([]byte(recibidaResponse))
	})
	mux.HandleFunc("/autorizacion", func(w http.ResponseWriter, _ *http.Request) {
		authorizationHits.Add(1)
		_, _ = w.Write([]byte(autorizadoResponse))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	gw := infrasri.NewGateway(5*time.Second, infrasri.Endpoints{
		Reception:     srv.URL + "/recepcion",
		Authorization: srv.URL + "/autorizacion",
	})
	ctx := context.Background()

	rec, err := gw.Reception("1").Submit(ctx, []byte("<factura/>"))
	require.NoError(t, err)
	assert.True(t, rec.Received)

	auth, err := gw.Authorization("2").Authorize(ctx, "1503202501179000000000110010010000000011234567815")
	require.NoError(t, err)
	assert.Equal(t, sri.AuthorizationAuthorized, auth.Status)

	assert.Equal(t, int32(1), receptionHits.Load())
	assert.Equal(t, int32(1), authorizationHits.Load())
}

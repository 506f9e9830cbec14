package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	infrasri "github.com/jhoicas/sri-facturacion/internal/infrastructure/sri"
	pkgsri "github.com/jhoicas/sri-facturacion/pkg/sri"
)

func newConsultCmd() *cobra.Command {
	var (
		ambiente, url string
		timeout       time.Duration
		withXML       bool
	)

	cmd := &cobra.Command{
		Use:   "consult <clave>",
		Short: "Consulta el estado de autorización de una clave de acceso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := pkgsri.ValidateAccessKey(key); err != nil {
				return err
			}
			if !validEnvironment(ambiente) {
				return fmt.Errorf("--ambiente debe ser 1 o 2")
			}

			gw := infrasri.NewGateway(timeout, infrasri.Endpoints{Authorization: url})
			res, err := gw.Authorization(ambiente).Authorize(cmd.Context(), key)
			if err != nil {
				return err
			}

			out := map[string]interface{}{
				"clave_acceso": key,
				"estado":       string(res.Status),
				"numero":       res.AuthorizationNumber,
				"mensajes":     res.Message(),
			}
			if !res.AuthorizedAt.IsZero() {
				out["fecha_autorizacion"] = res.AuthorizedAt.Format(time.RFC3339)
			}
			if withXML {
				out["comprobante"] = res.AuthorizedXML
			}
			return printJSON(cmd, out)
		},
	}

	cmd.Flags().StringVar(&ambiente, "ambiente", pkgsri.EnvironmentTest, "1 pruebas, 2 producción")
	cmd.Flags().StringVar(&url, "url", "", "endpoint de autorización alternativo")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "timeout de la llamada SOAP")
	cmd.Flags().BoolVar(&withXML, "xml", false, "incluir el comprobante autorizado")
	return cmd
}

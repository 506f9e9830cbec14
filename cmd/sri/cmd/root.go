// Package cmd comandos de operador para comprobantes electrónicos SRI.
package cmd

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	pkgsri "github.com/jhoicas/sri-facturacion/pkg/sri"
)

var version = "1.0.0"

// NewRootCmd construye el árbol de comandos. La salida va a out.
func NewRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "sri",
		Short: "Herramientas de operador para facturación electrónica SRI (Ecuador)",
		Long: `sri agrupa utilidades para diagnosticar comprobantes sin pasar por el API.

Ejemplos:
  # Calcular una clave de acceso
  sri clave --fecha 15/03/2025 --ruc 1790000000001 --secuencial 1

  # Verificar y descomponer una clave
  sri clave --verificar 1503202501179000000000110010010000000011234567815

  # Firmar un XML con el keystore de la empresa
  sri sign --p12 firma.p12 --password secreto factura.xml -o factura_firmada.xml

  # Validar contra el XSD oficial
  sri validate --xsd xsd/factura_V1.1.0.xsd factura_firmada.xml

  # Consultar autorización
  sri consult --ambiente 1 1503202501179000000000110010010000000011234567815`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	root.AddCommand(
		newClaveCmd(),
		newSignCmd(),
		newValidateCmd(),
		newConsultCmd(),
		newTokenCmd(),
	)
	return root
}

// Execute corre el comando raíz con la salida estándar.
func Execute() error {
	return NewRootCmd(nil).Execute()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validEnvironment(env string) bool { return pkgsri.ValidEnvironments[env] }

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/sri/xsd"
)

func newValidateCmd() *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "validate <archivo.xml>...",
		Short: "Valida comprobantes contra el XSD oficial del SRI",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := xsd.NewValidator(schemaPath)
			if err != nil {
				return err
			}
			defer v.Close()

			invalid := 0
			for _, file := range args {
				doc, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				err = v.Validate(doc)
				var ve *sri.ValidationError
				switch {
				case err == nil:
					fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: VÁLIDO\n", file)
				case errors.As(err, &ve):
					invalid++
					fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %s\n", file, ve.Message)
				default:
					return err
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d de %d archivos no cumplen el esquema", invalid, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "xsd", "./xsd/factura_V1.1.0.xsd", "ruta de factura_V1.1.0.xsd")
	return cmd
}

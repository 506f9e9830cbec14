package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	pkgsri "github.com/jhoicas/sri-facturacion/pkg/sri"
)

func newClaveCmd() *cobra.Command {
	var (
		fecha, ruc, ambiente, estab, pto, codDoc, codigo, verificar string
		secuencial                                                  uint64
	)

	cmd := &cobra.Command{
		Use:   "clave",
		Short: "Calcula o verifica una clave de acceso de 49 dígitos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verificar != "" {
				parts, err := pkgsri.ParseAccessKey(verificar)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]string{
					"clave_acceso":    verificar,
					"fecha":           parts.Date.Format("02/01/2006"),
					"cod_doc":         parts.DocType,
					"ruc":             parts.RUC,
					"ambiente":        parts.Environment,
					"numero":          parts.DocumentNumber(),
					"codigo_numerico": parts.NumericCode,
					"tipo_emision":    parts.EmissionType,
				})
			}

			date, err := time.Parse("02/01/2006", fecha)
			if err != nil {
				return fmt.Errorf("--fecha debe tener formato dd/mm/aaaa: %w", err)
			}
			key, err := pkgsri.GenerateAccessKey(pkgsri.AccessKeyInput{
				Date:          date,
				DocType:       codDoc,
				RUC:           ruc,
				Environment:   ambiente,
				Establishment: estab,
				EmissionPoint: pto,
				Sequence:      pkgsri.FormatSequence(secuencial),
				NumericCode:   codigo,
				EmissionType:  pkgsri.EmissionTypeNormal,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	cmd.Flags().StringVar(&verificar, "verificar", "", "clave a verificar y descomponer")
	cmd.Flags().StringVar(&fecha, "fecha", "", "fecha de emisión dd/mm/aaaa")
	cmd.Flags().StringVar(&ruc, "ruc", "", "RUC del emisor (13 dígitos)")
	cmd.Flags().StringVar(&ambiente, "ambiente", pkgsri.EnvironmentTest, "1 pruebas, 2 producción")
	cmd.Flags().StringVar(&estab, "estab", "001", "establecimiento")
	cmd.Flags().StringVar(&pto, "pto", "001", "punto de emisión")
	cmd.Flags().StringVar(&codDoc, "cod-doc", pkgsri.DocTypeFactura, "tipo de comprobante")
	cmd.Flags().StringVar(&codigo, "codigo", pkgsri.DefaultNumericCode, "código numérico (8 dígitos)")
	cmd.Flags().Uint64Var(&secuencial, "secuencial", 0, "secuencial")
	return cmd
}

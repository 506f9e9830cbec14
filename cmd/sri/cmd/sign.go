package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/sri-facturacion/internal/infrastructure/sri/signer"
)

func newSignCmd() *cobra.Command {
	var p12, password, output string

	cmd := &cobra.Command{
		Use:   "sign <factura.xml>",
		Short: "Firma un comprobante con XAdES-BES usando un keystore PKCS#12",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			xmlBytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cert, err := signer.LoadFromP12(p12, password)
			if err != nil {
				return err
			}
			signed, err := signer.NewDigitalSignatureService().Sign(xmlBytes, cert)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(signed)
				return err
			}
			if err := os.WriteFile(output, signed, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "firmado: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&p12, "p12", "", "keystore PKCS#12 de la empresa")
	cmd.Flags().StringVar(&password, "password", os.Getenv("SRI_P12_PASSWORD"), "contraseña del keystore (env: SRI_P12_PASSWORD)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "archivo de salida (por defecto stdout)")
	_ = cmd.MarkFlagRequired("p12")
	return cmd
}

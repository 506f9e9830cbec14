package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/sri-facturacion/pkg/jwt"
)

func newTokenCmd() *cobra.Command {
	var secret, userID, companyID, role, issuer string
	var minutes int

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emite un JWT de operador para el API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != jwt.RoleOperator && role != jwt.RoleAdmin {
				return fmt.Errorf("--rol debe ser %s o %s", jwt.RoleOperator, jwt.RoleAdmin)
			}
			tok, err := jwt.Generate(secret, userID, companyID, role, issuer, minutes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "secreto HS256 (env: JWT_SECRET)")
	cmd.Flags().StringVar(&userID, "usuario", "cli", "user_id del operador")
	cmd.Flags().StringVar(&companyID, "empresa", "", "company_id")
	cmd.Flags().StringVar(&role, "rol", jwt.RoleOperator, "operator | admin")
	cmd.Flags().StringVar(&issuer, "issuer", "sri-facturacion", "issuer del token")
	cmd.Flags().IntVar(&minutes, "minutos", 60, "vigencia en minutos")
	return cmd
}

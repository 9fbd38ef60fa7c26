package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/mt940import/internal/store"
)

func newTypesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Transaction type registry",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered transaction type codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(db *store.DB) error {
				codes, err := db.TypeCodes(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(codes) == 0 {
					fmt.Fprintln(out, "No transaction types registered.")
					return nil
				}
				t := table.New().
					Border(lipgloss.NormalBorder()).
					Headers("CODE", "LABEL", "OPERATIONAL")
				for _, tc := range codes {
					op := "no"
					if tc.Operational {
						op = "yes"
					}
					t.Row(tc.Code, tc.Label, op)
				}
				fmt.Fprintln(out, t.Render())
				return nil
			})
		},
	})
	return cmd
}

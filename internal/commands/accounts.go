package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/mt940import/internal/accounts"
	"github.com/cleared-dev/mt940import/internal/model"
	"github.com/cleared-dev/mt940import/internal/store"
)

func newAccountsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Bank account operations",
	}
	cmd.AddCommand(newAccountsListCommand(a))
	cmd.AddCommand(newAccountsLoadCommand(a))
	cmd.AddCommand(newAccountsAddCommand(a))
	return cmd
}

// withDB opens the configured database for the duration of fn.
func (a *app) withDB(ctx context.Context, fn func(db *store.DB) error) error {
	db, err := store.Open(ctx, a.cfg.Database.Path, a.logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func newAccountsListCommand(a *app) *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bank accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(db *store.DB) error {
				accts, err := db.Accounts(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asCSV {
					return accounts.WriteAccounts(out, accts)
				}
				if len(accts) == 0 {
					fmt.Fprintln(out, "No bank accounts.")
					return nil
				}
				t := table.New().
					Border(lipgloss.NormalBorder()).
					Headers("ID", "NAME", "IBAN", "BANK", "CURRENCY")
				for _, acct := range accts {
					t.Row(strconv.FormatInt(acct.ID, 10), acct.Name, acct.IBAN, acct.Bank, acct.Currency)
				}
				fmt.Fprintln(out, t.Render())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "write accounts as CSV")
	return cmd
}

func newAccountsLoadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.csv>",
		Short: "Create bank accounts from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(db *store.DB) error {
				created, err := accounts.LoadFile(cmd.Context(), db, args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d bank account(s)\n", len(created))
				return err
			})
		},
	}
}

func newAccountsAddCommand(a *app) *cobra.Command {
	var acct model.BankAccount

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a bank account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(db *store.DB) error {
				created, err := db.CreateAccount(cmd.Context(), acct)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created account %d: %s\n", created.ID, created.Label())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&acct.Name, "name", "", "account name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&acct.IBAN, "iban", "", "IBAN")
	cmd.Flags().StringVar(&acct.Bank, "bank", "", "bank name")
	cmd.Flags().StringVar(&acct.Currency, "currency", "", "ISO currency code")
	cmd.Flags().StringVar(&acct.Notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&acct.Color, "color", "", "display color")

	return cmd
}

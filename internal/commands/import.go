package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/mt940import/internal/accounts"
	"github.com/cleared-dev/mt940import/internal/batch"
	"github.com/cleared-dev/mt940import/internal/importer"
	"github.com/cleared-dev/mt940import/internal/importlog"
	"github.com/cleared-dev/mt940import/internal/model"
	"github.com/cleared-dev/mt940import/internal/store"
	"github.com/cleared-dev/mt940import/internal/ui"
)

type importOptions struct {
	yes     bool
	move    bool
	account string
	format  string
}

func newImportCommand(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import statement files, or every statement in the import directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.runImport(ctx, cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not prompt: import exact IBAN matches and skip everything else")
	cmd.Flags().BoolVar(&opts.move, "move", false, "move files of successful batches to the processed directory")
	cmd.Flags().StringVar(&opts.account, "account", "", "IBAN or name of the active account (overrides import.active_account)")
	cmd.Flags().StringVar(&opts.format, "format", "mt940", "statement format")

	return cmd
}

func (a *app) runImport(ctx context.Context, cmd *cobra.Command, args []string, opts importOptions) error {
	parser := importer.DefaultRegistry().Get(opts.format)
	if parser == nil {
		return fmt.Errorf("unknown statement format %q", opts.format)
	}

	files := args
	if len(files) == 0 {
		found, err := importer.Scan(a.cfg.Import.Dir)
		if err != nil {
			return err
		}
		for _, f := range found {
			files = append(files, f.Path)
		}
	}
	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "No statement files to import.")
		return nil
	}

	open := func(ctx context.Context) (*store.DB, error) {
		return store.Open(ctx, a.cfg.Database.Path, a.logger)
	}
	db, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() { db.Close() }()

	activeRef := a.cfg.Import.ActiveAccount
	if opts.account != "" {
		activeRef = opts.account
	}
	active, err := findAccount(ctx, db, activeRef)
	if err != nil {
		return err
	}

	term := ui.NewTerminal(cmd.InOrStdin(), out)
	var decider accounts.Decider = term
	if opts.yes {
		decider = ui.NonInteractive{}
	}

	assignments, err := accounts.NewPolicy(db, decider, a.logger).ResolveAll(ctx, files, active)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		fmt.Fprintln(out, "Nothing to import: no file was routed to an account.")
		return nil
	}

	session := &batch.Session{Active: active}
	session.Schedule(assignments)

	coord := &batch.Coordinator{
		Worker:   batch.NewWorker(open, parser, a.cfg.Import.PlaceholderLabel, a.logger),
		View:     term,
		Recorder: importlog.Recorder{Root: a.projectRoot()},
		Reconnect: func(ctx context.Context) error {
			fresh, err := open(ctx)
			if err != nil {
				return err
			}
			db.Close()
			db = fresh
			return nil
		},
		PollInterval: a.cfg.Import.PollInterval,
		Logger:       a.logger,
	}
	results, runErr := coord.Run(ctx, session)

	var inserted, ignored int
	for _, r := range results {
		inserted += r.Inserted
		ignored += r.Ignored
		if opts.move && r.Succeeded {
			a.moveProcessed(r.Batch.Files)
		}
	}
	fmt.Fprintf(out, "Imported %d transaction(s), ignored %d duplicate(s)\n", inserted, ignored)

	if errors.Is(runErr, batch.ErrAborted) {
		return fmt.Errorf("import stopped: %w", runErr)
	}
	return runErr
}

// moveProcessed moves files that live in the import directory into its
// processed subdirectory. Files given from elsewhere stay where they are.
func (a *app) moveProcessed(files []string) {
	importDir, err := filepath.Abs(a.cfg.Import.Dir)
	if err != nil {
		a.logger.Warn("could not resolve import directory", "error", err)
		return
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil || filepath.Dir(abs) != importDir {
			continue
		}
		if err := importer.MarkProcessed(importDir, filepath.Base(abs)); err != nil {
			a.logger.Warn("could not move statement", "file", filepath.Base(abs), "error", err)
		}
	}
}

// findAccount looks an account up by IBAN, then by name. An empty ref
// means no active account.
func findAccount(ctx context.Context, db *store.DB, ref string) (*model.BankAccount, error) {
	if ref == "" {
		return nil, nil
	}
	acct, err := db.AccountByIBAN(ctx, model.NormalizeIBAN(ref))
	if err == nil {
		return &acct, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	all, err := db.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, acct := range all {
		if strings.EqualFold(acct.Name, ref) {
			return &acct, nil
		}
	}
	return nil, fmt.Errorf("active account %q: %w", ref, store.ErrNotFound)
}

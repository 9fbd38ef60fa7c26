package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/mt940import/internal/buildinfo"
	"github.com/cleared-dev/mt940import/internal/config"
)

// app carries the state shared by every subcommand once flags are parsed.
type app struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "mt940import",
		Short:   "Import MT940 bank statements into a local ledger database",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ./"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand(a))
	rootCmd.AddCommand(newAccountsCommand(a))
	rootCmd.AddCommand(newTypesCommand(a))

	return rootCmd
}

// load reads configuration and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.cfgFile != "" {
		base := filepath.Dir(a.cfgFile)
		cfg.Database.Path = resolvePath(base, cfg.Database.Path)
		cfg.Import.Dir = resolvePath(base, cfg.Import.Dir)
	}
	a.cfg = cfg

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if a.verbose {
		level = log.DebugLevel
	}
	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Level:  level,
		Prefix: "mt940import",
	})
	return nil
}

// resolvePath makes p relative to base unless it is already absolute.
func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// projectRoot is the directory that holds logs/: the config file's
// directory, or the working directory.
func (a *app) projectRoot() string {
	if a.cfgFile != "" {
		return filepath.Dir(a.cfgFile)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

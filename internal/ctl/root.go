// Package ctl implements finanzctl, the command line front end for the
// formatting helpers, expense entry and the export queue.
package ctl

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"finanzapp/internal/cli"
	"finanzapp/internal/config"
	"finanzapp/internal/format"
	"finanzapp/internal/log"
	"finanzapp/internal/services"
	"finanzapp/internal/storage"
)

// Store is the storage finanzctl works on.
type Store interface {
	services.Repository
	ExportStats(ctx context.Context) (map[string]int, error)
	RetryFailedExports(ctx context.Context) (int64, error)
	Close() error
}

// Options carries the dependencies that tests replace.
type Options struct {
	Prompter Prompter
	Now      func() time.Time
	// OpenStore opens the database at path. Defaults to SQLite.
	OpenStore func(path string) (Store, error)
}

// app is the state shared by subcommands once the root pre-run has
// resolved configuration.
type app struct {
	opts      Options
	cfg       *config.Config
	logger    *log.Logger
	formatter *format.Formatter

	store Store

	// flags
	locale   string
	currency string
	dbPath   string
	logLevel string
}

// NewRootCommand builds the finanzctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Prompter == nil {
		opts.Prompter = NewSurveyPrompter()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OpenStore == nil {
		opts.OpenStore = func(path string) (Store, error) {
			repo, err := storage.NewSQLiteRepository(path)
			if err != nil {
				return nil, err
			}
			return repo, nil
		}
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:           "finanzctl",
		Short:         "Expense tracker tools: formatting, expense entry and exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.locale, "locale", "", "locale profile, e.g. es-MX (default $LOCALE)")
	root.PersistentFlags().StringVar(&a.currency, "currency", "", "ISO currency code override (default $CURRENCY)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		formatCmd(a),
		parseCmd(a),
		validateCmd(),
		idCmd(),
		taxCmd(a),
		expenseCmd(a),
		exportCmd(a),
	)
	return root
}

// Execute runs finanzctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(Options{}).ExecuteContext(ctx)
}

func (a *app) setup(stderr io.Writer) error {
	cli.LoadEnvFile()
	cfg := config.Load()
	if a.locale != "" {
		cfg.Locale = a.locale
	}
	if a.currency != "" {
		cfg.Currency = a.currency
	}
	if a.dbPath != "" {
		cfg.SQLiteDBPath = a.dbPath
	}
	a.cfg = cfg
	a.logger = log.New(log.Config{
		Level:     log.ParseLevel(a.logLevel),
		Component: log.ComponentCLI,
		Output:    stderr,
	})

	profile, err := cfg.Profile()
	if err != nil {
		return fmt.Errorf("resolve locale %q: %w", cfg.Locale, err)
	}
	a.formatter = format.New(profile)
	return nil
}

// openStore opens the database on first use.
func (a *app) openStore() (Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := a.opts.OpenStore(a.cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.SQLiteDBPath, err)
	}
	a.store = s
	return s, nil
}

func (a *app) service() (*services.ExpenseService, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	// No publisher: rows written here stay pending until the export
	// sweeper of a running worker picks them up.
	return services.NewExpenseService(s, nil, nil, a.logger), nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// now is the current time in the profile's location.
func (a *app) now() time.Time {
	return a.opts.Now().In(a.formatter.Profile().Location())
}

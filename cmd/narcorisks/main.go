// cmd/narcorisks/main.go
//
// Entry point for the narcorisks CLI. Without a subcommand the terminal
// checklist is started; the subcommands compile a summary non-interactively,
// check a risks document, list procedures or serve the HTTP API.

package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/narcorisks/internal/config"
	"github.com/kingrea/narcorisks/internal/export"
	"github.com/kingrea/narcorisks/internal/logbook"
	"github.com/kingrea/narcorisks/internal/logging"
	"github.com/kingrea/narcorisks/internal/schema"
	"github.com/kingrea/narcorisks/internal/session"
	"github.com/kingrea/narcorisks/internal/tui"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	schema     string
	lang       string
	debug      bool
}

// env is what a command needs once the config has been loaded.
type env struct {
	cfg     *config.Config
	logger  *logging.Logger
	journal *logbook.Logbook
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "narcorisks",
		Short: "Anesthesia risk disclosure checklist",
		Long: `narcorisks turns a risks document into a checklist of anesthesia
risks, text blocks, presets and procedures, and compiles the selection into a
disclosure summary.

Run without arguments to start the interactive checklist.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ./"+config.FileName+")")
	root.PersistentFlags().StringVar(&flags.schema, "schema", "", "risks document URL or path")
	root.PersistentFlags().StringVar(&flags.lang, "lang", "", "output language")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "tui",
			Short: "Start the interactive checklist",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTUI(cmd, flags)
			},
		},
		newCompileCmd(flags),
		newValidateCmd(flags),
		newProceduresCmd(flags),
		newServeCmd(flags),
		newInitCmd(),
	)
	return root
}

// setup loads the config, applies the global flag overrides and opens the
// log file and journal. console mirrors the log to stderr.
func setup(flags *globalFlags, console bool) (*env, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.schema != "" {
		cfg.Schema.Source = flags.schema
	}
	if flags.lang != "" {
		cfg.Language.Default = config.NormalizeLanguage(flags.lang)
	}
	if flags.debug {
		cfg.Logging.Debug = true
	}
	logger, err := logging.New(logging.Options{
		Dir:     cfg.Logging.Dir,
		Debug:   cfg.Logging.Debug,
		Console: console,
	})
	if err != nil {
		return nil, err
	}
	journal, err := logbook.Open(cfg.Logging.Dir)
	if err != nil {
		logger.Close()
		return nil, err
	}
	logger.Debug("config loaded", "path", cfg.Path, "schema", cfg.Schema.Source, "lang", cfg.Language.Default)
	return &env{cfg: cfg, logger: logger, journal: journal}, nil
}

func (e *env) close() {
	_ = e.logger.Close()
}

func (e *env) loadSchema(ctx context.Context) (*schema.Schema, error) {
	s, err := schema.Open(ctx, e.cfg.Schema.Source, schema.WithTimeout(e.cfg.Schema.Timeout))
	if err != nil {
		e.logger.Error("schema load failed", "source", e.cfg.Schema.Source, "err", err)
		e.journal.Error("Schema load failed: %v", err)
		return nil, err
	}
	for _, w := range s.Warnings() {
		e.logger.Warn("schema", "warning", w)
	}
	e.logger.Info("schema loaded", "source", e.cfg.Schema.Source, "groups", len(s.Groups()), "procedures", len(s.Procedures()))
	return s, nil
}

// sessionOptions configures language and logging. The journal is added by
// the caller; the TUI attaches it itself.
func (e *env) sessionOptions() []session.Option {
	return []session.Option{
		session.WithLanguage(e.cfg.Language.Default),
		session.WithFallbackLanguage(e.cfg.Language.Fallback),
		session.WithLogger(e.logger),
	}
}

func (e *env) openSession(s *schema.Schema) *session.Session {
	return session.New(s, append(e.sessionOptions(), session.WithJournal(e.journal))...)
}

func runTUI(cmd *cobra.Command, flags *globalFlags) error {
	e, err := setup(flags, false)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app := tui.NewApp(
		tui.WithContext(ctx),
		tui.WithSchemaLoader(e.loadSchema),
		tui.WithSessionOptions(e.sessionOptions()...),
		tui.WithExporter(export.New(e.cfg.Export.Dir)),
		tui.WithLogbook(e.journal),
	)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default " + config.FileName,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}

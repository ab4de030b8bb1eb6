package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/narcorisks/internal/export"
	"github.com/kingrea/narcorisks/internal/server"
)

type compileFlags struct {
	risks      []string
	activate   []string
	presets    []string
	procedures []string
	textBlocks []string
	freeText   string
	format     string
	out        string
}

func newCompileCmd(flags *globalFlags) *cobra.Command {
	cf := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a summary from the given selections",
		Long: `Applies the selections in a fixed order (presets, procedures, risks,
resolved paths, text blocks) on top of the schema defaults and prints the
summary, or writes it to --out.

Example:
  narcorisks compile --procedure ortho.knee --preset airway_device=tube --format md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, flags, cf)
		},
	}
	cmd.Flags().StringArrayVar(&cf.risks, "risk", nil, "activate a risk path (repeatable)")
	cmd.Flags().StringArrayVar(&cf.activate, "activate", nil, "resolve and activate a path (repeatable)")
	cmd.Flags().StringArrayVar(&cf.presets, "preset", nil, "preset choice as preset=option (repeatable)")
	cmd.Flags().StringArrayVar(&cf.procedures, "procedure", nil, "department.procedure to apply (repeatable)")
	cmd.Flags().StringArrayVar(&cf.textBlocks, "textblock", nil, "group.item text block to include (repeatable)")
	cmd.Flags().StringVar(&cf.freeText, "free-text", "", "free text appended after the risks")
	cmd.Flags().StringVar(&cf.format, "format", "text", "output format: text, markdown or json")
	cmd.Flags().StringVar(&cf.out, "out", "", "write to this file instead of stdout")
	return cmd
}

func runCompile(cmd *cobra.Command, flags *globalFlags, cf *compileFlags) error {
	format, err := export.ParseFormat(cf.format)
	if err != nil {
		return err
	}
	e, err := setup(flags, true)
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.loadSchema(cmd.Context())
	if err != nil {
		return err
	}
	sess := e.openSession(s)
	errOut := cmd.ErrOrStderr()
	reportWarnings := func() {
		for _, w := range sess.Warnings() {
			fmt.Fprintf(errOut, "warning: %v\n", w)
		}
	}

	for _, raw := range cf.presets {
		preset, option, ok := strings.Cut(raw, "=")
		if !ok {
			return fmt.Errorf("compile: --preset %q: want preset=option", raw)
		}
		if err := sess.HandlePresetSelection(strings.TrimSpace(preset), strings.TrimSpace(option)); err != nil {
			return fmt.Errorf("compile: %w", err)
		}
		reportWarnings()
	}
	for _, ref := range cf.procedures {
		if err := sess.SelectProcedure(ref); err != nil {
			return fmt.Errorf("compile: %w", err)
		}
		reportWarnings()
	}
	for _, path := range cf.risks {
		sess.Toggle(strings.TrimSpace(path), true)
		reportWarnings()
	}
	for _, raw := range cf.activate {
		sess.Activate(raw)
		reportWarnings()
	}
	for _, key := range cf.textBlocks {
		if !sess.SetTextBlock(strings.TrimSpace(key), true) {
			reportWarnings()
		}
	}
	if cf.freeText != "" {
		sess.SetFreeText(cf.freeText)
	}

	doc := sess.Compile()
	if cf.out != "" {
		if err := export.New(e.cfg.Export.Dir).WriteFile(cf.out, doc, format); err != nil {
			return err
		}
		e.journal.Record(sess.ID(), "save", cf.out)
		fmt.Fprintf(errOut, "wrote %s\n", cf.out)
		return nil
	}
	data, err := export.Render(doc, format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newValidateCmd(flags *globalFlags) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the risks document and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags, false)
			if err != nil {
				return err
			}
			defer e.close()
			s, err := e.loadSchema(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source:      %s\n", e.cfg.Schema.Source)
			fmt.Fprintf(out, "groups:      %d\n", len(s.Groups()))
			fmt.Fprintf(out, "risks:       %d\n", len(s.LeafPaths()))
			fmt.Fprintf(out, "text blocks: %d\n", len(s.TextBlocks()))
			fmt.Fprintf(out, "procedures:  %d\n", len(s.Procedures()))
			fmt.Fprintf(out, "presets:     %d\n", len(s.Presets()))
			fmt.Fprintf(out, "defaults:    %d\n", len(s.Defaults()))
			for _, w := range s.Warnings() {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if strict && len(s.Warnings()) > 0 {
				return fmt.Errorf("validate: %d warnings", len(s.Warnings()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the document has warnings")
	return cmd
}

func newProceduresCmd(flags *globalFlags) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "procedures",
		Short: "List procedures, optionally filtered by a fuzzy search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags, false)
			if err != nil {
				return err
			}
			defer e.close()
			s, err := e.loadSchema(cmd.Context())
			if err != nil {
				return err
			}
			lang := e.cfg.Language.Default
			var fallbacks []string
			if e.cfg.Language.Fallback != lang {
				fallbacks = e.cfg.Fallbacks()
			}
			out := cmd.OutOrStdout()
			for _, m := range s.SearchProcedures(query, lang, fallbacks...) {
				fmt.Fprintf(out, "%-28s %s\n", m.Procedure.Ref(), m.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "search", "", "fuzzy filter on the procedure title")
	return cmd
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one checklist session over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags, true)
			if err != nil {
				return err
			}
			defer e.close()
			settings := server.SettingsFromConfig(e.cfg)
			if host != "" {
				settings.Host = host
			}
			if cmd.Flags().Changed("port") {
				settings.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := e.loadSchema(ctx)
			if err != nil {
				return err
			}
			sess := e.openSession(s)
			srv := server.NewServer(settings, sess, server.WithLogger(e.logger))
			if err := srv.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving session %s on %s\n", sess.ID(), srv.BaseURL())
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config, 0 picks a free port)")
	return cmd
}

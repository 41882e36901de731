package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/vibecad/internal/config"
	"github.com/chazu/vibecad/internal/logging"
	"github.com/chazu/vibecad/pkg/backend"
	"github.com/chazu/vibecad/pkg/engine"
	"github.com/chazu/vibecad/pkg/generator"
	"github.com/chazu/vibecad/pkg/graph"
)

// errReported is returned after a failure has already been rendered, so main
// only sets the exit code.
var errReported = errors.New("failed")

// cli holds state shared by the subcommands.
type cli struct {
	configPath string
	debug      bool

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "vibecad",
		Short: "Compile part descriptions into D-Files and build them",
		Long: `vibecad turns a natural-language part description into a Design Record
(D-File), validates it, and executes its features against a CAD backend.

The mock backend only logs construction calls. The real backend builds
solids on a geometry kernel and writes the part as STL.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultPath, "config file")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		c.serveCmd(),
		c.compileCmd(),
		c.executeCmd(),
		c.validateCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.debug {
		cfg.Logging.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = log
	return nil
}

// app builds the App, with a generator only when needed.
func (c *cli) app(ctx context.Context, withGenerator bool) (*App, error) {
	var gen generator.Generator
	if withGenerator {
		g, err := generator.New(ctx, c.cfg.Generator, c.log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
		gen = g
	}
	return NewApp(c.cfg, c.log, gen), nil
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compile and execute API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := c.app(ctx, true)
			if err != nil {
				return err
			}
			return app.Server().Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (c *cli) compileCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "compile [prompt]",
		Short: "Compile a part description into a D-File",
		Example: `  vibecad compile "a cylinder 20mm in diameter and 50mm tall"
  vibecad compile -o cylinder.json "a 40 by 20 mm plate, 5 mm thick"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.app(cmd.Context(), true)
			if err != nil {
				return err
			}
			rec, errRec := app.Compile(cmd.Context(), strings.Join(args, " "))
			if errRec != nil {
				renderErrorRecord(cmd.ErrOrStderr(), errRec)
				return errReported
			}
			return writeRecord(cmd.OutOrStdout(), out, rec)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the D-File to this path (.json, .yaml)")
	return cmd
}

func (c *cli) executeCmd() *cobra.Command {
	var mode string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "execute [file]",
		Short: "Execute a D-File against a backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := backend.Mode("")
			if mode != "" {
				parsed, err := backend.ParseMode(mode)
				if err != nil {
					return err
				}
				m = parsed
			}
			app, err := c.app(cmd.Context(), false)
			if err != nil {
				return err
			}
			rep, err := app.Execute(cmd.Context(), args[0], m)
			if err != nil {
				return err
			}
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
			} else {
				renderReport(cmd.OutOrStdout(), rep)
			}
			if rep.Status == engine.StatusError {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "backend mode: mock or real (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run report as JSON")
	return cmd
}

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a D-File without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.app(cmd.Context(), false)
			if err != nil {
				return err
			}
			rec, err := app.Validate(args[0])
			if err != nil {
				if renderValidationError(cmd.ErrOrStderr(), err) {
					return errReported
				}
				return err
			}
			renderRecordSummary(cmd.OutOrStdout(), rec)
			v := graph.NewValidator(rec)
			findings := v.Validate()
			renderFindings(cmd.OutOrStdout(), findings)
			if graph.HasCode(findings, graph.CodeForwardReference) {
				renderSuggestedOrder(cmd.OutOrStdout(), v.SuggestedOrder())
			}
			if graph.HasErrors(findings) {
				return errReported
			}
			return nil
		},
	}
}

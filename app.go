package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/chazu/vibecad/internal/config"
	"github.com/chazu/vibecad/internal/server"
	"github.com/chazu/vibecad/pkg/backend"
	"github.com/chazu/vibecad/pkg/compiler"
	"github.com/chazu/vibecad/pkg/dfile"
	"github.com/chazu/vibecad/pkg/engine"
	"github.com/chazu/vibecad/pkg/generator"
)

// App wires configuration, logging and the compile pipeline together. The
// CLI commands and the HTTP server both drive it.
type App struct {
	cfg      *config.Config
	log      *zap.Logger
	compiler *compiler.Compiler
}

// NewApp creates an App. gen may be nil for commands that never compile.
func NewApp(cfg *config.Config, log *zap.Logger, gen generator.Generator) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		cfg: cfg,
		log: log,
		compiler: compiler.New(compiler.Options{
			Generator:  gen,
			Live:       cfg.Execution.Live,
			RunTimeout: cfg.GetRunTimeout(),
			Logger:     log,
		}),
	}
}

// Compile turns a prompt into a validated D-File.
func (a *App) Compile(ctx context.Context, prompt string) (*dfile.Record, compiler.ErrorRecord) {
	return a.compiler.Compile(ctx, prompt)
}

// Execute runs the D-File at path. An empty mode selects the configured
// default.
func (a *App) Execute(ctx context.Context, path string, mode backend.Mode) (*engine.Report, error) {
	raw, err := dfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = a.cfg.DefaultMode()
	}
	return a.compiler.Run(ctx, raw, mode), nil
}

// Validate checks the D-File at path without executing it.
func (a *App) Validate(path string) (*dfile.Record, error) {
	raw, err := dfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return dfile.Parse(raw)
}

// Server builds the HTTP front end.
func (a *App) Server() *server.Server {
	return server.New(a.compiler, server.Options{
		Addr:            a.cfg.Server.Addr,
		ShutdownTimeout: a.cfg.GetShutdownTimeout(),
		DefaultMode:     a.cfg.DefaultMode(),
		Logger:          a.log,
	})
}

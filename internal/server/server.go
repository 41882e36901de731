// Package server exposes the compile and execute pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/vibecad/pkg/backend"
	"github.com/chazu/vibecad/pkg/compiler"
	"github.com/chazu/vibecad/pkg/dfile"
	"github.com/chazu/vibecad/pkg/engine"
	"github.com/chazu/vibecad/pkg/graph"
)

// SystemName is reported by the health endpoint.
const SystemName = "vibecad"

// Pipeline is the compile and run surface the server drives.
type Pipeline interface {
	Compile(ctx context.Context, prompt string) (*dfile.Record, compiler.ErrorRecord)
	Run(ctx context.Context, raw map[string]any, mode backend.Mode) *engine.Report
}

// Options configures a Server.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	// DefaultMode is used when an execute request names no mode.
	DefaultMode backend.Mode
	Logger      *zap.Logger
}

// Server is the HTTP front end.
type Server struct {
	echo            *echo.Echo
	pipeline        Pipeline
	addr            string
	shutdownTimeout time.Duration
	defaultMode     backend.Mode
	log             *zap.Logger
}

// CompileRequest is the body of POST /compile.
type CompileRequest struct {
	Prompt string `json:"prompt"`
}

// ExecuteRequest is the body of POST /execute.
type ExecuteRequest struct {
	DFile map[string]any `json:"d_file"`
	Mode  string         `json:"mode"`
}

// ValidateRequest is the body of POST /validate.
type ValidateRequest struct {
	DFile map[string]any `json:"d_file"`
}

// ValidateResponse reports schema violations and dependency findings.
type ValidateResponse struct {
	Valid      bool              `json:"valid"`
	Violations []dfile.Violation `json:"violations"`
	Issues     []Issue           `json:"issues"`

	// SuggestedOrder is set when a sketch is scheduled after a feature
	// built from it.
	SuggestedOrder []string `json:"suggested_order,omitempty"`
}

// Issue is a dependency finding in wire form.
type Issue struct {
	Code      string `json:"code"`
	Severity  string `json:"severity"`
	FeatureID string `json:"feature_id,omitempty"`
	Message   string `json:"message"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// New creates a Server around p.
func New(p Pipeline, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		echo:            echo.New(),
		pipeline:        p,
		addr:            opts.Addr,
		shutdownTimeout: opts.ShutdownTimeout,
		defaultMode:     opts.DefaultMode,
		log:             log.Named("server"),
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}
	if s.defaultMode == "" {
		s.defaultMode = backend.ModeMock
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(s.log))

	e.GET("/health", s.health)
	e.POST("/compile", s.compile)
	e.POST("/execute", s.execute)
	e.POST("/validate", s.validate)
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "system": SystemName})
}

func (s *Server) compile(c echo.Context) error {
	var req CompileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Detail: "malformed request body"})
	}

	rec, errRec := s.pipeline.Compile(c.Request().Context(), req.Prompt)
	if errRec != nil {
		return c.JSON(http.StatusOK, errRec)
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) execute(c echo.Context) error {
	var req ExecuteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Detail: "malformed request body"})
	}
	if req.DFile == nil {
		return c.JSON(http.StatusBadRequest, errorBody{Detail: "d_file is required"})
	}
	mode := s.defaultMode
	if req.Mode != "" {
		m, err := backend.ParseMode(req.Mode)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Detail: err.Error()})
		}
		mode = m
	}

	rep := s.pipeline.Run(c.Request().Context(), req.DFile, mode)
	if rep.Status == engine.StatusError {
		return c.JSON(http.StatusInternalServerError, errorBody{Detail: rep.Message})
	}
	return c.JSON(http.StatusOK, rep)
}

func (s *Server) validate(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Detail: "malformed request body"})
	}

	resp := ValidateResponse{Violations: []dfile.Violation{}, Issues: []Issue{}}
	rec, err := dfile.Parse(req.DFile)
	if err != nil {
		var verr *dfile.ValidationError
		if !errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, errorBody{Detail: err.Error()})
		}
		resp.Violations = verr.Violations
		return c.JSON(http.StatusOK, resp)
	}

	v := graph.NewValidator(rec)
	findings := v.Validate()
	for _, f := range findings {
		resp.Issues = append(resp.Issues, Issue{
			Code:      f.Code,
			Severity:  f.Severity.String(),
			FeatureID: f.FeatureID,
			Message:   f.Message,
		})
	}
	if graph.HasCode(findings, graph.CodeForwardReference) {
		resp.SuggestedOrder = v.SuggestedOrder()
	}
	resp.Valid = !graph.HasErrors(findings)
	return c.JSON(http.StatusOK, resp)
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			req := c.Request()
			log.Info("request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			)
			return nil
		}
	}
}

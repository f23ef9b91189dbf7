package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/todomcp/internal/config"
	"github.com/existflow/todomcp/internal/logger"
	"github.com/existflow/todomcp/internal/mcp"
	"github.com/existflow/todomcp/internal/store"
	"github.com/existflow/todomcp/internal/store/postgrest"
	"github.com/existflow/todomcp/internal/store/sqlite"
	"github.com/existflow/todomcp/internal/tools"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server identity reported through initialize and /health.
const (
	ServerName    = "todo-server"
	ServerVersion = "1.0.0"
)

// Server is the JSON-RPC tool-call server.
type Server struct {
	echo       *echo.Echo
	dispatcher *mcp.Dispatcher
	closer     io.Closer
}

// New creates a server over the backend selected by cfg.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var st store.Store
	var closer io.Closer
	switch cfg.Backend {
	case config.BackendSQLite:
		sqliteStore, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		st = sqliteStore
		closer = sqliteStore
	default:
		st = postgrest.New(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	}

	return NewWithStore(cfg, st, closer), nil
}

// NewWithStore creates a server over an explicit store; closer may be nil.
func NewWithStore(cfg *config.Config, st store.Store, closer io.Closer) *Server {
	registry := tools.New(st, cfg.Owner)
	s := &Server{
		dispatcher: mcp.NewDispatcher(registry, ServerName, ServerVersion),
		closer:     closer,
	}
	s.setupEcho(cfg)
	return s
}

func (s *Server) setupEcho(cfg *config.Config) {
	e := echo.New()
	e.HideBanner = true

	// Custom logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			res := c.Response()
			logger.Info("HTTP request",
				logger.F("method", req.Method),
				logger.F("uri", req.RequestURI),
				logger.F("status", res.Status),
				logger.F("duration", time.Since(start).String()))

			return err
		}
	})

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: splitOrigins(cfg.AllowedOrigins),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))

	e.GET("/", s.handleHealth)
	e.GET("/health", s.handleHealth)
	e.POST("/mcp", s.handleMCP)
	e.GET("/sse", s.handleSSE)
	e.POST("/sse/message", s.handleMCP)

	s.echo = e
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Close releases the backend, if it needs releasing.
func (s *Server) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"server":  ServerName,
		"version": ServerVersion,
		"endpoints": map[string]string{
			"mcp": "/mcp",
			"sse": "/sse",
		},
	})
}

// handleMCP decodes one JSON-RPC request and dispatches it. An unparsable
// body gets a protocol-level parse error; application failures ride inside
// the result envelope, so the HTTP status stays 200.
func (s *Server) handleMCP(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, mcp.ParseErrorResponse(err))
	}

	var req mcp.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, mcp.ParseErrorResponse(err))
	}

	resp := s.dispatcher.Dispatch(c.Request().Context(), req)
	return c.JSON(http.StatusOK, resp)
}

func splitOrigins(origins string) []string {
	if origins == "" {
		return []string{"*"}
	}
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// scheme returns the external scheme of the request, honoring proxies.
func scheme(c echo.Context) string {
	if proto := c.Request().Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if c.Request().TLS != nil {
		return "https"
	}
	return "http"
}

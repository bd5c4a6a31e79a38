// Package server exposes the report pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/KaramelBytes/insightloom/internal/config"
	"github.com/KaramelBytes/insightloom/internal/logging"
	"github.com/KaramelBytes/insightloom/internal/pipeline"
)

// Processor runs one natural-language query.
type Processor interface {
	ProcessQuery(ctx context.Context, query string, user pipeline.UserContext) *pipeline.Result
}

// Directory resolves bearer tokens to users.
type Directory interface {
	UserByToken(token string) (config.User, bool)
}

const userKey = "user"

// Server holds the dependencies of the HTTP API.
type Server struct {
	proc    Processor
	users   Directory
	version string
	log     *logging.Logger
	echo    *echo.Echo
}

// New builds the echo instance and registers every route.
func New(proc Processor, users Directory, version string, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{proc: proc, users: users, version: version, log: log}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.log.Warn("%s %s %d %s: %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			s.log.Info("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/health", s.Health)
	api := e.Group("/api", s.requireUser)
	api.POST("/reports/query", s.Query)
	api.GET("/user/me", s.Me)

	s.echo = e
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.echo,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info("Server starting on %s", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return err
		}
		s.log.Info("Server stopped gracefully")
		return nil
	}
}

// requireUser maps the bearer token to a directory user.
func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		u, found := s.users.UserByToken(strings.TrimSpace(token))
		if !found {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
		}
		c.Set(userKey, u)
		return next(c)
	}
}

// QueryRequest is the body of POST /api/reports/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// Query runs the pipeline for the authenticated user.
// (POST /api/reports/query)
func (s *Server) Query(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	u := c.Get(userKey).(config.User)
	res := s.proc.ProcessQuery(c.Request().Context(), req.Query, UserContext(u))
	if res == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "no result")
	}

	body := res.Map()
	body["success"] = res.Status != pipeline.StatusError
	body["user"] = u.FullName
	return c.JSON(http.StatusOK, body)
}

// UserResponse is the public view of a directory user.
type UserResponse struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

// Me returns the authenticated user.
// (GET /api/user/me)
func (s *Server) Me(c echo.Context) error {
	u := c.Get(userKey).(config.User)
	return c.JSON(http.StatusOK, UserResponse{FullName: u.FullName, Email: u.Email, Department: u.Department, Role: u.Role})
}

// Health reports liveness.
// (GET /health)
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy", "version": s.version})
}

// UserContext converts a directory entry into the pipeline's caller identity.
func UserContext(u config.User) pipeline.UserContext {
	return pipeline.UserContext{FullName: u.FullName, Department: u.Department, Role: u.Role, Email: u.Email}
}

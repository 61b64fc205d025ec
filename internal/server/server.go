// Package server exposes the dashboard over HTTP with gin: tile snapshots,
// JWT login, audited container control and the embedded web UI.
package server

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	limits "github.com/gin-contrib/size"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vesaa/talondash/internal/containers"
	"github.com/vesaa/talondash/internal/models"
	"github.com/vesaa/talondash/internal/tiles"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// SnapshotBuilder builds tile snapshots.
type SnapshotBuilder interface {
	BuildSnapshot(ctx context.Context, names []tiles.Name) (tiles.Snapshot, error)
}

// ContainerController runs lifecycle actions on containers.
type ContainerController interface {
	Control(ctx context.Context, action containers.Action, name string) error
}

// ActionLog persists the container action audit trail.
type ActionLog interface {
	RecordAction(a *models.ContainerAction) error
	RecentActions(limit int) ([]models.ContainerAction, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Snapshots    SnapshotBuilder
	Containers   ContainerController
	Actions      ActionLog
	Auth         *Authenticator
	Logger       *zap.Logger
	MaxBodyBytes int64
}

// Server owns the gin engine.
type Server struct {
	deps   Deps
	logger *zap.Logger
	engine *gin.Engine
}

// New builds the engine with logging, recovery, CORS and the body limit, then
// registers the API and static routes.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 64 << 10
	}
	s := &Server{deps: deps, logger: deps.Logger}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(
		requestID(),
		s.accessLog(),
		ginzap.RecoveryWithZap(s.logger, true),
		cors.New(corsConfig()),
		limits.RequestSizeLimiter(deps.MaxBodyBytes),
	)
	s.RegisterRoutes(r)
	RegisterStaticFiles(r)
	s.engine = r
	return s
}

// Handler returns the engine for http.Server.
func (s *Server) Handler() *gin.Engine {
	return s.engine
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
		headerRequestID,
	}
	cfg.ExposeHeaders = []string{headerRequestID}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

// requestID propagates an incoming X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// accessLog logs every request except health probes.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/api/health" {
			c.Next()
			return
		}
		ginzap.Ginzap(s.requestLogger(c), time.RFC3339Nano, true)(c)
	}
}

func (s *Server) requestLogger(c *gin.Context) *zap.Logger {
	return s.logger.With(zap.String(ctxRequestID, c.GetString(ctxRequestID)))
}

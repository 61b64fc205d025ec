package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vesaa/talondash/internal/containers"
	"github.com/vesaa/talondash/internal/models"
	"github.com/vesaa/talondash/internal/store"
	"github.com/vesaa/talondash/internal/tiles"
)

// RegisterRoutes wires up the API.
//
//	Public:    GET  /api/system-info?tiles=a,b
//	           GET  /api/tiles
//	           GET  /api/health
//	           POST /api/login
//	JWT:       POST /api/docker/:action
//	           GET  /api/docker/actions
func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	api.GET("/tiles", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tiles": tiles.AllNames()})
	})
	api.GET("/system-info", s.handleSystemInfo)
	api.POST("/login", s.handleLogin)

	docker := api.Group("/docker", s.deps.Auth.Middleware())
	{
		docker.GET("/actions", s.handleRecentActions)
		docker.POST("/:action", s.handleContainerAction)
	}
}

// handleSystemInfo builds a snapshot of the requested tiles.
//
//	GET /api/system-info?tiles=cpuUsage,thermal
func (s *Server) handleSystemInfo(c *gin.Context) {
	names, err := tiles.ParseNames(c.Query("tiles"))
	if err != nil {
		var unknown *tiles.UnknownTileError
		if errors.As(err, &unknown) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "unknown": unknown.Names})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(names) == 0 {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	log := s.requestLogger(c)
	start := time.Now()
	snap, err := s.deps.Snapshots.BuildSnapshot(c.Request.Context(), names)
	if err != nil {
		log.Error("building snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build snapshot"})
		return
	}
	log.Debug("snapshot built",
		zap.Int("tiles", len(names)), zap.Duration("took", time.Since(start)))
	c.JSON(http.StatusOK, snap)
}

// handleLogin accepts username + password and returns a signed JWT.
//
//	POST /api/login
//	Body: { "username": "admin", "password": "admin" }
func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	if err := s.deps.Auth.Verify(body.Username, body.Password); err != nil {
		s.requestLogger(c).Warn("login rejected", zap.String("user", body.Username))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.deps.Auth.IssueToken(body.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(s.deps.Auth.TTL().Seconds()),
		"type":       "Bearer",
	})
}

// handleContainerAction starts, stops or restarts a container. Every attempt
// that names a container is audited, including failures.
//
//	POST /api/docker/restart
//	Body: { "containerName": "web" }
func (s *Server) handleContainerAction(c *gin.Context) {
	var body struct {
		ContainerName string `json:"containerName"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ContainerName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Container name is required"})
		return
	}
	action, err := containers.ParseAction(c.Param("action"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
		return
	}

	log := s.requestLogger(c)
	ctrlErr := s.deps.Containers.Control(c.Request.Context(), action, body.ContainerName)

	entry := &models.ContainerAction{
		Container:   body.ContainerName,
		Action:      string(action),
		Success:     ctrlErr == nil,
		RequestedBy: c.GetString(ctxUsername),
	}
	if ctrlErr != nil {
		entry.Message = ctrlErr.Error()
	} else {
		entry.Message = "Container " + body.ContainerName + " " + action.Past() + " successfully"
	}
	if err := s.deps.Actions.RecordAction(entry); err != nil {
		log.Error("auditing container action", zap.Error(err))
	}

	switch {
	case errors.Is(ctrlErr, containers.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid container name"})
	case ctrlErr != nil:
		log.Warn("container action failed",
			zap.String("container", body.ContainerName),
			zap.String("action", string(action)),
			zap.Error(ctrlErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + string(action) + " container: " + ctrlErr.Error()})
	default:
		log.Info("container action",
			zap.String("container", body.ContainerName),
			zap.String("action", string(action)),
			zap.String("user", entry.RequestedBy))
		c.JSON(http.StatusOK, gin.H{"success": true, "message": entry.Message})
	}
}

// handleRecentActions lists the newest audit rows.
//
//	GET /api/docker/actions?limit=20
func (s *Server) handleRecentActions(c *gin.Context) {
	limit := store.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	rows, err := s.deps.Actions.RecentActions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

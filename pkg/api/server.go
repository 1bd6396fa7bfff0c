package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sleuthops/sleuth/pkg/models"
	"github.com/sleuthops/sleuth/pkg/pipeline"
	"github.com/sleuthops/sleuth/pkg/tools"
	"github.com/sleuthops/sleuth/pkg/version"
)

// investigationTimeout bounds one background investigation run.
const investigationTimeout = 5 * time.Minute

// Server is the HTTP surface: the Alertmanager webhook, session lookup,
// and the chat tool endpoint.
type Server struct {
	pipeline     *pipeline.Pipeline
	dispatcher   *tools.Dispatcher
	store        *SessionStore
	windowExpr   string
	chatPolicy   tools.ChatPolicy
	actionPolicy tools.ActionPolicy
	logger       *slog.Logger
}

// NewServer wires the HTTP layer. dispatcher may be nil; the tool
// endpoint then reports 503.
func NewServer(p *pipeline.Pipeline, dispatcher *tools.Dispatcher, windowExpr string,
	chatPolicy tools.ChatPolicy, actionPolicy tools.ActionPolicy) *Server {
	if windowExpr == "" {
		windowExpr = "1h"
	}
	return &Server{
		pipeline:     p,
		dispatcher:   dispatcher,
		store:        NewSessionStore(),
		windowExpr:   windowExpr,
		chatPolicy:   chatPolicy,
		actionPolicy: actionPolicy,
		logger:       slog.Default(),
	}
}

// Handler builds the gin engine with all routes registered.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.Health)

	v1 := router.Group("/api/v1")
	v1.POST("/alerts", s.SubmitAlerts)
	v1.GET("/sessions", s.ListSessions)
	v1.GET("/sessions/:id", s.GetSession)
	v1.POST("/sessions/:id/tools", s.ExecuteTool)

	return router
}

// Health returns the process health status.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": version.AppName,
		"version": version.Full(),
	})
}

// ListSessions returns recent sessions, newest first.
func (s *Server) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.store.List()})
}

// GetSession returns one session with its investigation projection.
// The view query parameter selects "full" (default) or "analysis".
func (s *Server) GetSession(c *gin.Context) {
	sess := s.store.Get(c.Param("id"))
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	response := gin.H{
		"session_id": sess.ID,
		"status":     sess.Status,
		"alert_name": sess.AlertName,
		"created_at": sess.CreatedAt,
	}
	if !sess.CompletedAt.IsZero() {
		response["completed_at"] = sess.CompletedAt
	}

	if sess.Investigation != nil {
		mode := models.ProjectionFull
		if c.Query("view") == "analysis" {
			mode = models.ProjectionAnalysis
		}
		projection, err := sess.Investigation.MarshalProjection(mode)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "projection failed"})
			return
		}
		response["investigation"] = json.RawMessage(projection)
	}

	c.JSON(http.StatusOK, response)
}

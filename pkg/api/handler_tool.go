package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sleuthops/sleuth/pkg/models"
	"github.com/sleuthops/sleuth/pkg/tools"
)

type toolRequest struct {
	Tool string     `json:"tool"`
	Args tools.Args `json:"args"`
}

// ExecuteTool runs one chat tool against a completed session. The policy
// is server configuration, never client input.
func (s *Server) ExecuteTool(c *gin.Context) {
	// 1. The dispatcher is optional wiring.
	if s.dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tool runtime not configured"})
		return
	}

	// 2. The session must exist and have finished.
	sess := s.store.Get(c.Param("id"))
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if sess.Investigation == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "investigation not finished", "status": sess.Status})
		return
	}

	// 3. Bind the tool call.
	var req toolRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Tool == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tool request"})
		return
	}

	// 4. Tools see only the analysis projection, not raw evidence.
	analysisJSON, err := sess.Investigation.MarshalProjection(models.ProjectionAnalysis)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "projection failed"})
		return
	}

	// 5. Dispatch under the server policy.
	result := s.dispatcher.Dispatch(c.Request.Context(), tools.Request{
		Policy:       s.chatPolicy,
		ActionPolicy: s.actionPolicy,
		ToolName:     req.Tool,
		Args:         req.Args,
		AnalysisJSON: analysisJSON,
		CaseID:       sess.ID,
		RunID:        sess.Investigation.ID,
	})

	c.JSON(http.StatusOK, result)
}

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sleuthops/sleuth/pkg/models"
)

// maxWebhookBytes caps the webhook payload size.
const maxWebhookBytes = 5 * 1024 * 1024

// webhookAlert is one alert event as delivered by an Alertmanager-style
// webhook. Status accepts both the object form {"state": "active"} and a
// bare string.
type webhookAlert struct {
	Fingerprint  string            `json:"fingerprint"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     time.Time         `json:"startsAt,omitzero"`
	EndsAt       time.Time         `json:"endsAt,omitzero"`
	GeneratorURL string            `json:"generatorURL"`
	Status       alertStatus       `json:"status"`
}

type alertStatus struct {
	State string `json:"state"`
}

func (s *alertStatus) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.State)
	}
	type plain alertStatus
	return json.Unmarshal(data, (*plain)(s))
}

type webhookRequest struct {
	Alerts []webhookAlert `json:"alerts"`
	// TimeWindow optionally overrides the server's default window
	// expression, e.g. "30m".
	TimeWindow string `json:"time_window"`
}

type sessionRef struct {
	SessionID string        `json:"session_id"`
	Status    SessionStatus `json:"status"`
	AlertName string        `json:"alert_name"`
}

// SubmitAlerts accepts an Alertmanager-style webhook batch. Each event is
// queued as its own session and processed independently.
func (s *Server) SubmitAlerts(c *gin.Context) {
	// 1. Read the payload with a hard size limit.
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}

	// 2. Parse the batch form, falling back to a single bare alert.
	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil || len(req.Alerts) == 0 {
		var single webhookAlert
		if err := json.Unmarshal(body, &single); err != nil || len(single.Labels) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
			return
		}
		req.Alerts = []webhookAlert{single}
	}

	// 3. Validate each event carries labels.
	for i := range req.Alerts {
		if len(req.Alerts[i].Labels) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "alert without labels"})
			return
		}
	}

	windowExpr := req.TimeWindow
	if windowExpr == "" {
		windowExpr = s.windowExpr
	}

	// 4. Queue one session per event and start the investigations.
	refs := make([]sessionRef, 0, len(req.Alerts))
	for i := range req.Alerts {
		event := toAlertEvent(&req.Alerts[i])
		sess := s.store.Create(event.Name())
		refs = append(refs, sessionRef{SessionID: sess.ID, Status: sess.Status, AlertName: sess.AlertName})
		go s.investigate(sess.ID, event, windowExpr)
	}

	// 5. Respond 202 with the queued sessions.
	c.JSON(http.StatusAccepted, gin.H{"sessions": refs})
}

// toAlertEvent converts the wire shape to the normalized event.
func toAlertEvent(w *webhookAlert) models.AlertEvent {
	return models.AlertEvent{
		Fingerprint:  w.Fingerprint,
		Labels:       w.Labels,
		Annotations:  w.Annotations,
		StartsAt:     w.StartsAt,
		EndsAt:       w.EndsAt,
		GeneratorURL: w.GeneratorURL,
		RawState:     w.Status.State,
	}
}

// investigate runs one session in the background. The pipeline never
// returns an error; Fail only covers a pipeline that could not start.
func (s *Server) investigate(sessionID string, event models.AlertEvent, windowExpr string) {
	if s.pipeline == nil {
		s.store.Fail(sessionID)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), investigationTimeout)
	defer cancel()

	s.store.SetRunning(sessionID)
	inv := s.pipeline.Run(ctx, event, windowExpr)
	s.store.Complete(sessionID, inv)
	s.logger.Info("Session completed",
		"session_id", sessionID,
		"investigation_id", inv.ID,
		"errors", len(inv.Errors))
}

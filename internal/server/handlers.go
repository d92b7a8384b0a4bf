package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vulnagent/internal/conversation"
	vaerrors "vulnagent/internal/errors"
	"vulnagent/internal/history"
	"vulnagent/internal/presentation"
	"vulnagent/internal/shared/logging"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// AnalyzeRequest starts a new analysis.
type AnalyzeRequest struct {
	Prompt    string `json:"prompt"`
	SwarmMode bool   `json:"swarm_mode"`
}

// DecisionRequest answers a pending handoff.
type DecisionRequest struct {
	Decision string `json:"decision"`
}

// NormalizeRequest carries a captured agent response body.
type NormalizeRequest struct {
	Raw       string `json:"raw"`
	SwarmMode bool   `json:"swarm_mode"`
}

// ResultResponse is the data of analyze, decision, cancel and normalize calls.
type ResultResponse struct {
	View     presentation.View `json:"view"`
	Envelope map[string]any    `json:"envelope,omitempty"`
}

// ConversationResponse describes one stored result.
type ConversationResponse struct {
	Key            string            `json:"key"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Prompt         string            `json:"prompt,omitempty"`
	SwarmMode      bool              `json:"swarm_mode"`
	Decision       string            `json:"decision,omitempty"`
	State          string            `json:"state"`
	Overridden     bool              `json:"overridden,omitempty"`
	RecordedAt     time.Time         `json:"recorded_at"`
	View           presentation.View `json:"view"`
	Envelope       map[string]any    `json:"envelope"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: HealthResponse{
			Status:    "ok",
			Version:   s.config.Version,
			Timestamp: time.Now(),
			Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		},
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.service.Analyze(c.Request.Context(), req.Prompt, req.SwarmMode)
	s.respondResult(c, result, err)
}

func (s *Server) handleDecision(c *gin.Context) {
	var req DecisionRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.service.Decide(c.Request.Context(), req.Decision)
	s.respondResult(c, result, err)
}

func (s *Server) handleCancel(c *gin.Context) {
	result, err := s.service.Cancel(c.Request.Context())
	s.respondResult(c, result, err)
}

func (s *Server) handleNormalize(c *gin.Context) {
	var req NormalizeRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.service.Normalize(c.Request.Context(), req.Raw, req.SwarmMode)
	s.respondResult(c, result, err)
}

func (s *Server) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: s.service.Session()})
}

func (s *Server) handleListConversations(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}
	entries := s.service.Recent(limit)
	out := make([]ConversationResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, conversationResponse(entry))
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: out})
}

func (s *Server) handleGetConversation(c *gin.Context) {
	entry, ok := s.service.Conversation(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, APIResponse{Success: false, Error: "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: conversationResponse(entry)})
}

func (s *Server) handleConversationLogs(c *gin.Context) {
	logs := logging.FetchConversationLogs(c.Param("id"), logging.LogFetchOptions{Dir: s.config.LogDir})
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: logs})
}

func (s *Server) respondResult(c *gin.Context, result conversation.Result, err error) {
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Warn("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		}
		c.JSON(status, APIResponse{
			Success: false,
			Error:   vaerrors.DisplayMessage(err),
			Data:    ResultResponse{View: result.View},
		})
		return
	}

	data := ResultResponse{View: result.View}
	if result.Outcome.State != "" && result.View.Mode != presentation.ModeBanner {
		data.Envelope = result.Envelope.Node()
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func statusForError(err error) int {
	switch vaerrors.KindOf(err) {
	case vaerrors.KindState:
		return http.StatusBadRequest
	case vaerrors.KindSemantic:
		return http.StatusUnprocessableEntity
	case vaerrors.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   fmt.Sprintf("invalid request: %v", err),
		})
		return false
	}
	return true
}

func conversationResponse(entry history.Entry) ConversationResponse {
	return ConversationResponse{
		Key:            entry.Key,
		ConversationID: entry.ConversationID,
		Prompt:         entry.Prompt,
		SwarmMode:      entry.SwarmMode,
		Decision:       entry.Decision,
		State:          string(entry.State),
		Overridden:     entry.Overridden,
		RecordedAt:     entry.RecordedAt,
		View:           entry.View,
		Envelope:       entry.Envelope.Node(),
	}
}

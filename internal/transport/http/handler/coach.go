package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"brainstorm-coach/internal/coach"
	"brainstorm-coach/internal/service"
	"brainstorm-coach/internal/transport/http/response"
)

type CoachHandler struct {
	brainstormService *service.BrainstormService
	coach             *coach.Coach
}

type CoachMessageRequest struct {
	ContextSource string `json:"context_source"`
}

func NewCoachHandler(brainstormService *service.BrainstormService, c *coach.Coach) *CoachHandler {
	return &CoachHandler{brainstormService: brainstormService, coach: c}
}

// ownedBrainstormID resolves the path param and enforces ownership before
// the coach touches the brainstorm.
func (h *CoachHandler) ownedBrainstormID(c *gin.Context) (uint, bool) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return 0, false
	}
	brainstormID, err := parseUintParam(c, "id")
	if err != nil || brainstormID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid brainstorm id")
		return 0, false
	}
	if _, err := h.brainstormService.GetBrainstorm(c.Request.Context(), userID, brainstormID); err != nil {
		if errors.Is(err, service.ErrBrainstormNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeBrainstormNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get brainstorm failed")
		}
		return 0, false
	}
	return brainstormID, true
}

func (h *CoachHandler) GenerateSummary(c *gin.Context) {
	brainstormID, ok := h.ownedBrainstormID(c)
	if !ok {
		return
	}

	result, err := h.coach.GenerateSummary(c.Request.Context(), brainstormID)
	if err != nil {
		switch {
		case errors.Is(err, coach.ErrBrainstormNotFound):
			response.Error(c, http.StatusNotFound, response.CodeBrainstormNotFound, err.Error())
		case errors.Is(err, coach.ErrNoMessages):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "generate summary failed")
		}
		return
	}
	response.OK(c, result)
}

func (h *CoachHandler) CoachMessage(c *gin.Context) {
	brainstormID, ok := h.ownedBrainstormID(c)
	if !ok {
		return
	}
	// An absent or empty body means no retrieved context.
	var req CoachMessageRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return
		}
	}
	source := coach.ContextSource(req.ContextSource)
	if source == "" {
		source = coach.SourceNone
	}
	if !coach.ValidContextSource(source) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid context source")
		return
	}

	result, err := h.coach.NextCoachMessage(c.Request.Context(), brainstormID, source)
	if err != nil {
		if errors.Is(err, coach.ErrBrainstormNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeBrainstormNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "generate coach message failed")
		}
		return
	}
	response.OK(c, result)
}

func (h *CoachHandler) FindConnections(c *gin.Context) {
	brainstormID, ok := h.ownedBrainstormID(c)
	if !ok {
		return
	}

	connections, err := h.coach.FindConnections(c.Request.Context(), brainstormID)
	if err != nil {
		switch {
		case errors.Is(err, coach.ErrBrainstormNotFound):
			response.Error(c, http.StatusNotFound, response.CodeBrainstormNotFound, err.Error())
		case errors.Is(err, coach.ErrNoSummary):
			response.Error(c, http.StatusBadRequest, response.CodeNoSummary, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "find connections failed")
		}
		return
	}
	response.OK(c, gin.H{"connections": connections})
}

func (h *CoachHandler) SimilarBrainstorms(c *gin.Context) {
	brainstormID, ok := h.ownedBrainstormID(c)
	if !ok {
		return
	}

	similar, err := h.coach.SimilarBrainstorms(c.Request.Context(), brainstormID)
	if err != nil {
		if errors.Is(err, coach.ErrBrainstormNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeBrainstormNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "find similar brainstorms failed")
		}
		return
	}
	response.OK(c, gin.H{"similar": similar})
}

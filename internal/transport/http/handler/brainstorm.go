package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"brainstorm-coach/internal/service"
	"brainstorm-coach/internal/transport/http/response"
)

type BrainstormHandler struct {
	brainstormService *service.BrainstormService
}

type CreateBrainstormRequest struct {
	Title string `json:"title" binding:"max=128"`
}

type AppendMessageRequest struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func NewBrainstormHandler(brainstormService *service.BrainstormService) *BrainstormHandler {
	return &BrainstormHandler{brainstormService: brainstormService}
}

func (h *BrainstormHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req CreateBrainstormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	brainstorm, err := h.brainstormService.CreateBrainstorm(c.Request.Context(), userID, req.Title)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create brainstorm failed")
		}
		return
	}
	response.OK(c, brainstorm)
}

func (h *BrainstormHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	brainstorms, err := h.brainstormService.ListBrainstorms(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list brainstorms failed")
		return
	}
	response.OK(c, brainstorms)
}

func (h *BrainstormHandler) Get(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	brainstormID, err := parseUintParam(c, "id")
	if err != nil || brainstormID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid brainstorm id")
		return
	}

	brainstorm, err := h.brainstormService.GetBrainstorm(c.Request.Context(), userID, brainstormID)
	if err != nil {
		h.writeError(c, err, "get brainstorm failed")
		return
	}
	response.OK(c, brainstorm)
}

func (h *BrainstormHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	brainstormID, err := parseUintParam(c, "id")
	if err != nil || brainstormID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid brainstorm id")
		return
	}

	if err := h.brainstormService.DeleteBrainstorm(c.Request.Context(), userID, brainstormID); err != nil {
		h.writeError(c, err, "delete brainstorm failed")
		return
	}
	response.OK(c, gin.H{"deleted_brainstorm_id": brainstormID})
}

func (h *BrainstormHandler) ListMessages(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	brainstormID, err := parseUintParam(c, "id")
	if err != nil || brainstormID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid brainstorm id")
		return
	}

	messages, err := h.brainstormService.GetMessages(c.Request.Context(), userID, brainstormID)
	if err != nil {
		h.writeError(c, err, "list messages failed")
		return
	}
	response.OK(c, messages)
}

func (h *BrainstormHandler) AppendMessage(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	brainstormID, err := parseUintParam(c, "id")
	if err != nil || brainstormID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid brainstorm id")
		return
	}
	var req AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	message, err := h.brainstormService.AppendMessage(c.Request.Context(), userID, brainstormID, req.Role, req.Content)
	if err != nil {
		h.writeError(c, err, "append message failed")
		return
	}
	response.OK(c, message)
}

// Rewind deletes the given message and everything after it in the brainstorm.
func (h *BrainstormHandler) Rewind(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	brainstormID, err := parseUintParam(c, "id")
	if err != nil || brainstormID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid brainstorm id")
		return
	}
	messageID, err := parseUintParam(c, "messageId")
	if err != nil || messageID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid message id")
		return
	}

	if err := h.brainstormService.RewindFrom(c.Request.Context(), userID, brainstormID, messageID); err != nil {
		h.writeError(c, err, "rewind failed")
		return
	}
	response.OK(c, gin.H{"rewound_from_message_id": messageID})
}

func (h *BrainstormHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, service.ErrBrainstormNotFound):
		response.Error(c, http.StatusNotFound, response.CodeBrainstormNotFound, err.Error())
	case errors.Is(err, service.ErrMessageNotFound):
		response.Error(c, http.StatusNotFound, response.CodeMessageNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

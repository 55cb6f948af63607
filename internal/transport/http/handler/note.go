package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"brainstorm-coach/internal/service"
	"brainstorm-coach/internal/transport/http/response"
)

type NoteHandler struct {
	noteService *service.NoteService
}

type CreateNoteRequest struct {
	Title string `json:"title" binding:"required,max=256"`
	Body  string `json:"body"`
}

func NewNoteHandler(noteService *service.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// Create stores the note and enqueues its background processing task.
func (h *NoteHandler) Create(c *gin.Context) {
	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	note, err := h.noteService.CreateNote(c.Request.Context(), req.Title, req.Body)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create note failed")
		}
		return
	}

	if err := h.noteService.EnqueueProcess(c.Request.Context(), note.ID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "enqueue note processing failed")
		return
	}
	response.OK(c, note)
}

// Get returns the note with its current processing status and progress.
func (h *NoteHandler) Get(c *gin.Context) {
	noteID, err := parseUintParam(c, "id")
	if err != nil || noteID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid note id")
		return
	}

	note, err := h.noteService.GetNote(c.Request.Context(), noteID)
	if err != nil {
		if errors.Is(err, service.ErrNoteNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeNoteNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get note failed")
		}
		return
	}
	response.OK(c, note)
}

package http

import (
	"net/http"

	"prediction-pool/internal/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getEvent(c *gin.Context) {
	view, err := h.pool.OrganizerEvent(c.Request.Context(), ownerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) saveEvent(c *gin.Context) {
	var in domain.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.respondError(c, errInvalidBody)
		return
	}
	event, err := h.pool.SaveEvent(c.Request.Context(), ownerID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

func (h *Handler) deleteEvent(c *gin.Context) {
	if err := h.pool.DeleteEvent(c.Request.Context(), ownerID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getQuestions(c *gin.Context) {
	view, err := h.pool.OrganizerEvent(c.Request.Context(), ownerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": view.Questions})
}

func (h *Handler) saveQuestions(c *gin.Context) {
	var set domain.QuestionSet
	if err := c.ShouldBindJSON(&set); err != nil {
		h.respondError(c, errInvalidBody)
		return
	}
	questions, err := h.pool.SaveQuestions(c.Request.Context(), ownerID(c), set)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Questions saved successfully!", "questions": questions})
}

type publishRequest struct {
	MaxEntries *int `json:"max_entries"`
}

func (h *Handler) publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errInvalidBody)
		return
	}
	if req.MaxEntries == nil {
		h.respondError(c, &domain.ValidationError{Fields: map[string]string{"max_entries": "The max entries field is required."}})
		return
	}
	res, err := h.pool.Publish(c.Request.Context(), ownerID(c), *req.MaxEntries)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) dashboard(c *gin.Context) {
	view, err := h.pool.Dashboard(c.Request.Context(), ownerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) prompts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"prompts": h.pool.ExamplePrompts(c.Request.Context())})
}

func (h *Handler) previewEntry(c *gin.Context) {
	view, err := h.pool.PreviewEntry(c.Request.Context(), ownerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) previewPicks(c *gin.Context) {
	view, err := h.pool.PreviewPicks(c.Request.Context(), ownerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) previewLeaderboard(c *gin.Context) {
	view, err := h.pool.PreviewLeaderboard(c.Request.Context(), ownerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

package http

import (
	"net/http"

	"prediction-pool/internal/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) gradingEntry(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	allowed, err := h.pool.GradingAllowed(c.Request.Context(), event, sessionID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": event.Title, "slug": event.Slug, "authenticated": allowed})
}

func (h *Handler) gradingPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errInvalidBody)
		return
	}
	slug := c.Param("slug")
	if err := h.pool.AuthenticateGrading(c.Request.Context(), slug, sessionID(c), req.Password); err != nil {
		h.respondPasswordError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": "/events/" + slug + "/grade/questions"})
}

func (h *Handler) gradingQuestions(c *gin.Context) {
	page, err := h.pool.GradingQuestions(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type gradeRequest struct {
	Grades []domain.GradeInput `json:"grades"`
}

func (h *Handler) grade(c *gin.Context) {
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errInvalidBody)
		return
	}
	if err := h.pool.Grade(c.Request.Context(), c.Param("slug"), req.Grades); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Grades saved successfully!"})
}

package http

import (
	"fmt"
	"net/http"
	"time"

	"prediction-pool/internal/app"
	"prediction-pool/internal/auth"
	"prediction-pool/internal/domain"

	"github.com/gin-gonic/gin"
)

// participantCookie names the cookie holding the durable participant token of one event.
func participantCookie(eventID int64) string {
	return fmt.Sprintf("event_%d_participant", eventID)
}

func participantToken(c *gin.Context, eventID int64) string {
	token, err := c.Cookie(participantCookie(eventID))
	if err != nil {
		return ""
	}
	return token
}

func (h *Handler) setParticipantCookie(c *gin.Context, eventID int64, token app.IssuedToken) {
	maxAge := int(time.Until(token.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(auth.ParticipantTTL.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(participantCookie(eventID), token.Value, maxAge, "/", "", h.opts.SecureCookies, true)
}

func (h *Handler) entry(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	view, err := h.pool.Entry(c.Request.Context(), event.Slug, sessionID(c), participantToken(c, event.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) entryPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errInvalidBody)
		return
	}
	slug := c.Param("slug")
	if err := h.pool.AuthenticateEntry(c.Request.Context(), slug, sessionID(c), req.Password); err != nil {
		h.respondPasswordError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect": "/events/" + slug})
}

func (h *Handler) submitName(c *gin.Context) {
	var in domain.NameInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.respondError(c, errInvalidBody)
		return
	}
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	res, err := h.pool.SubmitName(c.Request.Context(), event.Slug, sessionID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if res.Duplicate {
		c.JSON(http.StatusOK, gin.H{"duplicate": true, "participant": res.Participant})
		return
	}
	h.setParticipantCookie(c, event.ID, *res.Token)
	c.JSON(http.StatusOK, gin.H{"duplicate": false, "redirect": "/events/" + event.Slug + "/picks"})
}

type confirmRequest struct {
	ParticipantID int64 `json:"participant_id"`
}

func (h *Handler) confirmIdentity(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errInvalidBody)
		return
	}
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	token, err := h.pool.ConfirmIdentity(c.Request.Context(), event.Slug, req.ParticipantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.setParticipantCookie(c, event.ID, token)
	c.JSON(http.StatusOK, gin.H{"redirect": "/events/" + event.Slug + "/picks"})
}

func (h *Handler) picksPage(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	page, err := h.pool.PicksPage(c.Request.Context(), event.Slug, participantToken(c, event.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) submitPicks(c *gin.Context) {
	var sub domain.PickSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.respondError(c, errInvalidBody)
		return
	}
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	if err := h.pool.SubmitPicks(c.Request.Context(), event.Slug, participantToken(c, event.ID), sub); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Picks submitted successfully!",
		"redirect": "/events/" + event.Slug + "/picks",
	})
}

func (h *Handler) leaderboard(c *gin.Context) {
	page, err := h.pool.Leaderboard(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

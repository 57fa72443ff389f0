package http

import (
	"errors"
	"net/http"

	"prediction-pool/internal/domain"

	"github.com/gin-gonic/gin"
)

var errInvalidBody = &domain.ValidationError{Fields: map[string]string{"body": "The request body is not valid JSON."}}

// respondError maps the domain error taxonomy onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		var v *domain.ValidationError
		errors.As(err, &v)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The given data was invalid.", "errors": v.Fields})
	case domain.KindStale:
		var s *domain.StaleError
		errors.As(err, &s)
		c.JSON(http.StatusConflict, gin.H{"stale": true, "reason": s.Reason, "message": s.Error()})
	case domain.KindConflict:
		var ce *domain.ConflictError
		errors.As(err, &ce)
		c.JSON(conflictStatus(err), gin.H{"message": ce.Message})
	case domain.KindNotFound:
		var nf *domain.NotFoundError
		errors.As(err, &nf)
		status := http.StatusNotFound
		if errors.Is(err, domain.ErrNoIdentity) || errors.Is(err, domain.ErrInvalidParticipant) ||
			errors.Is(err, domain.ErrPasswordRequired) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"message": nf.Message})
	case domain.KindExternal:
		h.log.WithError(err).Warn("payment collaborator failed")
		c.JSON(http.StatusBadGateway, gin.H{"message": domain.ErrPaymentUnavailable.Error()})
	default:
		h.log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error."})
	}
}

// conflictStatus keeps 400 for rejected actions and 409 for races over a shared resource.
func conflictStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrMaxEntriesReached), errors.Is(err, domain.ErrEventExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEventStarted), errors.Is(err, domain.ErrEntriesSubmitted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// respondPasswordError reports a rejected password as a field error on the password form.
func (h *Handler) respondPasswordError(c *gin.Context, err error) {
	var nf *domain.NotFoundError
	if errors.As(err, &nf) && !errors.Is(err, domain.ErrEventNotFound) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": nf.Message,
			"errors":  map[string]string{"password": nf.Message},
		})
		return
	}
	h.respondError(c, err)
}

package http

import (
	"errors"
	"net/http"

	"prediction-pool/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// paymentConfirmed publishes an event once its checkout has been paid. Redelivery of a
// confirmation for an already published event is acknowledged without changes.
func (h *Handler) paymentConfirmed(c *gin.Context) {
	var confirmation domain.PaymentConfirmation
	if err := c.ShouldBindJSON(&confirmation); err != nil || confirmation.EventID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	err := h.pool.OnPaymentConfirmed(c.Request.Context(), confirmation)
	switch {
	case errors.Is(err, domain.ErrAlreadyPublished):
		h.log.WithFields(logrus.Fields{"event_id": confirmation.EventID}).Info("payment confirmation redelivered")
		c.JSON(http.StatusOK, gin.H{"status": "already_published"})
	case err != nil:
		h.respondError(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

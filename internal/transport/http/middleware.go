package http

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"prediction-pool/internal/domain"
	"prediction-pool/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	sessionCookie = "pool_session"
	sessionMaxAge = 12 * 60 * 60

	ctxSessionID = "session_id"
	ctxOwnerID   = "owner_id"
	ctxEvent     = "event"
)

// MetricsMiddleware collects HTTP request metrics labelled by route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		metrics.RequestInProgress.WithLabelValues(method, path).Inc()
		start := time.Now()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.RequestCounter.WithLabelValues(status, method, path).Inc()
		metrics.RequestDuration.WithLabelValues(status, method, path).Observe(time.Since(start).Seconds())
		metrics.RequestInProgress.WithLabelValues(method, path).Dec()
	}
}

// LoggingMiddleware writes one structured line per request.
func LoggingMiddleware(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

// sessionMiddleware makes sure every visitor carries a pool_session id; capability grants
// are keyed by it.
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, id, sessionMaxAge, "/", "", h.opts.SecureCookies, true)
		}
		c.Set(ctxSessionID, id)
		c.Next()
	}
}

// organizerAuth requires "Authorization: Bearer <token>" signed for an organizer.
func (h *Handler) organizerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || h.opts.Organizers == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}
		ownerID, err := h.opts.Organizers.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}
		c.Set(ctxOwnerID, ownerID)
		c.Next()
	}
}

// entryGate sends visitors who have not passed the entry password back to the entry screen.
func (h *Handler) entryGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		event, ok := h.loadEvent(c)
		if !ok {
			return
		}
		allowed, err := h.pool.EntryAllowed(c.Request.Context(), event, sessionID(c))
		if err != nil {
			h.respondError(c, err)
			c.Abort()
			return
		}
		if !allowed {
			c.Redirect(http.StatusSeeOther, "/events/"+event.Slug)
			c.Abort()
			return
		}
		c.Next()
	}
}

// gradingGate sends sessions without the grading grant back to the grading password screen.
func (h *Handler) gradingGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		event, ok := h.loadEvent(c)
		if !ok {
			return
		}
		allowed, err := h.pool.GradingAllowed(c.Request.Context(), event, sessionID(c))
		if err != nil {
			h.respondError(c, err)
			c.Abort()
			return
		}
		if !allowed {
			c.Redirect(http.StatusSeeOther, "/events/"+event.Slug+"/grade")
			c.Abort()
			return
		}
		c.Next()
	}
}

// webhookAuth checks the shared bearer token of the payment collaborator.
func (h *Handler) webhookAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		want := h.opts.WebhookToken
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		c.Next()
	}
}

// loadEvent resolves the published event of the :slug path once per request.
func (h *Handler) loadEvent(c *gin.Context) (domain.Event, bool) {
	if v, ok := c.Get(ctxEvent); ok {
		return v.(domain.Event), true
	}
	event, err := h.pool.PublishedEvent(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		c.Abort()
		return domain.Event{}, false
	}
	c.Set(ctxEvent, event)
	return event, true
}

func sessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

func ownerID(c *gin.Context) string {
	return c.GetString(ctxOwnerID)
}

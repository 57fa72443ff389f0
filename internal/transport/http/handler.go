package http

import (
	"net/http"

	"prediction-pool/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// OrganizerVerifier resolves an organizer bearer token to the organizer id.
type OrganizerVerifier interface {
	Verify(token string) (string, error)
}

// Options configures the HTTP surface.
type Options struct {
	Organizers OrganizerVerifier
	// WebhookToken authenticates the payment collaborator; empty disables the webhook.
	WebhookToken  string
	SecureCookies bool
	Logger        logrus.FieldLogger
}

// Handler serves the organizer, participant, grading and payment routes of the pool.
type Handler struct {
	pool *app.PoolService
	opts Options
	log  logrus.FieldLogger
}

func NewHandler(pool *app.PoolService, opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	return &Handler{pool: pool, opts: opts, log: log}
}

// Router builds the gin engine with every route and middleware registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), MetricsMiddleware(), LoggingMiddleware(h.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", h.organizerAuth())
	{
		api.GET("/event", h.getEvent)
		api.POST("/event", h.saveEvent)
		api.DELETE("/event", h.deleteEvent)
		api.GET("/event/questions", h.getQuestions)
		api.POST("/event/questions", h.saveQuestions)
		api.POST("/event/publish", h.publish)
		api.GET("/dashboard", h.dashboard)
		api.GET("/prompts", h.prompts)
		api.GET("/preview", h.previewEntry)
		api.GET("/preview/picks", h.previewPicks)
		api.GET("/preview/leaderboard", h.previewLeaderboard)
	}

	r.POST("/payments/confirmed", h.webhookAuth(), h.paymentConfirmed)

	events := r.Group("/events/:slug", h.sessionMiddleware())
	{
		events.GET("", h.entry)
		events.POST("/password", h.entryPassword)
		events.POST("/name", h.submitName)

		gated := events.Group("", h.entryGate())
		gated.POST("/confirm-identity", h.confirmIdentity)
		gated.GET("/picks", h.picksPage)
		gated.POST("/picks", h.submitPicks)
		gated.GET("/leaderboard", h.leaderboard)

		events.GET("/grade", h.gradingEntry)
		events.POST("/grade/password", h.gradingPassword)

		grading := events.Group("", h.gradingGate())
		grading.GET("/grade/questions", h.gradingQuestions)
		grading.POST("/grade", h.grade)
	}
	return r
}

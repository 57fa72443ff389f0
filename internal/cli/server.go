package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prediction-pool/internal/app"
	"prediction-pool/internal/auth"
	"prediction-pool/internal/config"
	"prediction-pool/internal/infra/memory"
	"prediction-pool/internal/infra/payments"
	"prediction-pool/internal/infra/postgres"
	redisinfra "prediction-pool/internal/infra/redis"
	transport "prediction-pool/internal/transport/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the pool server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store app.Store = memory.NewStore()
	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		db, err := openBun(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := runMigrations(ctx, db, log); err != nil {
			return err
		}
		store = postgres.NewStore(db)

		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info("using postgres store")
	} else {
		log.Warn("postgres url not configured, pool data is kept in memory")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 12*time.Hour)

	var loader memory.PromptLoader = memory.NewFilePromptLoader(cfg.Prompts.File)
	if pool != nil {
		loader = postgres.NewPromptLoader(pool)
	}
	promptTTL := config.TTLDuration(cfg.Prompts.TTL, 10*time.Minute)

	var prompts app.PromptRepository
	var sessions app.SessionStore
	if redisClient != nil {
		prompts = redisinfra.NewPromptRepository(redisClient, loader, promptTTL)
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		prompts = memory.NewPromptRepository(loader, promptTTL)
		sessions = memory.NewSessionStore(sessionTTL)
	}

	var gateway app.PaymentGateway
	if cfg.Payments.StripeSecretKey != "" {
		gateway = payments.NewStripeCheckout(cfg.Payments.StripeSecretKey, cfg.Payments.SuccessURL, cfg.Payments.CancelURL, nil)
		log.Info("payments: stripe checkout")
	} else {
		links, err := payments.NewCheckoutLinks(cfg.Payments.CheckoutURL, cfg.Payments.SuccessURL, cfg.Payments.CancelURL)
		if err != nil {
			return err
		}
		gateway = links
	}

	participantTTL := config.TTLDuration(cfg.Auth.ParticipantTTL, auth.ParticipantTTL)
	service := app.NewPoolService(app.Deps{
		Store:    store,
		Sessions: sessions,
		Tokens:   auth.NewParticipantTokens(cfg.Auth.ParticipantSecret, participantTTL),
		Payments: gateway,
		Prompts:  prompts,
		Logger:   log,
	})

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	handler := transport.NewHandler(service, transport.Options{
		Organizers:    auth.NewOrganizerTokens(cfg.Auth.OrganizerSecret),
		WebhookToken:  cfg.Payments.WebhookToken,
		SecureCookies: cfg.Server.SecureCookies,
		Logger:        log,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting prediction pool")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-admin-service/internal/app"
	"quiz-admin-service/internal/config"
	"quiz-admin-service/internal/domain"
	"quiz-admin-service/internal/infra/memory"
	"quiz-admin-service/internal/infra/postgres"
	redisinfra "quiz-admin-service/internal/infra/redis"
	"quiz-admin-service/internal/notify"
	transport "quiz-admin-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the admin backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)

	sender := notify.NewSender(cfg.Email.BaseURL, cfg.Email.APIKey, cfg.Email.From)
	dispatcher := notify.NewDispatcher(sender)
	bus := app.NewEventBus()

	var (
		attempts  app.AttemptStore
		answers   app.AnswerStore
		certs     app.CertificateStore
		loader    redisinfra.SettingsLoader
		users     app.RecipientSource
		analytics app.AnalyticsStore
	)

	if cfg.Postgres.URL != "" {
		db := postgres.Open(cfg.Postgres.URL)
		attempts = postgres.NewAttemptStore(db)
		answers = postgres.NewAnswerStore(db)
		certs = postgres.NewCertificateStore(db)
		loader = postgres.NewQuizStore(db)
		users = postgres.NewUserStore(db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		analytics = postgres.NewAnalyticsStore(pool)
	} else {
		attemptStore := memory.NewAttemptStore()
		answerStore := memory.NewAnswerStore()
		attempts = attemptStore
		answers = answerStore
		certs = memory.NewCertificateStore()
		loader = memory.NewStaticSettingsLoader(sampleSettings())
		users = memory.NewStaticRecipients(sampleRecipients())
		memAnalytics := memory.NewAnalyticsStore(attemptStore, answerStore)
		memAnalytics.AddQuiz(memory.QuizInfo{ID: "quiz-1", Title: "Go Basics", Published: true})
		analytics = memAnalytics
		log.Printf("postgres url not configured, using in-memory stores")
	}

	var settings app.SettingsSource
	if redisClient != nil {
		settings = redisinfra.NewSettingsCache(redisClient, loader, cacheTTL)
	} else {
		settings = memory.NewSettingsCache(loader, cacheTTL)
	}

	issuer := app.NewCertificateIssuer(certs, settings, users, dispatcher)
	lifecycle := app.NewLifecycleService(attempts, answers, issuer, bus)
	aggregator := app.NewAggregator(analytics)
	handler := transport.NewHandler(lifecycle, aggregator, bus)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz admin service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	dispatcher.Wait()
	return err
}

// sampleSettings seeds the in-memory mode with one certificate-enabled quiz.
func sampleSettings() map[string]domain.CertificateSettings {
	return map[string]domain.CertificateSettings{
		"quiz-1": {
			QuizID:      "quiz-1",
			QuizTitle:   "Go Basics",
			Enabled:     true,
			TemplateRaw: `{"expiry":"1y","primaryColor":"#0ea5e9"}`,
		},
	}
}

func sampleRecipients() map[string]domain.Recipient {
	return map[string]domain.Recipient{
		"user-1": {UserID: "user-1", Email: "alice@example.com", Name: "Alice"},
	}
}

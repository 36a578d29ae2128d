package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/hearthshare/hearth-api/internal/authz"
	"github.com/hearthshare/hearth-api/internal/config"
	"github.com/hearthshare/hearth-api/internal/handlers"
	"github.com/hearthshare/hearth-api/internal/invitations"
	"github.com/hearthshare/hearth-api/internal/middleware"
	"github.com/hearthshare/hearth-api/internal/migration"
	"github.com/hearthshare/hearth-api/internal/notification"
	"github.com/hearthshare/hearth-api/internal/repository"
	"github.com/hearthshare/hearth-api/internal/routes"
	"github.com/hearthshare/hearth-api/internal/temporal"
	"github.com/hearthshare/hearth-api/internal/temporal/activities"
	"github.com/hearthshare/hearth-api/internal/temporal/workflows"
	"github.com/hearthshare/hearth-api/internal/token"
	"github.com/hearthshare/hearth-api/internal/verification"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	temporalClient tc.Client
	logger         zerolog.Logger
	expiry         *invitations.ExpiryManager
	coordinator    *invitations.Coordinator
	acceptor       *invitations.Acceptor
	verifier       *verification.Service
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	temporalLogger := temporal.NewAdapter(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Mailer for invitations and verification codes.
	mailer, err := notification.NewSMTPMailer(cfg.Email)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure mailer")
	}

	// Repositories and the invitation lifecycle engine.
	invitationRepo := repository.NewInvitationRepository(db)
	userRepo := repository.NewUserRepository(db)
	issuer := token.NewIssuer(invitationRepo)
	stateMachine := invitations.NewStateMachine(invitationRepo, userRepo, logger)
	authorizer := authz.NewRoleAuthorizer(userRepo, logger)
	expiry := invitations.NewExpiryManager(invitationRepo, authorizer, stateMachine, logger)
	coordinator := invitations.NewCoordinator(
		invitationRepo,
		userRepo,
		issuer,
		mailer,
		stateMachine,
		cfg.Invitations.ExpiryDays,
		cfg.Email.InviteURLTemplate,
		logger,
	)
	acceptor := invitations.NewAcceptor(invitationRepo, userRepo, stateMachine, logger)

	// One-time verification codes live in the ephemeral TTL store.
	codeStore := verification.NewCodeStore(
		verification.NewMemoryStore(),
		time.Duration(cfg.Verification.CodeTTLSeconds)*time.Second,
		time.Duration(cfg.Verification.ResendCooldownSeconds)*time.Second,
	)
	verifier := verification.NewService(codeStore, mailer, logger)

	// Initialize Temporal client.
	temporalClient, err := tc.Dial(tc.Options{
		Logger: temporalLogger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	defer temporalClient.Close()

	// Create the application instance.
	app := &application{
		config:         cfg,
		db:             db,
		temporalClient: temporalClient,
		logger:         logger,
		expiry:         expiry,
		coordinator:    coordinator,
		acceptor:       acceptor,
		verifier:       verifier,
	}

	// Start the Temporal worker and schedule the recurring sweep.
	temporalWorker := app.startTemporalWorker(logger)
	app.scheduleExpirySweep(logger)

	// Initialize the HTTP router and middleware.
	inviteHandler := handlers.NewInvitationHandler(coordinator, acceptor, expiry, stateMachine, invitationRepo, logger)
	verificationHandler := handlers.NewVerificationHandler(verifier, logger)
	router := routes.NewRouter(inviteHandler, verificationHandler)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker, logger)

	logger.Info().Msg("Application terminated.")
}

func (app *application) startTemporalWorker(logger zerolog.Logger) worker.Worker {
	activityImpl := &activities.Activities{
		Expiry: app.expiry,
	}

	w := worker.New(app.temporalClient, temporal.TaskQueueName, worker.Options{})

	w.RegisterWorkflow(workflows.ExpirySweepWorkflow)
	w.RegisterActivity(activityImpl)

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

// scheduleExpirySweep starts the cron workflow that drains lapsed pending
// invitations. The fixed workflow id makes repeated starts a no-op while a
// schedule is already running.
func (app *application) scheduleExpirySweep(logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := app.temporalClient.ExecuteWorkflow(ctx, tc.StartWorkflowOptions{
		ID:           temporal.SweepWorkflowID,
		TaskQueue:    temporal.TaskQueueName,
		CronSchedule: app.config.Sweep.Cron,
	}, workflows.ExpirySweepWorkflow, temporal.SweepParams{BatchSize: app.config.Sweep.BatchSize})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to schedule expiry sweep workflow")
		return
	}
	logger.Info().Str("cron", app.config.Sweep.Cron).Msg("Expiry sweep scheduled")
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the Temporal worker.
	logger.Info().Msg("Stopping Temporal worker...")
	temporalWorker.Stop()
	logger.Info().Msg("Temporal worker stopped.")
}

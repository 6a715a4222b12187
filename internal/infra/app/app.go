package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/avelar/studio-identity/internal/core/port"
	"github.com/avelar/studio-identity/internal/infra/config"
	"github.com/avelar/studio-identity/internal/infra/database"
	emailinfra "github.com/avelar/studio-identity/internal/infra/email"
	kafkainfra "github.com/avelar/studio-identity/internal/infra/kafka"
	"github.com/avelar/studio-identity/internal/infra/logger"
	"github.com/avelar/studio-identity/internal/infra/security"
	"github.com/avelar/studio-identity/internal/infra/telemetry"
	postgresrepo "github.com/avelar/studio-identity/internal/repository/postgres"
	"github.com/avelar/studio-identity/internal/transport/http/middleware"
	"github.com/avelar/studio-identity/internal/transport/http/routes"
	"github.com/avelar/studio-identity/internal/usecase"
)

// Application wires the identity service together and owns its lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

// New builds the application: logger, database, migrations, mailer, event
// publisher, services, and HTTP routes.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.Enabled {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if cfg.Postgres.Migrate {
		if err := postgresrepo.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	tokenCodec, err := security.NewTokenCodec(cfg.JWT.SigningSecret, cfg.App.Name, cfg.JWT.AccessTokenTTL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	passwordValidator := security.ValidatorFromPolicy(cfg.Password.MinLength, cfg.Password.MinStrengthScore)

	var mailer port.Mailer
	if cfg.Email.PostmarkServerToken != "" {
		mailer, err = emailinfra.NewPostmarkMailer(cfg.Email)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init postmark mailer: %w", err)
		}
		log.Info("postmark mailer initialized",
			zap.String("sender", logger.MaskEmail(cfg.Email.SenderAddress)),
			zap.String("server_token", logger.MaskString(cfg.Email.PostmarkServerToken)),
		)
	} else {
		log.Info("postmark token not configured, using logging mailer")
		mailer = emailinfra.NewLogMailer(log)
	}

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	accounts := postgresrepo.NewAccountRepository(pool)

	registrationService := usecase.NewRegistrationService(accounts, mailer, eventPublisher, tokenCodec, passwordValidator, usecase.RegistrationOptions{
		StudioName:  cfg.App.Name,
		BaseURL:     cfg.App.BaseURL,
		SendTimeout: cfg.Email.SendTimeout,
	}, log)

	authService := usecase.NewAuthService(accounts, tokenCodec, log)

	passwordResetService := usecase.NewPasswordResetService(accounts, mailer, eventPublisher, passwordValidator, usecase.PasswordResetOptions{
		StudioName:  cfg.App.Name,
		BaseURL:     cfg.App.BaseURL,
		ResetTTL:    cfg.Password.ResetTokenTTL,
		SendTimeout: cfg.Email.SendTimeout,
	}, log)

	accountService := usecase.NewAccountService(accounts, eventPublisher, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Database: pool,
		Metrics:  metrics,
		TokenTTL: tokenCodec.TTL(),
		Services: routes.ServiceSet{
			Auth:          authService,
			Registration:  registrationService,
			PasswordReset: passwordResetService,
			Accounts:      accountService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		producer: producer,
		tracer:   tracer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then drains connections.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("close kafka producer", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting identity API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down identity API")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("shutdown tracer provider", zap.Error(err))
		}
	}

	return nil
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cleanpress/laundry-pos/internal/config"
	"github.com/cleanpress/laundry-pos/internal/database"
	"github.com/cleanpress/laundry-pos/internal/handlers"
	"github.com/cleanpress/laundry-pos/internal/models"
	"github.com/cleanpress/laundry-pos/internal/notify"
	"github.com/cleanpress/laundry-pos/internal/outbox"
	"github.com/cleanpress/laundry-pos/internal/repository"
	"github.com/cleanpress/laundry-pos/internal/scheduler"
	"github.com/cleanpress/laundry-pos/internal/service"
	"github.com/cleanpress/laundry-pos/pkg/kafka"
	"github.com/cleanpress/laundry-pos/pkg/logger"
	"github.com/cleanpress/laundry-pos/pkg/middleware"
	"github.com/cleanpress/laundry-pos/pkg/retry"
)

// Server wires the POS together: the HTTP API, the reminder scheduler,
// and the outbox pipeline share one process
type Server struct {
	config              *config.Config
	logger              logger.Logger
	router              *mux.Router
	httpServer          *http.Server
	db                  *database.Database
	dlqRepo             *repository.DeadLetterRepository
	orderService        *service.OrderService
	settingsService     *service.SettingsService
	settingsStore       *notify.SettingsStore
	gateway             *notify.TwilioGateway
	reminderScheduler   *scheduler.ReminderScheduler
	outboxProcessor     *outbox.Processor
	deadLetterProcessor *outbox.DeadLetterProcessor
	kafkaProducer       *kafka.Producer
	kafkaConsumer       *kafka.Consumer
	rateLimiter         *middleware.RateLimiterMiddleware
}

// NewServer builds the full service graph and starts the background
// workers. HTTP serving itself starts with Start.
func NewServer(cfg *config.Config, logger logger.Logger) (*Server, error) {
	r := mux.NewRouter()

	db, err := database.New(cfg, logger)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	orderRepo := repository.NewOrderRepository(db, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)
	dlqRepo := repository.NewDeadLetterRepository(db, logger)
	settingsRepo := repository.NewSettingsRepository(db, logger)
	inventoryRepo := repository.NewInventoryRepository(db, logger)
	store := repository.NewStore(orderRepo, outboxRepo, logger)

	// Settings start from the environment; stored settings take over on Load
	settingsStore := notify.NewSettingsStore(models.NotificationSettings{
		AccountSid: cfg.Twilio.AccountSid,
		AuthToken:  cfg.Twilio.AuthToken,
		FromNumber: cfg.Twilio.FromNumber,
		Enabled:    cfg.Twilio.Enabled,
	})

	settingsService := service.NewSettingsService(settingsRepo, settingsStore, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := settingsService.Load(ctx); err != nil {
		logger.Warn("Failed to load stored notification settings, continuing with environment values", "error", err)
	}

	var remoteComposer notify.Composer

	if cfg.Composer.BaseURL != "" {
		remoteComposer = notify.NewHTTPComposer(cfg.Composer.BaseURL, cfg.Composer.APIKey, logger)
	}

	composer := notify.NewFailoverComposer(remoteComposer, logger)
	gateway := notify.NewTwilioGateway(settingsStore, logger)

	orderService := service.NewOrderService(
		store,
		inventoryRepo,
		composer,
		gateway,
		cfg.Reminder.SendTimeout,
		logger,
	)

	reminderScheduler := scheduler.NewReminderScheduler(
		orderRepo,
		composer,
		gateway,
		settingsStore,
		outboxRepo,
		scheduler.Config{
			ScanInterval: cfg.Reminder.ScanInterval,
			SendTimeout:  cfg.Reminder.SendTimeout,
		},
		logger,
	)

	outboxProcessor := outbox.NewProcessor(outboxRepo, dlqRepo, outbox.ProcessorConfig{
		PollingInterval: 5 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
	}, logger)

	deadLetterProcessor := outbox.NewDeadLetterProcessor(dlqRepo, &outbox.DeadLetterProcessorConfig{
		PollingInterval: 30 * time.Second,
		BatchSize:       5,
		MaxRetries:      5,
		BackoffStrategy: &retry.ExponentialBackoff{
			InitialInterval: 1 * time.Second,
			MaxInterval:     2 * time.Minute,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	}, logger)

	// Events go to Kafka when a producer can be built; otherwise they are
	// only logged and the shop keeps running
	var eventHandler outbox.MessageHandler
	var kafkaProducer *kafka.Producer
	var kafkaConsumer *kafka.Consumer

	kafkaProducer, err = kafka.NewProducer(cfg.Kafka.Brokers, logger)

	if err != nil {
		logger.Warn("Kafka producer unavailable, events will be logged only", "error", err)
		kafkaProducer = nil
		eventHandler = outbox.NewLoggingHandler(logger)
	} else {
		eventHandler = outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.EventsTopic, logger)

		kafkaConsumer, err = kafka.NewConsumer(&kafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			Topics:        []string{cfg.Kafka.EventsTopic},
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
		}, logger)

		if err != nil {
			logger.Warn("Kafka consumer unavailable, continuing without it", "error", err)
			kafkaConsumer = nil
		} else {
			kafkaConsumer.RegisterHandler(cfg.Kafka.EventsTopic, handlers.NewOrderEventsHandler(logger))
		}
	}

	for _, eventType := range []string{
		models.EventTypeOrderCreated,
		models.EventTypeOrderStatusChanged,
		models.EventTypeOrderPaid,
		models.EventTypeReminderSent,
	} {
		outboxProcessor.RegisterHandler(eventType, eventHandler)
		deadLetterProcessor.RegisterHandler(eventType, eventHandler)
	}

	rateLimiter := middleware.NewRateLimiterMiddleware(&middleware.RateLimiterConfig{
		GlobalMaxTokens:   100,
		GlobalRefillRate:  50,
		IPMaxTokens:       20,
		IPRefillRate:      5,
		TrustForwardedFor: true,
	}, logger)

	server := &Server{
		config: cfg,
		logger: logger,
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		db:                  db,
		dlqRepo:             dlqRepo,
		orderService:        orderService,
		settingsService:     settingsService,
		settingsStore:       settingsStore,
		gateway:             gateway,
		reminderScheduler:   reminderScheduler,
		outboxProcessor:     outboxProcessor,
		deadLetterProcessor: deadLetterProcessor,
		kafkaProducer:       kafkaProducer,
		kafkaConsumer:       kafkaConsumer,
		rateLimiter:         rateLimiter,
	}

	server.setupRoutes()

	reminderScheduler.Start()
	outboxProcessor.Start()
	deadLetterProcessor.Start()

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Start(); err != nil {
			logger.Error("Failed to start Kafka consumer", "error", err)
		}
	}

	return server, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the background workers, then drains the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.reminderScheduler.Stop()
	s.outboxProcessor.Stop()
	s.deadLetterProcessor.Stop()
	s.rateLimiter.Stop()

	if s.kafkaConsumer != nil {
		if err := s.kafkaConsumer.Stop(); err != nil {
			s.logger.Error("Error stopping Kafka consumer", "error", err)
		}
	}

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.Close(); err != nil {
			s.logger.Error("Error closing Kafka producer", "error", err)
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for the API
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimiter.Middleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	api.HandleFunc("/orders", s.getOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.createOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", s.getOrderByIDHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", s.updateOrderStatusHandler).Methods(http.MethodPatch)
	api.HandleFunc("/orders/{id}/payment", s.updateOrderPaymentHandler).Methods(http.MethodPatch)
	api.HandleFunc("/orders/{id}/reminder", s.manualReminderHandler).Methods(http.MethodPost)

	api.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)

	api.HandleFunc("/settings/notifications", s.getNotificationSettingsHandler).Methods(http.MethodGet)
	api.HandleFunc("/settings/notifications", s.updateNotificationSettingsHandler).Methods(http.MethodPut)

	api.HandleFunc("/inventory", s.listInventoryHandler).Methods(http.MethodGet)
	api.HandleFunc("/inventory", s.createInventoryItemHandler).Methods(http.MethodPost)
	api.HandleFunc("/inventory/{id}/stock", s.adjustStockHandler).Methods(http.MethodPatch)

	admin := s.router.PathPrefix("/api/v1/admin").Subrouter()
	admin.HandleFunc("/dead-letters", s.getDeadLettersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/dead-letters/{id}/retry", s.retryDeadLetterHandler).Methods(http.MethodPost)
	admin.HandleFunc("/dead-letters/{id}/discard", s.discardDeadLetterHandler).Methods(http.MethodPost)
	admin.HandleFunc("/notifications/status", s.notificationStatusHandler).Methods(http.MethodGet)
}

// loggingMiddleware logs every processed request
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}

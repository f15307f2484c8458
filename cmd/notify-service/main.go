package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/kobbyadu/consulta/internal/api"
	"github.com/kobbyadu/consulta/internal/booking"
	"github.com/kobbyadu/consulta/internal/config"
	"github.com/kobbyadu/consulta/internal/hub"
	"github.com/kobbyadu/consulta/internal/ingress"
	"github.com/kobbyadu/consulta/internal/notify"
	"github.com/kobbyadu/consulta/pkg/database"
	"github.com/kobbyadu/consulta/pkg/messaging"
	"github.com/kobbyadu/consulta/pkg/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.NewLogger("notify-service")

	shutdown, err := observability.InitTracer(context.Background(), observability.TracerConfig{
		ServiceName: "notify-service",
		Endpoint:    cfg.TracingEndpoint,
		Environment: cfg.Environment,
	})
	if err != nil {
		logger.Warn("tracer init failed, continuing without tracing", "error", err)
		shutdown = func(context.Context) error { return nil }
	}
	defer shutdown(context.Background())

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(cfg.DatabaseURL, "migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	bookings := booking.NewSQLRepository(db)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	var sent notify.SentStore
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// Degraded mode: markers survive only this process. Worst case
		// after a restart is a duplicate reminder, which the client-side
		// dedup window absorbs.
		logger.Warn("redis unavailable, using in-memory sent markers", "error", err)
		sent = notify.NewMemorySentStore()
	} else {
		sent = notify.NewRedisSentStore(redisClient, 0)
	}

	h := hub.New(logger)
	dispatcher := notify.NewDispatcher(logger, h)
	if cfg.ResendAPIKey != "" {
		dispatcher.Register(notify.NewEmailDriver(cfg.ResendAPIKey, cfg.FromEmail))
	}

	scheduler := notify.NewScheduler(bookings, sent, dispatcher, notify.SchedulerConfig{
		Leads:     cfg.ReminderLeads,
		Interval:  cfg.SchedulerInterval,
		Tolerance: cfg.SchedulerTolerance,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Run(ctx)
	defer scheduler.Stop()

	go runIngress(ctx, cfg, dispatcher, logger)

	router := mux.NewRouter()
	api.NewServer(bookings, dispatcher, logger).Routes(router)
	wsServer := hub.NewServer(h, cfg.JWTSecret, logger)
	router.HandleFunc("/api/v1/ws", wsServer.HandleWS).Methods("GET")

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("notify service starting", "addr", cfg.ListenAddr, "leads", cfg.ReminderLeads)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down notify service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Notify service stopped")
}

// runIngress attaches the configured broker source to the dispatcher and
// keeps it running until shutdown. Losing the broker degrades lifecycle
// pushes; reminders and the REST fallback keep working.
func runIngress(ctx context.Context, cfg *config.Config, dispatcher *notify.Dispatcher, logger *observability.Logger) {
	handle := func(e *notify.Event) {
		if err := dispatcher.Dispatch(ctx, e); err != nil {
			logger.Warn("failed to dispatch lifecycle event", "booking_id", e.BookingID, "error", err)
		}
	}

	switch cfg.BrokerKind {
	case "kafka":
		consumer := messaging.NewKafkaConsumer(cfg.KafkaBrokers, cfg.EventQueue, "notify-service")
		defer consumer.Close()
		source := ingress.NewKafkaSource(consumer, logger)
		if err := source.Run(ctx, handle); err != nil && ctx.Err() == nil {
			logger.Error("kafka ingress stopped", "error", err)
		}
	default:
		client, err := messaging.NewRabbitClient(messaging.DefaultRabbitConfig(cfg.RabbitURL))
		if err != nil {
			logger.Error("rabbitmq unavailable, lifecycle ingress disabled", "error", err)
			return
		}
		defer client.Close()
		source, err := ingress.NewRabbitSource(client, cfg.EventQueue, logger)
		if err != nil {
			logger.Error("failed to start rabbitmq ingress", "error", err)
			return
		}
		if err := source.Run(ctx, handle); err != nil && ctx.Err() == nil {
			logger.Error("rabbitmq ingress stopped", "error", err)
		}
	}
}

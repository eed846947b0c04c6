package main

import (
	"flightbook/internal/audit"
	bookingshandler "flightbook/internal/bookings/handler"
	bookingsrepo "flightbook/internal/bookings/repository"
	bookingsservice "flightbook/internal/bookings/service"
	bookingsvalidator "flightbook/internal/bookings/validator"
	"flightbook/internal/documents"
	"flightbook/internal/health"
	"flightbook/internal/notifications"
	paymentsrepo "flightbook/internal/payments/repository"
	paymentsservice "flightbook/internal/payments/service"
	paymentsvalidator "flightbook/internal/payments/validator"
	reservationshandler "flightbook/internal/reservations/handler"
	reservationsrepo "flightbook/internal/reservations/repository"
	reservationsservice "flightbook/internal/reservations/service"
	seatshandler "flightbook/internal/seats/handler"
	seatsrepo "flightbook/internal/seats/repository"
	seatsservice "flightbook/internal/seats/service"
	seatsvalidator "flightbook/internal/seats/validator"
	"flightbook/pkg/app"
	"flightbook/pkg/config"
	"flightbook/pkg/kafka"
	kafka_config "flightbook/pkg/kafka/config"
	kafkamiddleware "flightbook/pkg/kafka/middleware"
)

const ServiceName = "bookings"

type stores struct {
	seats    seatsrepo.SeatRepository
	bookings bookingsrepo.BookingRepository
	payments paymentsrepo.PaymentRepository
	locks    reservationsrepo.SweepLockRepository
	audit    audit.Writer
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Bookings service")

	if cfg.UsesMongo() {
		cfg.SetMongo()
	}
	cfg.SetRedis()
	cfg.SetRabbitMQ()
	defer cfg.GracefulShutdown()

	s := initStores(cfg)
	serverApp := app.NewApplication(cfg)

	sink := initAudit(cfg, s, serverApp)
	mailer := initMailer(cfg, serverApp)

	seats := seatsservice.NewSeatService(s.seats, seatsvalidator.NewSeatValidator(cfg.Log), sink, cfg)
	bookings := bookingsservice.NewBookingService(s.bookings, bookingsvalidator.NewBookingValidator(cfg.Log), sink, cfg)
	payments := paymentsservice.NewPaymentService(s.payments, bookings, paymentsvalidator.NewPaymentValidator(cfg.Log), sink, cfg)
	coordinator := reservationsservice.NewCoordinator(seats, bookings, payments, mailer, documents.NewRenderer(), sink, cfg)
	sweeper := reservationsservice.NewSweeper(coordinator, bookings, seats, s.locks, cfg)

	serverApp.SetApp(
		health.NewHealthHandler(healthChecks(cfg), cfg.Log),
		seatshandler.NewSeatHandler(seats, cfg.Log),
		bookingshandler.NewBookingHandler(bookings, cfg.Log),
		reservationshandler.NewReservationHandler(coordinator, cfg.PaymentWebhookSecret, cfg.Log),
	)
	serverApp.AddWorker("hold-sweeper", sweeper.Run)
	serverApp.Run()
}

func initStores(cfg *config.Config) stores {
	if !cfg.UsesMongo() {
		cfg.Log.Warn("Using in-memory stores, data is lost on restart")
		return stores{
			seats:    seatsrepo.NewMemorySeatRepository(),
			bookings: bookingsrepo.NewMemoryBookingRepository(),
			payments: paymentsrepo.NewMemoryPaymentRepository(),
			locks:    reservationsrepo.NewMemorySweepLockRepository(),
			audit:    audit.NewMemoryRepository(),
		}
	}

	cfg.Log.Info("Using Mongo stores", "database", cfg.MongoDatabaseName)
	return stores{
		seats:    seatsrepo.NewMongoSeatRepository(cfg),
		bookings: bookingsrepo.NewMongoBookingRepository(cfg),
		payments: paymentsrepo.NewMongoPaymentRepository(cfg),
		locks:    reservationsrepo.NewMongoSweepLockRepository(cfg),
		audit:    audit.NewMongoRepository(cfg),
	}
}

// initAudit publishes audit entries to Kafka when enabled and writes them to
// the store directly otherwise.
func initAudit(cfg *config.Config, s stores, serverApp *app.Application) audit.Sink {
	writer := s.audit

	if cfg.AuditEnabled {
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		kafkaCfg.LogConfiguration(cfg.Log)

		producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.AuditTopic, cfg.AuditDLQTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to create audit producer", "error", err)
		}
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
		writer = audit.NewKafkaWriter(producer)

		serverApp.OnShutdown(func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close audit producer", "error", err)
			}
		})
		cfg.Log.Info("Audit entries published to Kafka", "topic", cfg.AuditTopic)
	}

	sink := audit.NewAsyncSink(writer, cfg.Log)
	// Flushes before the producer closes.
	serverApp.OnShutdown(sink.Flush)
	return sink
}

func initMailer(cfg *config.Config, serverApp *app.Application) notifications.Dispatcher {
	if cfg.Client.RabbitMQ == nil {
		return notifications.NewLogDispatcher(cfg.Log)
	}

	dispatcher, err := notifications.NewRabbitDispatcher(cfg.Client.RabbitMQ, cfg.NotificationQueue, cfg.Log)
	if err != nil {
		cfg.Log.Warn("Failed to set up notification queue, emails will only be logged", "error", err)
		return notifications.NewLogDispatcher(cfg.Log)
	}
	serverApp.OnShutdown(func() {
		if err := dispatcher.Close(); err != nil {
			cfg.Log.Error("Failed to close notification channel", "error", err)
		}
	})
	return dispatcher
}

func healthChecks(cfg *config.Config) map[string]health.Check {
	checks := map[string]health.Check{}
	if cfg.Client.Mongo != nil {
		checks["mongo"] = health.MongoCheck(cfg.Client.Mongo)
	}
	if cfg.Client.Redis != nil {
		checks["redis"] = health.RedisCheck(cfg.Client.Redis)
	}
	return checks
}

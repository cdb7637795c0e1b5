package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"eventbook/internal/app/commands"
	"eventbook/internal/app/handlers/audit"
	availabilityapp "eventbook/internal/app/handlers/availability"
	bookingapp "eventbook/internal/app/handlers/booking"
	"eventbook/internal/app/middleware"
	appoutbox "eventbook/internal/app/outbox"
	"eventbook/internal/app/policies"
	"eventbook/internal/app/queries"
	"eventbook/internal/app/services/auth"
	"eventbook/internal/app/services/ledger"
	"eventbook/internal/app/services/lifecycle"
	"eventbook/internal/app/services/reservations"
	"eventbook/internal/domain/availability"
	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/reviews"
	"eventbook/internal/infra/broker/kafka"
	"eventbook/internal/infra/config"
	mongostore "eventbook/internal/infra/db/mongo"
	ginserver "eventbook/internal/infra/http/gin"
	"eventbook/internal/infra/inbox"
	redisledger "eventbook/internal/infra/ledger/redis"
	"eventbook/internal/infra/obs"
	relay "eventbook/internal/infra/outbox"
	"eventbook/internal/infra/storage/memory"
	"eventbook/internal/infra/storage/s3"
)

const (
	eventSource       = "app://eventbook"
	devJWTSecret      = "eventbook-dev-secret"
	archiverConsumer  = "settlement-archiver"
	bookingEventsName = "booking.cancelled"
	memoryOutboxLimit = 10000
)

type outboxStore interface {
	appoutbox.Outbox
	appoutbox.Queue
}

type application struct {
	handlers   ginserver.Handlers
	probes     map[string]obs.Probe
	background []func(ctx context.Context) error
	closers    []func(ctx context.Context) error
}

type stores struct {
	bookings    domainbooking.Repository
	reviews     reviews.Repository
	slots       availability.Repository
	outbox      outboxStore
	idempotency middleware.IdempotencyStore
	inbox       policies.Inbox
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{probes: map[string]obs.Probe{}}

	st, err := app.openStores(ctx, cfg, logger)
	if err != nil {
		app.close(logger)
		return nil, err
	}

	catalogRepo, err := memory.LoadCatalogFile(cfg.PackagesFixtures)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			app.close(logger)
			return nil, err
		}
		logger.Warn("package fixtures not found, catalog is empty", "path", cfg.PackagesFixtures)
		catalogRepo, _ = memory.NewCatalogRepository()
	}

	clock := domainbooking.Clock{Location: cfg.Location()}
	encoder := appoutbox.JSONEventEncoder{}

	ledgerSvc := &ledger.Service{
		Slots:           st.slots,
		Outbox:          st.outbox,
		Encoder:         encoder,
		DefaultCapacity: cfg.DefaultSlotCapacity,
		Logger:          logger,
	}
	resolver := &reservations.Resolver{
		Bookings:      st.bookings,
		Catalog:       catalogRepo,
		Ledger:        ledgerSvc,
		Outbox:        st.outbox,
		Encoder:       encoder,
		DisputeWindow: cfg.DisputeWindow,
		Clock:         clock,
		Logger:        logger,
	}
	machine := &lifecycle.Service{
		Bookings: st.bookings,
		Ledger:   ledgerSvc,
		Outbox:   st.outbox,
		Encoder:  encoder,
		Clock:    clock,
		Attempts: cfg.TransitionAttempts,
		Logger:   logger,
	}

	tokens := tokenService(cfg, logger)

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	(&bookingapp.CreateBookingHandler{Resolver: resolver}).Register(commandBus)
	(&bookingapp.LifecycleHandler{Lifecycle: machine}).Register(commandBus)
	(&bookingapp.SubmitReviewHandler{Bookings: st.bookings, Reviews: st.reviews, Outbox: st.outbox, Encoder: encoder}).Register(commandBus)
	(&bookingapp.BookingQueries{Bookings: st.bookings, Reviews: st.reviews, Lifecycle: machine, Clock: clock}).Register(queryBus)
	(&bookingapp.ReviewQueries{Reviews: st.reviews}).Register(queryBus)
	(&availabilityapp.Handler{Ledger: ledgerSvc}).Register(commandBus, queryBus)

	validator := middleware.NewStructValidator()
	commandsWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Authorization(middleware.RoleAuthorizer{}),
		middleware.Validation(validator),
		middleware.Idempotency(st.idempotency, nil),
		middleware.OutboxFlush(st.outbox),
	)
	queriesWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryAuthorization(middleware.RoleAuthorizer{}),
		middleware.QueryValidation(validator),
	)

	app.handlers = ginserver.Handlers{
		Booking:        ginserver.BookingHandler{Commands: commandsWithMiddleware, Queries: queriesWithMiddleware},
		Calendar:       ginserver.CalendarHandler{Commands: commandsWithMiddleware, Queries: queriesWithMiddleware},
		AuthMiddleware: ginserver.AuthMiddleware{Service: tokens, Logger: logger}.Handle,
	}

	if cfg.KafkaEnabled() {
		if err := app.wireBroker(cfg, st, logger); err != nil {
			app.close(logger)
			return nil, err
		}
	} else {
		logger.Info("KAFKA_BROKERS unset, outbox relay disabled")
	}
	return app, nil
}

// tokenService verifies bearer tokens with the shared HS256 secret. Outside
// dev the secret is mandatory, see config.Load.
func tokenService(cfg config.Config, logger *slog.Logger) *auth.Service {
	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET unset, using the development secret")
		secret = devJWTSecret
	}
	return &auth.Service{Secret: []byte(secret), TTL: cfg.JWTTTL, Issuer: cfg.JWTIssuer, Logger: logger}
}

// openStores selects the storage and ledger backends.
func (a *application) openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	st := stores{
		bookings:    memory.NewBookingRepository(),
		reviews:     memory.NewReviewRepository(),
		slots:       memory.NewSlotRepository(),
		outbox:      memory.NewBoundedOutbox(memoryOutboxLimit),
		idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		inbox:       memory.NewInbox(),
	}

	var db *mongostore.Client
	if cfg.UsesMongo() {
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return stores{}, fmt.Errorf("connect mongo: %w", err)
		}
		db = client
		a.closers = append(a.closers, client.Close)
		a.probes["mongo"] = client.Ping
		logger.Info("mongo connected", "database", cfg.MongoDB)
	}

	var indexed []mongostore.Indexed
	if cfg.StorageBackend == config.BackendMongo {
		bookings := mongostore.NewBookingRepository(db.DB)
		reviewRepo := mongostore.NewReviewRepository(db.DB)
		box := relay.NewStore(db.DB)
		idem := mongostore.NewIdempotencyStore(db.DB, cfg.IdempotencyTTL)
		in := inbox.NewStore(db.DB, archiverConsumer)
		st.bookings, st.reviews, st.outbox, st.idempotency, st.inbox = bookings, reviewRepo, box, idem, in
		indexed = append(indexed, bookings, reviewRepo, box, idem, in)
	}

	switch cfg.LedgerBackend {
	case config.BackendMongo:
		slots := mongostore.NewSlotRepository(db.DB)
		st.slots = slots
		indexed = append(indexed, slots)
	case config.BackendRedis:
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return stores{}, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		a.probes["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		st.slots = redisledger.NewSlotRepository(rdb, "")
		logger.Info("redis ledger connected", "addr", cfg.RedisAddr)
	}

	if len(indexed) > 0 {
		if err := mongostore.EnsureIndexes(ctx, indexed...); err != nil {
			return stores{}, fmt.Errorf("ensure mongo indexes: %w", err)
		}
	}
	return st, nil
}

// wireBroker starts the outbox relay and the settlement archiver consumer.
func (a *application) wireBroker(cfg config.Config, st stores, logger *slog.Logger) error {
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return producer.Close() })

	hostname, _ := os.Hostname()
	worker := &relay.Worker{
		Queue:       st.outbox,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      eventSource,
		ID:          hostname,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	a.background = append(a.background, worker.Run)

	var archive policies.ArchiveStore = memory.NewArchiveStore()
	if cfg.S3Enabled() {
		bucket, err := s3.NewArchive(s3.Options{
			Endpoint:  cfg.S3Endpoint,
			UseSSL:    cfg.S3UseSSL,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
		}, logger)
		if err != nil {
			return fmt.Errorf("s3 archive: %w", err)
		}
		archive = bucket
		a.probes["s3"] = bucket.Ping
	}
	archiver := &audit.SettlementArchiver{Inbox: st.inbox, Store: archive, Prefix: cfg.S3Prefix, Logger: logger}

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, archiver, kafka.ConsumerOptions{Logger: logger})
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return consumer.Close() })
	topic := relay.TopicFor(cfg.KafkaTopicPrefix, bookingEventsName)
	a.background = append(a.background, func(ctx context.Context) error {
		logger.Info("settlement archiver consuming", "topic", topic, "group", cfg.KafkaConsumerGroup)
		return consumer.Run(ctx, []string{topic})
	})
	return nil
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown hook failed", "error", err)
		}
	}
	a.closers = nil
}

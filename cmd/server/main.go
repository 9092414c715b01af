// @title                       Booking API
// @version                     1.0
// @description                 Housing listings with single-occupant booking and JWT authentication.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	_ "github.com/staybook/booking-api/docs"
	"github.com/staybook/booking-api/internal/api"
	"github.com/staybook/booking-api/internal/core/ports"
	"github.com/staybook/booking-api/internal/core/service"
	"github.com/staybook/booking-api/internal/infrastructure/config"
	"github.com/staybook/booking-api/internal/infrastructure/db/memory"
	"github.com/staybook/booking-api/internal/infrastructure/db/mongo"
	"github.com/staybook/booking-api/internal/infrastructure/db/postgres"
	"github.com/staybook/booking-api/internal/infrastructure/db/redis"
	"github.com/staybook/booking-api/internal/infrastructure/http/handlers"
	"github.com/staybook/booking-api/internal/infrastructure/queue"
	"github.com/staybook/booking-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; real deployments use the process environment.
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "booking-api: %v\n", err)
		os.Exit(1)
	}
}

// storage is the set of adapters selected by STORAGE_DRIVER.
type storage struct {
	users       ports.UserRepository
	housings    ports.HousingRepository
	tx          ports.TransactionManager
	events      ports.BookingEventRepository
	dedup       service.DedupChecker
	revocations ports.RevocationStore

	pg  *gorm.DB
	mdb *mongodriver.Database
	rdb *goredis.Client

	close func()
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "booking-api",
		Env:     cfg.Env,
	})

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	var publisher ports.EventPublisher = queue.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := queue.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			return err
		}
		defer func() {
			if err := rabbit.Close(); err != nil {
				log.Warn().Err(err).Msg("rabbitmq close")
			}
		}()
		publisher = rabbit
		log.Info().Str("queue", cfg.RabbitMQ.Queue).Msg("publishing booking events to rabbitmq")
	}

	tokens, err := service.NewTokenService(service.TokenConfig{
		SigningKey: cfg.JWT.Key,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		AccessTTL:  cfg.JWT.AccessTTL(),
		RefreshTTL: cfg.JWT.RefreshTTL(),
	})
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	eventService := service.NewEventService(store.events, publisher, store.dedup, logger.Component("events"))
	dispatcher := queue.NewDispatcher(cfg.Events.Workers, eventService, logger.Component("dispatcher"))
	// Workers outlive the signal context so queued events drain during shutdown.
	dispatcher.Start(context.WithoutCancel(ctx))

	authService := service.NewAuthService(store.users, store.tx, tokens, store.revocations, logger.Component("auth"))
	if err := authService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return err
	}
	housingService := service.NewHousingService(store.housings, store.tx, store.events, dispatcher, logger.Component("housing"))

	e := api.NewRouter(api.Deps{
		Log:            logger.Component("http"),
		AllowedOrigins: cfg.AllowedOrigins,
		Auth:           authService,
		Housing:        housingService,
		Tokens:         tokens,
		Revocations:    store.revocations,
		Readiness:      handlers.NewHealthDependenciesHandler(store.pg, store.mdb, store.rdb),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageDriver).Msg("starting booking api")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server forced to shutdown")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("event queue not fully drained")
	}

	log.Info().Msg("server exited")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		mem := memory.New()
		return &storage{
			users:       mem,
			housings:    mem.Housings(),
			tx:          mem,
			events:      memory.NewEventRepo(),
			dedup:       memory.NewDedup(time.Hour),
			revocations: memory.NewRevocations(),
			close:       func() {},
		}, nil
	}

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(cfg.Postgres.DSN, logger.Component("migrate")); err != nil {
			return nil, err
		}
	}

	pg, err := postgres.Connect(ctx, postgres.Config{
		DSN:   cfg.Postgres.DSN,
		Debug: cfg.IsDevelopment(),
	}, logger.Component("gorm"))
	if err != nil {
		return nil, err
	}

	mclient, mdb, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		_ = postgres.Close(pg)
		return nil, err
	}
	events := mongo.NewEventRepository(mdb)
	if err := events.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("booking event indexes not created")
	}

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		_ = mclient.Disconnect(context.Background())
		_ = postgres.Close(pg)
		return nil, err
	}

	return &storage{
		users:       postgres.NewUserRepository(pg),
		housings:    postgres.NewHousingRepository(pg),
		tx:          postgres.NewTransactionManager(pg),
		events:      events,
		dedup:       redis.NewDedupChecker(rdb),
		revocations: redis.NewRevocationStore(rdb),
		pg:          pg,
		mdb:         mdb,
		rdb:         rdb,
		close: func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("redis close")
			}
			if err := mclient.Disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
			if err := postgres.Close(pg); err != nil {
				log.Warn().Err(err).Msg("postgres close")
			}
		},
	}, nil
}

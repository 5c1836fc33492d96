package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordering/cmd"
	inkafka "ordering/internal/adapters/in/kafka"
	outkafka "ordering/internal/adapters/out/kafka"
	"ordering/internal/adapters/out/memory"
	"ordering/internal/adapters/out/postgres"
	rediscache "ordering/internal/adapters/out/redis"
	"ordering/internal/core/application/usecases/commands"
	"ordering/internal/core/ports"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	app := &cli.App{
		Name:  "ordering",
		Usage: "order state machine with a transactional outbox and inbox",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "optional dotenv file"},
		},
		Before: func(c *cli.Context) error {
			if err := godotenv.Load(c.String("env-file")); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load %s: %w", c.String("env-file"), err)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API, the outbox relay, the cleanup job and the Kafka consumer",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "in-memory", Usage: "use the in-memory store and bus instead of Postgres and Kafka"},
					&cli.BoolFlag{Name: "migrate", Usage: "apply migrations before serving"},
				},
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: migrate,
			},
			{
				Name:   "cleanup",
				Usage:  "run the retention cleanup once",
				Action: cleanup,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("ordering: %v", err)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func migrate(_ *cli.Context) error {
	config, err := cmd.LoadConfig()
	if err != nil {
		return err
	}
	if err = postgres.Migrate(config.MigrationURL()); err != nil {
		return err
	}
	newLogger().Info("migrations applied")
	return nil
}

func cleanup(c *cli.Context) error {
	config, err := cmd.LoadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	db, err := postgres.Open(config.DSN())
	if err != nil {
		return err
	}

	root := cmd.NewCompositionRoot(config, postgres.NewGormUnitOfWorkFactory(db), nil, nil, logger)
	handler, err := root.CreateCleanupRetentionCommandHandler()
	if err != nil {
		return err
	}
	command, err := commands.NewCleanupRetentionCommand(config.OutboxRetention, config.ProcessedEventRetention)
	if err != nil {
		return err
	}

	report, err := handler.Handle(c.Context, command)
	if err != nil {
		return err
	}
	logger.Info("retention cleanup finished",
		"outbox_entries", report.OutboxEntries,
		"processed_events", report.ProcessedEvents)
	return nil
}

func serve(c *cli.Context) error {
	config, err := cmd.LoadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		uowFactory ports.UnitOfWorkFactory
		bus        ports.MessageBus
		cache      ports.ProcessedEventCache
		closers    []func() error
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				logger.Warn("close failed", "error", cerr)
			}
		}
	}()

	if c.Bool("in-memory") {
		logger.Warn("serving from the in-memory store; state is lost on exit")
		uowFactory = memory.NewStore()
		bus = memory.NewBus()
	} else {
		if c.Bool("migrate") {
			if err = postgres.Migrate(config.MigrationURL()); err != nil {
				return err
			}
		}
		db, openErr := postgres.Open(config.DSN())
		if openErr != nil {
			return openErr
		}
		uowFactory = postgres.NewGormUnitOfWorkFactory(db)

		kafkaBus, busErr := outkafka.NewBus(config.KafkaBrokers)
		if busErr != nil {
			return busErr
		}
		closers = append(closers, kafkaBus.Close)
		bus = kafkaBus

		if config.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
			closers = append(closers, rdb.Close)
			redisCache, cacheErr := rediscache.NewProcessedEventCache(rdb, config.RedisCacheTTL)
			if cacheErr != nil {
				return cacheErr
			}
			cache = redisCache
		}
	}

	root := cmd.NewCompositionRoot(config, uowFactory, bus, cache, logger)

	server, err := root.CreateHTTPServer()
	if err != nil {
		return err
	}
	e := echo.New()
	e.HideBanner = true
	server.Register(e)

	jobManager, err := root.CreateJobManager(relayOwner())
	if err != nil {
		return err
	}
	if err = jobManager.StartAll(); err != nil {
		return err
	}
	defer jobManager.StopAll()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.Start(fmt.Sprintf("0.0.0.0:%s", config.HTTPPort)); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if !c.Bool("in-memory") {
		consumer, err := root.CreateIntegrationEventConsumer()
		if err != nil {
			return err
		}
		reader, err := inkafka.NewReader(inkafka.ReaderConfig{
			Brokers: config.KafkaBrokers,
			GroupID: config.KafkaConsumerGroup,
			Topics:  config.KafkaInboundTopics,
		}, consumer, logger)
		if err != nil {
			return err
		}
		closers = append(closers, reader.Close)
		g.Go(func() error {
			return reader.Run(gctx)
		})
	}

	logger.Info("ordering service started", "port", config.HTTPPort)
	return g.Wait()
}

// relayOwner names this process in outbox lease columns.
func relayOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "ordering"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

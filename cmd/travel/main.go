package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"travel/internal/app"
	"travel/internal/config"
	"travel/internal/observability"
)

func main() {
	cliApp := &cli.App{
		Name:  "travel",
		Usage: "Run the travel booking services",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve the HTTP API and the booking event consumers",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
					&cli.StringFlag{Name: "services", Usage: "comma separated services to run, or all"},
					&cli.StringFlag{Name: "storage", Usage: "storage driver: postgres or memory"},
					&cli.StringFlag{Name: "bus", Usage: "bus driver: kafka, redis or memory"},
					&cli.StringFlag{Name: "log-level", Usage: "log level"},
					&cli.BoolFlag{Name: "debug-watermill", Usage: "log watermill internals"},
				},
				Action: serve,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("travel failed")
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.Init(level)

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	traceProvider, err := observability.ConfigureTraceProvider(ctx, observability.TraceConfig{
		ServiceName:    "travel",
		OTLPEndpoint:   cfg.OTLPEndpoint,
		JaegerEndpoint: cfg.JaegerEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := traceProvider.Shutdown(context.Background()); err != nil {
			logrus.WithError(err).Error("Cannot shut down trace provider")
		}
	}()

	var db *sqlx.DB
	if cfg.StorageDriver == config.StoragePostgres {
		db, err = sqlx.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
	}

	var redisClient redis.UniversalClient
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		redisClient = client
	}

	application, err := app.NewApp(
		cfg,
		watermill.NewStdLogger(cfg.WatermillDebug, false),
		app.NewClients(cfg),
		db,
		redisClient,
	)
	if err != nil {
		return err
	}

	return application.Run(ctx)
}

// loadConfig reads the environment and applies the flags given on the
// command line on top of it.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.FromEnv()

	if c.IsSet("addr") {
		cfg.HTTPAddr = c.String("addr")
	}
	if c.IsSet("services") {
		cfg.Services = config.ParseServices(c.String("services"))
	}
	if c.IsSet("storage") {
		cfg.StorageDriver = c.String("storage")
	}
	if c.IsSet("bus") {
		cfg.BusDriver = c.String("bus")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("debug-watermill") {
		cfg.WatermillDebug = c.Bool("debug-watermill")
	}

	return cfg, cfg.Validate()
}

package app

import (
	"context"
	"fmt"
	stdHTTP "net/http"
	"os"
	"time"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"travel/internal/application/usecases/admin"
	"travel/internal/application/usecases/billing"
	"travel/internal/application/usecases/cars"
	"travel/internal/application/usecases/flights"
	"travel/internal/application/usecases/hotels"
	"travel/internal/application/usecases/users"
	"travel/internal/cache"
	"travel/internal/config"
	"travel/internal/infrastructure/broker"
	"travel/internal/infrastructure/event_publisher"
	"travel/internal/interfaces/http"
	messaging "travel/internal/interfaces/message"
	"travel/internal/interfaces/message/events"
	"travel/internal/interfaces/message/outbox"
	"travel/internal/repository"
	"travel/internal/repository/memory"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg             config.Config
	watermillLogger watermill.LoggerAdapter
	logger          zerolog.Logger
	db              *sqlx.DB
	broker          *broker.Broker
	outbox          *outbox.Outbox
	router          *message.Router
	srv             *http.Server
	flights         *flights.Usecase
}

type repositories struct {
	flights flights.FlightsRepo
	hotels  hotels.HotelsRepo
	cars    cars.CarsRepo
	billing billing.BillingRepo
	users   users.UsersRepo
}

// NewApp wires the services enabled in cfg. db is required by the postgres
// storage driver and redisClient by the redis bus. Without redisClient the
// read cache is disabled.
func NewApp(
	cfg config.Config,
	watermillLogger watermill.LoggerAdapter,
	clients Clients,
	db *sqlx.DB,
	redisClient redis.UniversalClient,
) (*App, error) {
	repos, err := newRepositories(cfg, db)
	if err != nil {
		return nil, err
	}

	b, err := broker.New(cfg, redisClient, watermillLogger)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:             cfg,
		watermillLogger: watermillLogger,
		logger:          zerolog.New(os.Stdout).With().Timestamp().Logger(),
		db:              db,
		broker:          b,
	}

	readCache := cache.New(redisClient)
	var services http.Services

	if cfg.Enabled(config.ServiceFlights) {
		services.Flights = flights.NewUsecase(repos.flights, readCache, clients.Notifications, cfg.ReservationTTL, nil)
		a.flights = services.Flights
	}
	if cfg.Enabled(config.ServiceHotels) {
		services.Hotels = hotels.NewUsecase(repos.hotels, clients.Notifications, nil)
	}
	if cfg.Enabled(config.ServiceCars) {
		services.Cars = cars.NewUsecase(repos.cars, clients.Notifications, nil)
	}

	canceller := clients.Billing
	var inProcessBilling *localBilling
	if cfg.Enabled(config.ServiceBilling) {
		inProcessBilling = &localBilling{}
		canceller = inProcessBilling
	}
	if cfg.Enabled(config.ServiceUsers) {
		services.Users = users.NewUsecase(repos.users, canceller, nil)
	}

	if cfg.Enabled(config.ServiceBilling) {
		publisher, err := b.Publisher()
		if err != nil {
			return nil, err
		}

		a.outbox, err = newOutbox(cfg, db, publisher, watermillLogger)
		if err != nil {
			return nil, err
		}

		fallback := clients.UserHistory
		if services.Users != nil {
			fallback = localUserHistory{users: services.Users}
		}

		services.Billing = billing.NewUsecase(
			repos.billing,
			event_publisher.NewBookingPublisher(publisher, cfg.BookingsTopic, config.ServiceBilling),
			a.outbox,
			fallback,
			nil,
		)
		inProcessBilling.billing = services.Billing
	}

	if cfg.Enabled(config.ServiceAdmin) {
		services.Admin = admin.NewUsecase(repos.billing, readCache)
	}

	var routerIsRunning func() bool
	if serviceConsumers := consumers(cfg.ConsumerGroupPrefix, services); len(serviceConsumers) > 0 {
		a.router, err = newRouter(cfg, b, watermillLogger, serviceConsumers)
		if err != nil {
			return nil, err
		}
		routerIsRunning = a.router.IsRunning
	}

	a.srv = http.NewServer(commonHTTP.NewEcho(), services, routerIsRunning)

	return a, nil
}

func newRouter(
	cfg config.Config,
	b *broker.Broker,
	watermillLogger watermill.LoggerAdapter,
	serviceConsumers []*events.BookingConsumer,
) (*message.Router, error) {
	dlqPublisher, err := b.Publisher()
	if err != nil {
		return nil, err
	}

	return messaging.NewRouter(
		watermillLogger,
		messaging.RouterConfig{
			BookingsTopic:        cfg.BookingsTopic,
			DLQTopic:             cfg.DLQTopic,
			RetryMax:             cfg.RetryMax,
			RetryInitialInterval: cfg.RetryInitialInterval,
			RetryMaxInterval:     cfg.RetryMaxInterval,
		},
		dlqPublisher,
		b.Subscriber,
		serviceConsumers...,
	)
}

func newRepositories(cfg config.Config, db *sqlx.DB) (repositories, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return repositories{
			flights: memory.NewFlightsRepository(),
			hotels:  memory.NewHotelsRepository(),
			cars:    memory.NewCarsRepository(),
			billing: memory.NewBillingRepository(),
			users:   memory.NewUsersRepository(),
		}, nil
	case config.StoragePostgres:
		if db == nil {
			return repositories{}, fmt.Errorf("storage driver %q needs a database", cfg.StorageDriver)
		}

		trManager := manager.Must(trmsqlx.NewDefaultFactory(db))
		getter := trmsqlx.DefaultCtxGetter

		return repositories{
			flights: repository.NewFlightsRepository(db, getter, trManager),
			hotels:  repository.NewHotelsRepository(db, getter, trManager),
			cars:    repository.NewCarsRepository(db, getter, trManager),
			billing: repository.NewBillingRepository(db, getter, trManager),
			users:   repository.NewUsersRepository(db, getter, trManager),
		}, nil
	default:
		return repositories{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func newOutbox(
	cfg config.Config,
	db *sqlx.DB,
	bus message.Publisher,
	logger watermill.LoggerAdapter,
) (*outbox.Outbox, error) {
	if cfg.StorageDriver == config.StoragePostgres {
		return outbox.NewPostgres(db, bus, cfg.BookingsTopic, config.ServiceBilling, logger)
	}
	return outbox.NewMemory(bus, cfg.BookingsTopic, config.ServiceBilling, logger)
}

// consumers returns the booking event consumer of every enabled service
// that reacts to events.
func consumers(groupPrefix string, services http.Services) []*events.BookingConsumer {
	var out []*events.BookingConsumer
	if services.Users != nil {
		out = append(out, events.NewUsersConsumer(groupPrefix, services.Users))
	}
	if services.Flights != nil {
		out = append(out, events.NewFlightsConsumer(groupPrefix, services.Flights))
	}
	if services.Hotels != nil {
		out = append(out, events.NewHotelsConsumer(groupPrefix, services.Hotels))
	}
	if services.Cars != nil {
		out = append(out, events.NewCarsConsumer(groupPrefix, services.Cars))
	}
	if services.Admin != nil {
		out = append(out, events.NewAdminConsumer(groupPrefix, services.Admin))
	}
	return out
}

func (a *App) Run(ctx context.Context) error {
	if a.db != nil {
		if err := repository.InitializeDBSchema(ctx, a.db); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.router != nil {
		g.Go(func() error {
			a.logger.Info().Msg("starting router")

			return a.router.Run(ctx)
		})
	}

	g.Go(func() error {
		<-a.Running()
		a.logger.Info().Msg("router is running")

		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("starting server")
		return a.srv.Start(a.cfg.HTTPAddr)
	})

	if a.outbox != nil {
		g.Go(func() error {
			a.logger.Info().Msg("starting outbox forwarder")

			return a.outbox.Run(ctx)
		})
	}

	if a.flights != nil && a.cfg.ReservationSweepInterval > 0 {
		g.Go(func() error {
			a.logger.Info().Dur("interval", a.cfg.ReservationSweepInterval).Msg("starting reservation sweeper")

			return a.flights.RunSweeper(ctx, a.cfg.ReservationSweepInterval)
		})
	}

	g.Go(func() error {
		// Shut down
		<-ctx.Done()
		a.logger.Info().Msg("shutting down")

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := a.srv.Stop(stopCtx)
		if err != nil {
			a.logger.Err(err).Msg("error stopping server")
		}

		return err
	})

	// Will block until all goroutines finish
	err := g.Wait()

	if closeErr := a.broker.Close(); closeErr != nil {
		a.logger.Err(closeErr).Msg("error closing broker")
	}

	return err
}

// Running is closed once the router handles messages. Without consumers it
// is closed right away.
func (a *App) Running() chan struct{} {
	if a.router == nil {
		running := make(chan struct{})
		close(running)
		return running
	}
	return a.router.Running()
}

func (a *App) Handler() stdHTTP.Handler {
	return a.srv.Handler()
}

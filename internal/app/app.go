// Package app wires configuration, storage, brokers and services into the
// binaries under cmd/ and the root main package.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"

	"ms-moviebooking/internal/booking/booking_api"
	bookingdb "ms-moviebooking/internal/booking/db"
	bookingredis "ms-moviebooking/internal/booking/redis"
	booking "ms-moviebooking/internal/booking/service"
	"ms-moviebooking/internal/clock"
	"ms-moviebooking/internal/config"
	"ms-moviebooking/internal/database"
	"ms-moviebooking/internal/database/migrations"
	"ms-moviebooking/internal/events"
	"ms-moviebooking/internal/kafka"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
	"ms-moviebooking/internal/rabbitmq"
	"ms-moviebooking/internal/reservation"
	sagadb "ms-moviebooking/internal/reservation/db"
	showtimedb "ms-moviebooking/internal/showtime/db"
	showtime "ms-moviebooking/internal/showtime/service"
	"ms-moviebooking/internal/showtime/showtime_api"
	"ms-moviebooking/internal/sse"
	"ms-moviebooking/internal/sweeper"
	ticketdb "ms-moviebooking/internal/tickets/db"
	qr "ms-moviebooking/internal/tickets/qr_genrator"
	tickets "ms-moviebooking/internal/tickets/service"
	"ms-moviebooking/internal/tickets/ticket_api"
	"ms-moviebooking/internal/utils"
)

type App struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *bun.DB
	Redis  *redis.Client

	// Publisher fans booking events out to the configured broker and Hub.
	Publisher    events.Publisher
	Hub          *sse.Hub
	Showtimes    *showtime.ShowtimeService
	Bookings     *booking.BookingService
	Tickets      *tickets.TicketService
	Reservations *reservation.Orchestrator
	Sweeper      *sweeper.Sweeper
}

// New connects to every backing service the configuration enables and builds
// the service graph. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg.Database.Driver != "sqlite" && cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, cfg.Database, log); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "sqlite" {
		if err := database.CreateSchema(ctx, bunDB); err != nil {
			bunDB.Close()
			return nil, fmt.Errorf("create sqlite schema: %w", err)
		}
		log.Info("DATABASE", "SQLite schema ready")
	}

	a := &App{Config: cfg, Logger: log, DB: bunDB}

	var locks reservation.SeatLocker
	if cfg.Redis.Enabled {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis connection error: %w", err)
		}
		log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))
		locks = bookingredis.NewSeatLock(a.Redis, cfg.Booking.SeatLockTTL, log)
	} else {
		log.Warn("REDIS", "Seat locks disabled; the database alone arbitrates concurrent bookings")
	}

	broker, err := newPublisher(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Hub = sse.NewHub()
	a.Publisher = events.Fanout{broker, a.Hub}

	clk := clock.NewSystem()
	a.Showtimes = showtime.NewShowtimeService(&showtimedb.DB{Bun: bunDB}, clk, log)
	a.Bookings = booking.NewBookingService(&bookingdb.DB{Bun: bunDB}, clk, log,
		booking.WithPricing(models.Pricing{TaxRate: cfg.Booking.TaxRate, ConvenienceFee: cfg.Booking.ConvenienceFee}),
		booking.WithPaymentWindow(cfg.Booking.PaymentWindow),
		booking.WithCancellationCutoff(cfg.Booking.CancellationCutoff),
	)
	a.Tickets = tickets.NewTicketService(&ticketdb.DB{Bun: bunDB}, qr.NewQRGenerator(cfg.Tickets.QRSecret), clk, log)
	a.Reservations = &reservation.Orchestrator{
		Showtimes: a.Showtimes,
		Bookings:  a.Bookings,
		Tickets:   a.Tickets,
		Locks:     locks,
		Steps:     &sagadb.DB{Bun: bunDB},
		Events:    events.NewEmitter(a.Publisher, log),
		Clock:     clk,
		Logger:    log,
	}
	a.Sweeper = sweeper.New(cfg.Sweeper, a.Reservations, a.Tickets, log)
	return a, nil
}

func newPublisher(cfg *config.Config, log *logger.Logger) (events.Publisher, error) {
	switch cfg.Events.Broker {
	case "kafka":
		if !cfg.Kafka.Enabled {
			log.Warn("KAFKA", "Kafka disabled; booking events are dropped")
			return events.Noop{}, nil
		}
		topics := append(append([]string{}, models.BookingTopics...), models.TopicPaymentSucceeded, models.TopicPaymentFailed)
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		log.Info("KAFKA", fmt.Sprintf("Publishing booking events to %v", cfg.Kafka.Brokers))
		return kafka.NewProducer(cfg.Kafka.Brokers), nil
	case "rabbitmq":
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, log)
		if err != nil {
			return nil, err
		}
		log.Info("RABBITMQ", "Publishing booking events to exchange "+rabbitmq.Exchange)
		return p, nil
	case "none", "":
		return events.Noop{}, nil
	default:
		return nil, fmt.Errorf("unsupported EVENTS_BROKER %q", cfg.Events.Broker)
	}
}

// PaymentConsumer returns the Kafka consumer for payment outcomes, or nil when
// Kafka is disabled.
func (a *App) PaymentConsumer() *kafka.Consumer {
	if !a.Config.Kafka.Enabled {
		return nil
	}
	return kafka.NewConsumer(a.Config.Kafka.Brokers, a.Config.Kafka.GroupID, a.Logger)
}

// Router mounts every API under /api and a health check at /health.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)

	r.Get("/health", a.health)
	r.Route("/api", func(r chi.Router) {
		showtime_api.NewHandler(a.Showtimes, a.Logger).RegisterRoutes(r)
		booking_api.NewHandler(a.Reservations, a.Bookings, a.Logger).RegisterRoutes(r)
		ticket_api.NewHandler(a.Tickets, a.Logger).RegisterRoutes(r)
		sse.NewHandler(a.Hub, a.Logger).RegisterRoutes(r)
	})
	return r
}

func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.Logger.LogAPI(r.Method, r.URL.Path, ww.Status(), time.Since(started))
	})
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if err := a.DB.PingContext(r.Context()); err != nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("database unavailable", err.Error()))
		return
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(r.Context()).Err(); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("redis unavailable", err.Error()))
			return
		}
	}
	utils.WriteSuccess(w, http.StatusOK, "ok", nil)
}

func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Logger.Warn("EVENTS", fmt.Sprintf("closing publisher: %v", err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

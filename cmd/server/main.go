package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/local-services-booking/internal/booking"
	"github.com/iliyamo/local-services-booking/internal/config"
	"github.com/iliyamo/local-services-booking/internal/database"
	"github.com/iliyamo/local-services-booking/internal/handler"
	"github.com/iliyamo/local-services-booking/internal/jobs"
	"github.com/iliyamo/local-services-booking/internal/logging"
	"github.com/iliyamo/local-services-booking/internal/middleware"
	"github.com/iliyamo/local-services-booking/internal/outbox"
	"github.com/iliyamo/local-services-booking/internal/payment"
	"github.com/iliyamo/local-services-booking/internal/queue"
	"github.com/iliyamo/local-services-booking/internal/repository"
	"github.com/iliyamo/local-services-booking/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Dev: cfg.IsDev()})
	log := logging.Service(logger, "booking-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("db migrate failed")
		}
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and re-drive locks disabled")
	} else {
		defer rdb.Close()
	}

	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)
	businesses := repository.NewBusinessRepo(db)
	notifications := repository.NewNotificationRepo(db)
	messages := repository.NewMessageRepo(db)
	events := repository.NewOutboxRepo(db)

	// The internal endpoint always talks to Stripe directly when a key is
	// configured; the booking service goes through it unless REFUND_MODE=direct.
	var stripeRefunder payment.Refunder
	if cfg.StripeSecretKey != "" {
		stripeRefunder = payment.NewStripeProcessor(cfg.StripeSecretKey, log.WithField("component", "stripe"))
	}
	ocfg := config.LoadOutboxConfig()
	if ocfg.FitRefundTimeout(cfg.RefundTimeout) {
		log.WithFields(logrus.Fields{"grace": ocfg.Grace, "lock_ttl": ocfg.LockTTL}).
			Warn("outbox grace and lock TTL raised above the refund timeout")
	}
	locker := outbox.NewLocker(rdb, ocfg.LockPrefix)

	var refunder payment.Refunder = payment.NewClient(cfg.InternalBaseURL, cfg.InternalSecret, cfg.RefundTimeout)
	if cfg.RefundMode == config.RefundModeDirect {
		refunder = stripeRefunder
	}

	svc := booking.NewService(booking.Deps{
		Bookings:          bookings,
		Payments:          payments,
		Businesses:        businesses,
		Notifications:     notifications,
		Messages:          messages,
		Outbox:            events,
		Refunder:          refunder,
		Logger:            log.WithField("component", "booking"),
		Locker:            locker,
		LockTTL:           ocfg.LockTTL,
		StrictTransitions: cfg.StrictTransitions,
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))
	e.Use(middleware.Metrics())

	opts := router.Options{
		JWTSecret:      cfg.JWTSecret,
		InternalSecret: cfg.InternalSecret,
		RateLimit:      config.LoadRateLimitConfig(),
		Redis:          rdb,
		Logger:         log.WithField("component", "ratelimit"),
	}
	router.RegisterRoutes(e, db)
	router.RegisterBookings(e, handler.NewBookingHandler(svc, log.WithField("component", "http")), opts)
	router.RegisterInbox(e, handler.NewInboxHandler(notifications, messages), opts)
	if stripeRefunder != nil {
		router.RegisterInternal(e, handler.NewRefundHandler(stripeRefunder, log.WithField("component", "refund-endpoint")), opts)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set; internal refund endpoint disabled")
	}

	sched := jobs.NewScheduler(log.WithField("component", "cron"))
	reconciler := jobs.NewRefundReconciler(bookings, svc, ocfg.RefundStaleAfter, log.WithField("component", "reconciler"))
	if err := sched.Add("refund-reconciler", ocfg.ReconcileSpec, reconciler); err != nil {
		log.WithError(err).Fatal("schedule reconciler")
	}

	if ocfg.Enabled {
		pub := queue.NewPublisher(cfg.AMQPURL, ocfg.Queue, log.WithField("component", "publisher"))
		defer pub.Close()

		relay := outbox.NewRelay(events, pub, outbox.RelayOptions{
			Grace:       ocfg.Grace,
			MaxAttempts: ocfg.MaxAttempts,
			BatchSize:   ocfg.BatchSize,
		}, log.WithField("component", "relay"))
		if err := sched.Add("outbox-relay", ocfg.RelaySpec, relay); err != nil {
			log.WithError(err).Fatal("schedule relay")
		}

		worker := outbox.NewWorker(events, svc, locker, ocfg.LockTTL, log.WithField("component", "redrive"))
		consumer := queue.NewConsumer(cfg.AMQPURL, ocfg.Queue, ocfg.Prefetch, worker.Handle, log.WithField("component", "consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("consumer stopped")
			}
		}()
	}
	sched.Start()

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	sched.Stop()
}

package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/redis/go-redis/v9"
	"github.com/tutorlaunch/api/internal/auth"
	"github.com/tutorlaunch/api/internal/booking"
	"github.com/tutorlaunch/api/internal/config"
	"github.com/tutorlaunch/api/internal/db"
	"github.com/tutorlaunch/api/internal/email"
	"github.com/tutorlaunch/api/internal/handlers"
	"github.com/tutorlaunch/api/internal/httpx"
	"github.com/tutorlaunch/api/internal/kafkax"
	"github.com/tutorlaunch/api/internal/otelx"
	"github.com/tutorlaunch/api/internal/outbox"
	"github.com/tutorlaunch/api/internal/payments"
	"github.com/tutorlaunch/api/internal/reminders"
	"github.com/tutorlaunch/api/internal/runtime"
	"github.com/tutorlaunch/api/internal/seed"
	"github.com/tutorlaunch/api/internal/storage"
	"github.com/tutorlaunch/api/internal/storage/memory"
)

func main() {
	service := config.String("SERVICE_NAME", "tutorlaunch-api")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	// Storage: Postgres when DATABASE_URL is set, otherwise the in-memory
	// sample mode so the site runs end to end without infrastructure.
	var (
		pool      *db.Pool
		slots     storage.SlotStore
		bookings  storage.BookingStore
		remStore  storage.ReminderStore
		seenStore storage.ProviderEventStore
		sink      booking.EventSink = booking.NopSink{}
	)
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err = db.Open(ctx, dbURL)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()

		pg := storage.New(pool)
		slots, bookings, remStore, seenStore = pg, pg, pg, pg

		outboxRepo := outbox.NewRepository(pool)
		sink = outboxRepo
		outboxPublisher := outbox.NewPublisher(outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   config.String("KAFKA_BROKERS", ""),
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go outboxPublisher.Run(ctx)
	} else {
		logger.Warn("DATABASE_URL not set; running with in-memory storage (data is lost on restart)")
		mem := memory.New()
		slots, bookings, remStore, seenStore = mem, mem, mem, mem
	}

	// Payments without webhook verification would strand every booking in
	// pending; refuse to start half-configured.
	if config.String("STRIPE_SECRET_KEY", "") != "" {
		if _, err := config.RequiredString("STRIPE_WEBHOOK_SECRET"); err != nil {
			logger.Error("STRIPE_SECRET_KEY is set but webhook verification is not configured", "err", err)
			panic(err)
		}
	}
	provider := payments.NewStripeProvider(
		config.String("STRIPE_SECRET_KEY", ""),
		config.String("STRIPE_WEBHOOK_SECRET", ""),
		config.Seconds("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 5*time.Minute),
	)

	var sender email.Sender
	if host := config.String("SMTP_HOST", ""); host != "" {
		sender = email.NewSMTPSender(host, config.String("SMTP_PORT", "1025"), config.String("SMTP_FROM", ""))
	} else {
		logger.Warn("SMTP_HOST not set; emails will be logged and dropped")
		sender = email.NewNoopSender(logger)
	}

	seeder := seed.New(slots, logger, seed.Config{
		MinOpenSlots: config.Int("SEED_MIN_OPEN_SLOTS", 10),
		HorizonDays:  config.Int("SEED_HORIZON_DAYS", 14),
		DayStartHour: config.Int("SEED_DAY_START_HOUR", 9),
		DayEndHour:   config.Int("SEED_DAY_END_HOUR", 17),
	})

	svc := booking.NewService(slots, bookings, provider, logger, booking.ServiceConfig{
		AmountCents: int64(config.Int("DEPOSIT_AMOUNT_CENTS", 5000)),
		SuccessURL:  config.String("CHECKOUT_SUCCESS_URL", "http://localhost:3000/booking/success"),
		CancelURL:   config.String("CHECKOUT_CANCEL_URL", "http://localhost:3000/booking/cancelled"),
	})
	reminderLead := time.Duration(config.Int("REMINDER_LEAD_MINUTES", 1440)) * time.Minute
	processor := booking.NewProcessor(slots, bookings, remStore, seenStore, sender, sink, logger, reminderLead)
	dispatcher := reminders.NewDispatcher(remStore, bookings, slots, sender, sink, logger)

	// Reminder dispatch is normally cron-driven through POST /reminders; the
	// poll loop is for deployments without an external scheduler.
	if every := config.Seconds("REMINDER_POLL_SECONDS", 0); every > 0 {
		go func() {
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					sent, pending, err := dispatcher.DispatchDue(ctx, time.Now().UTC())
					if err != nil {
						logger.Error("reminder poll run failed", "err", err)
						continue
					}
					if sent > 0 || pending > 0 {
						logger.Info("reminder poll run", "sent", sent, "pending", pending)
					}
				}
			}
		}()
	}

	adminGuard := auth.NewAdminGuard(config.String("ADMIN_KEY_HASH", ""), config.String("ADMIN_KEY", ""))
	cronGuard := auth.NewCronGuard(config.String("CRON_SECRET", ""))

	h := handlers.New(slots, bookings, seeder, svc, processor, provider, dispatcher, logger)

	readyChecks := []runtime.ReadyCheck{}
	if pool != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/slots", func(w http.ResponseWriter, r *http.Request) {
		// Listing is public; creating slots is the tutor's admin operation.
		if r.Method == http.MethodPost {
			adminGuard.Require(h.CreateSlot)(w, r)
			return
		}
		h.ListSlots(w, r)
	})
	mux.HandleFunc("/bookings", h.CreateBooking)
	mux.HandleFunc("/payments/webhook", h.Webhook)
	mux.HandleFunc("/reminders", cronGuard.Require(h.DispatchReminders))
	mux.HandleFunc("/admin/bookings", adminGuard.Require(h.ListBookings))

	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var limit httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: config.String("REDIS_PASSWORD", "")})
		defer rdb.Close()
		limit = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service).Middleware(logger, true)
	} else {
		limit = httpx.NewRateLimiter(rateLimit, time.Minute).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitOrigins(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", auth.AdminKeyHeader, auth.CronSecretHeader},
			MaxAge:         10 * time.Minute,
		}),
		limit,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 15*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "api")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func splitOrigins(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

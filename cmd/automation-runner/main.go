// cmd/automation-runner/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"school-event-automation/internal/automation"
	"school-event-automation/internal/cascade"
	"school-event-automation/internal/clock"
	"school-event-automation/internal/common/config"
	"school-event-automation/internal/common/database"
	"school-event-automation/internal/common/errors"
	"school-event-automation/internal/common/logger"
	"school-event-automation/internal/common/observability"
	"school-event-automation/internal/delivery"
	"school-event-automation/internal/recipients"
	"school-event-automation/internal/store/postgres"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting automation runner...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("automation-runner")
	defer obs.Shutdown()

	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.Automation.Timezone)
	if err != nil {
		zapLog.Fatal("invalid timezone", zap.Error(err), zap.String("timezone", cfg.Automation.Timezone))
	}

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry (send claims; optional) ---
	var claimer automation.Claimer = automation.NoopClaimer{}
	if cfg.Database.Redis.Enabled {
		var rds *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rds, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rds.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rds.Close()
		claimer = automation.NewRedisClaimer(rds.Client, cfg.Automation.ClaimTTL())
		zapLog.Info("Redis connected successfully")
	} else {
		zapLog.Warn("Redis disabled; overlapping runs rely on the delivery log alone")
	}

	// --- Delivery provider ---
	var mailer delivery.Mailer
	switch cfg.Delivery.Provider {
	case "smtp":
		mailer = delivery.NewSMTPMailer(delivery.SMTPConfig{
			Host:     cfg.Delivery.SMTP.Host,
			Port:     cfg.Delivery.SMTP.Port,
			Username: cfg.Delivery.SMTP.Username,
			Password: cfg.Delivery.SMTP.Password,
			UseTLS:   cfg.Delivery.SMTP.UseTLS,
			From:     cfg.Delivery.FromEmail,
		}, log)
	default:
		mailer, err = delivery.NewSESMailer(ctx, cfg.Delivery.AWS.Region, cfg.Delivery.FromEmail, log)
		if err != nil {
			zapLog.Fatal("SES client failed", zap.Error(err))
		}
	}
	zapLog.Info("Delivery provider initialized", zap.String("provider", cfg.Delivery.Provider))

	// --- Build the trigger engine ---
	st := postgres.New(pg.DB, log)
	engine := automation.NewEngine(
		st,
		recipients.NewResolver(st, log),
		mailer,
		claimer,
		clock.System(),
		loc,
		cfg.Automation.SendDelay(),
		errors.NewReporter(log),
		log,
	)

	// --- Supplier-order view ---
	aggregator := cascade.NewAggregator(st, cascade.AggregationConfig{
		Category:      cfg.Tasks.OrderCategory,
		OrderLeadDays: cfg.Tasks.OrderLeadDays,
		WindowBefore:  cfg.Tasks.OrderWindowBefore,
		WindowAfter:   cfg.Tasks.OrderWindowAfter,
	}, clock.System(), loc, log)

	// --- Metrics endpoint ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("metrics server failed", zap.Error(err))
		}
	}()

	// --- Hourly tick loop ---
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runOnce := func() {
		start := time.Now()
		result, err := engine.ProcessAutomation(runCtx, cfg.Automation.DryRun, nil)
		if err != nil {
			obs.RecordRun(runCtx, "error")
			zapLog.Error("automation run failed", zap.Error(err))
			return
		}
		obs.RecordRun(runCtx, "ok")
		obs.RecordRunDuration(runCtx, time.Since(start), "ok")
		zapLog.Info("automation run complete",
			zap.Int("templates", result.TemplatesProcessed),
			zap.Int("sent", result.Sent),
			zap.Int("failed", result.Failed),
			zap.Int("skipped", result.Skipped),
			zap.Int("errors", len(result.Errors)),
		)

		groups, err := aggregator.PendingOrders(runCtx)
		if err != nil {
			zapLog.Error("supplier order aggregation failed", zap.Error(err))
			return
		}
		overdue := 0
		for _, g := range groups {
			if g.Urgency < 0 {
				overdue++
			}
		}
		zapLog.Info("supplier order view refreshed",
			zap.Int("events", len(groups)),
			zap.Int("overdue", overdue),
		)
	}

	go func() {
		runOnce()
		ticker := time.NewTicker(time.Until(nextHour(time.Now())))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// Re-align to the top of the hour after every tick.
				ticker.Reset(time.Until(nextHour(time.Now())))
				runOnce()
			case <-runCtx.Done():
				return
			}
		}
	}()

	zapLog.Info("Automation runner started",
		zap.String("timezone", cfg.Automation.Timezone),
		zap.Bool("dryRun", cfg.Automation.DryRun),
	)

	// --- Graceful shutdown ---
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	zapLog.Info("Shutting down", zap.String("signal", sig.String()))
	cancel()
}

// nextHour returns the next top-of-hour after t, plus a small grace so
// the tick lands safely inside the new hour.
func nextHour(t time.Time) time.Time {
	return t.Truncate(time.Hour).Add(time.Hour + 5*time.Second)
}

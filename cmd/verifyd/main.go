// Command verifyd runs the tiered email verification service: an HTTP
// front end over the dispatcher cascade in internal/dispatcher, backed by
// a durable verdict store and an ephemeral domain-facts cache.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/kadenwood/verifyd/internal/catchall"
	"github.com/kadenwood/verifyd/internal/config"
	"github.com/kadenwood/verifyd/internal/dispatcher"
	"github.com/kadenwood/verifyd/internal/enrich"
	"github.com/kadenwood/verifyd/internal/mx"
	"github.com/kadenwood/verifyd/internal/smtp"
	"github.com/kadenwood/verifyd/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "VERIFYD: ", log.Ldate|log.Ltime|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load configuration: %v", err)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: cfg.Environment}); err != nil {
			logger.Printf("sentry init failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	st, err := buildStore(cfg)
	if err != nil {
		logger.Fatalf("failed to build verdict store: %v", err)
	}

	resolver := mx.New(time.Duration(cfg.MXFreshnessHours) * time.Hour)
	probe := smtp.New(cfg.HELODomain, cfg.FromAddress, cfg.SMTPConnectTimeout, cfg.SMTPCommandTimeout, cfg.SMTPProxyURI)
	prober := catchall.New(probe)
	enricher := buildEnricher(cfg)

	d := dispatcher.New(cfg, resolver, probe, prober, enricher, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refreshWorker := dispatcher.NewRefreshWorker(d, 15*time.Minute, 200)
	go refreshWorker.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "verifyd",
		ReadTimeout:  cfg.RequestBudgetFull + 5*time.Second,
		WriteTimeout: cfg.RequestBudgetFull + 5*time.Second,
	})
	setupRoutes(app, d, st)

	go func() {
		addr := ":" + cfg.ServerPort
		logger.Printf("verifyd listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("server stopped: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logrus.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)

	if closer, ok := st.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// buildStore wires the durable/ephemeral pair behind Compose, or an
// in-memory store alone when CACHE_BACKEND=embedded and Redis is disabled
// — useful for local runs and the CI smoke path.
func buildStore(cfg *config.Config) (store.Store, error) {
	if cfg.CacheBackend == config.CacheBackendEmbedded && !cfg.Redis.Enabled {
		return store.NewMemory(), nil
	}

	durable, err := store.NewDurable(cfg.Postgres)
	if err != nil {
		return nil, err
	}

	mxTTL := time.Duration(cfg.MXFreshnessHours) * time.Hour
	catchAllTTL := time.Duration(cfg.CatchAllFreshnessDays) * 24 * time.Hour
	ephemeral := store.NewEphemeral(cfg.Redis, mxTTL, catchAllTTL)

	return store.NewCompose(durable, ephemeral), nil
}

// buildEnricher wires the cheap/expensive HTTP providers when enrichment
// is enabled; both may be nil, which Enricher.Lookup treats as "skip this
// stage of the waterfall".
func buildEnricher(cfg *config.Config) *enrich.Enricher {
	if !cfg.Enrichment.Enabled {
		return enrich.NewEnricher(nil, nil)
	}

	var cheap, expensive enrich.Provider
	if cfg.Enrichment.CheapEndpoint != "" {
		cheap = &enrich.HTTPProvider{
			ProviderName:  "cheap",
			Endpoint:      cfg.Enrichment.CheapEndpoint,
			APIKey:        cfg.Enrichment.CheapAPIKey,
			Client:        &http.Client{Timeout: 5 * time.Second},
			BuildRequest:  defaultEnrichmentRequest,
			ParseResponse: defaultEnrichmentResponse,
		}
	}
	if cfg.Enrichment.ExpenseEndpoint != "" {
		expensive = &enrich.HTTPProvider{
			ProviderName:  "expensive",
			Endpoint:      cfg.Enrichment.ExpenseEndpoint,
			APIKey:        cfg.Enrichment.ExpensiveAPIKey,
			Client:        &http.Client{Timeout: 10 * time.Second},
			BuildRequest:  defaultEnrichmentRequest,
			ParseResponse: defaultEnrichmentResponse,
		}
	}
	return enrich.NewEnricher(cheap, expensive)
}

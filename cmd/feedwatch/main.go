package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oddsfeed/sdk/internal/apiclient"
	"github.com/oddsfeed/sdk/internal/cache"
	"github.com/oddsfeed/sdk/internal/config"
	"github.com/oddsfeed/sdk/internal/database"
	"github.com/oddsfeed/sdk/internal/datarouter"
	"github.com/oddsfeed/sdk/internal/dispatch"
	"github.com/oddsfeed/sdk/internal/feed"
	"github.com/oddsfeed/sdk/internal/journal"
	"github.com/oddsfeed/sdk/internal/metrics"
	"github.com/oddsfeed/sdk/internal/producer"
	"github.com/oddsfeed/sdk/internal/version"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "configs/feedwatch.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting feedwatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.BaseURL,
		"feed_url", cfg.Feed.URL,
		"producers", len(cfg.Producers),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Create API client
	apiClient := apiclient.NewClient(
		cfg.API.BaseURL,
		cfg.API.AccessToken,
		apiclient.WithLogger(logger),
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	// Data router and caches
	router := datarouter.New(apiClient, logger)

	sportsCache := cache.NewSportsDataCache(router, logger)
	eventCache := cache.NewSportEventCache(router, logger)
	statusCache := cache.NewEventStatusCache()
	profileCache := cache.NewProfileCache(router, logger)

	refreshOpt := cache.WithRefreshSchedule(cfg.Refresh.Warmup, cfg.Refresh.Period)
	marketCache := cache.NewMarketDescriptionCache(router, cfg.Locales.Preload, logger, refreshOpt)
	variantCache := cache.NewVariantDescriptionCache(router, cfg.Locales.Preload, logger, refreshOpt)

	router.AddSportListener(sportsCache)
	router.AddEventListener(eventCache)
	router.AddProfileListener(profileCache)
	router.AddStatusListener(statusCache)
	router.AddMarketListener(marketCache)
	router.AddVariantListener(variantCache)
	router.SetFixtureMarkSource(eventCache)

	// Producer registry and recovery manager
	registry := producer.NewRegistry()
	for _, pc := range cfg.Producers {
		registry.Add(producer.Producer{
			ID:                   pc.ID,
			Name:                 pc.Name,
			Enabled:              pc.Enabled,
			Virtual:              pc.Virtual,
			MaxInactivity:        pc.MaxInactivity,
			MaxRecoveryExecution: pc.MaxRecoveryExecution,
		})
	}

	manager := producer.NewManager(producer.Config{
		CheckInterval: cfg.Recovery.CheckInterval,
		RetryInterval: cfg.Recovery.RetryInterval,
		MaxAfterAge:   cfg.Recovery.MaxAfterAge,
	}, registry, apiClient, logger)

	// Feed consumer and dispatcher
	consumer := feed.NewConsumer(feed.ConsumerConfig{
		Client: feed.ClientConfig{
			URL:          cfg.Feed.URL,
			AccessToken:  cfg.API.AccessToken,
			BufferSize:   cfg.Feed.BufferSize,
			WriteTimeout: cfg.Feed.WriteTimeout,
			PingTimeout:  cfg.Feed.PingTimeout,
		},
		ReconnectBaseWait: cfg.Feed.ReconnectBaseDelay,
		ReconnectMaxWait:  cfg.Feed.ReconnectMaxDelay,
	}, logger)

	dispatcher := dispatch.NewDispatcher(
		dispatch.DefaultConfig(),
		consumer.Messages(),
		consumer.Events(),
		manager,
		registry,
		eventCache,
		statusCache,
		logger,
	)

	// Metrics server
	metricsServer := metrics.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, logger)
	m := metrics.New()
	if err := m.Register(metricsServer.Registry()); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}
	router.SetInstruments(m)
	dispatcher.SetInstruments(m)

	metricsServer.Handle("/health", healthHandler(registry, dispatcher))
	metricsServer.Handle("/debug/producers", producersHandler(registry))

	if err := metricsServer.Start(); err != nil {
		logger.Error("failed to start metrics server", "error", err)
		os.Exit(1)
	}
	defer stopComponent("metrics server", metricsServer.Stop, logger)

	// Producer transition observer: one log line and one gauge update
	// per transition, in transition order.
	go observeTransitions(ctx, registry.Changes(), m, logger)

	// Cache size sampler.
	go sampleSizes(ctx, m, eventCache, statusCache)

	// Optional odds journal
	var writer *journal.OddsWriter
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		writer = journal.NewOddsWriter(journal.WriterConfig{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}, dispatcher.OddsChanges(), dispatcher.MarketEvents(), pool, logger)
		writer.SetInstruments(m)
	}

	// Start components: description refreshes, then the liveness
	// manager and dispatcher, then the journal, and the feed connection
	// last so everything downstream is ready for the first frame.
	if err := marketCache.Start(ctx); err != nil {
		logger.Error("failed to start market description refresh", "error", err)
		os.Exit(1)
	}
	defer stopComponent("market description refresh", marketCache.Stop, logger)

	if err := variantCache.Start(ctx); err != nil {
		logger.Error("failed to start variant description refresh", "error", err)
		os.Exit(1)
	}
	defer stopComponent("variant description refresh", variantCache.Stop, logger)

	if err := manager.Start(ctx); err != nil {
		logger.Error("failed to start recovery manager", "error", err)
		os.Exit(1)
	}
	defer stopComponent("recovery manager", manager.Stop, logger)

	if err := dispatcher.Start(ctx); err != nil {
		logger.Error("failed to start dispatcher", "error", err)
		os.Exit(1)
	}
	defer stopComponent("dispatcher", dispatcher.Stop, logger)

	if writer != nil {
		if err := writer.Start(ctx); err != nil {
			logger.Error("failed to start odds journal", "error", err)
			os.Exit(1)
		}
		defer stopComponent("odds journal", writer.Stop, logger)
	}

	if err := consumer.Start(ctx); err != nil {
		logger.Error("failed to connect to feed", "error", err)
		os.Exit(1)
	}
	defer stopComponent("feed consumer", consumer.Stop, logger)

	logger.Info("feedwatch running",
		"instance_id", cfg.Instance.ID,
		"journal_enabled", cfg.Journal.Enabled,
		"metrics_port", cfg.Metrics.Port,
	)

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("shutting down...")
}

// observeTransitions consumes producer status changes, keeping the
// state gauge current and recording recovery metrics.
func observeTransitions(ctx context.Context, changes <-chan producer.StatusChange, m *metrics.Metrics, logger *slog.Logger) {
	recoveringSince := make(map[int]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case change := <-changes:
			logger.Info("producer status changed",
				"producer", change.Name,
				"from", change.From,
				"to", change.To,
			)
			m.ObserveProducerState(change.Name, string(change.To))

			switch change.To {
			case producer.StateRecovering:
				recoveringSince[change.ProducerID] = change.At
				m.ObserveRecoveryRequest(change.Name)
			case producer.StateUp:
				if since, ok := recoveringSince[change.ProducerID]; ok {
					m.ObserveRecoveryDuration(change.At.Sub(since))
					delete(recoveringSince, change.ProducerID)
				}
			case producer.StateDown:
				delete(recoveringSince, change.ProducerID)
			}
		}
	}
}

// sampleSizes periodically exports cache sizes.
func sampleSizes(ctx context.Context, m *metrics.Metrics, events *cache.SportEventCache, statuses *cache.EventStatusCache) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CacheSize.WithLabelValues("sport_events").Set(float64(events.Len()))
			m.CacheSize.WithLabelValues("event_status").Set(float64(statuses.Len()))
		}
	}
}

// healthHandler reports overall health with per-component detail.
func healthHandler(registry *producer.Registry, dispatcher *dispatch.Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		up := 0
		enabled := 0
		for _, p := range registry.All() {
			if !p.Enabled {
				continue
			}
			enabled++
			if p.State == producer.StateUp {
				up++
			}
		}

		status := "healthy"
		if enabled > 0 && up < enabled {
			status = "degraded"
		}

		stats := dispatcher.Stats()
		health := map[string]any{
			"status": status,
			"components": map[string]any{
				"producers": map[string]int{"enabled": enabled, "up": up},
				"dispatcher": map[string]int64{
					"received":     stats.MessagesReceived,
					"routed":       stats.MessagesRouted,
					"parse_errors": stats.ParseErrors,
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})
}

// producersHandler dumps the producer registry for debugging.
func producersHandler(registry *producer.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(registry.All())
	})
}

// stopComponent stops one component with a bounded timeout. Used from
// defers so shutdown runs in reverse start order.
func stopComponent(name string, stop func(context.Context) error, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := stop(ctx); err != nil {
		logger.Error("component shutdown failed", "component", name, "error", err)
		return
	}
	logger.Info("component stopped", "component", name)
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Application
	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/internal/application/usecase"

	// Domain
	"github.com/avolkov/resource-sentinel/internal/domain/service"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"

	// Engine
	"github.com/avolkov/resource-sentinel/internal/monitor"

	// Infrastructure
	memorycache "github.com/avolkov/resource-sentinel/internal/infrastructure/cache/memory"
	rediscache "github.com/avolkov/resource-sentinel/internal/infrastructure/cache/redis"
	natsInfra "github.com/avolkov/resource-sentinel/internal/infrastructure/messaging/nats"
	wsInfra "github.com/avolkov/resource-sentinel/internal/infrastructure/notification/websocket"
	"github.com/avolkov/resource-sentinel/internal/infrastructure/observability/cloudwatch"
	"github.com/avolkov/resource-sentinel/internal/infrastructure/persistence/postgres"
	"github.com/avolkov/resource-sentinel/internal/infrastructure/probe"
	"github.com/avolkov/resource-sentinel/internal/infrastructure/research"
	"github.com/avolkov/resource-sentinel/internal/infrastructure/watch"

	// Interfaces
	httpInterface "github.com/avolkov/resource-sentinel/internal/interfaces/http"
	"github.com/avolkov/resource-sentinel/internal/interfaces/http/handler"
	"github.com/avolkov/resource-sentinel/internal/interfaces/http/middleware"

	// Shared
	"github.com/avolkov/resource-sentinel/pkg/config"
	"github.com/avolkov/resource-sentinel/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/semaphore"

	_ "github.com/lib/pq"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Logger
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting Resource Sentinel")

	// 3. Database
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", err)
		os.Exit(1)
	}
	log.Info("Database connected successfully")

	snapshotRepository := postgres.NewPostgresSnapshotRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Cache: Redis when configured, in-process otherwise.
	var cache port.Cache
	if cfg.Redis.Enabled {
		host, redisPort, splitErr := net.SplitHostPort(cfg.Redis.Addr)
		if splitErr != nil {
			log.Error("Invalid REDIS_ADDR", splitErr)
			os.Exit(1)
		}
		redisCache, redisErr := rediscache.NewRedisCache(
			host, redisPort, cfg.Redis.Password, cfg.Redis.DB,
			10, 2,
			5*time.Second, 3*time.Second, 3*time.Second,
		)
		if redisErr != nil {
			log.Error("Failed to connect to Redis", redisErr)
			os.Exit(1)
		}
		cache = redisCache
		log.Info("Redis cache connected", "addr", cfg.Redis.Addr)
	} else {
		cache = memorycache.New(time.Minute, port.RealClock{}, log)
		log.Info("Using in-process cache")
	}

	// 5. Event publisher (NATS)
	var events port.EventPublisher
	if cfg.NATS.Enabled {
		publisher, natsErr := natsInfra.NewPublisher(cfg.NATS.URL, log)
		if natsErr != nil {
			log.Error("Failed to connect to NATS", natsErr)
			os.Exit(1)
		}
		defer publisher.Close()
		events = publisher
		log.Info("NATS connected", "url", cfg.NATS.URL)
	}

	// 6. Prometheus metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics := monitor.NewPromMetrics(registry)

	// 7. WebSocket hub
	hub := wsInfra.NewHub(log)
	go hub.Run()

	// 8. Alert dispatcher and sinks
	dispatcher := monitor.NewAlertDispatcher(cfg.Monitor.ReAlertInterval, port.RealClock{}, log)
	dispatcher.Subscribe(wsInfra.NewAlertSink(hub), valueobject.TierWarning)
	if cfg.NATS.Enabled {
		if publisher, ok := events.(*natsInfra.Publisher); ok {
			dispatcher.Subscribe(natsInfra.NewAlertSink(publisher), valueobject.TierWarning)
		}
	}

	var metricsPublisher *cloudwatch.MetricsPublisher
	if cfg.CloudWatch.Enabled {
		metricsPublisher, err = cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			Namespace:     cfg.CloudWatch.Namespace,
			Region:        cfg.CloudWatch.Region,
			FlushInterval: cfg.CloudWatch.FlushInterval,
		})
		if err != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", err)
			os.Exit(1)
		}

		logsPublisher, logsErr := cloudwatch.NewLogsPublisher(ctx, cloudwatch.LogsPublisherConfig{
			LogGroupName:  cfg.CloudWatch.LogGroup,
			LogStreamName: "alerts-" + time.Now().UTC().Format("20060102-150405"),
			Region:        cfg.CloudWatch.Region,
			FlushInterval: cfg.CloudWatch.FlushInterval,
			AutoCreate:    true,
		})
		if logsErr != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", logsErr)
			os.Exit(1)
		}
		dispatcher.Subscribe(logsPublisher, valueobject.TierAlert)

		shutdownCW := func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer flushCancel()
			_ = metricsPublisher.Close(flushCtx)
			_ = logsPublisher.Close(flushCtx)
		}
		defer shutdownCW()
		log.Info("CloudWatch publishers started", "namespace", cfg.CloudWatch.Namespace)
	}

	// 9. Research backend health monitoring
	var healthChecker port.HealthChecker
	if cfg.Research.Enabled {
		researchClient := research.NewClient(
			cfg.Research.BaseURL,
			log,
			research.WithRateLimit(cfg.Research.RateLimit, cfg.Research.Burst),
		)
		healthMonitor := research.NewHealthMonitor(
			researchClient,
			cfg.Research.HealthEvery,
			cfg.Research.Timeout,
			3,
			port.RealClock{},
			log,
		)
		healthMonitor.Start(ctx)
		defer healthMonitor.Stop()
		healthChecker = healthMonitor
		log.Info("Research backend health monitor started", "url", cfg.Research.BaseURL)
	}

	// 10. Monitor policy
	remediateFrom, err := valueobject.ParseTier(cfg.Monitor.RemediateFrom)
	if err != nil {
		log.Error("Invalid REMEDIATE_FROM_TIER", err)
		os.Exit(1)
	}

	policy := monitor.DefaultPolicy()
	policy.ProbeInterval = cfg.Monitor.ProbeInterval
	policy.ProbeTimeout = cfg.Monitor.ProbeTimeout
	policy.MaxInterval = cfg.Monitor.MaxInterval
	policy.JitterPercent = cfg.Monitor.JitterPercent
	policy.FailureThreshold = cfg.Monitor.FailureThreshold
	policy.MaxConcurrentProbes = cfg.Monitor.MaxConcurrentProbes
	policy.AutoRemediate = cfg.Monitor.AutoRemediate
	policy.RemediateFrom = remediateFrom
	policy.ReAlertInterval = cfg.Monitor.ReAlertInterval
	policy.HealthCheckInterval = cfg.Monitor.HealthCheckInterval
	policy.EscalationWindow = cfg.Monitor.EscalationWindow
	policy.StopGracePeriod = cfg.Monitor.StopGracePeriod
	policy.Mode = monitor.ScheduleMode(cfg.Monitor.Mode)
	policy.DebounceWindow = cfg.Monitor.DebounceWindow

	remediation, err := monitor.NewRemediationEngine(monitor.DefaultTierPlans(), policy.PreservedKeys, log)
	if err != nil {
		log.Error("Failed to build remediation engine", err)
		os.Exit(1)
	}

	// 11. Sessions: one per monitored system gauge, plus the token-budget
	// session when a source file is configured. All sessions share one
	// probe slot pool.
	manager := monitor.NewManager(log)
	probeSlots := semaphore.NewWeighted(int64(policy.MaxConcurrentProbes))

	probes := make([]port.ResourceProbe, 0, 4)
	for _, g := range []struct {
		resourceID string
		kind       probe.GaugeKind
	}{
		{"system-memory", probe.GaugeMemory},
		{"system-cpu", probe.GaugeCPU},
		{"system-disk", probe.GaugeDisk},
	} {
		gaugeProbe, probeErr := probe.NewSystemGaugeProbe(g.resourceID, g.kind, "/")
		if probeErr != nil {
			log.Error("Failed to build probe", probeErr, "resource", g.resourceID)
			os.Exit(1)
		}
		probes = append(probes, gaugeProbe)
	}

	if cfg.Monitor.TokenSource != "" {
		tokenProbe, probeErr := probe.NewTokenBudgetProbe(
			"token-budget",
			cfg.Monitor.TokenModel,
			probe.DefaultModelTable(),
			defaultTokenCounter,
			fileContentSource(cfg.Monitor.TokenSource),
		)
		if probeErr != nil {
			log.Error("Failed to build token budget probe", probeErr)
			os.Exit(1)
		}
		probes = append(probes, tokenProbe)
	}

	for _, resourceProbe := range probes {
		deps := monitor.SessionDeps{
			Probe:       resourceProbe,
			Health:      healthChecker,
			Cache:       cache,
			Repository:  snapshotRepository,
			Events:      events,
			Dispatcher:  dispatcher,
			Remediation: remediation,
			Prom:        promMetrics,
			Clock:       port.RealClock{},
			ProbeSlots:  probeSlots,
			Logger:      log,
		}

		if policy.Mode == monitor.ModeEvent {
			watcher, watchErr := watch.NewFileWatcher(cfg.Monitor.WatchPaths, cfg.Monitor.DebounceWindow, log)
			if watchErr != nil {
				log.Error("Failed to build file watcher", watchErr, "resource", resourceProbe.ResourceID())
				os.Exit(1)
			}
			go watcher.Run(ctx)
			deps.EventTrigger = watcher.Events()
		}

		session, sessionErr := monitor.NewSession(policy, deps, log)
		if sessionErr != nil {
			log.Error("Failed to build session", sessionErr, "resource", resourceProbe.ResourceID())
			os.Exit(1)
		}
		if regErr := manager.Register(session); regErr != nil {
			log.Error("Failed to register session", regErr, "resource", resourceProbe.ResourceID())
			os.Exit(1)
		}
	}

	if err := manager.StartAll(ctx); err != nil {
		log.Error("Failed to start monitor sessions", err)
		os.Exit(1)
	}
	log.Info("Monitor sessions started", "count", len(probes))

	// 12. Use cases
	aggregator := service.NewSnapshotAggregator()
	thresholdPolicy, err := service.NewThresholdPolicy(service.DefaultTierBounds())
	if err != nil {
		log.Error("Failed to build threshold policy", err)
		os.Exit(1)
	}

	getStatusUC := usecase.NewGetEngineStatusUseCase(manager, log)
	getRecentAlertsUC := usecase.NewGetRecentAlertsUseCase(dispatcher, log)
	getHistoryUC := usecase.NewGetSnapshotHistoryUseCase(snapshotRepository, aggregator, thresholdPolicy, cache, log)
	triggerProbeUC := usecase.NewTriggerProbeUseCase(manager, log)

	// 13. HTTP handlers
	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}

	statusHandler := handler.NewStatusAPIHandler(getStatusUC, log)
	alertsHandler := handler.NewAlertsAPIHandler(getRecentAlertsUC, log)
	historyHandler := handler.NewHistoryAPIHandler(getHistoryUC, 24*time.Hour, log)
	probeHandler := handler.NewProbeAPIHandler(triggerProbeUC, log)
	websocketHandler := handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, log)

	router := httpInterface.NewRouter(
		statusHandler,
		alertsHandler,
		historyHandler,
		probeHandler,
		websocketHandler,
		registry,
		cfg.Security,
		log,
	)

	// 14. Background loops

	// Push engine reports to dashboard clients and CloudWatch.
	var notifier port.NotificationService = hub
	var sessionMetricsSink port.MetricsPublisher
	if metricsPublisher != nil {
		sessionMetricsSink = metricsPublisher
	}
	go broadcastReports(ctx, cfg.Monitor.ProbeInterval, manager, notifier, sessionMetricsSink, log)

	// Prune snapshots past the retention horizon once a day.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		retention := time.Duration(cfg.Monitor.RetentionDays) * 24 * time.Hour
		for {
			select {
			case <-ticker.C:
				timeRange, rangeErr := valueobject.NewTimeRangeFromDuration(retention)
				if rangeErr != nil {
					log.Error("Failed to build retention range", rangeErr)
					continue
				}
				if delErr := snapshotRepository.DeleteOlderThan(ctx, timeRange); delErr != nil {
					log.Error("Failed to prune old snapshots", delErr)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// 15. HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 16. Graceful shutdown
	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	manager.StopAll()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	log.Info("Server stopped gracefully")
}

// broadcastReports pushes the engine report to connected dashboard
// clients every probe interval and ships per-session counters to the
// external metrics platform when one is configured.
func broadcastReports(
	ctx context.Context,
	interval time.Duration,
	manager *monitor.Manager,
	notifier port.NotificationService,
	metrics port.MetricsPublisher,
	log *logger.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report := manager.Report()
			notifier.BroadcastReport(report)
			if metrics == nil {
				continue
			}
			for _, session := range report.Sessions {
				if err := metrics.PublishReport(ctx, session); err != nil {
					log.Error("Failed to publish session metrics", err,
						"resource", session.ResourceID)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// defaultTokenCounter approximates tokens as four characters each, which
// is close enough for threshold classification.
func defaultTokenCounter(content string) int {
	return len(content) / 4
}

// fileContentSource reads the monitored context file on every probe run.
func fileContentSource(path string) probe.ContentSource {
	return func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}

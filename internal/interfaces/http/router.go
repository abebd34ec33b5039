package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avolkov/resource-sentinel/internal/interfaces/http/handler"
	"github.com/avolkov/resource-sentinel/internal/interfaces/http/middleware"
	"github.com/avolkov/resource-sentinel/pkg/config"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// Router wires the engine's HTTP surface.
type Router struct {
	mux              *http.ServeMux
	statusHandler    *handler.StatusAPIHandler
	alertsHandler    *handler.AlertsAPIHandler
	historyHandler   *handler.HistoryAPIHandler
	probeHandler     *handler.ProbeAPIHandler
	websocketHandler *handler.WebSocketHandler
	registry         *prometheus.Registry
	security         config.SecurityConfig
	logger           *logger.Logger
}

func NewRouter(
	statusHandler *handler.StatusAPIHandler,
	alertsHandler *handler.AlertsAPIHandler,
	historyHandler *handler.HistoryAPIHandler,
	probeHandler *handler.ProbeAPIHandler,
	websocketHandler *handler.WebSocketHandler,
	registry *prometheus.Registry,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		statusHandler:    statusHandler,
		alertsHandler:    alertsHandler,
		historyHandler:   historyHandler,
		probeHandler:     probeHandler,
		websocketHandler: websocketHandler,
		registry:         registry,
		security:         security,
		logger:           logger,
	}
}

// Setup registers all routes and returns the composed handler.
func (rt *Router) Setup() http.Handler {
	// Health endpoints are intentionally unauthenticated for probes.
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if rt.registry != nil {
		rt.mux.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}, rt.logger)

	// WebSocket validates the token itself before the upgrade.
	rt.mux.HandleFunc("/ws", rt.websocketHandler.HandleConnection)

	rateLimiter := middleware.NewIPRateLimiter(rt.security.RateLimitRPS, rt.security.RateLimitBurst)
	api := func(h http.HandlerFunc) http.Handler {
		return middleware.RateLimit(rateLimiter)(authMiddleware(h))
	}

	rt.mux.Handle("/api/v1/status", api(rt.statusHandler.GetStatus))
	rt.mux.Handle("/api/v1/alerts/recent", api(rt.alertsHandler.GetRecentAlerts))
	rt.mux.Handle("/api/v1/snapshots/history", api(rt.historyHandler.GetHistory))
	rt.mux.Handle("/api/v1/probes/trigger", api(rt.probeHandler.TriggerProbe))

	var h http.Handler = rt.mux
	h = middleware.Compression(h)
	h = middleware.Logger(rt.logger)(h)
	h = middleware.Recovery(rt.logger)(h)

	return h
}

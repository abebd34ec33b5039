package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Monitor    MonitorConfig
	Redis      RedisConfig
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	Research   ResearchConfig
	Security   SecurityConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// MonitorConfig carries the per-session probe policy knobs.
type MonitorConfig struct {
	ProbeInterval       time.Duration
	ProbeTimeout        time.Duration
	MaxInterval         time.Duration
	JitterPercent       float64
	FailureThreshold    int
	MaxConcurrentProbes int
	AutoRemediate       bool
	RemediateFrom       string
	ReAlertInterval     time.Duration
	HealthCheckInterval time.Duration
	EscalationWindow    time.Duration
	StopGracePeriod     time.Duration
	Mode                string
	WatchPaths          []string
	DebounceWindow      time.Duration
	RetentionDays       int
	// TokenSource is the file whose token footprint the token-budget
	// session measures; empty disables that session.
	TokenSource string
	TokenModel  string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

type CloudWatchConfig struct {
	Enabled       bool
	Region        string
	Namespace     string
	LogGroup      string
	FlushInterval time.Duration
}

type ResearchConfig struct {
	Enabled     bool
	BaseURL     string
	Timeout     time.Duration
	RateLimit   float64
	Burst       int
	HealthEvery time.Duration
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() (*Config, error) {
	// Load .env if present, ignore when missing.
	_ = godotenv.Load()

	probeInterval, err := parseDuration(getEnv("PROBE_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_INTERVAL: %w", err)
	}

	probeTimeout, err := parseDuration(getEnv("PROBE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_TIMEOUT: %w", err)
	}

	maxInterval, err := parseDuration(getEnv("PROBE_MAX_INTERVAL", "8m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_MAX_INTERVAL: %w", err)
	}

	jitterPercent, err := strconv.ParseFloat(getEnv("PROBE_JITTER_PERCENT", "0.1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_JITTER_PERCENT: %w", err)
	}

	failureThreshold, err := strconv.Atoi(getEnv("PROBE_FAILURE_THRESHOLD", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_FAILURE_THRESHOLD: %w", err)
	}

	maxConcurrentProbes, err := strconv.Atoi(getEnv("MAX_CONCURRENT_PROBES", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_CONCURRENT_PROBES: %w", err)
	}

	reAlertInterval, err := parseDuration(getEnv("REALERT_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REALERT_INTERVAL: %w", err)
	}

	healthCheckInterval, err := parseDuration(getEnv("HEALTH_CHECK_INTERVAL", "150s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HEALTH_CHECK_INTERVAL: %w", err)
	}

	escalationWindow, err := parseDuration(getEnv("ESCALATION_WINDOW", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ESCALATION_WINDOW: %w", err)
	}

	stopGracePeriod, err := parseDuration(getEnv("STOP_GRACE_PERIOD", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STOP_GRACE_PERIOD: %w", err)
	}

	debounceWindow, err := parseDuration(getEnv("WATCH_DEBOUNCE_WINDOW", "250ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid WATCH_DEBOUNCE_WINDOW: %w", err)
	}

	retentionDays, err := strconv.Atoi(getEnv("SNAPSHOT_RETENTION_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid SNAPSHOT_RETENTION_DAYS: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cwFlushInterval, err := parseDuration(getEnv("CLOUDWATCH_FLUSH_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_FLUSH_INTERVAL: %w", err)
	}

	researchTimeout, err := parseDuration(getEnv("RESEARCH_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RESEARCH_TIMEOUT: %w", err)
	}

	researchRate, err := strconv.ParseFloat(getEnv("RESEARCH_RATE_LIMIT", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RESEARCH_RATE_LIMIT: %w", err)
	}

	researchBurst, err := strconv.Atoi(getEnv("RESEARCH_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RESEARCH_BURST: %w", err)
	}

	researchHealthEvery, err := parseDuration(getEnv("RESEARCH_HEALTH_INTERVAL", "150s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RESEARCH_HEALTH_INTERVAL: %w", err)
	}

	apiRateLimit, err := strconv.ParseFloat(getEnv("API_RATE_LIMIT_RPS", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid API_RATE_LIMIT_RPS: %w", err)
	}

	apiRateBurst, err := strconv.Atoi(getEnv("API_RATE_LIMIT_BURST", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "sentinel"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Monitor: MonitorConfig{
			ProbeInterval:       probeInterval,
			ProbeTimeout:        probeTimeout,
			MaxInterval:         maxInterval,
			JitterPercent:       jitterPercent,
			FailureThreshold:    failureThreshold,
			MaxConcurrentProbes: maxConcurrentProbes,
			AutoRemediate:       getEnvBool("AUTO_REMEDIATE", true),
			RemediateFrom:       getEnv("REMEDIATE_FROM_TIER", "alert"),
			ReAlertInterval:     reAlertInterval,
			HealthCheckInterval: healthCheckInterval,
			EscalationWindow:    escalationWindow,
			StopGracePeriod:     stopGracePeriod,
			Mode:                getEnv("SCHEDULE_MODE", "polling"),
			WatchPaths:          splitCSV(getEnv("WATCH_PATHS", "")),
			DebounceWindow:      debounceWindow,
			RetentionDays:       retentionDays,
			TokenSource:         getEnv("TOKEN_BUDGET_SOURCE", ""),
			TokenModel:          getEnv("TOKEN_BUDGET_MODEL", "claude-3-5-sonnet"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		CloudWatch: CloudWatchConfig{
			Enabled:       getEnvBool("CLOUDWATCH_ENABLED", false),
			Region:        getEnv("CLOUDWATCH_REGION", "us-east-1"),
			Namespace:     getEnv("CLOUDWATCH_NAMESPACE", "ResourceSentinel"),
			LogGroup:      getEnv("CLOUDWATCH_LOG_GROUP", "/resource-sentinel/alerts"),
			FlushInterval: cwFlushInterval,
		},
		Research: ResearchConfig{
			Enabled:     getEnvBool("RESEARCH_ENABLED", false),
			BaseURL:     getEnv("RESEARCH_BASE_URL", "http://localhost:9090"),
			Timeout:     researchTimeout,
			RateLimit:   researchRate,
			Burst:       researchBurst,
			HealthEvery: researchHealthEvery,
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
			RateLimitRPS:   apiRateLimit,
			RateLimitBurst: apiRateBurst,
		},
	}

	if cfg.Security.AuthEnabled && cfg.Security.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	if cfg.Monitor.ProbeInterval <= 0 {
		return nil, fmt.Errorf("PROBE_INTERVAL must be positive")
	}

	if cfg.Monitor.MaxConcurrentProbes <= 0 {
		return nil, fmt.Errorf("MAX_CONCURRENT_PROBES must be positive")
	}

	if cfg.Monitor.Mode == "event" && len(cfg.Monitor.WatchPaths) == 0 {
		return nil, fmt.Errorf("WATCH_PATHS is required when SCHEDULE_MODE=event")
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	current := ""

	for _, r := range raw {
		if r == ',' {
			if current != "" {
				items = append(items, current)
				current = ""
			}
			continue
		}
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			current += string(r)
		}
	}

	if current != "" {
		items = append(items, current)
	}

	return items
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

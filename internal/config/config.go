package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ServiceName  string

	// StorageBackend selects the store wiring: "memory" keeps all state
	// in process, "external" uses Postgres (logs, appeals) and Redis
	// (reputation).
	StorageBackend string
	RedisAddr      string
	PostgresDSN    string
	ClickHouseDSN  string
	GeoIPDB        string

	// AnalyticsEnabled toggles the ClickHouse decision stream.
	AnalyticsEnabled bool

	// ReviewerTokenSecret signs reviewer tokens for appeal resolution.
	ReviewerTokenSecret string
	ReviewerTokenTTL    time.Duration

	// Policy thresholds; see moderation.PolicyConfig.
	ToxicityWarn   float64
	ToxicityBlock  float64
	HarassmentWarn float64
	HarassmentBlock float64
	SpamWarn       float64
	SpamBlock      float64
	NSFWWarn       float64
	NSFWBlock      float64
	ViolenceWarn   float64
	ViolenceBlock  float64
	// SpamAction is "block" or "flag".
	SpamAction string

	// Reputation tuning
	ReputationStart   int
	ReputationFloor   int
	ReputationCeiling int

	// Per-user rate limiting on the moderation endpoints
	RateLimitEnabled  bool
	RateLimitCapacity int
	RateLimitRefill   int

	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Tracing configuration
	TracingEnabled    bool
	TracingEndpoint   string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Port = getenv("PORT", "8790")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 10*time.Second)
	cfg.ServiceName = getenv("SERVICE_NAME", "warden")

	cfg.StorageBackend = getenv("STORAGE_BACKEND", "memory")
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.PostgresDSN = getenv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable")
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000/default?async_insert=1&wait_for_async_insert=1")
	cfg.GeoIPDB = getenv("GEOIP_DB", "internal/geoip/testdata/GeoLite2-Country.mmdb")
	cfg.AnalyticsEnabled = envBool("ANALYTICS_ENABLED", false)

	cfg.ReviewerTokenSecret = getenv("REVIEWER_TOKEN_SECRET", "")
	cfg.ReviewerTokenTTL = envDuration("REVIEWER_TOKEN_TTL", 12*time.Hour)

	cfg.ToxicityWarn = envFloat("TOXICITY_WARN_THRESHOLD", 0.3)
	cfg.ToxicityBlock = envFloat("TOXICITY_BLOCK_THRESHOLD", 0.7)
	cfg.HarassmentWarn = envFloat("HARASSMENT_WARN_THRESHOLD", 0.3)
	cfg.HarassmentBlock = envFloat("HARASSMENT_BLOCK_THRESHOLD", 0.7)
	cfg.SpamWarn = envFloat("SPAM_WARN_THRESHOLD", 0.3)
	cfg.SpamBlock = envFloat("SPAM_BLOCK_THRESHOLD", 0.5)
	cfg.NSFWWarn = envFloat("NSFW_WARN_THRESHOLD", 0.3)
	cfg.NSFWBlock = envFloat("NSFW_BLOCK_THRESHOLD", 0.6)
	cfg.ViolenceWarn = envFloat("VIOLENCE_WARN_THRESHOLD", 0.3)
	cfg.ViolenceBlock = envFloat("VIOLENCE_BLOCK_THRESHOLD", 0.7)
	cfg.SpamAction = getenv("SPAM_ACTION", "block")

	cfg.ReputationStart = envInt("REPUTATION_START", 100)
	cfg.ReputationFloor = envInt("REPUTATION_FLOOR", 0)
	cfg.ReputationCeiling = envInt("REPUTATION_CEILING", 1000)

	cfg.RateLimitEnabled = envBool("RATE_LIMIT_ENABLED", false)
	cfg.RateLimitCapacity = envInt("RATE_LIMIT_CAPACITY", 30)
	cfg.RateLimitRefill = envInt("RATE_LIMIT_REFILL", 5)

	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)

	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TracingEndpoint = getenv("TRACING_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}

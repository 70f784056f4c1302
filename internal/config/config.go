package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"genstudio/internal/logging"
)

// Config holds configuration for the pricing server.
type Config struct {
	HTTPPort  string
	JWTSecret []byte
	Database  DatabaseConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Jobs      JobsConfig
	Audit     AuditConfig
}

// DatabaseConfig holds database connection settings.
// An empty URL selects the in-memory pricing store.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CacheConfig holds cache settings
type CacheConfig struct {
	PricingCacheSize int
	PricingCacheTTL  time.Duration
}

// RedisConfig holds Redis connection settings.
// An empty Address disables the Redis ledger and queue.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// JobsConfig holds generation job queue settings
type JobsConfig struct {
	QueueName  string
	BufferSize int // in-memory queue capacity

	// SubmitRateLimit caps submissions per user per minute; 0 disables it.
	SubmitRateLimit int
	// LedgerRefTTL is how long an applied debit/refund reference is kept.
	LedgerRefTTL time.Duration

	// GeneratorURL receives queued jobs. When empty no dispatcher runs in
	// this process and jobs wait for an external worker.
	GeneratorURL     string
	GeneratorToken   string
	GeneratorTimeout time.Duration
	BatchSize        int
	BatchTimeout     time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
}

// AuditConfig holds the pricing edit audit log settings
type AuditConfig struct {
	Enabled          bool
	FilePathTemplate string
	MaxSize          int64
	MaxFiles         int
	BufferSize       int
	FlushInterval    time.Duration

	// Rotated files are shipped to S3 when a bucket is set.
	S3Bucket   string
	S3Region   string
	S3Prefix   string
	S3Endpoint string
	PodName    string
}

// SessionConfig holds the settings of a studio or admin console session
// talking to the pricing service.
type SessionConfig struct {
	PricingAPIURL       string
	PricingAPIToken     string
	AdminAutoLogin      bool
	DefaultAspectRatios []string
	RequestTimeout      time.Duration
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvInt64(key string, defaultValue int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvList(key string, defaultValue []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// loadDotEnv reads an optional .env file. Variables already set in the
// environment win.
func loadDotEnv() {
	path := getEnvString("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		logging.Warningf("failed to load %s: %v", path, err)
	}
}

// Load reads the server configuration from the environment.
func Load() (*Config, error) {
	loadDotEnv()

	jwtSecret := getEnvString("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg := &Config{
		HTTPPort:  getEnvString("HTTP_PORT", "8080"),
		JWTSecret: []byte(jwtSecret),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Cache: CacheConfig{
			PricingCacheSize: getEnvInt("CACHE_PRICING_SIZE", 500),
			PricingCacheTTL:  getEnvDuration("CACHE_PRICING_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", ""),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Jobs: JobsConfig{
			QueueName:        getEnvString("JOBS_QUEUE_NAME", "generation:jobs"),
			BufferSize:       getEnvInt("JOBS_BUFFER_SIZE", 1000),
			SubmitRateLimit:  getEnvInt("JOBS_SUBMIT_RATE_LIMIT", 30),
			LedgerRefTTL:     getEnvDuration("LEDGER_REF_TTL", 24*time.Hour),
			GeneratorURL:     getEnvString("GENERATOR_URL", ""),
			GeneratorToken:   getEnvString("GENERATOR_TOKEN", ""),
			GeneratorTimeout: getEnvDuration("GENERATOR_TIMEOUT", 30*time.Second),
			BatchSize:        getEnvInt("JOBS_BATCH_SIZE", 10),
			BatchTimeout:     getEnvDuration("JOBS_BATCH_TIMEOUT", 5*time.Second),
			MaxRetries:       getEnvInt("JOBS_MAX_RETRIES", 3),
			RetryBackoff:     getEnvDuration("JOBS_RETRY_BACKOFF", 1*time.Second),
		},
		Audit: AuditConfig{
			Enabled:          getEnvBool("AUDIT_LOG_ENABLED", false),
			FilePathTemplate: getEnvString("AUDIT_LOG_FILE_PATH_TEMPLATE", "/var/log/pricing/audit-%s.jsonl"),
			MaxSize:          getEnvInt64("AUDIT_LOG_MAX_SIZE", 10_485_760),
			MaxFiles:         getEnvInt("AUDIT_LOG_MAX_FILES", 5),
			BufferSize:       getEnvInt("AUDIT_LOG_BUFFER_SIZE", 100),
			FlushInterval:    getEnvDuration("AUDIT_LOG_FLUSH_INTERVAL", 10*time.Second),
			S3Bucket:         getEnvString("AUDIT_LOG_S3_BUCKET", ""),
			S3Region:         getEnvString("AUDIT_LOG_S3_REGION", "us-east-1"),
			S3Prefix:         getEnvString("AUDIT_LOG_S3_PREFIX", "audit/"),
			S3Endpoint:       getEnvString("AUDIT_LOG_S3_ENDPOINT", ""),
			PodName:          getEnvString("POD_NAME", "pricing-0"),
		},
	}

	return cfg, nil
}

// LoadSession reads the client session configuration. The auto-login flag
// is read once here and handed to whoever builds the session.
func LoadSession() (*SessionConfig, error) {
	loadDotEnv()

	apiURL := strings.TrimRight(getEnvString("PRICING_API_URL", ""), "/")
	if apiURL == "" {
		return nil, fmt.Errorf("PRICING_API_URL is required")
	}

	return &SessionConfig{
		PricingAPIURL:       apiURL,
		PricingAPIToken:     getEnvString("PRICING_API_TOKEN", ""),
		AdminAutoLogin:      getEnvBool("ADMIN_AUTO_LOGIN", false),
		DefaultAspectRatios: getEnvList("DEFAULT_ASPECT_RATIOS", []string{"16:9", "9:16", "1:1", "4:3", "3:4"}),
		RequestTimeout:      getEnvDuration("PRICING_API_TIMEOUT", 30*time.Second),
	}, nil
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"

	"rbudget/internal/core"
)

// Backends a scenario can be loaded from.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
	BackendS3     = "s3"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendSheets, BackendS3}

type Config struct {
	// HTTP server
	Port               string
	AllowedOrigins     []string
	TrustedProxies     []string
	RateLimitPerMinute int

	// Scenario source
	DataBackend  string
	ScenarioDir  string
	SQLiteDBPath string
	SeedSample   bool

	// Projection
	Scenario                 string
	SimulationStart          string
	ProjectionDays           int
	MaxConcurrentProjections int
	ProjectionCacheSize      int
	ProjectionCacheTTL       time.Duration

	// AMQP
	AMQPURL          string
	AMQPExchange     string
	AMQPRequestQueue string
	AMQPResultQueue  string
	AMQPContentType  string

	// Worker schedule
	ProjectionSchedule string
	ScheduledScenarios []string

	// Google Sheets
	GoogleSpreadsheetID         string
	GoogleAccountsSheetName     string
	GoogleTransactionsSheetName string
	GoogleCredentialsFile       string
	GoogleCredentialsJSON       string

	// S3 compatible object storage
	S3Bucket          string
	S3Prefix          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES", nil),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		ScenarioDir:  getEnv("SCENARIO_DIR", ""),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/rbudget.db"),
		SeedSample:   getEnvBool("SEED_SAMPLE", true),

		Scenario:                 getEnv("SCENARIO", "default"),
		SimulationStart:          getEnv("SIMULATION_START", ""),
		ProjectionDays:           getEnvInt("PROJECTION_DAYS", 5),
		MaxConcurrentProjections: getEnvInt("MAX_CONCURRENT_PROJECTIONS", 4),
		ProjectionCacheSize:      getEnvInt("PROJECTION_CACHE_SIZE", 64),
		ProjectionCacheTTL:       getEnvDuration("PROJECTION_CACHE_TTL", 5*time.Minute),

		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "rbudget"),
		AMQPRequestQueue: getEnv("AMQP_REQUEST_QUEUE", "projection_requests"),
		AMQPResultQueue:  getEnv("AMQP_RESULT_QUEUE", "projection_results"),
		AMQPContentType:  getEnv("AMQP_CONTENT_TYPE", "application/json"),

		ProjectionSchedule: getEnv("PROJECTION_SCHEDULE", ""),
		ScheduledScenarios: getEnvList("SCHEDULED_SCENARIOS", []string{"default"}),

		GoogleSpreadsheetID:         getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleAccountsSheetName:     getEnv("GOOGLE_ACCOUNTS_SHEET_NAME", "Accounts"),
		GoogleTransactionsSheetName: getEnv("GOOGLE_TRANSACTIONS_SHEET_NAME", "Transactions"),
		GoogleCredentialsFile:       getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON:       getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Prefix:          getEnv("S3_PREFIX", "scenarios/"),
		S3Region:          getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Start returns the simulation start date, today in UTC when unset.
func (c *Config) Start(now time.Time) (core.Date, error) {
	if c.SimulationStart == "" {
		return core.DateOf(now.UTC()), nil
	}
	return core.ParseDate(c.SimulationStart)
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if port, err := strconv.Atoi(c.Port); err != nil {
		fail("invalid port '%s': must be a number", c.Port)
	} else if port < 1 || port > 65535 {
		fail("invalid port %d: must be between 1 and 65535", port)
	}
	if c.RateLimitPerMinute < 1 {
		fail("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute)
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		fail("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends)
	}
	switch c.DataBackend {
	case BackendMemory:
		if c.ScenarioDir != "" {
			if info, err := os.Stat(c.ScenarioDir); err != nil || !info.IsDir() {
				fail("scenario directory does not exist: %s", c.ScenarioDir)
			}
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			fail("SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			fail("Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleAccountsSheetName == "" || c.GoogleTransactionsSheetName == "" {
			fail("Google sheet names cannot be empty when using sheets backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				fail("Google credentials file does not exist: %s", c.GoogleCredentialsFile)
			}
		}
	case BackendS3:
		if c.S3Bucket == "" {
			fail("S3 bucket is required when using s3 backend")
		}
		if (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
			fail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
		if c.S3Endpoint != "" {
			if u, err := url.Parse(c.S3Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				fail("invalid S3 endpoint '%s': must be an http or https URL", c.S3Endpoint)
			}
		}
	}

	if c.Scenario == "" {
		fail("scenario name cannot be empty")
	}
	if c.SimulationStart != "" {
		if _, err := core.ParseDate(c.SimulationStart); err != nil {
			fail("invalid simulation start '%s': must be YYYY-MM-DD", c.SimulationStart)
		}
	}
	if c.ProjectionDays < 1 {
		fail("invalid projection days %d: must be at least 1", c.ProjectionDays)
	}
	if c.MaxConcurrentProjections < 1 || c.MaxConcurrentProjections > 64 {
		fail("invalid max concurrent projections %d: must be between 1 and 64", c.MaxConcurrentProjections)
	}
	if c.ProjectionCacheSize < 1 {
		fail("invalid projection cache size %d: must be at least 1", c.ProjectionCacheSize)
	}
	if c.ProjectionCacheTTL < time.Second {
		fail("invalid projection cache TTL %v: must be at least 1 second", c.ProjectionCacheTTL)
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			fail("invalid AMQP URL '%s': %v", c.AMQPURL, err)
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			fail("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme)
		}
		if c.AMQPExchange == "" {
			fail("AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRequestQueue == "" || c.AMQPResultQueue == "" {
			fail("AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}
	switch c.AMQPContentType {
	case "application/json", "application/msgpack":
	default:
		fail("invalid AMQP content type '%s': must be application/json or application/msgpack", c.AMQPContentType)
	}

	if c.ProjectionSchedule != "" {
		if _, err := cron.ParseStandard(c.ProjectionSchedule); err != nil {
			fail("invalid projection schedule '%s': %v", c.ProjectionSchedule, err)
		}
		if len(c.ScheduledScenarios) == 0 {
			fail("SCHEDULED_SCENARIOS cannot be empty when a projection schedule is set")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		fail("invalid log level '%s': must be debug, info, warn or error", c.LogLevel)
	}

	if result == nil {
		return nil
	}
	result.ErrorFormat = listFormat
	return result
}

func listFormat(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = err.Error()
	}
	return "configuration validation failed:\n- " + strings.Join(lines, "\n- ")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

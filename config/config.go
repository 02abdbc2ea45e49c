package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	AdminUsernames     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching, token revocation and per-user locks
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Karma rules
	DailyRewardPoints int
	UnlockCostPoints  int
	StreakCycleDays   int
	Timezone          string
	// Telemetry
	ServiceName     string
	MetricsEnabled  bool
	TracingExporter string
	OTLPEndpoint    string
}

// fileConfig mirrors the grouped layout of config/config.yaml. JSON files share the same shape.
type fileConfig struct {
	App struct {
		AppPort            string   `yaml:"AppPort"`
		JWTSecret          string   `yaml:"JWTSecret"`
		RateLimitPerMinute int      `yaml:"RateLimitPerMinute"`
		AllowedOrigins     []string `yaml:"AllowedOrigins"`
		AdminUsernames     []string `yaml:"AdminUsernames"`
		GinMode            string   `yaml:"GinMode"`
		GinPath            string   `yaml:"GinPath"`
	} `yaml:"app"`
	Database struct {
		Driver   string `yaml:"Driver"`
		URI      string `yaml:"URI"`
		Host     string `yaml:"Host"`
		Port     string `yaml:"Port"`
		User     string `yaml:"User"`
		Password string `yaml:"Password"`
		Name     string `yaml:"Name"`
	} `yaml:"database"`
	Redis struct {
		Enabled  bool   `yaml:"Enabled"`
		Host     string `yaml:"Host"`
		Port     int    `yaml:"Port"`
		DB       int    `yaml:"DB"`
		Password string `yaml:"Password"`
	} `yaml:"redis"`
	Log struct {
		Level      string `yaml:"Level"`
		Path       string `yaml:"Path"`
		MaxSizeMB  int    `yaml:"MaxSizeMB"`
		MaxBackups int    `yaml:"MaxBackups"`
		MaxAgeDays int    `yaml:"MaxAgeDays"`
		Compress   bool   `yaml:"Compress"`
	} `yaml:"log"`
	Karma struct {
		DailyRewardPoints int    `yaml:"DailyRewardPoints"`
		UnlockCostPoints  int    `yaml:"UnlockCostPoints"`
		StreakCycleDays   int    `yaml:"StreakCycleDays"`
		Timezone          string `yaml:"Timezone"`
	} `yaml:"karma"`
	Telemetry struct {
		ServiceName     string `yaml:"ServiceName"`
		MetricsEnabled  bool   `yaml:"MetricsEnabled"`
		TracingExporter string `yaml:"TracingExporter"`
		OTLPEndpoint    string `yaml:"OTLPEndpoint"`
	} `yaml:"telemetry"`
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.Mutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	// Precedence: config file -> defaults -> environment variable overrides
	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		path := filepath.Join("config", name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := loadFileConfig(path, &cfg); err != nil {
			log.Fatalf("invalid config file %s: %v", path, err)
		}
		break
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.Lock()
	ok := loaded
	mu.Unlock()
	if !ok {
		return Load()
	}
	return cfg
}

// Location resolves the timezone that defines a calendar day for daily claims.
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("unknown timezone %q, falling back to local: %v", c.Timezone, err)
		return time.Local
	}
	return loc
}

// loadFileConfig reads a YAML (or JSON) file into out. Missing sections keep zero values.
func loadFileConfig(path string, out *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return err
	}

	out.AppPort = fc.App.AppPort
	out.JWTSecret = fc.App.JWTSecret
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.AdminUsernames = fc.App.AdminUsernames
	out.GinMode = fc.App.GinMode
	out.GinPath = fc.App.GinPath

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.URI
	out.DBHost = fc.Database.Host
	out.DBPort = fc.Database.Port
	out.DBUser = fc.Database.User
	out.DBPassword = fc.Database.Password
	out.DBName = fc.Database.Name

	out.RedisEnabled = fc.Redis.Enabled
	out.RedisHost = fc.Redis.Host
	out.RedisPort = fc.Redis.Port
	out.RedisDB = fc.Redis.DB
	out.RedisPassword = fc.Redis.Password

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress

	out.DailyRewardPoints = fc.Karma.DailyRewardPoints
	out.UnlockCostPoints = fc.Karma.UnlockCostPoints
	out.StreakCycleDays = fc.Karma.StreakCycleDays
	out.Timezone = fc.Karma.Timezone

	out.ServiceName = fc.Telemetry.ServiceName
	out.MetricsEnabled = fc.Telemetry.MetricsEnabled
	out.TracingExporter = fc.Telemetry.TracingExporter
	out.OTLPEndpoint = fc.Telemetry.OTLPEndpoint
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "reel"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.DailyRewardPoints == 0 {
		c.DailyRewardPoints = 10
	}
	if c.UnlockCostPoints == 0 {
		c.UnlockCostPoints = 100
	}
	if c.StreakCycleDays == 0 {
		c.StreakCycleDays = 6
	}
	if c.ServiceName == "" {
		c.ServiceName = "reel-backend"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("ADMIN_USERNAMES", ""); v != "" {
		c.AdminUsernames = splitAndTrim(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_ENABLED", ""); v != "" {
		c.RedisEnabled = parseBool(v)
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = parseBool(v)
	}
	if v := getEnv("DAILY_REWARD_POINTS", ""); v != "" {
		c.DailyRewardPoints = mustParseInt(v)
	}
	if v := getEnv("UNLOCK_COST_POINTS", ""); v != "" {
		c.UnlockCostPoints = mustParseInt(v)
	}
	if v := getEnv("STREAK_CYCLE_DAYS", ""); v != "" {
		c.StreakCycleDays = mustParseInt(v)
	}
	if v := getEnv("APP_TIMEZONE", ""); v != "" {
		c.Timezone = v
	}
	if v := getEnv("SERVICE_NAME", ""); v != "" {
		c.ServiceName = v
	}
	if v := getEnv("METRICS_ENABLED", ""); v != "" {
		c.MetricsEnabled = parseBool(v)
	}
	if v := getEnv("TRACING_EXPORTER", ""); v != "" {
		c.TracingExporter = strings.ToLower(v)
	}
	if v := getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""); v != "" {
		c.OTLPEndpoint = v
	}
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func parseBool(val string) bool {
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

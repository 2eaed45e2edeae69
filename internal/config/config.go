package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Env    EnvConfig
	Store  StoreConfig
	Triage TriageConfig
	CORS   CORSConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	env, err := loadEnvConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	triage, err := loadTriageConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Env:    env,
		Store:  store,
		Triage: triage,
		CORS:   loadCORSConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// 运行环境
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// EnvConfig 描述运行环境与日志级别。
type EnvConfig struct {
	Name     string
	LogLevel string
}

// IsProduction reports whether logs should be emitted as JSON.
func (c EnvConfig) IsProduction() bool {
	return c.Name == EnvProduction
}

func loadEnvConfig() (EnvConfig, error) {
	name := strings.ToLower(getEnvOrDefault("ENV", EnvDevelopment))
	if name != EnvDevelopment && name != EnvProduction {
		return EnvConfig{}, fmt.Errorf("invalid ENV value %q: want %s or %s", name, EnvDevelopment, EnvProduction)
	}

	level := "info"
	if name == EnvDevelopment {
		level = "debug"
	}

	return EnvConfig{
		Name:     name,
		LogLevel: strings.ToLower(getEnvOrDefault("LOG_LEVEL", level)),
	}, nil
}

// 存储驱动
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// StoreConfig 描述会话存储配置。
type StoreConfig struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
	RedisURL    string
	Timeout     time.Duration
}

// DSN returns the connection string for the selected driver.
func (c StoreConfig) DSN() string {
	switch c.Driver {
	case DriverSQLite:
		return c.SQLitePath
	case DriverPostgres:
		return c.DatabaseURL
	case DriverRedis:
		return c.RedisURL
	default:
		return ""
	}
}

// LoadStore reads only the store section, for tools that need no server.
func LoadStore() (StoreConfig, error) {
	return loadStoreConfig()
}

func loadStoreConfig() (StoreConfig, error) {
	timeout, err := parseDurationEnv("STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return StoreConfig{}, err
	}

	cfg := StoreConfig{
		Driver:      strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverMemory)),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "./data/mindwell.db"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		Timeout:     timeout,
	}

	switch cfg.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return StoreConfig{}, fmt.Errorf("STORE_DRIVER=%s requires DATABASE_URL", cfg.Driver)
		}
	case DriverRedis:
		if cfg.RedisURL == "" {
			return StoreConfig{}, fmt.Errorf("STORE_DRIVER=%s requires REDIS_URL", cfg.Driver)
		}
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value %q", cfg.Driver)
	}

	return cfg, nil
}

// TriageConfig 描述分诊引擎配置。
type TriageConfig struct {
	TypingDelay         time.Duration
	TypingJitter        time.Duration
	RandomSeed          *uint64
	DefaultConversation string
}

func loadTriageConfig() (TriageConfig, error) {
	delay, err := parseDurationEnv("TRIAGE_TYPING_DELAY", 1500*time.Millisecond)
	if err != nil {
		return TriageConfig{}, err
	}

	jitter, err := parseDurationEnv("TRIAGE_TYPING_JITTER", time.Second)
	if err != nil {
		return TriageConfig{}, err
	}

	seed, err := parseOptionalUint64Env("TRIAGE_RANDOM_SEED")
	if err != nil {
		return TriageConfig{}, err
	}

	return TriageConfig{
		TypingDelay:         delay,
		TypingJitter:        jitter,
		RandomSeed:          seed,
		DefaultConversation: getEnvOrDefault("TRIAGE_DEFAULT_CONVERSATION", "default"),
	}, nil
}

// CORSConfig 描述跨域配置。
type CORSConfig struct {
	AllowedOrigins []string
}

func loadCORSConfig() CORSConfig {
	var origins []string
	for _, origin := range strings.Split(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{AllowedOrigins: origins}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseDurationEnv 接受 Go duration（"1500ms"）或毫秒整数（"1500"）。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parseOptionalUint64Env(key string) (*uint64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

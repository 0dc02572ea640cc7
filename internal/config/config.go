package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Kafka     KafkaConfig     `json:"kafka"`
	Logger    LoggerConfig    `json:"logger"`
	Dashboard DashboardConfig `json:"dashboard"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Port           string   `json:"port"`
	Host           string   `json:"host"`
	ReadTimeout    int      `json:"read_timeout"`
	WriteTimeout   int      `json:"write_timeout"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// DatabaseConfig представляет конфигурацию базы данных
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
	Table    string `json:"table"`
}

// RedisConfig представляет конфигурацию Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// KafkaConfig представляет конфигурацию Kafka
type KafkaConfig struct {
	Enabled bool     `json:"enabled"`
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
	Topics  Topics   `json:"topics"`
}

// Topics представляет список топиков Kafka
type Topics struct {
	Orders    string `json:"orders"`    // изменения заказов в хранилище (входящие)
	Dashboard string `json:"dashboard"` // события обновления снимка (исходящие)
}

// LoggerConfig представляет конфигурацию логгера
type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// DashboardConfig хранит параметры производных представлений заказов
type DashboardConfig struct {
	WarningMinutes         int    `json:"warning_minutes"`
	CriticalMinutes        int    `json:"critical_minutes"`
	PageSizes              []int  `json:"page_sizes"`
	DefaultPageSize        int    `json:"default_page_size"`
	TimeZone               string `json:"time_zone"`
	PrimaryDepartment      string `json:"primary_department"`
	CacheTTLMinutes        int    `json:"cache_ttl_minutes"`
	SessionTTLHours        int    `json:"session_ttl_hours"`
	MaxRows                int    `json:"max_rows"`
	RequestTimeoutSeconds  int    `json:"request_timeout_seconds"`
	RefreshIntervalSeconds int    `json:"refresh_interval_seconds"`
}

// RateLimitConfig описывает настройки rate limiting
type RateLimitConfig struct {
	Enabled       bool   `json:"enabled"`
	Requests      int    `json:"requests"`
	WindowSeconds int    `json:"window_seconds"`
	KeyPrefix     string `json:"key_prefix"`
}

// Load загружает конфигурацию из .env (если есть) и переменных окружения
func Load() *Config {
	// .env не обязателен, переменные окружения имеют приоритет
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:    getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("SERVER_WRITE_TIMEOUT", 10),
			AllowedOrigins: getEnvAsList("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "dashboard_user"),
			Password: getEnv("DB_PASSWORD", "dashboard_pass"),
			DBName:   getEnv("DB_NAME", "orders"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			Table:    getEnv("DB_ORDERS_TABLE", "orders"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID: getEnv("KAFKA_GROUP_ID", "orders-dashboard"),
			Topics: Topics{
				Orders:    getEnv("KAFKA_TOPIC_ORDERS", "orders"),
				Dashboard: getEnv("KAFKA_TOPIC_DASHBOARD", "dashboard"),
			},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Dashboard: DashboardConfig{
			WarningMinutes:         getEnvAsInt("DASHBOARD_WARNING_MINUTES", 20),
			CriticalMinutes:        getEnvAsInt("DASHBOARD_CRITICAL_MINUTES", 30),
			PageSizes:              getEnvAsIntList("DASHBOARD_PAGE_SIZES", []int{10, 20, 30}),
			DefaultPageSize:        getEnvAsInt("DASHBOARD_DEFAULT_PAGE_SIZE", 10),
			TimeZone:               getEnv("DASHBOARD_TIME_ZONE", "Europe/Moscow"),
			PrimaryDepartment:      getEnv("DASHBOARD_PRIMARY_DEPARTMENT", "Возрождение"),
			CacheTTLMinutes:        getEnvAsInt("DASHBOARD_CACHE_TTL_MINUTES", 10),
			SessionTTLHours:        getEnvAsInt("DASHBOARD_SESSION_TTL_HOURS", 24),
			MaxRows:                getEnvAsInt("DASHBOARD_MAX_ROWS", 0),
			RequestTimeoutSeconds:  getEnvAsInt("DASHBOARD_REQUEST_TIMEOUT_SECONDS", 5),
			RefreshIntervalSeconds: getEnvAsInt("DASHBOARD_REFRESH_INTERVAL_SECONDS", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", false),
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			KeyPrefix:     getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit"),
		},
	}
}

// getEnv получает значение переменной окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int с значением по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool получает значение переменной окружения как bool с значением по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(getEnv(key, ""))
	if valueStr == "true" || valueStr == "1" || valueStr == "yes" {
		return true
	}
	if valueStr == "false" || valueStr == "0" || valueStr == "no" {
		return false
	}
	return defaultValue
}

// getEnvAsList разбивает значение по запятым, пустые элементы отбрасываются
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// getEnvAsIntList разбирает список положительных чисел через запятую
func getEnvAsIntList(key string, defaultValue []int) []int {
	parts := getEnvAsList(key, nil)
	if len(parts) == 0 {
		return defaultValue
	}

	result := make([]int, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil || value <= 0 {
			return defaultValue
		}
		result = append(result, value)
	}
	return result
}

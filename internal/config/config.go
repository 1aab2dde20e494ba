package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации декодера
type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Storage      StorageConfig      `yaml:"storage"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Schema       SchemaConfig       `yaml:"schema"`
	Invalidation InvalidationConfig `yaml:"invalidation"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	FileLevel string `yaml:"file_level"`
	Dir       string `yaml:"dir"`
}

// StorageConfig выбирает хранилище схем: "memory", "badger" или "redis"
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	KeyPrefix string `yaml:"key_prefix"`
	TTLHours  int    `yaml:"ttl_hours"`
}

type MetricsConfig struct {
	Enabled         bool `yaml:"enabled"`
	Port            int  `yaml:"port"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

// SchemaConfig файлы схем, загружаемые при старте
type SchemaConfig struct {
	Files []string `yaml:"files"`
}

// InvalidationConfig рассылка уведомлений о замене схем через NATS.
// Без адреса рассылка выключена.
type InvalidationConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// TelemetryConfig экспорт трассировки по OTLP HTTP
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// GetBackend возвращает хранилище с приоритетом: config -> env -> memory
func (s *StorageConfig) GetBackend() string {
	if s.Backend != "" {
		return s.Backend
	}
	if v := os.Getenv("DEMO_STORAGE"); v != "" {
		return v
	}
	return "memory"
}

// GetPath возвращает путь BadgerDB
func (s *StorageConfig) GetPath() string {
	if s.Path != "" {
		return s.Path
	}
	if v := os.Getenv("DEMO_DATA_DIR"); v != "" {
		return v
	}
	return "data"
}

// GetRedisAddr возвращает адрес Redis
func (s *StorageConfig) GetRedisAddr() string {
	if s.RedisAddr != "" {
		return s.RedisAddr
	}
	if v := os.Getenv("DEMO_REDIS_ADDR"); v != "" {
		return v
	}
	return "localhost:6379"
}

// GetKeyPrefix возвращает префикс ключей Redis
func (s *StorageConfig) GetKeyPrefix() string {
	if s.KeyPrefix != "" {
		return s.KeyPrefix
	}
	return "demo:"
}

// GetTTL время жизни схем в Redis, 0 - без ограничения
func (s *StorageConfig) GetTTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// GetNATSURL адрес NATS с приоритетом: config -> env, пустая строка выключает рассылку
func (i *InvalidationConfig) GetNATSURL() string {
	if i.NATSURL != "" {
		return i.NATSURL
	}
	return os.Getenv("DEMO_NATS_URL")
}

// GetPort возвращает порт метрик с поддержкой fallback значений
func (m *MetricsConfig) GetPort() int {
	return getPortWithEnvFallback(m.Port, "DEMO_METRICS_PORT", 2112)
}

// GetInterval период опроса кешей
func (m *MetricsConfig) GetInterval() time.Duration {
	if m.IntervalSeconds > 0 {
		return time.Duration(m.IntervalSeconds) * time.Second
	}
	return 5 * time.Second
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Default конфигурация без файла
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", FileLevel: "debug"},
	}
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV DEMO_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("DEMO_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан, используются значения по умолчанию
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

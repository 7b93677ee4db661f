package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config — полная конфигурация проекта
type Config struct {
	Database  DBConfig       `yaml:"database"`
	RabbitMQ  MQConfig       `yaml:"rabbitmq"`
	WebSocket WSConfig       `yaml:"websocket"`
	Services  ServicesConfig `yaml:"services"`
	JWT       JWTConfig      `yaml:"jwt"`
	Stream    StreamConfig   `yaml:"stream"`
	Scoring   ScoringConfig  `yaml:"scoring"`
}

type DBConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"gt=0,lte=65535"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"database" validate:"required"`
	SSLMode  string `yaml:"sslmode"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type MQConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"gt=0,lte=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

func (c MQConfig) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s", c.User, c.Password, c.Host, c.Port, c.VHost)
}

type WSConfig struct {
	Port           int `yaml:"port" validate:"gt=0,lte=65535"`
	SendBufferSize int `yaml:"send_buffer_size" validate:"gt=0"`
}

type ServicesConfig struct {
	StreamServicePort  int `yaml:"stream_service" validate:"gt=0,lte=65535"`
	PlannerServicePort int `yaml:"planner_service" validate:"gt=0,lte=65535"`
}

type JWTConfig struct {
	Secret        string `yaml:"secret" validate:"required"`
	ExpiryMinutes int    `yaml:"expiry_minutes" validate:"gt=0"`
}

// StreamConfig — настройки broadcast engine
type StreamConfig struct {
	// DebounceMS — окно коалесцирования update_location для одного подписчика
	DebounceMS int `yaml:"debounce_ms" validate:"gte=0"`
	// RegistryShards — число шардов cell-индекса (степень двойки)
	RegistryShards int `yaml:"registry_shards" validate:"gt=0"`
	// UseMemoryStore — in-memory snapshot store вместо PostgreSQL (dev)
	UseMemoryStore bool `yaml:"use_memory_store"`
}

// ScoringConfig — политика оценки маршрутов (см. scoring.Policy)
type ScoringConfig struct {
	MaxDurationSec  float64 `yaml:"max_duration_sec" validate:"gt=0"`
	MaxCost         float64 `yaml:"max_cost" validate:"gt=0"`
	MaxWalkDistance float64 `yaml:"max_walk_distance_m" validate:"gt=0"`
	MaxTransfers    int     `yaml:"max_transfers" validate:"gt=0"`
	MaxResults      int     `yaml:"max_results" validate:"gt=0"`

	// ComfortPenalties — пер-модовые штрафы комфорта (эмпирические веса)
	ComfortPenalties map[string]float64 `yaml:"comfort_penalties"`
	// Weights — таблицы весов по режимам оптимизации, каждая строка суммируется в 1.0
	Weights map[string]WeightsConfig `yaml:"weights"`
}

type WeightsConfig struct {
	Time      float64 `yaml:"time" validate:"gte=0,lte=1"`
	Cost      float64 `yaml:"cost" validate:"gte=0,lte=1"`
	Comfort   float64 `yaml:"comfort" validate:"gte=0,lte=1"`
	Transfers float64 `yaml:"transfers" validate:"gte=0,lte=1"`
}

// Load — загрузка из CONFIG_DIR/config.yaml (по умолчанию ./config) + ENV перекрывает
func Load() (Config, error) {
	cfg := defaults()

	configDir := getEnv("CONFIG_DIR", "./config")
	path := filepath.Join(configDir, "config.yaml")

	if raw, err := os.ReadFile(filepath.Clean(path)); err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет структуру целиком + согласованность весов
func Validate(cfg Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	for mode, w := range cfg.Scoring.Weights {
		sum := w.Time + w.Cost + w.Comfort + w.Transfers
		if math.Abs(sum-1.0) > 1e-9 {
			return fmt.Errorf("validate config: scoring weights for mode %q sum to %g, want 1.0", mode, sum)
		}
	}
	return nil
}

func defaults() Config {
	return Config{
		Database: DBConfig{
			Host: "localhost", Port: 5432,
			User: "maas_user", Password: "maas_pass",
			Database: "maas_db", SSLMode: "disable",
		},
		RabbitMQ: MQConfig{
			Host: "localhost", Port: 5672,
			User: "guest", Password: "guest", VHost: "/",
		},
		WebSocket: WSConfig{Port: 8080, SendBufferSize: 64},
		Services: ServicesConfig{
			StreamServicePort:  3000,
			PlannerServicePort: 3001,
		},
		JWT: JWTConfig{Secret: "dev_secret", ExpiryMinutes: 60},
		Stream: StreamConfig{
			DebounceMS:     300,
			RegistryShards: 32,
		},
		Scoring: ScoringConfig{
			MaxDurationSec:  7200,
			MaxCost:         50,
			MaxWalkDistance: 3000,
			MaxTransfers:    5,
			MaxResults:      5,
			ComfortPenalties: map[string]float64{
				"metro": 0.10, "rail": 0.15, "tram": 0.20,
				"taxi": 0.10, "car": 0.15, "bus": 0.30,
				"bike": 0.40, "scooter": 0.35, "walk": 0.50,
			},
			Weights: map[string]WeightsConfig{
				"fastest":     {Time: 0.60, Cost: 0.10, Comfort: 0.15, Transfers: 0.15},
				"cheapest":    {Time: 0.15, Cost: 0.55, Comfort: 0.15, Transfers: 0.15},
				"comfortable": {Time: 0.20, Cost: 0.10, Comfort: 0.45, Transfers: 0.25},
			},
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", cfg.RabbitMQ.Host)
	cfg.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", cfg.RabbitMQ.Port)
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", cfg.RabbitMQ.User)
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", cfg.RabbitMQ.Password)
	cfg.RabbitMQ.VHost = getEnv("RABBITMQ_VHOST", cfg.RabbitMQ.VHost)

	cfg.WebSocket.Port = getEnvInt("WS_PORT", cfg.WebSocket.Port)
	cfg.Services.StreamServicePort = getEnvInt("STREAM_SERVICE_PORT", cfg.Services.StreamServicePort)
	cfg.Services.PlannerServicePort = getEnvInt("PLANNER_SERVICE_PORT", cfg.Services.PlannerServicePort)

	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.ExpiryMinutes = getEnvInt("JWT_EXPIRY_MINUTES", cfg.JWT.ExpiryMinutes)

	cfg.Stream.DebounceMS = getEnvInt("STREAM_DEBOUNCE_MS", cfg.Stream.DebounceMS)
	cfg.Stream.RegistryShards = getEnvInt("STREAM_REGISTRY_SHARDS", cfg.Stream.RegistryShards)
	if v, ok := os.LookupEnv("STREAM_USE_MEMORY_STORE"); ok {
		cfg.Stream.UseMemoryStore = v == "true" || v == "1"
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

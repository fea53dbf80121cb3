package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Log      LogConfig      `yaml:"log"`
	Flights  FlightsConfig  `yaml:"flights"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" env:"HTTP_ADDRESS"`
	SwaggerDir string `yaml:"swagger_dir" env:"HTTP_SWAGGER_DIR"`
}

type GRPCConfig struct {
	Address string `yaml:"address" env:"GRPC_ADDRESS"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	Name     string `yaml:"name" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	MaxConns int    `yaml:"max_conns" env:"DB_MAX_CONNS"`
}

func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	if d.MaxConns > 0 {
		dsn += fmt.Sprintf(" pool_max_conns=%d", d.MaxConns)
	}
	return dsn
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	TicketEventsTopic  string   `yaml:"ticket_events_topic" env:"KAFKA_TICKET_EVENTS_TOPIC"`
	NotificationsTopic string   `yaml:"notifications_topic" env:"KAFKA_NOTIFICATIONS_TOPIC"`
	CompensationsTopic string   `yaml:"compensations_topic" env:"KAFKA_COMPENSATIONS_TOPIC"`
	GroupID            string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
}

// GroupFor returns the consumer group of one topic. Every topic gets its own
// group so a rebalance on one reader leaves the others alone.
func (k KafkaConfig) GroupFor(topic string) string {
	if k.GroupID == "" {
		return topic
	}
	return k.GroupID + "-" + topic
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

type FlightsConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" env:"FLIGHTS_CACHE_TTL_SECONDS"`
}

func (f FlightsConfig) CacheTTL() time.Duration {
	return time.Duration(f.CacheTTLSeconds) * time.Second
}

type GatewayConfig struct {
	FlightsURL            string        `yaml:"flights_url" env:"FLIGHTS_SERVICE_URL"`
	TicketsURL            string        `yaml:"tickets_url" env:"TICKETS_SERVICE_URL"`
	PrivilegesURL         string        `yaml:"privileges_url" env:"PRIVILEGES_SERVICE_URL"`
	RequestTimeout        time.Duration `yaml:"request_timeout" env:"GATEWAY_REQUEST_TIMEOUT"`
	RetryAttempts         uint          `yaml:"retry_attempts" env:"GATEWAY_RETRY_ATTEMPTS"`
	RetryDelay            time.Duration `yaml:"retry_delay" env:"GATEWAY_RETRY_DELAY"`
	IntentTTL             time.Duration `yaml:"intent_ttl" env:"GATEWAY_INTENT_TTL"`
	AutoProvisionAccounts bool          `yaml:"auto_provision_accounts" env:"GATEWAY_AUTO_PROVISION_ACCOUNTS"`
}

type WorkerConfig struct {
	SweepInterval    time.Duration `yaml:"sweep_interval" env:"WORKER_SWEEP_INTERVAL"`
	StaleIntentAfter time.Duration `yaml:"stale_intent_after" env:"WORKER_STALE_INTENT_AFTER"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Flights.CacheTTLSeconds == 0 {
		c.Flights.CacheTTLSeconds = 60
	}
	if c.Gateway.RequestTimeout == 0 {
		c.Gateway.RequestTimeout = 5 * time.Second
	}
	if c.Gateway.RetryAttempts == 0 {
		c.Gateway.RetryAttempts = 3
	}
	if c.Gateway.RetryDelay == 0 {
		c.Gateway.RetryDelay = 100 * time.Millisecond
	}
	if c.Gateway.IntentTTL == 0 {
		c.Gateway.IntentTTL = 24 * time.Hour
	}
	if c.Worker.SweepInterval == 0 {
		c.Worker.SweepInterval = time.Minute
	}
	if c.Worker.StaleIntentAfter == 0 {
		c.Worker.StaleIntentAfter = 5 * time.Minute
	}
}

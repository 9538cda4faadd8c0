package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" validate:"required,oneof=development staging production"`

	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Pretty bool   `yaml:"pretty" default:"false"`
	} `yaml:"log"`

	Source struct {
		Type           string   `yaml:"type" default:"binance" validate:"oneof=binance redis kafka"`
		Pairs          []string `yaml:"pairs" validate:"min=1"`
		MaxTicksPerSec int      `yaml:"max_ticks_per_sec" default:"0" validate:"gte=0"`
	} `yaml:"source"`

	Binance struct {
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"3s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"20s"`
	} `yaml:"binance"`

	Fanout struct {
		Type string `yaml:"type" default:"none" validate:"oneof=none redis kafka"`
	} `yaml:"fanout"`

	Buffer struct {
		Capacity int `yaml:"capacity" default:"10000" validate:"gt=0"`
	} `yaml:"buffer"`

	Aggregator struct {
		Timeframes   []string      `yaml:"timeframes" default:"[\"1s\",\"1m\",\"5m\"]"`
		RetryMax     int           `yaml:"retry_max" default:"3" validate:"gte=0"`
		RetryBackoff time.Duration `yaml:"retry_backoff" default:"200ms"`
	} `yaml:"aggregator"`

	Storage struct {
		Type string `yaml:"type" default:"clickhouse" validate:"oneof=clickhouse memory"`
	} `yaml:"storage"`

	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"pairflow"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`

	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" default:"0"`
		Group    string `yaml:"group" default:"pairflow"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"pairflow.ticks"`
		GroupID      string   `yaml:"group_id" default:"pairflow"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
	} `yaml:"kafka"`

	Analytics struct {
		PairX         string        `yaml:"pair_x" validate:"required"`
		PairY         string        `yaml:"pair_y" validate:"required"`
		Timeframe     string        `yaml:"timeframe" default:"1m" validate:"oneof=1s 1m 5m"`
		Window        int           `yaml:"window" default:"200" validate:"gte=30,lte=5000"`
		CycleInterval time.Duration `yaml:"cycle_interval" default:"5s"`
		LagOrder      int           `yaml:"lag_order" default:"1" validate:"gte=0,lte=20"`
		AlertZScore   float64       `yaml:"alert_z_score" default:"2.0" validate:"gte=0"`
		ADFEveryCycle bool          `yaml:"adf_every_cycle" default:"false"`
		CacheTTL      time.Duration `yaml:"cache_ttl" default:"15s"`
	} `yaml:"analytics"`
}

var validate = validator.New()

// Load reads a YAML configuration file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PAIRFLOW_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("SOURCE_TYPE"); v != "" {
		c.Source.Type = v
	}
	if v := os.Getenv("PAIRS"); v != "" {
		c.Source.Pairs = strings.Split(v, ",")
	}
	if v := os.Getenv("FANOUT_TYPE"); v != "" {
		c.Fanout.Type = v
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
}

// Validate checks structural validity plus the cross-field rules the tag
// syntax cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Source.Type == "kafka" || c.Fanout.Type == "kafka" {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers required when kafka is the source or fanout")
		}
	}
	if c.Source.Type == c.Fanout.Type {
		return fmt.Errorf("source.type and fanout.type cannot both be %q", c.Source.Type)
	}
	if !containsPair(c.Source.Pairs, c.Analytics.PairX) || !containsPair(c.Source.Pairs, c.Analytics.PairY) {
		return fmt.Errorf("analytics pair legs must be among source.pairs")
	}
	return nil
}

func containsPair(pairs []string, pair string) bool {
	for _, p := range pairs {
		if strings.EqualFold(p, pair) {
			return true
		}
	}
	return false
}

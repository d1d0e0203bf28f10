// Package config loads the settings of the latravels binary from a YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ExecutorLocal    = "local"
	ExecutorTemporal = "temporal"

	ReasonerOpenAI    = "openai"
	ReasonerLangchain = "langchain"

	PaymentStripe = "stripe"
	PaymentFake   = "fake"
)

type Config struct {
	Executor    string         `yaml:"executor"`
	Reasoner    string         `yaml:"reasoner"`
	Payment     string         `yaml:"payment"`
	LogLevel    string         `yaml:"log_level"`
	StepTimeout time.Duration  `yaml:"step_timeout"`
	Temporal    TemporalConfig `yaml:"temporal"`
	OpenAI      OpenAIConfig   `yaml:"openai"`
	Stripe      StripeConfig   `yaml:"stripe"`
	NATS        NATSConfig     `yaml:"nats"`
	Redis       RedisConfig    `yaml:"redis"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	HTTP        HTTPConfig     `yaml:"http"`
	Session     SessionConfig  `yaml:"session"`
}

type TemporalConfig struct {
	Address   string `yaml:"address"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type StripeConfig struct {
	APIKey string `yaml:"api_key"`
}

// NATSConfig enables the NATS event broker when URL is set.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig enables Redis backed sessions and snapshots when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// KafkaConfig enables booking notifications when Brokers is set.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	BookingTopic string   `yaml:"booking_topic"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type SessionConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	TurnTimeout  time.Duration `yaml:"turn_timeout"`
}

func Default() *Config {
	return &Config{
		Executor:    ExecutorLocal,
		Reasoner:    ReasonerOpenAI,
		Payment:     PaymentFake,
		LogLevel:    "warn",
		StepTimeout: 30 * time.Second,
		Temporal: TemporalConfig{
			Address:   "localhost:7233",
			Namespace: "default",
			TaskQueue: "latravels",
		},
		OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
		Redis:  RedisConfig{TTL: 24 * time.Hour},
		Kafka:  KafkaConfig{BookingTopic: "latravels.bookings"},
		HTTP:   HTTPConfig{Address: ":8080"},
		Session: SessionConfig{
			PollInterval: 500 * time.Millisecond,
			TurnTimeout:  2 * time.Minute,
		},
	}
}

// Load reads the file at path over the defaults and applies the environment. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("LATRAVELS_EXECUTOR", &c.Executor)
	str("LATRAVELS_REASONER", &c.Reasoner)
	str("LATRAVELS_PAYMENT", &c.Payment)
	str("LATRAVELS_LOG_LEVEL", &c.LogLevel)
	str("LATRAVELS_HTTP_ADDR", &c.HTTP.Address)
	str("TEMPORAL_ADDRESS", &c.Temporal.Address)
	str("TEMPORAL_NAMESPACE", &c.Temporal.Namespace)
	str("TEMPORAL_TASK_QUEUE", &c.Temporal.TaskQueue)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	str("OPENAI_MODEL", &c.OpenAI.Model)
	str("STRIPE_API_KEY", &c.Stripe.APIKey)
	str("NATS_URL", &c.NATS.URL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)

	var errs []error
	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("REDIS_DB: %w", err))
		}
		c.Redis.DB = db
	}
	if v, ok := lookup("LATRAVELS_STEP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LATRAVELS_STEP_TIMEOUT: %w", err))
		}
		c.StepTimeout = d
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.Kafka.Brokers = append(c.Kafka.Brokers, b)
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Executor {
	case ExecutorLocal, ExecutorTemporal:
	default:
		errs = append(errs, fmt.Errorf("executor must be %q or %q, got %q", ExecutorLocal, ExecutorTemporal, c.Executor))
	}
	switch c.Reasoner {
	case ReasonerOpenAI, ReasonerLangchain:
	default:
		errs = append(errs, fmt.Errorf("reasoner must be %q or %q, got %q", ReasonerOpenAI, ReasonerLangchain, c.Reasoner))
	}
	switch c.Payment {
	case PaymentFake:
	case PaymentStripe:
		if c.Stripe.APIKey == "" {
			errs = append(errs, errors.New("stripe payments need STRIPE_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("payment must be %q or %q, got %q", PaymentStripe, PaymentFake, c.Payment))
	}
	if c.StepTimeout <= 0 {
		errs = append(errs, errors.New("step_timeout must be positive"))
	}
	if c.Session.PollInterval <= 0 || c.Session.TurnTimeout <= 0 {
		errs = append(errs, errors.New("session poll_interval and turn_timeout must be positive"))
	}
	return errors.Join(errs...)
}

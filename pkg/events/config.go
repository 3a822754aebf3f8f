package events

import (
	"fmt"
	"time"
)

// Config holds event notification configuration.
type Config struct {
	// Enabled controls whether event emission is active.
	// When false, Emit() is a no-op.
	Enabled bool `mapstructure:"enabled"`

	// BufferSize is the dispatch queue capacity (default 1024).
	BufferSize int `mapstructure:"buffer_size"`

	// Log activates the structured-log publisher (default true).
	Log bool `mapstructure:"log"`

	// Redis publisher configuration.
	Redis RedisConfig `mapstructure:"redis"`

	// Kafka publisher configuration.
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Enabled:    false,
		BufferSize: defaultBufferSize,
		Log:        true,
		Redis:      DefaultRedisConfig(),
		Kafka:      DefaultKafkaConfig(),
	}
}

// Validate checks the config and applies defaults for invalid values.
func (c *Config) Validate() {
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "drive:events"
	}
	if c.Redis.DialTimeout <= 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout <= 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout <= 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	// Kafka defaults
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "drive-events"
	}
	if c.Kafka.RequiredAcks < -1 || c.Kafka.RequiredAcks > 1 {
		c.Kafka.RequiredAcks = 1
	}
	if c.Kafka.Compression == "" {
		c.Kafka.Compression = "snappy"
	}
	if c.Kafka.BatchSize <= 0 {
		c.Kafka.BatchSize = 100
	}
	if c.Kafka.BatchTimeout <= 0 {
		c.Kafka.BatchTimeout = time.Second
	}
	if c.Kafka.WriteTimeout <= 0 {
		c.Kafka.WriteTimeout = 10 * time.Second
	}
}

// HasPublishers returns true if at least one publisher is enabled.
func (c *Config) HasPublishers() bool {
	return c.Log || c.Redis.Enabled || c.Kafka.Enabled
}

// NewPublishers constructs every publisher the config enables.
// Publishers already created are closed when a later one fails.
func NewPublishers(cfg Config) ([]Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var pubs []Publisher
	if cfg.Log {
		pubs = append(pubs, NewLogPublisher())
	}
	if cfg.Redis.Enabled {
		p, err := NewRedisPublisher(cfg.Redis)
		if err != nil {
			closePublishers(pubs)
			return nil, fmt.Errorf("redis publisher: %w", err)
		}
		pubs = append(pubs, p)
	}
	if cfg.Kafka.Enabled {
		p, err := NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			closePublishers(pubs)
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		pubs = append(pubs, p)
	}
	return pubs, nil
}

func closePublishers(pubs []Publisher) {
	for _, p := range pubs {
		_ = p.Close()
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logger struct {
		Level       string `yaml:"level"`
		Format      string `yaml:"format"`
		Output      string `yaml:"output"`
		ErrorsTopic string `yaml:"errors_topic"` // ship aggregated error lines to this Kafka topic; empty disables
	} `yaml:"logger"`
	Market struct {
		Zone string `yaml:"zone"`
	} `yaml:"market"`
	Patterns struct {
		Lookback    int     `yaml:"lookback" default:"100"`
		Tolerance   float64 `yaml:"tolerance" default:"0.001"`
		MinBodyFrac float64 `yaml:"min_body_frac" default:"0.0002"`
		MinVolume   float64 `yaml:"min_volume" default:"1000"`
		StopBuffer  float64 `yaml:"stop_buffer" default:"0.001"`
		RewardRatio float64 `yaml:"reward_ratio" default:"2.0"`
		Windows     []struct {
			From float64 `yaml:"from"`
			To   float64 `yaml:"to"`
		} `yaml:"windows"`
	} `yaml:"patterns"`
	Fetch struct {
		BaseURL  string        `yaml:"base_url"`
		Attempts int           `yaml:"attempts"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"fetch"`
	Watcher struct {
		Enabled   bool          `yaml:"enabled"`
		Symbols   []string      `yaml:"symbols"`
		Interval  string        `yaml:"interval"`
		PollEvery time.Duration `yaml:"poll_every"`
	} `yaml:"watcher"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		Interval       string        `yaml:"interval"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxRPS         int           `yaml:"max_rps"`
		BufferSize     int           `yaml:"buffer_size"`
	} `yaml:"stream"`
	Kafka struct {
		Brokers          []string `yaml:"brokers"`
		CandlesTopic     string   `yaml:"candles_topic"`
		AlertsTopic      string   `yaml:"alerts_topic"`
		SuggestionsTopic string   `yaml:"suggestions_topic"`
		RequiredAcks     int      `yaml:"required_acks"`
		Compression      string   `yaml:"compression"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		Compression      string        `yaml:"compression"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// zero-valued detection knobs take their model defaults
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("STREAM_API_KEY"); v != "" {
		c.Stream.APIKey = v
	}
	if v := os.Getenv("STREAM_SYMBOLS"); v != "" {
		c.Stream.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("WATCH_SYMBOLS"); v != "" {
		c.Watcher.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Market.Zone != "" {
		if _, err := time.LoadLocation(c.Market.Zone); err != nil {
			return fmt.Errorf("market.zone is not a valid IANA zone: %w", err)
		}
	}
	if c.Patterns.Lookback <= 0 {
		return fmt.Errorf("patterns.lookback must be positive, got %d", c.Patterns.Lookback)
	}
	if c.Patterns.Tolerance < 0 {
		return fmt.Errorf("patterns.tolerance cannot be negative, got %g", c.Patterns.Tolerance)
	}
	if c.Patterns.MinBodyFrac < 0 || c.Patterns.MinBodyFrac > 1 {
		return fmt.Errorf("patterns.min_body_frac must be within [0,1], got %g", c.Patterns.MinBodyFrac)
	}
	if c.Patterns.MinVolume < 0 {
		return fmt.Errorf("patterns.min_volume cannot be negative, got %g", c.Patterns.MinVolume)
	}
	if c.Patterns.StopBuffer < 0 {
		return fmt.Errorf("patterns.stop_buffer cannot be negative, got %g", c.Patterns.StopBuffer)
	}
	if c.Patterns.RewardRatio <= 0 {
		return fmt.Errorf("patterns.reward_ratio must be positive, got %g", c.Patterns.RewardRatio)
	}
	for i, w := range c.Patterns.Windows {
		if w.From < 0 || w.To > 24 || w.From >= w.To {
			return fmt.Errorf("patterns.windows[%d] must satisfy 0 <= from < to <= 24, got [%g, %g]", i, w.From, w.To)
		}
	}
	if c.Watcher.Enabled {
		if len(c.Watcher.Symbols) == 0 {
			return fmt.Errorf("watcher.symbols cannot be empty when the watcher is enabled")
		}
		if !validInterval(c.Watcher.Interval) {
			return fmt.Errorf("watcher.interval is not a supported interval: '%s'", c.Watcher.Interval)
		}
	}
	if c.Stream.Enabled {
		if c.Stream.APIKey == "" {
			return fmt.Errorf("stream.api_key is required when the stream is enabled")
		}
		if c.Stream.WebSocketURL == "" {
			return fmt.Errorf("stream.websocket_url is required when the stream is enabled")
		}
		if len(c.Stream.Symbols) == 0 {
			return fmt.Errorf("stream.symbols cannot be empty when the stream is enabled")
		}
		if !validInterval(c.Stream.Interval) {
			return fmt.Errorf("stream.interval is not a supported interval: '%s'", c.Stream.Interval)
		}
	}
	if c.Kafka.Consumer.Enabled {
		if c.Kafka.Consumer.GroupID == "" {
			return fmt.Errorf("kafka.consumer.group_id is required when the consumer is enabled")
		}
	}
	if c.Watcher.Enabled || c.Stream.Enabled || c.Kafka.Consumer.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when a publishing component is enabled")
		}
		if c.Kafka.CandlesTopic == "" {
			return fmt.Errorf("kafka.candles_topic is required when a publishing component is enabled")
		}
	}
	if c.Stream.Enabled || c.Kafka.Consumer.Enabled {
		// both paths persist candles, so they need somewhere to write
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when the stream or the kafka consumer is enabled")
		}
	}
	return nil
}

// validInterval reports whether s is one of the candle intervals the
// engine understands, mirroring the chart API's interval names.
func validInterval(s string) bool {
	switch s {
	case "1m", "2m", "5m", "15m", "1h", "1d", "5d", "1wk", "1mo", "3mo":
		return true
	}
	return false
}

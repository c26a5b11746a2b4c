// Package config loads the client's settings from a YAML file, then lets the
// environment (and a .env file) override them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/fairroulette/go/internal/pow"
)

const (
	FeedNATS      = "nats"
	FeedWebSocket = "websocket"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Transport struct {
		BaseURL string        `yaml:"base_url"`
		H2C     bool          `yaml:"h2c"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"transport"`

	Session struct {
		Seed             string        `yaml:"seed"`
		ChainID          string        `yaml:"chain_id"`
		ChainResolverURL string        `yaml:"chain_resolver_url"`
		AssetID          string        `yaml:"asset_id"`
		FundsInterval    time.Duration `yaml:"funds_interval"`
		RoundLength      time.Duration `yaml:"round_length"`
	} `yaml:"session"`

	PoW struct {
		Workers    int `yaml:"workers"`
		Difficulty int `yaml:"difficulty"`
	} `yaml:"pow"`

	Feed struct {
		// Kind is "nats" or "websocket".
		Kind      string `yaml:"kind"`
		NATS      NATS   `yaml:"nats"`
		WebSocket struct {
			URL string `yaml:"url"`
		} `yaml:"websocket"`
	} `yaml:"feed"`

	Archive struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"archive"`
}

type NATS struct {
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
	ConsumerName  string `yaml:"consumer_name"`
}

// Default is a local setup: backend on :8080, NATS on its default port.
func Default() *Config {
	c := &Config{}
	c.Server.Port = "5000"
	c.Transport.BaseURL = "http://localhost:8080"
	c.Transport.Timeout = 30 * time.Second
	c.Feed.Kind = FeedNATS
	c.Feed.NATS = NATS{
		URL:           "nats://localhost:4222",
		StreamName:    "ROULETTE_EVENTS",
		SubjectPrefix: "roulette.events",
		ConsumerName:  "roulette-client",
	}
	return c
}

// Load reads path (when not empty) over the defaults and applies env overrides.
// A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Transport.BaseURL = getEnv("ROULETTE_URL", c.Transport.BaseURL)
	c.Transport.H2C = getEnvAsBool("ROULETTE_H2C", c.Transport.H2C)
	c.Session.Seed = getEnv("WALLET_SEED", c.Session.Seed)
	c.Session.ChainID = getEnv("CHAIN_ID", c.Session.ChainID)
	c.Session.ChainResolverURL = getEnv("CHAIN_RESOLVER_URL", c.Session.ChainResolverURL)
	c.PoW.Workers = getEnvAsInt("POW_WORKERS", c.PoW.Workers)
	c.PoW.Difficulty = getEnvAsInt("POW_DIFFICULTY", c.PoW.Difficulty)
	c.Feed.Kind = getEnv("FEED_KIND", c.Feed.Kind)
	c.Feed.NATS.URL = getEnv("NATS_URL", c.Feed.NATS.URL)
	c.Feed.WebSocket.URL = getEnv("EVENTS_WS_URL", c.Feed.WebSocket.URL)
	c.Archive.Enabled = getEnvAsBool("ARCHIVE_ENABLED", c.Archive.Enabled)
}

func (c *Config) Validate() error {
	if c.Transport.BaseURL == "" {
		return errors.New("transport.base_url is required")
	}
	// Zero leaves the difficulty to the session default.
	if c.PoW.Difficulty < 0 || c.PoW.Difficulty > pow.MaxDifficulty {
		return fmt.Errorf("pow.difficulty %d out of range 0..%d", c.PoW.Difficulty, pow.MaxDifficulty)
	}
	switch c.Feed.Kind {
	case FeedNATS:
		if c.Feed.NATS.URL == "" {
			return errors.New("feed.nats.url is required")
		}
	case FeedWebSocket:
		if c.Feed.WebSocket.URL == "" {
			return errors.New("feed.websocket.url is required")
		}
	default:
		return fmt.Errorf("unknown feed kind %q", c.Feed.Kind)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

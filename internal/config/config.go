package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultConnectTimeout bounds the TCP client's connect call
	DefaultConnectTimeout = 3 * time.Second
	// DefaultReadTimeout bounds the single reply read of both clients
	DefaultReadTimeout = 2 * time.Second
	// DefaultBufferSize is the size of the one read/receive per interaction
	DefaultBufferSize = 1024
	// DefaultReply is the acknowledgment both servers send back
	DefaultReply = "pong"
	// DefaultBindHost is the wildcard address servers listen on
	DefaultBindHost = "0.0.0.0"
	// DefaultTCPBacklog is the pending-connection queue length of the TCP server
	DefaultTCPBacklog = 1
)

// Config holds the runtime tunables shared by all four modes
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	BufferSize     int
	Reply          []byte
	BindHost       string
	TCPBacklog     int
	LogTimestamps  bool
}

// Default returns the configuration used when no overrides are present
func Default() *Config {
	return &Config{
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		BufferSize:     DefaultBufferSize,
		Reply:          []byte(DefaultReply),
		BindHost:       DefaultBindHost,
		TCPBacklog:     DefaultTCPBacklog,
		LogTimestamps:  true,
	}
}

// Load reads configuration from the environment, after merging a .env
// file from the working directory if one exists.
func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()
	cfg.ConnectTimeout = getEnvAsDuration("NETTOOL_CONNECT_TIMEOUT", cfg.ConnectTimeout)
	cfg.ReadTimeout = getEnvAsDuration("NETTOOL_READ_TIMEOUT", cfg.ReadTimeout)
	cfg.BufferSize = getEnvAsPositiveInt("NETTOOL_BUFFER_SIZE", cfg.BufferSize)
	cfg.Reply = []byte(getEnv("NETTOOL_REPLY", DefaultReply))
	cfg.BindHost = getEnv("NETTOOL_BIND_HOST", cfg.BindHost)
	cfg.TCPBacklog = getEnvAsPositiveInt("NETTOOL_TCP_BACKLOG", cfg.TCPBacklog)
	cfg.LogTimestamps = getEnvAsBool("NETTOOL_LOG_TIMESTAMPS", cfg.LogTimestamps)

	return cfg
}

// LogFlags returns the flags for log.New matching the timestamp setting
func (c *Config) LogFlags() int {
	if c.LogTimestamps {
		return log.LstdFlags
	}
	return 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsPositiveInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

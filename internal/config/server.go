package config

import (
	"fmt"
	"time"
)

// Server holds the signaling server settings.
type Server struct {
	Addr          string        `yaml:"addr"`
	ReadLimit     int           `yaml:"read-limit"`  // max inbound frame size, bytes
	SendBuffer    int           `yaml:"send-buffer"` // per-connection outbound queue length
	RateLimit     float64       `yaml:"rate-limit"`  // inbound frames per second per connection
	RateBurst     int           `yaml:"rate-burst"`
	StatsInterval time.Duration `yaml:"stats-interval"`
	LogLevel      string        `yaml:"log-level"`
}

// DefaultServer returns the built-in server defaults.
func DefaultServer() Server {
	return Server{
		Addr:          ":5000",
		ReadLimit:     64 * 1024,
		SendBuffer:    256,
		RateLimit:     50,
		RateBurst:     100,
		StatsInterval: 30 * time.Second,
		LogLevel:      "info",
	}
}

// LoadServer reads defaults, then the YAML file at path (optional), then the
// environment. Flags are applied by the caller afterwards.
func LoadServer(path string) (*Server, error) {
	cfg := DefaultServer()
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}

	envString(&cfg.Addr, "WHODIS_ADDR")
	if port, ok := lookupEnv("PORT"); ok && port != "" {
		if _, set := lookupEnv("WHODIS_ADDR"); !set {
			cfg.Addr = ":" + port
		}
	}
	envString(&cfg.LogLevel, "WHODIS_LOG_LEVEL", "LOG_LEVEL")
	for _, err := range []error{
		envInt(&cfg.ReadLimit, "WHODIS_READ_LIMIT"),
		envInt(&cfg.SendBuffer, "WHODIS_SEND_BUFFER"),
		envFloat(&cfg.RateLimit, "WHODIS_RATE_LIMIT"),
		envInt(&cfg.RateBurst, "WHODIS_RATE_BURST"),
		envDuration(&cfg.StatsInterval, "WHODIS_STATS_INTERVAL"),
	} {
		if err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Server) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr is empty", ErrInvalid)
	case c.ReadLimit <= 0:
		return fmt.Errorf("%w: read-limit must be positive", ErrInvalid)
	case c.SendBuffer <= 0:
		return fmt.Errorf("%w: send-buffer must be positive", ErrInvalid)
	case c.RateLimit < 0 || c.RateBurst < 0:
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalid)
	}
	return nil
}

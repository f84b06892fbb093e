package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/1ureka/whodis/internal/protocol"
)

// Mode selects what a client session carries.
type Mode string

const (
	ModeVideo Mode = "video"
	ModeText  Mode = "text"
)

// Default ICE settings (production).
const (
	DefaultServerURL = "ws://localhost:5000/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
)

// Client holds the settings of the join command.
type Client struct {
	ServerURL        string        `yaml:"server"`
	Codec            string        `yaml:"codec"`
	STUN             []string      `yaml:"stun"`
	TURN             string        `yaml:"turn"`
	TURNUser         string        `yaml:"turn-user"`
	TURNPass         string        `yaml:"turn-pass"`
	HandshakeTimeout time.Duration `yaml:"handshake-timeout"`
	CaptureInterval  time.Duration `yaml:"capture-interval"`
	Interests        []string      `yaml:"interests"`
	Gender           string        `yaml:"gender"`
	Mode             Mode          `yaml:"mode"`
	LogLevel         string        `yaml:"log-level"`
}

// DefaultClient returns the built-in client defaults.
func DefaultClient() Client {
	return Client{
		ServerURL:        DefaultServerURL,
		Codec:            "json",
		STUN:             []string{DefaultSTUN, "stun:stun1.l.google.com:19302"},
		HandshakeTimeout: 30 * time.Second,
		CaptureInterval:  time.Minute,
		Mode:             ModeVideo,
		LogLevel:         "warn",
	}
}

// LoadClient reads defaults, then the YAML file at path (optional), then the
// environment. Flags are applied by the caller afterwards.
func LoadClient(path string) (*Client, error) {
	cfg := DefaultClient()
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}

	envString(&cfg.ServerURL, "WHODIS_SERVER")
	envString(&cfg.Codec, "WHODIS_CODEC")
	envList(&cfg.STUN, "WHODIS_STUN")
	envString(&cfg.TURN, "WHODIS_TURN", "TURN_SERVER")
	envString(&cfg.TURNUser, "WHODIS_TURN_USER", "TURN_USERNAME")
	envString(&cfg.TURNPass, "WHODIS_TURN_PASS", "TURN_PASSWORD")
	envList(&cfg.Interests, "WHODIS_INTERESTS")
	envString(&cfg.Gender, "WHODIS_GENDER")
	envString(&cfg.LogLevel, "WHODIS_LOG_LEVEL", "LOG_LEVEL")
	mode := string(cfg.Mode)
	envString(&mode, "WHODIS_MODE")
	cfg.Mode = Mode(mode)
	for _, err := range []error{
		envDuration(&cfg.HandshakeTimeout, "WHODIS_HANDSHAKE_TIMEOUT"),
		envDuration(&cfg.CaptureInterval, "WHODIS_CAPTURE_INTERVAL"),
	} {
		if err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Client) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Host == "" || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("%w: server must be a ws:// or wss:// URL, got %q", ErrInvalid, c.ServerURL)
	}
	if _, err := protocol.CodecByName(c.Codec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := protocol.ParseGender(c.Gender); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Mode != ModeVideo && c.Mode != ModeText {
		return fmt.Errorf("%w: mode must be video or text, got %q", ErrInvalid, c.Mode)
	}
	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("%w: handshake-timeout must not be negative", ErrInvalid)
	}
	return nil
}

// Criteria builds the matchmaking criteria from the configured interests
// and gender. Call Validate first.
func (c *Client) Criteria() protocol.Criteria {
	gender, _ := protocol.ParseGender(c.Gender)
	return protocol.Criteria{Interests: c.Interests, Gender: gender}
}

// TURNServers returns TURN URLs if a TURN host is configured.
func (c *Client) TURNServers() []string {
	if c.TURN == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", c.TURN),
		fmt.Sprintf("turn:%s:3478?transport=tcp", c.TURN),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURN),
	}
}

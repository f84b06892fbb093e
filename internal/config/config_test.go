package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	prev := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = prev })
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "whodis.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestServerDefaults(t *testing.T) {
	withEnv(t, nil)
	cfg, err := LoadServer("")
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != DefaultServer() {
		t.Fatalf("got %+v, want defaults", *cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestServerPrecedence(t *testing.T) {
	path := writeFile(t, "addr: \":7000\"\nrate-limit: 10\nstats-interval: 5s\n")
	withEnv(t, map[string]string{"WHODIS_RATE_LIMIT": "20"})

	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("Addr = %q, want file value", cfg.Addr)
	}
	if cfg.RateLimit != 20 {
		t.Errorf("RateLimit = %v, env should override file", cfg.RateLimit)
	}
	if cfg.StatsInterval != 5*time.Second {
		t.Errorf("StatsInterval = %v", cfg.StatsInterval)
	}
}

func TestServerPortEnv(t *testing.T) {
	withEnv(t, map[string]string{"PORT": "8080"})
	cfg, err := LoadServer("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}

	withEnv(t, map[string]string{"PORT": "8080", "WHODIS_ADDR": "127.0.0.1:9000"})
	cfg, err = LoadServer("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("WHODIS_ADDR should win over PORT, got %q", cfg.Addr)
	}
}

func TestServerBadEnv(t *testing.T) {
	withEnv(t, map[string]string{"WHODIS_RATE_BURST": "lots"})
	if _, err := LoadServer(""); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestServerValidate(t *testing.T) {
	cfg := DefaultServer()
	cfg.SendBuffer = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v", err)
	}
}

func TestClientEnvAndFile(t *testing.T) {
	path := writeFile(t, "server: wss://example.test/ws\ninterests: [music, go]\nhandshake-timeout: 0s\n")
	withEnv(t, map[string]string{
		"WHODIS_STUN":   "stun:a:1, stun:b:2",
		"WHODIS_GENDER": "Female",
		"WHODIS_MODE":   "text",
	})

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "wss://example.test/ws" || cfg.Mode != ModeText {
		t.Fatalf("got %+v", cfg)
	}
	if !slices.Equal(cfg.STUN, []string{"stun:a:1", "stun:b:2"}) {
		t.Errorf("STUN = %v", cfg.STUN)
	}
	if cfg.HandshakeTimeout != 0 {
		t.Errorf("HandshakeTimeout = %v, want disabled", cfg.HandshakeTimeout)
	}
	crit := cfg.Criteria()
	if crit.Gender != "female" || !slices.Equal(crit.Interests, []string{"music", "go"}) {
		t.Errorf("Criteria = %+v", crit)
	}
}

func TestClientValidate(t *testing.T) {
	cases := map[string]func(*Client){
		"scheme":           func(c *Client) { c.ServerURL = "http://example.test/ws" },
		"codec":            func(c *Client) { c.Codec = "xml" },
		"gender":           func(c *Client) { c.Gender = "robot" },
		"mode":             func(c *Client) { c.Mode = "audio" },
		"negative timeout": func(c *Client) { c.HandshakeTimeout = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultClient()
			mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestTURNServers(t *testing.T) {
	cfg := DefaultClient()
	if got := cfg.TURNServers(); got != nil {
		t.Fatalf("no TURN host should give nil, got %v", got)
	}
	cfg.TURN = "turn.example.test"
	got := cfg.TURNServers()
	if len(got) != 3 || got[0] != "turn:turn.example.test:3478?transport=udp" {
		t.Fatalf("got %v", got)
	}
}

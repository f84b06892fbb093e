// Package config loads server and client settings.
//
// Precedence, highest first: command-line flags (applied by the caller),
// environment variables, an optional YAML file, built-in defaults.
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

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// lookupEnv is swapped in tests.
var lookupEnv = os.LookupEnv

// loadFile decodes the YAML file at path into out. An empty path is a no-op.
func loadFile(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func envString(dst *string, keys ...string) {
	for _, key := range keys {
		if v, ok := lookupEnv(key); ok && v != "" {
			*dst = v
			return
		}
	}
}

func envList(dst *[]string, key string) {
	if v, ok := lookupEnv(key); ok && v != "" {
		*dst = SplitList(v)
	}
}

func envInt(dst *int, key string) error {
	if v, ok := lookupEnv(key); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err)
		}
		*dst = n
	}
	return nil
}

func envFloat(dst *float64, key string) error {
	if v, ok := lookupEnv(key); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err)
		}
		*dst = f
	}
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	if v, ok := lookupEnv(key); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err)
		}
		*dst = d
	}
	return nil
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	envPrefix     = "CLOCKREAD_"
	envConfigPath = "CLOCKREAD_CONFIG"
)

// Load builds a Config by layering defaults, a profile, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. profile preset named by the "profile" key of the file or env
//  3. file (YAML) at path, or at CLOCKREAD_CONFIG when path is empty
//  4. env (prefix CLOCKREAD_)
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadWithProfile(ctx, path, "")
}

// LoadWithProfile is Load with the preset chosen by the caller. A non-empty
// profile replaces the "profile" key of the file and env in layer 2; file and
// env thresholds still override the preset.
func LoadWithProfile(_ context.Context, path, profile string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// CLOCKREAD_MIN_GAP_SEC -> min_gap_sec (flat keys, underscores preserved).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	if profile == "" {
		profile = k.String("profile")
	}
	cfg := New()
	if err := cfg.ApplyProfile(profile); err != nil {
		return nil, err
	}
	resolved := cfg.Profile

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// The unmarshal copies the file or env name over the caller's choice.
	cfg.Profile = resolved
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

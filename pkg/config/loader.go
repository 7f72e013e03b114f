package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joshn8er2022/content-marketing-agent/pkg/logx"
)

var loaderLogger = logx.NewLogger("config")

// LoadConfig reads YAML configuration from the given path, applies defaults
// for unset fields and CONTENTBOT_* environment overrides, and validates the
// result. A missing file is not an error; defaults are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			loaderLogger.Debug("no config file at %s, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
			loaderLogger.Info("loaded configuration from %s", path)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides overlays environment variables onto the config. Only the
// settings an operator plausibly changes per-deployment are exposed this way;
// everything else requires the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CONTENTBOT_ANALYSIS_MODEL"); v != "" {
		cfg.Models.Analysis = v
	}
	if v := os.Getenv("CONTENTBOT_CONTENT_MODEL"); v != "" {
		cfg.Models.Content = v
	}
	if v := os.Getenv("CONTENTBOT_CHAT_MODEL"); v != "" {
		cfg.Models.Chat = v
	}
	if v := os.Getenv("CONTENTBOT_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("CONTENTBOT_SCRAPER_BASE_URL"); v != "" {
		cfg.Scraper.BaseURL = v
	}
	if v := os.Getenv("CONTENTBOT_OLLAMA_HOST"); v != "" {
		cfg.OllamaHost = v
	}
	if v := os.Getenv("CONTENTBOT_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxIterations = n
		} else {
			loaderLogger.Warn("ignoring CONTENTBOT_MAX_ITERATIONS=%q: %v", v, err)
		}
	}
	if v := os.Getenv("CONTENTBOT_TREND_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TrendCacheTTL = d
		} else {
			loaderLogger.Warn("ignoring CONTENTBOT_TREND_CACHE_TTL=%q: %v", v, err)
		}
	}
}

// Package dispatchconfig loads daemon configuration from yaml with
// environment overrides layered on top.
package dispatchconfig

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"quickaid/go-backend/internal/dispatch"
)

type Config struct {
	RPCAddr  string
	Dispatch dispatch.Config
}

func DefaultConfig() Config {
	return Config{
		RPCAddr:  "127.0.0.1:8787",
		Dispatch: dispatch.DefaultConfig(),
	}
}

type FileConfig struct {
	Dispatch DispatchSection `yaml:"dispatch"`
	RPCAddr  string          `yaml:"rpcAddr"`
}

type DispatchSection struct {
	RadiusKm      *float64      `yaml:"radiusKm"`
	DispatchWidth *int          `yaml:"dispatchWidth"`
	CandidateCap  *int          `yaml:"candidateCap"`
	PostCooldown  time.Duration `yaml:"postCooldown"`
}

// LoadFromPath reads the first readable, parseable yaml candidate and merges
// it over the defaults, then applies env overrides. A missing or malformed
// file silently falls back to defaults, as a daemon without a config file is
// a supported setup.
func LoadFromPath(configPath string) Config {
	cfg := DefaultConfig()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"go-backend/configs/config.yaml",
			"configs/config.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		Merge(&cfg, parsed)
		ApplyEnvOverrides(&cfg)
		return cfg
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src FileConfig) {
	if src.RPCAddr != "" {
		dst.RPCAddr = src.RPCAddr
	}
	if src.Dispatch.RadiusKm != nil && *src.Dispatch.RadiusKm > 0 {
		dst.Dispatch.RadiusKm = *src.Dispatch.RadiusKm
	}
	if src.Dispatch.DispatchWidth != nil {
		width := *src.Dispatch.DispatchWidth
		if width < 1 {
			width = 1
		}
		dst.Dispatch.DispatchWidth = width
	}
	if src.Dispatch.CandidateCap != nil && *src.Dispatch.CandidateCap > 0 {
		dst.Dispatch.CandidateCap = *src.Dispatch.CandidateCap
	}
	if src.Dispatch.PostCooldown > 0 {
		dst.Dispatch.PostCooldown = src.Dispatch.PostCooldown
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if addr := strings.TrimSpace(os.Getenv("QUICKAID_RPC_ADDR")); addr != "" {
		cfg.RPCAddr = addr
	}
	if raw := strings.TrimSpace(os.Getenv("QUICKAID_RADIUS_KM")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			cfg.Dispatch.RadiusKm = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("QUICKAID_DISPATCH_WIDTH")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			if v < 1 {
				v = 1
			}
			cfg.Dispatch.DispatchWidth = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("QUICKAID_CANDIDATE_CAP")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.Dispatch.CandidateCap = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("QUICKAID_POST_COOLDOWN")); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			cfg.Dispatch.PostCooldown = v
		}
	}
}

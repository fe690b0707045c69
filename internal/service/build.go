package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/lookout-vision/lookout/internal/backend"
	"github.com/lookout-vision/lookout/internal/cache"
	"github.com/lookout-vision/lookout/internal/config"
)

// BuildFromConfig assembles the detection service from configuration. The
// local and classical backends are always registered; a cloud backend is
// registered only when its API key is configured.
func BuildFromConfig(cfg *config.Config) (*Service, error) {
	var adapters []backend.Adapter

	local, err := backend.NewLocal(backend.LocalConfig{
		Interpreter: cfg.Backends.Local.Interpreter,
		Script:      cfg.Backends.Local.Script,
		Model:       cfg.Backends.Local.Model,
		Confidence:  cfg.Backends.Local.Confidence,
		Timeout:     time.Duration(cfg.Backends.Local.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build local backend: %w", err)
	}
	adapters = append(adapters, local)

	classical, err := backend.NewClassical(backend.ClassicalConfig{
		Interpreter:  cfg.Backends.Classical.Interpreter,
		Script:       cfg.Backends.Classical.Script,
		ScaleFactor:  cfg.Backends.Classical.ScaleFactor,
		MinNeighbors: cfg.Backends.Classical.MinNeighbors,
		Timeout:      time.Duration(cfg.Backends.Classical.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build classical backend: %w", err)
	}
	adapters = append(adapters, classical)

	if cfg.Backends.CloudA.APIKey != "" {
		cloudA, err := backend.NewCloudA(cloudConfig(cfg.Backends.CloudA))
		if err != nil {
			return nil, fmt.Errorf("failed to build cloud-a backend: %w", err)
		}
		adapters = append(adapters, cloudA)
	}
	if cfg.Backends.CloudB.APIKey != "" {
		cloudB, err := backend.NewCloudB(cloudConfig(cfg.Backends.CloudB))
		if err != nil {
			return nil, fmt.Errorf("failed to build cloud-b backend: %w", err)
		}
		adapters = append(adapters, cloudB)
	}

	registry := backend.NewRegistry(adapters...)

	var c *cache.Cache
	if cfg.Cache.Enabled {
		clk := clock.New()
		memory := cache.NewMemory(cfg.Cache.TTL(), clk)
		var disk *cache.Disk
		if cfg.Cache.Dir != "" {
			disk, err = cache.NewDisk(cfg.Cache.Dir, cfg.Cache.TTL(), clk)
			if err != nil {
				return nil, fmt.Errorf("failed to build durable cache tier: %w", err)
			}
		}
		c = cache.New(memory, disk)
	}

	slog.Info("detection service assembled",
		"backends", registry.Names(),
		"cache_enabled", cfg.Cache.Enabled,
		"cache_dir", cfg.Cache.Dir)

	return New(registry, c), nil
}

func cloudConfig(cc config.CloudConfig) backend.CloudConfig {
	return backend.CloudConfig{
		Endpoint:      cc.Endpoint,
		APIKey:        cc.APIKey,
		MinConfidence: cc.MinConfidence,
		Timeout:       time.Duration(cc.TimeoutSeconds) * time.Second,
	}
}

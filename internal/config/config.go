// Package config holds environment-driven configuration for the appforge core
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values for safety thresholds. These are deliberate, documented
// defaults; see the matching environment variables for overrides.
const (
	DefaultLockStaleAfter        = 30 * time.Minute
	DefaultProdPlanMaxAge        = 15 * time.Minute
	DefaultRunHistoryRetention   = 30 * 24 * time.Hour
	DefaultEngineTimeout         = 30 * time.Minute
	DefaultWatchInterval         = 60 * time.Second
	DefaultEngineImage           = "ghcr.io/opentofu/opentofu:1.8"
	DefaultContainerRuntime      = "docker"
	DefaultProductionEnvironment = "prod"
)

// Config holds configuration for the deployment orchestration core
type Config struct {
	// LockStaleAfter is the age past which a held lock is treated as abandoned
	LockStaleAfter time.Duration
	// ProdPlanMaxAge is how fresh the last successful plan must be before a
	// production apply may start
	ProdPlanMaxAge time.Duration
	// RunHistoryRetention is how long run history records are kept
	RunHistoryRetention time.Duration
	// EngineTimeout bounds a single IaC engine invocation
	EngineTimeout time.Duration
	// WatchInterval is the delay between report cycles in watch mode
	WatchInterval time.Duration
	// EngineImage is the containerized IaC tool image reference
	EngineImage string
	// ContainerRuntime is the container engine binary used to run the image
	ContainerRuntime string
	// ProjectDir is where project documents are stored
	ProjectDir string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *Config {
	cfg := &Config{
		LockStaleAfter:      DefaultLockStaleAfter,
		ProdPlanMaxAge:      DefaultProdPlanMaxAge,
		RunHistoryRetention: DefaultRunHistoryRetention,
		EngineTimeout:       DefaultEngineTimeout,
		WatchInterval:       DefaultWatchInterval,
		EngineImage:         DefaultEngineImage,
		ContainerRuntime:    DefaultContainerRuntime,
	}

	loadDuration(&cfg.LockStaleAfter, "APPFORGE_LOCK_STALE_AFTER")
	loadDuration(&cfg.ProdPlanMaxAge, "APPFORGE_PROD_PLAN_MAX_AGE")
	loadDuration(&cfg.RunHistoryRetention, "APPFORGE_RUN_HISTORY_RETENTION")
	loadDuration(&cfg.EngineTimeout, "APPFORGE_ENGINE_TIMEOUT")
	loadDuration(&cfg.WatchInterval, "APPFORGE_WATCH_INTERVAL")

	if image := os.Getenv("APPFORGE_ENGINE_IMAGE"); image != "" {
		cfg.EngineImage = image
	}
	if runtime := os.Getenv("APPFORGE_CONTAINER_RUNTIME"); runtime != "" {
		cfg.ContainerRuntime = runtime
	}

	if dir := os.Getenv("APPFORGE_PROJECT_DIR"); dir != "" {
		cfg.ProjectDir = dir
	} else if home, err := os.UserHomeDir(); err == nil {
		cfg.ProjectDir = filepath.Join(home, ".appforge", "projects")
	}

	return cfg
}

// loadDuration overrides dst when the environment variable parses as a duration
func loadDuration(dst *time.Duration, envKey string) {
	if raw := os.Getenv(envKey); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			*dst = d
		}
	}
}

// Package deploy drives a deployment against the container runtime: it
// reconciles containers, sequences services, materializes the env file and
// runs the watch-rebuild loop.
package deploy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/artpar/dploy/internal/core/deployment"
	"github.com/artpar/dploy/internal/core/services"
	"github.com/artpar/dploy/internal/shell/docker"
)

// Defaults for Config.
const (
	DefaultReadinessTimeout  = 60 * time.Second
	DefaultReadinessInterval = 500 * time.Millisecond
	DefaultCooldown          = 3 * time.Second
)

// ErrNoServices is returned when a deploy is requested without a service set.
var ErrNoServices = errors.New("no services to deploy")

// Config configures a Deployer.
type Config struct {
	Docker  docker.Client
	Context *deployment.Context

	// Services is required by Deploy and Watch. Stop, Logs and Exec only need
	// container names and work without it.
	Services *services.Set

	// RunID labels every container created by this process.
	RunID string

	Stdout   io.Writer // Connection info, logs and exec output
	Stderr   io.Writer
	Progress io.Writer // Pull and build output; nil discards it

	ReadinessTimeout  time.Duration
	ReadinessInterval time.Duration
	Cooldown          time.Duration

	// LookupEnv resolves declared app variables missing from the env file.
	LookupEnv func(string) (string, bool)

	Logger *slog.Logger
}

// Deployer executes deployment operations for one context.
type Deployer struct {
	docker   docker.Client
	ctx      *deployment.Context
	set      *services.Set
	runID    string
	stdout   io.Writer
	stderr   io.Writer
	progress io.Writer

	readinessTimeout  time.Duration
	readinessInterval time.Duration
	cooldown          time.Duration

	lookupEnv    func(string) (string, bool)
	pingPostgres func(ctx context.Context, url string) error

	logger *slog.Logger
}

// New creates a Deployer.
func New(cfg Config) *Deployer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.ReadinessTimeout == 0 {
		cfg.ReadinessTimeout = DefaultReadinessTimeout
	}
	if cfg.ReadinessInterval == 0 {
		cfg.ReadinessInterval = DefaultReadinessInterval
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.LookupEnv == nil {
		cfg.LookupEnv = os.LookupEnv
	}

	return &Deployer{
		docker:            cfg.Docker,
		ctx:               cfg.Context,
		set:               cfg.Services,
		runID:             cfg.RunID,
		stdout:            cfg.Stdout,
		stderr:            cfg.Stderr,
		progress:          cfg.Progress,
		readinessTimeout:  cfg.ReadinessTimeout,
		readinessInterval: cfg.ReadinessInterval,
		cooldown:          cfg.Cooldown,
		lookupEnv:         cfg.LookupEnv,
		pingPostgres:      pingPostgres,
		logger:            cfg.Logger.With("component", "deploy"),
	}
}

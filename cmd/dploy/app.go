package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/artpar/dploy/internal/core/appconfig"
	"github.com/artpar/dploy/internal/core/deployment"
	"github.com/artpar/dploy/internal/core/domain"
	"github.com/artpar/dploy/internal/core/services"
	"github.com/artpar/dploy/internal/shell/deploy"
	"github.com/artpar/dploy/internal/shell/docker"
	"github.com/artpar/dploy/internal/shell/netutil"
	"github.com/artpar/dploy/internal/shell/watcher"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitConfigError = 2
)

// CLIError carries the exit code an error should end the process with.
type CLIError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

func configError(op string, err error) error {
	return &CLIError{Op: op, Err: err, ExitCode: ExitConfigError}
}

// exitCode maps an error to the process exit code. A failing exec passes the
// command's own exit code through.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.ExitCode
	}
	var execErr *deploy.ExecError
	if errors.As(err, &execErr) {
		return execErr.Code
	}
	var validationErr *appconfig.ValidationError
	if errors.As(err, &validationErr) || errors.Is(err, deploy.ErrNoWatchPaths) {
		return ExitConfigError
	}
	return ExitError
}

// =============================================================================
// Command Execution
// =============================================================================

// execute loads configuration, connects to the runtime and runs one command.
func execute(ctx context.Context, opts *globalOptions, cmd domain.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := LoadSettings(opts.settingsPath)
	if err != nil {
		return configError("load settings", err)
	}
	logger := SetupLogger(settings, os.Stderr)
	slog.SetDefault(logger)

	appCfg, err := LoadAppConfig(opts.configPath)
	if err != nil {
		return configError("load config", err)
	}

	dctx := deployment.NewContext(cmd, opts.namespace, appCfg, settings.DataDir)
	if cmd.ShouldWatch() && len(dctx.Config().Watch) == 0 {
		return configError("watch", deploy.ErrNoWatchPaths)
	}
	if cmd.Kind == domain.CommandDeploy && cmd.Watch {
		logger.Warn("--watch has no effect on deploy, ignoring it")
	}

	logger.Debug("starting dploy",
		"version", Version,
		"build_time", BuildTime,
		"command", cmd.Kind,
		"sub_command", cmd.Sub,
		"app", dctx.AppName(),
		"namespace", dctx.Namespace(),
	)

	client, err := connect(dctx, settings, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	cfg := deploy.Config{
		Docker:           client,
		Context:          dctx,
		RunID:            uuid.NewString(),
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		ReadinessTimeout: settings.Readiness.Timeout,
		Cooldown:         settings.Watch.Cooldown,
		Logger:           logger,
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		cfg.Progress = os.Stderr
	}

	switch cmd.Sub {
	case domain.SubCommandStop:
		return deploy.New(cfg).Stop(ctx)
	case domain.SubCommandLogs:
		ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return deploy.New(cfg).Logs(ctx)
	case domain.SubCommandExec:
		return deploy.New(cfg).Exec(ctx)
	}

	set, err := services.New(dctx, netutil.NewPortAllocator())
	if err != nil {
		return err
	}
	cfg.Services = set
	deployer := deploy.New(cfg)

	if !cmd.ShouldWatch() {
		ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return deployer.Deploy(ctx)
	}

	shutdown, stop := notifyShutdown(logger)
	defer stop()
	return deployer.Watch(ctx, deploy.WatchOptions{
		NewSource: func(paths []string) (watcher.Source, error) {
			return watcher.New(paths, watcher.Config{
				Interval: settings.Watch.PollInterval,
				Logger:   logger,
			})
		},
		Shutdown: shutdown,
	})
}

// connect opens the local runtime, or the remote one over SSH for deploy.
func connect(dctx *deployment.Context, settings *Settings, logger *slog.Logger) (docker.Client, error) {
	if creds, ok := dctx.SSHCredentials(); ok {
		client, err := docker.NewRemoteDockerClient(creds, docker.SSHOptions{
			KnownHostsFile:        settings.SSH.KnownHosts,
			StrictHostKeyChecking: settings.SSH.StrictHostKeyChecking,
			Logger:                logger,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", creds.Host, err)
		}
		return client, nil
	}

	client, err := docker.NewDockerClient(settings.Docker.Host)
	if err != nil {
		return nil, fmt.Errorf("connect to docker: %w", err)
	}
	return client, nil
}

// notifyShutdown turns the first interrupt into one message on the returned
// channel. The send never blocks.
func notifyShutdown(logger *slog.Logger) (<-chan struct{}, func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	shutdown := make(chan struct{}, 1)
	done := make(chan struct{})
	go forwardSignals(sigCh, shutdown, done, logger)

	return shutdown, func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func forwardSignals(sigCh <-chan os.Signal, shutdown chan<- struct{}, done <-chan struct{}, logger *slog.Logger) {
	for {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			select {
			case shutdown <- struct{}{}:
			default:
			}
		case <-done:
			return
		}
	}
}

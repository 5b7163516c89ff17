package deploy

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/artpar/dploy/internal/core/domain"
	"github.com/artpar/dploy/internal/shell/docker"
)

// DefaultLogsTail is how many lines logs shows before following.
const DefaultLogsTail = 20

// ErrServiceNotActive is returned when a sub-command targets a service the
// command does not run.
var ErrServiceNotActive = errors.New("service is not part of this command")

// Logs prints the logs of the selected service. With a tail count the last
// lines are printed once; otherwise the last DefaultLogsTail lines are printed
// and the output is followed until ctx is done.
func (d *Deployer) Logs(ctx context.Context) error {
	kind, err := d.targetService()
	if err != nil {
		return err
	}
	name := d.ctx.ContainerNameOf(kind)

	opts := docker.LogOptions{Follow: true, Tail: strconv.Itoa(DefaultLogsTail)}
	if tail := d.ctx.Command().Tail; tail != nil {
		opts = docker.LogOptions{Tail: strconv.Itoa(*tail)}
	}

	d.logger.Debug("reading logs", "service", kind, "container", name, "follow", opts.Follow)
	return d.streamLogs(ctx, name, opts)
}

// streamLogs copies container logs until the stream ends or ctx is done.
func (d *Deployer) streamLogs(ctx context.Context, name string, opts docker.LogOptions) error {
	rc, err := d.docker.ContainerLogs(ctx, name, opts)
	if err != nil {
		if docker.IsNotFound(err) {
			return fmt.Errorf("container %s does not exist: %w", name, err)
		}
		return fmt.Errorf("logs %s: %w", name, err)
	}
	defer rc.Close()

	if err := docker.CopyLogs(d.stdout, d.stderr, rc); err != nil && ctx.Err() == nil {
		return fmt.Errorf("logs %s: %w", name, err)
	}
	return nil
}

// followAppLogs starts a task that follows the app container's output.
func (d *Deployer) followAppLogs(ctx context.Context) *Task {
	name := d.ctx.ContainerNameOf(domain.ServiceApp)
	return StartTask(ctx, func(ctx context.Context) error {
		return d.streamLogs(ctx, name, docker.LogOptions{Follow: true, Tail: "all"})
	})
}

// targetService resolves the service named by the command, defaulting to the
// app, or to the first dependency when there is no app.
func (d *Deployer) targetService() (domain.ServiceKind, error) {
	cmd := d.ctx.Command()
	allowed := d.ctx.LogsServices()

	kind := cmd.Service
	if kind == "" {
		kind = cmd.DefaultLogsService()
		if !containsKind(allowed, kind) && len(allowed) > 0 {
			kind = allowed[0]
		}
	}

	if !containsKind(allowed, kind) {
		return "", fmt.Errorf("%s: %w", kind, ErrServiceNotActive)
	}
	return kind, nil
}

func containsKind(kinds []domain.ServiceKind, kind domain.ServiceKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

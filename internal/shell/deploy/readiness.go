package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/dploy/internal/core/services"
)

// ErrNotReady is returned when a service does not become ready in time.
var ErrNotReady = errors.New("service not ready")

// =============================================================================
// Post-startup Hooks
// =============================================================================

// runHooks runs the post-startup hook of every service concurrently and waits
// for all of them. The first failure cancels the others.
func (d *Deployer) runHooks(ctx context.Context, svcs []services.Service) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range svcs {
		check := d.readinessCheck(svc)
		if check == nil {
			continue
		}
		name := d.ctx.ContainerNameOf(svc.Kind())
		g.Go(func() error {
			d.logger.Info("waiting for service", "service", svc.Kind(), "container", name)
			if err := d.waitReady(gctx, check); err != nil {
				return fmt.Errorf("%s: %w", svc.Kind(), err)
			}
			d.logger.Info("service ready", "service", svc.Kind(), "container", name)
			return nil
		})
	}
	return g.Wait()
}

// readinessCheck returns the probe for a service, or nil when it has none.
func (d *Deployer) readinessCheck(svc services.Service) func(context.Context) error {
	name := d.ctx.ContainerNameOf(svc.Kind())

	switch s := svc.(type) {
	case *services.Postgres:
		creds := s.Credentials()
		if b := s.Bindings()[0]; b.Exposed() {
			url := s.URL(b.HostHost, b.HostPort)
			return func(ctx context.Context) error {
				return d.pingPostgres(ctx, url)
			}
		}
		return d.execCheck(name, []string{"pg_isready", "-U", creds.Username, "-d", creds.Database}, "")

	case *services.Keydb:
		return d.execCheck(name, []string{"keydb-cli", "ping"}, "PONG")
	}

	// The app and the proxy have no readiness hook.
	return nil
}

// execCheck runs cmd in the container. It passes on a zero exit code and, when
// want is set, when stdout equals want.
func (d *Deployer) execCheck(container string, cmd []string, want string) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := d.docker.Exec(ctx, container, cmd)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("%s exited with code %d", cmd[0], res.ExitCode)
		}
		if want != "" {
			if got := strings.TrimSpace(string(res.Stdout)); got != want {
				return fmt.Errorf("%s answered %q", cmd[0], got)
			}
		}
		return nil
	}
}

// waitReady polls check until it passes or the readiness timeout expires.
func (d *Deployer) waitReady(ctx context.Context, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.readinessTimeout)
	defer cancel()

	ticker := time.NewTicker(d.readinessInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = check(ctx); lastErr == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w after %s: %v", ErrNotReady, d.readinessTimeout, lastErr)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// pingPostgres opens a single connection and pings the server.
func pingPostgres(ctx context.Context, url string) error {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

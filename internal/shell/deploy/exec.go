package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/dploy/internal/core/domain"
	"github.com/artpar/dploy/internal/shell/docker"
)

// ErrEmptyCommand is returned by Exec without a command.
var ErrEmptyCommand = errors.New("no command to execute")

// ExecError reports a command that ran but exited non-zero.
type ExecError struct {
	Service domain.ServiceKind
	Code    int
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("command in %s exited with code %d", e.Service, e.Code)
}

// Exec runs the command through sh -c inside the selected service's container
// and prints its output.
func (d *Deployer) Exec(ctx context.Context) error {
	command := d.ctx.Command().ExecCommand
	if command == "" {
		return ErrEmptyCommand
	}
	kind, err := d.targetService()
	if err != nil {
		return err
	}
	name := d.ctx.ContainerNameOf(kind)

	d.logger.Debug("executing command", "service", kind, "container", name, "command", command)
	res, err := d.docker.Exec(ctx, name, []string{"sh", "-c", command})
	if err != nil {
		if docker.IsNotFound(err) {
			return fmt.Errorf("container %s does not exist: %w", name, err)
		}
		return fmt.Errorf("exec in %s: %w", name, err)
	}

	if _, err := d.stdout.Write(res.Stdout); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if _, err := d.stderr.Write(res.Stderr); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if res.ExitCode != 0 {
		return &ExecError{Service: kind, Code: res.ExitCode}
	}
	return nil
}

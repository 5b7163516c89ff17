package domain

import "fmt"

// =============================================================================
// Command Kinds
// =============================================================================

// CommandKind identifies the top-level command. It is also the key of override rules.
type CommandKind string

const (
	CommandDeploy CommandKind = "deploy"
	CommandRun    CommandKind = "run"
	CommandDev    CommandKind = "dev"
)

// ParseCommandKind converts an override-rule key into a CommandKind.
func ParseCommandKind(s string) (CommandKind, error) {
	switch CommandKind(s) {
	case CommandDeploy, CommandRun, CommandDev:
		return CommandKind(s), nil
	default:
		return "", fmt.Errorf("unknown command %q", s)
	}
}

// SubCommand is the optional operation under a command.
type SubCommand string

const (
	SubCommandNone SubCommand = ""
	SubCommandStop SubCommand = "stop"
	SubCommandLogs SubCommand = "logs"
	SubCommandExec SubCommand = "exec"
)

// =============================================================================
// Exposure Policy
// =============================================================================

// Exposure describes how service ports are reachable for a command.
type Exposure int

const (
	// ExposureLocalDependencies publishes dependency ports for an app running on the host.
	ExposureLocalDependencies Exposure = iota
	// ExposureLocalFullStack publishes ports while the app talks to services by container name.
	ExposureLocalFullStack
	// ExposureRemote publishes nothing; services are reached by container name only.
	ExposureRemote
)

func (e Exposure) String() string {
	switch e {
	case ExposureLocalDependencies:
		return "local-dependencies-only"
	case ExposureLocalFullStack:
		return "local-full-stack"
	case ExposureRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// PublishesHostPorts reports whether ports are allocated on the operator's machine.
func (e Exposure) PublishesHostPorts() bool {
	return e != ExposureRemote
}

// =============================================================================
// Command
// =============================================================================

// Command is the already-parsed command line.
type Command struct {
	Kind CommandKind
	Sub  SubCommand

	// Watch enables the watch-rebuild loop. Only meaningful for Run.
	Watch bool

	// Remote target, Deploy only.
	Host     string
	Port     int
	Username string
	Keyfile  string

	// Logs and Exec options.
	Tail        *int
	Service     ServiceKind
	ExecCommand string
}

// Exposure returns the port exposure policy of the command.
func (c Command) Exposure() Exposure {
	switch c.Kind {
	case CommandDev:
		return ExposureLocalDependencies
	case CommandRun:
		return ExposureLocalFullStack
	default:
		return ExposureRemote
	}
}

// IsStop reports whether the stop sub-command was requested.
func (c Command) IsStop() bool {
	return c.Sub == SubCommandStop
}

// ShouldWatch reports whether the watch-rebuild loop applies.
func (c Command) ShouldWatch() bool {
	return c.Kind == CommandRun && c.Watch
}

// DefaultLogsService is the service targeted by logs and exec when none is given.
func (c Command) DefaultLogsService() ServiceKind {
	if c.Kind == CommandDev {
		return ServicePostgres
	}
	return ServiceApp
}

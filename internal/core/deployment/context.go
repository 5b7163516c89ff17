package deployment

import (
	"github.com/artpar/dploy/internal/core/appconfig"
	"github.com/artpar/dploy/internal/core/domain"
)

// DefaultDataDir is the root for volumes and manual mounts on the target host.
const DefaultDataDir = "/var/lib/dploy"

// =============================================================================
// Context
// =============================================================================

// Context is the read-only aggregate every deployment operation works from:
// the parsed command, the namespace, and the application configuration with the
// override rule of the command already applied.
//
// A Context is built once per process and shared by pointer. Nothing mutates it.
type Context struct {
	command   domain.Command
	namespace string
	config    appconfig.AppConfig
	resolved  appconfig.Resolved
	dataDir   string
}

// NewContext builds the Context. An empty namespace selects the default namespace
// and an empty dataDir selects DefaultDataDir.
func NewContext(command domain.Command, namespace string, config appconfig.AppConfig, dataDir string) *Context {
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	return &Context{
		command:   command,
		namespace: namespace,
		config:    config,
		resolved:  config.Resolve(command.Kind),
		dataDir:   dataDir,
	}
}

func (c *Context) Command() domain.Command { return c.command }

func (c *Context) Namespace() string { return c.namespace }

// AppConfig returns the raw configuration as loaded.
func (c *Context) AppConfig() appconfig.AppConfig { return c.config }

// Config returns the configuration resolved for the active command.
func (c *Context) Config() appconfig.Resolved { return c.resolved }

func (c *Context) DataDir() string { return c.dataDir }

// AppName is the application name after overrides.
func (c *Context) AppName() string { return c.resolved.Name }

// Exposure returns the port exposure policy of the active command.
func (c *Context) Exposure() domain.Exposure { return c.command.Exposure() }

// =============================================================================
// Command Predicates
// =============================================================================

func (c *Context) is(kinds ...domain.CommandKind) bool {
	for _, k := range kinds {
		if c.command.Kind == k {
			return true
		}
	}
	return false
}

// ShouldExposeToHost reports whether dependency ports are published on the host.
func (c *Context) ShouldExposeToHost() bool {
	return c.is(domain.CommandDev, domain.CommandRun)
}

// ShouldExposeAppToHost reports whether the app container port is published on the host.
func (c *Context) ShouldExposeAppToHost() bool {
	return c.is(domain.CommandRun)
}

func (c *Context) ShouldPrintConnectionInfo() bool {
	return c.is(domain.CommandDev, domain.CommandRun)
}

func (c *Context) ShouldCreateAppService() bool {
	return c.is(domain.CommandDeploy, domain.CommandRun)
}

// ShouldCreateProxyService is true only for a plain deploy. The proxy is shared by
// every app on the host, so sub-commands never touch it.
func (c *Context) ShouldCreateProxyService() bool {
	return c.is(domain.CommandDeploy) && c.command.Sub == domain.SubCommandNone
}

func (c *Context) ShouldGenerateEnvFile() bool {
	return c.is(domain.CommandDev, domain.CommandRun)
}

// ShouldCreateNetwork is true whenever containers address each other by name.
// Dev is excluded: its app runs on the host and reaches dependencies through
// published ports. Deploy needs the network for the app and proxy.
func (c *Context) ShouldCreateNetwork() bool {
	return c.is(domain.CommandRun, domain.CommandDeploy)
}

// SSHCredentials returns the remote target of a deploy command.
func (c *Context) SSHCredentials() (domain.SSHCredentials, bool) {
	if c.command.Kind != domain.CommandDeploy {
		return domain.SSHCredentials{}, false
	}
	return domain.SSHCredentials{
		Host:     c.command.Host,
		Port:     c.command.Port,
		Username: c.command.Username,
		Keyfile:  c.command.Keyfile,
	}, true
}

// LogsServices lists the kinds the logs and exec sub-commands may target.
func (c *Context) LogsServices() []domain.ServiceKind {
	var kinds []domain.ServiceKind
	if c.is(domain.CommandRun, domain.CommandDeploy) {
		kinds = append(kinds, domain.ServiceApp)
	}
	kinds = append(kinds, c.resolved.DependencyKinds()...)
	if c.is(domain.CommandDeploy) {
		kinds = append(kinds, domain.ServiceProxy)
	}
	return kinds
}

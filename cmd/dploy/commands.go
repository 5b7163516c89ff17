package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/dploy/internal/core/domain"
)

// DefaultConfigFile is read when --config is not given.
const DefaultConfigFile = "dploy.toml"

// runCommand executes a parsed command. Tests replace it to inspect parsing.
var runCommand = execute

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath   string
	settingsPath string
	namespace    string
}

// commandFlags collects the flags of one invocation before it becomes a domain.Command.
type commandFlags struct {
	port     int
	username string
	keyfile  string
	watch    bool
	tail     int
	service  string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "dploy",
		Short:         "dploy - deploy an app and its services as containers",
		Long:          "Builds an application, starts the databases and caches it depends on, and keeps everything wired together locally or on a remote host.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", DefaultConfigFile, "Path to the app configuration")
	root.PersistentFlags().StringVar(&opts.settingsPath, "settings", "", "Path to a dploy settings file")
	root.PersistentFlags().StringVarP(&opts.namespace, "namespace", "n", domain.DefaultNamespace, "Namespace isolating this instance")

	root.AddCommand(
		newDeployCommand(opts),
		newLocalCommand(opts, domain.CommandRun, "r", "Build and run the app and its services locally"),
		newLocalCommand(opts, domain.CommandDev, "d", "Run the app's services locally for development on the host"),
	)
	return root
}

// =============================================================================
// Top-level Commands
// =============================================================================

func newDeployCommand(opts *globalOptions) *cobra.Command {
	flags := &commandFlags{}

	deployCmd := &cobra.Command{
		Use:     "deploy <host>",
		Aliases: []string{"D"},
		Short:   "Deploy the app and its services to a remote host over SSH",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := remoteCommand(cmd, flags, args[0])
			return runCommand(cmd.Context(), opts, c)
		},
	}

	pf := deployCmd.PersistentFlags()
	pf.IntVarP(&flags.port, "port", "p", domain.DefaultSSHPort, "SSH port")
	pf.StringVarP(&flags.username, "username", "u", domain.DefaultSSHUser, "SSH user")
	pf.StringVarP(&flags.keyfile, "keyfile", "k", "", "SSH private key file")
	deployCmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Accepted for symmetry with run; ignored")

	deployCmd.AddCommand(
		newSubCommand(opts, flags, domain.CommandDeploy, domain.SubCommandStop),
		newSubCommand(opts, flags, domain.CommandDeploy, domain.SubCommandLogs),
		newSubCommand(opts, flags, domain.CommandDeploy, domain.SubCommandExec),
	)
	return deployCmd
}

func newLocalCommand(opts *globalOptions, kind domain.CommandKind, alias, short string) *cobra.Command {
	flags := &commandFlags{}

	cmd := &cobra.Command{
		Use:     string(kind),
		Aliases: []string{alias},
		Short:   short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd.Context(), opts, domain.Command{Kind: kind, Watch: flags.watch})
		},
	}
	if kind == domain.CommandRun {
		cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Rebuild the app when watched files change")
	}

	cmd.AddCommand(
		newSubCommand(opts, flags, kind, domain.SubCommandStop),
		newSubCommand(opts, flags, kind, domain.SubCommandLogs),
		newSubCommand(opts, flags, kind, domain.SubCommandExec),
	)
	return cmd
}

// =============================================================================
// Sub-commands
// =============================================================================

// newSubCommand builds stop, logs or exec under a command. Under deploy the
// remote host is the first argument.
func newSubCommand(opts *globalOptions, parent *commandFlags, kind domain.CommandKind, sub domain.SubCommand) *cobra.Command {
	flags := &commandFlags{}
	remote := kind == domain.CommandDeploy

	cmd := &cobra.Command{
		Use:     subCommandUse(sub, remote),
		Aliases: []string{string(sub)[:1]},
		Short:   subCommandShort(sub),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := domain.Command{Kind: kind}
			if remote {
				c = remoteCommand(cmd, parent, args[0])
				args = args[1:]
			}
			c.Sub = sub

			if cmd.Flags().Changed("tail") {
				tail := flags.tail
				c.Tail = &tail
			}
			if flags.service != "" {
				svc, err := domain.ParseServiceKind(flags.service)
				if err != nil {
					return configError("parse flags", err)
				}
				c.Service = svc
			}
			if sub == domain.SubCommandExec {
				c.ExecCommand = strings.Join(args, " ")
			}
			return runCommand(cmd.Context(), opts, c)
		},
	}

	positional := 0
	if remote {
		positional = 1
	}
	switch sub {
	case domain.SubCommandStop:
		cmd.Args = cobra.ExactArgs(positional)
	case domain.SubCommandLogs:
		cmd.Args = cobra.ExactArgs(positional)
		cmd.Flags().IntVarP(&flags.tail, "tail", "t", 0, "Print the last N lines and exit instead of following")
		cmd.Flags().StringVarP(&flags.service, "service", "s", "", "Service to read logs from")
	case domain.SubCommandExec:
		cmd.Args = cobra.MinimumNArgs(positional + 1)
		cmd.Flags().StringVarP(&flags.service, "service", "s", "", "Service to run the command in")
	}
	return cmd
}

func subCommandUse(sub domain.SubCommand, remote bool) string {
	use := string(sub)
	if remote {
		use += " <host>"
	}
	if sub == domain.SubCommandExec {
		use += " <command>"
	}
	return use
}

func subCommandShort(sub domain.SubCommand) string {
	switch sub {
	case domain.SubCommandStop:
		return "Stop the running containers"
	case domain.SubCommandLogs:
		return "Show a service's logs"
	case domain.SubCommandExec:
		return "Run a shell command inside a service's container"
	default:
		return ""
	}
}

// remoteCommand builds a deploy command. Port and user are only set when given
// explicitly so ~/.ssh/config can fill them in.
func remoteCommand(cmd *cobra.Command, flags *commandFlags, host string) domain.Command {
	c := domain.Command{
		Kind:    domain.CommandDeploy,
		Host:    host,
		Keyfile: flags.keyfile,
		Watch:   flags.watch,
	}
	if cmd.Flags().Changed("port") {
		c.Port = flags.port
	}
	if cmd.Flags().Changed("username") {
		c.Username = flags.username
	}
	return c
}

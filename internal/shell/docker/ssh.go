package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/client"
	"github.com/kevinburke/ssh_config"
	sshagent "github.com/xanzy/ssh-agent"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/artpar/dploy/internal/core/domain"
)

// DefaultRemoteSocket is the Docker API socket dialed on the remote host.
const DefaultRemoteSocket = "/var/run/docker.sock"

// SSHOptions configures the SSH transport of a remote Docker client.
type SSHOptions struct {
	KnownHostsFile        string        // Default: ~/.ssh/known_hosts
	StrictHostKeyChecking bool          // Refuse to connect without a known_hosts file
	ConnectTimeout        time.Duration // Default: 10 seconds
	SocketPath            string        // Default: /var/run/docker.sock
	Logger                *slog.Logger
}

// sshTarget is the fully resolved SSH destination.
type sshTarget struct {
	Alias        string
	HostName     string
	Port         int
	User         string
	IdentityFile string
}

func (t sshTarget) Address() string {
	return net.JoinHostPort(t.HostName, strconv.Itoa(t.Port))
}

// sshConfigLookup reads a key for a host alias from ~/.ssh/config.
type sshConfigLookup func(alias, key string) string

// resolveTarget fills what the command line left out from the SSH config.
// Explicit credentials take precedence.
func resolveTarget(creds domain.SSHCredentials, lookup sshConfigLookup) (sshTarget, error) {
	t := sshTarget{
		Alias:        creds.Host,
		HostName:     creds.Host,
		Port:         creds.Port,
		User:         creds.Username,
		IdentityFile: creds.Keyfile,
	}

	if lookup != nil {
		if v := lookup(creds.Host, "HostName"); v != "" {
			t.HostName = v
		}
		if t.Port == 0 {
			if v := lookup(creds.Host, "Port"); v != "" {
				p, err := strconv.Atoi(v)
				if err != nil {
					return sshTarget{}, fmt.Errorf("invalid Port %q in ssh config for %s: %w", v, creds.Host, err)
				}
				t.Port = p
			}
		}
		if t.User == "" {
			t.User = lookup(creds.Host, "User")
		}
		if t.IdentityFile == "" {
			if v := lookup(creds.Host, "IdentityFile"); v != "" && v != ssh_config.Default("IdentityFile") {
				t.IdentityFile = v
			}
		}
	}

	if t.Port == 0 {
		t.Port = domain.DefaultSSHPort
	}
	if t.User == "" {
		t.User = domain.DefaultSSHUser
	}
	t.IdentityFile = expandHome(t.IdentityFile)
	return t, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// hostKeyCallback verifies the server against known_hosts. Without a known_hosts
// file the key is accepted unless strict checking is on.
func hostKeyCallback(opts SSHOptions, logger *slog.Logger) (ssh.HostKeyCallback, error) {
	path := opts.KnownHostsFile
	if path == "" {
		path = "~/.ssh/known_hosts"
	}
	path = expandHome(path)

	cb, err := knownhosts.New(path)
	if err == nil {
		return cb, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read known hosts %s: %w", path, err)
	}
	if opts.StrictHostKeyChecking {
		return nil, fmt.Errorf("known hosts file %s not found and strict host key checking is enabled", path)
	}
	logger.Warn("known hosts file not found, host key will not be verified", "path", path)
	return ssh.InsecureIgnoreHostKey(), nil
}

// authMethods uses the identity file when one is resolved, else the SSH agent.
// The returned closer releases the agent connection.
func authMethods(target sshTarget) ([]ssh.AuthMethod, io.Closer, error) {
	if target.IdentityFile != "" {
		key, err := os.ReadFile(target.IdentityFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read identity file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, nil, fmt.Errorf("parse SSH private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil, nil
	}

	if !sshagent.Available() {
		return nil, nil, errors.New("no identity file given and no SSH agent available")
	}
	ag, conn, err := sshagent.New()
	if err != nil {
		return nil, nil, fmt.Errorf("connect to SSH agent: %w", err)
	}
	return []ssh.AuthMethod{ssh.PublicKeysCallback(ag.Signers)}, conn, nil
}

// =============================================================================
// Remote Client
// =============================================================================

// NewRemoteDockerClient connects to the Docker daemon of a remote host by
// tunnelling the API socket through SSH.
func NewRemoteDockerClient(creds domain.SSHCredentials, opts SSHOptions) (*DockerClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.SocketPath == "" {
		opts.SocketPath = DefaultRemoteSocket
	}

	target, err := resolveTarget(creds, ssh_config.Get)
	if err != nil {
		return nil, err
	}

	hostKeys, err := hostKeyCallback(opts, logger)
	if err != nil {
		return nil, err
	}

	auth, agentConn, err := authMethods(target)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            target.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         opts.ConnectTimeout,
	}

	logger.Debug("connecting over SSH", "host", target.HostName, "port", target.Port, "user", target.User)
	sshClient, err := ssh.Dial("tcp", target.Address(), config)
	if err != nil {
		if agentConn != nil {
			agentConn.Close()
		}
		return nil, NewDockerError("NewRemoteDockerClient", "", "", fmt.Sprintf("SSH dial %s: %v", target.Address(), err), ErrConnectionFailed)
	}

	socket := opts.SocketPath
	cli, err := client.NewClientWithOpts(
		client.WithHost("http://"+target.HostName),
		client.WithDialContext(func(ctx context.Context, _, _ string) (net.Conn, error) {
			return sshClient.DialContext(ctx, "unix", socket)
		}),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		sshClient.Close()
		if agentConn != nil {
			agentConn.Close()
		}
		return nil, NewDockerError("NewRemoteDockerClient", "", "", err.Error(), ErrConnectionFailed)
	}

	closers := []io.Closer{sshClient}
	if agentConn != nil {
		closers = append(closers, agentConn)
	}
	return &DockerClient{cli: cli, closers: closers}, nil
}

package domain

// DefaultSSHPort and DefaultSSHUser match the deploy command defaults.
const (
	DefaultSSHPort = 22
	DefaultSSHUser = "root"
)

// SSHCredentials identify the remote host for Deploy. They are opaque to the
// orchestration core and only handed to the SSH transport.
type SSHCredentials struct {
	Host     string
	Port     int
	Username string
	Keyfile  string // empty when the SSH agent should be used
}

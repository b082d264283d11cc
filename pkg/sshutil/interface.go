package sshutil

// SSHClient is the part of Client the SSH transport depends on. Tests
// substitute a fake that never touches the network.
type SSHClient interface {
	// Start runs cmd in a new session without waiting for it to finish.
	Start(cmd string) (Process, error)

	// Close closes the SSH connection, ending any running sessions.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}

// Process is a command started on a remote host.
type Process interface {
	// Done is closed once the command has exited or failed.
	Done() <-chan struct{}

	// Result reports the command's output. Only meaningful after Done.
	Result() Result
}

var _ SSHClient = (*Client)(nil)

// Package sshutil dials SSH connections the way the ssh command does:
// aliases and identity files come from ~/.ssh/config, keys from the agent
// or disk, and host keys are checked against known_hosts.
package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/logger"
	"golang.org/x/crypto/ssh"
)

// DefaultDialTimeout bounds TCP connect plus handshake when DialOptions
// leaves Timeout unset.
const DefaultDialTimeout = 10 * time.Second

// DialOptions tunes how Dial finds settings and credentials. The zero value
// reads everything from the user's ~/.ssh directory.
type DialOptions struct {
	Timeout time.Duration

	// SSHConfigPath defaults to ~/.ssh/config.
	SSHConfigPath string

	// KnownHostsPath defaults to ~/.ssh/known_hosts.
	KnownHostsPath string

	// IdentityFiles are tried after the agent and any IdentityFile from
	// the SSH config, before the default ~/.ssh/id_* keys.
	IdentityFiles []string

	// InsecureIgnoreHostKey skips known_hosts verification.
	InsecureIgnoreHostKey bool

	Logger logger.Logger
}

func (o DialOptions) withDefaults() DialOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultDialTimeout
	}
	if o.SSHConfigPath == "" {
		o.SSHConfigPath = filepath.Join(homeDir(), ".ssh", "config")
	}
	if o.KnownHostsPath == "" {
		o.KnownHostsPath = filepath.Join(homeDir(), ".ssh", "known_hosts")
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}
	return o
}

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
}

// matchWarningOnce keeps the Match directive warning to once per process.
var matchWarningOnce sync.Once

// Dial establishes an SSH connection to the specified host.
// The host can be:
//   - An SSH config alias (e.g., "myserver")
//   - A hostname (e.g., "192.168.1.100")
//   - A user@hostname (e.g., "user@192.168.1.100")
//   - A hostname:port (e.g., "192.168.1.100:2222")
func Dial(ctx context.Context, host string, opts DialOptions) (*Client, error) {
	opts = opts.withDefaults()
	settings := resolveSettings(host, opts)

	config, err := buildClientConfig(settings, opts)
	if err != nil {
		var fmErr *errors.Error
		if stderrors.As(err, &fmErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	dialCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	address := settings.address()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	// The handshake has no context of its own; a deadline keeps a silent
	// server from hanging the worker.
	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrTransport, hostKeyErr.Error(), hostKeyErr.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err, settings.encryptedKeys))
	}
	_ = conn.SetDeadline(time.Time{})

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// sshSettings holds resolved SSH connection parameters.
type sshSettings struct {
	hostname      string
	port          string
	user          string
	identityFile  string
	encryptedKeys []string // Keys that exist but are encrypted
}

// address returns the host:port string for dialing.
func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// parseHostSpec splits user@host:port. Missing parts come back empty.
func parseHostSpec(spec string) (user, host, port string) {
	host = spec
	if at := strings.LastIndex(host, "@"); at != -1 {
		user = host[:at]
		host = host[at+1:]
	}
	if colon := strings.LastIndex(host, ":"); colon != -1 && isDigits(host[colon+1:]) {
		port = host[colon+1:]
		host = host[:colon]
	}
	return user, host, port
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// resolveSettings layers the host spec over ~/.ssh/config. Explicit user
// and port in the spec win over the config file.
func resolveSettings(spec string, opts DialOptions) *sshSettings {
	user, host, port := parseHostSpec(spec)
	settings := &sshSettings{
		hostname: host,
		port:     "22",
		user:     currentUser(),
	}

	content, matchLine, err := preprocessSSHConfig(opts.SSHConfigPath)
	if err == nil {
		if cfg, err := ssh_config.Decode(bytes.NewReader(content)); err == nil {
			found := applySSHConfig(cfg, host, settings)
			if matchLine > 0 && !found {
				matchWarningOnce.Do(func() {
					opts.Logger.Warn("host '%s' not found in SSH config (a Match block at line %d may hide later entries)",
						host, matchLine)
				})
			}
		}
	}

	if user != "" {
		settings.user = user
	}
	if port != "" {
		settings.port = port
	}
	return settings
}

// applySSHConfig copies HostName, Port, User and IdentityFile for alias.
// Returns whether any of them were set.
func applySSHConfig(cfg *ssh_config.Config, alias string, s *sshSettings) bool {
	found := false
	if v, _ := cfg.Get(alias, "HostName"); v != "" {
		s.hostname = v
		found = true
	}
	if v, _ := cfg.Get(alias, "Port"); v != "" {
		s.port = v
		found = true
	}
	if v, _ := cfg.Get(alias, "User"); v != "" {
		s.user = v
		found = true
	}
	if v, _ := cfg.Get(alias, "IdentityFile"); v != "" {
		s.identityFile = expandPath(v)
		found = true
	}
	return found
}

// preprocessSSHConfig returns the config up to the first Match directive,
// which ssh_config can't parse, and the 1-indexed line it was found on.
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			return []byte(strings.Join(lines[:i], "\n")), i + 1, nil
		}
	}
	return content, 0, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return "Is SSH running on that box? Try: ssh <host>"
	case strings.Contains(errStr, "no route to host"), strings.Contains(errStr, "network is unreachable"):
		return "Can't route to the host. Check your network connection."
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

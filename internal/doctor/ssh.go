package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// SSHKeyCheck verifies an SSH key or a running agent is available.
type SSHKeyCheck struct {
	Home string // defaults to the user's home directory
}

func (c *SSHKeyCheck) Name() string     { return "ssh_key" }
func (c *SSHKeyCheck) Category() string { return CategorySSH }

func (c *SSHKeyCheck) Run(_ context.Context) CheckResult {
	if os.Getenv("SSH_AUTH_SOCK") != "" {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "SSH agent available",
		}
	}

	home := c.Home
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusFail,
				Message:    "Cannot determine home directory",
				Suggestion: "Check HOME environment variable",
			}
		}
	}

	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		if _, err := os.Stat(filepath.Join(home, ".ssh", name)); err == nil {
			return CheckResult{
				Name:    c.Name(),
				Status:  StatusPass,
				Message: fmt.Sprintf("SSH key found: ~/.ssh/%s", name),
			}
		}
	}

	return CheckResult{
		Name:       c.Name(),
		Status:     StatusFail,
		Message:    "No SSH agent and no key in ~/.ssh",
		Suggestion: "Start an agent and add a key: ssh-add ~/.ssh/id_ed25519",
	}
}

// KnownHostsCheck verifies known_hosts exists. fleetmon never adds
// entries, so every host must have been connected to once with ssh.
type KnownHostsCheck struct {
	Path string // defaults to ~/.ssh/known_hosts
}

func (c *KnownHostsCheck) Name() string     { return "known_hosts" }
func (c *KnownHostsCheck) Category() string { return CategorySSH }

func (c *KnownHostsCheck) Run(_ context.Context) CheckResult {
	path := c.Path
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	info, err := os.Stat(path)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "known_hosts file not found",
			Suggestion: "Connect to each host once with ssh to record its key",
		}
	}
	if info.Size() == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "known_hosts is empty",
			Suggestion: "Connect to each host once with ssh to record its key",
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "known_hosts present",
	}
}

// NewSSHChecks returns the local SSH setup checks.
func NewSSHChecks() []Check {
	return []Check{
		&SSHKeyCheck{},
		&KnownHostsCheck{},
	}
}

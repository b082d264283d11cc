// Package sshexec runs the diagnostic script over plain SSH for machines
// outside AWS Systems Manager.
package sshexec

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rileyhilliard/fleetmon/internal/config"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
	"github.com/rileyhilliard/fleetmon/pkg/sshutil"
)

// DialFunc opens a connection to an SSH host spec.
type DialFunc func(ctx context.Context, host string) (sshutil.SSHClient, error)

// Factory creates one Transport per collection, each with its own connection.
type Factory struct {
	hosts map[string]config.Host
	dial  DialFunc
}

// NewFactory dials hosts through sshutil with opts.
func NewFactory(hosts map[string]config.Host, opts sshutil.DialOptions) *Factory {
	return NewFactoryWithDialer(hosts, func(ctx context.Context, host string) (sshutil.SSHClient, error) {
		return sshutil.Dial(ctx, host, opts)
	})
}

// NewFactoryWithDialer is NewFactory with a custom dialer.
func NewFactoryWithDialer(hosts map[string]config.Host, dial DialFunc) *Factory {
	return &Factory{hosts: hosts, dial: dial}
}

// NewTransport implements fleet.TransportFactory. The connection is opened
// lazily by Submit, once the target is known.
func (f *Factory) NewTransport(_ context.Context) (fleet.Transport, error) {
	return &Transport{
		hosts:   f.hosts,
		dial:    f.dial,
		running: make(map[string]sshutil.Process),
	}, nil
}

// Transport runs commands on the hosts it is asked about. Not safe for
// concurrent use; each worker owns its own.
type Transport struct {
	hosts   map[string]config.Host
	dial    DialFunc
	clients []sshutil.SSHClient
	running map[string]sshutil.Process
}

// Submit dials the target's host and starts script in a session.
func (t *Transport) Submit(ctx context.Context, targetID, script string) (fleet.CommandHandle, error) {
	host, ok := t.hosts[targetID]
	if !ok || host.SSH == "" {
		return fleet.CommandHandle{}, errors.New(errors.ErrTransport,
			fmt.Sprintf("No ssh address for '%s'", targetID),
			"Add it under 'hosts:' in the config file.")
	}

	client, err := t.dial(ctx, host.SSH)
	if err != nil {
		return fleet.CommandHandle{}, err
	}
	t.clients = append(t.clients, client)

	proc, err := client.Start(script)
	if err != nil {
		return fleet.CommandHandle{}, err
	}

	id := uuid.NewString()
	t.running[id] = proc
	return fleet.CommandHandle{ID: id, TargetID: targetID}, nil
}

// Poll checks whether the command has exited without blocking.
func (t *Transport) Poll(_ context.Context, h fleet.CommandHandle) (fleet.PollStatus, error) {
	proc, ok := t.running[h.ID]
	if !ok {
		return fleet.PollStatus{}, errors.New(errors.ErrTransport,
			fmt.Sprintf("Unknown command %s for %s", h.ID, h.TargetID), "")
	}

	select {
	case <-proc.Done():
	default:
		return fleet.PollStatus{Detail: "Running"}, nil
	}

	delete(t.running, h.ID)
	res := proc.Result()
	if res.Err != nil {
		return fleet.PollStatus{}, errors.Wrap(res.Err, "Command on "+h.TargetID+" was interrupted")
	}
	if res.ExitCode != 0 {
		detail := fmt.Sprintf("exit status %d", res.ExitCode)
		if stderr := strings.TrimSpace(string(res.Stderr)); stderr != "" {
			detail += ": " + stderr
		}
		return fleet.PollStatus{Terminal: true, Detail: detail, Output: string(res.Stdout)}, nil
	}
	return fleet.PollStatus{Terminal: true, Success: true, Detail: "exit status 0", Output: string(res.Stdout)}, nil
}

// Close drops every connection this transport opened.
func (t *Transport) Close() error {
	var first error
	for _, c := range t.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	t.clients = nil
	return first
}

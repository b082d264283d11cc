package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rileyhilliard/fleetmon/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Result is the outcome of a remote command.
// ExitCode is -1 if the command couldn't be executed at all, in which case
// Err says why. A non-zero exit code with nil Err means the command ran but
// failed.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Err      error
}

// Command is a command running in its own session.
type Command struct {
	session *ssh.Session
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	done    chan struct{}
	result  Result
}

var _ Process = (*Command)(nil)

// Start runs cmd in a new session and returns without waiting for it.
func (c *Client) Start(cmd string) (Process, error) {
	command, err := c.start(cmd)
	if err != nil {
		return nil, err
	}
	return command, nil
}

func (c *Client) start(cmd string) (*Command, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}

	command := &Command{session: session, done: make(chan struct{})}
	session.Stdout = &command.stdout
	session.Stderr = &command.stderr

	if err := session.Start(cmd); err != nil {
		session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to start remote command",
			"Check the remote user has a working shell.")
	}

	go command.wait()
	return command, nil
}

func (c *Command) wait() {
	defer close(c.done)
	defer c.session.Close()

	err := c.session.Wait()
	c.result = Result{Stdout: c.stdout.Bytes(), Stderr: c.stderr.Bytes()}

	var exitErr *ssh.ExitError
	switch {
	case err == nil:
		c.result.ExitCode = 0
	case stderrors.As(err, &exitErr):
		c.result.ExitCode = exitErr.ExitStatus()
	default:
		c.result.ExitCode = -1
		c.result.Err = fmt.Errorf("remote command did not report an exit status: %w", err)
	}
}

// Done is closed once the command has exited.
func (c *Command) Done() <-chan struct{} {
	return c.done
}

// Result returns the command's output. Call it after Done is closed.
func (c *Command) Result() Result {
	<-c.done
	return c.result
}

// Exec runs cmd and waits for it, giving up when ctx is done.
// Giving up closes the session.
func (c *Client) Exec(ctx context.Context, cmd string) (Result, error) {
	command, err := c.start(cmd)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	return command.await(ctx)
}

func (c *Command) await(ctx context.Context) (Result, error) {
	select {
	case <-c.done:
		return c.result, c.result.Err
	case <-ctx.Done():
		c.Abort()
		return Result{ExitCode: -1}, ctx.Err()
	}
}

// Abort closes the session. Done is closed once the remote side
// acknowledges.
func (c *Command) Abort() {
	_ = c.session.Close()
}

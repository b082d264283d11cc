// Package ssm runs the diagnostic script through AWS Systems Manager
// Run Command.
package ssm

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
)

// DefaultDocument is the SSM document that runs shell commands on Linux.
const DefaultDocument = "AWS-RunShellScript"

// API is the slice of the SSM client the transport uses.
type API interface {
	SendCommand(ctx context.Context, in *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
	GetCommandInvocation(ctx context.Context, in *ssm.GetCommandInvocationInput, optFns ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error)
}

// Factory hands each worker its own SSM client built from a shared aws.Config.
type Factory struct {
	cfg       aws.Config
	document  string
	newClient func(aws.Config) API
}

// NewFactory creates a factory. An empty document uses DefaultDocument.
func NewFactory(cfg aws.Config, document string) *Factory {
	if document == "" {
		document = DefaultDocument
	}
	return &Factory{
		cfg:      cfg,
		document: document,
		newClient: func(c aws.Config) API {
			return ssm.NewFromConfig(c)
		},
	}
}

// NewTransport implements fleet.TransportFactory.
func (f *Factory) NewTransport(_ context.Context) (fleet.Transport, error) {
	return &Transport{api: f.newClient(f.cfg), document: f.document}, nil
}

// Transport submits commands and polls invocations for a single worker.
type Transport struct {
	api      API
	document string
}

// NewTransport wraps an existing client.
func NewTransport(api API, document string) *Transport {
	if document == "" {
		document = DefaultDocument
	}
	return &Transport{api: api, document: document}
}

// Submit sends script to one instance and returns the command ID as the handle.
func (t *Transport) Submit(ctx context.Context, targetID, script string) (fleet.CommandHandle, error) {
	out, err := t.api.SendCommand(ctx, &ssm.SendCommandInput{
		DocumentName: aws.String(t.document),
		InstanceIds:  []string{targetID},
		Parameters:   map[string][]string{"commands": {script}},
	})
	if err != nil {
		return fleet.CommandHandle{}, errors.Wrap(err, "SendCommand to "+targetID+" failed")
	}
	if out == nil || out.Command == nil || aws.ToString(out.Command.CommandId) == "" {
		return fleet.CommandHandle{}, errors.New(errors.ErrTransport,
			"SendCommand to "+targetID+" returned no command ID", "")
	}
	return fleet.CommandHandle{ID: aws.ToString(out.Command.CommandId), TargetID: targetID}, nil
}

// Poll fetches the invocation once. An invocation SSM hasn't registered yet
// is reported as still pending.
func (t *Transport) Poll(ctx context.Context, h fleet.CommandHandle) (fleet.PollStatus, error) {
	out, err := t.api.GetCommandInvocation(ctx, &ssm.GetCommandInvocationInput{
		CommandId:  aws.String(h.ID),
		InstanceId: aws.String(h.TargetID),
	})
	if err != nil {
		var notYet *ssmtypes.InvocationDoesNotExist
		if stderrors.As(err, &notYet) {
			return fleet.PollStatus{Detail: "InvocationDoesNotExist"}, nil
		}
		return fleet.PollStatus{}, errors.Wrap(err, "GetCommandInvocation for "+h.TargetID+" failed")
	}
	return statusOf(out), nil
}

// Close is a no-op; SSM clients hold no connection state worth releasing.
func (t *Transport) Close() error { return nil }

func statusOf(out *ssm.GetCommandInvocationOutput) fleet.PollStatus {
	st := fleet.PollStatus{
		Output: aws.ToString(out.StandardOutputContent),
		Detail: string(out.Status),
	}
	switch out.Status {
	case ssmtypes.CommandInvocationStatusSuccess:
		st.Terminal = true
		st.Success = true
	case ssmtypes.CommandInvocationStatusFailed,
		ssmtypes.CommandInvocationStatusCancelled,
		ssmtypes.CommandInvocationStatusTimedOut:
		st.Terminal = true
		st.Detail = failureDetail(out)
	}
	return st
}

func failureDetail(out *ssm.GetCommandInvocationOutput) string {
	parts := []string{string(out.Status)}
	if d := aws.ToString(out.StatusDetails); d != "" && d != string(out.Status) {
		parts = append(parts, d)
	}
	if stderr := strings.TrimSpace(aws.ToString(out.StandardErrorContent)); stderr != "" {
		parts = append(parts, stderr)
	}
	return strings.Join(parts, ": ")
}

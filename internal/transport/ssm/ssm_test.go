package ssm

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
	"github.com/rileyhilliard/fleetmon/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSSM replays a status sequence per instance. Each entry is consumed by
// one GetCommandInvocation call; the last entry repeats.
type fakeSSM struct {
	mu        sync.Mutex
	sendErr   error
	statuses  map[string][]*ssm.GetCommandInvocationOutput
	errs      map[string]error
	sent      []*ssm.SendCommandInput
	getCalls  map[string]int
	commandID string
}

func newFakeSSM() *fakeSSM {
	return &fakeSSM{
		statuses:  make(map[string][]*ssm.GetCommandInvocationOutput),
		errs:      make(map[string]error),
		getCalls:  make(map[string]int),
		commandID: "cmd-123",
	}
}

func (f *fakeSSM) SendCommand(_ context.Context, in *ssm.SendCommandInput, _ ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, in)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &ssm.SendCommandOutput{Command: &ssmtypes.Command{CommandId: aws.String(f.commandID)}}, nil
}

func (f *fakeSSM) GetCommandInvocation(_ context.Context, in *ssm.GetCommandInvocationInput, _ ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := aws.ToString(in.InstanceId)
	n := f.getCalls[id]
	f.getCalls[id]++
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	seq := f.statuses[id]
	if n >= len(seq) {
		n = len(seq) - 1
	}
	return seq[n], nil
}

func invocation(status ssmtypes.CommandInvocationStatus, stdout string) *ssm.GetCommandInvocationOutput {
	return &ssm.GetCommandInvocationOutput{
		Status:                status,
		StatusDetails:         aws.String(string(status)),
		StandardOutputContent: aws.String(stdout),
	}
}

func TestSubmit(t *testing.T) {
	api := newFakeSSM()
	tr := NewTransport(api, "")

	h, err := tr.Submit(context.Background(), "i-abc", fleet.DiagnosticScript)
	require.NoError(t, err)

	assert.Equal(t, fleet.CommandHandle{ID: "cmd-123", TargetID: "i-abc"}, h)
	require.Len(t, api.sent, 1)
	assert.Equal(t, DefaultDocument, aws.ToString(api.sent[0].DocumentName))
	assert.Equal(t, []string{"i-abc"}, api.sent[0].InstanceIds)
	assert.Equal(t, []string{fleet.DiagnosticScript}, api.sent[0].Parameters["commands"])
}

func TestSubmit_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		api := newFakeSSM()
		api.sendErr = stderrors.New("InvalidInstanceId")

		_, err := NewTransport(api, "").Submit(context.Background(), "i-abc", "true")

		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrTransport))
		assert.Contains(t, err.Error(), "InvalidInstanceId")
	})

	t.Run("missing command id", func(t *testing.T) {
		api := newFakeSSM()
		api.commandID = ""

		_, err := NewTransport(api, "").Submit(context.Background(), "i-abc", "true")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no command ID")
	})
}

func TestPoll_StatusMapping(t *testing.T) {
	tests := []struct {
		status       ssmtypes.CommandInvocationStatus
		wantTerminal bool
		wantSuccess  bool
	}{
		{ssmtypes.CommandInvocationStatusSuccess, true, true},
		{ssmtypes.CommandInvocationStatusFailed, true, false},
		{ssmtypes.CommandInvocationStatusCancelled, true, false},
		{ssmtypes.CommandInvocationStatusTimedOut, true, false},
		{ssmtypes.CommandInvocationStatusPending, false, false},
		{ssmtypes.CommandInvocationStatusInProgress, false, false},
		{ssmtypes.CommandInvocationStatusDelayed, false, false},
		{ssmtypes.CommandInvocationStatusCancelling, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			api := newFakeSSM()
			api.statuses["i-1"] = []*ssm.GetCommandInvocationOutput{invocation(tt.status, "12%\n40\n")}

			st, err := NewTransport(api, "").Poll(context.Background(), fleet.CommandHandle{ID: "c", TargetID: "i-1"})
			require.NoError(t, err)

			assert.Equal(t, tt.wantTerminal, st.Terminal)
			assert.Equal(t, tt.wantSuccess, st.Success)
			assert.Contains(t, st.Detail, string(tt.status))
		})
	}
}

func TestPoll_FailureDetailIncludesStderr(t *testing.T) {
	api := newFakeSSM()
	out := invocation(ssmtypes.CommandInvocationStatusFailed, "")
	out.StatusDetails = aws.String("Failed")
	out.StandardErrorContent = aws.String("free: command not found\n")
	api.statuses["i-1"] = []*ssm.GetCommandInvocationOutput{out}

	st, err := NewTransport(api, "").Poll(context.Background(), fleet.CommandHandle{ID: "c", TargetID: "i-1"})
	require.NoError(t, err)

	assert.Equal(t, "Failed: free: command not found", st.Detail)
}

func TestPoll_InvocationDoesNotExistIsPending(t *testing.T) {
	api := newFakeSSM()
	api.errs["i-1"] = &ssmtypes.InvocationDoesNotExist{Message: aws.String("not yet")}

	st, err := NewTransport(api, "").Poll(context.Background(), fleet.CommandHandle{ID: "c", TargetID: "i-1"})

	require.NoError(t, err)
	assert.False(t, st.Terminal)
}

func TestPoll_OtherErrors(t *testing.T) {
	api := newFakeSSM()
	api.errs["i-1"] = stderrors.New("ThrottlingException")

	_, err := NewTransport(api, "").Poll(context.Background(), fleet.CommandHandle{ID: "c", TargetID: "i-1"})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTransport))
}

func TestFactory_DrivesCoordinator(t *testing.T) {
	api := newFakeSSM()
	api.statuses["i-ok"] = []*ssm.GetCommandInvocationOutput{
		invocation(ssmtypes.CommandInvocationStatusPending, ""),
		invocation(ssmtypes.CommandInvocationStatusInProgress, ""),
		invocation(ssmtypes.CommandInvocationStatusSuccess, "23%\n61\n"),
	}
	api.statuses["i-bad"] = []*ssm.GetCommandInvocationOutput{
		invocation(ssmtypes.CommandInvocationStatusFailed, ""),
	}
	api.statuses["i-slow"] = []*ssm.GetCommandInvocationOutput{
		invocation(ssmtypes.CommandInvocationStatusInProgress, ""),
	}

	factory := NewFactory(aws.Config{Region: "us-west-2"}, "")
	clients := 0
	factory.newClient = func(aws.Config) API {
		api.mu.Lock()
		clients++
		api.mu.Unlock()
		return api
	}

	cfg := fleet.DefaultConfig()
	cfg.PollInterval = 0
	cfg.MaxPolls = 4
	cfg.Logger = logger.Noop()
	coord := fleet.NewCoordinator(factory, cfg)

	targets := []fleet.Target{{ID: "i-ok"}, {ID: "i-bad"}, {ID: "i-slow"}}
	results, err := coord.Collect(context.Background(), targets, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	sample, ok := results[0].Outcome.Sample()
	require.True(t, ok)
	assert.Equal(t, fleet.MetricSample{DiskPercent: 23, MemPercent: 61}, sample)
	assert.Equal(t, fleet.OutcomeTransportError, results[1].Outcome.Kind())
	assert.Equal(t, fleet.OutcomeTimeout, results[2].Outcome.Kind())
	assert.Equal(t, 4, api.getCalls["i-slow"])
	assert.Equal(t, 3, clients, "each target gets its own client")
}

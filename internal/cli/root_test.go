package cli

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsUnknownCommandError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unknown command error",
			err:  stderrors.New(`unknown command "foo" for "fleetmon"`),
			want: true,
		},
		{
			name: "unknown flag error",
			err:  stderrors.New(`unknown flag: --foo`),
			want: true,
		},
		{
			name: "other error",
			err:  stderrors.New("connection failed"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnknownCommandError(tt.err))
		})
	}
}

func TestExtractUnknownCommand(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "standard cobra format",
			err:  stderrors.New(`unknown command "foo" for "fleetmon"`),
			want: "foo",
		},
		{
			name: "command with hyphen",
			err:  stderrors.New(`unknown command "my-report" for "fleetmon"`),
			want: "my-report",
		},
		{
			name: "no quotes returns empty",
			err:  stderrors.New("unknown command foo"),
			want: "",
		},
		{
			name: "single quote returns empty",
			err:  stderrors.New(`unknown command "foo`),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractUnknownCommand(tt.err))
		})
	}
}

func TestHandleError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Equal(t, exitOK, handleError(&buf, nil))
		assert.Empty(t, buf.String())
	})

	t.Run("problems found is silent", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Equal(t, exitProblems, handleError(&buf, errProblemsFound))
		assert.Empty(t, buf.String())
	})

	t.Run("coded error keeps its layout", func(t *testing.T) {
		var buf bytes.Buffer
		err := errors.New(errors.ErrConfig, "No AWS region configured", "export AWS_REGION")
		assert.Equal(t, exitError, handleError(&buf, fmt.Errorf("setup: %w", err)))
		assert.Equal(t, err.Error(), buf.String())
	})

	t.Run("unknown command", func(t *testing.T) {
		var buf bytes.Buffer
		code := handleError(&buf, stderrors.New(`unknown command "reprot" for "fleetmon"`))
		assert.Equal(t, exitError, code)
		assert.Contains(t, buf.String(), "Unknown command 'reprot'")
		assert.Contains(t, buf.String(), "fleetmon --help")
	})

	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Equal(t, exitError, handleError(&buf, stderrors.New("boom")))
		assert.Equal(t, "✗ boom\n", buf.String())
	})
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"report", "serve", "targets", "doctor", "version", "completion"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "v1.2.3", formatVersion("v1.2.3"))
}

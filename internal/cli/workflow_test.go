package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetmon/internal/config"
	"github.com/rileyhilliard/fleetmon/internal/directory"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/transport/sshexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useConfig points the --config flag at a temp file holding content.
func useConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	p := filepath.Join(dir, "fleetmon.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))

	prev := cfgFile
	cfgFile = p
	t.Cleanup(func() { cfgFile = prev })
}

const sshConfig = `
transport: ssh
name_filters: [web-*]
collection:
  max_concurrency: 5
hosts:
  web-1: {ssh: "ubuntu@10.0.0.1"}
  web-2: {ssh: "ubuntu@10.0.0.2"}
  db-1: {ssh: "db.internal", tags: [database]}
log:
  level: error
`

func TestSetupWorkflow_SSH(t *testing.T) {
	useConfig(t, sshConfig)
	require.NoError(t, os.WriteFile("instance_tags.txt", []byte("api-*\nweb-*\n"), 0644))

	flags := &CollectionFlags{Filters: []string{"database"}, Concurrency: 2, PollInterval: "100ms"}
	wf, err := SetupWorkflow(context.Background(), flags)
	require.NoError(t, err)
	defer wf.Close()

	assert.Equal(t, config.TransportSSH, wf.Config.Transport)
	assert.Equal(t, []string{"web-*", "api-*", "database"}, wf.Filters)
	assert.Equal(t, 2, wf.Config.Collection.MaxConcurrency)
	assert.Equal(t, 100*time.Millisecond, wf.Config.Collection.PollInterval)
	assert.IsType(t, &directory.Static{}, wf.Directory)
	assert.IsType(t, &sshexec.Factory{}, wf.Factory)
	assert.NotNil(t, wf.NewCoordinator(nil))
}

func TestSetupWorkflow_InvalidConfig(t *testing.T) {
	useConfig(t, "transport: ssh\n")

	_, err := SetupWorkflow(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "No hosts configured")
}

func TestSetupWorkflow_BadFlag(t *testing.T) {
	useConfig(t, sshConfig)

	_, err := SetupWorkflow(context.Background(), &CollectionFlags{PollInterval: "later"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestResolveFilters_MissingTagFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := config.DefaultConfig()
	cfg.NameFilters = []string{"prod-*"}

	got, err := resolveFilters(cfg, []string{"a,b", "prod-*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-*", "a", "b"}, got)
}

func TestListTargets(t *testing.T) {
	wf := newTestWorkflow(testHosts(), &fakeFleet{}, "web-*", "database")

	t.Run("table", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listTargets(context.Background(), wf, &out, false))
		assert.Contains(t, out.String(), "Instance ID")
		assert.Contains(t, out.String(), "db-1")
		assert.Contains(t, out.String(), "web-2")
		assert.Contains(t, out.String(), "3 targets")
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listTargets(context.Background(), wf, &out, true))

		var rows []targetJSON
		require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
		assert.Equal(t, []targetJSON{
			{InstanceID: "db-1", Name: "db-1"},
			{InstanceID: "web-1", Name: "web-1"},
			{InstanceID: "web-2", Name: "web-2"},
		}, rows)
	})

	t.Run("empty", func(t *testing.T) {
		empty := newTestWorkflow(testHosts(), &fakeFleet{}, "nothing-*")
		var out bytes.Buffer
		require.NoError(t, listTargets(context.Background(), empty, &out, false))
		assert.Equal(t, "No instances found to monitor.\n", out.String())
	})
}

func TestNewExporter(t *testing.T) {
	wf := newTestWorkflow(testHosts(), &fakeFleet{}, "web-*")

	t.Run("config defaults", func(t *testing.T) {
		srv, err := newExporter(wf, ServeOptions{})
		require.NoError(t, err)
		assert.NotNil(t, srv.Handler())
	})

	t.Run("relative path rejected", func(t *testing.T) {
		_, err := newExporter(wf, ServeOptions{Path: "metrics"})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})
}

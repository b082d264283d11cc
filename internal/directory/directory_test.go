package directory

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rileyhilliard/fleetmon/internal/config"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
	"github.com/rileyhilliard/fleetmon/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEC2 serves pages keyed by NextToken ("" is the first page).
type fakeEC2 struct {
	pages  map[string]*ec2.DescribeInstancesOutput
	err    error
	inputs []*ec2.DescribeInstancesInput
}

func (f *fakeEC2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[aws.ToString(in.NextToken)], nil
}

func instance(id, name string) ec2types.Instance {
	inst := ec2types.Instance{InstanceId: aws.String(id)}
	if name != "" {
		inst.Tags = []ec2types.Tag{
			{Key: aws.String("env"), Value: aws.String("prod")},
			{Key: aws.String("Name"), Value: aws.String(name)},
		}
	}
	return inst
}

func filterValues(in *ec2.DescribeInstancesInput, name string) []string {
	for _, f := range in.Filters {
		if aws.ToString(f.Name) == name {
			return f.Values
		}
	}
	return nil
}

func TestEC2_ListRunning(t *testing.T) {
	api := &fakeEC2{pages: map[string]*ec2.DescribeInstancesOutput{
		"": {
			Reservations: []ec2types.Reservation{
				{Instances: []ec2types.Instance{instance("i-1", "web-1"), instance("i-2", "")}},
			},
			NextToken: aws.String("page2"),
		},
		"page2": {
			Reservations: []ec2types.Reservation{
				{Instances: []ec2types.Instance{instance("i-3", "web-2"), instance("i-1", "web-1")}},
			},
		},
	}}

	targets, err := NewEC2WithClient(api).ListRunning(context.Background(), []string{"web-*", "db"})
	require.NoError(t, err)

	assert.Equal(t, []fleet.Target{
		{ID: "i-1", Name: "web-1"},
		{ID: "i-2", Name: ""},
		{ID: "i-3", Name: "web-2"},
	}, targets)

	require.Len(t, api.inputs, 2)
	assert.Equal(t, []string{"running"}, filterValues(api.inputs[0], "instance-state-name"))
	assert.Equal(t, []string{"web-*", "db"}, filterValues(api.inputs[0], "tag:Name"))
	assert.Equal(t, "page2", aws.ToString(api.inputs[1].NextToken))
}

func TestEC2_NoFiltersListsAllRunning(t *testing.T) {
	api := &fakeEC2{pages: map[string]*ec2.DescribeInstancesOutput{"": {}}}

	targets, err := NewEC2WithClient(api).ListRunning(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, targets)
	assert.NotNil(t, targets)
	require.Len(t, api.inputs, 1)
	assert.Nil(t, filterValues(api.inputs[0], "tag:Name"))
}

func TestEC2_Error(t *testing.T) {
	api := &fakeEC2{err: stderrors.New("UnauthorizedOperation")}

	_, err := NewEC2WithClient(api).ListRunning(context.Background(), []string{"web"})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDirectory))
	assert.Contains(t, err.Error(), "UnauthorizedOperation")
}

func TestStatic_ListRunning(t *testing.T) {
	dir := NewStatic(map[string]config.Host{
		"web-2": {SSH: "10.0.0.2"},
		"web-1": {SSH: "10.0.0.1"},
		"db-1":  {SSH: "db", Tags: []string{"database"}},
	})

	tests := []struct {
		name    string
		filters []string
		want    []string
	}{
		{name: "no filters", filters: nil, want: []string{"db-1", "web-1", "web-2"}},
		{name: "glob", filters: []string{"web-*"}, want: []string{"web-1", "web-2"}},
		{name: "exact", filters: []string{"web-2"}, want: []string{"web-2"}},
		{name: "tag", filters: []string{"data*"}, want: []string{"db-1"}},
		{name: "no match", filters: []string{"cache"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, err := dir.ListRunning(context.Background(), tt.filters)
			require.NoError(t, err)

			ids := make([]string, 0, len(targets))
			for _, tg := range targets {
				ids = append(ids, tg.ID)
				assert.Equal(t, tg.ID, tg.Name)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

type failingDirectory struct{}

func (failingDirectory) ListRunning(context.Context, []string) ([]fleet.Target, error) {
	return nil, errors.New(errors.ErrDirectory, "throttled", "")
}

func TestResolve(t *testing.T) {
	t.Run("lookup failure is an empty fleet", func(t *testing.T) {
		log := logger.NewBufferLogger()

		targets := Resolve(context.Background(), failingDirectory{}, []string{"web"}, log)

		assert.NotNil(t, targets)
		assert.Empty(t, targets)
		assert.True(t, log.HasLevel("error"))
		assert.True(t, log.Contains("throttled"))
	})

	t.Run("passes targets through", func(t *testing.T) {
		dir := NewStatic(map[string]config.Host{"a": {SSH: "a"}})

		targets := Resolve(context.Background(), dir, nil, nil)

		assert.Equal(t, []fleet.Target{{ID: "a", Name: "a"}}, targets)
	})
}

func TestParseNameFilters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "comma separated", input: "web-1,web-2, db ", want: []string{"web-1", "web-2", "db"}},
		{name: "newline separated", input: "web-1\nweb-2\r\n\n", want: []string{"web-1", "web-2"}},
		{name: "mixed and duplicates", input: "a,b\nb,,c", want: []string{"a", "b", "c"}},
		{name: "empty", input: " \n ", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNameFilters(tt.input))
		})
	}
}

func TestReadNameFilters(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads file", func(t *testing.T) {
		p := filepath.Join(dir, "instance_tags.txt")
		require.NoError(t, os.WriteFile(p, []byte("web-prod,api-prod\n"), 0644))

		filters, err := ReadNameFilters(p)
		require.NoError(t, err)
		assert.Equal(t, []string{"web-prod", "api-prod"}, filters)
	})

	t.Run("missing file", func(t *testing.T) {
		filters, err := ReadNameFilters(filepath.Join(dir, "missing.txt"))
		require.NoError(t, err)
		assert.Empty(t, filters)
	})

	t.Run("directory is an error", func(t *testing.T) {
		_, err := ReadNameFilters(dir)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})
}

func TestMergeFilters(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, MergeFilters([]string{"a", "b"}, nil, []string{"b", "", "c"}))
	assert.Nil(t, MergeFilters())
}

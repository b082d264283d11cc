package doctor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetmon/internal/config"
	"github.com/rileyhilliard/fleetmon/internal/directory"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/pkg/sshutil"
)

// TargetLookupCheck runs the directory lookup a report would run.
type TargetLookupCheck struct {
	Directory directory.Directory
	Filters   []string
}

func (c *TargetLookupCheck) Name() string     { return "target_lookup" }
func (c *TargetLookupCheck) Category() string { return CategoryFleet }

func (c *TargetLookupCheck) Run(ctx context.Context) CheckResult {
	targets, err := c.Directory.ListRunning(ctx, c.Filters)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Brief(err),
			Suggestion: "Check credentials and that the role allows ec2:DescribeInstances",
		}
	}

	if len(targets) == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No running targets match the name filters",
			Suggestion: "List what matches with: fleetmon targets",
		}
	}

	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.DisplayName())
	}
	const shown = 5
	list := strings.Join(names[:min(shown, len(names))], ", ")
	if len(names) > shown {
		list += ", ..."
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%d target%s found (%s)", len(targets), pluralize(len(targets)), list),
	}
}

// DialFunc opens an SSH connection for HostConnectivityCheck.
type DialFunc func(ctx context.Context, host string) (sshutil.SSHClient, error)

// HostConnectivityCheck dials one configured SSH host.
type HostConnectivityCheck struct {
	HostName string
	Host     config.Host
	Dial     DialFunc
}

func (c *HostConnectivityCheck) Name() string     { return fmt.Sprintf("host_%s", c.HostName) }
func (c *HostConnectivityCheck) Category() string { return CategoryFleet }

func (c *HostConnectivityCheck) Run(ctx context.Context) CheckResult {
	start := time.Now()
	client, err := c.Dial(ctx, c.Host.SSH)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s", c.HostName, errors.Brief(err)),
			Suggestion: suggestionOf(err),
		}
	}
	defer client.Close()

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: connected to %s (%s)", c.HostName, client.GetAddress(), time.Since(start).Round(time.Millisecond)),
	}
}

// NewHostsChecks returns one connectivity check per host, sorted by name.
func NewHostsChecks(hosts map[string]config.Host, dial DialFunc) []Check {
	names := make([]string, 0, len(hosts))
	for name := range hosts {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make([]Check, 0, len(names))
	for _, name := range names {
		checks = append(checks, &HostConnectivityCheck{HostName: name, Host: hosts[name], Dial: dial})
	}
	return checks
}

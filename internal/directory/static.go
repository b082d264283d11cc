package directory

import (
	"context"
	"path"
	"sort"

	"github.com/rileyhilliard/fleetmon/internal/config"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
)

// Static serves targets from the config file's hosts map. Every configured
// host counts as running; the host name doubles as the target ID.
type Static struct {
	hosts map[string]config.Host
}

// NewStatic creates a directory over hosts.
func NewStatic(hosts map[string]config.Host) *Static {
	return &Static{hosts: hosts}
}

// ListRunning returns hosts whose name or any tag matches a filter glob,
// sorted by name.
func (s *Static) ListRunning(_ context.Context, nameFilters []string) ([]fleet.Target, error) {
	names := make([]string, 0, len(s.hosts))
	for name := range s.hosts {
		names = append(names, name)
	}
	sort.Strings(names)

	targets := []fleet.Target{}
	for _, name := range names {
		if len(nameFilters) == 0 || matchesAny(nameFilters, name, s.hosts[name].Tags) {
			targets = append(targets, fleet.Target{ID: name, Name: name})
		}
	}
	return targets, nil
}

func matchesAny(filters []string, name string, tags []string) bool {
	for _, f := range filters {
		if ok, _ := path.Match(f, name); ok {
			return true
		}
		for _, tag := range tags {
			if ok, _ := path.Match(f, tag); ok {
				return true
			}
		}
	}
	return false
}

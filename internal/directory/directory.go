// Package directory resolves the fleet: the running machines whose names
// match a set of filters.
package directory

import (
	"context"
	"os"
	"strings"

	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
	"github.com/rileyhilliard/fleetmon/internal/logger"
)

// Directory lists running targets whose name matches any filter.
// An empty filter list matches every running target.
type Directory interface {
	ListRunning(ctx context.Context, nameFilters []string) ([]fleet.Target, error)
}

// Resolve looks up targets and treats a failed lookup as an empty fleet.
// The error is logged so the caller only sees "nothing to collect".
func Resolve(ctx context.Context, dir Directory, nameFilters []string, log logger.Logger) []fleet.Target {
	if log == nil {
		log = logger.Noop()
	}
	targets, err := dir.ListRunning(ctx, nameFilters)
	if err != nil {
		log.Error("target lookup failed: %s", errors.Brief(err))
		return []fleet.Target{}
	}
	log.Debug("resolved %d targets for %d filters", len(targets), len(nameFilters))
	return targets
}

// ReadNameFilters reads a tag file. Entries may be separated by commas or
// newlines; blanks are dropped. A missing file yields no filters.
func ReadNameFilters(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't read tag file "+path,
			"Check the tags_file setting and the file permissions")
	}
	return ParseNameFilters(string(data)), nil
}

// ParseNameFilters splits comma or newline separated names.
func ParseNameFilters(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// MergeFilters combines filter lists, keeping first-seen order.
func MergeFilters(lists ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range lists {
		for _, f := range l {
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// Package lock provides serialization domains keyed by resource id.
//
// A Locker acquires every key of a set or none of them. Keys are sorted and
// de-duplicated before acquisition so two callers with intersecting sets can
// never deadlock, and callers with disjoint sets never wait on each other.
package lock

import (
	"context"
	"errors"
	"sort"
)

var ErrUnavailable = errors.New("lock backend unavailable")

type Locker interface {
	Lock(ctx context.Context, keys []string) (unlock func(), err error)
}

// Normalize sorts keys and drops duplicates and empty strings.
func Normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

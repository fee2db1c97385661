// internal/catalog/index.go - Process-wide icon name index
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrIndexUnavailable wraps failures to rebuild the index from the repository.
var ErrIndexUnavailable = errors.New("icon index unavailable")

// Lister fetches the complete list of icon names.
type Lister interface {
	FetchIndex(ctx context.Context) ([]string, error)
}

// snapshot is one immutable version of the index.
type snapshot struct {
	names       []string
	members     map[string]struct{}
	refreshedAt time.Time
}

var emptySnapshot = &snapshot{members: map[string]struct{}{}}

// Index holds the set of known icon names. Readers see either the previous or
// the next complete snapshot, never a partial one. Until the first successful
// Refresh the index is empty.
type Index struct {
	source  Lister
	current atomic.Pointer[snapshot]

	refreshMu sync.Mutex
	listeners []func(count int)
}

// NewIndex creates an empty index backed by source.
func NewIndex(source Lister) *Index {
	idx := &Index{source: source}
	idx.current.Store(emptySnapshot)
	return idx
}

// OnRefresh registers fn to be called with the new size after every
// successful refresh.
func (i *Index) OnRefresh(fn func(count int)) {
	i.refreshMu.Lock()
	defer i.refreshMu.Unlock()
	i.listeners = append(i.listeners, fn)
}

// Refresh rebuilds the index wholesale from the source and returns the number
// of distinct names. On failure the previous snapshot stays in place.
func (i *Index) Refresh(ctx context.Context) (int, error) {
	i.refreshMu.Lock()
	defer i.refreshMu.Unlock()

	start := time.Now()
	names, err := i.source.FetchIndex(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}

	i.Replace(names)
	count := i.Len()

	logrus.WithFields(logrus.Fields{
		"icons":    count,
		"duration": time.Since(start),
	}).Info("Icon index refreshed")

	for _, fn := range i.listeners {
		fn(count)
	}

	return count, nil
}

// Replace installs names as the current index.
func (i *Index) Replace(names []string) {
	snap := &snapshot{
		names:       make([]string, 0, len(names)),
		members:     make(map[string]struct{}, len(names)),
		refreshedAt: time.Now(),
	}
	for _, name := range names {
		if _, dup := snap.members[name]; dup {
			continue
		}
		snap.members[name] = struct{}{}
		snap.names = append(snap.names, name)
	}
	i.current.Store(snap)
}

// Contains reports whether name is a known icon.
func (i *Index) Contains(name string) bool {
	_, ok := i.current.Load().members[name]
	return ok
}

// Filter returns the names present in the index, keeping request order and
// repeated names.
func (i *Index) Filter(names []string) []string {
	snap := i.current.Load()
	valid := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := snap.members[name]; ok {
			valid = append(valid, name)
		}
	}
	return valid
}

// Names returns a copy of every known icon name in index order.
func (i *Index) Names() []string {
	snap := i.current.Load()
	out := make([]string, len(snap.names))
	copy(out, snap.names)
	return out
}

// Len returns the number of known icons.
func (i *Index) Len() int {
	return len(i.current.Load().names)
}

// RefreshedAt returns when the current snapshot was installed, or the zero
// time if the index has never been populated.
func (i *Index) RefreshedAt() time.Time {
	return i.current.Load().refreshedAt
}

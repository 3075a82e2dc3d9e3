// Package directory holds the front end's site directory: every upstream
// video API the aggregator can query, keyed by site id.
//
// The directory is owned by the front end, not by the customer-site cache.
// The cache only merges into it (Extend) or, on delete, rebuilds it from a
// Snapshot minus the removed id (Replace) because the directory has no
// per-entry removal of its own.
package directory

import (
	"sort"
	"sync"

	"github.com/yanizio/libretv-sites/internal/site"
)

// Directory is safe for concurrent use.  The zero value is ready.
type Directory struct {
	mu    sync.RWMutex
	sites map[string]site.Entry
}

// New returns a Directory seeded with builtin (copied).
func New(builtin map[string]site.Entry) *Directory {
	d := &Directory{}
	d.Extend(builtin)
	return d
}

// Extend merges m into the directory; existing ids are overwritten.
func (d *Directory) Extend(m map[string]site.Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sites == nil {
		d.sites = make(map[string]site.Entry, len(m))
	}
	for id, e := range m {
		d.sites[id] = e
	}
}

// Replace swaps the whole directory for a copy of m.
func (d *Directory) Replace(m map[string]site.Entry) {
	next := make(map[string]site.Entry, len(m))
	for id, e := range m {
		next[id] = e
	}
	d.mu.Lock()
	d.sites = next
	d.mu.Unlock()
}

// Snapshot returns a copy of the current directory.
func (d *Directory) Snapshot() map[string]site.Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]site.Entry, len(d.sites))
	for id, e := range d.sites {
		out[id] = e
	}
	return out
}

// Get returns one entry.
func (d *Directory) Get(id string) (site.Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.sites[id]
	return e, ok
}

// IDs lists every id in sorted order.
func (d *Directory) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.sites))
	for id := range d.sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

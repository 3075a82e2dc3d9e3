// internal/sitecache/cache.go
//
// Client-side registry cache.
//
// Context
// -------
// A Cache mirrors the server's customer sites as id → site.Entry and keeps
// an externally owned Directory in step with it.  It is an ordinary owned
// value: callers construct one with New, call Init once they know the
// credential, and Reset on sign-out.  Nothing lives in package globals.
//
// Every mutation goes to the server first; the mapping and the directory
// change only after the server said yes.  When the server cannot be
// reached on Load (or there is no credential yet) the Cache falls back to
// a single built-in record so the front end still has something to query.
//
// Notes
// -----
// • Concurrent Load calls collapse into one request via singleflight.
// • Add, Update, and Remove are serialised; the mapping has its own lock so
//   Sites() never waits on the network.
// • The refresh hook runs after every change, outside all locks.
// • Oxford commas, two spaces after periods.
package sitecache

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/libretv-sites/internal/metrics"
	"github.com/yanizio/libretv-sites/internal/site"
)

// ErrNoCredential is returned by mutations attempted before Init.
var ErrNoCredential = errors.New("sitecache: no credential")

// DefaultID and DefaultEntry are the fallback record.
const DefaultID = "qiqi"

var DefaultEntry = site.Entry{
	API:  "https://www.qiqidys.com/api.php/provide/vod",
	Name: "七七资源",
}

// Directory is the front end's site directory the Cache merges into.
type Directory interface {
	Extend(map[string]site.Entry)
	Replace(map[string]site.Entry)
	Snapshot() map[string]site.Entry
}

// API is the subset of *Client the Cache needs.
type API interface {
	List(ctx context.Context, cred string) ([]site.Record, error)
	Create(ctx context.Context, cred, id string, e site.Entry) (*site.Record, error)
	Update(ctx context.Context, cred, id string, e site.Entry) (*site.Record, error)
	Delete(ctx context.Context, cred, id string) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithRefresh installs a hook called after the directory changes.
func WithRefresh(fn func()) Option {
	return func(c *Cache) { c.refresh = fn }
}

// WithLogger overrides the global sugared logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

type Cache struct {
	api     API
	dir     Directory
	refresh func()
	log     *zap.SugaredLogger

	ops   sync.Mutex // serialises Add, Update, Remove
	mu    sync.RWMutex
	cred  string
	sites map[string]site.Entry

	loads singleflight.Group
}

// New returns an empty Cache.  Call Init before use.
func New(api API, dir Directory, opts ...Option) *Cache {
	c := &Cache{
		api:   api,
		dir:   dir,
		log:   zap.S(),
		sites: map[string]site.Entry{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Init stores cred and loads from the server.  With no credential the
// Cache installs the default record and returns nil.
func (c *Cache) Init(ctx context.Context, cred string) error {
	c.mu.Lock()
	c.cred = cred
	c.mu.Unlock()

	if cred == "" {
		c.log.Warnw("no credential, using default customer site")
		c.useDefaults()
		return nil
	}
	return c.Load(ctx)
}

// Reset forgets the credential and the mapping.  The directory is left
// alone; it belongs to the caller.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.cred = ""
	c.sites = map[string]site.Entry{}
	c.mu.Unlock()
	metrics.CacheSites.Set(0)
}

// Load replaces the mapping with the server's list and merges it into the
// directory.  On failure the default record is installed and the error
// returned.
func (c *Cache) Load(ctx context.Context) error {
	_, err, _ := c.loads.Do("load", func() (any, error) {
		return nil, c.load(ctx)
	})
	return err
}

func (c *Cache) load(ctx context.Context) error {
	cred := c.credential()
	if cred == "" {
		c.useDefaults()
		return ErrNoCredential
	}

	recs, err := c.api.List(ctx, cred)
	if err != nil {
		c.log.Warnw("customer site load failed, using default", "err", err)
		c.useDefaults()
		return err
	}

	next := make(map[string]site.Entry, len(recs))
	for _, r := range recs {
		next[r.ID] = r.Entry()
	}
	c.install(next)
	c.log.Infow("customer sites loaded", "count", len(next))
	return nil
}

// Add creates id on the server, then merges it locally.
func (c *Cache) Add(ctx context.Context, id, api, name string, adult bool) error {
	return c.upsert(ctx, "add", id, site.Entry{API: api, Name: name, Adult: adult}, c.api.Create)
}

// Update overwrites id on the server, then merges it locally.
func (c *Cache) Update(ctx context.Context, id, api, name string, adult bool) error {
	return c.upsert(ctx, "update", id, site.Entry{API: api, Name: name, Adult: adult}, c.api.Update)
}

type writeFn func(ctx context.Context, cred, id string, e site.Entry) (*site.Record, error)

func (c *Cache) upsert(ctx context.Context, op, id string, e site.Entry, call writeFn) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	cred := c.credential()
	if cred == "" {
		return ErrNoCredential
	}
	if _, err := call(ctx, cred, id, e); err != nil {
		c.log.Warnw("customer site "+op+" failed", "id", id, "err", err)
		return err
	}

	c.mu.Lock()
	c.sites[id] = e
	n := len(c.sites)
	c.mu.Unlock()

	c.dir.Extend(map[string]site.Entry{id: e})
	metrics.CacheSites.Set(float64(n))
	c.notify()
	return nil
}

// Remove deletes id on the server, then rebuilds the directory without it.
func (c *Cache) Remove(ctx context.Context, id string) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	cred := c.credential()
	if cred == "" {
		return ErrNoCredential
	}
	if err := c.api.Delete(ctx, cred, id); err != nil {
		c.log.Warnw("customer site remove failed", "id", id, "err", err)
		return err
	}

	c.mu.Lock()
	delete(c.sites, id)
	mapping := copyMap(c.sites)
	c.mu.Unlock()

	snap := c.dir.Snapshot()
	delete(snap, id)
	c.dir.Replace(snap)
	c.dir.Extend(mapping)

	metrics.CacheSites.Set(float64(len(mapping)))
	c.notify()
	return nil
}

// Sites returns a copy of the mapping.
func (c *Cache) Sites() map[string]site.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.sites)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func (c *Cache) credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cred
}

func (c *Cache) useDefaults() {
	c.install(map[string]site.Entry{DefaultID: DefaultEntry})
}

func (c *Cache) install(m map[string]site.Entry) {
	c.mu.Lock()
	c.sites = m
	c.mu.Unlock()

	c.dir.Extend(copyMap(m))
	metrics.CacheSites.Set(float64(len(m)))
	c.notify()
}

func (c *Cache) notify() {
	if c.refresh != nil {
		c.refresh()
	}
}

func copyMap(m map[string]site.Entry) map[string]site.Entry {
	out := make(map[string]site.Entry, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

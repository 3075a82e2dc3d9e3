// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web calls Init(deps)
// on every component that implements Initializer, then mounts each
// component's Routes() under its Prefix().

package component

import (
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/internal/auth"
	"github.com/yanizio/libretv-sites/internal/store"
)

// Deps is what the process hands every component at startup.
type Deps struct {
	Store store.Store
	Auth  *auth.Authenticator
	Log   *zap.SugaredLogger
	Now   func() time.Time // nil means time.Now
}

// Initializer is optional.  If a Component implements it, cmd/web calls
// Init(deps) once before mounting Routes().
type Initializer interface {
	Init(Deps) error
}

// Component contract.
//
// Routes() returns a router relative to Prefix(), e.g. for prefix
// "/customer-sites":
//
//	r := chi.NewRouter()
//	r.Get("/", list)
//	r.Get("/{id}", get)
//	return r
type Component interface {
	Name() string
	Prefix() string
	Routes() chi.Router
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount initialises each of comps with deps and mounts it on r.  A nil
// comps means every registered component.
func Mount(r chi.Router, deps Deps, comps []Component) error {
	if comps == nil {
		comps = All()
	}
	for _, c := range comps {
		if in, ok := c.(Initializer); ok {
			if err := in.Init(deps); err != nil {
				return err
			}
		}
		r.Mount(c.Prefix(), c.Routes())
		if deps.Log != nil {
			deps.Log.Infow("component mounted", "component", c.Name(), "prefix", c.Prefix())
		}
	}
	return nil
}

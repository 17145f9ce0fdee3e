// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  At startup main runs every
// component's Migrations(), then Init() for components that implement
// Initializer, and finally mounts each one's routes on the root router.

package component

import (
	"context"
	"slices"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Initializer is optional.  If a Component implements it, Init runs once
// after migrations, typically to seed default rows.
type Initializer interface {
	Init(ctx context.Context, env *Env) error
}

// Component contract.
//
// Migrations() may return nil if the component has no schema.  Routes()
// registers both admin and frontend endpoints on the root router, e.g.:
//
//	component.Mount(r, ctl, nil)          // /api/team, /api/frontend/team
//	r.Post("/admin/login", c.login)
type Component interface {
	Name() string
	Migrations() []string
	Routes(r chi.Router, env *Env)
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

// All returns every registered component sorted by name, so migrations and
// seeding run in a stable order.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Component) int {
		switch {
		case a.Name() < b.Name():
			return -1
		case a.Name() > b.Name():
			return 1
		}
		return 0
	})
	return out
}

// AllNames lists registered component names in sorted order.
func AllNames() []string {
	all := All()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name()
	}
	return names
}

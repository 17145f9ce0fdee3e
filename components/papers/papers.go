// components/papers/papers.go
//
// Papers component: publications, their ranking categories, and research
// areas.
//
// Context
// -------
// A paper lists its categories (CCF-A, 中科院一区, …) by id in a JSON
// column; reads resolve the ids to names against paper_categories.  The
// category table is seeded once and read-only over HTTP.  Research areas
// are an ordered list with a per-category count endpoint and a paged list
// that filters by category.
//
// Paper lists go through the shared list cache.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
package papers

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/acmlab/labsite/internal/acl"
	"github.com/acmlab/labsite/internal/auth"
	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/resource"
)

// Compile-time assertions.
var (
	_ component.Component   = (*Component)(nil)
	_ component.Initializer = (*Component)(nil)
)

// Component serves /api/papers, /api/paper-categories, and /api/research.
type Component struct{}

// Name returns the canonical component key.
func (c *Component) Name() string { return "papers" }

// Migrations creates the tables.
func (c *Component) Migrations() []string {
	return []string{categoriesDDL, papersDDL, researchDDL}
}

// Init seeds paper categories and research areas.
func (c *Component) Init(ctx context.Context, env *component.Env) error {
	if err := component.Seed(ctx, env.DB, "paper_categories",
		[]string{"name", "level", "description", "order_index"}, defaultCategories()); err != nil {
		return err
	}
	return component.Seed(ctx, env.DB, "research_areas",
		[]string{"title", "category", "description", "members", "order_index"}, defaultResearch())
}

// Routes mounts the admin and frontend routers.
func (c *Component) Routes(r chi.Router, env *component.Env) {
	papers := component.Controller(env, NewPaperStore(env.DB),
		func() ordered.Patch { return &PaperPatch{} },
		resource.Options{Cache: env.Cache})
	component.Mount(r, papers, nil)

	cats := &categoryHandler{store: NewCategoryStore(env.DB)}
	r.With(acl.RequireRole(auth.RoleAdmin)).Get("/api/paper-categories", cats.list)
	r.Get("/api/frontend/paper-categories", cats.list)

	researchStore := NewResearchStore(env.DB)
	research := component.Controller(env, researchStore,
		func() ordered.Patch { return &ResearchPatch{} }, resource.Options{})
	rc := &researchCounts{db: env.DB}
	rp := &researchPages{store: researchStore}
	component.Mount(r, research, func(admin, public chi.Router) {
		admin.Get("/categories", rc.handle)
		public.Get("/categories", rc.handle)
		admin.Get("/page", rp.handle)
		public.Get("/page", rp.handle)
	})
}

// Register component at program start.
func init() { component.Register(&Component{}) }

// components/team/team.go
//
// Team component: members, grades, and advisors.
//
// Context
// -------
// Members are grouped by grade ("2024级").  Grades are their own ordered
// resource so the admin can add, rename, and reorder them; a rename is
// carried over to every member in the same transaction, and a grade that
// still has members cannot be deleted.  Advisors are listed separately on
// the team page.
//
// The member list is the busiest read on the site, so both its admin and
// public list views go through the shared list cache.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
package team

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"

	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/resource"
)

// Compile-time assertions.
var (
	_ component.Component   = (*Component)(nil)
	_ component.Initializer = (*Component)(nil)
)

// Component serves /api/team, /api/grades, and /api/advisors.
type Component struct{}

// Name returns the canonical component key.
func (c *Component) Name() string { return "team" }

// Migrations creates the three tables.
func (c *Component) Migrations() []string {
	return []string{membersDDL, gradesDDL, advisorsDDL}
}

// Init seeds the default grades on an empty database.
func (c *Component) Init(ctx context.Context, env *component.Env) error {
	rows := make([][]any, 0, 9)
	for i, year := 0, 2024; year >= 2016; i, year = i+1, year-1 {
		name := fmt.Sprintf("%d级", year)
		rows = append(rows, []any{name, name + "年级组", i + 1})
	}
	return component.Seed(ctx, env.DB, "grades", []string{"name", "description", "order_index"}, rows)
}

// Routes mounts the admin and frontend routers.
func (c *Component) Routes(r chi.Router, env *component.Env) {
	members := component.Controller(env, NewMemberStore(env.DB),
		func() ordered.Patch { return &MemberPatch{} },
		resource.Options{Cache: env.Cache, Uploads: env.Uploads, UploadCategory: "team"})
	component.Mount(r, members, nil)

	grades := NewGradeStore(env.DB)
	if env.Cache != nil {
		// Renames rewrite member rows, so drop cached member lists too.
		grades.OnCommit(func(context.Context, ordered.Event) { env.Cache.InvalidatePrefix(MembersResource + ":") })
	}
	component.Mount(r, component.Controller(env, grades,
		func() ordered.Patch { return &GradePatch{} }, resource.Options{}), nil)

	component.Mount(r, component.Controller(env, NewAdvisorStore(env.DB),
		func() ordered.Patch { return &AdvisorPatch{} },
		resource.Options{Uploads: env.Uploads, UploadCategory: "advisors"}), nil)
}

// Register component at program start.
func init() { component.Register(&Component{}) }

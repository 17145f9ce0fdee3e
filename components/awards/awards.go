// components/awards/awards.go
//
// Awards component: algorithm competition results and the project overview
// figures shown beside them.
//
// Context
// -------
// Both resources are plain ordered lists with an active/hidden switch.
// Award entries may carry a certificate photo, uploaded under "awards".
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
package awards

import (
	"github.com/go-chi/chi/v5"

	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/resource"
)

var _ component.Component = (*Component)(nil)

// Component serves /api/algorithm-awards and /api/project-overview.
type Component struct{}

// Name returns the canonical component key.
func (c *Component) Name() string { return "awards" }

// Migrations creates the tables.
func (c *Component) Migrations() []string { return []string{awardsDDL, overviewDDL} }

// Routes mounts the admin and frontend routers.
func (c *Component) Routes(r chi.Router, env *component.Env) {
	component.Mount(r, component.Controller(env, NewAwardStore(env.DB),
		func() ordered.Patch { return &AwardPatch{} },
		resource.Options{Uploads: env.Uploads, UploadCategory: "awards"}), nil)

	component.Mount(r, component.Controller(env, NewOverviewStore(env.DB),
		func() ordered.Patch { return &OverviewPatch{} }, resource.Options{}), nil)
}

func init() { component.Register(&Component{}) }

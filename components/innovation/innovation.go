// components/innovation/innovation.go
//
// Innovation component: the innovation-and-entrepreneurship page.
//
// Context
// -------
// Seven independent ordered lists back the page: headline statistics,
// student projects, the banner carousel, achievements, training projects
// (大创), intellectual property, and enterprise cooperations.  Every one
// shares the active/hidden switch; the image-bearing ones accept uploads
// under their own category directory.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
package innovation

import (
	"context"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/resource"
)

// Topics signalled after every commit in this component.
var topics = []string{"innovation", "home"}

// Compile-time assertions.
var (
	_ component.Component   = (*Component)(nil)
	_ component.Initializer = (*Component)(nil)
)

// Component serves the seven innovation resources.
type Component struct{}

// Name returns the canonical component key.
func (c *Component) Name() string { return "innovation" }

// Migrations creates the tables.
func (c *Component) Migrations() []string {
	return []string{statsDDL, projectsDDL, carouselDDL, achievementsDDL,
		trainingDDL, propertiesDDL, cooperationsDDL}
}

// Init seeds the headline statistics.
func (c *Component) Init(ctx context.Context, env *component.Env) error {
	return component.Seed(ctx, env.DB, "innovation_stats",
		[]string{"name", "value", "icon", "description", "status", "order_index"}, defaultStats())
}

// Routes mounts the admin and frontend routers.
func (c *Component) Routes(r chi.Router, env *component.Env) {
	images := func(category string) resource.Options {
		return resource.Options{Uploads: env.Uploads, UploadCategory: category}
	}

	component.Mount(r, component.Controller(env, NewStatStore(env.DB),
		func() ordered.Patch { return &StatPatch{} }, resource.Options{}), nil)
	component.Mount(r, component.Controller(env, NewProjectStore(env.DB),
		func() ordered.Patch { return &ProjectPatch{} }, images("innovation-projects")), nil)
	component.Mount(r, component.Controller(env, NewSlideStore(env.DB),
		func() ordered.Patch { return &SlidePatch{} }, images("carousel")), nil)
	component.Mount(r, component.Controller(env, NewAchievementStore(env.DB),
		func() ordered.Patch { return &AchievementPatch{} }, images("achievements")), nil)
	component.Mount(r, component.Controller(env, NewTrainingStore(env.DB),
		func() ordered.Patch { return &TrainingPatch{} }, images("training-projects")), nil)
	component.Mount(r, component.Controller(env, NewPropertyStore(env.DB),
		func() ordered.Patch { return &PropertyPatch{} }, images("intellectual-properties")), nil)
	component.Mount(r, component.Controller(env, NewCooperationStore(env.DB),
		func() ordered.Patch { return &CooperationPatch{} }, images("enterprise-cooperations")), nil)
}

func init() { component.Register(&Component{}) }

// trim trims every field in place.
func trim(fields ...*string) {
	for _, p := range fields {
		*p = strings.TrimSpace(*p)
	}
}

// activeByDefault fills an empty status.
func activeByDefault(status *string) {
	if *status == "" {
		*status = "active"
	}
}

// visibility collects the shared status field.
func visibility(s *ordered.Set, status *string) {
	s.OneOf("status", status, "active", "hidden")
}

func schema[T any](res, table string, cols ...string) ordered.Schema[T] {
	return ordered.Schema[T]{
		Resource:     res,
		Table:        table,
		Columns:      append(cols, "status"),
		StatusColumn: "status",
		Public:       []string{"active"},
		Topics:       topics,
	}
}

package awards

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

const overviewDDL = `CREATE TABLE IF NOT EXISTS project_overview (
	id          {{pk}},
	name        VARCHAR(255) NOT NULL,
	value       INTEGER      NOT NULL DEFAULT 0,
	icon        VARCHAR(128) NOT NULL DEFAULT '',
	description TEXT         NOT NULL,
	status      VARCHAR(32)  NOT NULL DEFAULT 'active',
	order_index INTEGER      NOT NULL DEFAULT 0,
	created_at  DATETIME     NOT NULL,
	updated_at  DATETIME     NOT NULL
)`

// Overview is one headline figure ("国家级竞赛获奖 12").
type Overview struct {
	ordered.Record
	Name        string `db:"name"        json:"name"        validate:"required"`
	Value       int    `db:"value"       json:"value"       validate:"gte=0"`
	Icon        string `db:"icon"        json:"icon"`
	Description string `db:"description" json:"description"`
	Status      string `db:"status"      json:"status"      validate:"oneof=active hidden"`
}

func (o *Overview) Normalize() {
	o.Name = strings.TrimSpace(o.Name)
	o.Icon = strings.TrimSpace(o.Icon)
	o.Description = strings.TrimSpace(o.Description)
	o.Status = strings.TrimSpace(o.Status)
	if o.Status == "" {
		o.Status = "active"
	}
}

type OverviewPatch struct {
	Name        *string `json:"name"`
	Value       *int    `json:"value"`
	Icon        *string `json:"icon"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (p *OverviewPatch) Collect(s *ordered.Set) {
	s.RequiredText("name", p.Name)
	ordered.Value(s, "value", p.Value)
	s.Text("icon", p.Icon)
	s.Text("description", p.Description)
	s.OneOf("status", p.Status, "active", "hidden")
}

// NewOverviewStore binds project_overview.
func NewOverviewStore(db *sqlx.DB) *ordered.Store[Overview, *Overview] {
	return ordered.NewStore[Overview](db, ordered.Schema[Overview]{
		Resource:     "project-overview",
		Table:        "project_overview",
		Columns:      []string{"name", "value", "icon", "description", "status"},
		StatusColumn: "status",
		Public:       []string{"active"},
		Topics:       []string{"awards", "home"},
	})
}

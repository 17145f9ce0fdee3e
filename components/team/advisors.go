package team

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

const advisorsDDL = `CREATE TABLE IF NOT EXISTS advisors (
	id             {{pk}},
	name           VARCHAR(255) NOT NULL,
	position       VARCHAR(255) NOT NULL,
	description    TEXT         NOT NULL,
	image_url      VARCHAR(512) NOT NULL DEFAULT '',
	email          VARCHAR(255) NOT NULL DEFAULT '',
	google_scholar VARCHAR(512) NOT NULL DEFAULT '',
	github         VARCHAR(512) NOT NULL DEFAULT '',
	border_color   VARCHAR(32)  NOT NULL DEFAULT 'primary',
	status         VARCHAR(32)  NOT NULL DEFAULT 'active',
	order_index    INTEGER      NOT NULL DEFAULT 0,
	created_at     DATETIME     NOT NULL,
	updated_at     DATETIME     NOT NULL
)`

// Advisor is a supervising professor.
type Advisor struct {
	ordered.Record
	Name          string `db:"name"           json:"name"           validate:"required"`
	Position      string `db:"position"       json:"position"       validate:"required"`
	Description   string `db:"description"    json:"description"`
	ImageURL      string `db:"image_url"      json:"image_url"`
	Email         string `db:"email"          json:"email"          validate:"omitempty,email"`
	GoogleScholar string `db:"google_scholar" json:"google_scholar"`
	GitHub        string `db:"github"         json:"github"`
	BorderColor   string `db:"border_color"   json:"border_color"`
	Status        string `db:"status"         json:"status"         validate:"oneof=active hidden"`
}

// Normalize trims input and applies defaults.
func (a *Advisor) Normalize() {
	for _, p := range []*string{&a.Name, &a.Position, &a.Description, &a.ImageURL,
		&a.Email, &a.GoogleScholar, &a.GitHub, &a.BorderColor, &a.Status} {
		*p = strings.TrimSpace(*p)
	}
	if a.BorderColor == "" {
		a.BorderColor = "primary"
	}
	if a.Status == "" {
		a.Status = "active"
	}
}

// AdvisorPatch is a partial update.
type AdvisorPatch struct {
	Name          *string `json:"name"`
	Position      *string `json:"position"`
	Description   *string `json:"description"`
	ImageURL      *string `json:"image_url"`
	Email         *string `json:"email"`
	GoogleScholar *string `json:"google_scholar"`
	GitHub        *string `json:"github"`
	BorderColor   *string `json:"border_color"`
	Status        *string `json:"status"`
}

// Collect maps present fields to columns.
func (p *AdvisorPatch) Collect(s *ordered.Set) {
	s.RequiredText("name", p.Name)
	s.RequiredText("position", p.Position)
	s.Text("description", p.Description)
	s.Text("image_url", p.ImageURL)
	s.Text("email", p.Email)
	s.Text("google_scholar", p.GoogleScholar)
	s.Text("github", p.GitHub)
	s.RequiredText("border_color", p.BorderColor)
	s.OneOf("status", p.Status, "active", "hidden")
}

// NewAdvisorStore binds the advisors table.
func NewAdvisorStore(db *sqlx.DB) *ordered.Store[Advisor, *Advisor] {
	return ordered.NewStore[Advisor](db, ordered.Schema[Advisor]{
		Resource: "advisors",
		Table:    "advisors",
		Columns: []string{"name", "position", "description", "image_url", "email",
			"google_scholar", "github", "border_color", "status"},
		StatusColumn: "status",
		Public:       []string{"active"},
		Topics:       []string{"team", "home"},
	})
}

package innovation

import (
	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

const cooperationsDDL = `CREATE TABLE IF NOT EXISTS enterprise_cooperations (
	id               {{pk}},
	title            VARCHAR(255) NOT NULL,
	enterprise_name  VARCHAR(255) NOT NULL,
	cooperation_type VARCHAR(128) NOT NULL DEFAULT '',
	start_date       VARCHAR(32)  NOT NULL DEFAULT '',
	description      TEXT         NOT NULL,
	image_url        VARCHAR(512) NOT NULL DEFAULT '',
	status           VARCHAR(32)  NOT NULL DEFAULT 'active',
	order_index      INTEGER      NOT NULL DEFAULT 0,
	created_at       DATETIME     NOT NULL,
	updated_at       DATETIME     NOT NULL
)`

// Cooperation is a joint project with a company.
type Cooperation struct {
	ordered.Record
	Title           string `db:"title"            json:"title"            validate:"required"`
	EnterpriseName  string `db:"enterprise_name"  json:"enterprise_name"  validate:"required"`
	CooperationType string `db:"cooperation_type" json:"cooperation_type"`
	StartDate       string `db:"start_date"       json:"start_date"`
	Description     string `db:"description"      json:"description"`
	ImageURL        string `db:"image_url"        json:"image_url"`
	Status          string `db:"status"           json:"status"           validate:"oneof=active hidden"`
}

func (x *Cooperation) Normalize() {
	trim(&x.Title, &x.EnterpriseName, &x.CooperationType, &x.StartDate, &x.Description, &x.ImageURL, &x.Status)
	activeByDefault(&x.Status)
}

type CooperationPatch struct {
	Title           *string `json:"title"`
	EnterpriseName  *string `json:"enterprise_name"`
	CooperationType *string `json:"cooperation_type"`
	StartDate       *string `json:"start_date"`
	Description     *string `json:"description"`
	ImageURL        *string `json:"image_url"`
	Status          *string `json:"status"`
}

func (p *CooperationPatch) Collect(s *ordered.Set) {
	s.RequiredText("title", p.Title)
	s.RequiredText("enterprise_name", p.EnterpriseName)
	s.Text("cooperation_type", p.CooperationType)
	s.Text("start_date", p.StartDate)
	s.Text("description", p.Description)
	s.Text("image_url", p.ImageURL)
	visibility(s, p.Status)
}

// NewCooperationStore binds enterprise_cooperations.
func NewCooperationStore(db *sqlx.DB) *ordered.Store[Cooperation, *Cooperation] {
	return ordered.NewStore[Cooperation](db, schema[Cooperation]("enterprise-cooperations", "enterprise_cooperations",
		"title", "enterprise_name", "cooperation_type", "start_date", "description", "image_url"))
}

package innovation

import (
	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

const propertiesDDL = `CREATE TABLE IF NOT EXISTS intellectual_properties (
	id                 {{pk}},
	title              VARCHAR(255) NOT NULL,
	ip_type            VARCHAR(64)  NOT NULL DEFAULT '发明专利',
	application_number VARCHAR(128) NOT NULL DEFAULT '',
	inventors          TEXT         NOT NULL,
	grant_date         VARCHAR(32)  NOT NULL DEFAULT '',
	description        TEXT         NOT NULL,
	image_url          VARCHAR(512) NOT NULL DEFAULT '',
	status             VARCHAR(32)  NOT NULL DEFAULT 'active',
	order_index        INTEGER      NOT NULL DEFAULT 0,
	created_at         DATETIME     NOT NULL,
	updated_at         DATETIME     NOT NULL
)`

// Property is a patent or software copyright.
type Property struct {
	ordered.Record
	Title             string                   `db:"title"              json:"title"              validate:"required"`
	IPType            string                   `db:"ip_type"            json:"ip_type"`
	ApplicationNumber string                   `db:"application_number" json:"application_number"`
	Inventors         ordered.JSONList[string] `db:"inventors"          json:"inventors"`
	GrantDate         string                   `db:"grant_date"         json:"grant_date"`
	Description       string                   `db:"description"        json:"description"`
	ImageURL          string                   `db:"image_url"          json:"image_url"`
	Status            string                   `db:"status"             json:"status"             validate:"oneof=active hidden"`
}

func (x *Property) Normalize() {
	trim(&x.Title, &x.IPType, &x.ApplicationNumber, &x.GrantDate, &x.Description, &x.ImageURL, &x.Status)
	x.Inventors = ordered.Trimmed(x.Inventors)
	if x.IPType == "" {
		x.IPType = "发明专利"
	}
	activeByDefault(&x.Status)
}

type PropertyPatch struct {
	Title             *string                   `json:"title"`
	IPType            *string                   `json:"ip_type"`
	ApplicationNumber *string                   `json:"application_number"`
	Inventors         *ordered.JSONList[string] `json:"inventors"`
	GrantDate         *string                   `json:"grant_date"`
	Description       *string                   `json:"description"`
	ImageURL          *string                   `json:"image_url"`
	Status            *string                   `json:"status"`
}

func (p *PropertyPatch) Collect(s *ordered.Set) {
	s.RequiredText("title", p.Title)
	s.RequiredText("ip_type", p.IPType)
	s.Text("application_number", p.ApplicationNumber)
	if p.Inventors != nil {
		m := ordered.Trimmed(*p.Inventors)
		ordered.Value(s, "inventors", &m)
	}
	s.Text("grant_date", p.GrantDate)
	s.Text("description", p.Description)
	s.Text("image_url", p.ImageURL)
	visibility(s, p.Status)
}

// NewPropertyStore binds intellectual_properties.
func NewPropertyStore(db *sqlx.DB) *ordered.Store[Property, *Property] {
	return ordered.NewStore[Property](db, schema[Property]("intellectual-properties", "intellectual_properties",
		"title", "ip_type", "application_number", "inventors", "grant_date", "description", "image_url"))
}

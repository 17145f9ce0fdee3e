package innovation

import (
	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

const carouselDDL = `CREATE TABLE IF NOT EXISTS innovation_carousel (
	id          {{pk}},
	title       VARCHAR(255) NOT NULL,
	subtitle    VARCHAR(255) NOT NULL DEFAULT '',
	description TEXT         NOT NULL,
	image_url   VARCHAR(512) NOT NULL DEFAULT '',
	link_url    VARCHAR(512) NOT NULL DEFAULT '',
	status      VARCHAR(32)  NOT NULL DEFAULT 'active',
	order_index INTEGER      NOT NULL DEFAULT 0,
	created_at  DATETIME     NOT NULL,
	updated_at  DATETIME     NOT NULL
)`

// Slide is one banner image.
type Slide struct {
	ordered.Record
	Title       string `db:"title"       json:"title"       validate:"required"`
	Subtitle    string `db:"subtitle"    json:"subtitle"`
	Description string `db:"description" json:"description"`
	ImageURL    string `db:"image_url"   json:"image_url"`
	LinkURL     string `db:"link_url"    json:"link_url"    validate:"omitempty,url|startswith=/"`
	Status      string `db:"status"      json:"status"      validate:"oneof=active hidden"`
}

func (x *Slide) Normalize() {
	trim(&x.Title, &x.Subtitle, &x.Description, &x.ImageURL, &x.LinkURL, &x.Status)
	activeByDefault(&x.Status)
}

type SlidePatch struct {
	Title       *string `json:"title"`
	Subtitle    *string `json:"subtitle"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	LinkURL     *string `json:"link_url"`
	Status      *string `json:"status"`
}

func (p *SlidePatch) Collect(s *ordered.Set) {
	s.RequiredText("title", p.Title)
	s.Text("subtitle", p.Subtitle)
	s.Text("description", p.Description)
	s.Text("image_url", p.ImageURL)
	s.Text("link_url", p.LinkURL)
	visibility(s, p.Status)
}

// NewSlideStore binds innovation_carousel.
func NewSlideStore(db *sqlx.DB) *ordered.Store[Slide, *Slide] {
	return ordered.NewStore[Slide](db, schema[Slide]("carousel", "innovation_carousel",
		"title", "subtitle", "description", "image_url", "link_url"))
}

package innovation

import (
	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

const achievementsDDL = `CREATE TABLE IF NOT EXISTS achievements (
	id               {{pk}},
	title            VARCHAR(255) NOT NULL,
	category         VARCHAR(128) NOT NULL DEFAULT '',
	achievement_date VARCHAR(32)  NOT NULL DEFAULT '',
	description      TEXT         NOT NULL,
	image_url        VARCHAR(512) NOT NULL DEFAULT '',
	status           VARCHAR(32)  NOT NULL DEFAULT 'active',
	order_index      INTEGER      NOT NULL DEFAULT 0,
	created_at       DATETIME     NOT NULL,
	updated_at       DATETIME     NOT NULL
)`

type Achievement struct {
	ordered.Record
	Title           string `db:"title"            json:"title"            validate:"required"`
	Category        string `db:"category"         json:"category"`
	AchievementDate string `db:"achievement_date" json:"achievement_date"`
	Description     string `db:"description"      json:"description"`
	ImageURL        string `db:"image_url"        json:"image_url"`
	Status          string `db:"status"           json:"status"           validate:"oneof=active hidden"`
}

func (x *Achievement) Normalize() {
	trim(&x.Title, &x.Category, &x.AchievementDate, &x.Description, &x.ImageURL, &x.Status)
	activeByDefault(&x.Status)
}

type AchievementPatch struct {
	Title           *string `json:"title"`
	Category        *string `json:"category"`
	AchievementDate *string `json:"achievement_date"`
	Description     *string `json:"description"`
	ImageURL        *string `json:"image_url"`
	Status          *string `json:"status"`
}

func (p *AchievementPatch) Collect(s *ordered.Set) {
	s.RequiredText("title", p.Title)
	s.Text("category", p.Category)
	s.Text("achievement_date", p.AchievementDate)
	s.Text("description", p.Description)
	s.Text("image_url", p.ImageURL)
	visibility(s, p.Status)
}

// NewAchievementStore binds achievements.
func NewAchievementStore(db *sqlx.DB) *ordered.Store[Achievement, *Achievement] {
	return ordered.NewStore[Achievement](db, schema[Achievement]("achievements", "achievements",
		"title", "category", "achievement_date", "description", "image_url"))
}

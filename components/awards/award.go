package awards

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

const awardsDDL = `CREATE TABLE IF NOT EXISTS algorithm_awards (
	id                   {{pk}},
	title                VARCHAR(255) NOT NULL,
	competition_name     VARCHAR(255) NOT NULL,
	award_level          VARCHAR(128) NOT NULL,
	winner_name          VARCHAR(255) NOT NULL DEFAULT '',
	competition_date     VARCHAR(32)  NOT NULL DEFAULT '',
	competition_location VARCHAR(255) NOT NULL DEFAULT '',
	team_score           VARCHAR(64)  NOT NULL DEFAULT '',
	image_url            VARCHAR(512) NOT NULL DEFAULT '',
	description          TEXT         NOT NULL,
	status               VARCHAR(32)  NOT NULL DEFAULT 'active',
	order_index          INTEGER      NOT NULL DEFAULT 0,
	created_at           DATETIME     NOT NULL,
	updated_at           DATETIME     NOT NULL
)`

// Award is one competition result.  CompetitionDate is kept as entered
// ("2024-05", "2024年5月").
type Award struct {
	ordered.Record
	Title               string `db:"title"                json:"title"                validate:"required"`
	CompetitionName     string `db:"competition_name"     json:"competition_name"     validate:"required"`
	AwardLevel          string `db:"award_level"          json:"award_level"          validate:"required"`
	WinnerName          string `db:"winner_name"          json:"winner_name"`
	CompetitionDate     string `db:"competition_date"     json:"competition_date"     validate:"max=32"`
	CompetitionLocation string `db:"competition_location" json:"competition_location"`
	TeamScore           string `db:"team_score"           json:"team_score"`
	ImageURL            string `db:"image_url"            json:"image_url"`
	Description         string `db:"description"          json:"description"`
	Status              string `db:"status"               json:"status"               validate:"oneof=active hidden"`
}

// Normalize trims input and applies defaults.
func (a *Award) Normalize() {
	for _, p := range []*string{&a.Title, &a.CompetitionName, &a.AwardLevel, &a.WinnerName,
		&a.CompetitionDate, &a.CompetitionLocation, &a.TeamScore, &a.ImageURL,
		&a.Description, &a.Status} {
		*p = strings.TrimSpace(*p)
	}
	if a.Status == "" {
		a.Status = "active"
	}
}

// AwardPatch is a partial update.
type AwardPatch struct {
	Title               *string `json:"title"`
	CompetitionName     *string `json:"competition_name"`
	AwardLevel          *string `json:"award_level"`
	WinnerName          *string `json:"winner_name"`
	CompetitionDate     *string `json:"competition_date"`
	CompetitionLocation *string `json:"competition_location"`
	TeamScore           *string `json:"team_score"`
	ImageURL            *string `json:"image_url"`
	Description         *string `json:"description"`
	Status              *string `json:"status"`
}

// Collect maps present fields to columns.
func (p *AwardPatch) Collect(s *ordered.Set) {
	s.RequiredText("title", p.Title)
	s.RequiredText("competition_name", p.CompetitionName)
	s.RequiredText("award_level", p.AwardLevel)
	s.Text("winner_name", p.WinnerName)
	s.Text("competition_date", p.CompetitionDate)
	s.Text("competition_location", p.CompetitionLocation)
	s.Text("team_score", p.TeamScore)
	s.Text("image_url", p.ImageURL)
	s.Text("description", p.Description)
	s.OneOf("status", p.Status, "active", "hidden")
}

// NewAwardStore binds algorithm_awards.
func NewAwardStore(db *sqlx.DB) *ordered.Store[Award, *Award] {
	return ordered.NewStore[Award](db, ordered.Schema[Award]{
		Resource: "algorithm-awards",
		Table:    "algorithm_awards",
		Columns: []string{"title", "competition_name", "award_level", "winner_name",
			"competition_date", "competition_location", "team_score", "image_url",
			"description", "status"},
		StatusColumn: "status",
		Public:       []string{"active"},
		Topics:       []string{"awards", "home"},
	})
}

package innovation

import (
	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

const statsDDL = `CREATE TABLE IF NOT EXISTS innovation_stats (
	id          {{pk}},
	name        VARCHAR(255) NOT NULL,
	value       VARCHAR(64)  NOT NULL DEFAULT '',
	icon        VARCHAR(128) NOT NULL DEFAULT '',
	description TEXT         NOT NULL,
	status      VARCHAR(32)  NOT NULL DEFAULT 'active',
	order_index INTEGER      NOT NULL DEFAULT 0,
	created_at  DATETIME     NOT NULL,
	updated_at  DATETIME     NOT NULL
)`

// Stat is a headline figure.  Value is display text ("50+").
type Stat struct {
	ordered.Record
	Name        string `db:"name"        json:"name"        validate:"required"`
	Value       string `db:"value"       json:"value"`
	Icon        string `db:"icon"        json:"icon"`
	Description string `db:"description" json:"description"`
	Status      string `db:"status"      json:"status"      validate:"oneof=active hidden"`
}

func (x *Stat) Normalize() {
	trim(&x.Name, &x.Value, &x.Icon, &x.Description, &x.Status)
	activeByDefault(&x.Status)
}

type StatPatch struct {
	Name        *string `json:"name"`
	Value       *string `json:"value"`
	Icon        *string `json:"icon"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (p *StatPatch) Collect(s *ordered.Set) {
	s.RequiredText("name", p.Name)
	s.Text("value", p.Value)
	s.Text("icon", p.Icon)
	s.Text("description", p.Description)
	visibility(s, p.Status)
}

// NewStatStore binds innovation_stats.
func NewStatStore(db *sqlx.DB) *ordered.Store[Stat, *Stat] {
	return ordered.NewStore[Stat](db, schema[Stat]("innovation-stats", "innovation_stats",
		"name", "value", "icon", "description"))
}

func defaultStats() [][]any {
	return [][]any{
		{"创新项目", "50+", "lightbulb", "累计孵化的学生创新项目", "active", 1},
		{"获奖数量", "100+", "trophy", "各级创新创业竞赛获奖", "active", 2},
		{"知识产权", "30+", "certificate", "专利与软件著作权", "active", 3},
		{"合作企业", "20+", "handshake", "产学研合作单位", "active", 4},
	}
}

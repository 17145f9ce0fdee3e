package innovation

import (
	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

// Training project levels.
var trainingLevels = []string{"国家级", "省级", "校级"}

const trainingDDL = `CREATE TABLE IF NOT EXISTS innovation_training_projects (
	id            {{pk}},
	title         VARCHAR(255) NOT NULL,
	project_level VARCHAR(32)  NOT NULL DEFAULT '校级',
	leader        VARCHAR(128) NOT NULL DEFAULT '',
	members       TEXT         NOT NULL,
	advisor       VARCHAR(128) NOT NULL DEFAULT '',
	start_date    VARCHAR(32)  NOT NULL DEFAULT '',
	description   TEXT         NOT NULL,
	image_url     VARCHAR(512) NOT NULL DEFAULT '',
	status        VARCHAR(32)  NOT NULL DEFAULT 'active',
	order_index   INTEGER      NOT NULL DEFAULT 0,
	created_at    DATETIME     NOT NULL,
	updated_at    DATETIME     NOT NULL
)`

// Training is a college student innovation training project.
type Training struct {
	ordered.Record
	Title        string                   `db:"title"         json:"title"         validate:"required"`
	ProjectLevel string                   `db:"project_level" json:"project_level" validate:"oneof=国家级 省级 校级"`
	Leader       string                   `db:"leader"        json:"leader"`
	Members      ordered.JSONList[string] `db:"members"       json:"members"`
	Advisor      string                   `db:"advisor"       json:"advisor"`
	StartDate    string                   `db:"start_date"    json:"start_date"`
	Description  string                   `db:"description"   json:"description"`
	ImageURL     string                   `db:"image_url"     json:"image_url"`
	Status       string                   `db:"status"        json:"status"        validate:"oneof=active hidden"`
}

func (x *Training) Normalize() {
	trim(&x.Title, &x.ProjectLevel, &x.Leader, &x.Advisor, &x.StartDate,
		&x.Description, &x.ImageURL, &x.Status)
	x.Members = ordered.Trimmed(x.Members)
	if x.ProjectLevel == "" {
		x.ProjectLevel = "校级"
	}
	activeByDefault(&x.Status)
}

type TrainingPatch struct {
	Title        *string                   `json:"title"`
	ProjectLevel *string                   `json:"project_level"`
	Leader       *string                   `json:"leader"`
	Members      *ordered.JSONList[string] `json:"members"`
	Advisor      *string                   `json:"advisor"`
	StartDate    *string                   `json:"start_date"`
	Description  *string                   `json:"description"`
	ImageURL     *string                   `json:"image_url"`
	Status       *string                   `json:"status"`
}

func (p *TrainingPatch) Collect(s *ordered.Set) {
	s.RequiredText("title", p.Title)
	s.OneOf("project_level", p.ProjectLevel, trainingLevels...)
	s.Text("leader", p.Leader)
	if p.Members != nil {
		m := ordered.Trimmed(*p.Members)
		ordered.Value(s, "members", &m)
	}
	s.Text("advisor", p.Advisor)
	s.Text("start_date", p.StartDate)
	s.Text("description", p.Description)
	s.Text("image_url", p.ImageURL)
	visibility(s, p.Status)
}

// NewTrainingStore binds innovation_training_projects.
func NewTrainingStore(db *sqlx.DB) *ordered.Store[Training, *Training] {
	return ordered.NewStore[Training](db, schema[Training]("training-projects", "innovation_training_projects",
		"title", "project_level", "leader", "members", "advisor", "start_date", "description", "image_url"))
}

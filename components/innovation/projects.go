package innovation

import (
	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

const projectsDDL = `CREATE TABLE IF NOT EXISTS innovation_projects (
	id             {{pk}},
	title          VARCHAR(255) NOT NULL,
	category       VARCHAR(128) NOT NULL DEFAULT '',
	leader         VARCHAR(128) NOT NULL DEFAULT '',
	members        TEXT         NOT NULL,
	description    TEXT         NOT NULL,
	project_status VARCHAR(32)  NOT NULL DEFAULT '进行中',
	start_date     VARCHAR(32)  NOT NULL DEFAULT '',
	end_date       VARCHAR(32)  NOT NULL DEFAULT '',
	image_url      VARCHAR(512) NOT NULL DEFAULT '',
	status         VARCHAR(32)  NOT NULL DEFAULT 'active',
	order_index    INTEGER      NOT NULL DEFAULT 0,
	created_at     DATETIME     NOT NULL,
	updated_at     DATETIME     NOT NULL
)`

// Project is a student innovation project.  ProjectStatus is the
// project's own progress and unrelated to visibility.
type Project struct {
	ordered.Record
	Title         string                   `db:"title"          json:"title"          validate:"required"`
	Category      string                   `db:"category"       json:"category"`
	Leader        string                   `db:"leader"         json:"leader"`
	Members       ordered.JSONList[string] `db:"members"        json:"members"`
	Description   string                   `db:"description"    json:"description"`
	ProjectStatus string                   `db:"project_status" json:"project_status"`
	StartDate     string                   `db:"start_date"     json:"start_date"`
	EndDate       string                   `db:"end_date"       json:"end_date"`
	ImageURL      string                   `db:"image_url"      json:"image_url"`
	Status        string                   `db:"status"         json:"status"         validate:"oneof=active hidden"`
}

func (x *Project) Normalize() {
	trim(&x.Title, &x.Category, &x.Leader, &x.Description, &x.ProjectStatus,
		&x.StartDate, &x.EndDate, &x.ImageURL, &x.Status)
	x.Members = ordered.Trimmed(x.Members)
	if x.ProjectStatus == "" {
		x.ProjectStatus = "进行中"
	}
	activeByDefault(&x.Status)
}

type ProjectPatch struct {
	Title         *string                   `json:"title"`
	Category      *string                   `json:"category"`
	Leader        *string                   `json:"leader"`
	Members       *ordered.JSONList[string] `json:"members"`
	Description   *string                   `json:"description"`
	ProjectStatus *string                   `json:"project_status"`
	StartDate     *string                   `json:"start_date"`
	EndDate       *string                   `json:"end_date"`
	ImageURL      *string                   `json:"image_url"`
	Status        *string                   `json:"status"`
}

func (p *ProjectPatch) Collect(s *ordered.Set) {
	s.RequiredText("title", p.Title)
	s.Text("category", p.Category)
	s.Text("leader", p.Leader)
	if p.Members != nil {
		m := ordered.Trimmed(*p.Members)
		ordered.Value(s, "members", &m)
	}
	s.Text("description", p.Description)
	s.RequiredText("project_status", p.ProjectStatus)
	s.Text("start_date", p.StartDate)
	s.Text("end_date", p.EndDate)
	s.Text("image_url", p.ImageURL)
	visibility(s, p.Status)
}

// NewProjectStore binds innovation_projects.
func NewProjectStore(db *sqlx.DB) *ordered.Store[Project, *Project] {
	return ordered.NewStore[Project](db, schema[Project]("innovation-projects", "innovation_projects",
		"title", "category", "leader", "members", "description", "project_status",
		"start_date", "end_date", "image_url"))
}

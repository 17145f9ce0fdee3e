package team

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

// MembersResource is the URL segment and cache prefix for members.
const MembersResource = "team"

// Member defaults.
const (
	DefaultGrade  = "2024级"
	DefaultStatus = "在职"
	DefaultGroup  = "算法组"
)

const membersDDL = `CREATE TABLE IF NOT EXISTS team_members (
	id          {{pk}},
	name        VARCHAR(255) NOT NULL,
	position    VARCHAR(255) NOT NULL DEFAULT '',
	description TEXT         NOT NULL,
	image_url   VARCHAR(512) NOT NULL DEFAULT '',
	qq          VARCHAR(64)  NOT NULL DEFAULT '',
	wechat      VARCHAR(64)  NOT NULL DEFAULT '',
	email       VARCHAR(255) NOT NULL DEFAULT '',
	group_name  VARCHAR(255) NOT NULL DEFAULT '',
	status      VARCHAR(32)  NOT NULL DEFAULT '',
	grade       VARCHAR(32)  NOT NULL DEFAULT '',
	order_index INTEGER      NOT NULL DEFAULT 0,
	created_at  DATETIME     NOT NULL,
	updated_at  DATETIME     NOT NULL
)`

// Member is one person on the team page.
type Member struct {
	ordered.Record
	Name        string `db:"name"        json:"name"        validate:"required,max=255"`
	Position    string `db:"position"    json:"position"`
	Description string `db:"description" json:"description"`
	ImageURL    string `db:"image_url"   json:"image_url"`
	QQ          string `db:"qq"          json:"qq"`
	WeChat      string `db:"wechat"      json:"wechat"`
	Email       string `db:"email"       json:"email"       validate:"omitempty,email"`
	GroupName   string `db:"group_name"  json:"group_name"`
	Status      string `db:"status"      json:"status"`
	Grade       string `db:"grade"       json:"grade"`
}

// Normalize trims input and applies defaults.
func (m *Member) Normalize() {
	for _, p := range []*string{&m.Name, &m.Position, &m.Description, &m.ImageURL,
		&m.QQ, &m.WeChat, &m.Email, &m.GroupName, &m.Status, &m.Grade} {
		*p = strings.TrimSpace(*p)
	}
	if m.Grade == "" {
		m.Grade = DefaultGrade
	}
	if m.Status == "" {
		m.Status = DefaultStatus
	}
	if m.GroupName == "" {
		m.GroupName = DefaultGroup
	}
}

// MemberPatch is a partial update; nil fields are left alone.
type MemberPatch struct {
	Name        *string `json:"name"`
	Position    *string `json:"position"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	QQ          *string `json:"qq"`
	WeChat      *string `json:"wechat"`
	Email       *string `json:"email"`
	GroupName   *string `json:"group_name"`
	Status      *string `json:"status"`
	Grade       *string `json:"grade"`
}

// Collect maps present fields to columns.
func (p *MemberPatch) Collect(s *ordered.Set) {
	s.RequiredText("name", p.Name)
	s.Text("position", p.Position)
	s.Text("description", p.Description)
	s.Text("image_url", p.ImageURL)
	s.Text("qq", p.QQ)
	s.Text("wechat", p.WeChat)
	s.Text("email", p.Email)
	s.Text("group_name", p.GroupName)
	s.RequiredText("status", p.Status)
	s.RequiredText("grade", p.Grade)
}

// NewMemberStore binds the team_members table.  Members have no hidden
// state; every row is public.
func NewMemberStore(db *sqlx.DB) *ordered.Store[Member, *Member] {
	return ordered.NewStore[Member](db, ordered.Schema[Member]{
		Resource: MembersResource,
		Table:    "team_members",
		Columns: []string{"name", "position", "description", "image_url", "qq",
			"wechat", "email", "group_name", "status", "grade"},
		Topics: []string{"team", "home"},
	})
}

package team

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

const gradesDDL = `CREATE TABLE IF NOT EXISTS grades (
	id          {{pk}},
	name        VARCHAR(32)  NOT NULL UNIQUE,
	description TEXT         NOT NULL,
	order_index INTEGER      NOT NULL DEFAULT 0,
	created_at  DATETIME     NOT NULL,
	updated_at  DATETIME     NOT NULL
)`

var gradeName = regexp.MustCompile(`^(\d{4})级$`)

// ValidGradeName reports whether name is "YYYY级" with a plausible year.
func ValidGradeName(name string) bool {
	m := gradeName.FindStringSubmatch(name)
	if m == nil {
		return false
	}
	year, _ := strconv.Atoi(m[1])
	return year >= 1900 && year <= 2100
}

func init() {
	ordered.RegisterValidation("grade", "must look like 2024级 with a year between 1900 and 2100", func(fl validator.FieldLevel) bool {
		return ValidGradeName(fl.Field().String())
	})
}

// Grade is one cohort.  MemberCount is computed on read.
type Grade struct {
	ordered.Record
	Name        string `db:"name"        json:"name"         validate:"required,grade"`
	Description string `db:"description" json:"description"`
	MemberCount int    `db:"-"           json:"member_count"`
}

// Normalize trims input.
func (g *Grade) Normalize() {
	g.Name = strings.TrimSpace(g.Name)
	g.Description = strings.TrimSpace(g.Description)
}

// GradePatch is a partial update.
type GradePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Collect maps present fields to columns.  The name format is checked on
// the updated row.
func (p *GradePatch) Collect(s *ordered.Set) {
	s.RequiredText("name", p.Name)
	s.Text("description", p.Description)
}

// NewGradeStore binds the grades table.
func NewGradeStore(db *sqlx.DB) *ordered.Store[Grade, *Grade] {
	return ordered.NewStore[Grade](db, ordered.Schema[Grade]{
		Resource:     "grades",
		Table:        "grades",
		Columns:      []string{"name", "description"},
		Topics:       []string{"team", "home"},
		AfterUpdate:  renameMembers,
		BeforeDelete: refuseWhileMembers,
		Enrich:       countMembers,
	})
}

// renameMembers carries a grade rename over to its members.
func renameMembers(ctx context.Context, tx *sqlx.Tx, before, after *Grade) error {
	if before.Name == after.Name {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE team_members SET grade = ?, updated_at = ? WHERE grade = ?`),
		after.Name, after.UpdatedAt, before.Name)
	return err
}

func refuseWhileMembers(ctx context.Context, tx *sqlx.Tx, g *Grade) error {
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM team_members WHERE grade = ?`), g.Name); err != nil {
		return err
	}
	if n > 0 {
		return ordered.Invalid("name", "grade "+g.Name+" still has "+strconv.Itoa(n)+" members")
	}
	return nil
}

func countMembers(ctx context.Context, db *sqlx.DB, gs []*Grade) error {
	var rows []struct {
		Grade string `db:"grade"`
		N     int    `db:"n"`
	}
	if err := db.SelectContext(ctx, &rows, `SELECT grade, COUNT(*) AS n FROM team_members GROUP BY grade`); err != nil {
		return err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Grade] = r.N
	}
	for _, g := range gs {
		g.MemberCount = counts[g.Name]
	}
	return nil
}

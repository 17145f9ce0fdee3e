package papers

import (
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/resource"
	"github.com/acmlab/labsite/internal/respond"
)

const categoriesDDL = `CREATE TABLE IF NOT EXISTS paper_categories (
	id          {{pk}},
	name        VARCHAR(64)  NOT NULL,
	level       INTEGER      NOT NULL DEFAULT 0,
	description TEXT         NOT NULL,
	order_index INTEGER      NOT NULL DEFAULT 0,
	created_at  DATETIME     NOT NULL,
	updated_at  DATETIME     NOT NULL
)`

// Category is a paper ranking label such as CCF-A.
type Category struct {
	ordered.Record
	Name        string `db:"name"        json:"name"        validate:"required"`
	Level       int    `db:"level"       json:"level"`
	Description string `db:"description" json:"description"`
}

// Normalize trims input.
func (c *Category) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
}

// NewCategoryStore binds paper_categories.  Only List is exposed.
func NewCategoryStore(db *sqlx.DB) *ordered.Store[Category, *Category] {
	return ordered.NewStore[Category](db, ordered.Schema[Category]{
		Resource: "paper-categories",
		Table:    "paper_categories",
		Columns:  []string{"name", "level", "description"},
	})
}

type categoryHandler struct {
	store *ordered.Store[Category, *Category]
}

func (h *categoryHandler) list(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.List(r.Context(), ordered.Filter{})
	if err != nil {
		resource.WriteError(w, h.store.Resource(), "list", err)
		return
	}
	respond.JSON(w, http.StatusOK, rows)
}

func defaultCategories() [][]any {
	seed := []struct {
		name, desc string
	}{
		{"CCF-A", "CCF推荐会议和期刊A类"},
		{"CCF-B", "CCF推荐会议和期刊B类"},
		{"CCF-C", "CCF推荐会议和期刊C类"},
		{"中科院一区", "中科院分区一区"},
		{"中科院二区", "中科院分区二区"},
		{"中科院三区", "中科院分区三区"},
		{"中科院四区", "中科院分区四区"},
		{"JCR一区", "JCR分区一区"},
		{"JCR二区", "JCR分区二区"},
		{"JCR三区", "JCR分区三区"},
		{"JCR四区", "JCR分区四区"},
		{"EI源刊", "EI收录的期刊"},
		{"EI会议", "EI收录的会议"},
		{"南核", "南大核心期刊"},
		{"CSCD", "中国科学引文数据库"},
		{"北核", "北大核心期刊"},
		{"普刊", "普通期刊"},
	}
	rows := make([][]any, len(seed))
	for i, s := range seed {
		rows[i] = []any{s.name, i + 1, s.desc, i + 1}
	}
	return rows
}

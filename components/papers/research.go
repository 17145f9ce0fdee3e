package papers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/resource"
	"github.com/acmlab/labsite/internal/respond"
)

// DefaultResearchCategory applies when a research area names none.
const DefaultResearchCategory = "深度学习"

// Paging defaults for GET /api/research/page.  AllCategories in the
// category parameter means no filter.
const (
	DefaultPerPage = 6
	MaxPerPage     = 100
	AllCategories  = "全部"
)

const researchDDL = `CREATE TABLE IF NOT EXISTS research_areas (
	id          {{pk}},
	title       VARCHAR(255) NOT NULL,
	category    VARCHAR(255) NOT NULL DEFAULT '',
	description TEXT         NOT NULL,
	members     TEXT         NOT NULL,
	order_index INTEGER      NOT NULL DEFAULT 0,
	created_at  DATETIME     NOT NULL,
	updated_at  DATETIME     NOT NULL
)`

// ResearchArea is one topic the lab works on.
type ResearchArea struct {
	ordered.Record
	Title       string                   `db:"title"       json:"title"       validate:"required"`
	Category    string                   `db:"category"    json:"category"`
	Description string                   `db:"description" json:"description"`
	Members     ordered.JSONList[string] `db:"members"     json:"members"`
}

// Normalize trims input and applies defaults.
func (a *ResearchArea) Normalize() {
	a.Title = strings.TrimSpace(a.Title)
	a.Category = strings.TrimSpace(a.Category)
	a.Description = strings.TrimSpace(a.Description)
	a.Members = ordered.Trimmed(a.Members)
	if a.Category == "" {
		a.Category = DefaultResearchCategory
	}
}

// ResearchPatch is a partial update.
type ResearchPatch struct {
	Title       *string                   `json:"title"`
	Category    *string                   `json:"category"`
	Description *string                   `json:"description"`
	Members     *ordered.JSONList[string] `json:"members"`
}

// Collect maps present fields to columns.
func (p *ResearchPatch) Collect(s *ordered.Set) {
	s.RequiredText("title", p.Title)
	s.RequiredText("category", p.Category)
	s.Text("description", p.Description)
	if p.Members != nil {
		m := ordered.Trimmed(*p.Members)
		ordered.Value(s, "members", &m)
	}
}

// NewResearchStore binds research_areas.
func NewResearchStore(db *sqlx.DB) *ordered.Store[ResearchArea, *ResearchArea] {
	return ordered.NewStore[ResearchArea](db, ordered.Schema[ResearchArea]{
		Resource: "research",
		Table:    "research_areas",
		Columns:  []string{"title", "category", "description", "members"},
		Topics:   []string{"research"},
	})
}

// Pagination describes one page of a paged list.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type researchPages struct {
	store *ordered.Store[ResearchArea, *ResearchArea]
}

// handle serves ?page=N&per_page=M&category=C.
func (h *researchPages) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := positive(q.Get("page"), 1)
	if err != nil {
		resource.WriteError(w, h.store.Resource(), "page", ordered.Invalid("page", err.Error()))
		return
	}
	perPage, err := positive(q.Get("per_page"), DefaultPerPage)
	if err != nil {
		resource.WriteError(w, h.store.Resource(), "page", ordered.Invalid("per_page", err.Error()))
		return
	}
	perPage = min(perPage, MaxPerPage)

	f := ordered.Filter{Limit: perPage, Offset: (page - 1) * perPage}
	if c := strings.TrimSpace(q.Get("category")); c != "" && c != AllCategories {
		f.Equal = map[string]any{"category": c}
	}
	total, err := h.store.Count(r.Context(), f)
	if err != nil {
		resource.WriteError(w, h.store.Resource(), "page", err)
		return
	}
	rows, err := h.store.List(r.Context(), f)
	if err != nil {
		resource.WriteError(w, h.store.Resource(), "page", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    rows,
		"pagination": Pagination{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: (total + perPage - 1) / perPage,
		},
	})
}

// positive parses a 1-based query integer, returning def when s is empty.
func positive(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errNotPositive
	}
	return n, nil
}

// CategoryCount is one row of GET /api/research/categories.
type CategoryCount struct {
	Name  string `db:"name"  json:"name"`
	Count int    `db:"count" json:"count"`
}

var errNotPositive = errors.New("must be a positive integer")

type researchCounts struct {
	db *sqlx.DB
}

func (h *researchCounts) handle(w http.ResponseWriter, r *http.Request) {
	out := []CategoryCount{}
	err := h.db.SelectContext(r.Context(), &out, `
		SELECT category AS name, COUNT(*) AS count
		FROM   research_areas
		GROUP  BY category
		ORDER  BY count DESC, name ASC`)
	if err != nil {
		resource.WriteError(w, "research", "categories", &ordered.StorageError{Resource: "research", Op: "categories", Err: err})
		return
	}
	total := 0
	for _, c := range out {
		total += c.Count
	}
	respond.JSON(w, http.StatusOK, map[string]any{"total": total, "categories": out})
}

func defaultResearch() [][]any {
	return [][]any{
		{"自然语言处理", "深度学习", "研究自然语言的理解、生成和处理技术", "[]", 1},
		{"计算机视觉", "深度学习", "研究图像和视频的识别、分析和理解", "[]", 2},
		{"机器学习", "深度学习", "研究各种机器学习算法和应用", "[]", 3},
		{"证据理论", "证据理论", "研究不确定性推理和证据融合方法", "[]", 4},
		{"文献计量学", "文献计量", "研究学术文献的统计分析和评价方法", "[]", 5},
	}
}

package papers

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/ordered"
)

const papersDDL = `CREATE TABLE IF NOT EXISTS papers (
	id             {{pk}},
	title          VARCHAR(512) NOT NULL,
	authors        TEXT         NOT NULL,
	journal        VARCHAR(512) NOT NULL DEFAULT '',
	year           INTEGER      NOT NULL DEFAULT 0,
	abstract       TEXT         NOT NULL,
	category_ids   TEXT         NOT NULL,
	status         VARCHAR(32)  NOT NULL DEFAULT 'published',
	citation_count INTEGER      NOT NULL DEFAULT 0,
	doi            VARCHAR(255) NOT NULL DEFAULT '',
	pdf_url        VARCHAR(512) NOT NULL DEFAULT '',
	code_url       VARCHAR(512) NOT NULL DEFAULT '',
	video_url      VARCHAR(512) NOT NULL DEFAULT '',
	demo_url       VARCHAR(512) NOT NULL DEFAULT '',
	order_index    INTEGER      NOT NULL DEFAULT 0,
	created_at     DATETIME     NOT NULL,
	updated_at     DATETIME     NOT NULL
)`

// Paper is one publication.  CategoryNames is resolved on read.
type Paper struct {
	ordered.Record
	Title         string                   `db:"title"          json:"title"          validate:"required"`
	Authors       ordered.JSONList[string] `db:"authors"        json:"authors"`
	Journal       string                   `db:"journal"        json:"journal"`
	Year          int                      `db:"year"           json:"year"           validate:"omitempty,gte=1900,lte=2100"`
	Abstract      string                   `db:"abstract"       json:"abstract"`
	CategoryIDs   ordered.JSONList[int64]  `db:"category_ids"   json:"category_ids"`
	Status        string                   `db:"status"         json:"status"         validate:"oneof=published draft"`
	CitationCount int                      `db:"citation_count" json:"citation_count" validate:"gte=0"`
	DOI           string                   `db:"doi"            json:"doi"`
	PDFURL        string                   `db:"pdf_url"        json:"pdf_url"`
	CodeURL       string                   `db:"code_url"       json:"code_url"`
	VideoURL      string                   `db:"video_url"      json:"video_url"`
	DemoURL       string                   `db:"demo_url"       json:"demo_url"`
	CategoryNames []string                 `db:"-"              json:"category_names"`
}

// Normalize trims input and applies defaults.
func (p *Paper) Normalize() {
	for _, s := range []*string{&p.Title, &p.Journal, &p.Abstract, &p.Status,
		&p.DOI, &p.PDFURL, &p.CodeURL, &p.VideoURL, &p.DemoURL} {
		*s = strings.TrimSpace(*s)
	}
	p.Authors = ordered.Trimmed(p.Authors)
	if p.CategoryIDs == nil {
		p.CategoryIDs = ordered.JSONList[int64]{}
	}
	if p.Status == "" {
		p.Status = "published"
	}
}

// PaperPatch is a partial update.
type PaperPatch struct {
	Title         *string                   `json:"title"`
	Authors       *ordered.JSONList[string] `json:"authors"`
	Journal       *string                   `json:"journal"`
	Year          *int                      `json:"year"`
	Abstract      *string                   `json:"abstract"`
	CategoryIDs   *ordered.JSONList[int64]  `json:"category_ids"`
	Status        *string                   `json:"status"`
	CitationCount *int                      `json:"citation_count"`
	DOI           *string                   `json:"doi"`
	PDFURL        *string                   `json:"pdf_url"`
	CodeURL       *string                   `json:"code_url"`
	VideoURL      *string                   `json:"video_url"`
	DemoURL       *string                   `json:"demo_url"`
}

// Collect maps present fields to columns.  Range checks on year and
// citation_count run against the updated row.
func (p *PaperPatch) Collect(s *ordered.Set) {
	s.RequiredText("title", p.Title)
	if p.Authors != nil {
		authors := ordered.Trimmed(*p.Authors)
		ordered.Value(s, "authors", &authors)
	}
	s.Text("journal", p.Journal)
	ordered.Value(s, "year", p.Year)
	s.Text("abstract", p.Abstract)
	ordered.Value(s, "category_ids", p.CategoryIDs)
	s.OneOf("status", p.Status, "published", "draft")
	ordered.Value(s, "citation_count", p.CitationCount)
	s.Text("doi", p.DOI)
	s.Text("pdf_url", p.PDFURL)
	s.Text("code_url", p.CodeURL)
	s.Text("video_url", p.VideoURL)
	s.Text("demo_url", p.DemoURL)
}

// NewPaperStore binds the papers table.
func NewPaperStore(db *sqlx.DB) *ordered.Store[Paper, *Paper] {
	return ordered.NewStore[Paper](db, ordered.Schema[Paper]{
		Resource: "papers",
		Table:    "papers",
		Columns: []string{"title", "authors", "journal", "year", "abstract", "category_ids",
			"status", "citation_count", "doi", "pdf_url", "code_url", "video_url", "demo_url"},
		StatusColumn: "status",
		Public:       []string{"published"},
		Topics:       []string{"research", "home"},
		Enrich:       resolveCategoryNames,
	})
}

func resolveCategoryNames(ctx context.Context, db *sqlx.DB, ps []*Paper) error {
	var cats []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	if err := db.SelectContext(ctx, &cats, `SELECT id, name FROM paper_categories`); err != nil {
		return err
	}
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	for _, p := range ps {
		p.CategoryNames = make([]string, 0, len(p.CategoryIDs))
		for _, id := range p.CategoryIDs {
			if n, ok := names[id]; ok {
				p.CategoryNames = append(p.CategoryNames, n)
			}
		}
	}
	return nil
}

package papers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/database"
	"github.com/acmlab/labsite/internal/ordered"
)

func newDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenWithOptions(database.SQLite, ":memory:", 1, 1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	c := &Component{}
	if err := database.Migrate(context.Background(), db, c.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := c.Init(context.Background(), &component.Env{DB: db}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func TestSeedsAreIdempotent(t *testing.T) {
	db := newDB(t)
	c := &Component{}
	if err := c.Init(context.Background(), &component.Env{DB: db}); err != nil {
		t.Fatal(err)
	}
	cats, err := NewCategoryStore(db).List(context.Background(), ordered.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 17 || cats[0].Name != "CCF-A" || cats[16].Name != "普刊" {
		t.Fatalf("categories = %d, first %q", len(cats), cats[0].Name)
	}
}

func TestPaperCategoryNamesResolved(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	s := NewPaperStore(db)

	p, err := s.Create(ctx, &Paper{
		Title:       "Evidence Fusion",
		Authors:     ordered.JSONList[string]{"Li", " ", "Wang"},
		Year:        2024,
		CategoryIDs: ordered.JSONList[int64]{1, 4, 999},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Authors) != 2 || p.Status != "published" {
		t.Fatalf("created = %+v", p)
	}
	if len(p.CategoryNames) != 2 || p.CategoryNames[0] != "CCF-A" || p.CategoryNames[1] != "中科院一区" {
		t.Fatalf("category names = %v", p.CategoryNames)
	}

	got, err := s.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.CategoryNames) != 2 {
		t.Fatalf("get category names = %v", got.CategoryNames)
	}
}

func TestPaperUpdateKeepsUntouchedFields(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	s := NewPaperStore(db)

	t0 := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return t0 })
	p, err := s.Create(ctx, &Paper{Title: "Old", Authors: ordered.JSONList[string]{"Li"}, Year: 2023})
	if err != nil {
		t.Fatal(err)
	}

	s.SetClock(func() time.Time { return t0.Add(time.Hour) })
	title := "New"
	up, err := s.Update(ctx, p.ID, &PaperPatch{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if up.Title != "New" || up.Year != 2023 || len(up.Authors) != 1 || up.Authors[0] != "Li" {
		t.Fatalf("updated = %+v", up)
	}
	if !up.UpdatedAt.After(p.UpdatedAt) {
		t.Fatalf("updated_at %v not after %v", up.UpdatedAt, p.UpdatedAt)
	}
}

func TestPaperRangeChecks(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	s := NewPaperStore(db)

	if _, err := s.Create(ctx, &Paper{Title: "X", Year: 1800}); err == nil {
		t.Fatal("year 1800 accepted")
	}
	if _, err := s.Create(ctx, &Paper{Title: "X", Status: "pending"}); err == nil {
		t.Fatal("unknown status accepted")
	}
	p, err := s.Create(ctx, &Paper{Title: "X"})
	if err != nil {
		t.Fatal(err)
	}
	neg := -1
	if _, err := s.Update(ctx, p.ID, &PaperPatch{CitationCount: &neg}); err == nil {
		t.Fatal("negative citation count accepted")
	}
}

func TestResearchCategoryCounts(t *testing.T) {
	db := newDB(t)
	rc := &researchCounts{db: db}

	rec := httptest.NewRecorder()
	rc.handle(rec, httptest.NewRequest(http.MethodGet, "/api/frontend/research/categories", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Total      int             `json:"total"`
		Categories []CategoryCount `json:"categories"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 5 || len(body.Categories) != 3 {
		t.Fatalf("body = %+v", body)
	}
	if body.Categories[0].Name != "深度学习" || body.Categories[0].Count != 3 {
		t.Fatalf("top category = %+v", body.Categories[0])
	}
}

func TestResearchPages(t *testing.T) {
	db := newDB(t)
	rp := &researchPages{store: NewResearchStore(db)}

	type page struct {
		Data       []ResearchArea `json:"data"`
		Pagination Pagination     `json:"pagination"`
	}
	get := func(query string) (int, page) {
		t.Helper()
		rec := httptest.NewRecorder()
		rp.handle(rec, httptest.NewRequest(http.MethodGet, "/api/frontend/research/page"+query, nil))
		var p page
		if rec.Code == http.StatusOK {
			if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
				t.Fatal(err)
			}
		}
		return rec.Code, p
	}

	cases := []struct {
		name       string
		query      string
		titles     []string
		pagination Pagination
	}{
		{"defaults", "", []string{"自然语言处理", "计算机视觉", "机器学习", "证据理论", "文献计量学"},
			Pagination{Page: 1, PerPage: 6, Total: 5, TotalPages: 1}},
		{"second page", "?page=2&per_page=2", []string{"机器学习", "证据理论"},
			Pagination{Page: 2, PerPage: 2, Total: 5, TotalPages: 3}},
		{"category", "?category=" + url.QueryEscape("深度学习") + "&per_page=2&page=2", []string{"机器学习"},
			Pagination{Page: 2, PerPage: 2, Total: 3, TotalPages: 2}},
		{"all categories", "?category=" + url.QueryEscape(AllCategories) + "&per_page=10", nil,
			Pagination{Page: 1, PerPage: 10, Total: 5, TotalPages: 1}},
		{"past the end", "?page=9", []string{},
			Pagination{Page: 9, PerPage: 6, Total: 5, TotalPages: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, p := get(tc.query)
			if code != http.StatusOK {
				t.Fatalf("status = %d", code)
			}
			if p.Pagination != tc.pagination {
				t.Fatalf("pagination = %+v, want %+v", p.Pagination, tc.pagination)
			}
			if tc.titles == nil {
				return
			}
			got := make([]string, len(p.Data))
			for i, a := range p.Data {
				got[i] = a.Title
			}
			if strings.Join(got, ",") != strings.Join(tc.titles, ",") {
				t.Fatalf("titles = %v, want %v", got, tc.titles)
			}
		})
	}

	for _, q := range []string{"?page=0", "?per_page=-1", "?page=x"} {
		if code, _ := get(q); code != http.StatusBadRequest {
			t.Fatalf("%s = %d, want 400", q, code)
		}
	}
}

func TestResearchDefaultsCategory(t *testing.T) {
	db := newDB(t)
	a, err := NewResearchStore(db).Create(context.Background(), &ResearchArea{Title: "图神经网络"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Category != DefaultResearchCategory || a.OrderIndex != 6 {
		t.Fatalf("area = %+v", a)
	}
}

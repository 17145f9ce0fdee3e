package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/acmlab/labsite/internal/markdown"
	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/upload"
)

// Defaults applied on create.
const (
	DefaultCategory  = "实验室制度"
	DefaultCardStyle = "default"
	DateLayout       = "2006-01-02"
)

// Source types.
const (
	SourceOnline = "online"
	SourceUpload = "upload"
)

const notificationsDDL = `CREATE TABLE IF NOT EXISTS notifications (
	id           {{pk}},
	title        VARCHAR(255) NOT NULL,
	content      TEXT         NOT NULL,
	raw_content  TEXT         NOT NULL,
	author       VARCHAR(128) NOT NULL DEFAULT '',
	category     VARCHAR(128) NOT NULL DEFAULT '',
	tags         TEXT         NOT NULL,
	excerpt      TEXT         NOT NULL,
	publish_date VARCHAR(32)  NOT NULL DEFAULT '',
	word_count   INTEGER      NOT NULL DEFAULT 0,
	reading_time INTEGER      NOT NULL DEFAULT 1,
	status       VARCHAR(32)  NOT NULL DEFAULT 'published',
	source_type  VARCHAR(32)  NOT NULL DEFAULT 'online',
	source_file  VARCHAR(512) NOT NULL DEFAULT '',
	card_style   VARCHAR(64)  NOT NULL DEFAULT 'default',
	card_image   VARCHAR(512) NOT NULL DEFAULT '',
	view_count   INTEGER      NOT NULL DEFAULT 0,
	order_index  INTEGER      NOT NULL DEFAULT 0,
	created_at   DATETIME     NOT NULL,
	updated_at   DATETIME     NOT NULL
)`

// Notification is one post on the lab's news page.  Content holds the
// rendered HTML and RawContent the body as written.
type Notification struct {
	ordered.Record
	Title       string                   `db:"title"        json:"title"        validate:"required,max=255"`
	Content     string                   `db:"content"      json:"content"      validate:"required"`
	RawContent  string                   `db:"raw_content"  json:"raw_content"`
	Author      string                   `db:"author"       json:"author"`
	Category    string                   `db:"category"     json:"category"`
	Tags        ordered.JSONList[string] `db:"tags"         json:"tags"`
	Excerpt     string                   `db:"excerpt"      json:"excerpt"`
	PublishDate string                   `db:"publish_date" json:"publish_date" validate:"omitempty,datetime=2006-01-02"`
	WordCount   int                      `db:"word_count"   json:"word_count"`
	ReadingTime int                      `db:"reading_time" json:"reading_time"`
	Status      string                   `db:"status"       json:"status"       validate:"oneof=published draft"`
	SourceType  string                   `db:"source_type"  json:"source_type"  validate:"oneof=online upload"`
	SourceFile  string                   `db:"source_file"  json:"source_file"`
	CardStyle   string                   `db:"card_style"   json:"card_style"`
	CardImage   string                   `db:"card_image"   json:"card_image"`
	ViewCount   int                      `db:"view_count"   json:"view_count"`

	// stored is the uploaded source document, recorded in uploaded_files
	// inside the create transaction.
	stored *upload.Stored
}

// Normalize trims input, applies defaults, and derives the rendered body
// and its counters.
func (n *Notification) Normalize() {
	for _, p := range []*string{&n.Title, &n.Author, &n.Category, &n.Excerpt, &n.PublishDate,
		&n.Status, &n.SourceType, &n.SourceFile, &n.CardStyle, &n.CardImage} {
		*p = strings.TrimSpace(*p)
	}
	n.Tags = ordered.Trimmed(n.Tags)
	if n.Category == "" {
		n.Category = DefaultCategory
	}
	if n.Status == "" {
		n.Status = "published"
	}
	if n.SourceType == "" {
		n.SourceType = SourceOnline
	}
	if n.CardStyle == "" {
		n.CardStyle = DefaultCardStyle
	}
	if n.PublishDate == "" {
		n.PublishDate = time.Now().Format(DateLayout)
	}
	n.ViewCount = 0

	body := strings.TrimSpace(n.Content)
	if body == "" {
		n.Content = ""
		return
	}
	sum, err := markdown.Summarize(body)
	if err != nil {
		zap.S().Warnw("render notification body", "title", n.Title, "err", err)
		sum = markdown.Summary{HTML: body, Raw: body}
	}
	n.Content, n.RawContent = sum.HTML, sum.Raw
	n.WordCount, n.ReadingTime = sum.WordCount, sum.ReadingTime
	if n.Excerpt == "" {
		n.Excerpt = sum.Excerpt
	}
}

// NotificationPatch is a partial update.  Source fields and the view
// counter are server-owned.
type NotificationPatch struct {
	Title       *string                   `json:"title"`
	Content     *string                   `json:"content"`
	Author      *string                   `json:"author"`
	Category    *string                   `json:"category"`
	Tags        *ordered.JSONList[string] `json:"tags"`
	Excerpt     *string                   `json:"excerpt"`
	PublishDate *string                   `json:"publish_date"`
	Status      *string                   `json:"status"`
	CardStyle   *string                   `json:"card_style"`
	CardImage   *string                   `json:"card_image"`
}

// Collect maps present fields to columns.  A new body re-derives the
// rendered HTML, counters, and, unless one is given, the excerpt.
func (p *NotificationPatch) Collect(s *ordered.Set) {
	s.RequiredText("title", p.Title)
	if p.Content != nil {
		body := strings.TrimSpace(*p.Content)
		if body == "" {
			s.Fail("content", "must not be empty")
			return
		}
		sum, err := markdown.Summarize(body)
		if err != nil {
			s.Fail("content", "cannot be rendered")
			return
		}
		s.Text("content", &sum.HTML)
		s.Text("raw_content", &sum.Raw)
		s.Text("excerpt", &sum.Excerpt)
		ordered.Value(s, "word_count", &sum.WordCount)
		ordered.Value(s, "reading_time", &sum.ReadingTime)
	}
	s.Text("author", p.Author)
	s.RequiredText("category", p.Category)
	if p.Tags != nil {
		tags := ordered.Trimmed(*p.Tags)
		ordered.Value(s, "tags", &tags)
	}
	s.Text("excerpt", p.Excerpt)
	s.Text("publish_date", p.PublishDate)
	s.OneOf("status", p.Status, "published", "draft")
	s.RequiredText("card_style", p.CardStyle)
	s.Text("card_image", p.CardImage)
}

// NewNotificationStore binds notifications and its uploaded_files child.
func NewNotificationStore(db *sqlx.DB) *ordered.Store[Notification, *Notification] {
	return ordered.NewStore[Notification](db, ordered.Schema[Notification]{
		Resource: "notifications",
		Table:    "notifications",
		Columns: []string{"title", "content", "raw_content", "author", "category", "tags",
			"excerpt", "publish_date", "word_count", "reading_time", "status", "source_type",
			"source_file", "card_style", "card_image", "view_count"},
		StatusColumn: "status",
		Public:       []string{"published"},
		Children:     []ordered.Child{{Table: "uploaded_files", ForeignKey: "notification_id"}},
		Topics:       []string{"dynamic", "home"},
		AfterCreate:  recordUpload,
	})
}

// countView bumps view_count without touching updated_at or firing hooks.
func countView(db *sqlx.DB) func(ctx context.Context, id int64) {
	q := db.Rebind(`UPDATE notifications SET view_count = view_count + 1 WHERE id = ?`)
	return func(ctx context.Context, id int64) {
		if _, err := db.ExecContext(ctx, q, id); err != nil {
			zap.S().Warnw("count notification view", "id", id, "err", err)
		}
	}
}

// internal/ordered/store.go
//
// Generic store for manually ordered resources.
//
/*
Context
--------
One Store serves one table.  The table's own columns are opaque here; the
Schema lists them so the Store can build SELECT, INSERT, and UPDATE
statements, while the Store owns `id`, `order_index`, `created_at`, and
`updated_at`.

Reads sort by `order_index ASC, created_at DESC, id DESC`.  Creates append
(`order_index = MAX + 1`).  Reorder assigns 1-based positions to the listed
ids and leaves every other row alone, so gaps and duplicates are possible
and tolerated.

Every mutation runs in one transaction released on all paths.  After a
successful commit the Store invokes its hooks (cache invalidation, page
notifications, metrics, file cleanup).  Hooks cannot fail the mutation.

Notes
-----
  • Oxford commas, two spaces after periods.
*/
package ordered

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/acmlab/labsite/internal/database"
)

/*──────────────────────────── schema ───────────────────────────────────────*/

// Child is a table whose rows reference the parent by ForeignKey and are
// deleted with it.
type Child struct {
	Table      string
	ForeignKey string
}

// Schema describes one resource table.
type Schema[T any] struct {
	Resource string   // URL segment and metrics label, e.g. "team"
	Table    string   // SQL table name
	Columns  []string // resource-owned columns, status included

	// StatusColumn names the visibility column.  Empty means every row is
	// public.
	StatusColumn string
	Public       []string // statuses visible on frontend reads

	Children []Child
	Topics   []string // page-changed topics signalled after commits

	// Optional transactional hooks.  An error aborts the mutation.
	AfterCreate  func(ctx context.Context, tx *sqlx.Tx, rec *T) error
	BeforeDelete func(ctx context.Context, tx *sqlx.Tx, rec *T) error
	AfterUpdate  func(ctx context.Context, tx *sqlx.Tx, before, after *T) error

	// Enrich fills computed, non-column fields after reads.
	Enrich func(ctx context.Context, db *sqlx.DB, recs []*T) error
}

/*──────────────────────────── events ───────────────────────────────────────*/

// Op names a committed mutation.
type Op string

const (
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpReorder Op = "reorder"
)

// Event describes a committed mutation.  Record is the row after create or
// update and the row as it was before delete; it is nil for reorder.
type Event struct {
	Resource string
	Op       Op
	ID       int64
	IDs      []int64
	Topics   []string
	Record   any
}

// Hook runs after commit.
type Hook func(ctx context.Context, ev Event)

// Filter narrows List and Count.  Zero value returns every row.
type Filter struct {
	Statuses []string
	Equal    map[string]any // column = value; columns must be in the schema
	Limit    int
	Offset   int // honoured only with Limit
}

/*──────────────────────────── store ────────────────────────────────────────*/

// Store is safe for concurrent use.
type Store[T any, PT Entity[T]] struct {
	db     *sqlx.DB
	schema Schema[T]
	hooks  []Hook
	now    func() time.Time

	selectCols string
	insertSQL  string
}

var baseCols = []string{"id", "order_index", "created_at", "updated_at"}

// NewStore validates the schema and prepares the fixed statements.
func NewStore[T any, PT Entity[T]](db *sqlx.DB, s Schema[T]) *Store[T, PT] {
	if s.Resource == "" || s.Table == "" || len(s.Columns) == 0 {
		panic("ordered: schema needs Resource, Table, and Columns")
	}
	if s.StatusColumn != "" && !slices.Contains(s.Columns, s.StatusColumn) {
		panic("ordered: status column " + s.StatusColumn + " not in Columns")
	}

	named := make([]string, 0, len(s.Columns)+3)
	for _, c := range append(slices.Clone(s.Columns), "order_index", "created_at", "updated_at") {
		named = append(named, ":"+c)
	}
	insertCols := append(slices.Clone(s.Columns), "order_index", "created_at", "updated_at")

	return &Store[T, PT]{
		db:         db,
		schema:     s,
		now:        time.Now,
		selectCols: strings.Join(append(slices.Clone(baseCols), s.Columns...), ", "),
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			s.Table, strings.Join(insertCols, ", "), strings.Join(named, ", ")),
	}
}

// OnCommit appends a post-commit hook.  Register hooks during startup.
func (s *Store[T, PT]) OnCommit(h Hook) { s.hooks = append(s.hooks, h) }

// SetClock replaces the time source.  Tests only.
func (s *Store[T, PT]) SetClock(now func() time.Time) { s.now = now }

// Resource returns the schema's resource name.
func (s *Store[T, PT]) Resource() string { return s.schema.Resource }

// DB exposes the pool for resource-specific queries.
func (s *Store[T, PT]) DB() *sqlx.DB { return s.db }

// PublicFilter returns the frontend visibility filter.
func (s *Store[T, PT]) PublicFilter() Filter {
	if s.schema.StatusColumn == "" {
		return Filter{}
	}
	return Filter{Statuses: s.schema.Public}
}

// Visible reports whether rec passes the frontend filter.
func (s *Store[T, PT]) Visible(rec *T) bool {
	if s.schema.StatusColumn == "" {
		return true
	}
	st, ok := s.statusOf(rec)
	return ok && slices.Contains(s.schema.Public, st)
}

/*──────────────────────────── reads ────────────────────────────────────────*/

// List returns rows matching f in display order.
func (s *Store[T, PT]) List(ctx context.Context, f Filter) ([]*T, error) {
	where, args, err := s.where(f)
	if err != nil {
		return nil, s.storageErr("list", err)
	}
	q := "SELECT " + s.selectCols + " FROM " + s.schema.Table + where +
		" ORDER BY order_index ASC, created_at DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			q += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	out := []*T{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, s.storageErr("list", err)
	}
	if err := s.enrich(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of rows matching f, ignoring Limit and Offset.
func (s *Store[T, PT]) Count(ctx context.Context, f Filter) (int, error) {
	where, args, err := s.where(f)
	if err != nil {
		return 0, s.storageErr("count", err)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind("SELECT COUNT(*) FROM "+s.schema.Table+where), args...); err != nil {
		return 0, s.storageErr("count", err)
	}
	return n, nil
}

// where builds the WHERE clause for f with `?` placeholders.
func (s *Store[T, PT]) where(f Filter) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	if len(f.Statuses) > 0 && s.schema.StatusColumn != "" {
		in, inArgs, err := sqlx.In(s.schema.StatusColumn+" IN (?)", f.Statuses)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, in)
		args = append(args, inArgs...)
	}
	cols := make([]string, 0, len(f.Equal))
	for c := range f.Equal {
		cols = append(cols, c)
	}
	slices.Sort(cols)
	for _, c := range cols {
		if !slices.Contains(s.schema.Columns, c) {
			return "", nil, fmt.Errorf("%w %q", errUnknownColumn, c)
		}
		conds = append(conds, c+" = ?")
		args = append(args, f.Equal[c])
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// Get returns one row or an error wrapping ErrNotFound.
func (s *Store[T, PT]) Get(ctx context.Context, id int64) (*T, error) {
	rec, err := s.get(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, []*T{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store[T, PT]) get(ctx context.Context, q sqlx.QueryerContext, id int64) (*T, error) {
	rec := new(T)
	err := sqlx.GetContext(ctx, q, rec,
		s.db.Rebind("SELECT "+s.selectCols+" FROM "+s.schema.Table+" WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(s.schema.Resource, id)
	}
	if err != nil {
		return nil, s.storageErr("get", err)
	}
	return rec, nil
}

func (s *Store[T, PT]) enrich(ctx context.Context, recs []*T) error {
	if s.schema.Enrich == nil || len(recs) == 0 {
		return nil
	}
	if err := s.schema.Enrich(ctx, s.db, recs); err != nil {
		return s.storageErr("enrich", err)
	}
	return nil
}

// enrichCommitted fills computed fields on a row that is already
// committed.  A failure only costs the computed fields.
func (s *Store[T, PT]) enrichCommitted(ctx context.Context, rec *T) {
	if err := s.enrich(ctx, []*T{rec}); err != nil {
		zap.S().Warnw("enrich after commit", "resource", s.schema.Resource, "err", err)
	}
}

/*──────────────────────────── mutations ────────────────────────────────────*/

// Create normalizes and validates rec, appends it to the end of the order,
// and returns it with id and timestamps filled.
func (s *Store[T, PT]) Create(ctx context.Context, rec *T) (*T, error) {
	p := PT(rec)
	p.Normalize()
	if err := Validate(rec); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, s.storageErr("create", err)
	}
	defer tx.Rollback()

	var maxIdx sql.NullInt64
	if err := tx.GetContext(ctx, &maxIdx, "SELECT MAX(order_index) FROM "+s.schema.Table); err != nil {
		return nil, s.storageErr("create", err)
	}

	base := p.Base()
	now := s.now().UTC()
	base.ID = 0
	base.OrderIndex = int(maxIdx.Int64) + 1
	base.CreatedAt = now
	base.UpdatedAt = now

	res, err := tx.NamedExecContext(ctx, s.insertSQL, rec)
	if err != nil {
		return nil, s.writeErr("create", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, s.storageErr("create", err)
	}
	base.ID = id

	if s.schema.AfterCreate != nil {
		if err := s.schema.AfterCreate(ctx, tx, rec); err != nil {
			return nil, s.hookErr("create", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, s.storageErr("create", err)
	}
	s.fire(ctx, Event{Op: OpCreate, ID: id, Record: rec})
	s.enrichCommitted(ctx, rec)
	return rec, nil
}

// Update applies the columns patch touches and re-stamps updated_at.  A
// patch touching nothing is rejected before any statement runs.  Only the
// touched columns are validated against the stored row.
func (s *Store[T, PT]) Update(ctx context.Context, id int64, patch Patch) (*T, error) {
	set := &Set{}
	patch.Collect(set)
	if err := set.Err(); err != nil {
		return nil, err
	}
	if set.Empty() {
		return nil, Invalid("", "no recognized fields to update")
	}
	for _, c := range set.cols {
		if !slices.Contains(s.schema.Columns, c) {
			return nil, s.storageErr("update", fmt.Errorf("%w %q", errUnknownColumn, c))
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, s.storageErr("update", err)
	}
	defer tx.Rollback()

	before, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	assigns := make([]string, 0, len(set.cols)+1)
	args := make([]any, 0, len(set.vals)+2)
	for i, c := range set.cols {
		assigns = append(assigns, c+" = ?")
		args = append(args, set.vals[i])
	}
	assigns = append(assigns, "updated_at = ?")
	args = append(args, s.now().UTC(), id)

	q := "UPDATE " + s.schema.Table + " SET " + strings.Join(assigns, ", ") + " WHERE id = ?"
	if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
		return nil, s.writeErr("update", err)
	}

	after, err := s.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateColumns(after, set.cols); err != nil {
		return nil, err
	}
	if s.schema.AfterUpdate != nil {
		if err := s.schema.AfterUpdate(ctx, tx, before, after); err != nil {
			return nil, s.hookErr("update", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, s.storageErr("update", err)
	}
	s.fire(ctx, Event{Op: OpUpdate, ID: id, Record: after})
	s.enrichCommitted(ctx, after)
	return after, nil
}

// Delete removes the row and its child rows.  A second call for the same id
// returns ErrNotFound.
func (s *Store[T, PT]) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.storageErr("delete", err)
	}
	defer tx.Rollback()

	before, err := s.get(ctx, tx, id)
	if err != nil {
		return err
	}
	if s.schema.BeforeDelete != nil {
		if err := s.schema.BeforeDelete(ctx, tx, before); err != nil {
			return s.hookErr("delete", err)
		}
	}
	for _, ch := range s.schema.Children {
		q := "DELETE FROM " + ch.Table + " WHERE " + ch.ForeignKey + " = ?"
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), id); err != nil {
			return s.storageErr("delete", err)
		}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+s.schema.Table+" WHERE id = ?"), id); err != nil {
		return s.storageErr("delete", err)
	}

	if err := tx.Commit(); err != nil {
		return s.storageErr("delete", err)
	}
	s.fire(ctx, Event{Op: OpDelete, ID: id, Record: before})
	return nil
}

// Reorder gives ids[i] order_index i+1.  Unknown ids are skipped and
// unlisted rows keep their index.
func (s *Store[T, PT]) Reorder(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return Invalid("ids", "must list at least one id")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.storageErr("reorder", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		tx.Rebind("UPDATE "+s.schema.Table+" SET order_index = ?, updated_at = ? WHERE id = ?"))
	if err != nil {
		return s.storageErr("reorder", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i+1, now, id); err != nil {
			return s.storageErr("reorder", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return s.storageErr("reorder", err)
	}
	s.fire(ctx, Event{Op: OpReorder, IDs: slices.Clone(ids)})
	return nil
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func (s *Store[T, PT]) fire(ctx context.Context, ev Event) {
	ev.Resource = s.schema.Resource
	ev.Topics = s.schema.Topics
	for _, h := range s.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					zap.S().Errorw("post-commit hook panicked",
						"resource", ev.Resource, "op", ev.Op, "panic", r)
				}
			}()
			h(ctx, ev)
		}()
	}
}

func (s *Store[T, PT]) storageErr(op string, err error) error {
	return &StorageError{Resource: s.schema.Resource, Op: op, Err: err}
}

// writeErr maps constraint violations to ValidationError.
func (s *Store[T, PT]) writeErr(op string, err error) error {
	if database.IsUniqueViolation(err) {
		return Invalid("", "a record with the same value already exists")
	}
	return s.storageErr(op, err)
}

// hookErr passes typed errors from schema hooks through unchanged.
func (s *Store[T, PT]) hookErr(op string, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) || errors.Is(err, ErrNotFound) {
		return err
	}
	return s.writeErr(op, err)
}

// statusOf reads the status column through the db tag mapper.
func (s *Store[T, PT]) statusOf(rec *T) (string, bool) {
	fv := s.db.Mapper.FieldByName(reflectValue(rec), s.schema.StatusColumn)
	if !fv.IsValid() {
		return "", false
	}
	st, ok := fv.Interface().(string)
	return st, ok
}

func reflectValue(rec any) reflect.Value { return reflect.Indirect(reflect.ValueOf(rec)) }

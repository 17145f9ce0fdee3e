package ordered

import (
	"errors"
	"slices"
	"strings"
)

// Patch is a per-resource partial update.  Each resource declares a struct
// of pointer fields and maps the present ones to columns in Collect.
type Patch interface {
	Collect(*Set)
}

// Set accumulates the columns a Patch touches.  The first invalid field
// wins; later calls still record nothing once an error is set.
type Set struct {
	cols []string
	vals []any
	err  error
}

// Text sets col to the trimmed value when v is present.
func (s *Set) Text(col string, v *string) {
	if v != nil {
		s.add(col, strings.TrimSpace(*v))
	}
}

// RequiredText is Text that refuses a blank value.
func (s *Set) RequiredText(col string, v *string) {
	if v == nil {
		return
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		s.Fail(col, "must not be empty")
		return
	}
	s.add(col, t)
}

// OneOf is Text restricted to a fixed vocabulary.
func (s *Set) OneOf(col string, v *string, allowed ...string) {
	if v == nil {
		return
	}
	t := strings.TrimSpace(*v)
	if !slices.Contains(allowed, t) {
		s.Fail(col, "must be one of "+strings.Join(allowed, ", "))
		return
	}
	s.add(col, t)
}

// Fail records a validation failure for col.
func (s *Set) Fail(col, msg string) {
	if s.err == nil {
		s.err = &ValidationError{Field: col, Message: msg}
	}
}

// Value sets col to *v when v is present.
func Value[V any](s *Set, col string, v *V) {
	if v != nil {
		s.add(col, *v)
	}
}

// Columns returns the touched columns in Collect order.
func (s *Set) Columns() []string { return s.cols }

// Err returns the first validation failure, if any.
func (s *Set) Err() error { return s.err }

// Empty reports whether no column was touched.
func (s *Set) Empty() bool { return len(s.cols) == 0 }

func (s *Set) add(col string, v any) {
	if s.err != nil {
		return
	}
	if i := slices.Index(s.cols, col); i >= 0 {
		s.vals[i] = v
		return
	}
	s.cols = append(s.cols, col)
	s.vals = append(s.vals, v)
}

// errUnknownColumn guards against a Patch naming a column its Schema does
// not declare.
var errUnknownColumn = errors.New("patch touches undeclared column")

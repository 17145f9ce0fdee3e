// internal/ordered/record.go
//
// Shared row shape for every manually ordered resource.
//
// Context
// -------
// Every resource struct embeds Record, which carries the four columns the
// generic Store owns: id, order_index, created_at, and updated_at.  The
// resource's own columns sit next to it and are listed in its Schema.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
package ordered

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is embedded by value in every resource struct.
type Record struct {
	ID         int64     `db:"id"          json:"id"`
	OrderIndex int       `db:"order_index" json:"order_index"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}

// Base exposes the embedded Record through the Entity constraint.
func (r *Record) Base() *Record { return r }

// Entity is satisfied by *T when T embeds Record and defines Normalize.
// Normalize trims input and fills resource defaults before validation.
type Entity[T any] interface {
	*T
	Base() *Record
	Normalize()
}

// JSONList stores a slice as a JSON array in a text column.  Rows written
// by older tools as comma-separated text still scan into JSONList[string].
type JSONList[E any] []E

// Value implements driver.Valuer.
func (l JSONList[E]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]E(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *JSONList[E]) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("ordered: cannot scan %T into JSONList", src)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		*l = nil
		return nil
	}
	var out []E
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		if ss, ok := any(l).(*JSONList[string]); ok && !strings.HasPrefix(raw, "[") {
			*ss = splitCSV(raw)
			return nil
		}
		return fmt.Errorf("ordered: decode JSON list: %w", err)
	}
	*l = out
	return nil
}

// MarshalJSON renders a nil list as [] so clients never see null.
func (l JSONList[E]) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]E(l))
}

// UnmarshalJSON accepts an array, null, or, for string lists, one
// comma-separated string ("Li, Wang").
func (l *JSONList[E]) UnmarshalJSON(b []byte) error {
	var out []E
	err := json.Unmarshal(b, &out)
	if err == nil {
		*l = out
		return nil
	}
	if ss, ok := any(l).(*JSONList[string]); ok {
		var s string
		if json.Unmarshal(b, &s) == nil {
			*ss = splitCSV(s)
			return nil
		}
	}
	return err
}

// Trimmed drops blank entries from a string list.
func Trimmed(in []string) JSONList[string] {
	out := make(JSONList[string], 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitCSV(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '，' })
	return Trimmed(parts)
}

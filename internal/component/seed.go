package component

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Seed inserts rows into table when it is empty.  cols excludes the
// timestamps, which are stamped here; order_index, when wanted, is listed
// in cols like any other column.
func Seed(ctx context.Context, db *sqlx.DB, table string, cols []string, rows [][]any) error {
	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
		return fmt.Errorf("seed %s: %w", table, err)
	}
	if n > 0 || len(rows) == 0 {
		return nil
	}

	all := append(append([]string{}, cols...), "created_at", "updated_at")
	q := db.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(all, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(all)), ", ")))

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, row := range rows {
		args := append(append([]any{}, row...), now, now)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("seed %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	zap.S().Infow("seeded defaults", "table", table, "rows", len(rows))
	return nil
}

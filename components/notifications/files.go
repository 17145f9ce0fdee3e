package notifications

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

const filesDDL = `CREATE TABLE IF NOT EXISTS uploaded_files (
	id                {{pk}},
	notification_id   BIGINT       NOT NULL,
	original_filename VARCHAR(255) NOT NULL,
	stored_filename   VARCHAR(255) NOT NULL,
	file_path         VARCHAR(512) NOT NULL,
	file_size         BIGINT       NOT NULL DEFAULT 0,
	created_at        DATETIME     NOT NULL
)`

// File is one uploaded source document.
type File struct {
	ID             int64     `db:"id"                json:"id"`
	NotificationID int64     `db:"notification_id"   json:"notification_id"`
	OriginalName   string    `db:"original_filename" json:"original_filename"`
	StoredName     string    `db:"stored_filename"   json:"stored_filename"`
	Path           string    `db:"file_path"         json:"file_path"`
	Size           int64     `db:"file_size"         json:"file_size"`
	CreatedAt      time.Time `db:"created_at"        json:"created_at"`
}

func recordUpload(ctx context.Context, tx *sqlx.Tx, n *Notification) error {
	if n.stored == nil {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO uploaded_files
		       (notification_id, original_filename, stored_filename, file_path, file_size, created_at)
		VALUES (:notification_id, :original_filename, :stored_filename, :file_path, :file_size, :created_at)`,
		&File{
			NotificationID: n.ID,
			OriginalName:   n.stored.OriginalName,
			StoredName:     n.stored.Filename,
			Path:           n.stored.URL,
			Size:           n.stored.Size,
			CreatedAt:      n.CreatedAt,
		})
	return err
}

func filesFor(ctx context.Context, db *sqlx.DB, id int64) ([]File, error) {
	out := []File{}
	err := db.SelectContext(ctx, &out, db.Rebind(`
		SELECT id, notification_id, original_filename, stored_filename, file_path, file_size, created_at
		FROM   uploaded_files
		WHERE  notification_id = ?
		ORDER  BY id`), id)
	return out, err
}

// internal/upload/upload.go
//
// Local-disk file storage for images and Markdown documents.
//
// Context
// -------
// Components that accept images (carousel slides, project cards, patents,
// notification bodies) call Save with a category tag.  The file lands in
// `<dir>/<category>/<prefix><uuid><ext>` and the returned URL is the path
// under which the static handler serves it.  Names are never derived from
// the client's file name beyond its extension.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Extension sets accepted by Save.
var (
	ImageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
	DocExts   = []string{".md", ".markdown"}
)

// ErrBadType is returned for extensions outside the allowed set.
var ErrBadType = errors.New("unsupported file type")

// ErrTooLarge is returned when a file exceeds the configured limit.
var ErrTooLarge = errors.New("file too large")

// Stored describes a saved file.
type Stored struct {
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_filename"`
	Size         int64  `json:"file_size"`
	Path         string `json:"-"`
}

// Store writes uploads beneath Dir and serves them under BaseURL.
type Store struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

// New returns a Store, creating dir if needed.
func New(dir, baseURL string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{Dir: dir, BaseURL: strings.TrimSuffix(baseURL, "/"), MaxBytes: maxBytes}, nil
}

// SaveImage stores an image under category.
func (s *Store) SaveImage(category string, fh *multipart.FileHeader) (*Stored, error) {
	return s.Save(category, "img_", fh, ImageExts)
}

// Save copies fh to disk when its extension is in allowed.
func (s *Store) Save(category, prefix string, fh *multipart.FileHeader, allowed []string) (*Stored, error) {
	if fh == nil || fh.Filename == "" {
		return nil, fmt.Errorf("%w: no file", ErrBadType)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !slices.Contains(allowed, ext) {
		return nil, fmt.Errorf("%w: %q", ErrBadType, ext)
	}
	if s.MaxBytes > 0 && fh.Size > s.MaxBytes {
		return nil, ErrTooLarge
	}

	category = cleanCategory(category)
	dir := filepath.Join(s.Dir, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	name := prefix + strings.ReplaceAll(uuid.New().String(), "-", "") + ext
	dst := filepath.Join(dir, name)

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return nil, err
	}

	zap.S().Debugw("upload stored", "category", category, "file", name, "bytes", n)
	return &Stored{
		URL:          path.Join(s.BaseURL, category, name),
		Filename:     name,
		OriginalName: filepath.Base(fh.Filename),
		Size:         n,
		Path:         dst,
	}, nil
}

// Remove deletes a file previously returned by Save, addressed by its URL
// or by its path relative to Dir.  Missing files are not an error.
func (s *Store) Remove(ref string) error {
	rel := strings.TrimPrefix(ref, s.BaseURL)
	rel = filepath.Clean("/" + strings.TrimPrefix(rel, "/"))
	if rel == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, rel))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// cleanCategory keeps category tags to one safe path segment.
func cleanCategory(c string) string {
	c = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, c)
	if c == "" {
		return "misc"
	}
	return c
}

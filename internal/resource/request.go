package resource

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/upload"
)

// PathID parses the {id} URL parameter.  Routes constrain it to digits, so
// a parse failure yields 0, which never matches a row.
func PathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

// FormFile parses a multipart body capped at maxBytes and returns the
// first file found under any of names.
func FormFile(w http.ResponseWriter, r *http.Request, maxBytes int64, names ...string) (*multipart.FileHeader, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, upload.ErrTooLarge
		}
		return nil, ordered.Invalid("file", "expected a multipart form upload")
	}
	for _, n := range names {
		if fhs := r.MultipartForm.File[n]; len(fhs) > 0 {
			return fhs[0], nil
		}
	}
	return nil, ordered.Invalid("file", "no file uploaded")
}

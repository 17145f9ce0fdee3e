package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fileHeader builds a real *multipart.FileHeader by parsing a request.
func fileHeader(t *testing.T, name string, body []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(body)
	mw.Close()

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	return req.MultipartForm.File["file"][0]
}

func TestSaveImageAndRemove(t *testing.T) {
	s, err := New(t.TempDir(), "/static/uploads/", 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	st, err := s.SaveImage("Carousel", fileHeader(t, "../../slide.PNG", []byte("png-bytes")))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if !strings.HasPrefix(st.URL, "/static/uploads/carousel/img_") || !strings.HasSuffix(st.URL, ".png") {
		t.Fatalf("url = %q", st.URL)
	}
	if st.OriginalName != "slide.PNG" || st.Size != 9 {
		t.Fatalf("stored = %+v", st)
	}
	if filepath.Dir(st.Path) != filepath.Join(s.Dir, "carousel") {
		t.Fatalf("escaped category dir: %s", st.Path)
	}

	if err := s.Remove(st.URL); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(st.Path); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if err := s.Remove(st.URL); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestSave_RejectsTypeAndSize(t *testing.T) {
	s, _ := New(t.TempDir(), "/static/uploads", 4)

	if _, err := s.SaveImage("x", fileHeader(t, "evil.exe", []byte("x"))); !errors.Is(err, ErrBadType) {
		t.Fatalf("exe = %v", err)
	}
	if _, err := s.SaveImage("x", fileHeader(t, "big.jpg", []byte("12345"))); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("big = %v", err)
	}
	if _, err := s.Save("docs", "", fileHeader(t, "rules.md", []byte("# a")), DocExts); err != nil {
		t.Fatalf("md doc: %v", err)
	}
}

func TestRemove_StaysInsideDir(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(filepath.Dir(root), "keep.txt")
	os.WriteFile(outside, []byte("x"), 0o644)
	defer os.Remove(outside)

	s, _ := New(filepath.Join(root, "uploads"), "/static/uploads", 0)
	_ = s.Remove("/static/uploads/../../keep.txt")
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("Remove escaped upload dir: %v", err)
	}
}

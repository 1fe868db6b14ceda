package media

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

// 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return req.MultipartForm.File["image"][0]
}

func TestSave_WritesImageUnderRandomName(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStorage(dir, "http://localhost:5001/", 1<<20)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}

	url, err := st.Save(fileHeader(t, "avatar.txt", pngBytes))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:5001/uploads/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url %q", url)
	}

	written, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if !bytes.Equal(written, pngBytes) {
		t.Fatalf("written file differs from upload")
	}
}

func TestSave_RejectsNonImages(t *testing.T) {
	st, _ := NewStorage(t.TempDir(), "", 1<<20)

	if _, err := st.Save(fileHeader(t, "fake.png", []byte("plain text, not a picture"))); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
}

func TestSave_RejectsOversized(t *testing.T) {
	st, _ := NewStorage(t.TempDir(), "", 16)

	if _, err := st.Save(fileHeader(t, "big.png", pngBytes)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestRemove_DeletesSavedFile(t *testing.T) {
	dir := t.TempDir()
	st, _ := NewStorage(dir, "http://localhost:5001", 1<<20)

	url, err := st.Save(fileHeader(t, "a.png", pngBytes))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.Remove(url); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.Base(url))); !os.IsNotExist(err) {
		t.Fatalf("expected file to be gone, stat err=%v", err)
	}
	if err := st.Remove(url); err != nil {
		t.Fatalf("removing twice should be a no-op, got %v", err)
	}
}

func TestRemove_RejectsForeignURLs(t *testing.T) {
	st, _ := NewStorage(t.TempDir(), "", 1<<20)

	for _, u := range []string{"/etc/passwd", "/uploads/../config.yaml", "/uploads/nested/a.png", "/uploads/..", "https://cdn.example.com/uploads/a.png"} {
		if err := st.Remove(u); !errors.Is(err, ErrForeignURL) {
			t.Fatalf("%s: expected ErrForeignURL, got %v", u, err)
		}
	}
}

func TestSaveAll_CleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	st, _ := NewStorage(dir, "", 1<<20)

	files := []*multipart.FileHeader{
		fileHeader(t, "ok.png", pngBytes),
		fileHeader(t, "bad.png", []byte("not an image")),
	}
	urls, err := st.SaveAll(files)
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("expected no urls, got %v", urls)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty upload dir, found %d files", len(entries))
	}
}

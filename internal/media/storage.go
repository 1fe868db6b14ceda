// Package media stores uploaded images on local disk and serves them under /uploads.
package media

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// URLPrefix is the path uploaded files are served under.
const URLPrefix = "/uploads"

var (
	// ErrNotImage is returned when the uploaded content is not an image.
	ErrNotImage = errors.New("file is not an image")
	// ErrTooLarge is returned when the upload exceeds the configured limit.
	ErrTooLarge = errors.New("file is too large")
	// ErrForeignURL is returned when removing a URL this storage did not hand out.
	ErrForeignURL = errors.New("url is not an upload")
)

// Storage writes uploads into a directory.
type Storage struct {
	dir      string
	baseURL  string
	maxBytes int64
}

// NewStorage creates the upload directory if needed. baseURL is prepended to
// returned paths; leave it empty to return site-relative URLs.
func NewStorage(dir, baseURL string, maxBytes int64) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{
		dir:      dir,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// Dir is the directory files are written to.
func (s *Storage) Dir() string {
	return s.dir
}

// Save sniffs the upload, rejects anything that is not an image and writes it
// under a random name. It returns the public URL.
func (s *Storage) Save(fh *multipart.FileHeader) (string, error) {
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes (limit is %d)", ErrTooLarge, fh.Size, s.maxBytes)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	sniff := make([]byte, 512)
	n, err := io.ReadFull(src, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	mt := mimetype.Detect(sniff[:n])
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mt.String())
	}

	// Copy needs to start from the first byte again.
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	name := uuid.NewString() + mt.Extension()
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}

	return s.baseURL + URLPrefix + "/" + name, nil
}

// SaveAll stores every upload. On the first failure the files already
// written are removed and nothing is returned.
func (s *Storage) SaveAll(files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		u, err := s.Save(fh)
		if err != nil {
			return nil, errors.Join(err, s.RemoveAll(urls))
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// Remove deletes a file returned by Save. A file that is already gone is not an error.
func (s *Storage) Remove(url string) error {
	prefix := s.baseURL + URLPrefix + "/"
	name := path.Base(url)
	if !strings.HasPrefix(url, prefix) || name != strings.TrimPrefix(url, prefix) || name == ".." || name == "." {
		return fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// RemoveAll deletes every listed upload and reports all failures.
func (s *Storage) RemoveAll(urls []string) error {
	var errs []error
	for _, u := range urls {
		if err := s.Remove(u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

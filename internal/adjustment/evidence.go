package adjustment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Evidence errors.
var (
	ErrEvidenceNotImage = errors.New("adjustment: evidence must be an image")
	ErrEvidenceTooLarge = errors.New("adjustment: evidence file too large")
)

// EvidenceRef points at a stored evidence photo. The zero value means
// no evidence attached.
type EvidenceRef struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	PreviewURL  string `json:"preview_url"`
}

// IsZero reports whether the ref holds no evidence.
func (r EvidenceRef) IsZero() bool {
	return r.Name == ""
}

// EvidenceStore keeps evidence photos on local disk under uuid names.
// Files live exactly as long as the request that owns them: removed on
// cancel, on operator clearing, and on rejection.
type EvidenceStore struct {
	dir     string
	maxSize int64
}

// NewEvidenceStore ensures dir exists and returns the store.
func NewEvidenceStore(dir string, maxSize int64) (*EvidenceStore, error) {
	if dir == "" {
		return nil, errors.New("adjustment: evidence dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("adjustment: create evidence dir: %w", err)
	}
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &EvidenceStore{dir: dir, maxSize: maxSize}, nil
}

// Save persists the uploaded photo. The content type is sniffed from
// the first bytes, not trusted from the request.
func (s *EvidenceStore) Save(r io.Reader, originalName string) (EvidenceRef, error) {
	if s == nil {
		return EvidenceRef{}, errors.New("adjustment: evidence store not initialised")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return EvidenceRef{}, err
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return EvidenceRef{}, ErrEvidenceNotImage
	}

	name := uuid.NewString() + extensionFor(contentType, originalName)
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return EvidenceRef{}, err
	}

	limit := io.LimitReader(r, s.maxSize+1-int64(len(head)))
	written, err := io.Copy(f, io.MultiReader(bytes.NewReader(head), limit))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return EvidenceRef{}, err
	}
	if s.maxSize > 0 && written > s.maxSize {
		_ = os.Remove(path)
		return EvidenceRef{}, ErrEvidenceTooLarge
	}

	return EvidenceRef{
		Name:        name,
		ContentType: contentType,
		Size:        written,
		PreviewURL:  "/adjustments/evidence/" + name,
	}, nil
}

// Open returns the stored file for serving previews.
func (s *EvidenceStore) Open(name string) (*os.File, error) {
	if s == nil {
		return nil, errors.New("adjustment: evidence store not initialised")
	}
	clean := filepath.Base(name)
	if clean != name || name == "" {
		return nil, fs.ErrNotExist
	}
	return os.Open(filepath.Join(s.dir, clean))
}

// Remove deletes a stored photo. Removing a missing or already removed
// file is a no-op.
func (s *EvidenceStore) Remove(name string) error {
	if s == nil || name == "" {
		return nil
	}
	clean := filepath.Base(name)
	if clean != name {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, clean))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// PurgeOlderThan removes evidence files past the retention window that
// no longer back a stored request. keep holds the names still in use.
func (s *EvidenceStore) PurgeOlderThan(age time.Duration, keep map[string]bool) (int, error) {
	if s == nil {
		return 0, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-age)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || keep[entry.Name()] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func extensionFor(contentType, originalName string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	if ext := filepath.Ext(originalName); ext != "" {
		return ext
	}
	return ".bin"
}

package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
)

// Storage areas under the upload root.
const (
	AreaGeneral   = "general"
	AreaRent      = "rent"
	AreaContracts = "contracts"
	AreaRegistry  = "registry"
)

const maxSafeNameLen = 120

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

var randomRead = rand.Read

// LocalStore is a write-once blob store on the local filesystem.
type LocalStore struct {
	root string
	now  func() time.Time
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root, now: time.Now}
}

// Save writes r under area with a freshly generated key. Reading more than
// maxBytes aborts the write with ErrPayloadTooLarge.
func (s *LocalStore) Save(area, originalName string, r io.Reader, maxBytes int64) (*entities.StoredFile, error) {
	dir := filepath.Join(s.root, area)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	key, err := s.newKey(area, originalName)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, key)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", key, err)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return nil, fmt.Errorf("write %s: %w", key, copyErr)
	case closeErr != nil:
		_ = os.Remove(path)
		return nil, fmt.Errorf("close %s: %w", key, closeErr)
	case maxBytes > 0 && n > maxBytes:
		_ = os.Remove(path)
		return nil, domainerrors.ErrPayloadTooLarge
	}

	return &entities.StoredFile{SavedName: key, Path: path, Size: n}, nil
}

// Open returns a reader for a stored key. Keys never contain path separators.
func (s *LocalStore) Open(area, savedName string) (*os.File, error) {
	path, err := s.Path(area, savedName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Path resolves a stored key to its location on disk.
func (s *LocalStore) Path(area, savedName string) (string, error) {
	if savedName == "" || savedName != filepath.Base(savedName) || strings.HasPrefix(savedName, ".") {
		return "", domainerrors.ErrBadRequest
	}
	return filepath.Join(s.root, area, savedName), nil
}

func (s *LocalStore) Remove(area, savedName string) error {
	path, err := s.Path(area, savedName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// newKey builds <area>_<unix ms>_<16 hex>_<sanitized name>.
func (s *LocalStore) newKey(area, originalName string) (string, error) {
	buf := make([]byte, 8)
	if _, err := randomRead(buf); err != nil {
		return "", fmt.Errorf("generate storage key: %w", err)
	}
	return fmt.Sprintf("%s_%d_%s_%s", area, s.now().UnixMilli(), hex.EncodeToString(buf), SafeName(originalName)), nil
}

// SafeName keeps only [a-zA-Z0-9._-] from the base name and bounds its length.
func SafeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	safe := unsafeChars.ReplaceAllString(base, "_")
	safe = strings.TrimLeft(safe, ".")
	if safe == "" {
		safe = "file"
	}
	if len(safe) > maxSafeNameLen {
		safe = safe[len(safe)-maxSafeNameLen:]
	}
	return safe
}

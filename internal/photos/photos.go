// Package photos stores uploaded listing photos in a directory and turns
// stored photo references into displayable URLs.
package photos

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Placeholder is shown for listings without a usable photo.
const Placeholder = "https://via.placeholder.com/300x200?text=Sem+Foto"

// DefaultMaxBytes caps a single upload.
const DefaultMaxBytes int64 = 10 << 20

// ErrUnsupportedType is returned for uploads that are not JPEG or PNG.
var ErrUnsupportedType = errors.New("photos: only JPEG and PNG images are accepted")

// ErrTooLarge is returned for uploads above the size limit.
var ErrTooLarge = errors.New("photos: image exceeds the size limit")

// extensions maps accepted content types to the extension written to disk.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Store writes uploads into Dir and serves them under URLPrefix.
type Store struct {
	dir       string
	urlPrefix string
	maxBytes  int64
}

// NewStore creates dir if needed. urlPrefix is the public path the
// directory is mounted at, e.g. "/uploads".
func NewStore(dir, urlPrefix string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("photos: creating %s: %w", dir, err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		maxBytes:  maxBytes,
	}, nil
}

// Dir returns the directory photos are written to.
func (s *Store) Dir() string { return s.dir }

// FileName is the deterministic name of the index-th photo of a listing.
func FileName(listingID int64, index int, ext string) string {
	return fmt.Sprintf("V%d_%d%s", listingID, index, ext)
}

// Upload is an accepted photo held in memory until it is written.
type Upload struct {
	data []byte
	ext  string
}

// Ext returns the extension the upload will be written with.
func (u Upload) Ext() string { return u.ext }

// Check reads and sniffs an upload without touching the directory. It
// rejects anything but JPEG/PNG and anything above the size limit.
func (s *Store) Check(r io.Reader) (Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Upload{}, fmt.Errorf("photos: reading upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return Upload{}, ErrTooLarge
	}

	ext, err := Detect(data)
	if err != nil {
		return Upload{}, err
	}
	return Upload{data: data, ext: ext}, nil
}

// Write stores a checked upload as V{id}_{index}.{ext} and returns the
// stored reference (the file path).
func (s *Store) Write(listingID int64, index int, up Upload) (string, error) {
	dst := filepath.Join(s.dir, FileName(listingID, index, up.ext))
	if err := os.WriteFile(dst, up.data, 0o644); err != nil {
		return "", fmt.Errorf("photos: writing %s: %w", dst, err)
	}
	return dst, nil
}

// Save is Check followed by Write.
func (s *Store) Save(listingID int64, index int, r io.Reader) (string, error) {
	up, err := s.Check(r)
	if err != nil {
		return "", err
	}
	return s.Write(listingID, index, up)
}

// Remove deletes a stored photo. Remote references and files that are
// already gone are ignored.
func (s *Store) Remove(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" || IsRemote(ref) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(ref)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("photos: removing %s: %w", ref, err)
	}
	return nil
}

// Detect returns the file extension for accepted image bytes.
func Detect(data []byte) (string, error) {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if ext, ok := extensions[m.String()]; ok {
			return ext, nil
		}
	}
	return "", ErrUnsupportedType
}

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// DisplayURL picks what to show for a listing: the first reference when it
// is a URL or a file that still exists in the store, else the placeholder.
func (s *Store) DisplayURL(refs []string) string {
	if len(refs) == 0 {
		return Placeholder
	}
	ref := strings.TrimSpace(refs[0])
	switch {
	case IsRemote(ref):
		return ref
	case ref == "":
		return Placeholder
	}

	name := filepath.Base(ref)
	if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
		return Placeholder
	}
	return path.Join(s.urlPrefix, name)
}

// DisplayURLs maps every reference the same way DisplayURL maps the first,
// dropping the ones that no longer resolve.
func (s *Store) DisplayURLs(refs []string) []string {
	out := make([]string, 0, len(refs))
	for i := range refs {
		if u := s.DisplayURL(refs[i:]); u != Placeholder {
			out = append(out, u)
		}
	}
	return out
}

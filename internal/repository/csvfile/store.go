package csvfile

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/sakif/veiculos/internal/repository"
)

// compile-time checks that *Store implements both repositories
var (
	_ repository.UserRepository    = (*Store)(nil)
	_ repository.ListingRepository = (*Store)(nil)
)

// DefaultCacheTTL is the read cache window used when none is configured.
const DefaultCacheTTL = 60 * time.Second

// Config locates the two files and sets the read cache window.
type Config struct {
	UsersPath    string
	ListingsPath string
	CacheTTL     time.Duration
}

// Store serves the credential store and the listing store from CSV files.
//
// Each file has two locks. mu covers file I/O and the cached snapshot.
// writeMu is held for a whole read-modify-write cycle, so two writers never
// both save from the same snapshot and drop each other's rows.
type Store struct {
	users    cachedFile
	listings cachedFile
	logger   *slog.Logger
	now      func() time.Time
}

// cachedFile is one CSV file plus the snapshot last read from or written to it.
type cachedFile struct {
	writeMu  sync.Mutex
	mu       sync.RWMutex
	path     string
	ttl      time.Duration
	snapshot *table
	loadedAt time.Time
}

// New creates a Store. The files do not need to exist yet; directories are
// created on first write.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.UsersPath == "" || cfg.ListingsPath == "" {
		return nil, errors.New("csvfile: users and listings paths are required")
	}
	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}

	return &Store{
		users:    cachedFile{path: cfg.UsersPath, ttl: cfg.CacheTTL},
		listings: cachedFile{path: cfg.ListingsPath, ttl: cfg.CacheTTL},
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Close is a no-op; it lets the server treat every backend the same way.
func (s *Store) Close() error {
	return nil
}

// Paths returns the files backing the store, for startup logging.
func (s *Store) Paths() (users, listings string) {
	return s.users.path, s.listings.path
}

// load returns the current snapshot of f, re-reading the file when the
// cache window has passed. A missing or empty file becomes an empty table
// with the given header. Unreadable files are logged and also read as empty;
// the returned error is non-nil only so writers can refuse to overwrite a
// file they could not read.
func (s *Store) load(f *cachedFile, header []string) (*table, error) {
	f.mu.RLock()
	if f.snapshot != nil && s.now().Sub(f.loadedAt) < f.ttl {
		t := f.snapshot
		f.mu.RUnlock()
		return t, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	t, err := readTable(f.path)
	switch {
	case err == nil:
	case errors.Is(err, errMissing):
		t = &table{header: append([]string(nil), header...)}
	default:
		s.logger.Warn("storage unavailable, serving empty table",
			slog.String("path", f.path),
			slog.String("error", err.Error()),
		)
		return &table{header: append([]string(nil), header...)}, fmt.Errorf("csvfile: %s: %w", filepath.Base(f.path), err)
	}

	f.snapshot = t
	f.loadedAt = s.now()
	return t, nil
}

// save writes t to f and makes it the cached snapshot.
func (s *Store) save(f *cachedFile, t *table) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := writeTable(f.path, t); err != nil {
		return err
	}
	f.snapshot = t
	f.loadedAt = s.now()
	return nil
}

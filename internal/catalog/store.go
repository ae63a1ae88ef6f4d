package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/tdeslauriers/cantor/internal/util"
)

// ErrSongNotFound is returned by Links for a key absent from the catalog.
var ErrSongNotFound = errors.New("song not found in catalog")

// Store is the interface for the json-backed song catalog. It serializes
// its own read-modify-write sequence; cross-process writers are out of
// scope.
type Store interface {

	// SongNames returns the catalog's keys, sorted.
	SongNames() ([]string, error)

	// Links returns a song's public urls in performance order, or a
	// not-found error for an unknown key.
	Links(name string) ([]string, error)

	// Merge resolves a collision-free key for name against a fresh read of
	// the catalog, inserts the entry built by buildEntry under it, and
	// persists atomically. buildEntry runs inside the critical section so
	// the key it receives cannot be taken by a concurrent publish.
	Merge(name string, buildEntry func(finalKey string) (*Entry, error)) (string, error)
}

// NewStore creates a catalog store persisting to path, returning a pointer
// to the concrete implementation.
func NewStore(path string) Store {
	return &store{
		path: path,

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackageCatalog)).
			With(slog.String(util.ComponentKey, util.ComponentCatalogStore)),
	}
}

var _ Store = (*store)(nil)

// store is the concrete implementation of the Store interface.
type store struct {
	path string
	mu   sync.Mutex // serializes read-modify-write of the catalog file

	logger *slog.Logger
}

// SongNames is the concrete implementation of the interface method which
// returns the catalog's keys.
func (s *store) SongNames() ([]string, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.read()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(c.Songs))
	for name := range c.Songs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Links is the concrete implementation of the interface method which
// returns a song's public urls.
func (s *store) Links(name string) ([]string, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.read()
	if err != nil {
		return nil, err
	}

	entry, ok := c.Songs[name]
	if !ok {
		return nil, fmt.Errorf("'%s': %w", name, ErrSongNotFound)
	}

	return entry.Links, nil
}

// Merge is the concrete implementation of the interface method which
// inserts a new entry under a collision-free key and persists atomically.
func (s *store) Merge(name string, buildEntry func(finalKey string) (*Entry, error)) (string, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	// fresh read: key probing against a stale in-memory copy races with
	// concurrent publishes
	c, err := s.read()
	if err != nil {
		return "", fmt.Errorf("failed to read catalog before merge: %v", err)
	}

	// probe name, name-2, name-3, ... until free; existing entries are
	// never overwritten
	finalKey := name
	for counter := 2; ; counter++ {
		if _, taken := c.Songs[finalKey]; !taken {
			break
		}
		finalKey = fmt.Sprintf("%s-%d", name, counter)
	}

	entry, err := buildEntry(finalKey)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	entry.UploadDate = now
	c.Songs[finalKey] = *entry
	c.UpdateDate = now

	if err := s.persist(c); err != nil {
		return "", fmt.Errorf("failed to persist catalog with new key '%s': %v", finalKey, err)
	}

	s.logger.Info(fmt.Sprintf("catalog merged new entry '%s' with %d links", finalKey, len(entry.Links)))

	return finalKey, nil
}

// read loads the catalog file; a missing file yields an empty catalog.
// Callers must hold the mutex.
func (s *store) read() (*Catalog, error) {

	c := &Catalog{Songs: make(map[string]Entry)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read catalog file %s: %v", s.path, err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %v", s.path, err)
	}

	if c.Songs == nil {
		c.Songs = make(map[string]Entry)
	}

	return c, nil
}

// persist writes the whole catalog to a temp file and renames it into
// place, so a failed write can never leave the catalog truncated. Callers
// must hold the mutex.
func (s *store) persist(c *Catalog) error {

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %v", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".songs-*.json")
	if err != nil {
		return fmt.Errorf("failed to create catalog temp file: %v", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write catalog temp file: %v", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close catalog temp file: %v", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace catalog file: %v", err)
	}

	return nil
}

package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
)

func newTestStore(t *testing.T) (Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "songs.json")
	return NewStore(path), path
}

// insert merges an entry with canned links under name, failing the test on
// error, and returns the allocated key.
func insert(t *testing.T, s Store, name string, links ...string) string {
	t.Helper()

	key, err := s.Merge(name, func(finalKey string) (*Entry, error) {
		return &Entry{Links: links}, nil
	})
	if err != nil {
		t.Fatalf("failed to merge '%s': %v", name, err)
	}
	return key
}

func TestStoreEmptyCatalog(t *testing.T) {

	s, _ := newTestStore(t)

	names, err := s.SongNames()
	if err != nil {
		t.Fatalf("expected a missing catalog file to read as empty: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no songs, got %v", names)
	}

	if _, err := s.Links("anthem"); !errors.Is(err, ErrSongNotFound) {
		t.Errorf("expected ErrSongNotFound for an unknown song, got %v", err)
	}
}

func TestStoreMergeAndRead(t *testing.T) {

	s, path := newTestStore(t)

	key := insert(t, s, "anthem", "https://cdn/anthem-0.png", "https://cdn/anthem-1.png")
	if key != "anthem" {
		t.Fatalf("expected first insert to keep its name, got '%s'", key)
	}

	links, err := s.Links("anthem")
	if err != nil {
		t.Fatalf("failed to read links: %v", err)
	}
	if len(links) != 2 || links[0] != "https://cdn/anthem-0.png" || links[1] != "https://cdn/anthem-1.png" {
		t.Errorf("expected links preserved in order, got %v", links)
	}

	// the persisted file is well-formed json with the expected shape
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read persisted catalog: %v", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("persisted catalog does not parse: %v", err)
	}

	entry, ok := c.Songs["anthem"]
	if !ok {
		t.Fatal("expected persisted catalog to contain 'anthem'")
	}
	if entry.UploadDate == "" || c.UpdateDate == "" {
		t.Error("expected upload and update dates to be stamped")
	}
}

func TestStoreCollisionProbing(t *testing.T) {

	s, _ := newTestStore(t)

	expected := []string{"anthem", "anthem-2", "anthem-3"}
	for i, want := range expected {

		key := insert(t, s, "anthem", fmt.Sprintf("https://cdn/%d.png", i))
		if key != want {
			t.Fatalf("expected insert %d to allocate key '%s', got '%s'", i, want, key)
		}
	}

	// earlier entries survive later publishes of the same name
	for i, key := range expected {

		links, err := s.Links(key)
		if err != nil {
			t.Fatalf("failed to read links for '%s': %v", key, err)
		}
		if len(links) != 1 || links[0] != fmt.Sprintf("https://cdn/%d.png", i) {
			t.Errorf("expected '%s' to keep its own links, got %v", key, links)
		}
	}

	names, err := s.SongNames()
	if err != nil {
		t.Fatalf("failed to list song names: %v", err)
	}
	if len(names) != 3 {
		t.Errorf("expected 3 catalog keys, got %v", names)
	}
}

func TestStoreSongNamesSorted(t *testing.T) {

	s, _ := newTestStore(t)

	for _, name := range []string{"zeal", "anthem", "march"} {
		insert(t, s, name, "https://cdn/"+name+".png")
	}

	names, err := s.SongNames()
	if err != nil {
		t.Fatalf("failed to list song names: %v", err)
	}

	want := []string{"anthem", "march", "zeal"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected sorted names %v, got %v", want, names)
		}
	}
}

func TestStoreMergeBuildFailureLeavesCatalogUntouched(t *testing.T) {

	s, _ := newTestStore(t)

	insert(t, s, "anthem", "https://cdn/anthem.png")

	if _, err := s.Merge("anthem", func(finalKey string) (*Entry, error) {

		if finalKey != "anthem-2" {
			t.Errorf("expected the probed key 'anthem-2', got '%s'", finalKey)
		}
		return nil, errors.New("upload failed")
	}); err == nil {
		t.Fatal("expected a failing buildEntry to fail the merge")
	}

	names, err := s.SongNames()
	if err != nil {
		t.Fatalf("failed to list song names: %v", err)
	}
	if len(names) != 1 || names[0] != "anthem" {
		t.Errorf("expected the catalog unchanged after a failed merge, got %v", names)
	}
}

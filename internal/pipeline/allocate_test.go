package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNextIndex(t *testing.T) {

	dir := t.TempDir()

	for _, name := range []string{"slide-0.png", "slide-1.png", "slide-5.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write fixture %s: %v", name, err)
		}
	}

	if got := NextIndex(dir); got != 6 {
		t.Errorf("expected next index 6, got %d", got)
	}
}

func TestNextIndexEmptyDir(t *testing.T) {

	if got := NextIndex(t.TempDir()); got != 0 {
		t.Errorf("expected next index 0 for empty dir, got %d", got)
	}
}

func TestNextIndexMissingDir(t *testing.T) {

	if got := NextIndex(filepath.Join(t.TempDir(), "does-not-exist")); got != 0 {
		t.Errorf("expected next index 0 for missing dir, got %d", got)
	}
}

func TestNextIndexIgnoresStrays(t *testing.T) {

	dir := t.TempDir()

	// strays from partial prior runs must not be fatal or counted
	for _, name := range []string{"slide-.png", "slide-x.png", "slide-3.jpeg", "slide-2.png.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write fixture %s: %v", name, err)
		}
	}

	if got := NextIndex(dir); got != 0 {
		t.Errorf("expected next index 0 with only strays, got %d", got)
	}
}

func TestDirLocksSerializeByName(t *testing.T) {

	locks := NewDirLocks()

	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			locks.Lock("anthem")
			defer locks.Unlock("anthem")

			counter++
		}()
	}

	wg.Wait()

	if counter != 50 {
		t.Errorf("expected 50 serialized increments, got %d", counter)
	}
}

package pipeline

import (
	"os"
	"regexp"
	"strconv"
	"sync"
)

// slideNumber matches the staged slide naming convention and captures the
// sequential index.
var slideNumber = regexp.MustCompile(`^slide-(\d+)\.png$`)

// NextIndex inspects a song directory and returns the next contiguous slide
// index: one greater than the highest existing slide-N.png, or 0 for an
// empty or nonexistent directory. Files outside the naming convention are
// ignored; directories may contain strays from partial prior runs.
func NextIndex(songDir string) int {

	entries, err := os.ReadDir(songDir)
	if err != nil {
		return 0
	}

	next := 0
	for _, entry := range entries {

		m := slideNumber.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}

		if n, err := strconv.Atoi(m[1]); err == nil && n+1 > next {
			next = n + 1
		}
	}

	return next
}

// DirLocks serializes mutation of song directories by name. Index
// allocation is a read-then-write over shared directory state, so two
// documents resolving to the same song must hold the lock for the full
// read-allocate-copy sequence or they will allocate the same indices and
// overwrite each other's slides.
type DirLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDirLocks creates an empty keyed lock set.
func NewDirLocks() *DirLocks {
	return &DirLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for the named song directory, creating it on
// first use.
func (d *DirLocks) Lock(name string) {
	d.get(name).Lock()
}

// Unlock releases the mutex for the named song directory.
func (d *DirLocks) Unlock(name string) {
	d.get(name).Unlock()
}

func (d *DirLocks) get(name string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.locks[name]
	if !ok {
		l = &sync.Mutex{}
		d.locks[name] = l
	}
	return l
}

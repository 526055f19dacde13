package cache

import (
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

type TableLock interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

type FakeLock struct{}

func (f FakeLock) Lock()    {}
func (f FakeLock) Unlock()  {}
func (f FakeLock) RLock()   {}
func (f FakeLock) RUnlock() {}

// Table is an append-only memo table. Entries are never overwritten or
// evicted; a table lives exactly as long as the solver that owns it.
//
// In multi-threaded mode, misses go through a singleflight group so that
// each key is computed at most once even when several goroutines ask for it
// at the same time. The compute function may itself consult the table for
// other keys, as long as the dependency graph between keys is acyclic.
type Table[K comparable, V any] struct {
	TableLock
	entries map[K]V
	group   *singleflight.Group

	created atomic.Uint64
	lookups atomic.Uint64
	hits    atomic.Uint64
}

// TableStats is a point-in-time copy of a table's counters.
type TableStats struct {
	Entries int    `json:"entries" yaml:"entries"`
	Created uint64 `json:"created" yaml:"created"`
	Lookups uint64 `json:"lookups" yaml:"lookups"`
	Hits    uint64 `json:"hits" yaml:"hits"`
}

func NewTable[K comparable, V any]() *Table[K, V] {
	t := &Table[K, V]{entries: make(map[K]V)}
	t.SetSingleThreadedMode()
	return t
}

func (t *Table[K, V]) SetSingleThreadedMode() {
	t.TableLock = &FakeLock{}
	t.group = nil
}

func (t *Table[K, V]) SetMultiThreadedMode() {
	t.TableLock = new(sync.RWMutex)
	t.group = &singleflight.Group{}
}

func (t *Table[K, V]) MultiThreaded() bool {
	return t.group != nil
}

func (t *Table[K, V]) Get(k K) (V, bool) {
	t.RLock()
	defer t.RUnlock()
	t.lookups.Add(1)
	v, ok := t.entries[k]
	if ok {
		t.hits.Add(1)
	}
	return v, ok
}

// Put stores v under k unless k is already present. It returns the value
// that ends up stored.
func (t *Table[K, V]) Put(k K, v V) V {
	t.Lock()
	defer t.Unlock()
	if existing, ok := t.entries[k]; ok {
		return existing
	}
	t.entries[k] = v
	t.created.Add(1)
	return v
}

// GetOrCompute returns the stored value for k, computing and storing it on a
// miss.
func (t *Table[K, V]) GetOrCompute(k K, compute func() V) V {
	if v, ok := t.Get(k); ok {
		return v
	}
	if t.group == nil {
		return t.Put(k, compute())
	}
	res, _, _ := t.group.Do(fmt.Sprint(k), func() (any, error) {
		// Another caller may have finished between our miss and claiming
		// the key.
		t.RLock()
		v, ok := t.entries[k]
		t.RUnlock()
		if ok {
			return v, nil
		}
		return t.Put(k, compute()), nil
	})
	return res.(V)
}

func (t *Table[K, V]) Len() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.entries)
}

func (t *Table[K, V]) Stats() TableStats {
	return TableStats{
		Entries: t.Len(),
		Created: t.created.Load(),
		Lookups: t.lookups.Load(),
		Hits:    t.hits.Load(),
	}
}

// Entries returns a copy of the table contents.
func (t *Table[K, V]) Entries() map[K]V {
	t.RLock()
	defer t.RUnlock()
	return maps.Clone(t.entries)
}

// Merge adds entries that are not already present.
func (t *Table[K, V]) Merge(entries map[K]V) int {
	t.Lock()
	defer t.Unlock()
	added := 0
	for k, v := range entries {
		if _, ok := t.entries[k]; ok {
			continue
		}
		t.entries[k] = v
		added++
	}
	t.created.Add(uint64(added))
	return added
}

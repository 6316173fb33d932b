package store

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Memory implements a simple in-memory version of a store. It is intended
// mainly for testing.
type Memory struct {
	m     sync.RWMutex
	store map[string]*buf
}

var (
	// ensure Memory satisfies the Store interface
	_ Store = &Memory{}
)

// NewMemory returns a new, empty memory store.
func NewMemory() *Memory {
	return &Memory{store: make(map[string]*buf)}
}

// List returns a channel giving the key for every item in the store.
func (ms *Memory) List() <-chan string {
	c := make(chan string)
	go func() {
		ms.m.RLock()
		keys := make([]string, 0, len(ms.store))
		for k := range ms.store {
			keys = append(keys, k)
		}
		ms.m.RUnlock()
		for _, k := range keys {
			c <- k
		}
		close(c)
	}()
	return c
}

// ListPrefix returns all the key entries which begin with the given prefix.
func (ms *Memory) ListPrefix(prefix string) ([]string, error) {
	var result []string
	ms.m.RLock()
	for k := range ms.store {
		if strings.HasPrefix(k, prefix) {
			result = append(result, k)
		}
	}
	ms.m.RUnlock()
	return result, nil
}

// Open returns a ReadAtCloser and the size of the given item.
func (ms *Memory) Open(key string) (ReadAtCloser, int64, error) {
	ms.m.RLock()
	v, ok := ms.store[key]
	ms.m.RUnlock()
	if !ok {
		return nil, 0, fmt.Errorf("No item %s", key)
	}
	v.m.RLock()
	return v, int64(len(v.b)), nil
}

// An item may be open twice for reading at the same time, so buf uses a
// RWMutex. The same Close() serves both the read and the write paths, so a
// flag remembers which unlock to use.
type buf struct {
	m       sync.RWMutex
	iswrite bool
	b       []byte
}

func (r *buf) Close() error {
	if r.iswrite {
		r.iswrite = false
		r.m.Unlock()
	} else {
		r.m.RUnlock()
	}
	return nil
}

func (r *buf) ReadAt(p []byte, off int64) (int, error) {
	if int(off) >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[off:])
	return n, nil
}

func (r *buf) Write(p []byte) (int, error) {
	r.b = append(r.b, p...)
	return len(p), nil
}

// Create makes a new entry in the store, and returns a writer to save data
// into it.
func (ms *Memory) Create(key string) (io.WriteCloser, error) {
	r := &buf{}
	r.m.Lock()
	r.iswrite = true
	ms.m.Lock()
	ms.store[key] = r
	ms.m.Unlock()
	return r, nil
}

// Delete the given key from the store. It is not an error if the item does
// not exist in the store.
func (ms *Memory) Delete(key string) error {
	ms.m.Lock()
	delete(ms.store, key)
	ms.m.Unlock()
	return nil
}

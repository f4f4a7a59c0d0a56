package cache

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// node is one entry in the insertion-ordered list.
type node struct {
	key  string
	val  []byte
	next *node
}

func (n *node) reset() {
	n.key = ""
	n.val = nil
	n.next = nil
}

// Memory is a bounded in-process cache. Entries live in a singly linked list
// with the newest at the head; when full, the oldest entry is evicted.
// A non-positive size makes it unbounded.
type Memory struct {
	mu       sync.RWMutex
	entries  map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithMaxEntries bounds the number of cached entries.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		m.maxSize = n
	}
}

// NewMemory creates an in-memory cache holding at most 64 entries by default.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{maxSize: 64}
	for _, opt := range opts {
		opt(m)
	}
	m.entries = make(map[string]*node)
	m.nodePool = sync.Pool{
		New: func() any { return &node{} },
	}
	return m
}

// Get implements Cache. The returned slice is a copy.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(n.val), true
}

// Put implements Cache. Replacing a value keeps the entry's position.
func (m *Memory) Put(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n, ok := m.entries[key]; ok {
		n.val = slices.Clone(val)
		return nil
	}

	if m.maxSize > 0 && len(m.entries) >= m.maxSize {
		m.evictOldest()
	}

	n := m.nodePool.Get().(*node)
	n.key = key
	n.val = slices.Clone(val)
	n.next = m.head
	m.head = n
	m.entries[key] = n
	m.size.Add(1)
	return nil
}

// Len implements Cache.
func (m *Memory) Len(context.Context) int {
	return int(m.size.Load())
}

// evictOldest removes the tail of the list. Must be called with mu held.
func (m *Memory) evictOldest() {
	if m.head == nil {
		return
	}

	var prev *node
	current := m.head
	for current.next != nil {
		prev = current
		current = current.next
	}

	if prev == nil {
		m.head = nil
	} else {
		prev.next = nil
	}
	delete(m.entries, current.key)
	current.reset()
	m.nodePool.Put(current)
	m.size.Add(-1)
}

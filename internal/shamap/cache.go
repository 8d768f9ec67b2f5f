package shamap

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"concordd/internal/crypto"
)

// NodeCache memoizes encoded wire nodes by hash across snapshots of the
// same conceptual map. Copy-on-write means most of a snapshot's tree is
// shared with its parent, so the same inner-node hash is re-encoded by
// GetNodesFanout on every sync round unless cached. Grounded on the
// teacher's pattern of wrapping a pooled resource in a small mutex-guarded
// struct (core/connection_pool.go), generalized here to an LRU rather than
// a pool since entries are immutable once hashed.
type NodeCache struct {
	lru *lru.Cache[crypto.Hash256, []byte]
}

// NewNodeCache builds a NodeCache holding up to size encoded nodes.
func NewNodeCache(size int) *NodeCache {
	c, err := lru.New[crypto.Hash256, []byte](size)
	if err != nil {
		// Only returned by lru.New for size<=0; callers own the constant.
		panic(err)
	}
	return &NodeCache{lru: c}
}

// Get returns the cached encoding for hash, if present.
func (c *NodeCache) Get(hash crypto.Hash256) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(hash)
}

// Add stores the encoding for hash, evicting the least-recently-used
// entry if the cache is full.
func (c *NodeCache) Add(hash crypto.Hash256, data []byte) {
	if c == nil {
		return
	}
	c.lru.Add(hash, data)
}

// FullBelowCache is a bounded set of 256-bit identifiers known to be
// resident, so a sync round doesn't re-request or re-notify a SyncFilter
// about them. IngestLeaf records each ingested leaf's key here (not an
// inner-node hash). Grounded on
// rippled's FullBelowCache (original_source's SHAMap sync machinery).
type FullBelowCache struct {
	lru *lru.Cache[crypto.Hash256, struct{}]
}

// NewFullBelowCache builds a FullBelowCache holding up to size hashes.
func NewFullBelowCache(size int) *FullBelowCache {
	c, err := lru.New[crypto.Hash256, struct{}](size)
	if err != nil {
		panic(err)
	}
	return &FullBelowCache{lru: c}
}

// Know reports whether hash's full subtree is already known resident.
func (c *FullBelowCache) Know(hash crypto.Hash256) bool {
	if c == nil {
		return false
	}
	return c.lru.Contains(hash)
}

// Mark records that hash's full subtree is resident.
func (c *FullBelowCache) Mark(hash crypto.Hash256) {
	if c == nil {
		return
	}
	c.lru.Add(hash, struct{}{})
}

// SetNodeCache attaches (or clears, with nil) a shared NodeCache used by
// GetNodesFanout to avoid re-encoding hot wire nodes.
func (m *SHAMap) SetNodeCache(c *NodeCache) { m.nodeCache = c }

// SetFullBelowCache attaches (or clears, with nil) a shared FullBelowCache
// consulted by IngestLeaf to skip leaves whose key it has already
// ingested.
func (m *SHAMap) SetFullBelowCache(c *FullBelowCache) { m.fullBelow = c }

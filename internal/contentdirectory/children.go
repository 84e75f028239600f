package contentdirectory

import (
	"sync"

	"github.com/r3mi/djmount-go/internal/didl"
)

// Children is the list returned from one logical Browse of a parent id —
// spec §3's Children. It is the only shared-ownership datum in this
// module: the cache holds one reference, and every outstanding BrowseResult
// holds another, exactly as content_dir.c's talloc reference count on
// ContentDir_Children.
type Children struct {
	mu      sync.Mutex // guards caller-visible mutation; Objects is read-only after construction
	Objects []*didl.Object

	refMu sync.Mutex
	refs  int
}

func newChildren(objects []*didl.Object) *Children {
	return &Children{Objects: objects, refs: 1}
}

func (c *Children) addRef() {
	if c == nil {
		return
	}
	c.refMu.Lock()
	c.refs++
	c.refMu.Unlock()
}

// release decrements the reference count; the caller's reference is gone
// after this returns regardless of whether the Children was actually freed.
// There is no Go-visible effect of "freeing" since the GC reclaims it once
// unreferenced — this exists to mirror the C talloc_free semantics and to
// keep the count that refCount reports balanced.
func (c *Children) release() {
	if c == nil {
		return
	}
	c.refMu.Lock()
	c.refs--
	c.refMu.Unlock()
}

// refCount returns the current reference count. There is no Go-visible
// effect of it reaching zero (see release) — it exists so tests can assert
// the cache's hand-off discipline (spec §8: cache slot and every
// outstanding BrowseResult each hold their own reference) stays balanced.
func (c *Children) refCount() int {
	if c == nil {
		return 0
	}
	c.refMu.Lock()
	defer c.refMu.Unlock()
	return c.refs
}

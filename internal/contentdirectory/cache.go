// Package contentdirectory implements the ContentDirectory:1 Browse client:
// spec §2's "ContentDirectory client" (Browse pagination, cache, result
// hand-off). Grounded on content_dir.c's BrowseAction/BrowseAll/
// BrowseChildren/BrowseMetadata and its fixed-size hash-indexed cache.
package contentdirectory

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/r3mi/djmount-go/internal/xlog"
)

// cacheSize and cacheTimeout mirror content_dir.c's CACHE_SIZE (1024) and
// CACHE_TIMEOUT (60 seconds).
const (
	cacheSize    = 1024
	cacheTimeout = 60 * time.Second
)

// cacheOutcome classifies one BrowseChildren cache lookup, the Go
// counterpart of content_dir.c's CACHE_HIT/CACHE_NEW/CACHE_COLLIDE/
// CACHE_EXPIRED debug log lines.
type cacheOutcome int

const (
	cacheHit cacheOutcome = iota
	cacheNew
	cacheCollide
	cacheExpired
)

func (o cacheOutcome) String() string {
	switch o {
	case cacheHit:
		return "CACHE_HIT"
	case cacheNew:
		return "CACHE_NEW"
	case cacheCollide:
		return "CACHE_COLLIDE"
	case cacheExpired:
		return "CACHE_EXPIRED"
	default:
		return "CACHE_UNKNOWN"
	}
}

// cacheEntry is one slot of the Browse cache — spec §3's CacheEntry. A slot
// with limit.IsZero() has never held valid data, mirroring the C "limit==0
// means invalid" invariant.
type cacheEntry struct {
	objectID string
	hash     uint64
	limit    time.Time
	children *Children
}

func (e *cacheEntry) valid(now time.Time) bool {
	return e.objectID != "" && !e.limit.IsZero() && !now.After(e.limit)
}

// cache is the fixed-size open-addressed Browse cache. Every slot is
// addressed by hash(objectID) % cacheSize; a collision simply evicts
// whatever previously lived there, matching content_dir.c's behavior
// exactly (it never probes past the first slot).
type cache struct {
	mu      sync.Mutex
	entries [cacheSize]cacheEntry

	access, hit, collide, expired uint64
}

func newCache() *cache {
	return &cache{}
}

func hashObjectID(objectID string) uint64 {
	return xxhash.Sum64String(objectID)
}

// lookupOrStore is the single critical section BrowseChildren needs: given
// an objectID and a function to compute fresh children on miss, it returns
// the (possibly cached) *Children with a reference already taken on the
// caller's behalf, on a hit and on a miss alike; the slot keeps its own.
//
// The compute function runs WHILE the cache mutex is held, mirroring
// content_dir.c's BrowseChildren, which performs the SOAP round-trip inside
// the locked section too. This serializes concurrent Browses of the same
// uncached objectID but keeps the hit/miss/replace bookkeeping atomic,
// exactly as the original does (a correctness property of the C code we
// preserve rather than "improve" into finer-grained locking).
func (c *cache) lookupOrStore(objectID string, compute func() (*Children, error)) (*Children, error) {
	h := hashObjectID(objectID)
	idx := h % cacheSize

	c.mu.Lock()
	defer c.mu.Unlock()

	c.access++
	e := &c.entries[idx]
	now := time.Now()
	sameObject := e.objectID != "" && e.hash == h && e.objectID == objectID

	if sameObject && e.valid(now) {
		c.hit++
		e.children.addRef()
		xlog.Debugf(objectID, "%s (idx=%d)", cacheHit, idx)
		return e.children, nil
	}

	children, err := compute()
	if err != nil {
		return nil, err
	}

	outcome := cacheNew
	switch {
	case sameObject:
		c.expired++
		outcome = cacheExpired
	case e.objectID != "":
		c.collide++
		outcome = cacheCollide
	}
	xlog.Debugf(objectID, "%s (old=%q, idx=%d)", outcome, e.objectID, idx)

	if e.children != nil {
		e.children.release()
	}

	e.objectID = objectID
	e.hash = h
	e.children = children
	e.limit = now.Add(cacheTimeout)

	if children != nil {
		children.addRef()
	}
	return children, nil
}

// stats returns a snapshot of the cache counters for StatusString.
func (c *cache) stats() (access, hit, collide, expired uint64, cachedEntries, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for i := range c.entries {
		if c.entries[i].valid(now) {
			cachedEntries++
		}
	}
	return c.access, c.hit, c.collide, c.expired, cachedEntries, cacheSize
}

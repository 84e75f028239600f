package contentdirectory

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/r3mi/djmount-go/internal/didl"
	"github.com/r3mi/djmount-go/internal/errs"
	"github.com/r3mi/djmount-go/internal/service"
	"github.com/r3mi/djmount-go/internal/xlog"
	"github.com/r3mi/djmount-go/internal/xmlutil"
)

// ServiceID and ServiceType are the well-known ContentDirectory:1 service
// identifiers device.go's factory matches against (either is sufficient,
// since content_dir.c notes some devices get one or the other wrong).
const (
	ServiceID   = "urn:upnp-org:serviceId:ContentDirectory"
	ServiceType = "urn:schemas-upnp-org:service:ContentDirectory:1"
)

// browseFlag is the ContentDirectory:1 "BrowseFlag" argument value.
type browseFlag string

const (
	browseDirectChildren browseFlag = "BrowseDirectChildren"
	browseMetadata       browseFlag = "BrowseMetadata"
)

// browseArgs and browseReply mirror the wire shape of the ContentDirectory:1
// "Browse" action, the same field set the teacher's server-side cds.go
// switches on (BrowseFlag, Filter, StartingIndex, RequestedCount,
// SortCriteria in; TotalMatches, NumberReturned, Result, UpdateID out).
type browseArgs struct {
	ObjectID       string
	BrowseFlag     browseFlag
	Filter         string
	StartingIndex  int
	RequestedCount int
	SortCriteria   string
}

type browseReply struct {
	Result         string
	NumberReturned int
	TotalMatches   int
	UpdateID       int
}

// ActionSender is the SOAP-sending capability BrowseAction needs from its
// Service. Narrowing it to an interface (rather than calling through the
// embedded *service.Service directly) lets tests substitute a fake
// transport without standing up a real SOAP endpoint. It is exported so
// other packages' tests (e.g. internal/vfs) can build a *ContentDirectory
// over their own fake transport too, via NewWithSender.
type ActionSender interface {
	SendAction(ctx context.Context, action string, in, out interface{}) error
}

// ContentDirectory is a ContentDirectory:1 client — spec §2's
// "ContentDirectory client". It embeds a generic Service for SOAP transport
// and status rendering, and overrides StatusString to append cache
// diagnostics, the Go counterpart of content_dir.c's get_status_string
// calling its superclass method before appending its own fields.
type ContentDirectory struct {
	*service.Service

	sender ActionSender
	cache  *cache
}

// New builds a ContentDirectory client on top of an already-constructed
// generic Service, enabling the Browse cache (content_dir.c always enables
// it, since CACHE_SIZE/CACHE_TIMEOUT are compile-time positive constants).
func New(svc *service.Service) *ContentDirectory {
	return &ContentDirectory{Service: svc, sender: svc, cache: newCache()}
}

// NewWithSender builds a ContentDirectory over an explicit ActionSender,
// bypassing the generic Service's real SOAP transport entirely. svc is
// still embedded for StatusString/SID/etc.; only action dispatch is
// substituted. Used by tests outside this package that need a working
// ContentDirectory without a live SOAP endpoint.
func NewWithSender(svc *service.Service, sender ActionSender) *ContentDirectory {
	return &ContentDirectory{Service: svc, sender: sender, cache: newCache()}
}

// BrowseAction performs exactly one ContentDirectory:1 Browse SOAP call and
// parses its DIDL-Lite Result into Objects, the direct counterpart of
// content_dir.c's BrowseAction. It does not paginate or cache; callers use
// browseAll/BrowseChildren/BrowseMetadata for that.
func (cds *ContentDirectory) BrowseAction(ctx context.Context, objectID string, flag browseFlag, startingIndex, requestedCount int) (objects []*didl.Object, nbMatched, nbReturned int, err error) {
	if objectID == "" {
		return nil, 0, 0, errs.New(errs.InvalidArgument, "BrowseAction", nil)
	}

	args := browseArgs{
		ObjectID:       objectID,
		BrowseFlag:     flag,
		Filter:         "*",
		StartingIndex:  startingIndex,
		RequestedCount: requestedCount,
		SortCriteria:   "",
	}
	var reply browseReply
	if err := cds.sender.SendAction(ctx, "Browse", &args, &reply); err != nil {
		xlog.Errorf(objectID, "BrowseAction failed: %v", err)
		return nil, 0, 0, err
	}

	nbMatched = reply.TotalMatches
	nbReturned = reply.NumberReturned

	root, err := xmlutil.Parse([]byte(reply.Result))
	if err != nil {
		xlog.Errorf(objectID, "BrowseAction: can't parse Result: %v", err)
		return nil, 0, 0, errs.Wrap(errs.BadResponse, objectID, err, "parse DIDL-Lite result")
	}

	containers := root.FindAll("container")
	items := root.FindAll("item")
	if len(containers)+len(items) != nbReturned {
		xlog.Errorf(objectID, "BrowseAction got %d containers + %d items, expected %d",
			len(containers), len(items), nbReturned)
		nbReturned = len(containers) + len(items)
	}

	objects = make([]*didl.Object, 0, nbReturned)
	for i := 0; i < len(containers) && i < nbReturned; i++ {
		o, err := didl.New(containers[i], true)
		if err != nil {
			xlog.Warnf(objectID, "skipping unparseable container: %v", err)
			continue
		}
		objects = append(objects, o)
	}
	for i := 0; i < len(items) && len(objects) < nbReturned; i++ {
		o, err := didl.New(items[i], false)
		if err != nil {
			xlog.Warnf(objectID, "skipping unparseable item: %v", err)
			continue
		}
		objects = append(objects, o)
	}

	return objects, nbMatched, nbReturned, nil
}

// browseAllRetries bounds content_dir.c's BrowseAll retry loop ("Retry %d"
// up to nb_retry++ < 2, i.e. at most 2 extra round trips).
const browseAllRetries = 2

// browseAll requests every child of objectID, following content_dir.c's
// BrowseAll: an initial RequestedCount=0 ("all") call, then up to
// browseAllRetries follow-up calls for whatever is still missing if the
// server under-reported (a workaround for servers that ignore
// RequestedCount=0's "all entries" meaning).
func (cds *ContentDirectory) browseAll(ctx context.Context, objectID string, flag browseFlag) (*Children, error) {
	objects, nbMatched, _, err := cds.BrowseAction(ctx, objectID, flag, 0, 0)
	if err != nil {
		return nil, err
	}

	for retry := 0; len(objects) < nbMatched && retry < browseAllRetries; retry++ {
		xlog.Warnf(objectID, "BrowseAll: got %d results, expected %d. Retry %d ...",
			len(objects), nbMatched, retry+1)

		more, newNbMatched, newNbReturned, err := cds.BrowseAction(ctx, objectID, flag, len(objects), nbMatched-len(objects))
		if err != nil || newNbReturned == 0 {
			break
		}
		objects = append(objects, more...)
		nbMatched = newNbMatched
	}

	return newChildren(objects), nil
}

// BrowseChildren returns the children of objectID, consulting (and
// populating) the Browse cache — content_dir.c's ContentDir_BrowseChildren.
// The returned *Children carries a reference the caller must release by
// wrapping it with NewBrowseResult and calling Close on that handle, as
// package vfs and the REPL do; this mirrors the original's talloc-managed
// reference hand-off.
func (cds *ContentDirectory) BrowseChildren(ctx context.Context, objectID string) (*Children, error) {
	if objectID == "" {
		return nil, errs.New(errs.InvalidArgument, "BrowseChildren", nil)
	}
	return cds.cache.lookupOrStore(objectID, func() (*Children, error) {
		return cds.browseAll(ctx, objectID, browseDirectChildren)
	})
}

// BrowseMetadata fetches the single DIDL object describing objectID itself
// (not its children) — content_dir.c's ContentDir_BrowseMetadata. There is
// no cache for metadata lookups, matching the original's documented
// "TBD: no cache in BrowseMetadata" comment.
func (cds *ContentDirectory) BrowseMetadata(ctx context.Context, objectID string) (*didl.Object, error) {
	objects, _, nbReturned, err := cds.BrowseAction(ctx, objectID, browseMetadata, 0, 1)
	if err != nil {
		return nil, err
	}
	if nbReturned != 1 {
		xlog.Errorf(objectID, "BrowseMetadata: not exactly 1 result (got %d)", nbReturned)
	}
	if len(objects) == 0 {
		return nil, errs.New(errs.NotFound, objectID, nil)
	}
	return objects[0], nil
}

// Collectors exposes the Browse cache's counters as Prometheus gauges,
// the SID-qualified counterpart of StatusString's cache section — spec
// §2's note that cache diagnostics are available both as human-readable
// text and as Prometheus metrics, the way the teacher exposes both
// core/stats text and its own Prometheus collectors.
func (cds *ContentDirectory) Collectors() []prometheus.Collector {
	sid := cds.SID()
	labels := prometheus.Labels{"sid": sid}
	statAt := func(pick func(access, hit, collide, expired uint64, cachedEntries, size int) float64) func() float64 {
		return func() float64 {
			access, hit, collide, expired, cachedEntries, size := cds.cache.stats()
			return pick(access, hit, collide, expired, cachedEntries, size)
		}
	}
	newGauge := func(name, help string, get func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "djmount",
			Subsystem:   "cds_cache",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, get)
	}
	return []prometheus.Collector{
		newGauge("access_total", "Browse cache lookups performed", statAt(func(a, _, _, _ uint64, _, _ int) float64 { return float64(a) })),
		newGauge("hit_total", "Browse cache lookups served from cache", statAt(func(_, h, _, _ uint64, _, _ int) float64 { return float64(h) })),
		newGauge("collide_total", "Browse cache lookups that evicted a different objectID", statAt(func(_, _, c, _ uint64, _, _ int) float64 { return float64(c) })),
		newGauge("expired_total", "Browse cache lookups that replaced an expired entry", statAt(func(_, _, _, e uint64, _, _ int) float64 { return float64(e) })),
		newGauge("entries", "Browse cache slots currently holding valid data", statAt(func(_, _, _, _ uint64, c, _ int) float64 { return float64(c) })),
		newGauge("size", "Browse cache total slot count", statAt(func(_, _, _, _ uint64, _, s int) float64 { return float64(s) })),
	}
}

// StatusString overrides Service.StatusString to append cache diagnostics,
// the Go counterpart of content_dir.c's get_status_string calling its
// superclass method and then appending cache fields.
func (cds *ContentDirectory) StatusString(debug bool, indent string) string {
	p := cds.Service.StatusString(debug, indent)

	access, hit, collide, expired, cachedEntries, size := cds.cache.stats()
	p += fmt.Sprintf("%s+- Cache size      = %d\n", indent, size)
	if debug {
		pct := 0
		if size > 0 {
			pct = cachedEntries * 100 / size
		}
		p += fmt.Sprintf("%s+- Cached entries  = %d (%d%%)\n", indent, cachedEntries, pct)
	}
	p += fmt.Sprintf("%s+- Cache timeout   = %s\n", indent, cacheTimeout)
	p += fmt.Sprintf("%s+- Cache access    = %d\n", indent, access)
	if access > 0 {
		p += fmt.Sprintf("%s     +- hits       = %d (%d%%)\n", indent, hit, hit*100/access)
		p += fmt.Sprintf("%s     +- collide    = %d (%d%%)\n", indent, collide, collide*100/access)
		p += fmt.Sprintf("%s     +- expired    = %d (%d%%)\n", indent, expired, expired*100/access)
	}
	return p
}

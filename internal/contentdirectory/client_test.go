package contentdirectory

import (
	"context"
	"fmt"
	"testing"
)

// fakeSender implements ActionSender by returning canned Browse replies in
// sequence, so BrowseAll's pagination/retry logic can be exercised without
// a real SOAP endpoint.
type fakeSender struct {
	replies []browseReply
	calls   []browseArgs
	err     error
}

func (f *fakeSender) SendAction(_ context.Context, action string, in, out interface{}) error {
	if f.err != nil {
		return f.err
	}
	args := in.(*browseArgs)
	f.calls = append(f.calls, *args)
	reply := out.(*browseReply)
	if len(f.replies) == 0 {
		return fmt.Errorf("fakeSender: no more replies queued")
	}
	*reply = f.replies[0]
	f.replies = f.replies[1:]
	return nil
}

func didlResult(items ...string) string {
	s := "<DIDL-Lite>"
	for i, id := range items {
		s += fmt.Sprintf(`<item id=%q><dc:title>t%d</dc:title></item>`, id, i)
	}
	s += "</DIDL-Lite>"
	return s
}

func newTestCDS(sender ActionSender) *ContentDirectory {
	return &ContentDirectory{sender: sender, cache: newCache()}
}

func TestBrowseActionParsesResult(t *testing.T) {
	fs := &fakeSender{replies: []browseReply{
		{Result: didlResult("1", "2"), NumberReturned: 2, TotalMatches: 2},
	}}
	cds := newTestCDS(fs)

	objs, matched, returned, err := cds.BrowseAction(context.Background(), "0", browseDirectChildren, 0, 0)
	if err != nil {
		t.Fatalf("BrowseAction: %v", err)
	}
	if matched != 2 || returned != 2 {
		t.Fatalf("matched=%d returned=%d, want 2,2", matched, returned)
	}
	if len(objs) != 2 {
		t.Fatalf("len(objs) = %d, want 2", len(objs))
	}
	if objs[0].ID != "1" || objs[1].ID != "2" {
		t.Fatalf("unexpected object IDs: %q %q", objs[0].ID, objs[1].ID)
	}
}

func TestBrowseActionRejectsEmptyObjectID(t *testing.T) {
	cds := newTestCDS(&fakeSender{})
	if _, _, _, err := cds.BrowseAction(context.Background(), "", browseDirectChildren, 0, 0); err == nil {
		t.Fatal("expected error for empty objectID")
	}
}

func TestBrowseAllRetriesOnShortRead(t *testing.T) {
	fs := &fakeSender{replies: []browseReply{
		{Result: didlResult("1"), NumberReturned: 1, TotalMatches: 3},
		{Result: didlResult("2", "3"), NumberReturned: 2, TotalMatches: 3},
	}}
	cds := newTestCDS(fs)

	children, err := cds.browseAll(context.Background(), "0", browseDirectChildren)
	if err != nil {
		t.Fatalf("browseAll: %v", err)
	}
	if len(children.Objects) != 3 {
		t.Fatalf("got %d objects, want 3", len(children.Objects))
	}
	if len(fs.calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(fs.calls))
	}
	if fs.calls[1].StartingIndex != 1 || fs.calls[1].RequestedCount != 2 {
		t.Fatalf("retry call args = %+v, want StartingIndex=1 RequestedCount=2", fs.calls[1])
	}
}

func TestBrowseAllStopsWhenRetryReturnsNothing(t *testing.T) {
	fs := &fakeSender{replies: []browseReply{
		{Result: didlResult(), NumberReturned: 0, TotalMatches: 5},
		{Result: didlResult(), NumberReturned: 0, TotalMatches: 5},
		{Result: didlResult(), NumberReturned: 0, TotalMatches: 5},
	}}
	cds := newTestCDS(fs)

	children, err := cds.browseAll(context.Background(), "0", browseDirectChildren)
	if err != nil {
		t.Fatalf("browseAll: %v", err)
	}
	if len(children.Objects) != 0 {
		t.Fatalf("got %d objects, want 0", len(children.Objects))
	}
	// First call + break on the very first retry (NumberReturned==0).
	if len(fs.calls) != 2 {
		t.Fatalf("got %d calls, want 2 (stop on zero NumberReturned)", len(fs.calls))
	}
}

func TestBrowseChildrenCachesResult(t *testing.T) {
	fs := &fakeSender{replies: []browseReply{
		{Result: didlResult("1"), NumberReturned: 1, TotalMatches: 1},
	}}
	cds := newTestCDS(fs)

	c1, err := cds.BrowseChildren(context.Background(), "0")
	if err != nil {
		t.Fatalf("BrowseChildren: %v", err)
	}
	c2, err := cds.BrowseChildren(context.Background(), "0")
	if err != nil {
		t.Fatalf("BrowseChildren (cached): %v", err)
	}
	if c1 != c2 {
		t.Fatalf("expected same Children pointer from cache hit")
	}
	if len(fs.calls) != 1 {
		t.Fatalf("got %d SOAP calls, want 1 (second should be a cache hit)", len(fs.calls))
	}
	access, hit, _, _, _, _ := cds.cache.stats()
	if access != 2 || hit != 1 {
		t.Fatalf("cache stats access=%d hit=%d, want 2,1", access, hit)
	}
}

func TestBrowseMetadataReturnsSingleObject(t *testing.T) {
	fs := &fakeSender{replies: []browseReply{
		{Result: didlResult("1"), NumberReturned: 1, TotalMatches: 1},
	}}
	cds := newTestCDS(fs)

	o, err := cds.BrowseMetadata(context.Background(), "1")
	if err != nil {
		t.Fatalf("BrowseMetadata: %v", err)
	}
	if o.ID != "1" {
		t.Fatalf("ID = %q, want 1", o.ID)
	}
}

func TestBrowseMetadataNoResultIsNotFound(t *testing.T) {
	fs := &fakeSender{replies: []browseReply{
		{Result: didlResult(), NumberReturned: 0, TotalMatches: 0},
	}}
	cds := newTestCDS(fs)

	if _, err := cds.BrowseMetadata(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for empty metadata result")
	}
}

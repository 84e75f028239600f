package didl

import (
	"testing"

	"github.com/r3mi/djmount-go/internal/xmlutil"
)

func parseFragment(t *testing.T, xmlFrag string) *xmlutil.Node {
	t.Helper()
	n, err := xmlutil.Parse([]byte(xmlFrag))
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}
	return n
}

func TestNewItem(t *testing.T) {
	n := parseFragment(t, `<item id="42" parentID="0" restricted="1">
		<dc:title>track.mp3</dc:title>
		<upnp:class>  object.item.audioItem.musicTrack  </upnp:class>
	</item>`)

	o, err := New(n, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if o.ID != "42" {
		t.Errorf("ID = %q, want 42", o.ID)
	}
	if o.IsContainer {
		t.Errorf("IsContainer = true, want false")
	}
	if o.Title != "track.mp3" {
		t.Errorf("Title = %q", o.Title)
	}
	if o.Basename != "track.mp3" {
		t.Errorf("Basename = %q", o.Basename)
	}
	if o.Class != "object.item.audioItem.musicTrack" {
		t.Errorf("Class = %q", o.Class)
	}
}

func TestNewMissingID(t *testing.T) {
	n := parseFragment(t, `<item><dc:title>x</dc:title></item>`)
	if _, err := New(n, false); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestNewMissingTitleFallsBackToID(t *testing.T) {
	n := parseFragment(t, `<container id="7"></container>`)
	o, err := New(n, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if o.Basename != "_id7" {
		t.Errorf("Basename = %q, want _id7", o.Basename)
	}
	if o.Title != "" {
		t.Errorf("Title = %q, want empty", o.Title)
	}
}

func TestBasenameDotRewrite(t *testing.T) {
	for _, tc := range []struct{ title, want string }{
		{".", "._"},
		{"..", ".._"},
	} {
		n := parseFragment(t, `<item id="1"><dc:title>`+tc.title+`</dc:title></item>`)
		o, err := New(n, false)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if o.Basename != tc.want {
			t.Errorf("title %q: Basename = %q, want %q", tc.title, o.Basename, tc.want)
		}
	}
}

func TestCleanFileNameStripsSeparatorsAndControls(t *testing.T) {
	got := CleanFileName("a/b\x00c\x1fd")
	if got != "abcd" {
		t.Errorf("CleanFileName = %q, want abcd", got)
	}
}

func TestResourceExtractsURLAndSize(t *testing.T) {
	n := parseFragment(t, `<item id="42">
		<dc:title>track.mp3</dc:title>
		<res protocolInfo="http-get:*:audio/mpeg:*" size="123456">http://host/track.mp3</res>
	</item>`)
	o, err := New(n, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, ok := o.Resource()
	if !ok {
		t.Fatal("Resource() ok = false")
	}
	if res.URL != "http://host/track.mp3" {
		t.Errorf("URL = %q", res.URL)
	}
	if res.Size != 123456 {
		t.Errorf("Size = %d, want 123456", res.Size)
	}
}

func TestResourceAbsentWithoutRes(t *testing.T) {
	n := parseFragment(t, `<container id="7"><dc:title>Music</dc:title></container>`)
	o, err := New(n, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := o.Resource(); ok {
		t.Fatal("Resource() ok = true for a container")
	}
}

func TestRawXMLRoundTrip(t *testing.T) {
	n := parseFragment(t, `<item id="1"><dc:title>x</dc:title><upnp:class>object.item</upnp:class></item>`)
	o, err := New(n, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw := o.RawXML()
	reparsed, err := xmlutil.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("reparse RawXML output: %v", err)
	}
	o2, err := New(reparsed, false)
	if err != nil {
		t.Fatalf("New on reparsed: %v", err)
	}
	if o2.ID != o.ID || o2.Title != o.Title || o2.Basename != o.Basename || o2.Class != o.Class {
		t.Errorf("round-trip mismatch: got %+v, want %+v", o2, o)
	}
}

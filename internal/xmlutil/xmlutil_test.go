package xmlutil

import "testing"

func TestNodeStringDoesNotDuplicateChildren(t *testing.T) {
	const src = `<item id="1"><dc:title>x</dc:title><upnp:class>object.item</upnp:class></item>`
	n, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := n.String()
	if got != src {
		t.Fatalf("String() = %q, want %q", got, src)
	}
}

func TestNodeStringPreservesAttributes(t *testing.T) {
	const src = `<res size="123" protocolInfo="http-get:*:audio/mpeg:*">http://host/track.mp3</res>`
	n, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := n.String()
	if got != src {
		t.Fatalf("String() = %q, want %q", got, src)
	}
}

package discovery

import "testing"

func TestUdnFromUSN(t *testing.T) {
	cases := map[string]string{
		"uuid:abc-123::urn:schemas-upnp-org:service:ContentDirectory:1": "uuid:abc-123",
		"uuid:abc-123::upnp:rootdevice":                                 "uuid:abc-123",
		"uuid:abc-123":                                                  "uuid:abc-123",
	}
	for usn, want := range cases {
		if got := udnFromUSN(usn); got != want {
			t.Errorf("udnFromUSN(%q) = %q, want %q", usn, got, want)
		}
	}
}

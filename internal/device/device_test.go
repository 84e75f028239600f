package device

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/r3mi/djmount-go/internal/contentdirectory"
)

const sampleDescDoc = `<?xml version="1.0"?>
<root>
  <URLBase>http://192.168.1.10:8080/</URLBase>
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaServer:1</deviceType>
    <friendlyName>Test Media Server</friendlyName>
    <UDN>uuid:abc-123</UDN>
    <presentationURL>/pres.html</presentationURL>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:ContentDirectory:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:ContentDirectory</serviceId>
        <controlURL>/ctl/ContentDir</controlURL>
        <eventSubURL>/evt/ContentDir</eventSubURL>
      </service>
      <service>
        <serviceType>urn:schemas-upnp-org:service:ConnectionManager:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:ConnectionManager</serviceId>
        <controlURL>/ctl/CM</controlURL>
        <eventSubURL>/evt/CM</eventSubURL>
      </service>
    </serviceList>
  </device>
</root>`

type fakeHTTPClient struct {
	body string
	err  error
}

func (f *fakeHTTPClient) Get(_ string) (*http.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(f.body)),
	}, nil
}

func TestNewParsesDescriptionDocument(t *testing.T) {
	dev, err := newWithClient(context.Background(), "http://192.168.1.10:8080/desc.xml", &fakeHTTPClient{body: sampleDescDoc})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if dev.UDN != "uuid:abc-123" {
		t.Errorf("UDN = %q", dev.UDN)
	}
	if dev.FriendlyName != "Test Media Server" {
		t.Errorf("FriendlyName = %q", dev.FriendlyName)
	}
	if dev.PresentationURL != "http://192.168.1.10:8080/pres.html" {
		t.Errorf("PresentationURL = %q", dev.PresentationURL)
	}
	if len(dev.Services) != 2 {
		t.Fatalf("len(Services) = %d, want 2", len(dev.Services))
	}
	if dev.CDS == nil {
		t.Fatal("expected a ContentDirectory service to be found")
	}
}

func TestServiceFactoryDispatchesByServiceID(t *testing.T) {
	dev, err := newWithClient(context.Background(), "http://host/desc.xml", &fakeHTTPClient{body: sampleDescDoc})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var sawCDS, sawPlain int
	for _, svc := range dev.Services {
		if _, ok := svc.(*contentdirectory.ContentDirectory); ok {
			sawCDS++
		} else {
			sawPlain++
		}
	}
	if sawCDS != 1 || sawPlain != 1 {
		t.Fatalf("sawCDS=%d sawPlain=%d, want 1,1", sawCDS, sawPlain)
	}
}

func TestLookupByControlURLAndEventURL(t *testing.T) {
	dev, err := newWithClient(context.Background(), "http://host/desc.xml", &fakeHTTPClient{body: sampleDescDoc})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc := dev.Lookup(FromControlURL, "http://192.168.1.10:8080/ctl/CM")
	if svc == nil || svc.ServiceID != "urn:upnp-org:serviceId:ConnectionManager" {
		t.Fatalf("Lookup by control URL failed: %+v", svc)
	}

	evtSvc := dev.Lookup(FromEventURL, "http://192.168.1.10:8080/evt/CM")
	if evtSvc == nil || evtSvc.ServiceID != "urn:upnp-org:serviceId:ConnectionManager" {
		t.Fatalf("Lookup by event URL failed: %+v", evtSvc)
	}

	// A lookup by event URL using the control URL value must NOT match —
	// guards against reintroducing djmount's original copy-paste bug.
	if got := dev.Lookup(FromEventURL, "http://192.168.1.10:8080/ctl/CM"); got != nil {
		t.Fatalf("FromEventURL incorrectly matched a control URL: %+v", got)
	}
}

func TestLookupByServiceType(t *testing.T) {
	dev, err := newWithClient(context.Background(), "http://host/desc.xml", &fakeHTTPClient{body: sampleDescDoc})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc := dev.Lookup(FromServiceType, "urn:schemas-upnp-org:service:ConnectionManager:1")
	if svc == nil || svc.ServiceID != "urn:upnp-org:serviceId:ConnectionManager" {
		t.Fatalf("Lookup by service type failed: %+v", svc)
	}
}

func TestLookupMissingReturnsNil(t *testing.T) {
	dev, err := newWithClient(context.Background(), "http://host/desc.xml", &fakeHTTPClient{body: sampleDescDoc})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := dev.Lookup(FromServiceID, "nonexistent"); got != nil {
		t.Fatalf("Lookup(missing) = %+v, want nil", got)
	}
}

func TestStatusStringIncludesDeviceAndServiceFields(t *testing.T) {
	dev, err := newWithClient(context.Background(), "http://host/desc.xml", &fakeHTTPClient{body: sampleDescDoc})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := dev.StatusString(false)
	for _, want := range []string{dev.UDN, dev.FriendlyName, dev.DeviceType} {
		if !bytes.Contains([]byte(s), []byte(want)) {
			t.Errorf("StatusString missing %q", want)
		}
	}
}

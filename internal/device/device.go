// Package device implements spec §3's "Device": a UPnP device description
// document, parsed once at discovery time, owning the list of Services
// (and, for matching services, ContentDirectory clients) it declares.
// Grounded on djmount's device.c (Device_Create, ServiceFactory,
// Device_GetServiceFrom, Device_GetStatusString).
package device

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/r3mi/djmount-go/internal/contentdirectory"
	"github.com/r3mi/djmount-go/internal/errs"
	"github.com/r3mi/djmount-go/internal/service"
	"github.com/r3mi/djmount-go/internal/xlog"
	"github.com/r3mi/djmount-go/internal/xmlutil"
)

// From selects which field Lookup matches against — the Go counterpart of
// device.c's "enum GetFrom".
type From int

const (
	FromSID From = iota
	FromControlURL
	FromEventURL
	FromServiceID
	FromServiceType
)

// Device is one discovered UPnP root device — spec §3's Device.
type Device struct {
	UDN             string
	DeviceType      string
	FriendlyName    string
	PresentationURL string
	DescDocURL      string
	CreatedAt       time.Time

	// Services is the ordered list this device owns; ContentDirectory
	// entries additionally appear, by identity, as the value of CDS below.
	Services    []service.StatusStringer
	rawServices []*service.Service
	CDS         *contentdirectory.ContentDirectory // nil if this device has no ContentDirectory service
}

// httpClient is narrowed so tests can substitute a fake description-document
// fetch without a real HTTP server.
type httpClient interface {
	Get(url string) (*http.Response, error)
}

var defaultClient httpClient = http.DefaultClient

// New downloads and parses a device description document, builds the
// Device and its owned Services, and dispatches each <service> through the
// ContentDirectory-vs-generic-Service factory — device.c's
// Device_Create + ServiceFactory, collapsed into one constructor since Go
// has no destructor ordering to preserve.
func New(ctx context.Context, descDocURL string) (*Device, error) {
	return newWithClient(ctx, descDocURL, defaultClient)
}

func newWithClient(ctx context.Context, descDocURL string, client httpClient) (*Device, error) {
	if descDocURL == "" {
		return nil, errs.New(errs.InvalidArgument, "device.New", nil)
	}

	xlog.Debugf(descDocURL, "loading device description document")
	resp, err := client.Get(descDocURL)
	if err != nil {
		return nil, errs.Wrap(errs.TransportFailure, descDocURL, err, "download description document")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.TransportFailure, descDocURL, err, "read description document")
	}

	doc, err := xmlutil.Parse(body)
	if err != nil {
		return nil, errs.Wrap(errs.BadResponse, descDocURL, err, "parse description document")
	}

	dev := &Device{
		UDN:          xmlutil.GetFirstNodeValue(doc, "UDN"),
		DeviceType:   xmlutil.GetFirstNodeValue(doc, "deviceType"),
		FriendlyName: xmlutil.GetFirstNodeValue(doc, "friendlyName"),
		DescDocURL:   descDocURL,
		CreatedAt:    time.Now(),
	}
	xlog.Debugf(descDocURL, "UDN=%s type=%s", dev.UDN, dev.DeviceType)

	base := xmlutil.GetFirstNodeValue(doc, "URLBase")
	if base == "" {
		base = descDocURL
	}
	presRel := xmlutil.GetFirstNodeValue(doc, "presentationURL")
	dev.PresentationURL = resolveURL(base, presRel)

	svcList := doc.FindFirst("serviceList")
	for _, svcDesc := range svcList.FindAll("service") {
		svc, cds, err := serviceFactory(svcDesc, base)
		if err != nil {
			xlog.Warnf(descDocURL, "skipping unparseable service: %v", err)
			continue
		}
		dev.rawServices = append(dev.rawServices, svc)
		if cds != nil {
			dev.Services = append(dev.Services, cds)
			dev.CDS = cds
		} else {
			dev.Services = append(dev.Services, svc)
		}
	}

	return dev, nil
}

// serviceFactory builds either a ContentDirectory client or a generic
// Service from one <service> description element, matching on serviceId OR
// serviceType (content_dir.c: "we test on both ... because I have seen
// some devices with incorrect values in one or the other").
func serviceFactory(svcDesc *xmlutil.Node, base string) (*service.Service, *contentdirectory.ContentDirectory, error) {
	serviceID := xmlutil.GetFirstNodeValue(svcDesc, "serviceId")
	serviceType := xmlutil.GetFirstNodeValue(svcDesc, "serviceType")
	controlRel := xmlutil.GetFirstNodeValue(svcDesc, "controlURL")
	eventRel := xmlutil.GetFirstNodeValue(svcDesc, "eventSubURL")

	controlURL := resolveURL(base, controlRel)
	eventURL := resolveURL(base, eventRel)

	svc, err := service.New(serviceID, serviceType, controlURL, eventURL)
	if err != nil {
		return nil, nil, err
	}

	if serviceID == contentdirectory.ServiceID || serviceType == contentdirectory.ServiceType {
		return svc, contentdirectory.New(svc), nil
	}
	return svc, nil, nil
}

// resolveURL resolves rel against base, the Go counterpart of
// UpnpUtil_ResolveURL. On any parse failure it falls back to rel verbatim,
// since a malformed base is still better reported via the presence of a
// (possibly unusable) URL than by returning nothing.
func resolveURL(base, rel string) string {
	if rel == "" {
		return base
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return rel
	}
	relURL, err := url.Parse(rel)
	if err != nil {
		return rel
	}
	return baseURL.ResolveReference(relURL).String()
}

// Lookup searches this device's owned services for one whose field
// selected by from equals value, the Go counterpart of
// Device_GetServiceFrom. Lookup is linear, matching the original's linked
// -list scan (spec §4.3: "Lookup by SID / controlURL / eventURL /
// serviceId is linear over the owned service list").
//
// FromEventURL compares against EventURL, not ControlURL: djmount's C
// implementation had a copy-paste bug here (FROM_EVENT_URL called
// Service_GetControlURL instead of Service_GetEventURL), which this
// reimplementation fixes rather than preserves.
func (d *Device) Lookup(from From, value string) *service.Service {
	if value == "" {
		return nil
	}
	for _, svc := range d.rawServices {
		var s string
		switch from {
		case FromSID:
			s = svc.SID()
		case FromControlURL:
			s = svc.ControlURL
		case FromEventURL:
			s = svc.EventURL
		case FromServiceID:
			s = svc.ServiceID
		case FromServiceType:
			s = svc.ServiceType
		}
		if s == value {
			return svc
		}
	}
	xlog.Errorf(d.FriendlyName, "error finding service %q", value)
	return nil
}

// StatusString renders this device's status block, the Go counterpart of
// Device_GetStatusString.
func (d *Device) StatusString(debug bool) string {
	now := time.Now()
	p := "  | \n"
	p += fmt.Sprintf("  +- Discovered on  = %s (%s ago)\n", d.CreatedAt.Format(time.RFC1123), now.Sub(d.CreatedAt).Round(time.Second))
	p += fmt.Sprintf("  +- UDN            = %s\n", d.UDN)
	p += fmt.Sprintf("  +- DeviceType     = %s\n", d.DeviceType)
	p += fmt.Sprintf("  +- DescDocURL     = %s\n", d.DescDocURL)
	p += fmt.Sprintf("  +- FriendlyName   = %s\n", d.FriendlyName)
	p += fmt.Sprintf("  +- PresURL        = %s\n", d.PresentationURL)

	for i, svc := range d.Services {
		last := i == len(d.Services)-1
		indent := "  |   "
		if last {
			indent = "      "
		}
		p += "  | \n"
		p += "  +- Service\n"
		p += svc.StatusString(debug, indent)
	}
	return p
}

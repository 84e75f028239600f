// Package discovery adapts github.com/huin/goupnp's ssdp/httpu layer (the
// out-of-scope "underlying UPnP/SSDP discovery library" spec §1 names) into
// calls on a *registry.Registry: spec §2's "discovery library pushes
// events into the device registry". Grounded on goupnp's own ssdp.Registry
// (vendored copy read from the ethereum-go-ethereum example) for passive
// NOTIFY handling, and on dsymonds' Sonos control point for active
// goupnp.DiscoverDevices search.
package discovery

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/huin/goupnp"
	"github.com/huin/goupnp/httpu"
	"github.com/huin/goupnp/ssdp"
	"golang.org/x/net/ipv4"

	"github.com/r3mi/djmount-go/internal/registry"
	"github.com/r3mi/djmount-go/internal/xlog"
)

// searchTarget is spec §6's mandated SSDP search target: "ssdp:all" (every
// advertisement, not just root devices), since ContentDirectory service
// presence is determined afterwards from the downloaded description
// document (device.go's serviceFactory), not from the search target itself.
const searchTarget = "ssdp:all"

// defaultSearchMaxAge is used for devices discovered via active M-SEARCH,
// whose goupnp.MaybeRootDevice result does not carry a Cache-Control
// max-age the way a passive NOTIFY does; this is refreshed quickly by the
// next periodic search regardless.
const defaultSearchMaxAge = 5 * time.Minute

// msearchDSCP marks our own active discovery probe with a low-latency
// traffic class, the same golang.org/x/net/ipv4 SetTOS idiom rclone's
// fshttp.dialer uses for its outbound connections (fs/fshttp/dialer.go).
const msearchDSCP = 0x28 // AF11: low-latency, network-control-adjacent traffic

// Discovery bridges SSDP traffic to a Registry.
type Discovery struct {
	reg *registry.Registry

	httpuServer *httpu.Server
	ssdpReg     *ssdp.Registry
	updates     chan ssdp.Update
}

// New builds a Discovery that will push events into reg once Start runs.
func New(reg *registry.Registry) *Discovery {
	srv, ssdpReg := ssdp.NewServerAndRegistry()
	return &Discovery{
		reg:         reg,
		httpuServer: srv,
		ssdpReg:     ssdpReg,
		updates:     make(chan ssdp.Update, 32),
	}
}

// Start begins listening for multicast SSDP NOTIFY traffic and performs an
// initial active M-SEARCH, repeating the search every searchInterval until
// ctx is cancelled. It returns right after starting the passive listener,
// the update translator and the search loop in background goroutines,
// without waiting for the listener to be up; a listener failure is logged,
// not returned.
func (d *Discovery) Start(ctx context.Context, searchInterval time.Duration) error {
	d.ssdpReg.AddListener(d.updates)

	go d.translateUpdates(ctx)

	go func() {
		if err := d.httpuServer.ListenAndServe(); err != nil {
			xlog.Errorf("discovery", "httpu server stopped: %v", err)
		}
	}()

	go d.activeSearchLoop(ctx, searchInterval)

	return nil
}

// translateUpdates drains passive SSDP NOTIFY events (alive/update/byebye)
// from goupnp/ssdp's Registry and applies them to our own Registry — spec
// §4.4's alive/byebye discovery callback sink.
func (d *Discovery) translateUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.ssdpReg.RemoveListener(d.updates)
			return
		case u := <-d.updates:
			switch u.EventType {
			case ssdp.EventByeBye:
				d.reg.ByeBye(udnFromUSN(u.USN))
			case ssdp.EventAlive, ssdp.EventUpdate:
				if u.Entry == nil {
					continue
				}
				maxAge := time.Until(u.Entry.CacheExpiry)
				if maxAge <= 0 {
					maxAge = defaultSearchMaxAge
				}
				d.reg.Alive(ctx, udnFromUSN(u.USN), u.Entry.Location.String(), maxAge)
			}
		}
	}
}

// activeSearchLoop periodically issues an M-SEARCH for searchTarget using
// goupnp.DiscoverDevices (the blocking convenience search dsymonds' Sonos
// client uses), feeding every discovered root device into the Registry
// directly — this catches devices that were already alive before this
// process started listening for NOTIFY traffic.
func (d *Discovery) activeSearchLoop(ctx context.Context, interval time.Duration) {
	d.search(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.search(ctx)
		}
	}
}

func (d *Discovery) search(ctx context.Context) {
	sendRawMSearch()

	results, err := goupnp.DiscoverDevices(searchTarget)
	if err != nil {
		xlog.Warnf("discovery", "M-SEARCH failed: %v", err)
		return
	}
	for _, r := range results {
		if r.Err != nil {
			xlog.Warnf("discovery", "probing %s: %v", r.Location, r.Err)
			continue
		}
		udn := r.Root.Device.UDN
		if udn == "" {
			continue
		}
		d.reg.Alive(ctx, udn, r.Location.String(), defaultSearchMaxAge)
	}
}

// sendRawMSearch sends one best-effort M-SEARCH datagram over a
// DSCP-marked socket. goupnp.DiscoverDevices already performs an
// equivalent search internally; this additionally applies
// golang.org/x/net/ipv4 traffic-class marking, on the one socket actually
// under our control (no other outbound connection in this codebase is
// marked). Failures are logged, never fatal — the goupnp search above is
// the search of record.
func sendRawMSearch() {
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(239, 255, 255, 250), Port: 1900})
	if err != nil {
		xlog.Debugf("discovery", "raw M-SEARCH socket: %v", err)
		return
	}
	defer conn.Close()

	if err := ipv4.NewConn(conn).SetTOS(msearchDSCP); err != nil {
		xlog.Debugf("discovery", "raw M-SEARCH SetTOS: %v", err)
	}

	req := strings.Join([]string{
		"M-SEARCH * HTTP/1.1",
		"HOST: 239.255.255.250:1900",
		`MAN: "ssdp:discover"`,
		"MX: 2",
		"ST: " + searchTarget,
		"", "",
	}, "\r\n")
	if _, err := conn.Write([]byte(req)); err != nil {
		xlog.Debugf("discovery", "raw M-SEARCH write: %v", err)
	}
}

// udnFromUSN extracts the leading "uuid:..." token from a USN of the form
// "uuid:XXXX::urn:schemas-upnp-org:service:ContentDirectory:1", falling
// back to the whole USN if it carries no "::" suffix.
func udnFromUSN(usn string) string {
	if i := strings.Index(usn, "::"); i >= 0 {
		return usn[:i]
	}
	return usn
}

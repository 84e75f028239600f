// Package registry implements spec §3's "Registry": the concurrently
// mutated UDN→Device table kept in sync with SSDP discovery events and a
// periodic expiry sweep, with friendlyName-prefix resolution for the REPL
// and VFS resolver. Grounded on djmount's device_list.c/.h contract (named
// from device.c's Device_GetServiceFrom/Device_GetStatusString call sites)
// and on rclone's vfscache background-cleaner goroutine idiom.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/r3mi/djmount-go/internal/device"
	"github.com/r3mi/djmount-go/internal/errs"
	"github.com/r3mi/djmount-go/internal/xlog"
)

// descDocFetcher is narrowed to what Registry needs from package device, so
// tests can substitute a fake device constructor.
type descDocFetcher func(ctx context.Context, descDocURL string) (*device.Device, error)

// entry is one registered device plus its expiry deadline.
type entry struct {
	dev    *device.Device
	expiry time.Time
}

// Registry is the concurrently mutated device table — spec §3's Registry.
type Registry struct {
	mu        sync.Mutex
	byUDN     map[string]*entry
	newDevice descDocFetcher

	metricDevices   prometheus.Gauge
	metricAlive     prometheus.Counter
	metricByebye    prometheus.Counter
	metricExpired   prometheus.Counter
	metricAmbiguous prometheus.Counter
}

// New builds an empty Registry. reg is ready to receive Alive (alive and
// search-response events alike) and ByeBye calls immediately;
// StartExpirySweep must be called
// separately to run the periodic TTL sweep (spec §5: the sweep is its own
// suspension point, not bundled into construction).
func New() *Registry {
	return &Registry{
		byUDN:     make(map[string]*entry),
		newDevice: device.New,
		metricDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "djmount", Subsystem: "registry", Name: "devices",
			Help: "Number of UPnP devices currently registered.",
		}),
		metricAlive: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "djmount", Subsystem: "registry", Name: "alive_total",
			Help: "Number of SSDP alive/search-response events processed.",
		}),
		metricByebye: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "djmount", Subsystem: "registry", Name: "byebye_total",
			Help: "Number of SSDP byebye events processed.",
		}),
		metricExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "djmount", Subsystem: "registry", Name: "expired_total",
			Help: "Number of devices removed by the TTL expiry sweep.",
		}),
		metricAmbiguous: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "djmount", Subsystem: "registry", Name: "ambiguous_lookup_total",
			Help: "Number of friendlyName prefix lookups that matched more than one device.",
		}),
	}
}

// Collectors returns this registry's prometheus collectors, for callers
// wiring a Registry into a metrics registry (spec §2's "Utilities" share
// names logging/metrics as shared infrastructure; prometheus is the
// teacher's metrics dependency).
func (r *Registry) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.metricDevices, r.metricAlive, r.metricByebye, r.metricExpired, r.metricAmbiguous}
}

// Alive handles an SSDP alive or search-response event — spec §4.4:
// "On an alive or search_response for an unknown UDN, it constructs a
// Device; if the UDN is already known, it refreshes the expiry deadline
// only." descDocURL and maxAge come from the discovery layer.
func (r *Registry) Alive(ctx context.Context, udn, descDocURL string, maxAge time.Duration) {
	r.metricAlive.Inc()

	r.mu.Lock()
	if e, ok := r.byUDN[udn]; ok {
		e.expiry = time.Now().Add(maxAge)
		r.mu.Unlock()
		xlog.Debugf(udn, "refreshed, expires in %s", maxAge)
		return
	}
	r.mu.Unlock()

	dev, err := r.newDevice(ctx, descDocURL)
	if err != nil {
		xlog.Warnf(udn, "failed to create device from %s: %v", descDocURL, err)
		return
	}
	if dev.UDN == "" {
		dev.UDN = udn
	}

	r.mu.Lock()
	r.byUDN[udn] = &entry{dev: dev, expiry: time.Now().Add(maxAge)}
	count := len(r.byUDN)
	r.mu.Unlock()
	r.metricDevices.Set(float64(count))

	xlog.Infof(udn, "new device %q (%s)", dev.FriendlyName, dev.DeviceType)
}

// ByeBye handles an SSDP byebye event — spec §4.4: removes the device.
func (r *Registry) ByeBye(udn string) {
	r.metricByebye.Inc()
	r.mu.Lock()
	_, existed := r.byUDN[udn]
	delete(r.byUDN, udn)
	count := len(r.byUDN)
	r.mu.Unlock()
	if existed {
		r.metricDevices.Set(float64(count))
		xlog.Infof(udn, "byebye, device removed")
	}
}

// sweepOnce removes every device whose expiry has passed — the periodic
// expiry sweep named in spec §3's Registry and §2's "TTL expiry".
func (r *Registry) sweepOnce(now time.Time) {
	r.mu.Lock()
	var expired []string
	for udn, e := range r.byUDN {
		if now.After(e.expiry) {
			expired = append(expired, udn)
		}
	}
	for _, udn := range expired {
		delete(r.byUDN, udn)
	}
	count := len(r.byUDN)
	r.mu.Unlock()

	if len(expired) > 0 {
		r.metricExpired.Add(float64(len(expired)))
		r.metricDevices.Set(float64(count))
		for _, udn := range expired {
			xlog.Infof(udn, "expired, device removed")
		}
	}
}

// StartExpirySweep runs sweepOnce every interval until ctx is cancelled,
// the Go counterpart of a periodic SSDP advertisement-expiry check. Modeled
// on rclone's vfscache background cleaner goroutine (cache.go), which runs
// its own sweep on a time.Ticker until told to stop.
func (r *Registry) StartExpirySweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.sweepOnce(now)
			}
		}
	}()
}

// Device returns the device registered under udn, or nil.
func (r *Registry) Device(udn string) *device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byUDN[udn]
	if !ok {
		return nil
	}
	return e.dev
}

// Devices returns a snapshot of every currently registered device, in no
// particular order.
func (r *Registry) Devices() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*device.Device, 0, len(r.byUDN))
	for _, e := range r.byUDN {
		out = append(out, e.dev)
	}
	return out
}

// Resolve finds a device by UDN, exact friendlyName, or a case-insensitive
// friendlyName prefix — spec §4.4's name-resolution rule for the REPL and
// VFS resolver. An ambiguous prefix match is an error, not a pick-first.
func (r *Registry) Resolve(name string) (*device.Device, error) {
	if name == "" {
		return nil, errs.New(errs.InvalidArgument, "Resolve", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byUDN[name]; ok {
		return e.dev, nil
	}

	lowered := strings.ToLower(name)
	var exact, prefix []*device.Device
	for _, e := range r.byUDN {
		fn := strings.ToLower(e.dev.FriendlyName)
		switch {
		case fn == lowered:
			exact = append(exact, e.dev)
		case strings.HasPrefix(fn, lowered):
			prefix = append(prefix, e.dev)
		}
	}

	switch {
	case len(exact) == 1:
		return exact[0], nil
	case len(exact) > 1:
		r.metricAmbiguous.Inc()
		xlog.Errorf(name, "ambiguous friendlyName match: %d devices", len(exact))
		return nil, errs.New(errs.InvalidArgument, name, fmt.Errorf("ambiguous friendlyName: %d matches", len(exact)))
	case len(prefix) == 1:
		return prefix[0], nil
	case len(prefix) > 1:
		r.metricAmbiguous.Inc()
		xlog.Errorf(name, "ambiguous friendlyName prefix: %d devices", len(prefix))
		return nil, errs.New(errs.InvalidArgument, name, fmt.Errorf("ambiguous friendlyName prefix: %d matches", len(prefix)))
	}

	return nil, errs.New(errs.NotFound, name, nil)
}

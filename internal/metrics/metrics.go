// Package metrics wires the Registry's and every device's ContentDirectory
// cache Prometheus collectors into one scrape endpoint — spec §2's note
// that cache diagnostics are available both as human-readable text
// (Device.StatusString/ContentDirectory.StatusString) and as Prometheus
// metrics, mirroring how the teacher exposes both core/stats text and its
// own Prometheus collectors (github.com/prometheus/client_golang, already
// in the teacher's go.mod).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/r3mi/djmount-go/internal/device"
)

// deviceRegistry is the capability the dynamic collector needs, narrowed
// the way vfs.DeviceRegistry is — registry.Registry already satisfies it.
type deviceRegistry interface {
	Devices() []*device.Device
	Collectors() []prometheus.Collector
}

// collector gathers the Registry's own collectors plus every currently
// registered device's ContentDirectory cache collectors at each scrape.
// Devices come and go between scrapes (SSDP alive/byebye), so the set of
// child collectors cannot be fixed up front the way a static exporter's
// can; Describe is deliberately left empty (unchecked collector) so new
// devices' metrics appear without a restart.
type collector struct {
	reg deviceRegistry
}

var _ prometheus.Collector = (*collector)(nil)

// Describe intentionally sends no descriptors, marking this an "unchecked"
// collector (see prometheus.Collector's doc on Describe): the device set
// this aggregates over changes at runtime, so there is no fixed
// descriptor list to advertise ahead of a scrape.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for _, coll := range c.reg.Collectors() {
		coll.Collect(ch)
	}
	for _, dev := range c.reg.Devices() {
		if dev.CDS == nil {
			continue
		}
		for _, coll := range dev.CDS.Collectors() {
			coll.Collect(ch)
		}
	}
}

// Handler builds an http.Handler serving reg's and its devices' metrics in
// the Prometheus exposition format, over a private registry (not the
// global DefaultRegisterer) so a process embedding this package alongside
// others never collides on metric names.
func Handler(reg deviceRegistry) http.Handler {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(&collector{reg: reg})
	return promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
}

package vfs

import (
	"fmt"
	"runtime"
	"time"
)

// memstatsFile is the one global debug entry, alongside one entry per
// registered device — djmount's "leak"/"leakfull" REPL commands dump
// talloc memory reports; since Go has no talloc hierarchy to report on,
// SPEC_FULL.md §4 repurposes this as runtime.ReadMemStats headline numbers
// plus the registry/device counts already exposed by StatusString.
const memstatsFile = "memstats"

// debugTreeEntries lists the ".debug" directory: one synthetic file per
// currently registered device (named by UDN, since friendlyName may
// collide) plus the process-wide memstats file.
func (r *Resolver) debugTreeEntries() []Entry {
	devices := r.reg.Devices()
	entries := make([]Entry, 0, len(devices)+1)
	entries = append(entries, Entry{Name: memstatsFile, Kind: KindFile})
	for _, dev := range devices {
		entries = append(entries, Entry{Name: dev.UDN, Kind: KindFile})
	}
	return entries
}

// hasDebugFile reports whether name is a valid ".debug" entry, without
// paying the cost of rendering its content.
func (r *Resolver) hasDebugFile(name string) bool {
	if name == memstatsFile {
		return true
	}
	return r.reg.Device(name) != nil
}

// debugFileContent renders one ".debug" file's content: either the
// process memstats summary or one device's full StatusString (the debug
// variant, matching djmount's per-device talloc report being shown in
// full under "leakfull").
func (r *Resolver) debugFileContent(name string) []byte {
	if name == memstatsFile {
		return []byte(r.memstatsSummary())
	}
	if dev := r.reg.Device(name); dev != nil {
		return []byte(dev.StatusString(true))
	}
	return nil
}

// memstatsSummary is djmount-go's "leak"/"leakfull" command content: Go's
// native equivalent of dumping talloc's total allocated blocks/bytes,
// using runtime.ReadMemStats's headline counters plus the registry's own
// device count (spec §4's supplemented "leak"/"leakfull" REPL commands,
// repurposed for the ".debug" tree rather than a REPL-only report).
func (r *Resolver) memstatsSummary() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return fmt.Sprintf(
		"Uptime        = %s\n"+
			"Goroutines    = %d\n"+
			"HeapAlloc     = %d bytes\n"+
			"HeapObjects   = %d\n"+
			"TotalAlloc    = %d bytes\n"+
			"NumGC         = %d\n"+
			"RegisteredDevices = %d\n",
		time.Since(r.startedAt).Round(time.Second),
		runtime.NumGoroutine(),
		m.HeapAlloc,
		m.HeapObjects,
		m.TotalAlloc,
		m.NumGC,
		len(r.reg.Devices()),
	)
}

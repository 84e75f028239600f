package registry

import (
	"context"
	"testing"
	"time"

	"github.com/r3mi/djmount-go/internal/device"
)

func fakeDevice(udn, friendlyName string) *device.Device {
	return &device.Device{UDN: udn, FriendlyName: friendlyName, CreatedAt: time.Now()}
}

func newTestRegistry(devices map[string]*device.Device) *Registry {
	r := New()
	r.newDevice = func(ctx context.Context, descDocURL string) (*device.Device, error) {
		return devices[descDocURL], nil
	}
	return r
}

func TestAliveCreatesDeviceOnce(t *testing.T) {
	dev := fakeDevice("uuid:dev1", "Living Room")
	r := newTestRegistry(map[string]*device.Device{"http://host/desc.xml": dev})

	r.Alive(context.Background(), "uuid:dev1", "http://host/desc.xml", time.Minute)
	if got := r.Device("uuid:dev1"); got == nil || got.FriendlyName != "Living Room" {
		t.Fatalf("Device() = %+v", got)
	}

	// A second alive for the same UDN must only refresh, not recreate.
	calls := 0
	r.newDevice = func(ctx context.Context, descDocURL string) (*device.Device, error) {
		calls++
		return dev, nil
	}
	r.Alive(context.Background(), "uuid:dev1", "http://host/desc.xml", time.Minute)
	if calls != 0 {
		t.Fatalf("newDevice called %d times on refresh, want 0", calls)
	}
}

func TestByeByeRemovesDevice(t *testing.T) {
	dev := fakeDevice("uuid:dev1", "Living Room")
	r := newTestRegistry(map[string]*device.Device{"http://host/desc.xml": dev})
	r.Alive(context.Background(), "uuid:dev1", "http://host/desc.xml", time.Minute)

	r.ByeBye("uuid:dev1")
	if got := r.Device("uuid:dev1"); got != nil {
		t.Fatalf("Device() after byebye = %+v, want nil", got)
	}
}

func TestSweepOnceRemovesExpired(t *testing.T) {
	dev := fakeDevice("uuid:dev1", "Living Room")
	r := newTestRegistry(map[string]*device.Device{"http://host/desc.xml": dev})
	r.Alive(context.Background(), "uuid:dev1", "http://host/desc.xml", time.Millisecond)

	r.sweepOnce(time.Now().Add(time.Second))
	if got := r.Device("uuid:dev1"); got != nil {
		t.Fatalf("Device() after sweep = %+v, want nil (expired)", got)
	}
}

func TestResolveByUDNFriendlyNameAndPrefix(t *testing.T) {
	dev1 := fakeDevice("uuid:dev1", "Living Room Server")
	dev2 := fakeDevice("uuid:dev2", "Bedroom Server")
	r := newTestRegistry(map[string]*device.Device{
		"http://host/1.xml": dev1,
		"http://host/2.xml": dev2,
	})
	r.Alive(context.Background(), "uuid:dev1", "http://host/1.xml", time.Minute)
	r.Alive(context.Background(), "uuid:dev2", "http://host/2.xml", time.Minute)

	if got, err := r.Resolve("uuid:dev1"); err != nil || got != dev1 {
		t.Fatalf("Resolve by UDN: got=%+v err=%v", got, err)
	}
	if got, err := r.Resolve("living room server"); err != nil || got != dev1 {
		t.Fatalf("Resolve by exact friendlyName (case-insensitive): got=%+v err=%v", got, err)
	}
	if got, err := r.Resolve("bedroom"); err != nil || got != dev2 {
		t.Fatalf("Resolve by prefix: got=%+v err=%v", got, err)
	}
	if _, err := r.Resolve("nonexistent"); err == nil {
		t.Fatal("expected error resolving unknown name")
	}
}

func TestResolveAmbiguousPrefixFails(t *testing.T) {
	dev1 := fakeDevice("uuid:dev1", "Server One")
	dev2 := fakeDevice("uuid:dev2", "Server Two")
	r := newTestRegistry(map[string]*device.Device{
		"http://host/1.xml": dev1,
		"http://host/2.xml": dev2,
	})
	r.Alive(context.Background(), "uuid:dev1", "http://host/1.xml", time.Minute)
	r.Alive(context.Background(), "uuid:dev2", "http://host/2.xml", time.Minute)

	if _, err := r.Resolve("server"); err == nil {
		t.Fatal("expected ambiguous-prefix error")
	}
}

func TestDevicesSnapshot(t *testing.T) {
	dev1 := fakeDevice("uuid:dev1", "One")
	r := newTestRegistry(map[string]*device.Device{"http://host/1.xml": dev1})
	r.Alive(context.Background(), "uuid:dev1", "http://host/1.xml", time.Minute)

	devices := r.Devices()
	if len(devices) != 1 || devices[0] != dev1 {
		t.Fatalf("Devices() = %+v", devices)
	}
}

package service

import (
	"testing"
	"time"
)

func TestStatusStringIncludesFields(t *testing.T) {
	s, err := New("urn:upnp-org:serviceId:ConnectionManager", "urn:schemas-upnp-org:service:ConnectionManager:1",
		"http://192.168.1.5:80/ctl/CM", "http://192.168.1.5:80/evt/CM")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := s.StatusString(false, "  ")
	for _, want := range []string{s.ServiceID, s.ServiceType, s.ControlURL, s.EventURL} {
		if !contains(out, want) {
			t.Errorf("StatusString missing %q:\n%s", want, out)
		}
	}
	if contains(out, "SID") {
		t.Errorf("StatusString should not mention SID before Subscribe:\n%s", out)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s, err := New("id", "type", "http://x/ctl", "http://x/evt")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.SID(); got != "" {
		t.Fatalf("SID before subscribe = %q, want empty", got)
	}
	s.Subscribe("uuid:abc", 30*time.Second)
	if got := s.SID(); got != "uuid:abc" {
		t.Fatalf("SID after subscribe = %q", got)
	}
	out := s.StatusString(false, "")
	if !contains(out, "uuid:abc") {
		t.Errorf("StatusString should include SID after subscribe:\n%s", out)
	}
	s.Unsubscribe()
	if got := s.SID(); got != "" {
		t.Fatalf("SID after unsubscribe = %q, want empty", got)
	}
}

func TestStateVariable(t *testing.T) {
	s, err := New("id", "type", "http://x/ctl", "http://x/evt")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.StateVariable("SystemUpdateID"); ok {
		t.Fatalf("expected no value before SetStateVariable")
	}
	s.SetStateVariable("SystemUpdateID", "7")
	v, ok := s.StateVariable("SystemUpdateID")
	if !ok || v != "7" {
		t.Fatalf("StateVariable = %q, %v, want 7, true", v, ok)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

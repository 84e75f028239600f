// Package service implements the generic UPnP service base: spec §3's
// "Service" and §4.6's polymorphic send-action/status-string capability
// set. It is grounded on djmount's Service_* public API (referenced from
// device.c's ServiceFactory and Device_GetServiceFrom) and on dsymonds'
// Sonos control point for the goupnp SOAP-client wiring pattern.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/r3mi/djmount-go/internal/errs"
	"github.com/r3mi/djmount-go/internal/soapaction"
	"github.com/r3mi/djmount-go/internal/xlog"
)

// StatusStringer is the polymorphic capability spec §4.6 names: a service
// renders its own status summary, and subclasses (ContentDirectory) append
// extra diagnostics by embedding a Service and overriding this method.
type StatusStringer interface {
	StatusString(debug bool, indent string) string
}

// Service is one entry of a Device's service list — spec §3's Service.
// ContentDirectory embeds a Service and overrides StatusString.
type Service struct {
	ServiceID   string
	ServiceType string
	ControlURL  string
	EventURL    string

	client *soapaction.Client

	mu                  sync.Mutex
	sid                 string // subscription id, set once Subscribe succeeds
	subscriptionTimeout time.Duration
	stateVars           map[string]string // last-known state-variable table
}

// New builds a Service from the fields djmount's ServiceFactory reads out of
// one <service> element of a device description document.
func New(serviceID, serviceType, controlURL, eventURL string) (*Service, error) {
	c, err := soapaction.New(controlURL, serviceType)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, serviceID, err, "build SOAP client")
	}
	return &Service{
		ServiceID:   serviceID,
		ServiceType: serviceType,
		ControlURL:  controlURL,
		EventURL:    eventURL,
		client:      c,
		stateVars:   make(map[string]string),
	}, nil
}

// SID returns the current event subscription id, or "" if unsubscribed.
func (s *Service) SID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid
}

// SendAction invokes one named action with arbitrary in/out argument
// structs — spec §4.6's send_action(action_name, (name,value)*) → document,
// narrowed to Go's typed marshaling instead of a generic name/value list,
// since every action this control point issues (Browse, and whatever a REPL
// operator types via "action") has a known argument shape at the call site.
func (s *Service) SendAction(ctx context.Context, action string, in, out interface{}) error {
	return s.client.Send(ctx, action, in, out)
}

// StatusString renders the per-service block of a Device's status dump, the
// Go counterpart of djmount's Service_GetStatusString.
func (s *Service) StatusString(debug bool, indent string) string {
	s.mu.Lock()
	sid := s.sid
	s.mu.Unlock()

	out := fmt.Sprintf("%s+- ServiceId   = %s\n", indent, s.ServiceID)
	out += fmt.Sprintf("%s+- ServiceType = %s\n", indent, s.ServiceType)
	out += fmt.Sprintf("%s+- ControlURL  = %s\n", indent, s.ControlURL)
	out += fmt.Sprintf("%s+- EventURL    = %s\n", indent, s.EventURL)
	if sid != "" {
		out += fmt.Sprintf("%s+- SID         = %s\n", indent, sid)
	}
	return out
}

// Subscribe is the eventing subscription skeleton spec §4.6 mentions as a
// consumer of EventURL: djmount itself never issued GENA subscriptions (it
// relies on SSDP alive/byebye and polling Browse instead), so there is no
// original behavior to port. This wires just enough to let a future GENA
// transport (goupnp does not provide one) slot in: it records a SID and
// timeout, without performing any network I/O yet.
func (s *Service) Subscribe(sid string, timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sid = sid
	s.subscriptionTimeout = timeout
	xlog.Infof(s.ServiceID, "subscribed, sid=%s timeout=%s", sid, timeout)
}

// Unsubscribe clears any recorded subscription state.
func (s *Service) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sid == "" {
		return
	}
	xlog.Infof(s.ServiceID, "unsubscribed, sid=%s", s.sid)
	s.sid = ""
	s.subscriptionTimeout = 0
}

// SetStateVariable records the last-known value of an evented state
// variable, as would arrive over a GENA NOTIFY once Subscribe is backed by
// a real transport.
func (s *Service) SetStateVariable(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateVars[name] = value
}

// StateVariable returns the last-known value of name, and whether it has
// ever been recorded.
func (s *Service) StateVariable(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.stateVars[name]
	return v, ok
}

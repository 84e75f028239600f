// Package soapaction is the thin SOAP transport adapter djmount-go's service
// and content-directory clients send actions through. It wraps
// github.com/huin/goupnp's soap.SOAPClient, the same pattern dsymonds'
// Sonos control point (other_examples/5c109f71) uses: build one SOAPClient
// per control URL, then marshal/unmarshal Go structs through
// PerformActionCtx rather than hand-rolling SOAP envelopes, the way djmount's
// upnp_send_action built raw IXML argument lists.
package soapaction

import (
	"context"
	"net/url"

	"github.com/huin/goupnp/soap"

	"github.com/r3mi/djmount-go/internal/errs"
	"github.com/r3mi/djmount-go/internal/xlog"
)

// Client sends actions to a single UPnP service's control URL.
type Client struct {
	controlURL  string
	serviceType string
	soapClient  soap.SOAPClient
}

// New builds a Client for one service, identified by its control URL and
// serviceType (the "urn:schemas-upnp-org:service:...:N" string sent as the
// SOAPAction header).
func New(controlURL, serviceType string) (*Client, error) {
	u, err := url.Parse(controlURL)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, controlURL, err, "parse control URL")
	}
	return &Client{
		controlURL:  controlURL,
		serviceType: serviceType,
		soapClient:  soap.SOAPClient{EndpointURL: *u},
	}, nil
}

// ControlURL returns the URL actions are sent to.
func (c *Client) ControlURL() string { return c.controlURL }

// Send performs one SOAP action. in is marshaled as the request's argument
// struct (field order is the wire argument order, matching goupnp's
// soap.SOAPClient convention); out receives the response arguments. Either
// may be nil for actions with no in/out arguments.
func (c *Client) Send(ctx context.Context, action string, in, out interface{}) error {
	if in == nil {
		in = struct{}{}
	}
	if out == nil {
		out = &struct{}{}
	}
	xlog.Debugf(c.controlURL, "SOAP action %s/%s", c.serviceType, action)
	if err := c.soapClient.PerformActionCtx(ctx, c.serviceType, action, in, out); err != nil {
		return errs.Wrap(errs.TransportFailure, c.controlURL, err, "action %s failed", action)
	}
	return nil
}

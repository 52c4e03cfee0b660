// Package transport holds the http.RoundTripper stack used to talk to the
// backend: bearer attachment with 401/403 recovery, request ids and
// network-level retries.
package transport

import "net/http"

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Constructor wraps a RoundTripper.
type Constructor func(http.RoundTripper) http.RoundTripper

// Chain is an immutable list of Constructors.
type Chain struct {
	constructors []Constructor
}

func NewChain(constructors ...Constructor) Chain {
	return Chain{append([]Constructor(nil), constructors...)}
}

// Then builds the stack around rt. NewChain(a, b).Then(rt) is a(b(rt)), so
// requests pass through a first. A nil rt means http.DefaultTransport.
func (c Chain) Then(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	for i := len(c.constructors) - 1; i >= 0; i-- {
		rt = c.constructors[i](rt)
	}
	return rt
}

// Append returns a new chain with constructors added closest to the transport.
func (c Chain) Append(constructors ...Constructor) Chain {
	all := make([]Constructor, 0, len(c.constructors)+len(constructors))
	all = append(all, c.constructors...)
	all = append(all, constructors...)
	return Chain{all}
}

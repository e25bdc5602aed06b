package http

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultTimeout is the per-call timeout used when a descriptor does not
// carry its own.
const DefaultTimeout = 10 * time.Second

// Credentials holds the digest auth username and password for a device.
type Credentials struct {
	Username string
	Password string
}

// Descriptor is a fully-resolved request: everything Execute needs to issue
// one call. Descriptors are built fresh per attempt and never mutated after
// construction.
type Descriptor struct {
	// URL is the complete request URL including scheme, host, path and query.
	URL string
	// Method is the HTTP method; device calls are always POSTed JSON.
	Method string
	// Body is the serialized payload, already encoded for its wire format.
	Body []byte
	// Headers are additional request headers; Content-Type defaults to
	// application/json when the body is non-empty.
	Headers map[string]string
	// Auth carries the digest credentials. Empty username disables auth.
	Auth Credentials
	// Timeout bounds the whole call including the digest round-trip.
	Timeout time.Duration
}

// Validate checks that the descriptor is well-formed before any network I/O.
func (d *Descriptor) Validate() error {
	u, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q (only http and https are allowed)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	if d.Method == "" {
		return fmt.Errorf("descriptor has no HTTP method")
	}
	return nil
}

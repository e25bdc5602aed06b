// Package preset owns the named test configurations the engine executes:
// loading and saving the preset store, validating it, and resolving a preset
// plus live settings into a request descriptor.
package preset

import (
	"fmt"
	"strings"

	"github.com/hbruhn/devprobe/packages/payload"
)

// Mode separates known-good presets from deliberately broken ones.
type Mode string

const (
	Happy   Mode = "happy"
	Unhappy Mode = "unhappy"
)

// Preset is one named test configuration. The engine reads presets, never
// mutates them; authoring happens outside the execution path.
type Preset struct {
	Name string `json:"name"`
	// Endpoint is the endpoint group, e.g. "/api/call". The method segment
	// is appended or enveloped per the payload format at resolve time.
	Endpoint string `json:"endpoint"`
	// Method is the device API method name, e.g. "GetContacts".
	Method string `json:"method"`
	// PayloadFile locates the params JSON relative to the configs dir.
	// Empty means a parameterless, GET-style call.
	PayloadFile string         `json:"payloadFile,omitempty"`
	Format      payload.Format `json:"format"`
	Mode        Mode           `json:"mode"`
	// SimpleFormat appends the device's format=simple query toggle.
	SimpleFormat bool `json:"simpleFormat,omitempty"`
}

// Validate checks the fields a preset needs before it can be resolved.
func (p *Preset) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("preset has no name")
	}
	if !strings.HasPrefix(p.Endpoint, "/") {
		return fmt.Errorf("preset %q: endpoint %q must start with /", p.Name, p.Endpoint)
	}
	if p.Method == "" {
		return fmt.Errorf("preset %q: method required", p.Name)
	}
	if p.Mode != Happy && p.Mode != Unhappy {
		return fmt.Errorf("preset %q: mode must be happy or unhappy, got %q", p.Name, p.Mode)
	}
	return nil
}

package preset

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/hbruhn/devprobe/packages/core/config"
	"github.com/hbruhn/devprobe/packages/http"
	"github.com/hbruhn/devprobe/packages/payload"
)

// Resolve builds the immutable request descriptor for one attempt from a
// preset, its loaded params and the live settings. Device calls are always
// POSTed JSON regardless of the device-level method semantics.
func Resolve(p Preset, params json.RawMessage, settings *config.Settings) (*http.Descriptor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := settings.ValidateDevice(); err != nil {
		return nil, err
	}

	body, err := payload.EncodeBody(p.Format, p.Method, params)
	if err != nil {
		return nil, fmt.Errorf("preset %q: %w", p.Name, err)
	}

	q := payload.QueryValues(p.Format, p.Method)
	if p.SimpleFormat || settings.GetSimpleFormat() {
		q.Set("format", "simple")
	}

	u := url.URL{
		Scheme:   settings.Scheme(),
		Host:     settings.DeviceIP,
		Path:     payload.EndpointPath(p.Format, p.Endpoint, p.Method),
		RawQuery: q.Encode(),
	}

	return &http.Descriptor{
		URL:    u.String(),
		Method: "POST",
		Body:   body,
		Auth: http.Credentials{
			Username: settings.Username,
			Password: settings.Password,
		},
		Timeout: time.Duration(settings.TimeoutMS) * time.Millisecond,
	}, nil
}

package preset

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hbruhn/devprobe/packages/payload"
)

// The device API catalog the generator fans presets out over. Grouped by
// operation kind because the unhappy variants only make sense where a
// payload exists.
var (
	GetEndpoints = []string{
		"/api/intercom/GetContacts",
		"/api/call/GetSIPAccount",
		"/api/call/GetSIPAccounts",
		"/api/call/GetSIPAccountStatus",
		"/api/call/GetServiceCapabilities",
		"/api/call/GetSupportedSIPAccountAttributes",
		"/api/call/GetSupportedSIPConfigurationAttributes",
		"/api/call/GetSIPConfiguration",
		"/api/call/GetSupportedMediaEncryptionModes",
		"/api/call/GetDefaultAudioCodecs",
		"/api/call/GetSupportedAudioCodecs",
		"/api/call/GetAudioCodecs",
		"/api/call/GetCallStatus",
	}

	SetEndpoints = []string{
		"/api/call/SetSIPAccount",
		"/api/call/SetSIPAccounts",
		"/api/call/SetSIPConfiguration",
		"/api/call/SetAudioCodecs",
		"/api/call/Call",
		"/api/call/TerminateCall",
		"/api/intercom/SetContacts",
	}

	RemoveEndpoints = []string{
		"/api/call/RemoveSIPAccount",
		"/api/call/RemoveSIPAccounts",
		"/api/intercom/RemoveContacts",
	}
)

// getParams holds the GET-style calls that still take a selector payload.
var getParams = map[string]any{
	"GetSIPAccountStatus": map[string]any{"SIPAccountId": "sip_account_0"},
	"GetSIPAccount":       map[string]any{"SIPAccountId": "sip_account_0"},
	"GetCallStatus":       map[string]any{"CallId": "Out-18-18-SIP"},
}

var removeParams = map[string]any{
	"RemoveSIPAccount":  map[string]any{"SIPAccountId": "sip_account_0"},
	"RemoveSIPAccounts": map[string]any{"SIPAccountId": []any{"sip_account_0", "sip_account_1"}},
	"RemoveContacts":    map[string]any{"ids": []any{uuid.New().String()}},
}

func setParams() map[string]any {
	return map[string]any{
		"SetSIPAccount": map[string]any{"SIPAccount": randomSIPAccount()},
		"SetSIPAccounts": map[string]any{
			"SIPAccounts": map[string]any{
				"SIPAccount": []any{randomSIPAccount(), randomSIPAccount()},
			},
		},
		"SetSIPConfiguration": map[string]any{"SIPConfiguration": map[string]any{"SIPEnabled": true}},
		"SetAudioCodecs": map[string]any{
			"AudioCodec": []any{map[string]any{"Name": "G.722", "SampleRate": float64(16000)}},
		},
		"SetContacts":   map[string]any{"contacts": []any{randomContact()}},
		"TerminateCall": map[string]any{"CallId": "Out-18-18-SIP"},
		"Call":          map[string]any{"To": "sip:10.27.35.8:5060"},
	}
}

func randomSIPAccount() map[string]any {
	return map[string]any{
		"UserId":       fmt.Sprintf("user%d", 1000+rand.Intn(9000)),
		"Password":     uuid.New().String()[:16],
		"Registrar":    fmt.Sprintf("192.168.0.%d", 1+rand.Intn(254)),
		"PublicDomain": fmt.Sprintf("example%d.com", 1+rand.Intn(100)),
	}
}

func randomContact() map[string]any {
	firstName := fmt.Sprintf("Tester %02d", 1+rand.Intn(99))
	return map[string]any{
		"id":        uuid.New().String(),
		"type":      "Person",
		"firstName": firstName,
		"lastName":  "",
		"callInformation": []any{map[string]any{
			"type":      "SIP",
			"address":   fmt.Sprintf("192168%d", 1000+rand.Intn(9000)),
			"accountid": fmt.Sprintf("sip_account_%d", rand.Intn(10)),
		}},
		"callForkingType": "sequential",
		"UIAttributes":    []any{map[string]any{"Name": "DisplayName", "Value": firstName}},
	}
}

// GenerateResult summarizes one generation pass.
type GenerateResult struct {
	Presets      []Preset
	HappyCount   int
	UnhappyCount int
}

// Generate writes params files for the whole endpoint catalog under
// configsDir and returns the matching presets: one happy preset per endpoint
// and wire format, plus four unhappy mutations per endpoint that carries a
// payload.
func Generate(configsDir string) (*GenerateResult, error) {
	result := &GenerateResult{}

	sections := []struct {
		name      string
		endpoints []string
		params    map[string]any
	}{
		{"get", GetEndpoints, getParams},
		{"set", SetEndpoints, setParams()},
		{"remove", RemoveEndpoints, removeParams},
	}

	for _, section := range sections {
		for _, endpoint := range section.endpoints {
			method := filepath.Base(endpoint)
			group := filepath.Dir(endpoint)
			params := section.params[method]

			file := ""
			if params != nil {
				file = filepath.Join(section.name, method+".json")
				if err := writeParams(configsDir, file, params); err != nil {
					return nil, err
				}
			}

			for _, format := range payload.Formats() {
				result.Presets = append(result.Presets, Preset{
					Name:        fmt.Sprintf("%s_%s", method, format),
					Endpoint:    group,
					Method:      method,
					PayloadFile: filepath.ToSlash(file),
					Format:      format,
					Mode:        Happy,
				})
				result.HappyCount++
			}

			if params == nil {
				continue
			}
			for _, variant := range payload.Variants() {
				mutated, err := payload.Mutate(variant, params)
				if err != nil {
					return nil, err
				}
				vfile := filepath.Join(section.name, "unhappy",
					fmt.Sprintf("%s_unhappy_%s.json", method, variant))
				if err := writeParams(configsDir, vfile, mutated); err != nil {
					return nil, err
				}
				result.Presets = append(result.Presets, Preset{
					Name:        fmt.Sprintf("%s_unhappy_%s", method, variant),
					Endpoint:    group,
					Method:      method,
					PayloadFile: filepath.ToSlash(vfile),
					Format:      payload.PathStyle,
					Mode:        Unhappy,
				})
				result.UnhappyCount++
			}
		}
	}

	return result, nil
}

func writeParams(configsDir, rel string, params any) error {
	path := filepath.Join(configsDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

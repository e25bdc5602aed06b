package payload

import (
	"fmt"
	"math/rand"
	"strings"
)

// Variant names an unhappy-path mutation applied to a known-good payload.
type Variant string

const (
	// NoData empties every value: strings become "", numbers -1, arrays [].
	NoData Variant = "no_data"
	// InvalidData replaces every value with an out-of-domain marker.
	InvalidData Variant = "invalid_data"
	// WrongType swaps every value for one of a mismatched JSON type.
	WrongType Variant = "wrong_type"
	// Fuzz injects oversized, injection-style and non-ASCII values.
	Fuzz Variant = "fuzz"
)

// Variants returns all mutation variants in generation order.
func Variants() []Variant {
	return []Variant{NoData, InvalidData, WrongType, Fuzz}
}

var fuzzStrings = []string{
	strings.Repeat("A", 5000),
	"<script>alert(1)</script>",
	"' OR 1=1 --",
	"\x00\x01\x02",
	"漢字🚀",
}

var fuzzNumbers = []float64{0, -1, 999999999999999999, 1e308, -1e308}

// Mutate derives an unhappy-path payload from a decoded JSON value. The
// input is never modified; containers are rebuilt recursively.
func Mutate(v Variant, data any) (any, error) {
	switch v {
	case NoData:
		return mutateNoData(data), nil
	case InvalidData:
		return mutateInvalid(data), nil
	case WrongType:
		return mutateWrongType(data), nil
	case Fuzz:
		return mutateFuzz(data), nil
	default:
		return nil, fmt.Errorf("unknown payload variant %q", v)
	}
}

func mutateNoData(data any) any {
	switch d := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(d))
		for k, v := range d {
			out[k] = mutateNoData(v)
		}
		return out
	case []any:
		return []any{}
	case string:
		return ""
	case float64:
		return float64(-1)
	default:
		return nil
	}
}

func mutateInvalid(data any) any {
	switch d := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(d))
		for k, v := range d {
			out[k] = mutateInvalid(v)
		}
		return out
	case []any:
		return []any{"INVALID"}
	case string:
		return "INVALID"
	case float64:
		return float64(-999)
	default:
		return "INVALID"
	}
}

func mutateWrongType(data any) any {
	switch d := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(d))
		for k, v := range d {
			out[k] = mutateWrongType(v)
		}
		return out
	case []any:
		return "WRONG_TYPE"
	case bool:
		return "true"
	case string:
		return float64(12345)
	case float64:
		return "NOT_A_NUMBER"
	default:
		return nil
	}
}

func mutateFuzz(data any) any {
	switch d := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(d))
		for k, v := range d {
			out[k] = mutateFuzz(v)
		}
		return out
	case []any:
		if len(d) == 0 {
			return []any{nil}
		}
		return []any{mutateFuzz(d[0])}
	case bool:
		return "TRUEEEEE"
	case string:
		return fuzzStrings[rand.Intn(len(fuzzStrings))]
	case float64:
		return fuzzNumbers[rand.Intn(len(fuzzNumbers))]
	default:
		return nil
	}
}

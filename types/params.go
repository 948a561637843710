package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Params holds strategy parameters keyed by name. Values are numbers or strings,
// as they arrive from JSON request bodies or from optimizer grids.
type Params map[string]any

func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Float returns the named parameter as a finite float, or def when it is absent.
func (p Params) Float(name string, def float64) (float64, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return def, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("param %s: %w", name, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("param %s: %v is not a finite number", name, v)
	}
	return f, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

// Int returns the named parameter as an int, or def when it is absent.
// Fractional values such as 14.5 are rejected.
func (p Params) Int(name string, def int) (int, error) {
	f, err := p.Float(name, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("param %s: %v is not a whole number", name, p[name])
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("param %s: %v is out of range", name, p[name])
	}
	return int(f), nil
}

// String returns the named parameter as a string, or def when it is absent.
func (p Params) String(name string, def string) (string, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %s: expected string, got %T", name, v)
	}
	return s, nil
}

// Key renders the params in a stable order, e.g. "long_period=200,short_period=50".
func (p Params) Key() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, ",")
}

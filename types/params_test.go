package types

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParams_Float(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    float64
		wantErr bool
	}{
		{"absent uses default", nil, 7, false},
		{"float", 2.5, 2.5, false},
		{"int", 3, 3, false},
		{"json number", json.Number("1.25"), 1.25, false},
		{"numeric string", " 4.5 ", 4.5, false},
		{"garbage string", "wide", 0, true},
		{"nan string", "NaN", 0, true},
		{"inf string", "Inf", 0, true},
		{"negative inf string", "-Inf", 0, true},
		{"nan float", math.NaN(), 0, true},
		{"inf float", math.Inf(-1), 0, true},
		{"unsupported type", []int{1}, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Params{}
			if tc.value != nil {
				p["x"] = tc.value
			}
			got, err := p.Float("x", 7)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParams_Int(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{"absent uses default", nil, 14, false},
		{"whole float", 20.0, 20, false},
		{"whole string", "9", 9, false},
		{"fractional float", 14.9, 0, true},
		{"fractional string", "2.5", 0, true},
		{"out of range", 1e300, 0, true},
		{"nan", "NaN", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Params{}
			if tc.value != nil {
				p["n"] = tc.value
			}
			got, err := p.Int("n", 14)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

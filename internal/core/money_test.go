package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain integer", input: "42", want: "42"},
		{name: "two decimals", input: "12.34", want: "12.34"},
		{name: "comma separator", input: "12,34", want: "12.34"},
		{name: "surrounding whitespace", input: "  7.50  ", want: "7.5"},
		{name: "rounds half up", input: "1.005", want: "1.01"},
		{name: "rounds down", input: "1.004", want: "1"},
		{name: "zero rejected", input: "0", wantErr: true},
		{name: "rounds to zero rejected", input: "0.001", wantErr: true},
		{name: "negative rejected", input: "-5", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
		{name: "whitespace only rejected", input: "   ", wantErr: true},
		{name: "malformed rejected", input: "12.3.4", wantErr: true},
		{name: "text rejected", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) = %s, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("ParseAmount(%q) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("ParseAmount(%q) error = %v, want wrapped ErrValidation", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(decimal.NewFromInt(1)); err != nil {
		t.Errorf("ValidateAmount(1) = %v, want nil", err)
	}
	if err := ValidateAmount(decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("ValidateAmount(0) = %v, want ErrInvalidAmount", err)
	}
	if err := ValidateAmount(decimal.NewFromInt(-3)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("ValidateAmount(-3) = %v, want ErrInvalidAmount", err)
	}
}

package utils

import (
	"errors"
	"testing"
)

func TestValidateGhanaPhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"local format", "0244123456", "0244123456", false},
		{"plus international", "+233244123456", "0244123456", false},
		{"international without plus", "233244123456", "0244123456", false},
		{"spaces stripped", "024 412 3456", "0244123456", false},
		{"hyphens stripped", "024-412-3456", "0244123456", false},
		{"too short", "024412345", "", true},
		{"too long", "02441234567", "", true},
		{"letters", "02441234ab", "", true},
		{"wrong prefix", "1244123456", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateGhanaPhone(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ValidateGhanaPhone(%q) = %q, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidPhone) {
					t.Errorf("error = %v, want ErrInvalidPhone", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateGhanaPhone(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ValidateGhanaPhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidPIN(t *testing.T) {
	valid := []string{"0000", "1234", "9999"}
	for _, pin := range valid {
		if !IsValidPIN(pin) {
			t.Errorf("IsValidPIN(%q) = false, want true", pin)
		}
	}

	invalid := []string{"", "123", "12345", "12a4", "12 4"}
	for _, pin := range invalid {
		if IsValidPIN(pin) {
			t.Errorf("IsValidPIN(%q) = true, want false", pin)
		}
	}
}

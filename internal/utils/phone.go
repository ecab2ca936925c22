package utils

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned for any input that is not a valid
// Ghana phone number shape.
var ErrInvalidPhone = errors.New("invalid Ghana phone number format")

// ValidateGhanaPhone normalizes a Ghana phone number to the canonical
// leading-0 form. Accepted shapes: 0XXXXXXXXX (10 digits),
// +233XXXXXXXXX (13 chars), 233XXXXXXXXX (12 digits). Whitespace and
// hyphens are stripped before matching.
func ValidateGhanaPhone(phone string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(phone)
	if cleaned == "" {
		return "", ErrInvalidPhone
	}

	switch {
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		if !allDigits(cleaned) {
			return "", ErrInvalidPhone
		}
		return cleaned, nil

	case strings.HasPrefix(cleaned, "+233") && len(cleaned) == 13:
		rest := cleaned[4:]
		if !allDigits(rest) {
			return "", ErrInvalidPhone
		}
		return "0" + rest, nil

	case strings.HasPrefix(cleaned, "233") && len(cleaned) == 12:
		if !allDigits(cleaned) {
			return "", ErrInvalidPhone
		}
		return "0" + cleaned[3:], nil

	default:
		return "", ErrInvalidPhone
	}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsValidPIN reports whether the credential is exactly 4 digits
func IsValidPIN(pin string) bool {
	return len(pin) == 4 && allDigits(pin)
}

package enums

import "fmt"

// VerificationMode is how a payment group gets confirmed: matched
// automatically against incoming transfer amounts, or checked by hand.
type VerificationMode string

const (
	VerificationModeAuto   VerificationMode = "auto"
	VerificationModeManual VerificationMode = "manual"
)

var validVerificationModes = []VerificationMode{
	VerificationModeAuto,
	VerificationModeManual,
}

// IsValid reports whether the value matches the canonical verification mode enum.
func (m VerificationMode) IsValid() bool {
	for _, candidate := range validVerificationModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseVerificationMode converts the raw string to VerificationMode.
func ParseVerificationMode(value string) (VerificationMode, error) {
	for _, candidate := range validVerificationModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid verification mode %q", value)
}

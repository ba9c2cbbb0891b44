package enums

import "fmt"

// PaymentGroupStatus describes the lifecycle of a grouped payment.
type PaymentGroupStatus string

const (
	PaymentGroupStatusPendingSelection PaymentGroupStatus = "pending_selection"
	PaymentGroupStatusPending          PaymentGroupStatus = "pending"
	PaymentGroupStatusPaid             PaymentGroupStatus = "paid"
	PaymentGroupStatusCancelled        PaymentGroupStatus = "cancelled"
	PaymentGroupStatusExpired          PaymentGroupStatus = "expired"
)

var validPaymentGroupStatuses = []PaymentGroupStatus{
	PaymentGroupStatusPendingSelection,
	PaymentGroupStatusPending,
	PaymentGroupStatusPaid,
	PaymentGroupStatusCancelled,
	PaymentGroupStatusExpired,
}

// IsValid reports whether the value matches the canonical payment group status enum.
func (s PaymentGroupStatus) IsValid() bool {
	for _, candidate := range validPaymentGroupStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the group can no longer change state.
func (s PaymentGroupStatus) IsTerminal() bool {
	switch s {
	case PaymentGroupStatusPaid, PaymentGroupStatusCancelled, PaymentGroupStatusExpired:
		return true
	}
	return false
}

// ParsePaymentGroupStatus converts the raw string to PaymentGroupStatus.
func ParsePaymentGroupStatus(value string) (PaymentGroupStatus, error) {
	for _, candidate := range validPaymentGroupStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment group status %q", value)
}

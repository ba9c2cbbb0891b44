package enums

import "fmt"

// OrderStatus describes the lifecycle of a storefront order.
type OrderStatus string

const (
	OrderStatusPending              OrderStatus = "pending"
	OrderStatusAwaitingVerification OrderStatus = "awaiting_verification"
	OrderStatusPaid                 OrderStatus = "paid"
	OrderStatusProcessing           OrderStatus = "processing"
	OrderStatusShipped              OrderStatus = "shipped"
	OrderStatusDelivered            OrderStatus = "delivered"
	OrderStatusCancelled            OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAwaitingVerification,
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// orderTransitions is the canonical forward edge set; cancellation is
// reachable from every pre-delivery state.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:              {OrderStatusAwaitingVerification, OrderStatusPaid, OrderStatusCancelled},
	OrderStatusAwaitingVerification: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:                 {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:           {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:              {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:            {},
	OrderStatusCancelled:            {},
}

// IsValid reports whether the value matches the canonical order status enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave this status.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CancellableOrderStatuses returns every status cancellation may start from.
func CancellableOrderStatuses() []OrderStatus {
	out := make([]OrderStatus, 0, len(validOrderStatuses))
	for _, status := range validOrderStatuses {
		if status.CanTransitionTo(OrderStatusCancelled) {
			out = append(out, status)
		}
	}
	return out
}

// ParseOrderStatus converts the raw string to OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

package enums

// NotificationKind labels durable notification rows.
type NotificationKind string

const (
	NotificationOrderExpiring NotificationKind = "order_expiring"
	NotificationOrderExpired  NotificationKind = "order_expired"
)

// IsValid reports whether the value matches the canonical notification kind enum.
func (k NotificationKind) IsValid() bool {
	return k == NotificationOrderExpiring || k == NotificationOrderExpired
}

package enums

import "fmt"

// QueueItemStatus describes the state of one checkout queue entry.
type QueueItemStatus string

const (
	QueueItemStatusPending    QueueItemStatus = "pending"
	QueueItemStatusProcessing QueueItemStatus = "processing"
	QueueItemStatusCompleted  QueueItemStatus = "completed"
	QueueItemStatusFailed     QueueItemStatus = "failed"
)

var validQueueItemStatuses = []QueueItemStatus{
	QueueItemStatusPending,
	QueueItemStatusProcessing,
	QueueItemStatusCompleted,
	QueueItemStatusFailed,
}

// IsValid reports whether the value matches the canonical queue item status enum.
func (s QueueItemStatus) IsValid() bool {
	for _, candidate := range validQueueItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the item can never be processed again.
func (s QueueItemStatus) IsTerminal() bool {
	return s == QueueItemStatusCompleted || s == QueueItemStatusFailed
}

// ParseQueueItemStatus converts the raw string to QueueItemStatus.
func ParseQueueItemStatus(value string) (QueueItemStatus, error) {
	for _, candidate := range validQueueItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid queue item status %q", value)
}

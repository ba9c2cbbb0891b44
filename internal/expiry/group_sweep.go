package expiry

import (
	"context"
	"fmt"
)

// GroupExpirer is the slice of the payment group service the sweep needs.
type GroupExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// GroupSweep marks payment groups past their payment window as expired.
type GroupSweep struct {
	groups GroupExpirer
}

// NewGroupSweep builds the payment group sweep job.
func NewGroupSweep(groups GroupExpirer) (*GroupSweep, error) {
	if groups == nil {
		return nil, fmt.Errorf("payment group service required")
	}
	return &GroupSweep{groups: groups}, nil
}

// Name identifies the job in logs and metrics.
func (s *GroupSweep) Name() string { return "payment-group-sweep" }

// Run expires stale groups once.
func (s *GroupSweep) Run(ctx context.Context) error {
	_, err := s.groups.ExpireStale(ctx)
	return err
}

package paymentgroups

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radityaanwar/gayakita-backend/pkg/config"
	"github.com/radityaanwar/gayakita-backend/pkg/db/models"
	"github.com/radityaanwar/gayakita-backend/pkg/enums"
	gkerrors "github.com/radityaanwar/gayakita-backend/pkg/errors"
	"github.com/radityaanwar/gayakita-backend/pkg/logger"
)

// CreateGroupInput bundles one or more unpaid orders into a payable unit.
type CreateGroupInput struct {
	UserID           uuid.UUID   `validate:"required"`
	UserName         string
	UserEmail        string      `validate:"omitempty,email"`
	OrderIDs         []uuid.UUID `validate:"required,min=1"`
	OriginalTotal    decimal.Decimal
	VerificationMode *enums.VerificationMode
}

// Service owns the payment group lifecycle. The unique payment code makes the
// exact transfer amount unambiguous among concurrently pending groups.
type Service struct {
	repo     Repository
	logg     *logger.Logger
	validate *validator.Validate

	horizon time.Duration
	codeMin int
	codeMax int

	now     func() time.Time
	randInt func(n int) int
}

// NewService wires the payment group service.
func NewService(repo Repository, cfg config.PaymentGroupsConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment group repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.CodeMin < 1 || cfg.CodeMax <= cfg.CodeMin {
		return nil, fmt.Errorf("invalid payment code range [%d,%d]", cfg.CodeMin, cfg.CodeMax)
	}
	if cfg.ExpiryHorizon <= 0 {
		return nil, fmt.Errorf("expiry horizon must be positive")
	}
	return &Service{
		repo:     repo,
		logg:     logg,
		validate: validator.New(),
		horizon:  cfg.ExpiryHorizon,
		codeMin:  cfg.CodeMin,
		codeMax:  cfg.CodeMax,
		now:      time.Now,
		randInt:  rand.IntN,
	}, nil
}

// CreateGroup records a new pending group. The id is derived from creation
// time, the code is uniform random in the configured range, and the exact
// payment amount is the original total plus the code. All four are immutable.
func (s *Service) CreateGroup(ctx context.Context, input CreateGroupInput) (*models.PaymentGroup, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, gkerrors.Wrap(gkerrors.CodeValidation, err, "invalid group input")
	}
	if !input.OriginalTotal.IsPositive() {
		return nil, gkerrors.New(gkerrors.CodeValidation, "original total must be positive")
	}
	if input.VerificationMode != nil && !input.VerificationMode.IsValid() {
		return nil, gkerrors.Newf(gkerrors.CodeValidation, "invalid verification mode %q", *input.VerificationMode)
	}

	created := s.now()
	code := s.codeMin + s.randInt(s.codeMax-s.codeMin+1)

	group := &models.PaymentGroup{
		ID:                 fmt.Sprintf("PG%d", created.UnixMilli()),
		UserID:             input.UserID,
		UserName:           input.UserName,
		UserEmail:          input.UserEmail,
		OrderIDs:           input.OrderIDs,
		OriginalTotal:      input.OriginalTotal,
		UniquePaymentCode:  code,
		ExactPaymentAmount: input.OriginalTotal.Add(decimal.NewFromInt(int64(code))),
		VerificationMode:   input.VerificationMode,
		Status:             enums.PaymentGroupStatusPending,
		ExpiresAt:          created.Add(s.horizon),
	}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, gkerrors.Wrap(gkerrors.CodeInternal, err, "creating payment group")
	}
	return group, nil
}

// GetGroup loads one group by id.
func (s *Service) GetGroup(ctx context.Context, id string) (*models.PaymentGroup, error) {
	if id == "" {
		return nil, gkerrors.New(gkerrors.CodeValidation, "group id is required")
	}
	return s.repo.Get(ctx, id)
}

// ListUserPending returns the user's groups still awaiting payment, newest
// first. Groups parked in mode selection count as pending.
func (s *Service) ListUserPending(ctx context.Context, userID uuid.UUID) ([]models.PaymentGroup, error) {
	if userID == uuid.Nil {
		return nil, gkerrors.New(gkerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUserAndStatuses(ctx, userID, []enums.PaymentGroupStatus{
		enums.PaymentGroupStatusPending,
		enums.PaymentGroupStatusPendingSelection,
	})
}

// MatchByAmount resolves an incoming transfer amount to the oldest pending
// group whose exact payment amount equals it. Lapsed groups never match even
// before the sweep marks them expired. Returns nil when nothing matches.
func (s *Service) MatchByAmount(ctx context.Context, amount decimal.Decimal) (*models.PaymentGroup, error) {
	if !amount.IsPositive() {
		return nil, gkerrors.New(gkerrors.CodeValidation, "amount must be positive")
	}
	return s.repo.FirstPendingByAmount(ctx, amount, s.now())
}

// MarkGroupPaid moves a pending group to paid and records the payment time.
func (s *Service) MarkGroupPaid(ctx context.Context, id string) (*models.PaymentGroup, error) {
	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	paidAt := s.now()
	ok, err := s.repo.TransitionStatus(ctx, id,
		[]enums.PaymentGroupStatus{enums.PaymentGroupStatusPending},
		enums.PaymentGroupStatusPaid,
		map[string]any{"paid_at": &paidAt})
	if err != nil {
		return nil, gkerrors.Wrap(gkerrors.CodeInternal, err, "marking group paid")
	}
	if !ok {
		return nil, gkerrors.Newf(gkerrors.CodeStateConflict,
			"payment group %s is %s, cannot mark paid", id, group.Status)
	}
	group.Status = enums.PaymentGroupStatusPaid
	group.PaidAt = &paidAt
	return group, nil
}

// CancelGroup moves a group awaiting payment to cancelled. Clearing the
// member-order back-references is the caller's follow-up step.
func (s *Service) CancelGroup(ctx context.Context, id string) error {
	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.repo.TransitionStatus(ctx, id,
		[]enums.PaymentGroupStatus{
			enums.PaymentGroupStatusPending,
			enums.PaymentGroupStatusPendingSelection,
		},
		enums.PaymentGroupStatusCancelled, nil)
	if err != nil {
		return gkerrors.Wrap(gkerrors.CodeInternal, err, "cancelling group")
	}
	if !ok {
		return gkerrors.Newf(gkerrors.CodeStateConflict,
			"payment group %s is %s, cannot cancel", id, group.Status)
	}
	return nil
}

// SwitchToSelection parks a pending group while the buyer picks a new
// verification mode. The current mode is remembered for display.
func (s *Service) SwitchToSelection(ctx context.Context, id string) error {
	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	switchedAt := s.now()
	ok, err := s.repo.TransitionStatus(ctx, id,
		[]enums.PaymentGroupStatus{enums.PaymentGroupStatusPending},
		enums.PaymentGroupStatusPendingSelection,
		map[string]any{
			"original_mode":     group.VerificationMode,
			"verification_mode": nil,
			"mode_switched_at":  &switchedAt,
		})
	if err != nil {
		return gkerrors.Wrap(gkerrors.CodeInternal, err, "switching group to selection")
	}
	if !ok {
		return gkerrors.Newf(gkerrors.CodeStateConflict,
			"payment group %s is %s, cannot switch to selection", id, group.Status)
	}
	return nil
}

// SelectMode resumes a parked group with the chosen verification mode.
func (s *Service) SelectMode(ctx context.Context, id string, mode enums.VerificationMode) error {
	if !mode.IsValid() {
		return gkerrors.Newf(gkerrors.CodeValidation, "invalid verification mode %q", mode)
	}
	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.repo.TransitionStatus(ctx, id,
		[]enums.PaymentGroupStatus{enums.PaymentGroupStatusPendingSelection},
		enums.PaymentGroupStatusPending,
		map[string]any{"verification_mode": mode})
	if err != nil {
		return gkerrors.Wrap(gkerrors.CodeInternal, err, "selecting group mode")
	}
	if !ok {
		return gkerrors.Newf(gkerrors.CodeStateConflict,
			"payment group %s is %s, cannot select mode", id, group.Status)
	}
	return nil
}

// ExpireStale marks every pending group past its payment window as expired
// and returns how many rows moved.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	count, err := s.repo.ExpireStale(ctx, s.now())
	if err != nil {
		return 0, gkerrors.Wrap(gkerrors.CodeInternal, err, "expiring stale groups")
	}
	if count > 0 {
		s.logg.Info(s.logg.WithField(ctx, "expired", count), "payment groups expired")
	}
	return count, nil
}

// ValidateReuse checks that a previously created group still matches the
// buyer's current selection; on mismatch the caller should cancel the group
// and create a fresh one.
func (s *Service) ValidateReuse(group *models.PaymentGroup, orderIDs []uuid.UUID, total decimal.Decimal) error {
	if group == nil {
		return gkerrors.New(gkerrors.CodeValidation, "group is required")
	}
	if !group.OriginalTotal.Equal(total) {
		return gkerrors.Newf(gkerrors.CodeGroupMismatch,
			"group %s total %s no longer matches selection total %s",
			group.ID, group.OriginalTotal, total)
	}
	if len(group.OrderIDs) != len(orderIDs) {
		return gkerrors.Newf(gkerrors.CodeGroupMismatch,
			"group %s covers %d orders, selection has %d", group.ID, len(group.OrderIDs), len(orderIDs))
	}
	members := make(map[uuid.UUID]struct{}, len(group.OrderIDs))
	for _, id := range group.OrderIDs {
		members[id] = struct{}{}
	}
	for _, id := range orderIDs {
		if _, ok := members[id]; !ok {
			return gkerrors.Newf(gkerrors.CodeGroupMismatch,
				"order %s is not part of group %s", id, group.ID)
		}
	}
	return nil
}

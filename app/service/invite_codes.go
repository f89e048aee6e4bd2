package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/repository"
	"github.com/vibast-solutions/ms-go-memberships/config"
)

const (
	maxGenerateCount = 100
	maxNoteLength    = 200
)

type generateInviteCodesRequest interface {
	GetMembershipType() string
	GetCount() int
	GetExpiresInDays() int
	GetNote() string
}

type listInviteCodesRequest interface {
	GetMembershipType() string
	GetStatus() string
	GetLimit() int32
	GetOffset() int32
}

type inviteCodeRepository interface {
	inviteCodeWriter
	FindByCode(ctx context.Context, code string) (*entity.InviteCode, error)
	List(ctx context.Context, filter repository.InviteCodeFilter) ([]*entity.InviteCode, error)
	DeleteUnlessUsed(ctx context.Context, code string) (bool, error)
	CountStock(ctx context.Context, now time.Time) (map[string]int, error)
	MarkUsed(ctx context.Context, code, usedBy string, now time.Time) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time, limit int32) (int64, error)
}

type membershipRepository interface {
	FindByUsername(ctx context.Context, username string) (*entity.UserMembership, error)
	Save(ctx context.Context, membership *entity.UserMembership) error
}

type membershipConfigSource interface {
	MembershipConfig(ctx context.Context) (entity.MembershipConfig, error)
}

// InviteCodeVerification explains whether a code can be redeemed. Reason is
// set when it cannot.
type InviteCodeVerification struct {
	Valid  bool
	Reason string
	Code   *entity.InviteCode
	Tier   *entity.MembershipTier
}

type TierStock struct {
	Tier      entity.MembershipTier
	Stock     int
	Available bool
}

type InviteCodeService struct {
	codes       inviteCodeRepository
	memberships membershipRepository
	settings    membershipConfigSource
	locks       lockProvider
	codegen     *CodeGenerator
	cfg         config.MembershipsConfig
	now         func() time.Time
}

func NewInviteCodeService(
	codes inviteCodeRepository,
	memberships membershipRepository,
	settings membershipConfigSource,
	locks lockProvider,
	cfg config.MembershipsConfig,
) *InviteCodeService {
	return &InviteCodeService{
		codes:       codes,
		memberships: memberships,
		settings:    settings,
		locks:       locks,
		codegen:     NewCodeGenerator(codes),
		cfg:         cfg,
		now:         time.Now,
	}
}

// Generate mints a batch of stock codes for one tier.
func (s *InviteCodeService) Generate(ctx context.Context, req generateInviteCodesRequest, createdBy string) ([]*entity.InviteCode, error) {
	membershipType := strings.TrimSpace(req.GetMembershipType())
	if !entity.IsMembershipType(membershipType) {
		return nil, ErrInvalidMembershipType
	}
	count := req.GetCount()
	if count < 1 || count > maxGenerateCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidRequest, maxGenerateCount)
	}
	if req.GetExpiresInDays() < 0 {
		return nil, fmt.Errorf("%w: expiresIn must not be negative", ErrInvalidRequest)
	}
	createdBy = strings.TrimSpace(createdBy)
	if createdBy == "" {
		createdBy = entity.InviteCodeCreatedBySystem
	}

	now := s.now().UTC()
	template := entity.InviteCode{
		MembershipType: membershipType,
		Status:         entity.InviteCodeStatusUnused,
		CreatedBy:      createdBy,
		CreatedAt:      now,
	}
	if note := truncate(strings.TrimSpace(req.GetNote()), maxNoteLength); note != "" {
		template.Note = &note
	}
	if days := req.GetExpiresInDays(); days > 0 {
		expiresAt := now.AddDate(0, 0, days)
		template.ExpiresAt = &expiresAt
	}

	items := make([]*entity.InviteCode, 0, count)
	for i := 0; i < count; i++ {
		item, err := s.codegen.Mint(ctx, template)
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *InviteCodeService) List(ctx context.Context, req listInviteCodesRequest) ([]*entity.InviteCode, error) {
	membershipType := strings.TrimSpace(req.GetMembershipType())
	if membershipType != "" && !entity.IsMembershipType(membershipType) {
		return nil, ErrInvalidMembershipType
	}
	status := strings.TrimSpace(req.GetStatus())
	switch status {
	case "", entity.InviteCodeStatusUnused, entity.InviteCodeStatusUsed,
		entity.InviteCodeStatusExpired, entity.InviteCodeStatusDisabled:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}

	limit := req.GetLimit()
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	if limit > repository.MaxListLimit {
		limit = repository.MaxListLimit
	}
	offset := req.GetOffset()
	if offset < 0 {
		offset = 0
	}

	return s.codes.List(ctx, repository.InviteCodeFilter{
		MembershipType: membershipType,
		Status:         status,
		Limit:          limit,
		Offset:         offset,
	})
}

// Delete removes a code unless it was used or is reserved by a pending order.
// Expired and disabled codes can be deleted.
func (s *InviteCodeService) Delete(ctx context.Context, code string) error {
	code = normalizeCode(code)
	if code == "" {
		return ErrInvalidRequest
	}

	deleted, err := s.codes.DeleteUnlessUsed(ctx, code)
	if err != nil {
		return err
	}
	if deleted {
		return nil
	}

	item, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrInviteCodeNotFound
	}
	return ErrInviteCodeInUse
}

func (s *InviteCodeService) Verify(ctx context.Context, code string) (*InviteCodeVerification, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrInvalidRequest
	}

	item, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return &InviteCodeVerification{Reason: "invite code does not exist"}, nil
	}

	out := &InviteCodeVerification{Code: item}
	if reason := unavailableReason(item, s.now()); reason != "" {
		out.Reason = reason
		return out, nil
	}

	tiers, err := s.settings.MembershipConfig(ctx)
	if err != nil {
		return nil, err
	}
	tier := tiers[item.MembershipType]
	out.Valid = true
	out.Tier = &tier
	return out, nil
}

// Stock reports the sellable codes per tier, in tier order.
func (s *InviteCodeService) Stock(ctx context.Context) ([]TierStock, error) {
	tiers, err := s.settings.MembershipConfig(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.codes.CountStock(ctx, s.now().UTC())
	if err != nil {
		return nil, err
	}

	out := make([]TierStock, 0, len(entity.MembershipTypes))
	for _, membershipType := range entity.MembershipTypes {
		tier := tiers[membershipType]
		stock := counts[membershipType]
		out = append(out, TierStock{
			Tier:      tier,
			Stock:     stock,
			Available: tier.IsEnabled() && stock > 0,
		})
	}
	return out, nil
}

// Redeem consumes a code and extends the membership of username by the
// tier duration. An active lifetime membership stays lifetime.
func (s *InviteCodeService) Redeem(ctx context.Context, code, username string) (*entity.UserMembership, error) {
	code = normalizeCode(code)
	username = strings.TrimSpace(username)
	if code == "" || username == "" {
		return nil, ErrInvalidRequest
	}

	unlock, err := acquireLock(ctx, s.locks, "membership:"+username)
	if err != nil {
		return nil, err
	}
	defer unlock()

	item, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrInviteCodeNotFound
	}
	now := s.now().UTC()
	if reason := unavailableReason(item, now); reason != "" {
		return nil, fmt.Errorf("%w: %s", ErrInviteCodeUnavailable, reason)
	}

	tiers, err := s.settings.MembershipConfig(ctx)
	if err != nil {
		return nil, err
	}
	tier := tiers[item.MembershipType]

	current, err := s.memberships.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	ok, err := s.codes.MarkUsed(ctx, code, username, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInviteCodeUnavailable
	}

	membershipType := item.MembershipType
	membership := &entity.UserMembership{
		Username:       username,
		MembershipType: &membershipType,
		StartDate:      now,
		IsActive:       true,
		ActivatedBy:    code,
		ActivatedAt:    now,
		UpdatedAt:      now,
	}

	switch {
	case current.Active(now) && current.ExpiryDate == nil:
		membership.MembershipType = current.MembershipType
	case tier.IsLifetime():
	default:
		base := now
		if current.Active(now) && current.ExpiryDate.After(base) {
			base = *current.ExpiryDate
		}
		expiry := base.AddDate(0, 0, tier.Duration)
		membership.ExpiryDate = &expiry
	}

	if err := s.memberships.Save(ctx, membership); err != nil {
		return nil, err
	}
	return membership, nil
}

// GetMembership returns nil when the user never had a membership.
func (s *InviteCodeService) GetMembership(ctx context.Context, username string) (*entity.UserMembership, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidRequest
	}
	return s.memberships.FindByUsername(ctx, username)
}

func (s *InviteCodeService) batchSize() int32 {
	if s.cfg.JobBatchSize <= 0 {
		return defaultBatchSize
	}
	return s.cfg.JobBatchSize
}

func unavailableReason(item *entity.InviteCode, now time.Time) string {
	switch {
	case item.Status == entity.InviteCodeStatusUsed:
		return "invite code has been used"
	case item.Status == entity.InviteCodeStatusDisabled:
		return "invite code is disabled"
	case item.Status == entity.InviteCodeStatusExpired || !item.Redeemable(now):
		return "invite code has expired"
	case item.ReservedOrderID != nil:
		return "invite code is reserved by a pending order"
	}
	return ""
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

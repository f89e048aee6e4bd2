package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
)

func MembershipTierToResponse(tier entity.MembershipTier) *types.MembershipTier {
	out := &types.MembershipTier{
		Type:        tier.Type,
		Name:        tier.Name,
		Duration:    tier.Duration,
		Price:       tier.Price.InexactFloat64(),
		Discount:    tier.Discount,
		Enabled:     tier.Enabled,
		Description: tier.Description,
		Features:    tier.Features,
	}
	if tier.DiscountPrice != nil {
		discount := tier.DiscountPrice.InexactFloat64()
		out.DiscountPrice = &discount
	}
	return out
}

func MembershipConfigToResponse(cfg entity.MembershipConfig) types.MembershipConfigDocument {
	doc := make(types.MembershipConfigDocument, len(cfg))
	for key, tier := range cfg {
		doc[key] = MembershipTierToResponse(tier)
	}
	return doc
}

// UserMembershipToResponse computes the live view of a membership at now.
// A nil membership maps to nil.
func UserMembershipToResponse(item *entity.UserMembership, tiers entity.MembershipConfig, now time.Time) *types.UserMembership {
	if item == nil {
		return nil
	}

	out := &types.UserMembership{
		Username:       item.Username,
		MembershipType: derefString(item.MembershipType),
		StartDate:      formatTime(item.StartDate),
		ExpiryDate:     formatTimePtr(item.ExpiryDate),
		Lifetime:       item.MembershipType != nil && item.ExpiryDate == nil,
		IsActive:       item.Active(now),
		RemainingDays:  item.RemainingDays(now),
		ActivatedBy:    item.ActivatedBy,
		ActivatedAt:    formatTime(item.ActivatedAt),
	}
	if tier, ok := tiers[out.MembershipType]; ok {
		out.Name = tier.Name
	}
	return out
}

func InviteCodeToResponse(item *entity.InviteCode) *types.InviteCode {
	if item == nil {
		return nil
	}

	return &types.InviteCode{
		Code:           item.Code,
		MembershipType: item.MembershipType,
		Status:         item.Status,
		CreatedBy:      item.CreatedBy,
		Note:           derefString(item.Note),
		OrderId:        derefString(item.OrderID),
		Reserved:       item.ReservedOrderID != nil,
		UsedBy:         derefString(item.UsedBy),
		UsedAt:         formatTimePtr(item.UsedAt),
		ExpiresAt:      formatTimePtr(item.ExpiresAt),
		CreatedAt:      formatTime(item.CreatedAt),
	}
}

func InviteCodesToResponse(items []*entity.InviteCode) []*types.InviteCode {
	result := make([]*types.InviteCode, 0, len(items))
	for _, item := range items {
		result = append(result, InviteCodeToResponse(item))
	}
	return result
}

func VerificationToResponse(verification *service.InviteCodeVerification) *types.VerifyInviteCodeResponse {
	out := &types.VerifyInviteCodeResponse{
		Valid:   verification.Valid,
		Message: verification.Reason,
	}
	if verification.Code != nil {
		out.Code = verification.Code.Code
		out.MembershipType = verification.Code.MembershipType
		out.ExpiresAt = formatTimePtr(verification.Code.ExpiresAt)
	}
	if verification.Tier != nil {
		out.Membership = MembershipTierToResponse(*verification.Tier)
	}
	return out
}

func StockToResponse(items []service.TierStock) *types.StockResponse {
	out := &types.StockResponse{Stock: make([]types.TierStock, 0, len(items))}
	for _, item := range items {
		out.Stock = append(out.Stock, types.TierStock{
			Type:        item.Tier.Type,
			Name:        item.Tier.Name,
			Price:       item.Tier.Price.InexactFloat64(),
			ActualPrice: item.Tier.ActualPrice().InexactFloat64(),
			Duration:    item.Tier.Duration,
			Description: item.Tier.Description,
			Stock:       item.Stock,
			Available:   item.Available,
		})
	}
	return out
}

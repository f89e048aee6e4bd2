package types

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
)

type MembershipTier struct {
	Type          string   `json:"type"`
	Name          string   `json:"name"`
	Duration      int      `json:"duration"`
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discountPrice,omitempty"`
	Discount      *int     `json:"discount,omitempty"`
	Enabled       *bool    `json:"enabled,omitempty"`
	Description   string   `json:"description,omitempty"`
	Features      []string `json:"features,omitempty"`
}

// MembershipConfigDocument maps tier type to its settings.
type MembershipConfigDocument map[string]*MembershipTier

func NewMembershipConfigDocumentFromContext(ctx echo.Context) (MembershipConfigDocument, error) {
	doc := MembershipConfigDocument{}
	if err := json.NewDecoder(ctx.Request().Body).Decode(&doc); err != nil {
		return nil, err
	}

	for key, tier := range doc {
		if tier == nil {
			continue
		}
		tier.Name = sanitizeText(tier.Name)
		tier.Description = sanitizeText(tier.Description)
		for i, feature := range tier.Features {
			tier.Features[i] = sanitizeText(feature)
		}
		tier.Type = key
	}

	return doc, nil
}

func (d MembershipConfigDocument) Validate() error {
	if len(d) == 0 {
		return errors.New("membership config is empty")
	}
	for key, tier := range d {
		if tier == nil {
			return errors.New(key + " tier is empty")
		}
		if strings.TrimSpace(tier.Name) == "" {
			return errors.New(key + " tier name is required")
		}
	}
	return nil
}

func (d MembershipConfigDocument) ToEntity() entity.MembershipConfig {
	cfg := make(entity.MembershipConfig, len(d))
	for key, tier := range d {
		if tier == nil {
			continue
		}
		item := entity.MembershipTier{
			Type:        key,
			Name:        tier.Name,
			Duration:    tier.Duration,
			Price:       decimal.NewFromFloat(tier.Price),
			Discount:    tier.Discount,
			Enabled:     tier.Enabled,
			Description: tier.Description,
			Features:    append([]string(nil), tier.Features...),
		}
		if tier.DiscountPrice != nil {
			discount := decimal.NewFromFloat(*tier.DiscountPrice)
			item.DiscountPrice = &discount
		}
		cfg[key] = item
	}
	return cfg
}

type MembershipConfigResponse struct {
	Config MembershipConfigDocument `json:"config"`
}

type UserMembership struct {
	Username       string `json:"username"`
	MembershipType string `json:"membershipType,omitempty"`
	Name           string `json:"name,omitempty"`
	StartDate      string `json:"startDate,omitempty"`
	ExpiryDate     string `json:"expiryDate,omitempty"`
	Lifetime       bool   `json:"lifetime"`
	IsActive       bool   `json:"isActive"`
	RemainingDays  int    `json:"remainingDays"`
	ActivatedBy    string `json:"activatedBy,omitempty"`
	ActivatedAt    string `json:"activatedAt,omitempty"`
}

type MembershipResponse struct {
	Membership *UserMembership `json:"membership"`
}

type UsernameRequest struct {
	Username string
}

func NewUsernameRequestFromContext(ctx echo.Context) (*UsernameRequest, error) {
	return &UsernameRequest{Username: strings.TrimSpace(ctx.Param("username"))}, nil
}

func (r *UsernameRequest) Validate() error {
	if r.GetUsername() == "" {
		return errors.New("username is required")
	}
	return nil
}

func (r *UsernameRequest) GetUsername() string {
	return r.Username
}

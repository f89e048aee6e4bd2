package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

const maxGenerateCount = 100

type GenerateInviteCodesRequest struct {
	MembershipType string `json:"membershipType"`
	Count          int    `json:"count"`
	ExpiresIn      int    `json:"expiresIn"`
	Note           string `json:"note"`
}

func NewGenerateInviteCodesRequestFromContext(ctx echo.Context) (*GenerateInviteCodesRequest, error) {
	body := GenerateInviteCodesRequest{Count: 1}
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.MembershipType = strings.ToLower(strings.TrimSpace(body.MembershipType))
	body.Note = sanitizeText(body.Note)

	return &body, nil
}

func (r *GenerateInviteCodesRequest) Validate() error {
	if r.GetMembershipType() == "" {
		return errors.New("membershipType is required")
	}
	if r.GetCount() < 1 || r.GetCount() > maxGenerateCount {
		return errors.New("count must be between 1 and 100")
	}
	if r.GetExpiresInDays() < 0 {
		return errors.New("expiresIn must be >= 0")
	}
	return nil
}

func (r *GenerateInviteCodesRequest) GetMembershipType() string {
	return r.MembershipType
}

func (r *GenerateInviteCodesRequest) GetCount() int {
	return r.Count
}

func (r *GenerateInviteCodesRequest) GetExpiresInDays() int {
	return r.ExpiresIn
}

func (r *GenerateInviteCodesRequest) GetNote() string {
	return r.Note
}

type ListInviteCodesRequest struct {
	pagination
	MembershipType string
	Status         string
}

func NewListInviteCodesRequestFromContext(ctx echo.Context) (*ListInviteCodesRequest, error) {
	page, err := paginationFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return &ListInviteCodesRequest{
		pagination:     page,
		MembershipType: strings.ToLower(strings.TrimSpace(ctx.QueryParam("membershipType"))),
		Status:         strings.ToLower(strings.TrimSpace(ctx.QueryParam("status"))),
	}, nil
}

func (r *ListInviteCodesRequest) Validate() error {
	return r.validate()
}

func (r *ListInviteCodesRequest) GetMembershipType() string {
	return r.MembershipType
}

func (r *ListInviteCodesRequest) GetStatus() string {
	return r.Status
}

// InviteCodeRequest names a single code, from the path or a JSON body.
type InviteCodeRequest struct {
	Code string `json:"code"`
}

func NewInviteCodeRequestFromContext(ctx echo.Context) (*InviteCodeRequest, error) {
	var body InviteCodeRequest
	if code := ctx.Param("code"); code != "" {
		body.Code = code
	} else if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Code = strings.ToUpper(strings.TrimSpace(body.Code))
	return &body, nil
}

func (r *InviteCodeRequest) Validate() error {
	if r.GetCode() == "" {
		return errors.New("code is required")
	}
	return nil
}

func (r *InviteCodeRequest) GetCode() string {
	return r.Code
}

type InviteCode struct {
	Code           string `json:"code"`
	MembershipType string `json:"membershipType"`
	Status         string `json:"status"`
	CreatedBy      string `json:"createdBy"`
	Note           string `json:"note,omitempty"`
	OrderId        string `json:"orderId,omitempty"`
	Reserved       bool   `json:"reserved"`
	UsedBy         string `json:"usedBy,omitempty"`
	UsedAt         string `json:"usedAt,omitempty"`
	ExpiresAt      string `json:"expiresAt,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

type InviteCodesResponse struct {
	Codes []*InviteCode `json:"codes"`
}

type VerifyInviteCodeResponse struct {
	Valid          bool            `json:"valid"`
	Message        string          `json:"message,omitempty"`
	Code           string          `json:"code,omitempty"`
	MembershipType string          `json:"membershipType,omitempty"`
	Membership     *MembershipTier `json:"membership,omitempty"`
	ExpiresAt      string          `json:"expiresAt,omitempty"`
}

type TierStock struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ActualPrice float64 `json:"actualPrice"`
	Duration    int     `json:"duration"`
	Description string  `json:"description,omitempty"`
	Stock       int     `json:"stock"`
	Available   bool    `json:"available"`
}

type StockResponse struct {
	Stock []TierStock `json:"stock"`
}

package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type CreateSubscriptionRequest struct {
	Title           string `json:"title"`
	SourceKey       string `json:"sourceKey"`
	CurrentEpisodes int    `json:"currentEpisodes"`
	Email           string `json:"email"`
}

func NewCreateSubscriptionRequestFromContext(ctx echo.Context) (*CreateSubscriptionRequest, error) {
	var body CreateSubscriptionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Title = sanitizeText(body.Title)
	body.SourceKey = strings.TrimSpace(body.SourceKey)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	return &body, nil
}

func (r *CreateSubscriptionRequest) Validate() error {
	if r.GetTitle() == "" {
		return errors.New("title is required")
	}
	if r.GetSourceKey() == "" {
		return errors.New("sourceKey is required")
	}
	if r.GetEmail() == "" {
		return errors.New("email is required")
	}
	if r.GetCurrentEpisodes() < 0 {
		return errors.New("currentEpisodes must be >= 0")
	}
	return nil
}

func (r *CreateSubscriptionRequest) GetTitle() string {
	return r.Title
}

func (r *CreateSubscriptionRequest) GetSourceKey() string {
	return r.SourceKey
}

func (r *CreateSubscriptionRequest) GetCurrentEpisodes() int {
	return r.CurrentEpisodes
}

func (r *CreateSubscriptionRequest) GetEmail() string {
	return r.Email
}

type UpdateSubscriptionRequest struct {
	Id     string `json:"-"`
	Status string `json:"status"`
	Email  string `json:"email"`
}

func NewUpdateSubscriptionRequestFromContext(ctx echo.Context) (*UpdateSubscriptionRequest, error) {
	var body UpdateSubscriptionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Id = strings.TrimSpace(ctx.Param("id"))
	body.Status = strings.ToLower(strings.TrimSpace(body.Status))
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	return &body, nil
}

func (r *UpdateSubscriptionRequest) Validate() error {
	if r.GetId() == "" {
		return errors.New("subscription id is required")
	}
	if r.GetStatus() == "" && r.GetEmail() == "" {
		return errors.New("status or email is required")
	}
	return nil
}

func (r *UpdateSubscriptionRequest) GetId() string {
	return r.Id
}

func (r *UpdateSubscriptionRequest) GetStatus() string {
	return r.Status
}

func (r *UpdateSubscriptionRequest) GetEmail() string {
	return r.Email
}

type SubscriptionIdRequest struct {
	Id string
}

func NewSubscriptionIdRequestFromContext(ctx echo.Context) (*SubscriptionIdRequest, error) {
	return &SubscriptionIdRequest{Id: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *SubscriptionIdRequest) Validate() error {
	if r.Id == "" {
		return errors.New("subscription id is required")
	}
	return nil
}

type Subscription struct {
	Id               string `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Title            string `json:"title"`
	SourceKey        string `json:"sourceKey"`
	CurrentEpisodes  int    `json:"currentEpisodes"`
	NotifiedEpisodes int    `json:"notifiedEpisodes"`
	Status           string `json:"status"`
	LastChecked      string `json:"lastChecked,omitempty"`
	CreatedAt        string `json:"createdAt"`
}

type SubscriptionEnvelopeResponse struct {
	Subscription *Subscription `json:"subscription"`
}

type ListSubscriptionsResponse struct {
	Subscriptions []*Subscription `json:"subscriptions"`
}

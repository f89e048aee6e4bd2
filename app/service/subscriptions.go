package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/repository"
)

type createSubscriptionRequest interface {
	GetTitle() string
	GetSourceKey() string
	GetCurrentEpisodes() int
	GetEmail() string
}

type updateSubscriptionRequest interface {
	GetStatus() string
	GetEmail() string
}

type subscriptionRepository interface {
	Create(ctx context.Context, subscription *entity.Subscription) error
	FindByID(ctx context.Context, id string) (*entity.Subscription, error)
	ListByUsername(ctx context.Context, username string) ([]*entity.Subscription, error)
	Update(ctx context.Context, subscription *entity.Subscription) error
	Delete(ctx context.Context, id string) error
}

type SubscriptionService struct {
	repo  subscriptionRepository
	now   func() time.Time
	newID func() string
}

func NewSubscriptionService(repo subscriptionRepository) *SubscriptionService {
	return &SubscriptionService{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *SubscriptionService) List(ctx context.Context, username string) ([]*entity.Subscription, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrForbidden
	}
	return s.repo.ListByUsername(ctx, username)
}

func (s *SubscriptionService) Create(ctx context.Context, req createSubscriptionRequest, username string) (*entity.Subscription, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(req.GetTitle())
	sourceKey := strings.TrimSpace(req.GetSourceKey())
	if title == "" || sourceKey == "" {
		return nil, fmt.Errorf("%w: title and sourceKey are required", ErrInvalidRequest)
	}
	email := normalizeEmail(req.GetEmail())
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	episodes := req.GetCurrentEpisodes()
	if episodes < 0 {
		episodes = 0
	}

	now := s.now().UTC()
	subscription := &entity.Subscription{
		ID:               s.newID(),
		Username:         username,
		Email:            email,
		Title:            title,
		SourceKey:        sourceKey,
		CurrentEpisodes:  episodes,
		NotifiedEpisodes: episodes,
		Status:           entity.SubscriptionStatusActive,
		LastChecked:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, subscription); err != nil {
		if errors.Is(err, repository.ErrSubscriptionAlreadyExists) {
			return nil, ErrSubscriptionExists
		}
		return nil, err
	}
	return subscription, nil
}

// Update pauses or resumes a subscription and changes its notification address.
func (s *SubscriptionService) Update(ctx context.Context, id string, req updateSubscriptionRequest, username string) (*entity.Subscription, error) {
	subscription, err := s.owned(ctx, id, username)
	if err != nil {
		return nil, err
	}

	switch status := strings.TrimSpace(req.GetStatus()); status {
	case "":
	case entity.SubscriptionStatusActive, entity.SubscriptionStatusPaused:
		subscription.Status = status
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	if raw := strings.TrimSpace(req.GetEmail()); raw != "" {
		email := normalizeEmail(raw)
		if !emailPattern.MatchString(email) {
			return nil, ErrInvalidEmail
		}
		subscription.Email = email
	}
	subscription.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, subscription); err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return subscription, nil
}

func (s *SubscriptionService) Delete(ctx context.Context, id, username string) error {
	if _, err := s.owned(ctx, id, username); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	return nil
}

func (s *SubscriptionService) owned(ctx context.Context, id, username string) (*entity.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidRequest
	}
	if strings.TrimSpace(username) == "" {
		return nil, ErrForbidden
	}
	subscription, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, ErrSubscriptionNotFound
	}
	if subscription.Username != username {
		return nil, ErrForbidden
	}
	return subscription, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-memberships/app/entity"
)

var (
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
)

const subscriptionColumns = `
		id, username, email, title, source_key, current_episodes, notified_episodes,
		status, last_checked, created_at, updated_at`

type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, subscription *entity.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, username, email, title, source_key, current_episodes, notified_episodes,
			status, last_checked, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		subscription.ID,
		subscription.Username,
		subscription.Email,
		subscription.Title,
		subscription.SourceKey,
		subscription.CurrentEpisodes,
		subscription.NotifiedEpisodes,
		subscription.Status,
		subscription.LastChecked,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrSubscriptionAlreadyExists
		}
		return err
	}
	return nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = ?`

	item := &entity.Subscription{}
	if err := scanSubscription(r.db.QueryRowContext(ctx, query, id), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *SubscriptionRepository) ListByUsername(ctx context.Context, username string) ([]*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE username = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Subscription, 0)
	for rows.Next() {
		item := &entity.Subscription{}
		if err := scanSubscription(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, subscription *entity.Subscription) error {
	query := `
		UPDATE subscriptions SET
			email = ?,
			title = ?,
			current_episodes = ?,
			notified_episodes = ?,
			status = ?,
			last_checked = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		subscription.Email,
		subscription.Title,
		subscription.CurrentEpisodes,
		subscription.NotifiedEpisodes,
		subscription.Status,
		subscription.LastChecked,
		subscription.UpdatedAt,
		subscription.ID,
	)
	if err != nil {
		return err
	}
	ok, err := affectedOne(result)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	ok, err := affectedOne(result)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSubscriptionNotFound
	}
	return nil
}

func scanSubscription(scan rowScanner, item *entity.Subscription) error {
	return scan.Scan(
		&item.ID,
		&item.Username,
		&item.Email,
		&item.Title,
		&item.SourceKey,
		&item.CurrentEpisodes,
		&item.NotifiedEpisodes,
		&item.Status,
		&item.LastChecked,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/database"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
)

// SubscriptionRepository implements repository.SubscriptionRepository using PostgreSQL.
type SubscriptionRepository struct {
	db database.DBTX
}

// NewSubscriptionRepository creates a new PostgreSQL-backed subscription repository.
func NewSubscriptionRepository(db database.DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts a subscription edge.
func (r *SubscriptionRepository) Create(ctx context.Context, s *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (subscriber_id, channel_id)
		VALUES ($1, $2)
		RETURNING id::text, created_at`

	err := r.db.QueryRow(ctx, query, s.SubscriberID, s.ChannelID).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case isUniqueViolation(err):
			return apperrors.AlreadyExists("subscription", "channel", s.ChannelID)
		case errors.As(err, &pgErr) && pgErr.Code == "23503":
			return apperrors.NotFound("channel", s.ChannelID)
		case errors.As(err, &pgErr) && pgErr.Code == "23514":
			return apperrors.InvalidInput("cannot subscribe to your own channel")
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// Delete removes the edge between subscriberID and channelID.
func (r *SubscriptionRepository) Delete(ctx context.Context, subscriberID, channelID string) (bool, error) {
	ct, err := r.db.Exec(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2`,
		subscriberID, channelID,
	)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ListSubscribers returns the users subscribed to channelID.
func (r *SubscriptionRepository) ListSubscribers(ctx context.Context, channelID string, limit, offset int) ([]domain.ChannelMember, int, error) {
	query := `
		SELECT u.id::text, u.username, u.full_name, u.avatar, s.created_at, COUNT(*) OVER()
		FROM subscriptions s
		JOIN users u ON u.id = s.subscriber_id
		WHERE s.channel_id = $1
		ORDER BY s.created_at DESC
		LIMIT $2 OFFSET $3`

	members, total, err := r.listMembers(ctx, query, channelID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list subscribers: %w", err)
	}
	if len(members) == 0 && offset > 0 {
		total, err = r.count(ctx, `SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1`, channelID)
		if err != nil {
			return nil, 0, fmt.Errorf("count subscribers: %w", err)
		}
	}
	return members, total, nil
}

// ListSubscribedChannels returns the channels subscriberID is subscribed to.
func (r *SubscriptionRepository) ListSubscribedChannels(ctx context.Context, subscriberID string, limit, offset int) ([]domain.ChannelMember, int, error) {
	query := `
		SELECT u.id::text, u.username, u.full_name, u.avatar, s.created_at, COUNT(*) OVER()
		FROM subscriptions s
		JOIN users u ON u.id = s.channel_id
		WHERE s.subscriber_id = $1
		ORDER BY s.created_at DESC
		LIMIT $2 OFFSET $3`

	members, total, err := r.listMembers(ctx, query, subscriberID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list subscribed channels: %w", err)
	}
	if len(members) == 0 && offset > 0 {
		total, err = r.count(ctx, `SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = $1`, subscriberID)
		if err != nil {
			return nil, 0, fmt.Errorf("count subscribed channels: %w", err)
		}
	}
	return members, total, nil
}

func (r *SubscriptionRepository) listMembers(ctx context.Context, query, id string, limit, offset int) ([]domain.ChannelMember, int, error) {
	rows, err := r.db.Query(ctx, query, id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	members := []domain.ChannelMember{}
	var total int64
	for rows.Next() {
		var m domain.ChannelMember
		if err := rows.Scan(&m.ID, &m.UserName, &m.FullName, &m.Avatar, &m.SubscribedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate member rows: %w", err)
	}
	return members, int(total), nil
}

func (r *SubscriptionRepository) count(ctx context.Context, query, id string) (int, error) {
	var n int64
	if err := r.db.QueryRow(ctx, query, id).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

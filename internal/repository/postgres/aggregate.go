package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/database"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
)

// channelProfileQuery counts both sides of the subscription graph for the
// matched user. A NULL requester makes the EXISTS false.
const channelProfileQuery = `
	SELECT u.id::text, u.full_name, u.username, u.email, u.avatar, u.cover_image,
	       (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
	       (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
	       EXISTS (
	           SELECT 1 FROM subscriptions s
	           WHERE s.channel_id = u.id AND s.subscriber_id = $2::uuid
	       )
	FROM users u
	WHERE u.username = $1`

// watchHistoryQuery yields one row per history entry in stored order, or a
// single row with NULL video columns when the history is empty. Entries whose
// video no longer exists come back with NULL video columns too.
const watchHistoryQuery = `
	SELECT v.id::text, v.owner_id::text, v.video_file, v.thumbnail, v.title, v.description,
	       v.duration, v.views, v.is_published, v.created_at, v.updated_at,
	       o.full_name, o.username, o.avatar
	FROM users u
	LEFT JOIN LATERAL unnest(u.watch_history) WITH ORDINALITY AS h(video_id, pos) ON TRUE
	LEFT JOIN videos v ON v.id = h.video_id
	LEFT JOIN users o ON o.id = v.owner_id
	WHERE u.id = $1
	ORDER BY h.pos`

// AggregateRepository implements repository.AggregateRepository using PostgreSQL.
type AggregateRepository struct {
	db database.DBTX
}

// NewAggregateRepository creates a new PostgreSQL-backed aggregate repository.
func NewAggregateRepository(db database.DBTX) *AggregateRepository {
	return &AggregateRepository{db: db}
}

// ChannelProfile computes the channel view for userName in one statement.
func (r *AggregateRepository) ChannelProfile(ctx context.Context, userName, requesterID string) (p *domain.ChannelProfile, err error) {
	ctx, end := database.TraceQuery(ctx, "ChannelProfile", channelProfileQuery)
	defer func() { end(err) }()

	var requester any
	if requesterID != "" {
		requester = requesterID
	}

	var cp domain.ChannelProfile
	err = r.db.QueryRow(ctx, channelProfileQuery, userName, requester).Scan(
		&cp.ID,
		&cp.FullName,
		&cp.UserName,
		&cp.Email,
		&cp.Avatar,
		&cp.CoverImage,
		&cp.SubscriberCount,
		&cp.SubscriptionsCount,
		&cp.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("channel", userName)
		}
		return nil, fmt.Errorf("query channel profile: %w", err)
	}
	return &cp, nil
}

// WatchHistory returns the user's watched videos in history order.
func (r *AggregateRepository) WatchHistory(ctx context.Context, userID string) (videos []domain.Video, err error) {
	ctx, end := database.TraceQuery(ctx, "WatchHistory", watchHistoryQuery)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, watchHistoryQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	matched := false
	videos = []domain.Video{}
	for rows.Next() {
		matched = true

		var (
			id, ownerID, videoFile, thumbnail, title, description *string
			duration                                              *float64
			views                                                 *int64
			isPublished                                           *bool
			createdAt, updatedAt                                  *time.Time
			ownerFullName, ownerUserName, ownerAvatar             *string
		)
		if err := rows.Scan(
			&id, &ownerID, &videoFile, &thumbnail, &title, &description,
			&duration, &views, &isPublished, &createdAt, &updatedAt,
			&ownerFullName, &ownerUserName, &ownerAvatar,
		); err != nil {
			return nil, fmt.Errorf("scan watch history row: %w", err)
		}
		if id == nil {
			continue
		}

		v := domain.Video{
			ID:          *id,
			OwnerID:     deref(ownerID),
			VideoFile:   deref(videoFile),
			Thumbnail:   deref(thumbnail),
			Title:       deref(title),
			Description: deref(description),
			Duration:    deref(duration),
			Views:       deref(views),
			IsPublished: deref(isPublished),
			CreatedAt:   deref(createdAt),
			UpdatedAt:   deref(updatedAt),
		}
		if ownerUserName != nil {
			v.Owner = &domain.OwnerSummary{
				FullName: deref(ownerFullName),
				UserName: *ownerUserName,
				Avatar:   deref(ownerAvatar),
			}
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history rows: %w", err)
	}

	if !matched {
		return nil, apperrors.NotFound("user", userID)
	}
	return videos, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

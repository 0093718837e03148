package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/database"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
)

// VideoRepository implements repository.VideoRepository using PostgreSQL.
type VideoRepository struct {
	db database.DBTX
}

// NewVideoRepository creates a new PostgreSQL-backed video repository.
func NewVideoRepository(db database.DBTX) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts a video.
func (r *VideoRepository) Create(ctx context.Context, v *domain.Video) error {
	query := `
		INSERT INTO videos (owner_id, video_file, thumbnail, title, description, duration, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text, views, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		v.OwnerID,
		v.VideoFile,
		v.Thumbnail,
		v.Title,
		v.Description,
		v.Duration,
		v.IsPublished,
	).Scan(&v.ID, &v.Views, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperrors.NotFound("user", v.OwnerID)
		}
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// GetByID retrieves a video with its owner summary.
func (r *VideoRepository) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	query := `
		SELECT v.id::text, v.owner_id::text, v.video_file, v.thumbnail, v.title, v.description,
		       v.duration, v.views, v.is_published, v.created_at, v.updated_at,
		       o.full_name, o.username, o.avatar
		FROM videos v
		JOIN users o ON o.id = v.owner_id
		WHERE v.id = $1`

	var (
		v     domain.Video
		owner domain.OwnerSummary
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.OwnerID,
		&v.VideoFile,
		&v.Thumbnail,
		&v.Title,
		&v.Description,
		&v.Duration,
		&v.Views,
		&v.IsPublished,
		&v.CreatedAt,
		&v.UpdatedAt,
		&owner.FullName,
		&owner.UserName,
		&owner.Avatar,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("video", id)
		}
		return nil, fmt.Errorf("scan video: %w", err)
	}

	v.Owner = &owner
	return &v, nil
}

// IncrementViews adds one to the video's view count and returns the new count.
func (r *VideoRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := r.db.QueryRow(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1 RETURNING views`, id).Scan(&views)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NotFound("video", id)
		}
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return views, nil
}

package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/internal/repository"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
)

// VideoService publishes videos and records views into watch history.
type VideoService struct {
	videos repository.VideoRepository
	users  repository.UserRepository
	cache  repository.IdentityCache
	logger *slog.Logger
}

// NewVideoService creates a new video service. cache may be nil.
func NewVideoService(
	videos repository.VideoRepository,
	users repository.UserRepository,
	cache repository.IdentityCache,
	logger *slog.Logger,
) *VideoService {
	return &VideoService{videos: videos, users: users, cache: cache, logger: logger}
}

// PublishVideoInput holds the metadata of a video to publish.
type PublishVideoInput struct {
	Title       string
	Description string
	VideoFile   string
	Thumbnail   string
	Duration    float64
	IsPublished *bool
}

// Publish stores a video owned by ownerID.
func (s *VideoService) Publish(ctx context.Context, ownerID string, input PublishVideoInput) (*domain.Video, error) {
	published := true
	if input.IsPublished != nil {
		published = *input.IsPublished
	}

	v := &domain.Video{
		OwnerID:     ownerID,
		VideoFile:   input.VideoFile,
		Thumbnail:   input.Thumbnail,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Duration:    input.Duration,
		IsPublished: published,
	}
	if err := s.videos.Create(ctx, v); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "video published",
		slog.String("video_id", v.ID),
		slog.String("owner_id", ownerID),
	)
	return v, nil
}

// Watch returns the video, counts the view and appends it to the viewer's
// watch history. Unpublished videos are only visible to their owner.
func (s *VideoService) Watch(ctx context.Context, viewerID, videoID string) (*domain.Video, error) {
	v, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !v.IsPublished && v.OwnerID != viewerID {
		return nil, apperrors.NotFound("video", videoID)
	}

	views, err := s.videos.IncrementViews(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if err := s.users.AppendWatchHistory(ctx, viewerID, videoID); err != nil {
		return nil, err
	}
	// The cached identity carries the watch history.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, viewerID); err != nil {
			s.logger.WarnContext(ctx, "identity cache invalidation failed",
				slog.String("user_id", viewerID),
				slog.String("error", err.Error()),
			)
		}
	}

	watched := *v
	watched.Views = views
	return &watched, nil
}

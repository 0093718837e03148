package repository

import (
	"context"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
)

// UserRepository defines the credential store operations.
type UserRepository interface {
	// Create inserts a new user, filling in its ID and timestamps.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user including the password and refresh token digests.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetPublicByID retrieves a user without secret columns.
	GetPublicByID(ctx context.Context, id string) (*domain.User, error)

	// GetByUserNameOrEmail retrieves a user matching either identity, with secrets.
	GetByUserNameOrEmail(ctx context.Context, userName, email string) (*domain.User, error)

	// ExistsByUserNameOrEmail reports whether either identity is already taken.
	ExistsByUserNameOrEmail(ctx context.Context, userName, email string) (bool, error)

	// UpdateDetails sets full name and email and returns the public projection.
	UpdateDetails(ctx context.Context, id, fullName, email string) (*domain.User, error)

	// UpdateAvatar sets the avatar URL and returns the public projection.
	UpdateAvatar(ctx context.Context, id, avatarURL string) (*domain.User, error)

	// UpdateCoverImage sets the cover image URL and returns the public projection.
	UpdateCoverImage(ctx context.Context, id, coverURL string) (*domain.User, error)

	// UpdatePassword replaces the password hash and clears the refresh token digest.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetRefreshToken unconditionally stores a refresh token digest. An empty
	// digest clears it.
	SetRefreshToken(ctx context.Context, id, tokenHash string) error

	// SwapRefreshToken replaces oldHash with newHash only if oldHash is still
	// the stored digest. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, id, oldHash, newHash string) (bool, error)

	// AppendWatchHistory appends a video reference to the user's history.
	AppendWatchHistory(ctx context.Context, id, videoID string) error
}

// SubscriptionRepository defines persistence for subscription edges.
type SubscriptionRepository interface {
	// Create inserts an edge. A duplicate edge is reported as ErrAlreadyExists.
	Create(ctx context.Context, sub *domain.Subscription) error

	// Delete removes an edge and reports whether one existed.
	Delete(ctx context.Context, subscriberID, channelID string) (bool, error)

	// ListSubscribers returns users subscribed to channelID, newest first.
	ListSubscribers(ctx context.Context, channelID string, limit, offset int) ([]domain.ChannelMember, int, error)

	// ListSubscribedChannels returns channels subscriberID follows, newest first.
	ListSubscribedChannels(ctx context.Context, subscriberID string, limit, offset int) ([]domain.ChannelMember, int, error)
}

// VideoRepository defines persistence for videos.
type VideoRepository interface {
	Create(ctx context.Context, video *domain.Video) error
	// GetByID returns the video with its owner summary embedded.
	GetByID(ctx context.Context, id string) (*domain.Video, error)
	// IncrementViews counts one view and returns the stored total.
	IncrementViews(ctx context.Context, id string) (int64, error)
}

// AggregateRepository computes derived relationship views, each in a single
// round trip to the store.
type AggregateRepository interface {
	// ChannelProfile returns the channel matching userName with subscriber and
	// subscription counts. requesterID may be empty.
	ChannelProfile(ctx context.Context, userName, requesterID string) (*domain.ChannelProfile, error)

	// WatchHistory returns the user's watched videos in history order,
	// duplicates included, each with its owner embedded.
	WatchHistory(ctx context.Context, userID string) ([]domain.Video, error)
}

// IdentityCache caches public user projections for the session middleware.
type IdentityCache interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	Set(ctx context.Context, user *domain.User) error
	Invalidate(ctx context.Context, id string) error
}

package service

import (
	"context"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
)

// EventPublisher emits identity domain events. Publishing is best effort:
// callers log failures and carry on.
type EventPublisher interface {
	UserRegistered(ctx context.Context, user *domain.User) error
	UserUpdated(ctx context.Context, user *domain.User) error
	PasswordChanged(ctx context.Context, userID string) error
	ChannelSubscribed(ctx context.Context, subscriberID, channelID string) error
	ChannelUnsubscribed(ctx context.Context, subscriberID, channelID string) error
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/internal/repository"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/pagination"
)

// ChannelService serves relationship views and manages subscriptions.
type ChannelService struct {
	aggregates    repository.AggregateRepository
	subscriptions repository.SubscriptionRepository
	users         repository.UserRepository
	events        EventPublisher
	logger        *slog.Logger
}

// NewChannelService creates a new channel service.
func NewChannelService(
	aggregates repository.AggregateRepository,
	subscriptions repository.SubscriptionRepository,
	users repository.UserRepository,
	events EventPublisher,
	logger *slog.Logger,
) *ChannelService {
	return &ChannelService{
		aggregates:    aggregates,
		subscriptions: subscriptions,
		users:         users,
		events:        events,
		logger:        logger,
	}
}

// GetChannelProfile returns the channel view of userName. requesterID may be
// empty, in which case IsSubscribed is false.
func (s *ChannelService) GetChannelProfile(ctx context.Context, userName, requesterID string) (*domain.ChannelProfile, error) {
	name := domain.NormalizeUserName(userName)
	if name == "" {
		return nil, apperrors.InvalidInput("username is missing")
	}
	return s.aggregates.ChannelProfile(ctx, name, requesterID)
}

// GetWatchHistory returns the user's watch history in stored order.
func (s *ChannelService) GetWatchHistory(ctx context.Context, userID string) ([]domain.Video, error) {
	return s.aggregates.WatchHistory(ctx, userID)
}

// ToggleSubscription subscribes subscriberID to channelID, or unsubscribes
// if the edge already exists.
func (s *ChannelService) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (*domain.SubscriptionToggle, error) {
	if subscriberID == channelID {
		return nil, apperrors.InvalidInput("cannot subscribe to your own channel")
	}

	removed, err := s.subscriptions.Delete(ctx, subscriberID, channelID)
	if err != nil {
		return nil, err
	}
	if removed {
		if err := s.events.ChannelUnsubscribed(ctx, subscriberID, channelID); err != nil {
			s.logEventError(ctx, "channel.unsubscribed", err)
		}
		s.logger.InfoContext(ctx, "unsubscribed",
			slog.String("subscriber_id", subscriberID),
			slog.String("channel_id", channelID),
		)
		return &domain.SubscriptionToggle{ChannelID: channelID, Subscribed: false}, nil
	}

	if _, err := s.users.GetPublicByID(ctx, channelID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("channel", channelID)
		}
		return nil, err
	}

	sub := &domain.Subscription{SubscriberID: subscriberID, ChannelID: channelID}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		// A concurrent toggle already created the edge.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return &domain.SubscriptionToggle{ChannelID: channelID, Subscribed: true}, nil
		}
		return nil, err
	}

	if err := s.events.ChannelSubscribed(ctx, subscriberID, channelID); err != nil {
		s.logEventError(ctx, "channel.subscribed", err)
	}
	s.logger.InfoContext(ctx, "subscribed",
		slog.String("subscriber_id", subscriberID),
		slog.String("channel_id", channelID),
	)
	return &domain.SubscriptionToggle{ChannelID: channelID, Subscribed: true}, nil
}

// ListSubscribers returns a page of the channel's subscribers.
func (s *ChannelService) ListSubscribers(ctx context.Context, channelID string, page pagination.Params) ([]domain.ChannelMember, int, error) {
	if err := s.ensureUser(ctx, "channel", channelID); err != nil {
		return nil, 0, err
	}
	return s.subscriptions.ListSubscribers(ctx, channelID, page.PerPage, page.Offset)
}

// ListSubscribedChannels returns a page of channels the subscriber follows.
func (s *ChannelService) ListSubscribedChannels(ctx context.Context, subscriberID string, page pagination.Params) ([]domain.ChannelMember, int, error) {
	if err := s.ensureUser(ctx, "subscriber", subscriberID); err != nil {
		return nil, 0, err
	}
	return s.subscriptions.ListSubscribedChannels(ctx, subscriberID, page.PerPage, page.Offset)
}

func (s *ChannelService) ensureUser(ctx context.Context, resource, id string) error {
	if _, err := s.users.GetPublicByID(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound(resource, id)
		}
		return err
	}
	return nil
}

func (s *ChannelService) logEventError(ctx context.Context, eventType string, err error) {
	s.logger.ErrorContext(ctx, "failed to publish "+eventType+" event",
		slog.String("error", err.Error()),
	)
}

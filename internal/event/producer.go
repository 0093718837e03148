package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	pkgkafka "github.com/ImMohammedAbdulla/Backend-app/pkg/kafka"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/logger"
)

// Topics for identity domain events.
var (
	TopicUserRegistered      = pkgkafka.Topic("user", "registered")
	TopicUserUpdated         = pkgkafka.Topic("user", "updated")
	TopicUserPasswordChanged = pkgkafka.Topic("user", "password_changed")
	TopicChannelSubscribed   = pkgkafka.Topic("channel", "subscribed")
	TopicChannelUnsubscribed = pkgkafka.Topic("channel", "unsubscribed")
)

const (
	aggregateTypeUser    = "user"
	aggregateTypeChannel = "channel"
	source               = "identity-service"
)

// UserData is the payload for user.registered and user.updated events.
type UserData struct {
	ID         string `json:"id"`
	UserName   string `json:"user_name"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"cover_image,omitempty"`
}

// PasswordChangedData is the payload for a user.password_changed event.
type PasswordChangedData struct {
	UserID string `json:"user_id"`
}

// SubscriptionData is the payload for channel.subscribed and channel.unsubscribed events.
type SubscriptionData struct {
	SubscriberID string `json:"subscriber_id"`
	ChannelID    string `json:"channel_id"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes identity domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// UserRegistered publishes a user.registered event.
func (p *Producer) UserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, user.ID, aggregateTypeUser, userData(user))
}

// UserUpdated publishes a user.updated event.
func (p *Producer) UserUpdated(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserUpdated, user.ID, aggregateTypeUser, userData(user))
}

// PasswordChanged publishes a user.password_changed event.
func (p *Producer) PasswordChanged(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserPasswordChanged, userID, aggregateTypeUser, PasswordChangedData{UserID: userID})
}

// ChannelSubscribed publishes a channel.subscribed event keyed by the channel.
func (p *Producer) ChannelSubscribed(ctx context.Context, subscriberID, channelID string) error {
	return p.publish(ctx, TopicChannelSubscribed, channelID, aggregateTypeChannel,
		SubscriptionData{SubscriberID: subscriberID, ChannelID: channelID})
}

// ChannelUnsubscribed publishes a channel.unsubscribed event keyed by the channel.
func (p *Producer) ChannelUnsubscribed(ctx context.Context, subscriberID, channelID string) error {
	return p.publish(ctx, TopicChannelUnsubscribed, channelID, aggregateTypeChannel,
		SubscriptionData{SubscriberID: subscriberID, ChannelID: channelID})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	ev, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func userData(u *domain.User) UserData {
	return UserData{
		ID:         u.ID,
		UserName:   u.UserName,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
	}
}

// Discard drops every event. It is used when Kafka is disabled.
type Discard struct{}

func (Discard) UserRegistered(context.Context, *domain.User) error { return nil }
func (Discard) UserUpdated(context.Context, *domain.User) error { return nil }
func (Discard) PasswordChanged(context.Context, string) error { return nil }
func (Discard) ChannelSubscribed(context.Context, string, string) error { return nil }
func (Discard) ChannelUnsubscribed(context.Context, string, string) error { return nil }

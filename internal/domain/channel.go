package domain

import "time"

// ChannelProfile is the public view of a user as a channel, with
// relationship counts computed at read time.
type ChannelProfile struct {
	ID                 string `json:"id"`
	FullName           string `json:"fullName"`
	UserName           string `json:"userName"`
	Email              string `json:"email"`
	Avatar             string `json:"avatar"`
	CoverImage         string `json:"coverImage"`
	SubscriberCount    int64  `json:"subscriberCount"`
	SubscriptionsCount int64  `json:"subscriptionsCount"`
	IsSubscribed       bool   `json:"isSubscribed"`
}

// Subscription is a directed edge from a subscriber to a channel.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChannelMember is one side of a subscription edge as shown in subscriber
// and subscribed-channel listings.
type ChannelMember struct {
	ID           string    `json:"id"`
	UserName     string    `json:"userName"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// SubscriptionToggle reports the state of an edge after a toggle.
type SubscriptionToggle struct {
	ChannelID  string `json:"channelId"`
	Subscribed bool   `json:"subscribed"`
}

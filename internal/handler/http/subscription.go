package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ImMohammedAbdulla/Backend-app/internal/service"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/httputil"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/pagination"
)

// SubscriptionHandler handles HTTP requests for subscription endpoints.
type SubscriptionHandler struct {
	channels *service.ChannelService
	logger   *slog.Logger
}

// NewSubscriptionHandler creates a new subscription HTTP handler.
func NewSubscriptionHandler(channels *service.ChannelService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{channels: channels, logger: logger}
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}.
func (h *SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	channelID, err := httputil.ParseUUID("channelId", chi.URLParam(r, "channelId"))
	if err != nil {
		return err
	}

	res, err := h.channels.ToggleSubscription(r.Context(), user.ID, channelID.String())
	if err != nil {
		return err
	}

	message := "unsubscribed successfully"
	if res.Subscribed {
		message = "subscribed successfully"
	}
	httputil.WriteSuccess(w, http.StatusOK, res, message)
	return nil
}

// ListSubscribers handles GET /api/v1/subscriptions/c/{channelId}.
func (h *SubscriptionHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) error {
	channelID, err := httputil.ParseUUID("channelId", chi.URLParam(r, "channelId"))
	if err != nil {
		return err
	}

	page := pagination.FromRequest(r)
	members, total, err := h.channels.ListSubscribers(r.Context(), channelID.String(), page)
	if err != nil {
		return err
	}
	httputil.WriteSuccess(w, http.StatusOK,
		httputil.NewPaginatedResponse(members, total, page.Page, page.PerPage),
		"subscribers fetched successfully")
	return nil
}

// ListSubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId}.
func (h *SubscriptionHandler) ListSubscribedChannels(w http.ResponseWriter, r *http.Request) error {
	subscriberID, err := httputil.ParseUUID("subscriberId", chi.URLParam(r, "subscriberId"))
	if err != nil {
		return err
	}

	page := pagination.FromRequest(r)
	members, total, err := h.channels.ListSubscribedChannels(r.Context(), subscriberID.String(), page)
	if err != nil {
		return err
	}
	httputil.WriteSuccess(w, http.StatusOK,
		httputil.NewPaginatedResponse(members, total, page.Page, page.PerPage),
		"subscribed channels fetched successfully")
	return nil
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ImMohammedAbdulla/Backend-app/internal/service"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/httputil"
)

// VideoHandler handles HTTP requests for video endpoints.
type VideoHandler struct {
	videos *service.VideoService
	logger *slog.Logger
}

// NewVideoHandler creates a new video HTTP handler.
func NewVideoHandler(videos *service.VideoService, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{videos: videos, logger: logger}
}

// PublishVideoRequest is the JSON request body for publishing a video.
type PublishVideoRequest struct {
	Title       string  `json:"title" validate:"required,notblank,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	VideoFile   string  `json:"videoFile" validate:"required,url"`
	Thumbnail   string  `json:"thumbnail" validate:"required,url"`
	Duration    float64 `json:"duration" validate:"gte=0"`
	IsPublished *bool   `json:"isPublished"`
}

// Publish handles POST /api/v1/videos.
func (h *VideoHandler) Publish(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req PublishVideoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	video, err := h.videos.Publish(r.Context(), user.ID, service.PublishVideoInput{
		Title:       req.Title,
		Description: req.Description,
		VideoFile:   req.VideoFile,
		Thumbnail:   req.Thumbnail,
		Duration:    req.Duration,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return err
	}
	httputil.WriteSuccess(w, http.StatusCreated, video, "video published successfully")
	return nil
}

// Watch handles GET /api/v1/videos/{videoId}. Fetching a video records it in
// the viewer's watch history.
func (h *VideoHandler) Watch(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := httputil.ParseUUID("videoId", chi.URLParam(r, "videoId"))
	if err != nil {
		return err
	}

	video, err := h.videos.Watch(r.Context(), user.ID, videoID.String())
	if err != nil {
		return err
	}
	httputil.WriteSuccess(w, http.StatusOK, video, "video fetched successfully")
	return nil
}

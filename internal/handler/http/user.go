package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/internal/service"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/httputil"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/validator"
)

// UserHandler handles HTTP requests for account and session endpoints.
type UserHandler struct {
	users          *service.UserService
	channels       *service.ChannelService
	cookies        cookieJar
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(
	users *service.UserService,
	channels *service.ChannelService,
	secureCookies bool,
	maxUploadBytes int64,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		users:          users,
		channels:       channels,
		cookies:        cookieJar{secure: secureCookies},
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// --- Request DTOs ---

// RegisterRequest holds the text fields of the multipart registration form.
type RegisterRequest struct {
	FullName string `form:"fullName" validate:"required,notblank,max=255"`
	UserName string `form:"userName" validate:"required,notblank,max=100"`
	Email    string `form:"email" validate:"required,notblank,email,max=255"`
	Password string `form:"password" validate:"required,notblank,max=72"`
}

// LoginRequest is the JSON request body for login. Either userName or email
// identifies the account.
type LoginRequest struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the optional JSON body for token refresh when the
// refresh cookie is absent.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword" validate:"required,notblank,max=72"`
	NewPassword     string `json:"newPassword" validate:"required,notblank,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword,max=72"`
}

// UpdateDetailsRequest is the JSON request body for updating account details.
type UpdateDetailsRequest struct {
	FullName string `json:"fullName" validate:"required,notblank,max=255"`
	Email    string `json:"email" validate:"required,notblank,email,max=255"`
}

// --- Handlers ---

// Register handles POST /api/v1/users/register (multipart/form-data).
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) error {
	if err := parseMultipart(w, r, h.maxUploadBytes); err != nil {
		return err
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := RegisterRequest{
		FullName: r.FormValue("fullName"),
		UserName: r.FormValue("userName"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}
	if err := validator.Validate(req); err != nil {
		return err
	}

	avatar, avatarFile, err := formFile(r, "avatar")
	if err != nil {
		return err
	}
	cover, coverFile, err := formFile(r, "coverImage")
	if err != nil {
		closeFiles(avatarFile)
		return err
	}
	defer closeFiles(avatarFile, coverFile)

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		FullName:   req.FullName,
		UserName:   req.UserName,
		Email:      req.Email,
		Password:   req.Password,
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		return err
	}

	httputil.WriteSuccess(w, http.StatusCreated, user, "user registered successfully")
	return nil
}

// Login handles POST /api/v1/users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) error {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	res, err := h.users.Login(r.Context(), service.LoginInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	h.cookies.set(w, &domain.TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken})
	httputil.WriteSuccess(w, http.StatusOK, res, "user logged in successfully")
	return nil
}

// Logout handles POST /api/v1/users/logout.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	if err := h.users.Logout(r.Context(), user.ID); err != nil {
		return err
	}

	h.cookies.clear(w)
	httputil.WriteSuccess(w, http.StatusOK, struct{}{}, "user logged out")
	return nil
}

// RefreshToken handles POST /api/v1/users/refreshToken. The refresh cookie
// takes precedence over the request body.
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) error {
	var token string
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" && r.ContentLength != 0 {
		var req RefreshTokenRequest
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("invalid request body")
		}
		token = req.RefreshToken
	}
	if token == "" {
		return apperrors.Unauthorized("unauthorized request")
	}

	pair, err := h.users.RefreshAccessToken(r.Context(), token)
	if err != nil {
		return err
	}

	h.cookies.set(w, pair)
	httputil.WriteSuccess(w, http.StatusOK, pair, "access token refreshed")
	return nil
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	if err := h.users.ChangePassword(r.Context(), user.ID, service.ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	}); err != nil {
		return err
	}

	httputil.WriteSuccess(w, http.StatusOK, struct{}{}, "password changed successfully")
	return nil
}

// GetUserDetails handles GET /api/v1/users/get-user-details.
func (h *UserHandler) GetUserDetails(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	httputil.WriteSuccess(w, http.StatusOK, user, "user fetched successfully")
	return nil
}

// UpdateDetails handles PATCH /api/v1/users/update-details.
func (h *UserHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req UpdateDetailsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	updated, err := h.users.UpdateAccountDetails(r.Context(), user.ID, req.FullName, req.Email)
	if err != nil {
		return err
	}
	httputil.WriteSuccess(w, http.StatusOK, updated, "account details updated successfully")
	return nil
}

// UpdateAvatar handles PATCH /api/v1/users/update-avatar (multipart field "avatar").
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) error {
	return h.updateImage(w, r, "avatar", h.users.UpdateAvatar, "avatar updated successfully")
}

// UpdateCoverImage handles PATCH /api/v1/users/update-cover-image (multipart field "coverImage").
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) error {
	return h.updateImage(w, r, "coverImage", h.users.UpdateCoverImage, "cover image updated successfully")
}

func (h *UserHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID string, file *service.FileInput) (*domain.User, error),
	message string,
) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	if err := parseMultipart(w, r, h.maxUploadBytes); err != nil {
		return err
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	input, file, err := formFile(r, field)
	if err != nil {
		return err
	}
	defer closeFiles(file)

	updated, err := update(r.Context(), user.ID, input)
	if err != nil {
		return err
	}
	httputil.WriteSuccess(w, http.StatusOK, updated, message)
	return nil
}

// GetChannelProfile handles GET /api/v1/users/c/{userName}.
func (h *UserHandler) GetChannelProfile(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	profile, err := h.channels.GetChannelProfile(r.Context(), chi.URLParam(r, "userName"), user.ID)
	if err != nil {
		return err
	}
	httputil.WriteSuccess(w, http.StatusOK, profile, "user channel fetched successfully")
	return nil
}

// GetWatchHistory handles GET /api/v1/users/history.
func (h *UserHandler) GetWatchHistory(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	history, err := h.channels.GetWatchHistory(r.Context(), user.ID)
	if err != nil {
		return err
	}
	httputil.WriteSuccess(w, http.StatusOK, history, "watch history fetched successfully")
	return nil
}

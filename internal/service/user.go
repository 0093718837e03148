package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/internal/repository"
	"github.com/ImMohammedAbdulla/Backend-app/internal/storage"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
var bcryptCost = bcrypt.DefaultCost

const (
	avatarFolder = "avatars"
	coverFolder  = "covers"
)

// UserService implements registration, login and profile management.
type UserService struct {
	users   repository.UserRepository
	tokens  *TokenService
	storage storage.Storage
	cache   repository.IdentityCache
	events  EventPublisher
	logger  *slog.Logger
}

// NewUserService creates a new user service. cache may be nil.
func NewUserService(
	users repository.UserRepository,
	tokens *TokenService,
	store storage.Storage,
	cache repository.IdentityCache,
	events EventPublisher,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:   users,
		tokens:  tokens,
		storage: store,
		cache:   cache,
		events:  events,
		logger:  logger,
	}
}

// FileInput is an uploaded file as received by a handler.
type FileInput struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	FullName   string
	UserName   string
	Email      string
	Password   string
	Avatar     *FileInput
	CoverImage *FileInput
}

// LoginInput holds login credentials. Either UserName or Email identifies the user.
type LoginInput struct {
	UserName string
	Email    string
	Password string
}

// ChangePasswordInput holds the parameters for changing a password.
type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// Register creates a new account. The user name and email must both be free.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Avatar == nil {
		return nil, apperrors.InvalidInput("avatar file is required")
	}

	userName := domain.NormalizeUserName(input.UserName)
	email := domain.NormalizeEmail(input.Email)

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByUserNameOrEmail(ctx, userName, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.AlreadyExists("user", "userName or email", userName)
	}

	avatar, err := s.upload(ctx, avatarFolder, input.Avatar)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	uploaded := []string{avatar.Key}

	var coverURL string
	if input.CoverImage != nil {
		cover, err := s.upload(ctx, coverFolder, input.CoverImage)
		if err != nil {
			s.discard(ctx, uploaded)
			return nil, fmt.Errorf("upload cover image: %w", err)
		}
		coverURL = cover.URL
		uploaded = append(uploaded, cover.Key)
	}

	user := &domain.User{
		UserName:     userName,
		Email:        email,
		FullName:     strings.TrimSpace(input.FullName),
		Avatar:       avatar.URL,
		CoverImage:   coverURL,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.discard(ctx, uploaded)
		return nil, err
	}

	created, err := s.users.GetPublicByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load registered user: %w", err)
	}

	if err := s.events.UserRegistered(ctx, created); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", created.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", created.ID),
		slog.String("user_name", created.UserName),
	)
	return created, nil
}

// Login checks credentials and issues a new token pair. A concurrent login
// for the same user overwrites this pair's refresh token.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	userName := domain.NormalizeUserName(input.UserName)
	email := domain.NormalizeEmail(input.Email)
	if userName == "" && email == "" {
		return nil, apperrors.InvalidInput("username or email is required")
	}

	user, err := s.users.GetByUserNameOrEmail(ctx, userName, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", firstNonEmpty(userName, email))
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid user credentials")
	}

	pair, err := s.tokens.issueFor(ctx, user)
	recordTokenOp("issue", err)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return &LoginResult{
		User:         publicView(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout revokes the user's refresh token.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.tokens.Revoke(ctx, userID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))
	return nil
}

// RefreshAccessToken rotates refreshToken into a new pair.
func (s *UserService) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	return s.tokens.Rotate(ctx, refreshToken)
}

// ChangePassword verifies the old password and stores the new one. The
// stored refresh token is revoked along with it.
func (s *UserService) ChangePassword(ctx context.Context, userID string, input ChangePasswordInput) error {
	if input.NewPassword != input.ConfirmPassword {
		return apperrors.InvalidInput("new password and confirm password must match")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
		return apperrors.InvalidInput("invalid old password")
	}

	hash, err := hashPassword(input.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	if err := s.events.PasswordChanged(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", userID))
	return nil
}

// Authenticate resolves an access token to the public user record. Any
// failure is reported as Unauthorized.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	userID, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "identity cache read failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	user, err := s.users.GetPublicByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid access token")
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, user); err != nil {
			s.logger.WarnContext(ctx, "identity cache write failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}
	return user, nil
}

// UpdateAccountDetails sets the full name and email.
func (s *UserService) UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (*domain.User, error) {
	user, err := s.users.UpdateDetails(ctx, userID, strings.TrimSpace(fullName), domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	s.profileChanged(ctx, user)
	return user, nil
}

// UpdateAvatar uploads a new avatar and points the user at it.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, file *FileInput) (*domain.User, error) {
	if file == nil {
		return nil, apperrors.InvalidInput("avatar file is missing")
	}
	res, err := s.upload(ctx, avatarFolder, file)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	user, err := s.users.UpdateAvatar(ctx, userID, res.URL)
	if err != nil {
		s.discard(ctx, []string{res.Key})
		return nil, err
	}
	s.profileChanged(ctx, user)
	return user, nil
}

// UpdateCoverImage uploads a new cover image and points the user at it.
func (s *UserService) UpdateCoverImage(ctx context.Context, userID string, file *FileInput) (*domain.User, error) {
	if file == nil {
		return nil, apperrors.InvalidInput("cover image file is missing")
	}
	res, err := s.upload(ctx, coverFolder, file)
	if err != nil {
		return nil, fmt.Errorf("upload cover image: %w", err)
	}

	user, err := s.users.UpdateCoverImage(ctx, userID, res.URL)
	if err != nil {
		s.discard(ctx, []string{res.Key})
		return nil, err
	}
	s.profileChanged(ctx, user)
	return user, nil
}

func (s *UserService) upload(ctx context.Context, folder string, file *FileInput) (*storage.UploadResult, error) {
	return s.storage.Upload(ctx, &storage.UploadInput{
		Key:         storage.ObjectKey(folder, file.Filename),
		ContentType: file.ContentType,
		Size:        file.Size,
		Data:        file.Data,
	})
}

// discard removes uploads orphaned by a failed operation.
func (s *UserService) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned upload",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *UserService) profileChanged(ctx context.Context, user *domain.User) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, user.ID); err != nil {
			s.logger.WarnContext(ctx, "identity cache invalidation failed",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := s.events.UserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// publicView strips secret fields from a user loaded with them.
// hashPassword rejects passwords bcrypt cannot hash as caller errors.
func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apperrors.InvalidInput("password must be at most 72 bytes")
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func publicView(u *domain.User) *domain.User {
	out := *u
	out.PasswordHash = ""
	out.RefreshTokenHash = ""
	return &out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

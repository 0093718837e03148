package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ImMohammedAbdulla/Backend-app/internal/auth"
	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/internal/storage"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) userResult(args mock.Arguments) (*domain.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, id))
}

func (m *mockUserRepository) GetPublicByID(ctx context.Context, id string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, id))
}

func (m *mockUserRepository) GetByUserNameOrEmail(ctx context.Context, userName, email string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, userName, email))
}

func (m *mockUserRepository) ExistsByUserNameOrEmail(ctx context.Context, userName, email string) (bool, error) {
	args := m.Called(ctx, userName, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) UpdateDetails(ctx context.Context, id, fullName, email string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, id, fullName, email))
}

func (m *mockUserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, id, avatarURL))
}

func (m *mockUserRepository) UpdateCoverImage(ctx context.Context, id, coverURL string) (*domain.User, error) {
	return m.userResult(m.Called(ctx, id, coverURL))
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *mockUserRepository) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	return m.Called(ctx, id, tokenHash).Error(0)
}

func (m *mockUserRepository) SwapRefreshToken(ctx context.Context, id, oldHash, newHash string) (bool, error) {
	args := m.Called(ctx, id, oldHash, newHash)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) AppendWatchHistory(ctx context.Context, id, videoID string) error {
	return m.Called(ctx, id, videoID).Error(0)
}

// --- Mock Subscription Repository ---

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockSubscriptionRepository) Delete(ctx context.Context, subscriberID, channelID string) (bool, error) {
	args := m.Called(ctx, subscriberID, channelID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSubscriptionRepository) ListSubscribers(ctx context.Context, channelID string, limit, offset int) ([]domain.ChannelMember, int, error) {
	args := m.Called(ctx, channelID, limit, offset)
	return args.Get(0).([]domain.ChannelMember), args.Int(1), args.Error(2)
}

func (m *mockSubscriptionRepository) ListSubscribedChannels(ctx context.Context, subscriberID string, limit, offset int) ([]domain.ChannelMember, int, error) {
	args := m.Called(ctx, subscriberID, limit, offset)
	return args.Get(0).([]domain.ChannelMember), args.Int(1), args.Error(2)
}

// --- Mock Video Repository ---

type mockVideoRepository struct {
	mock.Mock
}

func (m *mockVideoRepository) Create(ctx context.Context, video *domain.Video) error {
	return m.Called(ctx, video).Error(0)
}

func (m *mockVideoRepository) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Video), args.Error(1)
}

func (m *mockVideoRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Aggregate Repository ---

type mockAggregateRepository struct {
	mock.Mock
}

func (m *mockAggregateRepository) ChannelProfile(ctx context.Context, userName, requesterID string) (*domain.ChannelProfile, error) {
	args := m.Called(ctx, userName, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChannelProfile), args.Error(1)
}

func (m *mockAggregateRepository) WatchHistory(ctx context.Context, userID string) ([]domain.Video, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Video), args.Error(1)
}

// --- Mock Identity Cache ---

type mockIdentityCache struct {
	mock.Mock
}

func (m *mockIdentityCache) Get(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockIdentityCache) Set(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockIdentityCache) Invalidate(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Recording event publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) record(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, name)
	return p.err
}

func (p *recordingPublisher) UserRegistered(context.Context, *domain.User) error {
	return p.record("user.registered")
}

func (p *recordingPublisher) UserUpdated(context.Context, *domain.User) error {
	return p.record("user.updated")
}

func (p *recordingPublisher) PasswordChanged(context.Context, string) error {
	return p.record("user.password_changed")
}

func (p *recordingPublisher) ChannelSubscribed(context.Context, string, string) error {
	return p.record("channel.subscribed")
}

func (p *recordingPublisher) ChannelUnsubscribed(context.Context, string, string) error {
	return p.record("channel.unsubscribed")
}

// --- Failing storage ---

type failingStorage struct {
	storage.Storage
	err error
}

func (f failingStorage) Upload(context.Context, *storage.UploadInput) (*storage.UploadResult, error) {
	return nil, f.err
}

// --- In-memory credential store ---

// memUserStore is a minimal credential store used to exercise multi-step
// token flows end to end.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*domain.User{}}
}

func (s *memUserStore) find(id string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return u, nil
}

func (s *memUserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.UserName == u.UserName || existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "userName", u.UserName)
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	u.WatchHistory = []string{}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.find(id)
	if err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) GetPublicByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return publicView(u), nil
}

func (s *memUserStore) GetByUserNameOrEmail(_ context.Context, userName, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var byEmail *domain.User
	for _, u := range s.users {
		if userName != "" && u.UserName == userName {
			cp := *u
			return &cp, nil
		}
		if email != "" && u.Email == email {
			byEmail = u
		}
	}
	if byEmail != nil {
		cp := *byEmail
		return &cp, nil
	}
	return nil, apperrors.NotFound("user", userName)
}

func (s *memUserStore) ExistsByUserNameOrEmail(ctx context.Context, userName, email string) (bool, error) {
	_, err := s.GetByUserNameOrEmail(ctx, userName, email)
	return err == nil, nil
}

func (s *memUserStore) update(id string, fn func(u *domain.User)) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.find(id)
	if err != nil {
		return nil, err
	}
	fn(u)
	return publicView(u), nil
}

func (s *memUserStore) UpdateDetails(_ context.Context, id, fullName, email string) (*domain.User, error) {
	return s.update(id, func(u *domain.User) { u.FullName, u.Email = fullName, email })
}

func (s *memUserStore) UpdateAvatar(_ context.Context, id, avatarURL string) (*domain.User, error) {
	return s.update(id, func(u *domain.User) { u.Avatar = avatarURL })
}

func (s *memUserStore) UpdateCoverImage(_ context.Context, id, coverURL string) (*domain.User, error) {
	return s.update(id, func(u *domain.User) { u.CoverImage = coverURL })
}

func (s *memUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	_, err := s.update(id, func(u *domain.User) { u.PasswordHash, u.RefreshTokenHash = passwordHash, "" })
	return err
}

func (s *memUserStore) SetRefreshToken(_ context.Context, id, tokenHash string) error {
	_, err := s.update(id, func(u *domain.User) { u.RefreshTokenHash = tokenHash })
	return err
}

func (s *memUserStore) SwapRefreshToken(_ context.Context, id, oldHash, newHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.find(id)
	if err != nil || u.RefreshTokenHash != oldHash {
		return false, nil
	}
	u.RefreshTokenHash = newHash
	return true, nil
}

func (s *memUserStore) AppendWatchHistory(_ context.Context, id, videoID string) error {
	_, err := s.update(id, func(u *domain.User) { u.WatchHistory = append(u.WatchHistory, videoID) })
	return err
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(
		"access-secret-for-service-tests-0123456789",
		"refresh-secret-for-service-tests-0123456789",
		15*time.Minute,
		240*time.Hour,
	)
}

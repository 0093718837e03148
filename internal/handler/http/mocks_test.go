package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ImMohammedAbdulla/Backend-app/internal/auth"
	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/internal/event"
	"github.com/ImMohammedAbdulla/Backend-app/internal/service"
	"github.com/ImMohammedAbdulla/Backend-app/internal/storage/memory"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/health"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) user(args mock.Arguments) (*domain.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *mockUserRepo) GetPublicByID(ctx context.Context, id string) (*domain.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *mockUserRepo) GetByUserNameOrEmail(ctx context.Context, userName, email string) (*domain.User, error) {
	return m.user(m.Called(ctx, userName, email))
}

func (m *mockUserRepo) ExistsByUserNameOrEmail(ctx context.Context, userName, email string) (bool, error) {
	args := m.Called(ctx, userName, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) UpdateDetails(ctx context.Context, id, fullName, email string) (*domain.User, error) {
	return m.user(m.Called(ctx, id, fullName, email))
}

func (m *mockUserRepo) UpdateAvatar(ctx context.Context, id, avatarURL string) (*domain.User, error) {
	return m.user(m.Called(ctx, id, avatarURL))
}

func (m *mockUserRepo) UpdateCoverImage(ctx context.Context, id, coverURL string) (*domain.User, error) {
	return m.user(m.Called(ctx, id, coverURL))
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *mockUserRepo) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	return m.Called(ctx, id, tokenHash).Error(0)
}

func (m *mockUserRepo) SwapRefreshToken(ctx context.Context, id, oldHash, newHash string) (bool, error) {
	args := m.Called(ctx, id, oldHash, newHash)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) AppendWatchHistory(ctx context.Context, id, videoID string) error {
	return m.Called(ctx, id, videoID).Error(0)
}

type mockSubscriptionRepo struct {
	mock.Mock
}

func (m *mockSubscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockSubscriptionRepo) Delete(ctx context.Context, subscriberID, channelID string) (bool, error) {
	args := m.Called(ctx, subscriberID, channelID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSubscriptionRepo) ListSubscribers(ctx context.Context, channelID string, limit, offset int) ([]domain.ChannelMember, int, error) {
	args := m.Called(ctx, channelID, limit, offset)
	return args.Get(0).([]domain.ChannelMember), args.Int(1), args.Error(2)
}

func (m *mockSubscriptionRepo) ListSubscribedChannels(ctx context.Context, subscriberID string, limit, offset int) ([]domain.ChannelMember, int, error) {
	args := m.Called(ctx, subscriberID, limit, offset)
	return args.Get(0).([]domain.ChannelMember), args.Int(1), args.Error(2)
}

type mockVideoRepo struct {
	mock.Mock
}

func (m *mockVideoRepo) Create(ctx context.Context, v *domain.Video) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockVideoRepo) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Video), args.Error(1)
}

func (m *mockVideoRepo) IncrementViews(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type mockAggregateRepo struct {
	mock.Mock
}

func (m *mockAggregateRepo) ChannelProfile(ctx context.Context, userName, requesterID string) (*domain.ChannelProfile, error) {
	args := m.Called(ctx, userName, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChannelProfile), args.Error(1)
}

func (m *mockAggregateRepo) WatchHistory(ctx context.Context, userID string) ([]domain.Video, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Video), args.Error(1)
}

// ============================================================================
// Test Environment
// ============================================================================

type testEnv struct {
	router     http.Handler
	users      *mockUserRepo
	subs       *mockSubscriptionRepo
	videos     *mockVideoRepo
	aggregates *mockAggregateRepo
	tokens     *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		users:      new(mockUserRepo),
		subs:       new(mockSubscriptionRepo),
		videos:     new(mockVideoRepo),
		aggregates: new(mockAggregateRepo),
		tokens: auth.NewTokenManager(
			"handler-test-access-secret-0123456789",
			"handler-test-refresh-secret-0123456789",
			15*time.Minute,
			240*time.Hour,
		),
	}

	media := memory.New("http://localhost/media")
	tokenSvc := service.NewTokenService(env.users, env.tokens, logger)
	userSvc := service.NewUserService(env.users, tokenSvc, media, nil, event.Discard{}, logger)
	channelSvc := service.NewChannelService(env.aggregates, env.subs, env.users, event.Discard{}, logger)
	videoSvc := service.NewVideoService(env.videos, env.users, nil, logger)

	env.router = NewRouter(RouterConfig{
		Users:         userSvc,
		Channels:      channelSvc,
		Videos:        videoSvc,
		Health:        health.NewHandler(),
		Logger:        logger,
		CORSOrigins:   []string{"*"},
		SecureCookies: true,
		MaxUpload:     1 << 20,
		Media:         media,
	})
	return env
}

// signIn makes user resolvable by the session middleware and returns a valid
// access token for it.
func (e *testEnv) signIn(t *testing.T, user *domain.User) string {
	t.Helper()
	token, err := e.tokens.GenerateAccessToken(auth.Subject{UserID: user.ID, UserName: user.UserName})
	require.NoError(t, err)
	e.users.On("GetPublicByID", mock.Anything, user.ID).Return(user, nil).Maybe()
	return token
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func withSession(req *http.Request, accessToken string) *http.Request {
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: accessToken})
	return req
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a multipart form; files maps field names to file names.
func multipartRequest(t *testing.T, method, target string, fields, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("\x89PNG"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Code       string          `json:"code"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func sampleUser() *domain.User {
	return &domain.User{
		ID:           "3f1c0a52-8d5e-4c55-9b2a-0d5c7b1e9a10",
		UserName:     "ab",
		Email:        "a@b.com",
		FullName:     "A B",
		Avatar:       "http://localhost/media/avatars/a.png",
		WatchHistory: []string{},
	}
}

func notFound(resource, id string) error {
	return apperrors.NotFound(resource, id)
}

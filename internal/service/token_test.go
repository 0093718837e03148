package service

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ImMohammedAbdulla/Backend-app/internal/auth"
	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
)

func TestMain(m *testing.M) {
	bcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func newTokenServiceWithStore(t *testing.T) (*TokenService, *memUserStore, *domain.User) {
	t.Helper()
	store := newMemUserStore()
	user := &domain.User{UserName: "ab", Email: "a@b.com", FullName: "A B", Avatar: "av"}
	require.NoError(t, store.Create(context.Background(), user))
	return NewTokenService(store, newTestTokenManager(), newTestLogger()), store, user
}

// ---------------------------------------------------------------------------
// Issue
// ---------------------------------------------------------------------------

func TestTokenService_Issue_StoresRefreshDigest(t *testing.T) {
	svc, store, user := newTokenServiceWithStore(t)

	pair, err := svc.Issue(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	stored, err := store.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.HashToken(pair.RefreshToken), stored.RefreshTokenHash)
	assert.NotEqual(t, pair.RefreshToken, stored.RefreshTokenHash, "the raw token is never stored")
}

func TestTokenService_Issue_UserNotFound(t *testing.T) {
	repo := new(mockUserRepository)
	svc := NewTokenService(repo, newTestTokenManager(), newTestLogger())

	repo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NotFound("user", "missing"))

	_, err := svc.Issue(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	repo.AssertNotCalled(t, "SetRefreshToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestTokenService_Issue_PersistFailureIsInternal(t *testing.T) {
	repo := new(mockUserRepository)
	svc := NewTokenService(repo, newTestTokenManager(), newTestLogger())

	repo.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1"}, nil)
	repo.On("SetRefreshToken", mock.Anything, "u1", mock.MatchedBy(func(h string) bool { return len(h) == 64 })).
		Return(errors.New("connection reset"))

	_, err := svc.Issue(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))
	repo.AssertExpectations(t)
}

// ---------------------------------------------------------------------------
// VerifyAccess / VerifyRefresh
// ---------------------------------------------------------------------------

func TestTokenService_VerifyAccess(t *testing.T) {
	svc, _, user := newTokenServiceWithStore(t)

	pair, err := svc.Issue(context.Background(), user.ID)
	require.NoError(t, err)

	id, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	for _, token := range []string{"", "garbage", pair.RefreshToken} {
		_, err := svc.VerifyAccess(token)
		assert.True(t, errors.Is(err, apperrors.ErrUnauthorized), "token %q", token)
	}
}

func TestTokenService_VerifyRefresh(t *testing.T) {
	svc, _, user := newTokenServiceWithStore(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, user.ID)
	require.NoError(t, err)

	id, err := svc.VerifyRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, err = svc.VerifyRefresh(ctx, "")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	_, err = svc.VerifyRefresh(ctx, pair.AccessToken)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestTokenService_VerifyRefresh_UserGone(t *testing.T) {
	repo := new(mockUserRepository)
	tokens := newTestTokenManager()
	svc := NewTokenService(repo, tokens, newTestLogger())

	refresh, err := tokens.GenerateRefreshToken("ghost")
	require.NoError(t, err)
	repo.On("GetByID", mock.Anything, "ghost").Return(nil, apperrors.NotFound("user", "ghost"))

	_, err = svc.VerifyRefresh(context.Background(), refresh)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestTokenService_VerifyRefresh_SupersededTokenExpired(t *testing.T) {
	svc, _, user := newTokenServiceWithStore(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, user.ID)
	require.NoError(t, err)
	_, err = svc.Issue(ctx, user.ID)
	require.NoError(t, err)

	_, err = svc.VerifyRefresh(ctx, first.RefreshToken)
	assert.True(t, errors.Is(err, apperrors.ErrExpired))
}

// ---------------------------------------------------------------------------
// Rotate / Revoke
// ---------------------------------------------------------------------------

func TestTokenService_Rotate_SingleUse(t *testing.T) {
	svc, _, user := newTokenServiceWithStore(t)
	ctx := context.Background()

	original, err := svc.Issue(ctx, user.ID)
	require.NoError(t, err)

	rotated, err := svc.Rotate(ctx, original.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, original.RefreshToken, rotated.RefreshToken)

	_, err = svc.Rotate(ctx, original.RefreshToken)
	assert.True(t, errors.Is(err, apperrors.ErrExpired), "old token must not rotate again")

	again, err := svc.Rotate(ctx, rotated.RefreshToken)
	require.NoError(t, err, "new token rotates once")

	_, err = svc.Rotate(ctx, rotated.RefreshToken)
	assert.True(t, errors.Is(err, apperrors.ErrExpired))

	_, err = svc.Rotate(ctx, again.RefreshToken)
	assert.NoError(t, err)
}

func TestTokenService_Rotate_ConcurrentExactlyOneWins(t *testing.T) {
	svc, _, user := newTokenServiceWithStore(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, user.ID)
	require.NoError(t, err)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		expired   int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Rotate(ctx, pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperrors.ErrExpired):
				expired++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, expired)
}

func TestTokenService_Rotate_LostSwapIsExpired(t *testing.T) {
	repo := new(mockUserRepository)
	tokens := newTestTokenManager()
	svc := NewTokenService(repo, tokens, newTestLogger())

	refresh, err := tokens.GenerateRefreshToken("u1")
	require.NoError(t, err)
	digest := auth.HashToken(refresh)

	repo.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", RefreshTokenHash: digest}, nil)
	repo.On("SwapRefreshToken", mock.Anything, "u1", digest, mock.Anything).Return(false, nil)

	_, err = svc.Rotate(context.Background(), refresh)
	assert.True(t, errors.Is(err, apperrors.ErrExpired))
	repo.AssertExpectations(t)
}

func TestTokenService_Revoke(t *testing.T) {
	svc, store, user := newTokenServiceWithStore(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, user.ID))

	stored, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshTokenHash)

	_, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.True(t, errors.Is(err, apperrors.ErrExpired))

	// Revoking an already revoked session is harmless.
	assert.NoError(t, svc.Revoke(ctx, user.ID))
}

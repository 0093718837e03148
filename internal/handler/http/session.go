package http

import (
	"context"
	"net/http"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/internal/service"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/middleware"
)

// Session cookie names.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type userContextKey struct{}

// UserFromContext returns the user attached by the session middleware.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*domain.User)
	return u, ok && u != nil
}

func currentUser(r *http.Request) (*domain.User, error) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		return nil, apperrors.Unauthorized("unauthorized request")
	}
	return u, nil
}

// sessionAuthenticator resolves an access token to its user and attaches the
// user to the request context.
func sessionAuthenticator(users *service.UserService) middleware.Authenticator {
	return func(ctx context.Context, token string) (string, context.Context, error) {
		u, err := users.Authenticate(ctx, token)
		if err != nil {
			return "", ctx, err
		}
		return u.ID, context.WithValue(ctx, userContextKey{}, u), nil
	}
}

// cookieJar writes and clears the session cookies.
type cookieJar struct {
	secure bool
}

func (c cookieJar) set(w http.ResponseWriter, pair *domain.TokenPair) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, pair.AccessToken, 0))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, pair.RefreshToken, 0))
}

func (c cookieJar) clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, "", -1))
}

func (c cookieJar) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/httputil"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/logger"
)

// Authenticator verifies a raw credential. On success it returns the
// authenticated subject id and a context carrying whatever identity the
// caller wants downstream handlers to see.
type Authenticator func(ctx context.Context, token string) (subjectID string, _ context.Context, _ error)

// ExtractToken returns the credential presented by the request. The named
// cookie wins; otherwise a "Bearer" Authorization header is used.
func ExtractToken(r *http.Request, cookieName string) (string, bool) {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, true
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// Auth rejects requests without a valid credential. Failures are rendered as
// 401 envelopes and the wrapped handler never runs. On success the
// request-scoped logger is re-enriched with the subject id.
func Auth(cookieName string, authenticate Authenticator, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := ExtractToken(r, cookieName)
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("unauthorized request"), l)
				return
			}

			subjectID, ctx, err := authenticate(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, r, err, l)
				return
			}

			ctx = logger.WithUserID(ctx, subjectID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", subjectID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

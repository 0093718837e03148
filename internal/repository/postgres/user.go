package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/database"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
)

// publicColumns never include password_hash or refresh_token_hash.
const publicColumns = `id::text, username, email, full_name, avatar, cover_image,
		watch_history::text[], created_at, updated_at`

const secretColumns = publicColumns + `, password_hash, COALESCE(refresh_token_hash, '')`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. A concurrent registration that slipped past the
// existence check is reported as ErrAlreadyExists via the unique constraints.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, email, full_name, avatar, cover_image, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.UserName,
		u.Email,
		u.FullName,
		u.Avatar,
		u.CoverImage,
		u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return uniqueViolationError(err, u.UserName, u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if u.WatchHistory == nil {
		u.WatchHistory = []string{}
	}
	return nil
}

// GetByID retrieves a user by ID, including secret digests.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + secretColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, id), true, id)
}

// GetPublicByID retrieves a user by ID without secret columns.
func (r *UserRepository) GetPublicByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + publicColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, id), false, id)
}

// GetByUserNameOrEmail retrieves the user whose username or email matches.
// When the two identify different users, the username match wins.
func (r *UserRepository) GetByUserNameOrEmail(ctx context.Context, userName, email string) (*domain.User, error) {
	query := `SELECT ` + secretColumns + ` FROM users WHERE username = $1 OR email = $2
		ORDER BY (username = $1) DESC LIMIT 1`
	return r.scanUser(r.db.QueryRow(ctx, query, userName, email), true, firstNonEmpty(userName, email))
}

// ExistsByUserNameOrEmail reports whether a user already holds either identity.
func (r *UserRepository) ExistsByUserNameOrEmail(ctx context.Context, userName, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		userName, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// UpdateDetails sets the full name and email.
func (r *UserRepository) UpdateDetails(ctx context.Context, id, fullName, email string) (*domain.User, error) {
	query := `
		UPDATE users SET full_name = $2, email = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + publicColumns

	u, err := r.scanUser(r.db.QueryRow(ctx, query, id, fullName, email), false, id)
	if err != nil && isUniqueViolation(err) {
		return nil, apperrors.AlreadyExists("user", "email", email)
	}
	return u, err
}

// UpdateAvatar sets the avatar URL.
func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) (*domain.User, error) {
	query := `
		UPDATE users SET avatar = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + publicColumns
	return r.scanUser(r.db.QueryRow(ctx, query, id, avatarURL), false, id)
}

// UpdateCoverImage sets the cover image URL.
func (r *UserRepository) UpdateCoverImage(ctx context.Context, id, coverURL string) (*domain.User, error) {
	query := `
		UPDATE users SET cover_image = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + publicColumns
	return r.scanUser(r.db.QueryRow(ctx, query, id, coverURL), false, id)
}

// UpdatePassword replaces the password hash and revokes the stored refresh token.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, refresh_token_hash = NULL, updated_at = NOW() WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// SetRefreshToken stores tokenHash, or clears the digest when tokenHash is empty.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE users SET refresh_token_hash = NULLIF($2, '') WHERE id = $1`,
		id, tokenHash,
	)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// SwapRefreshToken performs a compare-and-swap on the refresh token digest.
func (r *UserRepository) SwapRefreshToken(ctx context.Context, id, oldHash, newHash string) (bool, error) {
	ct, err := r.db.Exec(ctx,
		`UPDATE users SET refresh_token_hash = NULLIF($3, '') WHERE id = $1 AND refresh_token_hash = $2`,
		id, oldHash, newHash,
	)
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// AppendWatchHistory appends videoID to the end of the user's watch history.
func (r *UserRepository) AppendWatchHistory(ctx context.Context, id, videoID string) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE users SET watch_history = array_append(watch_history, $2::uuid) WHERE id = $1`,
		id, videoID,
	)
	if err != nil {
		return fmt.Errorf("append watch history: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

func (r *UserRepository) scanUser(row pgx.Row, withSecrets bool, key string) (*domain.User, error) {
	var u domain.User
	dest := []any{
		&u.ID,
		&u.UserName,
		&u.Email,
		&u.FullName,
		&u.Avatar,
		&u.CoverImage,
		&u.WatchHistory,
		&u.CreatedAt,
		&u.UpdatedAt,
	}
	if withSecrets {
		dest = append(dest, &u.PasswordHash, &u.RefreshTokenHash)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", key)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if u.WatchHistory == nil {
		u.WatchHistory = []string{}
	}
	return &u, nil
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}

func uniqueViolationError(err error, userName, email string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "users_email_key" {
		return apperrors.AlreadyExists("user", "email", email)
	}
	if strings.Contains(err.Error(), "users_email_key") {
		return apperrors.AlreadyExists("user", "email", email)
	}
	return apperrors.AlreadyExists("user", "userName", userName)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

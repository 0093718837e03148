package domain

import (
	"strings"
	"time"
)

// User is a registered account. PasswordHash and RefreshTokenHash never leave
// the process: they are excluded from JSON and only loaded by queries that
// need them.
type User struct {
	ID               string    `json:"id"`
	UserName         string    `json:"userName"`
	Email            string    `json:"email"`
	FullName         string    `json:"fullName"`
	Avatar           string    `json:"avatar"`
	CoverImage       string    `json:"coverImage"`
	WatchHistory     []string  `json:"watchHistory"`
	PasswordHash     string    `json:"-"`
	RefreshTokenHash string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TokenPair is a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// NormalizeUserName lowercases and trims a user name. User names are unique
// case-insensitively.
func NormalizeUserName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

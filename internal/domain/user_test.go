package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Normalization
// ============================================================================

func TestNormalizeUserName(t *testing.T) {
	assert.Equal(t, "ab", NormalizeUserName("  AB "))
	assert.Equal(t, "chai.aur.code", NormalizeUserName("Chai.Aur.Code"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.io", NormalizeEmail(" A@X.io"))
}

// ============================================================================
// Serialization
// ============================================================================

func TestUser_SecretsExcludedFromJSON(t *testing.T) {
	u := User{
		ID:               "u-1",
		UserName:         "ab",
		PasswordHash:     "$2a$10$hash",
		RefreshTokenHash: "deadbeef",
	}

	data, err := json.Marshal(u)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "ab", out["userName"])
	assert.NotContains(t, string(data), "$2a$10$hash")
	assert.NotContains(t, string(data), "deadbeef")
	assert.NotContains(t, out, "password")
	assert.NotContains(t, out, "refreshToken")
}

func TestVideo_OwnerOmittedWhenNotJoined(t *testing.T) {
	data, err := json.Marshal(Video{ID: "v1"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"owner"`)

	data, err = json.Marshal(Video{ID: "v1", Owner: &OwnerSummary{UserName: "ab"}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"owner":{"fullName":"","userName":"ab","avatar":""}`)
}

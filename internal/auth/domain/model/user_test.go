package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserJSON_CamelCaseAndNoSecrets(t *testing.T) {
	user := &User{
		ID:           "u1",
		Handle:       "alice",
		FullName:     "Alice Example",
		PasswordHash: "secret-hash",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	raw, err := json.Marshal(user)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Contains(t, fields, "createdAt")
	assert.Contains(t, fields, "updatedAt")
	assert.Contains(t, fields, "fullName")
	assert.NotContains(t, fields, "created_at")
	assert.NotContains(t, fields, "updated_at")
	assert.NotContains(t, fields, "passwordHash")
	assert.NotContains(t, fields, "password_hash")
}

func TestSanitized_StripsPasswordHash(t *testing.T) {
	user := &User{ID: "u1", Handle: "alice", PasswordHash: "secret-hash"}

	clean := user.Sanitized()
	assert.Empty(t, clean.PasswordHash)
	assert.Equal(t, "secret-hash", user.PasswordHash, "original is untouched")
	assert.Equal(t, user.ID, clean.ID)
}

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangedPasswordAfter(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	never := User{}
	assert.False(t, never.ChangedPasswordAfter(issued))

	before := User{PasswordChangedAt: issued.Add(-time.Hour)}
	assert.False(t, before.ChangedPasswordAfter(issued))

	after := User{PasswordChangedAt: issued.Add(time.Hour)}
	assert.True(t, after.ChangedPasswordAfter(issued))
}

func TestUserJSONHidesCredentials(t *testing.T) {
	user := User{
		Name:               "Leo Gillespie",
		Email:              "leo@example.com",
		Role:               RoleUser,
		Password:           "$2a$12$secrethash",
		PasswordResetToken: "abc123",
		PasswordChangedAt:  time.Now(),
	}

	raw, err := json.Marshal(user)
	require.NoError(t, err)

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "passwordResetToken")
	assert.NotContains(t, body, "passwordChangedAt")
	assert.Equal(t, "leo@example.com", body["email"])
}

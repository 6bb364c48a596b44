package handlers

import (
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGenerateResetToken(t *testing.T) {
	first, err := generateResetToken()
	require.NoError(t, err)
	second, err := generateResetToken()
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), first)
	assert.NotEqual(t, first, second)
}

func TestHashResetToken(t *testing.T) {
	token := "4f7d9c1be203a6d15b8a7e0f"

	hash := hashResetToken(token)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), hash)
	// deterministic, so the stored hash can be matched on reset
	assert.Equal(t, hash, hashResetToken(token))
	assert.NotEqual(t, token, hash)
	assert.NotEqual(t, hash, hashResetToken(token+"x"))
}

func TestSignTokenRoundTrip(t *testing.T) {
	userID := primitive.NewObjectID()
	secret := "test-secret"

	raw, err := signToken(userID, secret, 90*24*time.Hour)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, userID.Hex(), claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.True(t, claims.ExpiresAt.After(time.Now().Add(89*24*time.Hour)))
}

func TestSignTokenRejectsWrongSecret(t *testing.T) {
	raw, err := signToken(primitive.NewObjectID(), "right-secret", time.Hour)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestSignTokenExpiry(t *testing.T) {
	raw, err := signToken(primitive.NewObjectID(), "test-secret", -time.Minute)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

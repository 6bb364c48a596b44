package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tourbook/internal/apperr"
)

func TestNormalizePassesThroughAppErrors(t *testing.T) {
	original := apperr.NotFound("No tour found with that ID.")

	normalized := Normalize(original)
	assert.Same(t, original, normalized)
	assert.Equal(t, http.StatusNotFound, normalized.Code)
	assert.True(t, normalized.Operational)
}

func TestNormalizeDuplicateKey(t *testing.T) {
	err := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}

	normalized := Normalize(err)
	assert.Equal(t, http.StatusBadRequest, normalized.Code)
	assert.Equal(t, "Duplicate field value. Please use another value.", normalized.Message)
	assert.True(t, normalized.Operational)
}

func TestNormalizeInvalidHex(t *testing.T) {
	// wrong length and non-hex bytes at the right length surface as
	// different error values from ObjectIDFromHex
	for _, raw := range []string{"nope", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		_, err := primitive.ObjectIDFromHex(raw)
		require.Error(t, err, raw)

		normalized := Normalize(err)
		assert.Equal(t, http.StatusBadRequest, normalized.Code, raw)
		assert.Equal(t, "Invalid identifier.", normalized.Message, raw)
		assert.True(t, normalized.Operational, raw)
	}
}

func TestNormalizeValidationErrors(t *testing.T) {
	type form struct {
		Name            string `validate:"required"`
		Password        string `validate:"required,min=8"`
		PasswordConfirm string `validate:"eqfield=Password"`
	}
	err := validator.New().Struct(form{Password: "pass1234", PasswordConfirm: "different"})
	require.Error(t, err)

	normalized := Normalize(err)
	assert.Equal(t, http.StatusBadRequest, normalized.Code)
	assert.Contains(t, normalized.Message, "Invalid input data.")
	assert.Contains(t, normalized.Message, "name is required")
	assert.Contains(t, normalized.Message, "passwordConfirm does not match password")
}

func TestNormalizeTokenErrors(t *testing.T) {
	expired := Normalize(jwt.ErrTokenExpired)
	assert.Equal(t, http.StatusUnauthorized, expired.Code)
	assert.Equal(t, "Your token has expired. Please log in again.", expired.Message)

	for _, err := range []error{jwt.ErrTokenMalformed, jwt.ErrTokenSignatureInvalid, jwt.ErrTokenUnverifiable} {
		normalized := Normalize(err)
		assert.Equal(t, http.StatusUnauthorized, normalized.Code)
		assert.Equal(t, "Invalid token. Please log in again.", normalized.Message)
	}
}

func TestNormalizeUnknownError(t *testing.T) {
	normalized := Normalize(errors.New("connection refused"))

	assert.Equal(t, http.StatusInternalServerError, normalized.Code)
	assert.Equal(t, "error", normalized.Status())
	assert.False(t, normalized.Operational)
}

func errorRouter(production bool, err error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(production))
	r.GET("/api/v1/boom", func(c *gin.Context) {
		_ = c.Error(err)
	})
	return r
}

func TestErrorHandlerDevelopmentDetail(t *testing.T) {
	r := errorRouter(false, errors.New("connection refused"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "connection refused", body["message"])
	assert.Equal(t, "connection refused", body["detail"])
}

func TestErrorHandlerProductionMasksInternals(t *testing.T) {
	r := errorRouter(true, errors.New("connection refused"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Something went very wrong!", body["message"])
	assert.NotContains(t, body, "detail")
}

func TestErrorHandlerProductionKeepsOperationalMessages(t *testing.T) {
	r := errorRouter(true, apperr.NotFound("No tour found with that ID."))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/boom", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "No tour found with that ID.", body["message"])
}

func TestErrorHandlerUntouchedOnSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(false))
	r.GET("/api/v1/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/ok", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
}

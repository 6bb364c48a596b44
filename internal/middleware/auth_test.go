package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourbook/internal/models"
)

const testSecret = "test-secret"

func issueToken(t *testing.T, subject, secret string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

// guardRouter mounts Protect in front of a probe handler. The guard must
// reject every request below before touching the (absent) database.
func guardRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(false))
	r.GET("/api/v1/probe", Protect(nil, testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	return r
}

func TestProtectWithoutToken(t *testing.T) {
	w := httptest.NewRecorder()
	guardRouter().ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/probe", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "You are not logged in. Please log in to get access.", body["message"])
}

func TestProtectWithTamperedToken(t *testing.T) {
	token := issueToken(t, primitive.NewObjectID().Hex(), "other-secret", time.Hour)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	guardRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invalid token. Please log in again.", body["message"])
}

func TestProtectWithExpiredToken(t *testing.T) {
	token := issueToken(t, primitive.NewObjectID().Hex(), testSecret, -time.Minute)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	guardRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Your token has expired. Please log in again.", body["message"])
}

func TestProtectWithMalformedSubject(t *testing.T) {
	token := issueToken(t, "not-an-object-id", testSecret, time.Hour)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	guardRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectIgnoresLoggedOutCookie(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/probe", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "loggedOut"})
	guardRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIsLoggedInTreatsFailuresAsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", IsLoggedIn(nil, testSecret), func(c *gin.Context) {
		_, ok := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"loggedIn": ok})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "garbage"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body["loggedIn"])
}

func restrictedRouter(user models.User, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(false))
	r.GET("/api/v1/probe",
		func(c *gin.Context) { c.Set(CtxUser, user) },
		RestrictTo(roles...),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "success"}) })
	return r
}

func TestRestrictToAllowsListedRole(t *testing.T) {
	r := restrictedRouter(models.User{Role: models.RoleAdmin}, models.RoleAdmin, models.RoleLeadGuide)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/probe", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRestrictToRejectsOtherRoles(t *testing.T) {
	r := restrictedRouter(models.User{Role: models.RoleUser}, models.RoleAdmin, models.RoleLeadGuide)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/probe", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "You do not have permission to perform this action.", body["message"])
}

func TestRestrictToWithoutResolvedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(false))
	r.GET("/api/v1/probe", RestrictTo(models.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/probe", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		setup  func(req *http.Request)
		expect string
	}{
		{
			name:   "bearer header",
			setup:  func(req *http.Request) { req.Header.Set("Authorization", "Bearer abc.def.ghi") },
			expect: "abc.def.ghi",
		},
		{
			name:   "lowercase bearer",
			setup:  func(req *http.Request) { req.Header.Set("Authorization", "bearer abc.def.ghi") },
			expect: "abc.def.ghi",
		},
		{
			name:   "non-bearer header",
			setup:  func(req *http.Request) { req.Header.Set("Authorization", "Basic dXNlcjpwYXNz") },
			expect: "",
		},
		{
			name: "non-bearer header falls back to cookie",
			setup: func(req *http.Request) {
				req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
				req.AddCookie(&http.Cookie{Name: "jwt", Value: "abc.def.ghi"})
			},
			expect: "abc.def.ghi",
		},
		{
			name:   "cookie fallback",
			setup:  func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "jwt", Value: "abc.def.ghi"}) },
			expect: "abc.def.ghi",
		},
		{
			name:   "logged out placeholder cookie",
			setup:  func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "jwt", Value: "loggedOut"}) },
			expect: "",
		},
		{
			name:   "nothing",
			setup:  func(req *http.Request) {},
			expect: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			tc.setup(c.Request)

			assert.Equal(t, tc.expect, extractToken(c))
		})
	}
}

package middleware

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tourbook/internal/apperr"
	"tourbook/internal/models"
)

// CtxUser is the context key the resolved account is attached under.
const CtxUser = "currentUser"

// CurrentUser returns the account resolved by Protect or IsLoggedIn.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(CtxUser)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}

// Protect rejects the request unless it carries a valid, non-stale credential
// token and the account behind it still exists. On success the account is
// attached to the request context.
func Protect(db *mongo.Database, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolveUser(c, db, secret)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(CtxUser, user)
		c.Next()
	}
}

// IsLoggedIn is the non-blocking variant used for rendered pages: every
// rejection means "anonymous", never an error.
func IsLoggedIn(db *mongo.Database, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolveUser(c, db, secret)
		if err == nil {
			c.Set(CtxUser, user)
		}
		c.Next()
	}
}

// RestrictTo rejects with 403 when the resolved account's role is not in the
// allowed set. Must run after Protect.
func RestrictTo(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			_ = c.Error(apperr.Unauthorized("You are not logged in. Please log in to get access."))
			c.Abort()
			return
		}
		if _, ok := allowed[user.Role]; !ok {
			log.Println("[AUTH] [ERROR] role not permitted:", user.Role)
			_ = c.Error(apperr.Forbidden("You do not have permission to perform this action."))
			c.Abort()
			return
		}
		c.Next()
	}
}

func resolveUser(c *gin.Context, db *mongo.Database, secret string) (models.User, error) {
	raw := extractToken(c)
	if raw == "" {
		return models.User{}, apperr.Unauthorized("You are not logged in. Please log in to get access.")
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.User{}, err
	}
	if !token.Valid {
		return models.User{}, apperr.Unauthorized("Invalid token. Please log in again.")
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return models.User{}, apperr.Unauthorized("Invalid token. Please log in again.")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var user models.User
	err = db.Collection("users").
		FindOne(ctx, bson.M{"_id": userID, "active": bson.M{"$ne": false}}).
		Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, apperr.Unauthorized("The user belonging to this token does no longer exist.")
	}
	if err != nil {
		return models.User{}, err
	}

	if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return models.User{}, apperr.Unauthorized("User recently changed password. Please log in again.")
	}

	return user, nil
}

// extractToken reads the credential from a Bearer Authorization header, or
// from the jwt cookie set at login when the header carries no bearer token.
func extractToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	cookie, err := c.Cookie("jwt")
	if err != nil || cookie == "loggedOut" {
		return ""
	}
	return cookie
}

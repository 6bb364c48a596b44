package handlers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"tourbook/internal/apperr"
	"tourbook/internal/config"
	"tourbook/internal/email"
	"tourbook/internal/middleware"
	"tourbook/internal/models"
)

const bcryptCost = 12

type SignupRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func signToken(userID primitive.ObjectID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// createSendToken answers with a fresh credential token, both in the body and
// as an httpOnly cookie.
func createSendToken(c *gin.Context, user models.User, code int) error {
	token, err := signToken(user.ID, config.AppEnv.JWTSecret, config.AppEnv.JWTTTL)
	if err != nil {
		return err
	}

	c.SetCookie("jwt", token,
		int(config.AppEnv.CookieTTL.Seconds()), "/", "",
		config.AppEnv.IsProduction(), true)

	c.JSON(code, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"user": user},
	})
	return nil
}

func Signup(db *mongo.Database, mailer *email.Mailer) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.BadRequest("Invalid request body.")
		}
		if err := validate.Struct(req); err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			return err
		}

		user := models.User{
			Name:      strings.TrimSpace(req.Name),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Role:      models.RoleUser,
			Active:    true,
			Photo:     "default.jpg",
			Password:  string(hash),
			CreatedAt: time.Now(),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		result, err := db.Collection("users").InsertOne(ctx, user)
		if err != nil {
			return err
		}
		user.ID = result.InsertedID.(primitive.ObjectID)

		// best effort, signup must not fail on a broken mail transport
		if err := mailer.SendWelcome(user.Email, user.Name, requestOrigin(c)+"/me"); err != nil {
			log.Println("[AUTH] [ERROR] welcome email failed:", err)
		}

		log.Println("[AUTH] [INFO] signup succeeded:", user.Email)
		return createSendToken(c, user, http.StatusCreated)
	})
}

func Login(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.BadRequest("Invalid request body.")
		}

		loginEmail := strings.ToLower(strings.TrimSpace(req.Email))
		if loginEmail == "" || strings.TrimSpace(req.Password) == "" {
			return apperr.BadRequest("Please provide email and password.")
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		var user models.User
		err := db.Collection("users").
			FindOne(ctx, bson.M{"email": loginEmail, "active": bson.M{"$ne": false}}).
			Decode(&user)
		if err == mongo.ErrNoDocuments {
			return apperr.Unauthorized("Incorrect email or password.")
		}
		if err != nil {
			return err
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Println("[AUTH] [ERROR] login invalid credentials:", loginEmail)
			return apperr.Unauthorized("Incorrect email or password.")
		}

		log.Println("[AUTH] [INFO] login succeeded:", user.Email)
		return createSendToken(c, user, http.StatusOK)
	})
}

// Logout overwrites the httpOnly credential cookie with a short-lived
// placeholder, since the browser-held cookie cannot be removed directly.
func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie("jwt", "loggedOut", 10, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

// generateResetToken creates the plain token mailed to the user; only its
// hash is persisted.
func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func ForgotPassword(db *mongo.Database, mailer *email.Mailer) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.BadRequest("Invalid request body.")
		}
		resetEmail := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		var user models.User
		err := db.Collection("users").
			FindOne(ctx, bson.M{"email": resetEmail, "active": bson.M{"$ne": false}}).
			Decode(&user)
		if err == mongo.ErrNoDocuments {
			return apperr.NotFound("There is no user with that email address.")
		}
		if err != nil {
			return err
		}

		token, err := generateResetToken()
		if err != nil {
			return err
		}

		_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{
			"passwordResetToken":   hashResetToken(token),
			"passwordResetExpires": time.Now().Add(10 * time.Minute),
		}})
		if err != nil {
			return err
		}

		resetURL := requestOrigin(c) + "/api/v1/users/resetPassword/" + token
		if err := mailer.SendPasswordReset(user.Email, resetURL); err != nil {
			// roll the issued token back instead of leaving a dangling one
			log.Println("[AUTH] [ERROR] reset email failed:", err)
			_, _ = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{"$unset": bson.M{
				"passwordResetToken":   "",
				"passwordResetExpires": "",
			}})
			return apperr.New(http.StatusInternalServerError,
				"There was an error while sending the email. Try again later!")
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Token sent to email!",
		})
		return nil
	})
}

func ResetPassword(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.BadRequest("Invalid request body.")
		}
		if err := validate.Struct(req); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{
			"passwordResetToken":   hashResetToken(c.Param("token")),
			"passwordResetExpires": bson.M{"$gt": time.Now()},
		}).Decode(&user)
		if err == mongo.ErrNoDocuments {
			return apperr.BadRequest("Token is invalid or has expired.")
		}
		if err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			return err
		}

		_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$set": bson.M{
				"password": string(hash),
				// 1s in the past so the token issued right after stays valid
				"passwordChangedAt": time.Now().Add(-time.Second),
			},
			"$unset": bson.M{
				"passwordResetToken":   "",
				"passwordResetExpires": "",
			},
		})
		if err != nil {
			return err
		}

		log.Println("[AUTH] [INFO] password reset succeeded:", user.Email)
		return createSendToken(c, user, http.StatusOK)
	})
}

func UpdatePassword(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return apperr.Unauthorized("You are not logged in. Please log in to get access.")
		}

		var req UpdatePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.BadRequest("Invalid request body.")
		}
		if err := validate.Struct(req); err != nil {
			return err
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.PasswordCurrent)); err != nil {
			return apperr.Unauthorized("Current password is incorrect.")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		_, err = db.Collection("users").UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{
			"password":          string(hash),
			"passwordChangedAt": time.Now().Add(-time.Second),
		}})
		if err != nil {
			return err
		}

		log.Println("[AUTH] [INFO] password update succeeded:", user.Email)
		return createSendToken(c, user, http.StatusOK)
	})
}

// requestOrigin rebuilds the scheme://host prefix for links sent by email.
func requestOrigin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

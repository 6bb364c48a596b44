package middleware

import (
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tourbook/internal/apperr"
)

// ErrorHandler is the single place request errors become responses. Handlers
// and guards push errors into the gin context; after the chain runs, the last
// error is normalized into a client-safe envelope. In production,
// non-operational errors are logged and masked; otherwise full detail is
// returned.
func ErrorHandler(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		appErr := Normalize(last.Err)

		if !appErr.Operational {
			log.Println("[ERROR] [FATAL] unexpected error:", last.Err)
			if production {
				appErr = &apperr.Error{
					Code:    http.StatusInternalServerError,
					Message: "Something went very wrong!",
				}
			}
		}

		if isAPIRequest(c) {
			body := gin.H{
				"status":  appErr.Status(),
				"message": appErr.Message,
			}
			if !production {
				body["detail"] = last.Err.Error()
			}
			c.JSON(appErr.Code, body)
			return
		}

		c.HTML(appErr.Code, "error.html", gin.H{
			"title":   "Something went wrong",
			"message": appErr.Message,
		})
	}
}

// Normalize maps internal and database error shapes onto the stable
// client-facing taxonomy.
func Normalize(err error) *apperr.Error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if mongo.IsDuplicateKeyError(err) {
		return apperr.BadRequest("Duplicate field value. Please use another value.")
	}

	// ObjectIDFromHex reports a wrong length as ErrInvalidHex but a bad
	// character as the raw hex decode error
	var invalidByte hex.InvalidByteError
	if errors.Is(err, primitive.ErrInvalidHex) || errors.As(err, &invalidByte) {
		return apperr.BadRequest("Invalid identifier.")
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return apperr.BadRequest(validationMessage(validationErrors))
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperr.Unauthorized("Your token has expired. Please log in again.")
	}
	if errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperr.Unauthorized("Invalid token. Please log in again.")
	}

	return &apperr.Error{
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	details := make([]string, 0, len(errs))
	for _, fieldError := range errs {
		field := lowerCamel(fieldError.Field())
		switch fieldError.Tag() {
		case "required":
			details = append(details, field+" is required")
		case "eqfield":
			details = append(details, field+" does not match "+lowerCamel(fieldError.Param()))
		default:
			details = append(details, field+" is invalid")
		}
	}
	return "Invalid input data. " + strings.Join(details, ". ")
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func isAPIRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api")
}

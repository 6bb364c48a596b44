package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tourbook/internal/apperr"
	"tourbook/internal/middleware"
	"tourbook/internal/models"
)

// activeOnly is the pre-find stage hiding soft-deleted accounts.
func activeOnly() bson.M {
	return bson.M{"active": bson.M{"$ne": false}}
}

// Users is the user entity descriptor for the admin CRUD routes.
func Users() Resource[models.User] {
	return Resource[models.User]{
		Collection:   "users",
		Name:         "user",
		Plural:       "users",
		BaseFilter:   activeOnly,
		BeforeUpdate: prepareUserUpdate,
	}
}

// prepareUserUpdate keeps credential fields out of the generic update path.
func prepareUserUpdate(c *gin.Context, db *mongo.Database, id primitive.ObjectID, patch bson.M) error {
	if _, ok := patch["password"]; ok {
		return apperr.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
	}
	delete(patch, "passwordChangedAt")
	delete(patch, "passwordResetToken")
	delete(patch, "passwordResetExpires")

	if value, ok := patch["email"].(string); ok {
		patch["email"] = strings.ToLower(strings.TrimSpace(value))
	}
	return nil
}

// CreateUser exists so POST /users answers deliberately instead of 404.
func CreateUser() gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		return apperr.New(http.StatusInternalServerError,
			"This route is not defined. Please use /signup instead.")
	})
}

// GetMe rewrites the route param to the acting user so the generic GetOne
// handler can serve it.
func GetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			_ = c.Error(apperr.Unauthorized("You are not logged in. Please log in to get access."))
			c.Abort()
			return
		}
		c.Params = append(c.Params, gin.Param{Key: "id", Value: user.ID.Hex()})
		c.Next()
	}
}

// filterAllowed copies only the allowed keys from an update payload.
func filterAllowed(payload map[string]interface{}, allowed ...string) bson.M {
	filtered := bson.M{}
	for _, key := range allowed {
		if value, ok := payload[key]; ok {
			filtered[key] = value
		}
	}
	return filtered
}

// UpdateMe lets the acting user change name, email and photo. Role and
// password stay untouchable here.
func UpdateMe(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return apperr.Unauthorized("You are not logged in. Please log in to get access.")
		}

		patch := bson.M{}

		if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
			if err := c.Request.ParseMultipartForm(maxUploadSize); err != nil {
				return apperr.BadRequest("Invalid multipart form.")
			}
			if value, exists := c.GetPostForm("name"); exists {
				patch["name"] = strings.TrimSpace(value)
			}
			if value, exists := c.GetPostForm("email"); exists {
				patch["email"] = strings.ToLower(strings.TrimSpace(value))
			}
			if file, err := c.FormFile("photo"); err == nil {
				filename, err := saveUserPhoto(file)
				if err != nil {
					return err
				}
				patch["photo"] = filename
			}
		} else {
			payload := map[string]interface{}{}
			if err := c.ShouldBindJSON(&payload); err != nil {
				return apperr.BadRequest("Invalid request body.")
			}
			if _, exists := payload["password"]; exists {
				return apperr.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
			}
			if _, exists := payload["passwordConfirm"]; exists {
				return apperr.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
			}
			patch = filterAllowed(payload, "name", "email")
			if value, exists := patch["email"].(string); exists {
				patch["email"] = strings.ToLower(strings.TrimSpace(value))
			}
		}

		if len(patch) == 0 {
			return apperr.BadRequest("No fields to update.")
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		var updated models.User
		err := db.Collection("users").
			FindOneAndUpdate(ctx, bson.M{"_id": user.ID}, bson.M{"$set": patch},
				options.FindOneAndUpdate().SetReturnDocument(options.After)).
			Decode(&updated)
		if err != nil {
			return err
		}

		respond(c, http.StatusOK, "user", updated)
		return nil
	})
}

// DeleteMe soft-deletes the acting account; documents are kept but excluded
// from every default find.
func DeleteMe(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return apperr.Unauthorized("You are not logged in. Please log in to get access.")
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		_, err := db.Collection("users").UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{"active": false}})
		if err != nil {
			return err
		}

		log.Println("[USER] [INFO] account deactivated:", user.Email)
		c.JSON(http.StatusNoContent, gin.H{
			"status": "success",
			"data":   nil,
		})
		return nil
	})
}

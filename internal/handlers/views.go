package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"tourbook/internal/apperr"
	"tourbook/internal/middleware"
	"tourbook/internal/models"
)

// viewData merges page data with the optionally logged-in user so the header
// can render login state.
func viewData(c *gin.Context, data gin.H) gin.H {
	if user, ok := middleware.CurrentUser(c); ok {
		data["user"] = user
	}
	return data
}

// Overview renders the landing page with all public tours.
func Overview(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		cursor, err := db.Collection("tours").Find(ctx, notSecret())
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		tours := make([]models.Tour, 0)
		if err := cursor.All(ctx, &tours); err != nil {
			return err
		}

		c.HTML(http.StatusOK, "overview.html", viewData(c, gin.H{
			"title": "All Tours",
			"tours": tours,
		}))
		return nil
	})
}

// TourPage renders one tour by slug, reviews included.
func TourPage(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		match := notSecret()
		match["slug"] = c.Param("slug")

		pipeline := mongo.Pipeline{
			bson.D{{Key: "$match", Value: match}},
			bson.D{{Key: "$lookup", Value: bson.M{
				"from":         "reviews",
				"localField":   "_id",
				"foreignField": "tour",
				"as":           "reviews",
			}}},
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		cursor, err := db.Collection("tours").Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		tours := make([]models.Tour, 0, 1)
		if err := cursor.All(ctx, &tours); err != nil {
			return err
		}
		if len(tours) == 0 {
			return apperr.NotFound("There is no tour with that name.")
		}

		c.HTML(http.StatusOK, "tour.html", viewData(c, gin.H{
			"title": tours[0].Name,
			"tour":  tours[0],
		}))
		return nil
	})
}

// LoginForm renders the login page.
func LoginForm() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "login.html", viewData(c, gin.H{
			"title": "Log into your account",
		}))
	}
}

// Account renders the account page of the logged-in user.
func Account() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "account.html", viewData(c, gin.H{
			"title": "Your account",
		}))
	}
}

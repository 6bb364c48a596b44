package handlers

import (
	"context"
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tourbook/internal/apperr"
	"tourbook/internal/middleware"
	"tourbook/internal/models"
)

// Reviews is the review entity descriptor. Every committed write triggers a
// recomputation of the owning tour's rating aggregate.
func Reviews() Resource[models.Review] {
	return Resource[models.Review]{
		Collection:   "reviews",
		Name:         "review",
		Plural:       "reviews",
		ParamFilter:  reviewTourFilter,
		BeforeCreate: prepareReview,
		BeforeUpdate: prepareReviewUpdate,
		AfterWrite: func(ctx context.Context, db *mongo.Database, review *models.Review) error {
			return recomputeTourRatings(ctx, db, review.Tour)
		},
	}
}

const ctxTourID = "tourID"

// ScopeToTour narrows review routes mounted under /tours/:id/reviews to that
// tour.
func ScopeToTour(c *gin.Context) {
	tourID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.Set(ctxTourID, tourID)
	c.Next()
}

func scopedTourID(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get(ctxTourID)
	if !ok {
		return primitive.NilObjectID, false
	}
	tourID, ok := value.(primitive.ObjectID)
	return tourID, ok
}

func reviewTourFilter(c *gin.Context) (bson.M, error) {
	if tourID, ok := scopedTourID(c); ok {
		return bson.M{"tour": tourID}, nil
	}
	return bson.M{}, nil
}

// prepareReview injects the tour id from the nested route and the acting user
// from the auth context when the payload leaves them out.
func prepareReview(c *gin.Context, db *mongo.Database, review *models.Review) error {
	review.ID = primitive.NilObjectID

	if review.Tour.IsZero() {
		tourID, ok := scopedTourID(c)
		if !ok {
			return apperr.BadRequest("Review must belong to a tour.")
		}
		review.Tour = tourID
	}

	if review.User.IsZero() {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return apperr.Unauthorized("You are not logged in. Please log in to get access.")
		}
		review.User = user.ID
	}

	review.CreatedAt = time.Now()
	return nil
}

func prepareReviewUpdate(c *gin.Context, db *mongo.Database, id primitive.ObjectID, patch bson.M) error {
	// tour and user references are fixed at creation
	delete(patch, "tour")
	delete(patch, "user")

	if rating, ok := patch["rating"].(float64); ok {
		if rating < 1 || rating > 5 {
			return apperr.BadRequest("A rating must be between 1 and 5.")
		}
	}
	return nil
}

type ratingStats struct {
	Quantity int     `bson:"nRating"`
	Average  float64 `bson:"avgRating"`
}

// foldRatingStats turns an aggregation result into the values written back to
// the tour: with no reviews left, the quantity resets to zero and the average
// to the default baseline. Averages are rounded to one decimal.
func foldRatingStats(stats []ratingStats) (quantity int, average float64) {
	if len(stats) == 0 {
		return 0, models.DefaultRatingsAverage
	}
	return stats[0].Quantity, math.Round(stats[0].Average*10) / 10
}

// recomputeTourRatings recalculates a tour's rating aggregate from its
// reviews. This is a read-then-write sequence without isolation; concurrent
// review writes can interleave, which is tolerated for an approximate rating.
func recomputeTourRatings(ctx context.Context, db *mongo.Database, tourID primitive.ObjectID) error {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"tour": tourID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":       "$tour",
			"nRating":   bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$rating"},
		}}},
	}

	cursor, err := db.Collection("reviews").Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	stats := make([]ratingStats, 0, 1)
	if err := cursor.All(ctx, &stats); err != nil {
		return err
	}

	quantity, average := foldRatingStats(stats)

	_, err = db.Collection("tours").UpdateByID(ctx, tourID, bson.M{"$set": bson.M{
		"ratingsQuantity": quantity,
		"ratingsAverage":  average,
	}})
	return err
}

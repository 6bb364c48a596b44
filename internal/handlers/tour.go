package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tourbook/internal/apperr"
	"tourbook/internal/models"
)

// notSecret is the pre-find stage excluding secret tours from every default
// read and aggregate.
func notSecret() bson.M {
	return bson.M{"secretTour": bson.M{"$ne": true}}
}

// Tours is the tour entity descriptor. Fetching a single tour eager-loads its
// reviews.
func Tours() Resource[models.Tour] {
	return Resource[models.Tour]{
		Collection:   "tours",
		Name:         "tour",
		Plural:       "tours",
		BaseFilter:   notSecret,
		BeforeCreate: prepareTour,
		BeforeUpdate: prepareTourUpdate,
		LookupStages: []bson.D{
			{{Key: "$lookup", Value: bson.M{
				"from":         "reviews",
				"localField":   "_id",
				"foreignField": "tour",
				"as":           "reviews",
			}}},
		},
	}
}

func prepareTour(c *gin.Context, db *mongo.Database, tour *models.Tour) error {
	tour.ID = primitive.NilObjectID
	tour.Name = strings.TrimSpace(tour.Name)
	tour.Slug = slug.Make(tour.Name)

	if err := validateTourPricing(tour.Price, tour.PriceDiscount); err != nil {
		return err
	}

	if tour.RatingsAverage == 0 {
		tour.RatingsAverage = models.DefaultRatingsAverage
	}
	tour.RatingsQuantity = 0
	if tour.StartLocation != nil && tour.StartLocation.Type == "" {
		tour.StartLocation.Type = "Point"
	}
	for i := range tour.Locations {
		if tour.Locations[i].Type == "" {
			tour.Locations[i].Type = "Point"
		}
	}
	tour.CreatedAt = time.Now()
	return nil
}

func prepareTourUpdate(c *gin.Context, db *mongo.Database, id primitive.ObjectID, patch bson.M) error {
	if name, ok := patch["name"].(string); ok {
		name = strings.TrimSpace(name)
		if len(name) < 5 {
			return apperr.BadRequest("A tour name must have more than 5 characters")
		}
		patch["name"] = name
		patch["slug"] = slug.Make(name)
	}

	if difficulty, ok := patch["difficulty"].(string); ok {
		switch difficulty {
		case "easy", "medium", "difficult":
		default:
			return apperr.BadRequest(fmt.Sprintf("%s is not a supported difficulty", difficulty))
		}
	}

	pricing := tourPricingPatch{
		Price:         floatField(patch, "price"),
		PriceDiscount: floatField(patch, "priceDiscount"),
	}
	if pricing.Price != nil || pricing.PriceDiscount != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		var existing models.Tour
		err := db.Collection("tours").FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			return apperr.NotFound("No tour found with that ID.")
		}
		if err != nil {
			return err
		}
		if err := resolveTourPricing(existing.Price, existing.PriceDiscount, pricing); err != nil {
			return err
		}
	}

	return nil
}

// floatField reads an optional numeric patch value; JSON numbers decode as
// float64.
func floatField(patch bson.M, key string) *float64 {
	if value, ok := patch[key].(float64); ok {
		return &value
	}
	return nil
}

// UploadTourImages replaces a tour's cover image and gallery from a multipart
// form with an imageCover file and any number of images files.
func UploadTourImages(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			return err
		}

		if err := c.Request.ParseMultipartForm(maxUploadSize); err != nil {
			return apperr.BadRequest("Invalid multipart form.")
		}

		patch := bson.M{}
		if file, err := c.FormFile("imageCover"); err == nil {
			filename, err := saveTourImage(file)
			if err != nil {
				return err
			}
			patch["imageCover"] = filename
		}
		if form := c.Request.MultipartForm; form != nil && len(form.File["images"]) > 0 {
			names := make([]string, 0, len(form.File["images"]))
			for _, file := range form.File["images"] {
				filename, err := saveTourImage(file)
				if err != nil {
					return err
				}
				names = append(names, filename)
			}
			patch["images"] = names
		}
		if len(patch) == 0 {
			return apperr.BadRequest("Please provide an imageCover or images file.")
		}

		filter := notSecret()
		filter["_id"] = id

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		var updated models.Tour
		err = db.Collection("tours").
			FindOneAndUpdate(ctx, filter, bson.M{"$set": patch},
				options.FindOneAndUpdate().SetReturnDocument(options.After)).
			Decode(&updated)
		if err == mongo.ErrNoDocuments {
			return apperr.NotFound("No tour found with that ID.")
		}
		if err != nil {
			return err
		}

		respond(c, http.StatusOK, "tour", updated)
		return nil
	})
}

// AliasTopTours rewrites the query string to the five best-rated cheap tours
// before the generic list handler runs.
func AliasTopTours(c *gin.Context) {
	values := c.Request.URL.Query()
	values.Set("limit", "5")
	values.Set("sort", "-ratingsAverage,price")
	values.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	c.Request.URL.RawQuery = values.Encode()
	c.Next()
}

// AliasShortestTours rewrites the query string to the five shortest tours.
func AliasShortestTours(c *gin.Context) {
	values := c.Request.URL.Query()
	values.Set("limit", "5")
	values.Set("sort", "duration")
	values.Set("fields", "name,duration")
	c.Request.URL.RawQuery = values.Encode()
	c.Next()
}

// GetTourStats aggregates rating and price statistics per difficulty over
// well-rated tours.
func GetTourStats(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		pipeline := mongo.Pipeline{
			bson.D{{Key: "$match", Value: notSecret()}},
			bson.D{{Key: "$match", Value: bson.M{"ratingsAverage": bson.M{"$gte": 4.5}}}},
			bson.D{{Key: "$group", Value: bson.M{
				"_id":        bson.M{"$toUpper": "$difficulty"},
				"numTours":   bson.M{"$sum": 1},
				"numRatings": bson.M{"$sum": "$ratingsQuantity"},
				"avgRating":  bson.M{"$avg": "$ratingsAverage"},
				"avgPrice":   bson.M{"$avg": "$price"},
				"minPrice":   bson.M{"$min": "$price"},
				"maxPrice":   bson.M{"$max": "$price"},
			}}},
			bson.D{{Key: "$sort", Value: bson.M{"avgPrice": 1}}},
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		cursor, err := db.Collection("tours").Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		stats := make([]bson.M, 0)
		if err := cursor.All(ctx, &stats); err != nil {
			return err
		}

		respondList(c, "stats", stats, len(stats))
		return nil
	})
}

// GetMonthlyPlan groups the tour starts of a year by month, busiest first.
func GetMonthlyPlan(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		year, err := strconv.Atoi(c.Param("year"))
		if err != nil {
			return apperr.BadRequest("Invalid year.")
		}

		pipeline := mongo.Pipeline{
			bson.D{{Key: "$match", Value: notSecret()}},
			bson.D{{Key: "$unwind", Value: "$startDates"}},
			bson.D{{Key: "$addFields", Value: bson.M{"year": bson.M{"$year": "$startDates"}}}},
			bson.D{{Key: "$match", Value: bson.M{"year": year}}},
			bson.D{{Key: "$group", Value: bson.M{
				"_id":           bson.M{"$month": "$startDates"},
				"numTourStarts": bson.M{"$sum": 1},
				"tours":         bson.M{"$push": "$name"},
			}}},
			bson.D{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
			bson.D{{Key: "$project", Value: bson.M{"_id": 0}}},
			bson.D{{Key: "$sort", Value: bson.M{"numTourStarts": -1}}},
			bson.D{{Key: "$limit", Value: 3}},
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		cursor, err := db.Collection("tours").Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		plan := make([]bson.M, 0)
		if err := cursor.All(ctx, &plan); err != nil {
			return err
		}

		respondList(c, "plan", plan, len(plan))
		return nil
	})
}

// earth radii used to convert a distance into geo radians.
const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1
)

func sphereRadius(distance float64, unit string) float64 {
	if unit == "mi" {
		return distance / earthRadiusMiles
	}
	return distance / earthRadiusKm
}

func distanceMultiplier(unit string) float64 {
	if unit == "mi" {
		return 0.000621371
	}
	return 0.001
}

func parseLatLng(raw string) (lat, lng float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, apperr.BadRequest("Please provide latitude and longitude in the format lat,lng.")
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lngErr != nil {
		return 0, 0, apperr.BadRequest("Please provide latitude and longitude in the format lat,lng.")
	}
	return lat, lng, nil
}

// GetToursWithin lists tours whose start location falls inside the given
// radius around a center point.
func GetToursWithin(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		distance, err := strconv.ParseFloat(c.Param("distance"), 64)
		if err != nil || distance <= 0 {
			return apperr.BadRequest("Invalid distance.")
		}
		lat, lng, err := parseLatLng(c.Param("latlng"))
		if err != nil {
			return err
		}

		filter := notSecret()
		filter["startLocation"] = bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{lng, lat}, sphereRadius(distance, c.Param("unit"))},
			},
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		cursor, err := db.Collection("tours").Find(ctx, filter)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		tours := make([]models.Tour, 0)
		if err := cursor.All(ctx, &tours); err != nil {
			return err
		}

		respondList(c, "tours", tours, len(tours))
		return nil
	})
}

// GetDistances computes the distance from a point to every tour start
// location in the requested unit.
func GetDistances(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		lat, lng, err := parseLatLng(c.Param("latlng"))
		if err != nil {
			return err
		}

		pipeline := mongo.Pipeline{
			bson.D{{Key: "$geoNear", Value: bson.M{
				"near": bson.M{
					"type":        "Point",
					"coordinates": bson.A{lng, lat},
				},
				"distanceField":      "distance",
				"distanceMultiplier": distanceMultiplier(c.Param("unit")),
				"query":              notSecret(),
			}}},
			bson.D{{Key: "$project", Value: bson.M{"distance": 1, "name": 1}}},
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		cursor, err := db.Collection("tours").Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		distances := make([]bson.M, 0)
		if err := cursor.All(ctx, &distances); err != nil {
			return err
		}

		respondList(c, "distances", distances, len(distances))
		return nil
	})
}

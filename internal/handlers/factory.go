package handlers

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tourbook/internal/apperr"
	"tourbook/internal/query"
)

// Resource describes one data entity for the generic CRUD handlers. The hook
// fields replace the implicit schema lifecycle of a document mapper with
// explicit, named stages: BaseFilter is applied before every read and write
// lookup (secret-tour / inactive-user exclusion), ParamFilter narrows lists
// mounted under another entity's route, BeforeCreate and BeforeUpdate derive
// fields and enforce invariants, AfterWrite reacts to a committed write
// (rating recomputation).
type Resource[T any] struct {
	Collection string
	Name       string
	Plural     string

	BaseFilter   func() bson.M
	ParamFilter  func(c *gin.Context) (bson.M, error)
	BeforeCreate func(c *gin.Context, db *mongo.Database, doc *T) error
	BeforeUpdate func(c *gin.Context, db *mongo.Database, id primitive.ObjectID, patch bson.M) error
	AfterWrite   func(ctx context.Context, db *mongo.Database, doc *T) error

	// LookupStages eager-load named relations when fetching a single document.
	LookupStages []bson.D
}

const dbTimeout = 5 * time.Second

func (r Resource[T]) notFound() *apperr.Error {
	return apperr.NotFound(fmt.Sprintf("No %s found with that ID.", r.Name))
}

// scope merges the base exclusion filter with the optional route-param
// pre-filter into a fresh map.
func (r Resource[T]) scope(c *gin.Context) (bson.M, error) {
	filter := bson.M{}
	if r.BaseFilter != nil {
		for key, value := range r.BaseFilter() {
			filter[key] = value
		}
	}
	if r.ParamFilter != nil {
		narrowed, err := r.ParamFilter(c)
		if err != nil {
			return nil, err
		}
		for key, value := range narrowed {
			filter[key] = value
		}
	}
	return filter, nil
}

// GetAll lists documents through the query feature stages and reports the
// matched count.
func (r Resource[T]) GetAll(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		features := query.Parse(c.Request.URL.Query())

		filter, err := r.scope(c)
		if err != nil {
			return err
		}
		for key, value := range features.Filter {
			filter[key] = value
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		cursor, err := db.Collection(r.Collection).Find(ctx, filter, features.FindOptions())
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		docs := make([]T, 0)
		if err := cursor.All(ctx, &docs); err != nil {
			return err
		}

		respondList(c, r.Plural, docs, len(docs))
		return nil
	})
}

// GetOne fetches a document by identifier, eager-loading the configured
// relations when present.
func (r Resource[T]) GetOne(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			return err
		}

		filter, err := r.scope(c)
		if err != nil {
			return err
		}
		filter["_id"] = id

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		var doc T
		if len(r.LookupStages) > 0 {
			pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: filter}}}
			pipeline = append(pipeline, r.LookupStages...)

			cursor, err := db.Collection(r.Collection).Aggregate(ctx, pipeline)
			if err != nil {
				return err
			}
			defer cursor.Close(ctx)

			docs := make([]T, 0, 1)
			if err := cursor.All(ctx, &docs); err != nil {
				return err
			}
			if len(docs) == 0 {
				return r.notFound()
			}
			doc = docs[0]
		} else {
			err = db.Collection(r.Collection).FindOne(ctx, filter).Decode(&doc)
			if err == mongo.ErrNoDocuments {
				return r.notFound()
			}
			if err != nil {
				return err
			}
		}

		respond(c, http.StatusOK, r.Name, doc)
		return nil
	})
}

// CreateOne validates and inserts a new document, answering 201 with the
// persisted entity.
func (r Resource[T]) CreateOne(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		var doc T
		if err := c.ShouldBindJSON(&doc); err != nil {
			return apperr.BadRequest("Invalid request body.")
		}

		if r.BeforeCreate != nil {
			if err := r.BeforeCreate(c, db, &doc); err != nil {
				return err
			}
		}
		if err := validate.Struct(doc); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		result, err := db.Collection(r.Collection).InsertOne(ctx, doc)
		if err != nil {
			return err
		}

		// re-read so the response carries the canonical stored document
		insertedID := result.InsertedID.(primitive.ObjectID)
		var created T
		if err := db.Collection(r.Collection).FindOne(ctx, bson.M{"_id": insertedID}).Decode(&created); err != nil {
			return err
		}

		if r.AfterWrite != nil {
			if err := r.AfterWrite(ctx, db, &created); err != nil {
				return err
			}
		}

		respond(c, http.StatusCreated, r.Name, created)
		return nil
	})
}

// validatePatch re-runs the model's tag validation for the fields a patch
// touches, so a partial update cannot write values the schema rejects on
// create.
func validatePatch[T any](patch bson.M) error {
	raw, err := bson.Marshal(patch)
	if err != nil {
		return apperr.BadRequest("Invalid request body.")
	}
	var candidate T
	if err := bson.Unmarshal(raw, &candidate); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}

	docType := reflect.TypeOf(candidate)
	fields := make([]string, 0, len(patch))
	for i := 0; i < docType.NumField(); i++ {
		field := docType.Field(i)
		key := strings.Split(field.Tag.Get("bson"), ",")[0]
		if key == "" {
			key = field.Name
		}
		if _, ok := patch[key]; ok {
			fields = append(fields, field.Name)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return validate.StructPartial(candidate, fields...)
}

// UpdateOne applies a partial update by identifier with validation re-run
// through the BeforeUpdate stage.
func (r Resource[T]) UpdateOne(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			return err
		}

		patch := bson.M{}
		if err := c.ShouldBindJSON(&patch); err != nil {
			return apperr.BadRequest("Invalid request body.")
		}
		delete(patch, "_id")
		delete(patch, "id")
		delete(patch, "createdAt")
		if len(patch) == 0 {
			return apperr.BadRequest("No fields to update.")
		}

		if r.BeforeUpdate != nil {
			if err := r.BeforeUpdate(c, db, id, patch); err != nil {
				return err
			}
		}
		if err := validatePatch[T](patch); err != nil {
			return err
		}

		filter, err := r.scope(c)
		if err != nil {
			return err
		}
		filter["_id"] = id

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		var updated T
		err = db.Collection(r.Collection).
			FindOneAndUpdate(ctx, filter, bson.M{"$set": patch},
				options.FindOneAndUpdate().SetReturnDocument(options.After)).
			Decode(&updated)
		if err == mongo.ErrNoDocuments {
			return r.notFound()
		}
		if err != nil {
			return err
		}

		if r.AfterWrite != nil {
			if err := r.AfterWrite(ctx, db, &updated); err != nil {
				return err
			}
		}

		respond(c, http.StatusOK, r.Name, updated)
		return nil
	})
}

// DeleteOne removes a document by identifier and answers 204.
func (r Resource[T]) DeleteOne(db *mongo.Database) gin.HandlerFunc {
	return wrap(func(c *gin.Context) error {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			return err
		}

		filter, err := r.scope(c)
		if err != nil {
			return err
		}
		filter["_id"] = id

		ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
		defer cancel()

		var deleted T
		err = db.Collection(r.Collection).FindOneAndDelete(ctx, filter).Decode(&deleted)
		if err == mongo.ErrNoDocuments {
			return r.notFound()
		}
		if err != nil {
			return err
		}

		if r.AfterWrite != nil {
			if err := r.AfterWrite(ctx, db, &deleted); err != nil {
				return err
			}
		}

		c.JSON(http.StatusNoContent, gin.H{
			"status": "success",
			"data":   nil,
		})
		return nil
	})
}

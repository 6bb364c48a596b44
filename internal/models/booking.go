package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Booking links a user to a tour with the price snapshotted at checkout time.
type Booking struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Tour      primitive.ObjectID `bson:"tour" json:"tour"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Price     float64            `bson:"price" json:"price" validate:"required,gt=0"`
	Paid      bool               `bson:"paid" json:"paid"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

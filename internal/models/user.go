package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin     = "admin"
	RoleUser      = "user"
	RoleLeadGuide = "lead-guide"
	RoleGuide     = "guide"
)

// User is the persisted account document. The password hash is never
// serialized to JSON and the reset token is only ever stored hashed.
type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name" validate:"required"`
	Email                string             `bson:"email" json:"email" validate:"required,email"`
	Role                 string             `bson:"role" json:"role" validate:"required,oneof=admin user lead-guide guide"`
	Active               bool               `bson:"active" json:"-"`
	Photo                string             `bson:"photo" json:"photo"`
	Password             string             `bson:"password" json:"-"`
	PasswordChangedAt    time.Time          `bson:"passwordChangedAt,omitempty" json:"-"`
	PasswordResetToken   string             `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires time.Time          `bson:"passwordResetExpires,omitempty" json:"-"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
}

// ChangedPasswordAfter reports whether the password was changed after the
// given token issue time, which invalidates the token.
func (u User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt.IsZero() {
		return false
	}
	return u.PasswordChangedAt.After(issuedAt)
}

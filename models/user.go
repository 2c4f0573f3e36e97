package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a reader account allowed to use the API.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"` // bcrypt hash
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

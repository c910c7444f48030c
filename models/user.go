package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User holds the structure for the user collection in mongo
type User struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Details UserDetails        `json:"user" bson:"user"`
}

// UserDetails holds the structure for the inner user structure as defined in the user collection in mongo
type UserDetails struct {
	Email     string      `json:"email" bson:"email"`
	Username  string      `json:"username" bson:"username"`
	Password  string      `json:"-" bson:"password"`
	CreatedAt interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt interface{} `json:"updatedAt" bson:"updatedAt"`
}

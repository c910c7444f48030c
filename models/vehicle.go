package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle holds the structure for the vehicle collection in mongo
type Vehicle struct {
	ID                 primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Details            VehicleDetails       `json:"vehicle" bson:"vehicle"`
	NotificationsSent  map[string]bool      `json:"notificationsSent,omitempty" bson:"notificationsSent,omitempty"`
	NotificationClaims map[string]time.Time `json:"-" bson:"notificationClaims,omitempty"`
}

// VehicleDetails holds the structure for the inner vehicle structure as
// defined in the vehicle collection in mongo
type VehicleDetails struct {
	UserID    string                    `json:"userID" bson:"userID"`
	Make      string                    `json:"make" bson:"make"`
	Model     string                    `json:"model" bson:"model"`
	Plate     string                    `json:"plate" bson:"plate"`
	Year      int                       `json:"year,omitempty" bson:"year,omitempty"`
	Documents map[DocumentKind]Document `json:"documents" bson:"documents"`
	CreatedAt primitive.DateTime        `json:"createdAt" bson:"createdAt"`
	UpdatedAt primitive.DateTime        `json:"updatedAt" bson:"updatedAt"`
}

// Description is the make and model shown in reminder messages
func (v VehicleDetails) Description() string {
	return fmt.Sprintf("%s %s", v.Make, v.Model)
}

// Document returns the document of the given kind, if registered
func (v VehicleDetails) Document(kind DocumentKind) (Document, bool) {
	doc, ok := v.Documents[kind]
	return doc, ok
}

// NotificationSent reports whether the log already holds key
func (v Vehicle) NotificationSent(key string) bool {
	return v.NotificationsSent[key]
}

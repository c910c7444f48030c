package models

import "time"

// ScheduledReminder is a trigger notification registered for a user's device
// and held server side until it is due.
type ScheduledReminder struct {
	ID          string       `json:"id" bson:"_id"`
	UserID      string       `json:"userId" bson:"userId"`
	VehicleID   string       `json:"vehicleId" bson:"vehicleId"`
	Kind        DocumentKind `json:"kind" bson:"kind"`
	Threshold   int          `json:"threshold" bson:"threshold"`
	Title       string       `json:"title" bson:"title"`
	Body        string       `json:"body" bson:"body"`
	ChannelID   string       `json:"channelId" bson:"channelId"`
	FireAt      time.Time    `json:"fireAt" bson:"fireAt"`
	DeliveredAt *time.Time   `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
}

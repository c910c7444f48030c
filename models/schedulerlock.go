package models

import "time"

// SchedulerLock holds the structure for the schedulerlocks collection in mongo
type SchedulerLock struct {
	ID        string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

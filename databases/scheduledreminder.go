package databases

// go generate: mockery --name ScheduledReminderDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/autodoc-api/models"
)

const scheduledReminderName = "scheduledreminders"

// ScheduledReminderDatabase contains the methods to use with the scheduled reminder database
type ScheduledReminderDatabase interface {
	// Upsert stores reminder under its id, replacing any reminder with the same id
	Upsert(ctx context.Context, reminder models.ScheduledReminder) error
	PendingIDs(ctx context.Context, userID string) ([]string, error)
	DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error)
	FindDue(ctx context.Context, now time.Time, limit int64) ([]models.ScheduledReminder, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}

type scheduledReminderDatabase struct {
	db DatabaseHelper
}

// NewScheduledReminderDatabase initializes a new instance of scheduled reminder database with the provided db connection
func NewScheduledReminderDatabase(db DatabaseHelper) ScheduledReminderDatabase {
	return &scheduledReminderDatabase{
		db: db,
	}
}

func (s *scheduledReminderDatabase) Upsert(ctx context.Context, reminder models.ScheduledReminder) error {
	update := bson.M{
		"$set": bson.M{
			"userId":    reminder.UserID,
			"vehicleId": reminder.VehicleID,
			"kind":      reminder.Kind,
			"threshold": reminder.Threshold,
			"title":     reminder.Title,
			"body":      reminder.Body,
			"channelId": reminder.ChannelID,
			"fireAt":    reminder.FireAt,
		},
		"$setOnInsert": bson.M{"createdAt": time.Now()},
	}
	_, err := s.db.Collection(scheduledReminderName).UpdateOne(ctx, bson.M{"_id": reminder.ID}, update, options.Update().SetUpsert(true))
	return err
}

func (s *scheduledReminderDatabase) PendingIDs(ctx context.Context, userID string) ([]string, error) {
	filter := bson.M{"userId": userID, "deliveredAt": bson.M{"$exists": false}}
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := s.db.Collection(scheduledReminderName).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.Decode(&rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *scheduledReminderDatabase) DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.db.Collection(scheduledReminderName).DeleteMany(ctx, bson.M{"userId": userID, "_id": bson.M{"$in": ids}})
}

func (s *scheduledReminderDatabase) FindDue(ctx context.Context, now time.Time, limit int64) ([]models.ScheduledReminder, error) {
	filter := bson.M{
		"fireAt":      bson.M{"$lte": now},
		"deliveredAt": bson.M{"$exists": false},
	}
	opts := options.Find().SetSort(bson.D{{Key: "fireAt", Value: 1}}).SetLimit(limit)
	cursor, err := s.db.Collection(scheduledReminderName).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var reminders []models.ScheduledReminder
	if err := cursor.Decode(&reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

func (s *scheduledReminderDatabase) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Collection(scheduledReminderName).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"deliveredAt": at}})
	return err
}

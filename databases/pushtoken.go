package databases

// go generate: mockery --name PushTokenDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/autodoc-api/models"
)

const pushTokenCollectionName = "pushtokens"

// PushTokenDatabase contains the methods to use with the push token database
type PushTokenDatabase interface {
	// LatestForUser returns the most recently registered token of the user, or
	// mongo.ErrNoDocuments when the user has none.
	LatestForUser(ctx context.Context, userID string) (*models.PushToken, error)
	Upsert(ctx context.Context, userID, token, platform string) error
	DeleteOne(ctx context.Context, filter interface{}) error
	DeleteByToken(ctx context.Context, token string) (int64, error)
}

type pushTokenDatabase struct {
	db DatabaseHelper
}

// NewPushTokenDatabase initializes a new instance of push token database with the provided db connection
func NewPushTokenDatabase(db DatabaseHelper) PushTokenDatabase {
	return &pushTokenDatabase{
		db: db,
	}
}

func (pt *pushTokenDatabase) LatestForUser(ctx context.Context, userID string) (*models.PushToken, error) {
	token := &models.PushToken{}
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	err := pt.db.Collection(pushTokenCollectionName).FindOne(ctx, bson.M{"userId": userID}, opts).Decode(token)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Upsert registers token for userID. A token moves to the latest user that
// registers it, since a device belongs to one signed in user at a time.
func (pt *pushTokenDatabase) Upsert(ctx context.Context, userID, token, platform string) error {
	now := primitive.NewDateTimeFromTime(time.Now())
	update := bson.M{
		"$set": bson.M{
			"userId":    userID,
			"platform":  platform,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err := pt.db.Collection(pushTokenCollectionName).UpdateOne(ctx, bson.M{"token": token}, update, options.Update().SetUpsert(true))
	return err
}

func (pt *pushTokenDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	_, err := pt.db.Collection(pushTokenCollectionName).DeleteOne(ctx, filter)
	return err
}

func (pt *pushTokenDatabase) DeleteByToken(ctx context.Context, token string) (int64, error) {
	return pt.db.Collection(pushTokenCollectionName).DeleteMany(ctx, bson.M{"token": token})
}

package databases

//go generate: mockery --name VehicleDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/autodoc-api/models"
)

const vehicleName = "vehicles"

// VehicleDatabase contains the methods to use with the vehicle database
type VehicleDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Vehicle, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Vehicle, error)
	InsertOne(ctx context.Context, vehicle models.Vehicle) (primitive.ObjectID, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) error
	DeleteOne(ctx context.Context, filter interface{}) (int64, error)
	CountByUser(ctx context.Context) ([]models.VehiclesByUser, error)

	// ClaimNotification marks key as in flight for the vehicle. It succeeds only
	// when key is not logged as sent and no claim newer than staleBefore exists.
	ClaimNotification(ctx context.Context, vehicleID primitive.ObjectID, key string, now, staleBefore time.Time) (bool, error)
	// MarkNotificationSent logs key as sent and drops its claim
	MarkNotificationSent(ctx context.Context, vehicleID primitive.ObjectID, key string) error
	// ReleaseNotificationClaim drops the claim on key so a later sweep retries it
	ReleaseNotificationClaim(ctx context.Context, vehicleID primitive.ObjectID, key string) error
}

type vehicleDatabase struct {
	db DatabaseHelper
}

// NewVehicleDatabase initializes a new instance of vehicle database with the provided db connection
func NewVehicleDatabase(db DatabaseHelper) VehicleDatabase {
	return &vehicleDatabase{
		db: db,
	}
}

func (v *vehicleDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Vehicle, error) {
	vehicle := &models.Vehicle{}
	err := v.db.Collection(vehicleName).FindOne(ctx, filter).Decode(&vehicle)
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (v *vehicleDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	cursor, err := v.db.Collection(vehicleName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cursor.Decode(&vehicles)
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (v *vehicleDatabase) InsertOne(ctx context.Context, vehicle models.Vehicle) (primitive.ObjectID, error) {
	res, err := v.db.Collection(vehicleName).InsertOne(ctx, vehicle)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.Decode().(primitive.ObjectID)
	return id, nil
}

func (v *vehicleDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	_, err := v.db.Collection(vehicleName).UpdateOne(ctx, filter, update)
	return err
}

func (v *vehicleDatabase) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	return v.db.Collection(vehicleName).DeleteOne(ctx, filter)
}

func (v *vehicleDatabase) CountByUser(ctx context.Context) ([]models.VehiclesByUser, error) {
	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$vehicle.userID", "count": bson.M{"$sum": 1}}},
		{"$lookup": bson.M{
			"from": userName,
			"let":  bson.M{"uid": "$_id"},
			"pipeline": []bson.M{
				{"$match": bson.M{"$expr": bson.M{"$eq": []interface{}{bson.M{"$toString": "$_id"}, "$$uid"}}}},
				{"$project": bson.M{"username": "$user.username"}},
			},
			"as": "owner",
		}},
		{"$project": bson.M{
			"count":    1,
			"username": bson.M{"$ifNull": []interface{}{bson.M{"$first": "$owner.username"}, ""}},
		}},
		{"$sort": bson.M{"count": -1}},
	}
	cursor, err := v.db.Collection(vehicleName).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []models.VehiclesByUser
	if err := cursor.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (v *vehicleDatabase) ClaimNotification(ctx context.Context, vehicleID primitive.ObjectID, key string, now, staleBefore time.Time) (bool, error) {
	sentField := "notificationsSent." + key
	claimField := "notificationClaims." + key
	filter := bson.M{
		"_id":     vehicleID,
		sentField: bson.M{"$ne": true},
		"$or": []bson.M{
			{claimField: bson.M{"$exists": false}},
			{claimField: bson.M{"$lt": staleBefore}},
		},
	}
	update := bson.M{"$set": bson.M{claimField: now}}
	res, err := v.db.Collection(vehicleName).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (v *vehicleDatabase) MarkNotificationSent(ctx context.Context, vehicleID primitive.ObjectID, key string) error {
	update := bson.M{
		"$set":   bson.M{"notificationsSent." + key: true},
		"$unset": bson.M{"notificationClaims." + key: ""},
	}
	_, err := v.db.Collection(vehicleName).UpdateOne(ctx, bson.M{"_id": vehicleID}, update)
	return err
}

func (v *vehicleDatabase) ReleaseNotificationClaim(ctx context.Context, vehicleID primitive.ObjectID, key string) error {
	update := bson.M{"$unset": bson.M{"notificationClaims." + key: ""}}
	_, err := v.db.Collection(vehicleName).UpdateOne(ctx, bson.M{"_id": vehicleID}, update)
	return err
}

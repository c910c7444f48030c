package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/linesmerrill/autodoc-api/api"
	"github.com/linesmerrill/autodoc-api/calendar"
	"github.com/linesmerrill/autodoc-api/config"
	"github.com/linesmerrill/autodoc-api/databases"
	"github.com/linesmerrill/autodoc-api/models"
	"github.com/linesmerrill/autodoc-api/reminders"
)

const defaultVehicleLimit = 50

// ReminderFactory returns the reminder service that schedules a user's device reminders
type ReminderFactory func(userID string) *reminders.Service

// FileStore removes uploaded document files
type FileStore interface {
	DeleteByURL(ctx context.Context, assetURL string) error
}

// Vehicle exported for testing purposes
type Vehicle struct {
	DB        databases.VehicleDatabase
	Reminders ReminderFactory
	Files     FileStore
}

// VehicleByIDHandler returns a vehicle by ID
func (v Vehicle) VehicleByIDHandler(w http.ResponseWriter, r *http.Request) {
	vehicle, ok := v.ownedVehicle(w, r)
	if !ok {
		return
	}

	b, err := json.Marshal(vehicle)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// VehiclesByUserIDHandler returns all vehicles of the given user
func (v Vehicle) VehiclesByUserIDHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	if authID, _ := api.UserIDFromContext(r.Context()); authID != userID {
		config.ErrorStatus("cannot list another user's vehicles", http.StatusForbidden, w, nil)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		zap.S().Debugf("limit not set, using default of %v", defaultVehicleLimit)
		limit = defaultVehicleLimit
	}
	limit64 := int64(limit)
	skip64 := int64(getPage(0, r) * limit)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := v.DB.Find(ctx, bson.M{"vehicle.userID": userID}, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get vehicles with user id", http.StatusNotFound, w, err)
		return
	}
	// the app expects an array even when the user has no vehicles
	if len(dbResp) == 0 {
		dbResp = []models.Vehicle{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CreateVehicleHandler creates a vehicle and schedules reminders for its documents
func (v Vehicle) CreateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.UserIDFromContext(r.Context())
	if !ok {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, nil)
		return
	}

	var vehicle models.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&vehicle.Details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := normalizeDocuments(&vehicle.Details); err != nil {
		config.ErrorStatus("invalid vehicle documents", http.StatusBadRequest, w, err)
		return
	}

	vehicle.ID = primitive.NewObjectID()
	vehicle.Details.UserID = userID
	vehicle.Details.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	vehicle.Details.UpdatedAt = vehicle.Details.CreatedAt

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := v.DB.InsertOne(ctx, vehicle); err != nil {
		config.ErrorStatus("failed to create vehicle", http.StatusInternalServerError, w, err)
		return
	}

	scheduled := v.reschedule(ctx, userID, vehicle)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":            "Vehicle created successfully",
		"id":                 vehicle.ID.Hex(),
		"remindersScheduled": scheduled,
	})
}

// UpdateVehicleHandler replaces a vehicle's details. Reminders of every
// document are cancelled and scheduled again for the new dates, and files
// that were replaced are removed from storage.
func (v Vehicle) UpdateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	existing, ok := v.ownedVehicle(w, r)
	if !ok {
		return
	}

	var details models.VehicleDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := normalizeDocuments(&details); err != nil {
		config.ErrorStatus("invalid vehicle documents", http.StatusBadRequest, w, err)
		return
	}
	details.UserID = existing.Details.UserID
	details.CreatedAt = existing.Details.CreatedAt
	details.UpdatedAt = primitive.NewDateTimeFromTime(time.Now())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := v.DB.UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": bson.M{"vehicle": details}}); err != nil {
		config.ErrorStatus("failed to update vehicle", http.StatusInternalServerError, w, err)
		return
	}

	for _, kind := range models.DocumentKinds {
		before, _ := existing.Details.Document(kind)
		after, _ := details.Document(kind)
		if before.FileURL != "" && before.FileURL != after.FileURL {
			v.removeFile(ctx, existing.ID, before.FileURL)
		}
	}

	updated := *existing
	updated.Details = details
	scheduled := v.reschedule(ctx, details.UserID, updated)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":            "Vehicle updated successfully",
		"remindersScheduled": scheduled,
	})
}

type documentRequest struct {
	Expiration *calendar.Date `json:"expiration"`
	FileURL    string         `json:"fileUrl"`
	FileID     string         `json:"fileId"`
}

// UpdateDocumentHandler sets a single document of a vehicle and reschedules
// its reminders. A null expiration clears the date and cancels them.
func (v Vehicle) UpdateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseDocumentKind(mux.Vars(r)["kind"])
	if err != nil {
		config.ErrorStatus("unknown document kind", http.StatusBadRequest, w, err)
		return
	}

	existing, ok := v.ownedVehicle(w, r)
	if !ok {
		return
	}

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	doc := models.Document{Kind: kind, Expiration: req.Expiration, FileURL: req.FileURL, FileID: req.FileID}
	if !doc.HasExpiration() {
		doc.Expiration = nil
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	update := bson.M{"$set": bson.M{
		"vehicle.documents." + string(kind): doc,
		"vehicle.updatedAt":                 primitive.NewDateTimeFromTime(time.Now()),
	}}
	if err := v.DB.UpdateOne(ctx, bson.M{"_id": existing.ID}, update); err != nil {
		config.ErrorStatus("failed to update document", http.StatusInternalServerError, w, err)
		return
	}

	if before, _ := existing.Details.Document(kind); before.FileURL != "" && before.FileURL != doc.FileURL {
		v.removeFile(ctx, existing.ID, before.FileURL)
	}

	result, err := v.Reminders(existing.Details.UserID).RescheduleDocumentReminders(ctx, reminders.Request{
		VehicleID:          existing.ID.Hex(),
		Kind:               kind,
		Expiration:         doc.Expiration,
		VehicleDescription: existing.Details.Description(),
	})
	if err != nil {
		zap.S().Errorw("failed to reschedule document reminders",
			"vehicleId", existing.ID.Hex(),
			"kind", kind,
			"error", err,
		)
		result = &reminders.Result{}
	}

	resp := map[string]interface{}{
		"message":          "Document updated successfully",
		"document":         doc,
		"scheduled":        result.Scheduled,
		"skipped":          result.Skipped,
		"permissionDenied": result.PermissionDenied,
		"remindersFailed":  err != nil || len(result.Failed) > 0,
	}
	status := http.StatusOK
	// the document is saved but the app must tell the user no reminder will fire
	if errors.Is(err, reminders.ErrChannelCreation) {
		status = http.StatusMultiStatus
		resp["channelError"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// DeleteVehicleHandler deletes a vehicle by ID, then its stored document
// files and pending reminders. Nothing is cleaned up when the delete fails.
func (v Vehicle) DeleteVehicleHandler(w http.ResponseWriter, r *http.Request) {
	existing, ok := v.ownedVehicle(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	deleted, err := v.DB.DeleteOne(ctx, bson.M{"_id": existing.ID})
	if err != nil {
		config.ErrorStatus("failed to delete vehicle", http.StatusInternalServerError, w, err)
		return
	}
	if deleted == 0 {
		config.ErrorStatus("vehicle not found", http.StatusNotFound, w, nil)
		return
	}

	for _, kind := range models.DocumentKinds {
		if doc, ok := existing.Details.Document(kind); ok && doc.FileURL != "" {
			v.removeFile(ctx, existing.ID, doc.FileURL)
		}
	}

	cancelled, err := v.Reminders(existing.Details.UserID).CancelVehicleReminders(ctx, existing.ID.Hex())
	if err != nil {
		zap.S().Errorw("failed to cancel reminders of deleted vehicle",
			"vehicleId", existing.ID.Hex(),
			"error", err,
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":            "Vehicle deleted successfully",
		"remindersCancelled": cancelled,
		"remindersFailed":    err != nil,
	})
}

// ownedVehicle loads the vehicle in the route and checks it belongs to the
// authenticated user. It writes the error response itself.
func (v Vehicle) ownedVehicle(w http.ResponseWriter, r *http.Request) (*models.Vehicle, bool) {
	vID, err := primitive.ObjectIDFromHex(mux.Vars(r)["vehicle_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return nil, false
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	vehicle, err := v.DB.FindOne(ctx, bson.M{"_id": vID})
	if errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("vehicle not found", http.StatusNotFound, w, err)
		return nil, false
	}
	if err != nil {
		config.ErrorStatus("failed to get vehicle by ID", http.StatusInternalServerError, w, err)
		return nil, false
	}

	if userID, _ := api.UserIDFromContext(r.Context()); vehicle.Details.UserID != userID {
		// same answer as a missing vehicle so ids of other users don't leak
		config.ErrorStatus("vehicle not found", http.StatusNotFound, w, nil)
		return nil, false
	}
	return vehicle, true
}

// reschedule refreshes the device reminders of every document. Failures are
// logged only; the daily sweep still covers the vehicle.
func (v Vehicle) reschedule(ctx context.Context, userID string, vehicle models.Vehicle) bool {
	if err := v.Reminders(userID).RescheduleVehicle(ctx, vehicle); err != nil {
		zap.S().Errorw("failed to schedule vehicle reminders",
			"vehicleId", vehicle.ID.Hex(),
			"error", err,
		)
		return false
	}
	return true
}

func (v Vehicle) removeFile(ctx context.Context, vehicleID primitive.ObjectID, fileURL string) {
	if v.Files == nil {
		return
	}
	if err := v.Files.DeleteByURL(ctx, fileURL); err != nil {
		zap.S().Warnw("failed to delete document file",
			"vehicleId", vehicleID.Hex(),
			"url", fileURL,
			"error", err,
		)
	}
}

// normalizeDocuments checks document kinds and makes each document carry the
// kind it is keyed by
func normalizeDocuments(details *models.VehicleDetails) error {
	for kind, doc := range details.Documents {
		if !kind.Valid() {
			return fmt.Errorf("unknown document kind %q", kind)
		}
		doc.Kind = kind
		if !doc.HasExpiration() {
			doc.Expiration = nil
		}
		details.Documents[kind] = doc
	}
	return nil
}

func getPage(page int, r *http.Request) int {
	if r.URL.Query().Get("page") == "" {
		return page
	}
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		zap.S().Errorf("error parsing page number: %v", err)
		return page
	}
	if p < 0 {
		zap.S().Warnf("cannot process page number less than 0. Got: %v", p)
		return 0
	}
	return p
}

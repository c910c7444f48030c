package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/linesmerrill/autodoc-api/api"
	"github.com/linesmerrill/autodoc-api/config"
	"github.com/linesmerrill/autodoc-api/databases"
)

// PushToken handles device push token registration
type PushToken struct {
	DB databases.PushTokenDatabase
}

type registerPushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type deregisterPushTokenRequest struct {
	Token string `json:"token"`
}

// RegisterPushTokenHandler stores the Expo push token of the user's device
func (p PushToken) RegisterPushTokenHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.UserIDFromContext(r.Context())
	if !ok {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, nil)
		return
	}

	var req registerPushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if !isExpoPushToken(req.Token) {
		config.ErrorStatus("invalid expo push token", http.StatusBadRequest, w, nil)
		return
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform != "ios" && platform != "android" {
		config.ErrorStatus("platform must be ios or android", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := p.DB.Upsert(ctx, userID, req.Token, platform); err != nil {
		config.ErrorStatus("failed to register push token", http.StatusInternalServerError, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Push token registered",
	})
}

// DeletePushTokenHandler removes a device token of the user, e.g. on logout
func (p PushToken) DeletePushTokenHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.UserIDFromContext(r.Context())
	if !ok {
		config.ErrorStatus("missing authenticated user", http.StatusUnauthorized, w, nil)
		return
	}

	var req deregisterPushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		config.ErrorStatus("token is required", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := p.DB.DeleteOne(ctx, bson.M{"userId": userID, "token": req.Token}); err != nil {
		config.ErrorStatus("failed to delete push token", http.StatusInternalServerError, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Push token removed",
	})
}

func isExpoPushToken(token string) bool {
	return (strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")) &&
		strings.HasSuffix(token, "]")
}

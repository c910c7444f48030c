package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/autodoc-api/api"
	"github.com/linesmerrill/autodoc-api/config"
	"github.com/linesmerrill/autodoc-api/databases"
	"github.com/linesmerrill/autodoc-api/models"
)

const minPasswordLength = 6

var (
	errDuplicateEmail    = errors.New("duplicate email")
	errDuplicateUsername = errors.New("duplicate username")
)

// User exported for testing purposes
type User struct {
	DB databases.UserDatabase
}

type userCreateRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserCreateHandler registers a user account. Email and username must both be unused.
func (u User) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	username := strings.TrimSpace(req.Username)
	if _, err := mail.ParseAddress(email); err != nil {
		config.ErrorStatus("invalid email", http.StatusBadRequest, w, err)
		return
	}
	if username == "" {
		config.ErrorStatus("username required", http.StatusBadRequest, w, nil)
		return
	}
	if len(req.Password) < minPasswordLength {
		config.ErrorStatus(fmt.Sprintf("password must have at least %d characters", minPasswordLength), http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := u.available(ctx, bson.M{"user.email": email}, errDuplicateEmail); err != nil {
		u.lookupError(w, err)
		return
	}
	if err := u.available(ctx, bson.M{"user.username": username}, errDuplicateUsername); err != nil {
		u.lookupError(w, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	user := models.User{
		ID: primitive.NewObjectID(),
		Details: models.UserDetails{
			Email:     email,
			Username:  username,
			Password:  string(hashedPassword),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if _, err := u.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to insert user", http.StatusInternalServerError, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User created successfully",
		"id":      user.ID.Hex(),
	})
}

// UserHandler returns the authenticated user
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := api.UserIDFromContext(r.Context())
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusUnauthorized, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := u.DB.FindOne(ctx, bson.M{"_id": uID})
	if errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("user not found", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusInternalServerError, w, err)
		return
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

// available returns taken when a user matches filter
func (u User) available(ctx context.Context, filter bson.M, taken error) error {
	_, err := u.DB.FindOne(ctx, filter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	return taken
}

func (u User) lookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errDuplicateEmail):
		config.ErrorStatus("email already exists", http.StatusConflict, w, err)
	case errors.Is(err, errDuplicateUsername):
		config.ErrorStatus("username already exists", http.StatusConflict, w, err)
	default:
		config.ErrorStatus("failed to check existing users", http.StatusInternalServerError, w, err)
	}
}

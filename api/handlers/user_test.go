package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/autodoc-api/api/handlers"
	"github.com/linesmerrill/autodoc-api/databases/mocks"
	"github.com/linesmerrill/autodoc-api/models"
)

func TestUser_UserCreateHandler(t *testing.T) {
	udb := &mocks.UserDatabase{}
	udb.On("FindOne", mock.Anything, bson.M{"user.email": "ana@example.com"}).Return(nil, mongo.ErrNoDocuments)
	udb.On("FindOne", mock.Anything, bson.M{"user.username": "ana"}).Return(nil, mongo.ErrNoDocuments)
	var inserted models.User
	udb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.User")).Return(primitive.NewObjectID(), nil).Run(func(args mock.Arguments) {
		inserted = args.Get(1).(models.User)
	})

	rr := httptest.NewRecorder()
	handlers.User{DB: udb}.UserCreateHandler(rr, httptest.NewRequest("POST", "/api/v1/user", strings.NewReader(`{"email": " Ana@Example.com", "username": "ana", "password": "s3cret!"}`)))

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, inserted.ID.Hex(), resp["id"])
	assert.Equal(t, "ana@example.com", inserted.Details.Email)
	assert.NotEqual(t, "s3cret!", inserted.Details.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(inserted.Details.Password), []byte("s3cret!")))
	udb.AssertExpectations(t)
}

func TestUser_UserCreateHandlerDuplicate(t *testing.T) {
	tests := []struct {
		name     string
		taken    bson.M
		contains string
	}{
		{"email taken", bson.M{"user.email": "ana@example.com"}, "email already exists"},
		{"username taken", bson.M{"user.username": "ana"}, "username already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			udb := &mocks.UserDatabase{}
			udb.On("FindOne", mock.Anything, tt.taken).Return(&models.User{ID: primitive.NewObjectID()}, nil)
			udb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

			rr := httptest.NewRecorder()
			handlers.User{DB: udb}.UserCreateHandler(rr, httptest.NewRequest("POST", "/", strings.NewReader(`{"email": "ana@example.com", "username": "ana", "password": "s3cret!"}`)))

			assert.Equal(t, http.StatusConflict, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.contains)
			udb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
		})
	}
}

func TestUser_UserCreateHandlerValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"invalid email", `{"email": "ana", "username": "ana", "password": "s3cret!"}`},
		{"missing username", `{"email": "ana@example.com", "username": " ", "password": "s3cret!"}`},
		{"short password", `{"email": "ana@example.com", "username": "ana", "password": "abc"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			udb := &mocks.UserDatabase{}
			rr := httptest.NewRecorder()
			handlers.User{DB: udb}.UserCreateHandler(rr, httptest.NewRequest("POST", "/", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			udb.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
		})
	}
}

func TestUser_UserCreateHandlerLookupError(t *testing.T) {
	udb := &mocks.UserDatabase{}
	udb.On("FindOne", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))

	rr := httptest.NewRecorder()
	handlers.User{DB: udb}.UserCreateHandler(rr, httptest.NewRequest("POST", "/", strings.NewReader(`{"email": "ana@example.com", "username": "ana", "password": "s3cret!"}`)))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	udb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestUser_UserCreateHandlerInsertError(t *testing.T) {
	udb := &mocks.UserDatabase{}
	udb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	udb.On("InsertOne", mock.Anything, mock.Anything).Return(primitive.NilObjectID, errors.New("mocked-error"))

	rr := httptest.NewRecorder()
	handlers.User{DB: udb}.UserCreateHandler(rr, httptest.NewRequest("POST", "/", strings.NewReader(`{"email": "ana@example.com", "username": "ana", "password": "s3cret!"}`)))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestUser_UserHandler(t *testing.T) {
	id, err := primitive.ObjectIDFromHex(ownerID)
	require.NoError(t, err)
	udb := &mocks.UserDatabase{}
	udb.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{
		ID:      id,
		Details: models.UserDetails{Email: "ana@example.com", Username: "ana", Password: "$2a$10$hash"},
	}, nil)

	rr := httptest.NewRecorder()
	handlers.User{DB: udb}.UserHandler(rr, authedRequest("GET", "/api/v1/user/me", nil, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
	assert.NotContains(t, rr.Body.String(), "$2a$10$hash")
	var got models.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "ana", got.Details.Username)
}

func TestUser_UserHandlerNotFound(t *testing.T) {
	udb := &mocks.UserDatabase{}
	udb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	rr := httptest.NewRecorder()
	handlers.User{DB: udb}.UserHandler(rr, authedRequest("GET", "/", nil, nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUser_UserHandlerUnauthenticated(t *testing.T) {
	rr := httptest.NewRecorder()
	handlers.User{DB: &mocks.UserDatabase{}}.UserHandler(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

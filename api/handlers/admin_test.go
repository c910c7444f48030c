package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/autodoc-api/api"
	"github.com/linesmerrill/autodoc-api/api/handlers"
	"github.com/linesmerrill/autodoc-api/api/scheduler"
	"github.com/linesmerrill/autodoc-api/databases/mocks"
	"github.com/linesmerrill/autodoc-api/models"
)

var testSecret = []byte("test-secret")

type fakeSweeps struct {
	report *scheduler.SweepReport
	err    error
	calls  int
}

func (f *fakeSweeps) RunSweepNow(context.Context) (*scheduler.SweepReport, error) {
	f.calls++
	return f.report, f.err
}

func adminUser(t *testing.T, password string) *models.AdminUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.AdminUser{ID: primitive.NewObjectID(), Email: "ops@example.com", PasswordHash: string(hash), Active: true, Roles: []string{"owner"}}
}

func TestAdmin_AdminLoginHandler(t *testing.T) {
	admin := adminUser(t, "s3cret")
	adb := &mocks.AdminDatabase{}
	adb.On("FindOne", mock.Anything, bson.M{"email": "ops@example.com", "active": true}).Return(admin, nil)
	h := handlers.Admin{ADB: adb, JWTSecret: testSecret}

	rr := httptest.NewRecorder()
	h.AdminLoginHandler(rr, httptest.NewRequest("POST", "/api/v1/admin/login", strings.NewReader(`{"email": " OPS@example.com", "password": "s3cret"}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Token string `json:"token"`
		Admin struct {
			ID string `json:"id"`
		} `json:"admin"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, admin.ID.Hex(), resp.Admin.ID)

	claims, err := api.ParseAdminToken(testSecret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID.Hex(), claims.Subject)
	assert.Equal(t, []string{"owner"}, claims.Roles)
}

func TestAdmin_AdminLoginHandlerWrongPassword(t *testing.T) {
	adb := &mocks.AdminDatabase{}
	adb.On("FindOne", mock.Anything, mock.Anything).Return(adminUser(t, "s3cret"), nil)

	rr := httptest.NewRecorder()
	handlers.Admin{ADB: adb, JWTSecret: testSecret}.AdminLoginHandler(rr, httptest.NewRequest("POST", "/", strings.NewReader(`{"email": "ops@example.com", "password": "nope"}`)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdmin_AdminLoginHandlerUnknownAdmin(t *testing.T) {
	adb := &mocks.AdminDatabase{}
	adb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	rr := httptest.NewRecorder()
	handlers.Admin{ADB: adb, JWTSecret: testSecret}.AdminLoginHandler(rr, httptest.NewRequest("POST", "/", strings.NewReader(`{"email": "x@example.com", "password": "nope"}`)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdmin_AdminLoginHandlerMissingSecret(t *testing.T) {
	adb := &mocks.AdminDatabase{}
	adb.On("FindOne", mock.Anything, mock.Anything).Return(adminUser(t, "s3cret"), nil)

	rr := httptest.NewRecorder()
	handlers.Admin{ADB: adb}.AdminLoginHandler(rr, httptest.NewRequest("POST", "/", strings.NewReader(`{"email": "ops@example.com", "password": "s3cret"}`)))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAdmin_AdminLoginHandlerBadRequest(t *testing.T) {
	rr := httptest.NewRecorder()
	handlers.Admin{ADB: &mocks.AdminDatabase{}}.AdminLoginHandler(rr, httptest.NewRequest("POST", "/", strings.NewReader(`{"email": ""}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdmin_RunSweepHandler(t *testing.T) {
	sweeps := &fakeSweeps{report: &scheduler.SweepReport{
		RanAt:           time.Date(2024, time.June, 5, 13, 0, 0, 0, time.UTC),
		VehiclesScanned: 2,
		Items:           []scheduler.ItemReport{{VehicleID: "v1", Kind: models.DocumentInsurance, DaysRemaining: 5, Outcome: scheduler.OutcomeSent}},
	}}

	rr := httptest.NewRecorder()
	handlers.Admin{Sweeps: sweeps}.RunSweepHandler(rr, httptest.NewRequest("POST", "/api/v1/admin/sweep", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got scheduler.SweepReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 2, got.VehiclesScanned)
	assert.Equal(t, 1, got.Count(scheduler.OutcomeSent))
	assert.Equal(t, 1, sweeps.calls)
}

func TestAdmin_RunSweepHandlerLocked(t *testing.T) {
	rr := httptest.NewRecorder()
	handlers.Admin{Sweeps: &fakeSweeps{err: scheduler.ErrSweepLocked}}.RunSweepHandler(rr, httptest.NewRequest("POST", "/", nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAdmin_RunSweepHandlerFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	handlers.Admin{Sweeps: &fakeSweeps{err: &scheduler.SweepFatalError{Err: errors.New("mocked-error")}}}.RunSweepHandler(rr, httptest.NewRequest("POST", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAdmin_VehiclesByUserReportHandler(t *testing.T) {
	vdb := &mocks.VehicleDatabase{}
	vdb.On("CountByUser", mock.Anything).Return([]models.VehiclesByUser{
		{UserID: "u1", Username: "ana", Count: 2},
		{UserID: "u2", Username: "beto", Count: 1},
	}, nil)

	rr := httptest.NewRecorder()
	handlers.Admin{VDB: vdb}.VehiclesByUserReportHandler(rr, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Users         []models.VehiclesByUser `json:"users"`
		TotalVehicles int                     `json:"totalVehicles"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Users, 2)
	assert.Equal(t, 3, resp.TotalVehicles)
}

func TestAdmin_VehiclesByUserReportHandlerError(t *testing.T) {
	vdb := &mocks.VehicleDatabase{}
	vdb.On("CountByUser", mock.Anything).Return(nil, errors.New("mocked-error"))

	rr := httptest.NewRecorder()
	handlers.Admin{VDB: vdb}.VehiclesByUserReportHandler(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAdmin_UsersReportHandler(t *testing.T) {
	udb := &mocks.UserDatabase{}
	udb.On("Count", mock.Anything).Return(int64(42), nil)

	rr := httptest.NewRecorder()
	handlers.Admin{UDB: udb}.UsersReportHandler(rr, httptest.NewRequest("GET", "/api/v1/admin/reports/users", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Users int64 `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Users)
	udb.AssertExpectations(t)
}

func TestAdmin_UsersReportHandlerError(t *testing.T) {
	udb := &mocks.UserDatabase{}
	udb.On("Count", mock.Anything).Return(int64(0), errors.New("mocked-error"))

	rr := httptest.NewRecorder()
	handlers.Admin{UDB: udb}.UsersReportHandler(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

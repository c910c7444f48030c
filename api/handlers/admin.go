package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/autodoc-api/api"
	"github.com/linesmerrill/autodoc-api/api/scheduler"
	"github.com/linesmerrill/autodoc-api/config"
	"github.com/linesmerrill/autodoc-api/databases"
	"github.com/linesmerrill/autodoc-api/models"
)

// SweepRunner runs the document expiration sweep on demand
type SweepRunner interface {
	RunSweepNow(ctx context.Context) (*scheduler.SweepReport, error)
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token string `json:"token"`
	Admin struct {
		ID    string   `json:"id"`
		Email string   `json:"email"`
		Roles []string `json:"roles"`
	} `json:"admin"`
}

// Admin represents the admin handler
type Admin struct {
	ADB       databases.AdminDatabase
	UDB       databases.UserDatabase
	VDB       databases.VehicleDatabase
	Sweeps    SweepRunner
	JWTSecret []byte
}

// AdminLoginHandler handles admin login via email/password and returns a JWT
func (h Admin) AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid request"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "email and password required"})
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	admin, err := h.ADB.FindOne(ctx, bson.M{"email": email, "active": true})
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
		return
	}

	signed, err := api.NewAdminToken(h.JWTSecret, admin.ID.Hex(), admin.Email, admin.Roles, time.Now())
	if err != nil {
		zap.S().Errorw("failed to sign admin token", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "token generation failed"})
		return
	}

	var resp adminLoginResponse
	resp.Token = signed
	resp.Admin.ID = admin.ID.Hex()
	resp.Admin.Email = admin.Email
	resp.Admin.Roles = admin.Roles

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// RunSweepHandler runs the daily expiration sweep immediately and returns its report
func (h Admin) RunSweepHandler(w http.ResponseWriter, r *http.Request) {
	if h.Sweeps == nil {
		config.ErrorStatus("scheduler is not running", http.StatusServiceUnavailable, w, nil)
		return
	}
	adminID, _ := api.AdminIDFromContext(r.Context())
	zap.S().Infow("manual document expiration sweep requested", "adminId", adminID)

	report, err := h.Sweeps.RunSweepNow(r.Context())
	if errors.Is(err, scheduler.ErrSweepLocked) {
		config.ErrorStatus("sweep already running", http.StatusConflict, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("document expiration sweep failed", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(report)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// VehiclesByUserReportHandler returns how many vehicles each user registered
func (h Admin) VehiclesByUserReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	rows, err := h.VDB.CountByUser(ctx)
	if err != nil {
		config.ErrorStatus("failed to count vehicles by user", http.StatusInternalServerError, w, err)
		return
	}
	if rows == nil {
		rows = []models.VehiclesByUser{}
	}

	total := 0
	for _, row := range rows {
		total += row.Count
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"users":         rows,
		"totalVehicles": total,
	})
}

// UsersReportHandler returns how many user accounts are registered
func (h Admin) UsersReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	count, err := h.UDB.Count(ctx)
	if err != nil {
		config.ErrorStatus("failed to count users", http.StatusInternalServerError, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]int64{"users": count})
}

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/autodoc-api/api"
	"github.com/linesmerrill/autodoc-api/api/scheduler"
	"github.com/linesmerrill/autodoc-api/config"
	"github.com/linesmerrill/autodoc-api/databases"
	"github.com/linesmerrill/autodoc-api/push"
	"github.com/linesmerrill/autodoc-api/reminders"
	"github.com/linesmerrill/autodoc-api/storage"
)

const requestTimeout = 30 * time.Second

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Scheduler *scheduler.Scheduler
	client    databases.ClientHelper
	dbHelper  databases.DatabaseHelper
	files     *storage.Cloudinary
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	uDB := databases.NewUserDatabase(a.dbHelper)
	m := api.MiddlewareDB{DB: uDB}
	m.SetupGoGuardian()

	r := api.New()
	r.Use(api.RequestLogger)

	u := User{DB: uDB}
	v := Vehicle{DB: databases.NewVehicleDatabase(a.dbHelper), Reminders: a.reminderService}
	if a.files != nil {
		v.Files = a.files
	}
	pt := PushToken{DB: databases.NewPushTokenDatabase(a.dbHelper)}
	cloudinaryHandler := CloudinaryHandler{}
	if a.files != nil {
		cloudinaryHandler.Signer = a.files
	}
	admin := Admin{
		ADB:       databases.NewAdminDatabase(a.dbHelper),
		UDB:       uDB,
		VDB:       databases.NewVehicleDatabase(a.dbHelper),
		JWTSecret: []byte(a.Config.JWTSecret),
	}
	if a.Scheduler != nil {
		admin.Sweeps = a.Scheduler
	}

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	timeout := api.TimeoutMiddleware(requestTimeout)
	authed := func(h http.HandlerFunc) http.Handler {
		return timeout(api.Middleware(h))
	}

	apiCreate.Handle("/auth/token", authed(m.CreateToken)).Methods("POST")
	apiCreate.Handle("/auth/logout", authed(api.RevokeToken)).Methods("DELETE")

	apiCreate.Handle("/user", timeout(http.HandlerFunc(u.UserCreateHandler))).Methods("POST")
	apiCreate.Handle("/user/me", authed(u.UserHandler)).Methods("GET")

	apiCreate.Handle("/vehicle", authed(v.CreateVehicleHandler)).Methods("POST")
	apiCreate.Handle("/vehicle/{vehicle_id}", authed(v.VehicleByIDHandler)).Methods("GET")
	apiCreate.Handle("/vehicle/{vehicle_id}", authed(v.UpdateVehicleHandler)).Methods("PUT")
	apiCreate.Handle("/vehicle/{vehicle_id}", authed(v.DeleteVehicleHandler)).Methods("DELETE")
	apiCreate.Handle("/vehicle/{vehicle_id}/documents/{kind}", authed(v.UpdateDocumentHandler)).Methods("PUT")
	apiCreate.Handle("/vehicles/user/{user_id}", authed(v.VehiclesByUserIDHandler)).Methods("GET")

	apiCreate.Handle("/push-token", authed(pt.RegisterPushTokenHandler)).Methods("POST")
	apiCreate.Handle("/push-token", authed(pt.DeletePushTokenHandler)).Methods("DELETE")

	apiCreate.Handle("/documents/signature", authed(cloudinaryHandler.GenerateSignature)).Methods("POST")

	adminOnly := api.AdminMiddleware(admin.JWTSecret)
	apiCreate.Handle("/admin/login", timeout(http.HandlerFunc(admin.AdminLoginHandler))).Methods("POST")
	// the sweep may outlive the request timeout, it holds its own lock and deadline
	apiCreate.Handle("/admin/sweep", adminOnly(http.HandlerFunc(admin.RunSweepHandler))).Methods("POST")
	apiCreate.Handle("/admin/reports/users", timeout(adminOnly(http.HandlerFunc(admin.UsersReportHandler)))).Methods("GET")
	apiCreate.Handle("/admin/reports/vehicles-by-user", timeout(adminOnly(http.HandlerFunc(admin.VehiclesByUserReportHandler)))).Methods("GET")

	return r
}

// reminderService builds the device reminder service of one user
func (a *App) reminderService(userID string) *reminders.Service {
	store := reminders.NewTriggerStore(userID,
		databases.NewScheduledReminderDatabase(a.dbHelper),
		databases.NewPushTokenDatabase(a.dbHelper),
	)
	opts := []reminders.Option{
		reminders.WithReminderTime(a.Config.ReminderTime),
		reminders.WithLogger(zap.S()),
	}
	if a.Config.Location != nil {
		opts = append(opts, reminders.WithLocation(a.Config.Location))
	}
	return reminders.New(store, opts...)
}

// Initialize connects to the database and builds the scheduler and router
func (a *App) Initialize(ctx context.Context) error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect(ctx)
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("autodoc-api has connected to the database")

	if a.Config.CloudinaryURL != "" {
		a.files, err = storage.NewCloudinary(a.Config.CloudinaryURL, a.Config.CloudinaryUploadPreset)
		if err != nil {
			return fmt.Errorf("configure document storage: %w", err)
		}
	} else {
		zap.S().Warn("CLOUDINARY_URL not set, document files will not be deleted from storage")
	}

	pusher := push.NewClient(
		push.WithAccessToken(a.Config.ExpoAccessToken),
		push.WithRateLimit(a.Config.PushRatePerSecond),
	)
	vDB := databases.NewVehicleDatabase(a.dbHelper)
	tDB := databases.NewPushTokenDatabase(a.dbHelper)
	a.Scheduler = scheduler.NewScheduler(
		scheduler.NewSweeper(vDB, databases.NewUserDatabase(a.dbHelper), tDB, pusher, a.Config.Location),
		scheduler.NewDispatcher(databases.NewScheduledReminderDatabase(a.dbHelper), tDB, pusher),
		databases.NewSchedulerLockDatabase(a.dbHelper),
		a.Config.SweepSchedule,
		a.Config.Location,
	)
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	// initialize api router
	a.initializeRoutes()
	return nil
}

// Shutdown stops the scheduler and closes the database connection
func (a *App) Shutdown(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.client != nil {
		return a.client.Disconnect(ctx)
	}
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

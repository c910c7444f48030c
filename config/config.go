package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/linesmerrill/autodoc-api/calendar"
	"github.com/linesmerrill/autodoc-api/logging"
	"github.com/linesmerrill/autodoc-api/models"
)

const (
	defaultSweepSchedule = "0 9 * * *"
	defaultSweepTimezone = "America/Santiago"
	defaultPushRate      = 10
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	Env          string

	// SweepSchedule is the cron spec of the daily document expiration sweep
	SweepSchedule string
	// Location is where expiration dates are interpreted and the sweep runs
	Location *time.Location
	// ReminderTime is the time of day device reminders fire on their day
	ReminderTime calendar.TimeOfDay

	ExpoAccessToken   string
	PushRatePerSecond int

	CloudinaryURL          string
	CloudinaryUploadPreset string
	JWTSecret              string
}

// New sets up all config related services
func New() *Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	env := os.Getenv("ENV")

	//setup zap logger and replace default logger
	logger, err := logging.New(env)
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	loc, err := time.LoadLocation(getEnv("SWEEP_TIMEZONE", defaultSweepTimezone))
	if err != nil {
		zap.S().Warnw("invalid SWEEP_TIMEZONE, falling back to default", "error", err)
		loc, _ = time.LoadLocation(defaultSweepTimezone)
	}

	reminderTime := calendar.Midnight
	if raw := os.Getenv("REMINDER_TIME"); raw != "" {
		reminderTime, err = calendar.ParseTimeOfDay(raw)
		if err != nil {
			zap.S().Warnw("invalid REMINDER_TIME, using midnight", "error", err)
			reminderTime = calendar.Midnight
		}
	}

	pushRate, err := strconv.Atoi(getEnv("PUSH_RATE_PER_SECOND", strconv.Itoa(defaultPushRate)))
	if err != nil || pushRate <= 0 {
		pushRate = defaultPushRate
	}

	return &Config{
		URL:                    os.Getenv("DB_URI"),
		DatabaseName:           os.Getenv("DB_NAME"),
		BaseURL:                os.Getenv("BASE_URL"),
		Port:                   getEnv("PORT", "8080"),
		Env:                    env,
		SweepSchedule:          getEnv("SWEEP_SCHEDULE", defaultSweepSchedule),
		Location:               loc,
		ReminderTime:           reminderTime,
		ExpoAccessToken:        os.Getenv("EXPO_ACCESS_TOKEN"),
		PushRatePerSecond:      pushRate,
		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryUploadPreset: os.Getenv("CLOUDINARY_UPLOAD_PRESET"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().Errorw(message, "error", err)
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: errText}})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	w.Write(b)
}

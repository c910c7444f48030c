// Package docs AutoDoc API.
//
// Documentation of AutoDoc API, the backend that stores vehicle documents and
// reminds owners before they expire.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//     Host: https://autodoc-api.herokuapp.com
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//
// swagger:meta
package docs

import (
	"github.com/linesmerrill/autodoc-api/api/scheduler"
	"github.com/linesmerrill/autodoc-api/models"
	"github.com/linesmerrill/autodoc-api/storage"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route GET /api/v1/user/me user userMe
// Gets the authenticated user. The password hash is never returned.
// responses:
//   200: userResponse
//   404: errorResponse

// The authenticated user
// swagger:response userResponse
type userResponseWrapper struct {
	// in:body
	Body models.User
}

// swagger:route POST /api/v1/user user userCreate
// Registers a user account.
// responses:
//   201: description: user created
//   409: errorResponse

// swagger:route GET /api/v1/vehicle/{vehicle_id} vehicle vehicleByID
// Gets a single vehicle of the authenticated user by ID.
// responses:
//   200: vehicleByIDResponse
//   404: errorResponse

// Shows a single vehicle with its documents and notification log
// swagger:response vehicleByIDResponse
type vehicleByIDResponseWrapper struct {
	// in:body
	Body models.Vehicle
}

// swagger:route GET /api/v1/vehicles/user/{user_id} vehicle vehiclesByUserID
// Lists the vehicles of the authenticated user.
// responses:
//   200: vehiclesResponse

// Shows all vehicles of a user
// swagger:response vehiclesResponse
type vehiclesResponseWrapper struct {
	// in:body
	Body []models.Vehicle
}

// swagger:parameters createVehicle updateVehicle
type vehicleParamsWrapper struct {
	// in:body
	Body models.VehicleDetails
}

// swagger:route POST /api/v1/vehicle vehicle createVehicle
// Registers a vehicle and schedules reminders for its documents.
// responses:
//   201: description: vehicle created

// swagger:route PUT /api/v1/vehicle/{vehicle_id} vehicle updateVehicle
// Replaces a vehicle and reschedules the reminders of every document.
// responses:
//   200: description: vehicle updated

// swagger:parameters updateDocument
type documentParamsWrapper struct {
	// in:body
	Body models.Document
}

// swagger:route PUT /api/v1/vehicle/{vehicle_id}/documents/{kind} vehicle updateDocument
// Sets one document; a null expiration cancels its reminders.
// responses:
//   200: description: document updated

// swagger:route POST /api/v1/documents/signature documents uploadSignature
// Signs a direct document upload.
// responses:
//   200: uploadSignatureResponse

// Signed upload parameters
// swagger:response uploadSignatureResponse
type uploadSignatureResponseWrapper struct {
	// in:body
	Body storage.UploadSignature
}

// swagger:route POST /api/v1/admin/sweep admin runSweep
// Runs the document expiration sweep now.
// responses:
//   200: sweepReportResponse
//   409: errorResponse

// Outcome of every document the sweep looked at
// swagger:response sweepReportResponse
type sweepReportResponseWrapper struct {
	// in:body
	Body scheduler.SweepReport
}

// swagger:route GET /api/v1/admin/reports/vehicles-by-user admin vehiclesByUser
// Counts the vehicles of each user.
// responses:
//   200: vehiclesByUserResponse

// Vehicle count per user
// swagger:response vehiclesByUserResponse
type vehiclesByUserResponseWrapper struct {
	// in:body
	Body []models.VehiclesByUser
}

// swagger:route GET /api/v1/admin/reports/users admin usersCount
// Counts the registered users.
// responses:
//   200: description: registered user count

// Error details
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}

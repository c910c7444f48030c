package templates

import (
	"fmt"
	"strings"
)

// ReminderTitle is shared by every document expiration notification
const ReminderTitle = "¡Documento por vencer!"

// RenderReminderBody generates the body of a device reminder fired daysLeft
// days before the document expires.
func RenderReminderBody(documentName, vehicle string, daysLeft int) string {
	vehicle = strings.TrimSpace(vehicle)
	if daysLeft == 0 {
		return fmt.Sprintf("¡Tu %s para el vehículo %s vence HOY!", documentName, vehicle)
	}
	return fmt.Sprintf("Tu %s para el vehículo %s vencerá en %d días", documentName, vehicle, daysLeft)
}

// RenderSweepBody generates the body of the daily sweep push
func RenderSweepBody(documentName, vehicleMake, vehicleModel string, daysRemaining int) string {
	return fmt.Sprintf("Tu %s para el vehículo %s %s vencerá en %d días.", documentName, vehicleMake, vehicleModel, daysRemaining)
}

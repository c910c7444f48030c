package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/linesmerrill/autodoc-api/calendar"
)

// DocumentKind identifies one of the three ownership documents a vehicle carries
type DocumentKind string

const (
	// DocumentCirculationPermit is the yearly circulation permit
	DocumentCirculationPermit DocumentKind = "permisoCirculacion"
	// DocumentInsurance is the mandatory insurance (SOAP)
	DocumentInsurance DocumentKind = "soap"
	// DocumentTechnicalInspection is the technical inspection certificate
	DocumentTechnicalInspection DocumentKind = "revisionTecnica"
)

// DocumentKinds lists every kind in display order
var DocumentKinds = []DocumentKind{
	DocumentCirculationPermit,
	DocumentInsurance,
	DocumentTechnicalInspection,
}

// ReminderThresholds are the days before expiration a reminder fires, in
// descending order. The device scheduler and the daily sweep both read it.
var ReminderThresholds = []int{7, 5, 3, 1, 0}

// SweepLookaheadDays bounds how far ahead the daily sweep looks for expirations
const SweepLookaheadDays = 7

var documentNames = map[DocumentKind]string{
	DocumentCirculationPermit:   "Permiso de Circulación",
	DocumentInsurance:           "SOAP",
	DocumentTechnicalInspection: "Revisión Técnica",
}

// DisplayName is the user facing label of the kind. Unknown kinds render as
// their raw text.
func (k DocumentKind) DisplayName() string {
	if name, ok := documentNames[k]; ok {
		return name
	}
	return string(k)
}

// Valid reports whether k is one of the known kinds
func (k DocumentKind) Valid() bool {
	_, ok := documentNames[k]
	return ok
}

// ParseDocumentKind maps a kind id or display name, in any case, to a kind
func ParseDocumentKind(s string) (DocumentKind, error) {
	s = strings.TrimSpace(s)
	for _, k := range DocumentKinds {
		if strings.EqualFold(s, string(k)) || strings.EqualFold(s, k.DisplayName()) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}

// NotificationLogKey is the notification log entry for a document expiring at
// expiresAt. The expiration is part of the key so an edited date starts unsent.
func NotificationLogKey(kind DocumentKind, expiresAt time.Time) string {
	return fmt.Sprintf("%s_%d", kind, expiresAt.UnixMilli())
}

// Document holds a single ownership document of a vehicle
type Document struct {
	Kind       DocumentKind   `json:"kind" bson:"kind"`
	Expiration *calendar.Date `json:"expiration,omitempty" bson:"expiration,omitempty"`
	FileURL    string         `json:"fileUrl,omitempty" bson:"fileUrl,omitempty"`
	FileID     string         `json:"fileId,omitempty" bson:"fileId,omitempty"`
}

// HasExpiration reports whether an expiration date is set
func (d Document) HasExpiration() bool {
	return d.Expiration != nil && !d.Expiration.IsZero()
}

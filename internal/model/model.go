// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Location is a point on the map with an optional human-readable address.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// User is a participant of the mesh network.
type User struct {
	ID       string    // PK
	Name     string    //
	Email    string    // unique
	Phone    string    // optional
	DeviceID string    // unique
	IsActive bool      // flipped by heartbeats and session events
	LastSeen time.Time //
	Location *Location // nil until the user shares a position
}

// Acknowledgment records a responder confirming a distress message.
type Acknowledgment struct {
	ResponderID string    `json:"responder_id"`
	DeviceID    string    `json:"device_id,omitempty"`
	At          time.Time `json:"at"`
}

// DistressMessage is an emergency request travelling through the mesh.
type DistressMessage struct {
	ID              string
	SenderID        string // -> users.id
	MessageType     MessageType
	UrgencyLevel    UrgencyLevel
	Content         string
	Location        Location
	Status          MessageStatus
	CreatedAt       time.Time
	ExpiresAt       time.Time // strictly after CreatedAt
	RelayCount      int       // only ever incremented
	Acknowledgments []Acknowledgment
}

// Expired reports whether the message is past its expiry at the given instant.
func (m *DistressMessage) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}

// DeviceNode is a physical device participating in the mesh.
type DeviceNode struct {
	ID               string
	DeviceID         string // unique
	UserID           string // -> users.id
	Location         Location
	IsOnline         bool
	LastSeen         time.Time
	ConnectedPeers   []string // device ids of directly reachable peers
	MessageQueueSize int      // >= 0
}

// MessageRoute is a single relay hop of a distress message. Rows are append-only.
type MessageRoute struct {
	ID           uuid.UUID
	MessageID    string // -> distress_messages.id
	FromDeviceID string
	ToDeviceID   string
	Timestamp    time.Time
	HopCount     int // strictly increasing per message
}

// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/sahaay-store/internal/geo"
	"github.com/and161185/sahaay-store/internal/model"
)

// UserRepository provides access to network participants.
type UserRepository interface {
	// Create inserts a new user; duplicate email or device id yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Touch records a heartbeat or session event.
	Touch(ctx context.Context, id string, active bool, at time.Time) error
}

// NearbyQuery selects live distress messages inside a radius.
type NearbyQuery struct {
	Center    geo.Point
	RadiusKm  float64
	Urgencies []model.UrgencyLevel
	Statuses  []model.MessageStatus
	Now       time.Time // messages expiring at or before Now are skipped
	Limit     int       // 0 means no limit
}

// DistressRepository provides access to distress messages.
type DistressRepository interface {
	// Create inserts a new message.
	Create(ctx context.Context, m *model.DistressMessage) error
	// GetByID loads a message by ID.
	GetByID(ctx context.Context, id string) (*model.DistressMessage, error)
	// ListBySender returns a sender's messages, newest first.
	ListBySender(ctx context.Context, senderID string) ([]model.DistressMessage, error)
	// FindNearby returns messages matching q, most severe first, then newest first.
	FindNearby(ctx context.Context, q NearbyQuery) ([]model.DistressMessage, error)
	// Acknowledge appends ack and moves a non-expired message to ACKNOWLEDGED.
	Acknowledge(ctx context.Context, id string, ack model.Acknowledgment) error
	// MarkDelivered moves a PENDING message to DELIVERED.
	MarkDelivered(ctx context.Context, id string) error
	// IncrementRelay bumps relay_count and returns the new value.
	IncrementRelay(ctx context.Context, id string) (int, error)
	// ExpireDue moves every non-expired message with expires_at <= now to EXPIRED.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// DeviceRepository provides access to mesh device nodes.
type DeviceRepository interface {
	// Create inserts a new node; duplicate device id yields errs.ErrAlreadyExists.
	Create(ctx context.Context, d *model.DeviceNode) error
	// GetByDeviceID loads a node by its hardware device id.
	GetByDeviceID(ctx context.Context, deviceID string) (*model.DeviceNode, error)
	// Heartbeat updates online flag and last-seen time.
	Heartbeat(ctx context.Context, deviceID string, online bool, at time.Time) error
	// SetPeers replaces the connected-peer set.
	SetPeers(ctx context.Context, deviceID string, peers []string) error
	// ListByPeer returns nodes that list peerID among their connected peers.
	ListByPeer(ctx context.Context, peerID string) ([]model.DeviceNode, error)
	// AdjustQueue adds delta to the pending-message queue size and returns the new size.
	AdjustQueue(ctx context.Context, deviceID string, delta int) (int, error)
}

// RouteRepository provides access to the append-only relay log.
type RouteRepository interface {
	// Append stores one hop; its hop count must exceed every earlier hop of the message.
	Append(ctx context.Context, r *model.MessageRoute) error
	// Relay atomically appends the next hop of a live message, assigning r.HopCount,
	// bumps its relay count and moves PENDING to DELIVERED. It returns the new relay count.
	// Missing messages yield errs.ErrNotFound; expired ones errs.ErrInvalidTransition.
	Relay(ctx context.Context, r *model.MessageRoute, now time.Time) (int, error)
	// ListByMessage returns every hop of a message in ascending hop order.
	ListByMessage(ctx context.Context, messageID string) ([]model.MessageRoute, error)
}

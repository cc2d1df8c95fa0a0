package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/and161185/sahaay-store/internal/errs"
	"github.com/and161185/sahaay-store/internal/model"
	"github.com/and161185/sahaay-store/internal/repository/postgres"
	"github.com/and161185/sahaay-store/internal/schema"
)

// Fixture identifiers. The user, node and message reference each other.
const (
	FixtureUserID    = "test-user-001"
	FixtureDeviceID  = "device-001"
	FixtureNodeID    = "node-001"
	FixtureMessageID = "emergency-001"
)

// FixtureTTL is how long the fixture distress message stays live.
const FixtureTTL = 6 * time.Hour

// Fixtures is the demo data set.
type Fixtures struct {
	User    model.User
	Node    model.DeviceNode
	Message model.DistressMessage
}

// NewFixtures builds the fixtures with timestamps taken from now.
func NewFixtures(now time.Time) Fixtures {
	loc := model.Location{Latitude: 40.7589, Longitude: -73.9851, Address: "Times Square, New York, NY"}
	userLoc := loc
	return Fixtures{
		User: model.User{
			ID:       FixtureUserID,
			Name:     "Emergency Test User",
			Email:    "emergency@test.com",
			Phone:    "+1-555-HELP",
			DeviceID: FixtureDeviceID,
			IsActive: true,
			LastSeen: now,
			Location: &userLoc,
		},
		Node: model.DeviceNode{
			ID:               FixtureNodeID,
			DeviceID:         FixtureDeviceID,
			UserID:           FixtureUserID,
			Location:         loc,
			IsOnline:         true,
			LastSeen:         now,
			ConnectedPeers:   []string{},
			MessageQueueSize: 1,
		},
		Message: model.DistressMessage{
			ID:              FixtureMessageID,
			SenderID:        FixtureUserID,
			MessageType:     model.MessageTypeMedical,
			UrgencyLevel:    model.UrgencyCritical,
			Content:         "Diabetic emergency - need insulin urgently! Person unconscious!",
			Location:        loc,
			Status:          model.StatusPending,
			CreatedAt:       now,
			ExpiresAt:       now.Add(FixtureTTL),
			RelayCount:      0,
			Acknowledgments: []model.Acknowledgment{},
		},
	}
}

// SeedEntry tells whether one fixture was written by this run.
type SeedEntry struct {
	Collection string
	ID         string
	Inserted   bool
}

// SeedReport summarises an EnsureSeedData run.
type SeedReport struct {
	Entries []SeedEntry
}

const (
	seedUserSQL = `
INSERT INTO users (id, name, email, phone, device_id, is_active, last_seen, latitude, longitude, address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING`
	seedNodeSQL = `
INSERT INTO device_nodes (id, device_id, user_id, latitude, longitude, address, is_online, last_seen, connected_peers, message_queue_size)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING`
	seedMessageSQL = `
INSERT INTO distress_messages (id, sender_id, message_type, urgency_level, content, latitude, longitude, address, status, created_at, expires_at, relay_count, acknowledgments)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, '[]'::jsonb)
ON CONFLICT (id) DO NOTHING`
)

// EnsureSeedData upserts the fixtures by id. Rerunning it leaves existing
// fixtures untouched; a clash on another unique column is errs.ErrAlreadyExists.
// Schema work done earlier is never rolled back.
func (p *Provisioner) EnsureSeedData(ctx context.Context) (SeedReport, error) {
	fx := NewFixtures(p.clock.Now())
	u, n, m := fx.User, fx.Node, fx.Message

	var rep SeedReport
	err := p.db.InTx(ctx, func(tx pgx.Tx) error {
		steps := []struct {
			table string
			id    string
			sql   string
			args  []any
		}{
			{schema.Users, u.ID, seedUserSQL, []any{
				u.ID, u.Name, u.Email, u.Phone, u.DeviceID, u.IsActive, u.LastSeen,
				u.Location.Latitude, u.Location.Longitude, u.Location.Address,
			}},
			{schema.DeviceNodes, n.ID, seedNodeSQL, []any{
				n.ID, n.DeviceID, n.UserID, n.Location.Latitude, n.Location.Longitude, n.Location.Address,
				n.IsOnline, n.LastSeen, n.ConnectedPeers, n.MessageQueueSize,
			}},
			{schema.DistressMessages, m.ID, seedMessageSQL, []any{
				m.ID, m.SenderID, string(m.MessageType), string(m.UrgencyLevel), m.Content,
				m.Location.Latitude, m.Location.Longitude, m.Location.Address,
				string(m.Status), m.CreatedAt, m.ExpiresAt, m.RelayCount,
			}},
		}
		rep.Entries = rep.Entries[:0]
		for _, s := range steps {
			tag, err := tx.Exec(ctx, s.sql, s.args...)
			if postgres.IsUniqueViolation(err) {
				return fmt.Errorf("seed %s/%s: %w (%s)", s.table, s.id, errs.ErrAlreadyExists, postgres.UniqueViolationDetail(err))
			}
			if err != nil {
				return fmt.Errorf("seed %s/%s: %w", s.table, s.id, err)
			}
			e := SeedEntry{Collection: s.table, ID: s.id, Inserted: tag.RowsAffected() == 1}
			p.log.Info("fixture", zap.String("table", e.Collection), zap.String("id", e.ID), zap.Bool("inserted", e.Inserted))
			rep.Entries = append(rep.Entries, e)
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}
	return rep, nil
}

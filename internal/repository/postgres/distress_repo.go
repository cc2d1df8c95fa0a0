package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/sahaay-store/internal/errs"
	"github.com/and161185/sahaay-store/internal/geo"
	"github.com/and161185/sahaay-store/internal/model"
	"github.com/and161185/sahaay-store/internal/repository"
)

// DistressRepo implements DistressRepository using PostgreSQL.
type DistressRepo struct{ db *DB }

// NewDistressRepo constructs a distress message repository.
func NewDistressRepo(db *DB) *DistressRepo { return &DistressRepo{db: db} }

const distressColumns = `id, sender_id, message_type, urgency_level, content, latitude, longitude, COALESCE(address, ''), status, created_at, expires_at, relay_count, acknowledgments`

// Create inserts a new distress message.
func (r *DistressRepo) Create(ctx context.Context, m *model.DistressMessage) error {
	const q = `
INSERT INTO distress_messages (id, sender_id, message_type, urgency_level, content, latitude, longitude, address, status, created_at, expires_at, relay_count, acknowledgments)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12, $13::jsonb)`
	acks, err := encodeAcks(m.Acknowledgments)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, q,
		m.ID, m.SenderID, string(m.MessageType), string(m.UrgencyLevel), m.Content,
		m.Location.Latitude, m.Location.Longitude, m.Location.Address,
		string(m.Status), m.CreatedAt, m.ExpiresAt, m.RelayCount, acks)
	if IsUniqueViolation(err) {
		return fmt.Errorf("distress message %s: %w", m.ID, errs.ErrAlreadyExists)
	}
	return err
}

// GetByID selects a message by ID.
func (r *DistressRepo) GetByID(ctx context.Context, id string) (*model.DistressMessage, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+distressColumns+` FROM distress_messages WHERE id=$1`, id)
	m, err := scanDistress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// ListBySender returns the sender's history, newest first.
func (r *DistressRepo) ListBySender(ctx context.Context, senderID string) ([]model.DistressMessage, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+distressColumns+` FROM distress_messages WHERE sender_id=$1 ORDER BY created_at DESC`, senderID)
	if err != nil {
		return nil, err
	}
	return collectDistress(rows)
}

// FindNearby narrows candidates with the bounding box and equality predicates
// covered by emergency_response_index, then applies the exact radius.
func (r *DistressRepo) FindNearby(ctx context.Context, q repository.NearbyQuery) ([]model.DistressMessage, error) {
	box := geo.BoundingBox(q.Center, q.RadiusKm)

	urg := make([]string, len(q.Urgencies))
	for i, u := range q.Urgencies {
		urg[i] = string(u)
	}
	st := make([]string, len(q.Statuses))
	for i, s := range q.Statuses {
		st[i] = string(s)
	}

	const sel = `
SELECT ` + distressColumns + `
FROM distress_messages
WHERE latitude BETWEEN $1 AND $2
  AND longitude BETWEEN $3 AND $4
  AND urgency_level = ANY($5)
  AND status = ANY($6)
  AND expires_at > $7
ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, sel, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon, urg, st, q.Now)
	if err != nil {
		return nil, err
	}
	all, err := collectDistress(rows)
	if err != nil {
		return nil, err
	}

	out := all[:0]
	for _, m := range all {
		p := geo.Point{Lat: m.Location.Latitude, Lon: m.Location.Longitude}
		if geo.Distance(q.Center, p) <= q.RadiusKm {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UrgencyLevel.Compare(out[j].UrgencyLevel) > 0
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Acknowledge appends ack and sets status ACKNOWLEDGED unless the message has expired.
func (r *DistressRepo) Acknowledge(ctx context.Context, id string, ack model.Acknowledgment) error {
	const upd = `
UPDATE distress_messages
SET acknowledgments = acknowledgments || $2::jsonb, status = 'ACKNOWLEDGED'
WHERE id = $1 AND status <> 'EXPIRED'`
	payload, err := encodeAcks([]model.Acknowledgment{ack})
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, upd, id, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.explainNoUpdate(ctx, id)
	}
	return nil
}

// MarkDelivered moves a PENDING message to DELIVERED.
func (r *DistressRepo) MarkDelivered(ctx context.Context, id string) error {
	const upd = `UPDATE distress_messages SET status = 'DELIVERED' WHERE id = $1 AND status = 'PENDING'`
	tag, err := r.db.Pool.Exec(ctx, upd, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.explainNoUpdate(ctx, id)
	}
	return nil
}

// IncrementRelay bumps relay_count by one.
func (r *DistressRepo) IncrementRelay(ctx context.Context, id string) (int, error) {
	const q = `UPDATE distress_messages SET relay_count = relay_count + 1 WHERE id = $1 RETURNING relay_count`
	var n int
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	return n, nil
}

// ExpireDue marks every overdue, not yet expired message as EXPIRED.
func (r *DistressRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE distress_messages SET status = 'EXPIRED' WHERE expires_at <= $1 AND status <> 'EXPIRED'`
	tag, err := r.db.Pool.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// explainNoUpdate tells a missing message apart from one whose status blocked the update.
func (r *DistressRepo) explainNoUpdate(ctx context.Context, id string) error {
	var status string
	if err := r.db.Pool.QueryRow(ctx, `SELECT status FROM distress_messages WHERE id=$1`, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	return fmt.Errorf("%w: message %s is %s", errs.ErrInvalidTransition, id, status)
}

func collectDistress(rows pgx.Rows) ([]model.DistressMessage, error) {
	defer rows.Close()

	var out []model.DistressMessage
	for rows.Next() {
		m, err := scanDistress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanDistress(row pgx.Row) (*model.DistressMessage, error) {
	var (
		m                     model.DistressMessage
		mtype, urgency, state string
		acks                  []byte
	)
	if err := row.Scan(
		&m.ID, &m.SenderID, &mtype, &urgency, &m.Content,
		&m.Location.Latitude, &m.Location.Longitude, &m.Location.Address,
		&state, &m.CreatedAt, &m.ExpiresAt, &m.RelayCount, &acks,
	); err != nil {
		return nil, err
	}
	m.MessageType = model.MessageType(mtype)
	m.UrgencyLevel = model.UrgencyLevel(urgency)
	m.Status = model.MessageStatus(state)
	if len(acks) > 0 {
		if err := json.Unmarshal(acks, &m.Acknowledgments); err != nil {
			return nil, fmt.Errorf("decode acknowledgments of %s: %w", m.ID, err)
		}
	}
	if m.Acknowledgments == nil {
		m.Acknowledgments = []model.Acknowledgment{}
	}
	return &m, nil
}

func encodeAcks(acks []model.Acknowledgment) (string, error) {
	if acks == nil {
		acks = []model.Acknowledgment{}
	}
	b, err := json.Marshal(acks)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/sahaay-store/internal/errs"
	"github.com/and161185/sahaay-store/internal/model"
)

// DeviceRepo implements DeviceRepository using PostgreSQL.
type DeviceRepo struct{ db *DB }

// NewDeviceRepo constructs a device node repository.
func NewDeviceRepo(db *DB) *DeviceRepo { return &DeviceRepo{db: db} }

const deviceColumns = `id, device_id, user_id, latitude, longitude, COALESCE(address, ''), is_online, last_seen, connected_peers, message_queue_size`

// Create inserts a new device node.
func (r *DeviceRepo) Create(ctx context.Context, d *model.DeviceNode) error {
	const q = `
INSERT INTO device_nodes (id, device_id, user_id, latitude, longitude, address, is_online, last_seen, connected_peers, message_queue_size)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)`
	_, err := r.db.Pool.Exec(ctx, q,
		d.ID, d.DeviceID, d.UserID, d.Location.Latitude, d.Location.Longitude, d.Location.Address,
		d.IsOnline, d.LastSeen, peersOrEmpty(d.ConnectedPeers), d.MessageQueueSize)
	if IsUniqueViolation(err) {
		return fmt.Errorf("device %s: %w (%s)", d.DeviceID, errs.ErrAlreadyExists, UniqueViolationDetail(err))
	}
	return err
}

// GetByDeviceID selects a node by hardware device id.
func (r *DeviceRepo) GetByDeviceID(ctx context.Context, deviceID string) (*model.DeviceNode, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM device_nodes WHERE device_id=$1`, deviceID)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// Heartbeat updates the online flag; last_seen never moves backwards.
func (r *DeviceRepo) Heartbeat(ctx context.Context, deviceID string, online bool, at time.Time) error {
	const q = `UPDATE device_nodes SET is_online=$2, last_seen=GREATEST(last_seen, $3) WHERE device_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, deviceID, online, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetPeers replaces the connected-peer set.
func (r *DeviceRepo) SetPeers(ctx context.Context, deviceID string, peers []string) error {
	const q = `UPDATE device_nodes SET connected_peers=$2 WHERE device_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, deviceID, peersOrEmpty(peers))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ListByPeer returns nodes directly connected to peerID.
func (r *DeviceRepo) ListByPeer(ctx context.Context, peerID string) ([]model.DeviceNode, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+deviceColumns+` FROM device_nodes WHERE connected_peers @> ARRAY[$1]::text[] ORDER BY device_id`, peerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DeviceNode
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// AdjustQueue applies delta to message_queue_size; the size never drops below zero.
func (r *DeviceRepo) AdjustQueue(ctx context.Context, deviceID string, delta int) (int, error) {
	const q = `
UPDATE device_nodes
SET message_queue_size = message_queue_size + $2
WHERE device_id = $1 AND message_queue_size + $2 >= 0
RETURNING message_queue_size`
	var size int
	err := r.db.Pool.QueryRow(ctx, q, deviceID, delta).Scan(&size)
	if err == nil {
		return size, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var cur int
	if err := r.db.Pool.QueryRow(ctx, `SELECT message_queue_size FROM device_nodes WHERE device_id=$1`, deviceID).Scan(&cur); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	return cur, fmt.Errorf("%w: queue of %s is %d, cannot apply %d", errs.ErrConflict, deviceID, cur, delta)
}

func scanDevice(row pgx.Row) (*model.DeviceNode, error) {
	var d model.DeviceNode
	if err := row.Scan(
		&d.ID, &d.DeviceID, &d.UserID,
		&d.Location.Latitude, &d.Location.Longitude, &d.Location.Address,
		&d.IsOnline, &d.LastSeen, &d.ConnectedPeers, &d.MessageQueueSize,
	); err != nil {
		return nil, err
	}
	if d.ConnectedPeers == nil {
		d.ConnectedPeers = []string{}
	}
	return &d, nil
}

func peersOrEmpty(p []string) []string {
	if p == nil {
		return []string{}
	}
	return p
}

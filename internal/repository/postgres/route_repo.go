package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/sahaay-store/internal/errs"
	"github.com/and161185/sahaay-store/internal/model"
)

// RouteRepo implements RouteRepository using PostgreSQL.
type RouteRepo struct{ db *DB }

// NewRouteRepo constructs a message route repository.
func NewRouteRepo(db *DB) *RouteRepo { return &RouteRepo{db: db} }

func ensureRouteID(rt *model.MessageRoute) error {
	if rt.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	rt.ID = id
	return nil
}

const (
	lastHopSQL   = `SELECT COALESCE(MAX(hop_count), -1) FROM message_routes WHERE message_id=$1`
	insertHopSQL = `
INSERT INTO message_routes (id, message_id, from_device_id, to_device_id, "timestamp", hop_count)
VALUES ($1, $2, $3, $4, $5, $6)`
)

// Relay records the next hop of a live message in one transaction: the message
// row is locked, rt.HopCount is set to the last hop + 1 (0 for the first), the
// route is inserted, relay_count is bumped and a PENDING message becomes DELIVERED.
// Nothing is written unless every step succeeds.
func (r *RouteRepo) Relay(ctx context.Context, rt *model.MessageRoute, now time.Time) (int, error) {
	if err := ensureRouteID(rt); err != nil {
		return 0, err
	}

	const msg = `SELECT status, expires_at FROM distress_messages WHERE id=$1 FOR UPDATE`
	const bump = `
UPDATE distress_messages
SET relay_count = relay_count + 1,
    status = CASE WHEN status = 'PENDING' THEN 'DELIVERED' ELSE status END
WHERE id = $1
RETURNING relay_count`

	var relays int
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		var (
			status  string
			expires time.Time
		)
		if err := tx.QueryRow(ctx, msg, rt.MessageID).Scan(&status, &expires); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		if model.MessageStatus(status).Terminal() || !now.Before(expires) {
			return fmt.Errorf("%w: message %s is %s", errs.ErrInvalidTransition, rt.MessageID, status)
		}

		var maxHop int
		if err := tx.QueryRow(ctx, lastHopSQL, rt.MessageID).Scan(&maxHop); err != nil {
			return err
		}
		rt.HopCount = maxHop + 1
		if _, err := tx.Exec(ctx, insertHopSQL, rt.ID, rt.MessageID, rt.FromDeviceID, rt.ToDeviceID, rt.Timestamp, rt.HopCount); err != nil {
			return fmt.Errorf("insert hop %d of %s: %w", rt.HopCount, rt.MessageID, err)
		}
		if err := tx.QueryRow(ctx, bump, rt.MessageID).Scan(&relays); err != nil {
			return fmt.Errorf("bump relay count of %s: %w", rt.MessageID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return relays, nil
}

// Append inserts one hop. A per-message advisory lock serialises writers so the
// hop-count check and the insert see the same chain.
func (r *RouteRepo) Append(ctx context.Context, rt *model.MessageRoute) error {
	if err := ensureRouteID(rt); err != nil {
		return err
	}

	const lock = `SELECT pg_advisory_xact_lock(hashtext($1))`

	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lock, rt.MessageID); err != nil {
			return err
		}
		var maxHop int
		if err := tx.QueryRow(ctx, lastHopSQL, rt.MessageID).Scan(&maxHop); err != nil {
			return err
		}
		if rt.HopCount <= maxHop {
			return fmt.Errorf("%w: message %s hop %d after %d", errs.ErrHopOrder, rt.MessageID, rt.HopCount, maxHop)
		}
		_, err := tx.Exec(ctx, insertHopSQL, rt.ID, rt.MessageID, rt.FromDeviceID, rt.ToDeviceID, rt.Timestamp, rt.HopCount)
		return err
	})
}

// ListByMessage returns the full route of a message ordered by hop.
func (r *RouteRepo) ListByMessage(ctx context.Context, messageID string) ([]model.MessageRoute, error) {
	const q = `
SELECT id, message_id, from_device_id, to_device_id, "timestamp", hop_count
FROM message_routes
WHERE message_id=$1
ORDER BY hop_count ASC`
	rows, err := r.db.Pool.Query(ctx, q, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MessageRoute
	for rows.Next() {
		var rt model.MessageRoute
		if err := rows.Scan(&rt.ID, &rt.MessageID, &rt.FromDeviceID, &rt.ToDeviceID, &rt.Timestamp, &rt.HopCount); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

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

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, COALESCE(phone, ''), device_id, is_active, last_seen, latitude, longitude, COALESCE(address, '')`

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, phone, device_id, is_active, last_seen, latitude, longitude, address)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, NULLIF($10, ''))`
	lat, lon, addr := userLocation(u.Location)
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Name, u.Email, u.Phone, u.DeviceID, u.IsActive, u.LastSeen, lat, lon, addr)
	if IsUniqueViolation(err) {
		return fmt.Errorf("user %s: %w (%s)", u.ID, errs.ErrAlreadyExists, UniqueViolationDetail(err))
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

// Touch updates the active flag and last-seen timestamp.
func (r *UserRepo) Touch(ctx context.Context, id string, active bool, at time.Time) error {
	const q = `UPDATE users SET is_active=$2, last_seen=GREATEST(last_seen, $3) WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, active, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	row := r.db.Pool.QueryRow(ctx, q, arg)
	var (
		u        model.User
		lat, lon *float64
		addr     string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.DeviceID, &u.IsActive, &u.LastSeen, &lat, &lon, &addr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if lat != nil && lon != nil {
		u.Location = &model.Location{Latitude: *lat, Longitude: *lon, Address: addr}
	}
	return &u, nil
}

func userLocation(l *model.Location) (lat, lon *float64, addr string) {
	if l == nil {
		return nil, nil, ""
	}
	la, lo := l.Latitude, l.Longitude
	return &la, &lo, l.Address
}

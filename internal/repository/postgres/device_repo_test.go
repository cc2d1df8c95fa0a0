package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/sahaay-store/internal/errs"
	"github.com/and161185/sahaay-store/internal/model"
)

var deviceCols = []string{"id", "device_id", "user_id", "latitude", "longitude", "address", "is_online", "last_seen", "connected_peers", "message_queue_size"}

func TestDeviceRepo_Create_OK_and_DuplicateDevice(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDeviceRepo(db)
	ctx := context.Background()

	seen := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d := &model.DeviceNode{
		ID: "node-001", DeviceID: "device-001", UserID: "test-user-001",
		Location: model.Location{Latitude: 40.7589, Longitude: -73.9851},
		IsOnline: true, LastSeen: seen, MessageQueueSize: 1,
	}

	mock.ExpectExec(`INSERT INTO device_nodes \(id, device_id, user_id, latitude, longitude, address, is_online, last_seen, connected_peers, message_queue_size\)`).
		WithArgs("node-001", "device-001", "test-user-001", 40.7589, -73.9851, "", true, seen, []string{}, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, d))

	other := *d
	other.ID = "node-002"
	mock.ExpectExec(`INSERT INTO device_nodes`).
		WithArgs("node-002", "device-001", "test-user-001", 40.7589, -73.9851, "", true, seen, []string{}, 1).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_device_nodes_device_id"})
	require.ErrorIs(t, r.Create(ctx, &other), errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepo_GetByDeviceID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDeviceRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`FROM device_nodes WHERE device_id=\$1`).
		WithArgs("device-001").
		WillReturnRows(pgxmock.NewRows(deviceCols).
			AddRow("node-001", "device-001", "test-user-001", 40.7589, -73.9851, "Times Square", true, time.Now(), []string{"device-002"}, 1))
	d, err := r.GetByDeviceID(ctx, "device-001")
	require.NoError(t, err)
	require.Equal(t, "test-user-001", d.UserID)
	require.Equal(t, []string{"device-002"}, d.ConnectedPeers)

	mock.ExpectQuery(`FROM device_nodes WHERE device_id=\$1`).
		WithArgs("device-404").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByDeviceID(ctx, "device-404")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepo_HeartbeatAndPeers(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDeviceRepo(db)
	ctx := context.Background()
	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE device_nodes SET is_online=\$2, last_seen=GREATEST\(last_seen, \$3\) WHERE device_id=\$1`).
		WithArgs("device-001", true, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.Heartbeat(ctx, "device-001", true, at))

	mock.ExpectExec(`UPDATE device_nodes SET connected_peers=\$2 WHERE device_id=\$1`).
		WithArgs("device-001", []string{}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.SetPeers(ctx, "device-001", nil))

	mock.ExpectExec(`UPDATE device_nodes SET connected_peers`).
		WithArgs("device-404", []string{"device-001"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.SetPeers(ctx, "device-404", []string{"device-001"}), errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepo_ListByPeer(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDeviceRepo(db)

	mock.ExpectQuery(`WHERE connected_peers @> ARRAY\[\$1\]::text\[\] ORDER BY device_id`).
		WithArgs("device-001").
		WillReturnRows(pgxmock.NewRows(deviceCols).
			AddRow("node-002", "device-002", "u-2", 1.0, 1.0, "", true, time.Now(), []string{"device-001"}, 0).
			AddRow("node-003", "device-003", "u-3", 1.0, 1.0, "", false, time.Now(), []string{"device-001", "device-002"}, 2))
	out, err := r.ListByPeer(context.Background(), "device-001")
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "device-003", out[1].DeviceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepo_AdjustQueue(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDeviceRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SET message_queue_size = message_queue_size \+ \$2 WHERE device_id = \$1 AND message_queue_size \+ \$2 >= 0 RETURNING message_queue_size`).
		WithArgs("device-001", 2).
		WillReturnRows(pgxmock.NewRows([]string{"message_queue_size"}).AddRow(3))
	n, err := r.AdjustQueue(ctx, "device-001", 2)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// Underflow: guarded update matches nothing, current size is reported.
	mock.ExpectQuery(`SET message_queue_size = message_queue_size`).
		WithArgs("device-001", -5).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT message_queue_size FROM device_nodes WHERE device_id=\$1`).
		WithArgs("device-001").
		WillReturnRows(pgxmock.NewRows([]string{"message_queue_size"}).AddRow(3))
	n, err = r.AdjustQueue(ctx, "device-001", -5)
	require.ErrorIs(t, err, errs.ErrConflict)
	require.Equal(t, 3, n)

	mock.ExpectQuery(`SET message_queue_size = message_queue_size`).
		WithArgs("device-404", 1).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT message_queue_size FROM device_nodes`).
		WithArgs("device-404").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.AdjustQueue(ctx, "device-404", 1)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

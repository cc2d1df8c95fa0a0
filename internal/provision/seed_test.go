package provision

import (
	"bytes"
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/sahaay-store/internal/errs"
	"github.com/and161185/sahaay-store/internal/model"
	"github.com/and161185/sahaay-store/internal/schema"
)

func TestNewFixtures_CrossReferencesAndExpiry(t *testing.T) {
	t.Parallel()

	fx := NewFixtures(fixedNow)

	require.Equal(t, fx.User.ID, fx.Message.SenderID)
	require.Equal(t, fx.User.ID, fx.Node.UserID)
	require.Equal(t, fx.User.DeviceID, fx.Node.DeviceID)

	require.True(t, fx.Message.ExpiresAt.After(fx.Message.CreatedAt))
	require.Equal(t, FixtureTTL, fx.Message.ExpiresAt.Sub(fx.Message.CreatedAt))
	require.Equal(t, fixedNow, fx.Message.CreatedAt)

	require.Equal(t, model.UrgencyCritical, fx.Message.UrgencyLevel)
	require.Equal(t, model.StatusPending, fx.Message.Status)
	require.Equal(t, model.MessageTypeMedical, fx.Message.MessageType)
	require.Equal(t, FixtureMessageID, fx.Message.ID)
	require.NotNil(t, fx.User.Location)
}

func expectSeed(mock pgxmock.PgxPoolIface, affected int64) {
	fx := NewFixtures(fixedNow)
	u, n, m := fx.User, fx.Node, fx.Message

	mock.ExpectExec(`INSERT INTO users .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(u.ID, u.Name, u.Email, u.Phone, u.DeviceID, u.IsActive, u.LastSeen,
			u.Location.Latitude, u.Location.Longitude, u.Location.Address).
		WillReturnResult(pgxmock.NewResult("INSERT", affected))
	mock.ExpectExec(`INSERT INTO device_nodes .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(n.ID, n.DeviceID, n.UserID, n.Location.Latitude, n.Location.Longitude, n.Location.Address,
			n.IsOnline, n.LastSeen, []string{}, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", affected))
	mock.ExpectExec(`INSERT INTO distress_messages .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(m.ID, m.SenderID, "MEDICAL", "CRITICAL", m.Content,
			m.Location.Latitude, m.Location.Longitude, m.Location.Address,
			"PENDING", fixedNow, fixedNow.Add(FixtureTTL), 0).
		WillReturnResult(pgxmock.NewResult("INSERT", affected))
}

func TestEnsureSeedData_InsertsThenNoOp(t *testing.T) {
	p, mock := newProvisioner(t, &fakeMigrator{})
	defer mock.Close()
	ctx := context.Background()

	mock.ExpectBegin()
	expectSeed(mock, 1)
	mock.ExpectCommit()

	rep, err := p.EnsureSeedData(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Entries, 3)
	require.Equal(t, schema.Users, rep.Entries[0].Collection)
	require.Equal(t, schema.DeviceNodes, rep.Entries[1].Collection)
	require.Equal(t, schema.DistressMessages, rep.Entries[2].Collection)
	for _, e := range rep.Entries {
		require.True(t, e.Inserted, e.ID)
	}

	mock.ExpectBegin()
	expectSeed(mock, 0)
	mock.ExpectCommit()

	rep, err = p.EnsureSeedData(ctx)
	require.NoError(t, err)
	for _, e := range rep.Entries {
		require.False(t, e.Inserted, e.ID)
	}

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSeedData_ForeignOwnerOfFixtureEmail(t *testing.T) {
	p, mock := newProvisioner(t, &fakeMigrator{})
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(FixtureUserID, pgxmock.AnyArg(), "emergency@test.com", pgxmock.AnyArg(), FixtureDeviceID,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})
	mock.ExpectRollback()

	_, err := p.EnsureSeedData(context.Background())
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	require.Contains(t, err.Error(), "users/test-user-001")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_And_WriteReport(t *testing.T) {
	p, mock := newProvisioner(t, &fakeMigrator{})
	defer mock.Close()

	mock.ExpectQuery(`SELECT current_database\(\)`).
		WillReturnRows(pgxmock.NewRows([]string{"current_database"}).AddRow("sahaay"))
	for _, c := range schema.Catalog() {
		mock.ExpectQuery(`SELECT count\(\*\) FROM "` + c.Name + `"`).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
		mock.ExpectQuery(`SELECT count\(\*\) FROM pg_indexes WHERE schemaname = current_schema\(\) AND tablename = \$1`).
			WithArgs(c.Name).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(len(c.Indexes) + 1)))
	}

	sum, err := p.Stats(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, "sahaay", sum.Database)
	require.Len(t, sum.Collections, 4)
	require.Equal(t, int64(9), sum.Collections[1].Indexes)

	rep := Report{Migrations: []int64{1}, Collections: []CollectionReport{
		{Name: schema.Users, Indexes: []IndexReport{{Outcome: IndexCreated}, {Outcome: IndexExisting}}},
	}}
	seed := &SeedReport{Entries: []SeedEntry{
		{Collection: schema.Users, ID: FixtureUserID, Inserted: true},
		{Collection: schema.DistressMessages, ID: FixtureMessageID},
	}}

	var out bytes.Buffer
	require.NoError(t, WriteReport(&out, rep, seed, sum))
	text := out.String()
	require.Contains(t, text, "Database: sahaay")
	require.Contains(t, text, "Migrations applied: 1")
	require.Contains(t, text, "Indexes created: 1, already present: 1")
	require.Contains(t, text, "users/test-user-001: inserted")
	require.Contains(t, text, "distress_messages/emergency-001: already present")
	require.Regexp(t, `distress_messages\s+rows=1\s+indexes=9`, text)

	out.Reset()
	require.NoError(t, WriteReport(&out, rep, nil, sum))
	require.NotContains(t, out.String(), "Fixtures:")
}

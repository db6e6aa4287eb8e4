package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/optica-notifier/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func sourced(st model.SourceType, id int64) (*model.SourceType, *int64) {
	return &st, &id
}

func TestAlertsRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertsRepository(db)

	st, sid := sourced(model.SourceAppointment, 12)
	a := &model.Alert{
		ClientID:    3,
		Kind:        model.KindReminderAppointment,
		Channel:     model.ChannelEmail,
		Message:     "Recordatorio",
		ScheduledAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		SourceType:  st,
		SourceID:    sid,
	}

	mock.ExpectExec(`INSERT INTO alerts`).
		WithArgs(int64(3), "ReminderAppointment", "Email", "Recordatorio", sqlmock.AnyArg(), "appointment", int64(12)).
		WillReturnResult(sqlmock.NewResult(41, 1))

	created, err := repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(41), a.ID)
	assert.False(t, a.Sent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertsRepository_CreateDuplicateIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertsRepository(db)

	st, sid := sourced(model.SourceWarranty, 5)
	a := &model.Alert{ClientID: 3, Kind: model.KindWarrantyExpiry, Channel: model.ChannelSMS, SourceType: st, SourceID: sid}

	mock.ExpectExec(`ON DUPLICATE KEY UPDATE id = id`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Zero(t, a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertsRepository_ExistsDuplicate(t *testing.T) {
	q := DedupeQuery{
		ClientID:   3,
		Kind:       model.KindWarrantyExpiry,
		SourceType: model.SourceWarranty,
		SourceID:   5,
		From:       time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
	}

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT 1\s+FROM alerts`).
			WithArgs(int64(3), "WarrantyExpiry", "warranty", int64(5), q.From, q.To).
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		ok, err := NewAlertsRepository(db).ExistsDuplicate(context.Background(), q)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("none", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT 1\s+FROM alerts`).
			WillReturnRows(sqlmock.NewRows([]string{"1"}))

		ok, err := NewAlertsRepository(db).ExistsDuplicate(context.Background(), q)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("error", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT 1\s+FROM alerts`).WillReturnError(errors.New("boom"))

		_, err := NewAlertsRepository(db).ExistsDuplicate(context.Background(), q)
		assert.EqualError(t, err, "boom")
	})
}

func TestAlertsRepository_ListPending(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	email := "ana@example.com"

	rows := sqlmock.NewRows([]string{
		"id", "client_id", "kind", "channel", "message", "scheduled_at", "sent",
		"source_type", "source_id", "created_at", "client_name", "email", "phone",
	}).
		AddRow(1, 3, "ReminderAppointment", "Email", "hola", now.Add(-time.Hour), false, "appointment", 12, now, "Ana", email, nil).
		AddRow(2, 4, "CampaignAnnouncement", "SMS", "operativo", now, false, nil, nil, now, "Luis", nil, "+56911112222")

	mock.ExpectQuery(`WHERE a.sent = 0\s+AND a.scheduled_at <= \?`).
		WithArgs(now, 50).
		WillReturnRows(rows)

	got, err := NewAlertsRepository(db).ListPending(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, model.KindReminderAppointment, got[0].Kind)
	assert.Equal(t, "Ana", got[0].ClientName)
	require.NotNil(t, got[0].SourceType)
	assert.Equal(t, model.SourceAppointment, *got[0].SourceType)
	assert.Equal(t, email, *got[0].Email)
	assert.Nil(t, got[0].Phone)

	assert.Equal(t, model.ChannelSMS, got[1].Channel)
	assert.Nil(t, got[1].SourceType)
	assert.Nil(t, got[1].SourceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertsRepository_MarkSent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertsRepository(db)

	mock.ExpectExec(`UPDATE alerts SET sent = 1 WHERE id = \? AND sent = 0`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE alerts SET sent = 1`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkSent(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkSent(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, ok, "second mark is a no-op")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertsRepository_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertsRepository(db)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE a.id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "client_id", "kind", "channel", "message", "scheduled_at", "sent",
			"source_type", "source_id", "created_at",
			"client.id", "client.rut", "client.name", "client.email", "client.phone",
		}).AddRow(7, 3, "WarrantyExpiry", "Email", "garantia", now, true, "warranty", 5, now,
			3, "11.111.111-1", "Ana", "ana@example.com", nil))

	mock.ExpectQuery(`WHERE a.id = \?`).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	a, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.True(t, a.Sent)
	assert.Equal(t, "Ana", a.Client.Name)
	assert.Equal(t, "11.111.111-1", a.Client.RUT)

	missing, err := repo.Get(context.Background(), 8)
	require.NoError(t, err)
	assert.Nil(t, missing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertsRepository_ListFilters(t *testing.T) {
	db, mock := newMockDB(t)
	pending := false
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE a.client_id = \? AND a.kind = \? AND a.sent = \? AND a.scheduled_at >= \? ORDER BY a.scheduled_at DESC LIMIT \?`).
		WithArgs(int64(3), "WarrantyExpiry", false, from, MaxListAlerts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := NewAlertsRepository(db).List(context.Background(), AlertFilter{
		ClientID: 3,
		Kind:     model.KindWarrantyExpiry,
		Sent:     &pending,
		From:     &from,
		Limit:    5000,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertsRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertsRepository(db)

	mock.ExpectExec(`DELETE FROM alerts WHERE id = \?`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM alerts WHERE id = \?`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Delete(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

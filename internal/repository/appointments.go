package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/optica-notifier/internal/model"
)

type AppointmentsRepository interface {
	ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]model.UpcomingAppointment, error)
}

type AppointmentsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAppointmentsRepository(db *sqlx.DB) *AppointmentsRepositoryImpl {
	return &AppointmentsRepositoryImpl{db: db}
}

var _ AppointmentsRepository = (*AppointmentsRepositoryImpl)(nil)

// ListConfirmedBetween returns confirmed appointments with scheduled_at in [from, to].
// Location comes from the campaign the appointment was booked under, if any.
func (r *AppointmentsRepositoryImpl) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]model.UpcomingAppointment, error) {
	var rows []model.UpcomingAppointment
	err := r.db.SelectContext(ctx, &rows, `
		SELECT ap.id, ap.client_id, ap.scheduled_at,
		       cp.location,
		       c.name AS client_name, c.email, c.phone
		  FROM appointments ap
		  JOIN clients c ON c.id = ap.client_id
		  LEFT JOIN campaigns cp ON cp.id = ap.campaign_id
		 WHERE ap.status = ?
		   AND ap.scheduled_at BETWEEN ? AND ?
		 ORDER BY ap.scheduled_at, ap.id
	`, model.AppointmentStatusConfirmed, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	return rows, nil
}

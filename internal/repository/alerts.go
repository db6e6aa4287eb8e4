package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/optica-notifier/internal/model"
)

// MaxListAlerts caps admin listings.
const MaxListAlerts = 200

// AlertsRepository defines persistence for the alerts table.
type AlertsRepository interface {
	// Create inserts a new unsent alert and sets a.ID. It returns false without error
	// when an alert for the same (client, source) already exists.
	Create(ctx context.Context, a *model.Alert) (bool, error)
	ExistsDuplicate(ctx context.Context, q DedupeQuery) (bool, error)
	ListPending(ctx context.Context, now time.Time, limit int) ([]model.PendingAlert, error)
	MarkSent(ctx context.Context, id int64) (bool, error)
	Get(ctx context.Context, id int64) (*model.AlertWithClient, error)
	List(ctx context.Context, f AlertFilter) ([]model.AlertWithClient, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// DedupeQuery matches an existing alert of Kind for ClientID that either points at
// the same source row or is scheduled inside [From, To].
type DedupeQuery struct {
	ClientID   int64
	Kind       model.Kind
	SourceType model.SourceType
	SourceID   int64
	From       time.Time
	To         time.Time
}

// AlertFilter narrows admin listings. Zero values mean "any".
type AlertFilter struct {
	ClientID int64
	Kind     model.Kind
	Channel  model.Channel
	Sent     *bool
	From     *time.Time
	To       *time.Time
	Limit    int
}

type AlertsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAlertsRepository(db *sqlx.DB) *AlertsRepositoryImpl {
	return &AlertsRepositoryImpl{db: db}
}

var _ AlertsRepository = (*AlertsRepositoryImpl)(nil)

const alertColumns = `a.id, a.client_id, a.kind, a.channel, a.message, a.scheduled_at,
		       a.sent, a.source_type, a.source_id, a.created_at`

const alertWithClientColumns = alertColumns + `,
		       c.id AS ` + "`client.id`" + `, c.rut AS ` + "`client.rut`" + `,
		       c.name AS ` + "`client.name`" + `, c.email AS ` + "`client.email`" + `,
		       c.phone AS ` + "`client.phone`"

// Create relies on uk_alerts_source(client_id, source_type, source_id): a duplicate
// sourced insert is a no-op and reports zero affected rows.
func (r *AlertsRepositoryImpl) Create(ctx context.Context, a *model.Alert) (bool, error) {
	const q = `
		INSERT INTO alerts
		    (client_id, kind, channel, message, scheduled_at, sent, source_type, source_id, created_at)
		VALUES
		    (?,         ?,    ?,       ?,       ?,            0,    ?,           ?,         NOW())
		ON DUPLICATE KEY UPDATE id = id
	`
	res, err := r.db.ExecContext(ctx, q,
		a.ClientID, a.Kind.String(), a.Channel.String(), a.Message, a.ScheduledAt.UTC(),
		a.SourceType, a.SourceID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	a.ID = id
	a.Sent = false
	return true, nil
}

// ExistsDuplicate checks if a matching alert already exists.
func (r *AlertsRepositoryImpl) ExistsDuplicate(ctx context.Context, dq DedupeQuery) (bool, error) {
	var one int
	err := r.db.QueryRowxContext(ctx, `
		SELECT 1
		  FROM alerts
		 WHERE client_id = ?
		   AND kind = ?
		   AND ((source_type = ? AND source_id = ?) OR scheduled_at BETWEEN ? AND ?)
		 LIMIT 1
	`, dq.ClientID, dq.Kind.String(), string(dq.SourceType), dq.SourceID, dq.From.UTC(), dq.To.UTC()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListPending returns up to limit unsent alerts due at now, oldest first, with client contacts.
func (r *AlertsRepositoryImpl) ListPending(ctx context.Context, now time.Time, limit int) ([]model.PendingAlert, error) {
	q := `
		SELECT ` + alertColumns + `,
		       c.name AS client_name, c.email, c.phone
		  FROM alerts a
		  JOIN clients c ON c.id = a.client_id
		 WHERE a.sent = 0
		   AND a.scheduled_at <= ?
		 ORDER BY a.scheduled_at, a.id
		 LIMIT ?
	`
	var rows []model.PendingAlert
	if err := r.db.SelectContext(ctx, &rows, q, now.UTC(), limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSent flips sent to 1. It never clears the flag; false means the row was
// already sent or no longer exists.
func (r *AlertsRepositoryImpl) MarkSent(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE alerts SET sent = 1 WHERE id = ? AND sent = 0`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *AlertsRepositoryImpl) Get(ctx context.Context, id int64) (*model.AlertWithClient, error) {
	var a model.AlertWithClient
	err := r.db.GetContext(ctx, &a, `
		SELECT `+alertWithClientColumns+`
		  FROM alerts a
		  JOIN clients c ON c.id = a.client_id
		 WHERE a.id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns alerts newest-scheduled first.
func (r *AlertsRepositoryImpl) List(ctx context.Context, f AlertFilter) ([]model.AlertWithClient, error) {
	if f.Limit <= 0 || f.Limit > MaxListAlerts {
		f.Limit = MaxListAlerts
	}

	var (
		where []string
		args  []any
	)
	if f.ClientID > 0 {
		where = append(where, "a.client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.Kind != "" {
		where = append(where, "a.kind = ?")
		args = append(args, f.Kind.String())
	}
	if f.Channel != "" {
		where = append(where, "a.channel = ?")
		args = append(args, f.Channel.String())
	}
	if f.Sent != nil {
		where = append(where, "a.sent = ?")
		args = append(args, *f.Sent)
	}
	if f.From != nil {
		where = append(where, "a.scheduled_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "a.scheduled_at <= ?")
		args = append(args, f.To.UTC())
	}

	q := `SELECT ` + alertWithClientColumns + ` FROM alerts a JOIN clients c ON c.id = a.client_id`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY a.scheduled_at DESC LIMIT ?"
	args = append(args, f.Limit)

	var rows []model.AlertWithClient
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AlertsRepositoryImpl) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

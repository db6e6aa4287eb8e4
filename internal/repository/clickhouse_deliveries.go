package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/optica-notifier/internal/model"
)

// DeliveryFilter narrows the audit listing. Zero values mean "any".
type DeliveryFilter struct {
	AlertID  int64
	ClientID int64
	Channel  model.Channel
	Since    time.Time
	Limit    int
	Offset   int
}

// CHDeliveriesRepository stores and lists per-channel delivery attempts in ClickHouse.
type CHDeliveriesRepository interface {
	InsertBatch(ctx context.Context, ds []model.Delivery) error
	List(ctx context.Context, f DeliveryFilter) ([]model.Delivery, error)
}

type chDeliveriesRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHDeliveriesRepository(ch *sqlx.DB) CHDeliveriesRepository {
	return &chDeliveriesRepository{ch: ch}
}

// InsertBatch sends all rows as one ClickHouse block; clickhouse-go batches
// prepared inserts inside a transaction and flushes them on commit.
func (r *chDeliveriesRepository) InsertBatch(ctx context.Context, ds []model.Delivery) error {
	if len(ds) == 0 {
		return nil
	}
	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO optica.alert_deliveries
		    (id, run_id, alert_id, client_id, kind, channel, delivered, error, attempted_at)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range ds {
		if _, err := stmt.ExecContext(ctx,
			d.ID, d.RunID, d.AlertID, d.ClientID, d.Kind.String(), d.Channel.String(),
			d.Delivered, d.Error, d.AttemptedAt.UTC(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *chDeliveriesRepository) List(ctx context.Context, f DeliveryFilter) ([]model.Delivery, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `
		SELECT id, run_id, alert_id, client_id, kind, channel, delivered, error, attempted_at
		FROM optica.alert_deliveries
		WHERE 1 = 1
	`
	var args []any

	if f.AlertID > 0 {
		q += " AND alert_id = ?"
		args = append(args, f.AlertID)
	}
	if f.ClientID > 0 {
		q += " AND client_id = ?"
		args = append(args, f.ClientID)
	}
	if f.Channel != "" {
		q += " AND channel = ?"
		args = append(args, f.Channel.String())
	}
	if !f.Since.IsZero() {
		q += " AND attempted_at >= ?"
		args = append(args, f.Since.UTC())
	}

	q += " ORDER BY attempted_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	var rows []model.Delivery
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

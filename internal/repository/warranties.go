package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/optica-notifier/internal/model"
)

type WarrantiesRepository interface {
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]model.ExpiringWarranty, error)
}

type WarrantiesRepositoryImpl struct {
	db *sqlx.DB
}

func NewWarrantiesRepository(db *sqlx.DB) *WarrantiesRepositoryImpl {
	return &WarrantiesRepositoryImpl{db: db}
}

var _ WarrantiesRepository = (*WarrantiesRepositoryImpl)(nil)

// ListExpiringBetween resolves each warranty to its client through sale_items and sales.
func (r *WarrantiesRepositoryImpl) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]model.ExpiringWarranty, error) {
	var rows []model.ExpiringWarranty
	err := r.db.SelectContext(ctx, &rows, `
		SELECT w.id, w.start_date, w.end_date,
		       p.name AS product_name,
		       s.client_id,
		       c.name AS client_name, c.email, c.phone
		  FROM warranties w
		  JOIN sale_items si ON si.id = w.sale_item_id
		  JOIN sales s       ON s.id = si.sale_id
		  JOIN clients c     ON c.id = s.client_id
		  JOIN products p    ON p.id = si.product_id
		 WHERE w.end_date BETWEEN ? AND ?
		 ORDER BY w.end_date, w.id
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	return rows, nil
}

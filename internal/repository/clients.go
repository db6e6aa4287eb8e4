package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/optica-notifier/internal/model"
)

type ClientsRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Client, error)
	ListReachable(ctx context.Context) ([]model.Client, error)
}

type ClientsRepositoryImpl struct {
	db *sqlx.DB
}

func NewClientsRepository(db *sqlx.DB) *ClientsRepositoryImpl {
	return &ClientsRepositoryImpl{db: db}
}

var _ ClientsRepository = (*ClientsRepositoryImpl)(nil)

func (r *ClientsRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Client, error) {
	var c model.Client
	err := r.db.GetContext(ctx, &c, `
		SELECT id, rut, name, email, phone, created_at
		  FROM clients
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListReachable returns clients with a non-blank email or phone.
func (r *ClientsRepositoryImpl) ListReachable(ctx context.Context) ([]model.Client, error) {
	var rows []model.Client
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, rut, name, email, phone, created_at
		  FROM clients
		 WHERE (email IS NOT NULL AND TRIM(email) <> '')
		    OR (phone IS NOT NULL AND TRIM(phone) <> '')
		 ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

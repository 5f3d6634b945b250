package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-crypto-shop/internal/domain"
	"telegram-crypto-shop/internal/domain/model"
	"telegram-crypto-shop/internal/domain/ports/repository"
)

var _ repository.ItemRepository = (*PostgresItemRepo)(nil)

type PostgresItemRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresItemRepo(pool *pgxpool.Pool) *PostgresItemRepo {
	return &PostgresItemRepo{pool: pool}
}

func (r *PostgresItemRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Item, error) {
	const q = `
SELECT id, name, status, url, owner_id, publisher_id
  FROM items WHERE id=$1;
`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var it model.Item
	if err := row.Scan(&it.ID, &it.Name, &it.Status, &it.URL, &it.OwnerID, &it.PublisherID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

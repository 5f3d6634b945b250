package repository

import (
	"context"

	"telegram-crypto-shop/internal/domain/model"
)

// Items are read-only as far as the bot flows go; the catalog is seeded
// out of band.
type ItemRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Item, error)
}

package repository

import (
	"context"

	"telegram-crypto-shop/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.User, error)
	// UpdateLang sets the language preference for an existing user and
	// returns domain.ErrNotFound when no such user exists.
	UpdateLang(ctx context.Context, tx Tx, tgID int64, lang string) error
	CountUsers(ctx context.Context, tx Tx) (int, error)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-crypto-shop/internal/domain"
	"telegram-crypto-shop/internal/domain/model"
	"telegram-crypto-shop/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (
  telegram_id, is_bot, first_name, username, lang, created_at, last_seen_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (telegram_id) DO UPDATE SET
  is_bot=$2, first_name=$3, username=$4, lang=$5, last_seen_at=$7;
`
	if _, err := execSQL(ctx, r.pool, tx, q, u.TelegramID, u.IsBot, u.FirstName, u.Username, u.Lang, u.CreatedAt, u.LastSeenAt); err != nil {
		return fmt.Errorf("save user %d: %w", u.TelegramID, err)
	}
	return nil
}

func (r *PostgresUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	const q = `
SELECT telegram_id, is_bot, first_name, username, lang, created_at, last_seen_at
  FROM users WHERE telegram_id=$1;
`
	row, err := pickRow(ctx, r.pool, tx, q, tgID)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.TelegramID, &u.IsBot, &u.FirstName, &u.Username, &u.Lang, &u.CreatedAt, &u.LastSeenAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) UpdateLang(ctx context.Context, tx repository.Tx, tgID int64, lang string) error {
	const q = `UPDATE users SET lang=$2, last_seen_at=NOW() WHERE telegram_id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, tgID, lang)
	if err != nil {
		return fmt.Errorf("update lang for %d: %w", tgID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-crypto-shop/internal/domain"
	"telegram-crypto-shop/internal/domain/model"
	"telegram-crypto-shop/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*PostgresInvoiceRepo)(nil)

type PostgresInvoiceRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresInvoiceRepo(pool *pgxpool.Pool) *PostgresInvoiceRepo {
	return &PostgresInvoiceRepo{pool: pool}
}

func (r *PostgresInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	const q = `
INSERT INTO invoices (
  id, gateway_invoice_id, telegram_id, item_id, asset, amount, status, pay_url, created_at, paid_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  status=$7, paid_at=$10;
`
	if _, err := execSQL(ctx, r.pool, tx, q, inv.ID, inv.GatewayInvoiceID, inv.TelegramID, inv.ItemID, inv.Asset, inv.Amount, inv.Status, inv.PayURL, inv.CreatedAt, inv.PaidAt); err != nil {
		return fmt.Errorf("save invoice %s: %w", inv.ID, err)
	}
	return nil
}

func (r *PostgresInvoiceRepo) FindByGatewayID(ctx context.Context, tx repository.Tx, gatewayInvoiceID int64) (*model.Invoice, error) {
	const q = `
SELECT id, gateway_invoice_id, telegram_id, item_id, asset, amount, status, pay_url, created_at, paid_at
  FROM invoices WHERE gateway_invoice_id=$1;
`
	row, err := pickRow(ctx, r.pool, tx, q, gatewayInvoiceID)
	if err != nil {
		return nil, err
	}
	var inv model.Invoice
	if err := row.Scan(&inv.ID, &inv.GatewayInvoiceID, &inv.TelegramID, &inv.ItemID, &inv.Asset, &inv.Amount, &inv.Status, &inv.PayURL, &inv.CreatedAt, &inv.PaidAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// MarkPaid is status-guarded so a redelivered webhook update cannot apply the
// payment twice: only the first UPDATE touches a row.
func (r *PostgresInvoiceRepo) MarkPaid(ctx context.Context, tx repository.Tx, gatewayInvoiceID int64, paidAt time.Time) (bool, error) {
	const q = `
UPDATE invoices SET status=$2, paid_at=$3
 WHERE gateway_invoice_id=$1 AND status<>$2;
`
	tag, err := execSQL(ctx, r.pool, tx, q, gatewayInvoiceID, model.InvoiceStatusPaid, paidAt)
	if err != nil {
		return false, fmt.Errorf("mark invoice %d paid: %w", gatewayInvoiceID, err)
	}
	return tag.RowsAffected() > 0, nil
}

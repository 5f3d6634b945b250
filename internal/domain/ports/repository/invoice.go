package repository

import (
	"context"
	"time"

	"telegram-crypto-shop/internal/domain/model"
)

// -----------------------------
// Invoices
// -----------------------------

type InvoiceRepository interface {
	Save(ctx context.Context, tx Tx, inv *model.Invoice) error
	FindByGatewayID(ctx context.Context, tx Tx, gatewayInvoiceID int64) (*model.Invoice, error)
	// MarkPaid transitions an active invoice to paid. The returned bool is
	// false when the row was already paid, which is how at-least-once
	// webhook deliveries are deduplicated.
	MarkPaid(ctx context.Context, tx Tx, gatewayInvoiceID int64, paidAt time.Time) (bool, error)
}

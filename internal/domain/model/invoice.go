package model

import "time"

type InvoiceStatus string

const (
	InvoiceStatusActive InvoiceStatus = "active" // created on the gateway, awaiting payment
	InvoiceStatusPaid   InvoiceStatus = "paid"   // payment notification applied
)

// Invoice records a payment request created on the Crypto Pay gateway.
// The gateway owns expiry; we keep our own row so paid notifications can be
// applied exactly once and attributed to a buyer.
type Invoice struct {
	ID               string // UUID, our key
	GatewayInvoiceID int64  // invoice_id assigned by Crypto Pay, unique
	TelegramID       int64  // buyer
	ItemID           string
	Asset            string
	Amount           string // decimal string as the gateway reports it
	Status           InvoiceStatus
	PayURL           string
	CreatedAt        time.Time
	PaidAt           *time.Time
}

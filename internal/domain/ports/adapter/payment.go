package adapter

import (
	"context"
	"time"
)

// AccountInfo identifies the Crypto Pay application we are talking to.
type AccountInfo struct {
	AppID                    int64
	Name                     string
	PaymentProcessingBotName string
}

// Balance is one asset balance on the gateway account.
type Balance struct {
	Currency  string
	Available string
}

// PaidButton names recognized by the gateway for the post-payment button.
const (
	PaidButtonViewItem    = "viewItem"
	PaidButtonOpenChannel = "openChannel"
	PaidButtonOpenBot     = "openBot"
	PaidButtonCallback    = "callback"
)

// InvoiceSpec is the request shape for CreateInvoice.
type InvoiceSpec struct {
	Asset         string
	Amount        string
	Description   string
	HiddenMessage string // shown by the gateway after payment
	ExpiresIn     int    // seconds; gateway-enforced
	PaidButton    string // one of the PaidButton* names
	PaidButtonURL string
}

// GatewayInvoice is the gateway's view of a created invoice.
type GatewayInvoice struct {
	InvoiceID int64
	Status    string
	Asset     string
	Amount    string
	PayURL    string
	CreatedAt time.Time
}

// PaidNotification is delivered by the gateway when an invoice is paid.
// Delivery is at-least-once and unordered; consumers must deduplicate.
type PaidNotification struct {
	GatewayInvoiceID int64
	Asset            string
	Amount           string
	PaidAt           time.Time
}

// PaymentGateway is the hex port for the payment processor.
type PaymentGateway interface {
	Name() string
	// GetMe is a health/identity check; callers treat failure as non-fatal.
	GetMe(ctx context.Context) (*AccountInfo, error)
	GetBalances(ctx context.Context) ([]Balance, error)
	// CreateInvoice requests a new invoice; errors wrap domain.ErrGatewayFailed.
	CreateInvoice(ctx context.Context, spec InvoiceSpec) (*GatewayInvoice, error)
}

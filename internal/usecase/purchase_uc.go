package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-crypto-shop/internal/config"
	"telegram-crypto-shop/internal/domain"
	"telegram-crypto-shop/internal/domain/model"
	"telegram-crypto-shop/internal/domain/ports/adapter"
	"telegram-crypto-shop/internal/domain/ports/repository"
	"telegram-crypto-shop/internal/infra/i18n"
	"telegram-crypto-shop/internal/infra/logging"
	"telegram-crypto-shop/internal/infra/metrics"
)

// Compile-time check
var _ PurchaseUseCase = (*purchaseUC)(nil)

type PurchaseUseCase interface {
	// Buy creates a gateway invoice for the catalog item and persists our
	// own record of it. Gateway failures wrap domain.ErrGatewayFailed.
	Buy(ctx context.Context, tgID int64) (*model.Invoice, error)
	// MarkPaid applies a paid notification exactly once; the bool reports
	// whether this delivery transitioned the invoice (false = duplicate).
	MarkPaid(ctx context.Context, n adapter.PaidNotification) (bool, error)
}

type purchaseUC struct {
	invoices repository.InvoiceRepository
	items    repository.ItemRepository
	users    repository.UserRepository
	gateway  adapter.PaymentGateway
	sender   adapter.TelegramSender // attached after the bot is constructed
	tr       *i18n.Registry
	catalog  config.CatalogConfig
	log      *zerolog.Logger
}

func NewPurchaseUseCase(
	invoices repository.InvoiceRepository,
	items repository.ItemRepository,
	users repository.UserRepository,
	gateway adapter.PaymentGateway,
	tr *i18n.Registry,
	catalog config.CatalogConfig,
	logger *zerolog.Logger,
) *purchaseUC {
	return &purchaseUC{
		invoices: invoices,
		items:    items,
		users:    users,
		gateway:  gateway,
		tr:       tr,
		catalog:  catalog,
		log:      logger,
	}
}

// AttachSender wires the chat transport once it exists; paid confirmations
// are skipped while no sender is attached.
func (u *purchaseUC) AttachSender(s adapter.TelegramSender) { u.sender = s }

func (u *purchaseUC) Buy(ctx context.Context, tgID int64) (*model.Invoice, error) {
	defer logging.TraceDuration(u.log, "PurchaseUC.Buy")()

	itemURL := u.catalog.ItemURL
	if item, err := u.items.FindByID(ctx, repository.NoTX, u.catalog.ItemID); err == nil && item.URL != "" {
		itemURL = item.URL
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		// The catalog row is optional; anything worse than absence is logged.
		u.log.Warn().Err(err).Str("item_id", u.catalog.ItemID).Msg("catalog item lookup failed")
	}

	gi, err := u.gateway.CreateInvoice(ctx, adapter.InvoiceSpec{
		Asset:         u.catalog.Asset,
		Amount:        u.catalog.Amount,
		Description:   u.catalog.Description,
		HiddenMessage: u.catalog.HiddenMessage,
		ExpiresIn:     u.catalog.ExpiresIn,
		PaidButton:    adapter.PaidButtonViewItem,
		PaidButtonURL: itemURL,
	})
	if err != nil {
		return nil, err
	}

	inv := &model.Invoice{
		ID:               uuid.NewString(),
		GatewayInvoiceID: gi.InvoiceID,
		TelegramID:       tgID,
		ItemID:           u.catalog.ItemID,
		Asset:            gi.Asset,
		Amount:           gi.Amount,
		Status:           model.InvoiceStatusActive,
		PayURL:           gi.PayURL,
		CreatedAt:        gi.CreatedAt,
	}
	if err := u.invoices.Save(ctx, repository.NoTX, inv); err != nil {
		return nil, err
	}
	metrics.IncInvoiceCreated()
	u.log.Info().Int64("tg_id", tgID).Int64("invoice_id", gi.InvoiceID).Str("pay_url", gi.PayURL).Msg("invoice created")
	return inv, nil
}

func (u *purchaseUC) MarkPaid(ctx context.Context, n adapter.PaidNotification) (bool, error) {
	defer logging.TraceDuration(u.log, "PurchaseUC.MarkPaid")()

	inv, err := u.invoices.FindByGatewayID(ctx, repository.NoTX, n.GatewayInvoiceID)
	if err != nil {
		metrics.IncPayment("failed")
		return false, err
	}

	paidAt := n.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	applied, err := u.invoices.MarkPaid(ctx, repository.NoTX, n.GatewayInvoiceID, paidAt)
	if err != nil {
		metrics.IncPayment("failed")
		return false, err
	}
	if !applied {
		// At-least-once delivery from the gateway; nothing to re-apply.
		metrics.IncPayment("duplicate")
		u.log.Info().Int64("invoice_id", n.GatewayInvoiceID).Msg("duplicate paid notification ignored")
		return false, nil
	}

	metrics.IncPayment("applied")
	u.log.Info().Int64("invoice_id", n.GatewayInvoiceID).Int64("tg_id", inv.TelegramID).
		Str("asset", n.Asset).Str("amount", n.Amount).Msg("invoice paid")

	u.confirmToBuyer(ctx, inv)
	return true, nil
}

// confirmToBuyer sends a localized receipt message; failures are logged, the
// payment stays applied either way.
func (u *purchaseUC) confirmToBuyer(ctx context.Context, inv *model.Invoice) {
	if u.sender == nil {
		return
	}
	lang := u.tr.DefaultLang()
	if usr, err := u.users.FindByTelegramID(ctx, repository.NoTX, inv.TelegramID); err == nil {
		lang = usr.Lang
	}
	text := u.tr.ForLang(lang).T("payment_received")
	if err := u.sender.SendMessage(ctx, inv.TelegramID, text); err != nil {
		u.log.Warn().Err(err).Int64("tg_id", inv.TelegramID).Msg("paid confirmation send failed")
	}
}

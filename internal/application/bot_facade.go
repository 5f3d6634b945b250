package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-crypto-shop/internal/domain"
	"telegram-crypto-shop/internal/domain/ports/repository"
	"telegram-crypto-shop/internal/infra/i18n"
	"telegram-crypto-shop/internal/usecase"
)

// BotFacade composes usecases into high-level bot event handlers.
// The Telegram adapter forwards events here and renders the replies; the
// facade owns localization and the per-user conversation state so the
// transport layer stays dumb.
type BotFacade struct {
	Users     usecase.UserUseCase
	Purchases usecase.PurchaseUseCase
	States    repository.StateRepository

	tr  *i18n.Registry
	log *zerolog.Logger
}

func NewBotFacade(
	users usecase.UserUseCase,
	purchases usecase.PurchaseUseCase,
	states repository.StateRepository,
	tr *i18n.Registry,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		Users:     users,
		Purchases: purchases,
		States:    states,
		tr:        tr,
		log:       logger,
	}
}

// StartReply tells the adapter what to render after /start. Greet is true
// for first contact, which gets the full greeting + photo + action keyboard;
// returning users get the short text only.
type StartReply struct {
	Text  string
	Greet bool
}

// BuyReply carries the invoice link; PayURL is empty when invoice creation
// failed and Text already holds the user-visible failure message.
type BuyReply struct {
	Text        string
	PayURL      string
	ButtonLabel string
}

// SettingsReply carries the localized labels for the language keyboard.
type SettingsReply struct {
	Text        string
	CancelLabel string
}

// HandleStart registers the user on first contact and picks the reply shape.
func (b *BotFacade) HandleStart(ctx context.Context, p usecase.Profile) (*StartReply, error) {
	u, created, err := b.Users.RegisterOrFetch(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("register/fetch user: %w", err)
	}

	name := u.FirstName
	if name == "" {
		name = u.Username
	}
	t := b.tr.ForLang(u.Lang)
	if created {
		return &StartReply{Text: t.T("greeting", name), Greet: true}, nil
	}
	// The first bot version stayed silent for known users; a short
	// welcome-back is friendlier and makes /start observable either way.
	return &StartReply{Text: t.T("welcome_back", name), Greet: false}, nil
}

// HandleApprove and HandleDisapprove mirror the two mood buttons on the
// greeting keyboard. The replies are deliberately fixed.
func (b *BotFacade) HandleApprove() string    { return "Красава! Я тоже норм ☺" }
func (b *BotFacade) HandleDisapprove() string { return "Ну ты это там давай не раскисай" }

// HandleBuy creates an invoice for the catalog item. Gateway failures are
// absorbed here: the user gets the generic failure text and the conversation
// goes on.
func (b *BotFacade) HandleBuy(ctx context.Context, tgID int64) (*BuyReply, error) {
	t := b.translatorFor(ctx, tgID)

	inv, err := b.Purchases.Buy(ctx, tgID)
	if err != nil {
		b.log.Error().Err(err).Str("event", "buy").Int64("tg_id", tgID).Msg("invoice creation failed")
		return &BuyReply{Text: t.T("buy_failed")}, nil
	}
	return &BuyReply{
		Text:        t.T("buy_text"),
		PayURL:      inv.PayURL,
		ButtonLabel: t.T("buy_btn"),
	}, nil
}

// HandleSettings renders the language menu and marks the user as awaiting a
// locale choice.
func (b *BotFacade) HandleSettings(ctx context.Context, tgID int64) (*SettingsReply, error) {
	t := b.translatorFor(ctx, tgID)

	state := &repository.ConversationState{Step: repository.StepAwaitingLocale}
	if err := b.States.SetState(ctx, tgID, state); err != nil {
		// The keyboard still works without the stored state; a stale
		// callback is honored either way.
		b.log.Warn().Err(err).Int64("tg_id", tgID).Msg("set conversation state failed")
	}
	return &SettingsReply{
		Text:        t.T("settings"),
		CancelLabel: t.T("cancel"),
	}, nil
}

// HandleSetLocale updates the stored preference and confirms in the newly
// chosen language. Repeating the same choice is a no-op that still confirms.
func (b *BotFacade) HandleSetLocale(ctx context.Context, tgID int64, lang string) (string, error) {
	if !b.tr.Supported(lang) {
		return "", fmt.Errorf("%w: lang %q", domain.ErrInvalidArgument, lang)
	}
	if err := b.Users.SetLanguage(ctx, tgID, lang); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := b.States.ClearState(ctx, tgID); err != nil {
		b.log.Warn().Err(err).Int64("tg_id", tgID).Msg("clear conversation state failed")
	}
	return b.tr.ForLang(lang).T("lang_changed"), nil
}

// HandleCancelSettings dismisses the language menu without a reply.
func (b *BotFacade) HandleCancelSettings(ctx context.Context, tgID int64) error {
	return b.States.ClearState(ctx, tgID)
}

// translatorFor resolves the user's stored language, falling back to the
// default table for unknown users.
func (b *BotFacade) translatorFor(ctx context.Context, tgID int64) *i18n.Translator {
	u, err := b.Users.GetByTelegramID(ctx, tgID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			b.log.Warn().Err(err).Int64("tg_id", tgID).Msg("user lookup failed")
		}
		return b.tr.ForLang(b.tr.DefaultLang())
	}
	return b.tr.ForLang(u.Lang)
}

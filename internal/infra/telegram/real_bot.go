package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-crypto-shop/internal/application"
	"telegram-crypto-shop/internal/config"
	"telegram-crypto-shop/internal/domain/ports/adapter"
	"telegram-crypto-shop/internal/infra/logging"
	"telegram-crypto-shop/internal/infra/metrics"
	red "telegram-crypto-shop/internal/infra/redis"
	"telegram-crypto-shop/internal/usecase"
)

// Conversation is the slice of the application facade this adapter drives.
type Conversation interface {
	HandleStart(ctx context.Context, p usecase.Profile) (*application.StartReply, error)
	HandleApprove() string
	HandleDisapprove() string
	HandleBuy(ctx context.Context, tgID int64) (*application.BuyReply, error)
	HandleSettings(ctx context.Context, tgID int64) (*application.SettingsReply, error)
	HandleSetLocale(ctx context.Context, tgID int64, lang string) (string, error)
	HandleCancelSettings(ctx context.Context, tgID int64) error
}

// tgAPI is the part of tgbotapi.BotAPI used for sending and acknowledging.
// Narrowed out so handler paths can be exercised without a live bot.
type tgAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var _ adapter.TelegramSender = (*RealTelegramBotAdapter)(nil)

// RealTelegramBotAdapter uses tgbotapi to poll updates and delegates to the
// conversation facade.
type RealTelegramBotAdapter struct {
	bot         *tgbotapi.BotAPI
	api         tgAPI
	cfg         *config.Config
	conv        Conversation
	rateLimiter *red.RateLimiter
	log         *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg *config.Config, conv Conversation, rateLimiter *red.RateLimiter, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if conv == nil {
		return nil, errors.New("conversation facade is nil")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, err
	}

	workers := cfg.Bot.Workers
	if workers <= 0 {
		workers = 5
	}

	return &RealTelegramBotAdapter{
		bot:           bot,
		api:           bot,
		cfg:           cfg,
		conv:          conv,
		rateLimiter:   rateLimiter,
		log:           logger,
		updateWorkers: workers,
	}, nil
}

// Username reports the authorized bot account name.
func (r *RealTelegramBotAdapter) Username() string { return r.bot.Self.UserName }

// StartPolling begins polling Telegram for updates concurrently.
// It runs until ctx is canceled.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, up); err != nil {
						r.log.Error().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

// StopPolling stops the polling loop gracefully.
func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// ---- adapter.TelegramSender ----

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	msg := tgbotapi.NewMessage(tgID, text)
	_, err := r.api.Send(msg)
	return err
}

func (r *RealTelegramBotAdapter) SendHTML(ctx context.Context, tgID int64, html string) error {
	msg := tgbotapi.NewMessage(tgID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := r.api.Send(msg)
	return err
}

func (r *RealTelegramBotAdapter) SendPhoto(ctx context.Context, tgID int64, photoPath string, rows [][]adapter.InlineButton) error {
	photo := tgbotapi.NewPhoto(tgID, tgbotapi.FilePath(photoPath))
	if len(rows) > 0 {
		photo.ReplyMarkup = buildKeyboard(rows)
	}
	_, err := r.api.Send(photo)
	return err
}

func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	msg := tgbotapi.NewMessage(tgID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = buildKeyboard(rows)
	_, err := r.api.Send(msg)
	return err
}

// buildKeyboard maps port-level buttons onto tgbotapi markup. URL wins over
// callback data; a bare label falls back to itself as data.
func buildKeyboard(rows [][]adapter.InlineButton) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		out := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			var kb tgbotapi.InlineKeyboardButton
			switch {
			case btn.URL != "":
				kb = tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL)
			case btn.Data != "":
				kb = tgbotapi.NewInlineKeyboardButtonData(label, btn.Data)
			default:
				kb = tgbotapi.NewInlineKeyboardButtonData(label, label)
			}
			out = append(out, kb)
		}
		kbRows = append(kbRows, out)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}

// ---- update routing ----

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}

	if update.Message == nil {
		return nil
	}
	tgUser := update.Message.From
	if tgUser == nil {
		return nil
	}

	command := update.Message.Command()
	if command == "" {
		// Plain text outside a command is ignored by this shop bot.
		return nil
	}

	if !r.allow(ctx, tgUser.ID, "/"+command) {
		return r.SendMessage(ctx, tgUser.ID, "Rate limit exceeded. Please try again later.")
	}

	profile := usecase.Profile{
		TelegramID: tgUser.ID,
		IsBot:      tgUser.IsBot,
		FirstName:  tgUser.FirstName,
		Username:   tgUser.UserName,
		Lang:       tgUser.LanguageCode,
	}

	switch command {
	case "start":
		metrics.IncUpdate("start")
		return r.handleStart(ctx, profile)
	case "settings":
		metrics.IncUpdate("settings")
		return r.handleSettings(ctx, tgUser.ID)
	default:
		metrics.IncUpdate("unknown")
		return nil
	}
}

func (r *RealTelegramBotAdapter) handleStart(ctx context.Context, profile usecase.Profile) error {
	reply, err := r.conv.HandleStart(ctx, profile)
	if err != nil {
		logging.Event(r.log, "start", profile.TelegramID).Error().Err(err).Msg("start failed")
		return r.SendMessage(ctx, profile.TelegramID, "Failed to initialize user.")
	}
	if err := r.SendHTML(ctx, profile.TelegramID, reply.Text); err != nil {
		return err
	}
	if !reply.Greet {
		return nil
	}
	return r.SendPhoto(ctx, profile.TelegramID, r.cfg.Bot.PhotoPath, r.startKeyboard())
}

func (r *RealTelegramBotAdapter) handleSettings(ctx context.Context, tgID int64) error {
	reply, err := r.conv.HandleSettings(ctx, tgID)
	if err != nil {
		logging.Event(r.log, "settings", tgID).Error().Err(err).Msg("settings failed")
		return nil
	}
	rows := [][]adapter.InlineButton{{
		{Text: "Русский🇷🇺", Data: "ru"},
		{Text: "English🇬🇧", Data: "en"},
		{Text: reply.CancelLabel, Data: "lang_cancel"},
	}}
	return r.SendButtons(ctx, tgID, reply.Text, rows)
}

// startKeyboard is the action row shown under the greeting photo.
func (r *RealTelegramBotAdapter) startKeyboard() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{{
		{Text: "По кайфу!", Data: "good"},
		{Text: "Пойдет", Data: "bad"},
		{Text: "Buy", Data: "buy"},
		{Text: "View item", URL: r.cfg.Catalog.ItemURL},
	}}
}

type cbHandler func(ctx context.Context, tgID int64) error

func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"good": func(ctx context.Context, id int64) error {
			return r.SendMessage(ctx, id, r.conv.HandleApprove())
		},
		"bad": func(ctx context.Context, id int64) error {
			return r.SendMessage(ctx, id, r.conv.HandleDisapprove())
		},
		"buy": func(ctx context.Context, id int64) error {
			reply, err := r.conv.HandleBuy(ctx, id)
			if err != nil {
				return err
			}
			if reply.PayURL == "" {
				return r.SendMessage(ctx, id, reply.Text)
			}
			rows := [][]adapter.InlineButton{{{Text: reply.ButtonLabel, URL: reply.PayURL}}}
			return r.SendButtons(ctx, id, reply.Text, rows)
		},
		"ru":          func(ctx context.Context, id int64) error { return r.setLocale(ctx, id, "ru") },
		"en":          func(ctx context.Context, id int64) error { return r.setLocale(ctx, id, "en") },
		"lang_cancel": func(ctx context.Context, id int64) error { return r.conv.HandleCancelSettings(ctx, id) },
	}
}

func (r *RealTelegramBotAdapter) setLocale(ctx context.Context, tgID int64, lang string) error {
	text, err := r.conv.HandleSetLocale(ctx, tgID, lang)
	if err != nil {
		return err
	}
	return r.SendMessage(ctx, tgID, text)
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop the telegram spinner exactly once, whatever the handler does.
	defer func() { _, _ = r.api.Request(tgbotapi.NewCallback(query.ID, "")) }()

	tgID := query.From.ID
	data := strings.TrimSpace(query.Data)
	metrics.IncUpdate("cb:" + data)

	if !r.allow(ctx, tgID, "cb:"+data) {
		return r.SendMessage(ctx, tgID, "Rate limit exceeded. Please try again later.")
	}

	fn, ok := r.cbRoutes()[data]
	if !ok {
		r.log.Warn().Str("data", data).Int64("tg_id", tgID).Msg("unknown callback data")
		return nil
	}
	if err := fn(ctx, tgID); err != nil {
		logging.Event(r.log, "cb:"+data, tgID).Error().Err(err).Msg("callback handling failed")
	}
	return nil
}

func (r *RealTelegramBotAdapter) allow(ctx context.Context, tgID int64, event string) bool {
	if r.rateLimiter == nil {
		return true
	}
	allowed, err := r.rateLimiter.Allow(ctx, red.UserEventKey(tgID, event), 20, time.Minute)
	if err != nil {
		r.log.Warn().Err(err).Msg("rate limit check failed")
		return true
	}
	return allowed
}

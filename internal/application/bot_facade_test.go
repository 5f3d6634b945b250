//go:build !integration

package application_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"

	"telegram-crypto-shop/internal/application"
	"telegram-crypto-shop/internal/domain"
	"telegram-crypto-shop/internal/domain/model"
	"telegram-crypto-shop/internal/domain/ports/adapter"
	"telegram-crypto-shop/internal/domain/ports/repository"
	"telegram-crypto-shop/internal/infra/i18n"
	"telegram-crypto-shop/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func newTestRegistry(t *testing.T) *i18n.Registry {
	t.Helper()
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte(
			"greeting: \"Hello, %s!\"\n" +
				"welcome_back: \"Welcome back, %s!\"\n" +
				"buy_text: \"Pay here\"\n" +
				"buy_btn: \"Pay\"\n" +
				"buy_failed: \"Something went wrong!\"\n" +
				"settings: \"Choose language\"\n" +
				"cancel: \"Cancel\"\n" +
				"lang_changed: \"Language set to English\"\n")},
		"locales/ru.yaml": {Data: []byte(
			"greeting: \"Привет, %s!\"\n" +
				"welcome_back: \"С возвращением, %s!\"\n" +
				"buy_text: \"Оплати тут\"\n" +
				"buy_btn: \"Оплатить\"\n" +
				"buy_failed: \"Что-то пошло не так!\"\n" +
				"settings: \"Выбери язык\"\n" +
				"cancel: \"Отмена\"\n" +
				"lang_changed: \"Теперь говорим по-русски\"\n")},
	}
	reg, err := i18n.NewRegistry(fsys, []string{"en", "ru"}, "en")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

// mockUserUC keeps users in a map and mimics the register-once semantics.
type mockUserUC struct {
	mu    sync.Mutex
	users map[int64]*model.User

	registerErr error
	setLangErr  error
}

var _ usecase.UserUseCase = (*mockUserUC)(nil)

func newMockUserUC() *mockUserUC {
	return &mockUserUC{users: make(map[int64]*model.User)}
}

func (m *mockUserUC) RegisterOrFetch(ctx context.Context, p usecase.Profile) (*model.User, bool, error) {
	if m.registerErr != nil {
		return nil, false, m.registerErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[p.TelegramID]; ok {
		cp := *u
		return &cp, false, nil
	}
	lang := p.Lang
	if lang == "" {
		lang = "en"
	}
	u := &model.User{TelegramID: p.TelegramID, FirstName: p.FirstName, Username: p.Username, Lang: lang}
	m.users[p.TelegramID] = u
	cp := *u
	return &cp, true, nil
}

func (m *mockUserUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserUC) SetLanguage(ctx context.Context, tgID int64, lang string) error {
	if m.setLangErr != nil {
		return m.setLangErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Lang = lang
	return nil
}

func (m *mockUserUC) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

// mockPurchaseUC returns a canned invoice or a configured error.
type mockPurchaseUC struct {
	buyErr   error
	buyCalls int
}

var _ usecase.PurchaseUseCase = (*mockPurchaseUC)(nil)

func (m *mockPurchaseUC) Buy(ctx context.Context, tgID int64) (*model.Invoice, error) {
	m.buyCalls++
	if m.buyErr != nil {
		return nil, m.buyErr
	}
	return &model.Invoice{
		ID:               "uuid-1",
		GatewayInvoiceID: 555,
		TelegramID:       tgID,
		Status:           model.InvoiceStatusActive,
		PayURL:           "https://t.me/CryptoBot?start=IV555",
	}, nil
}

func (m *mockPurchaseUC) MarkPaid(ctx context.Context, n adapter.PaidNotification) (bool, error) {
	return false, errors.New("not used in facade tests")
}

// memStateRepo is an in-memory StateRepository.
type memStateRepo struct {
	mu     sync.Mutex
	states map[int64]*repository.ConversationState
}

var _ repository.StateRepository = (*memStateRepo)(nil)

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{states: make(map[int64]*repository.ConversationState)}
}

func (m *memStateRepo) SetState(ctx context.Context, tgID int64, state *repository.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[tgID] = state
	return nil
}

func (m *memStateRepo) GetState(ctx context.Context, tgID int64) (*repository.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[tgID]; ok {
		return s, nil
	}
	return &repository.ConversationState{Step: repository.StepIdle}, nil
}

func (m *memStateRepo) ClearState(ctx context.Context, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, tgID)
	return nil
}

type facadeDeps struct {
	users     *mockUserUC
	purchases *mockPurchaseUC
	states    *memStateRepo
	facade    *application.BotFacade
}

func newFacade(t *testing.T) *facadeDeps {
	d := &facadeDeps{
		users:     newMockUserUC(),
		purchases: &mockPurchaseUC{},
		states:    newMemStateRepo(),
	}
	d.facade = application.NewBotFacade(d.users, d.purchases, d.states, newTestRegistry(t), newTestLogger())
	return d
}

func TestBotFacade_HandleStart(t *testing.T) {
	ctx := context.Background()

	t.Run("first contact greets by name and asks for the keyboard", func(t *testing.T) {
		d := newFacade(t)

		reply, err := d.facade.HandleStart(ctx, usecase.Profile{TelegramID: 42, FirstName: "Ann", Username: "ann1", Lang: "en"})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if !reply.Greet {
			t.Error("first contact must get the full greeting")
		}
		if !strings.Contains(reply.Text, "Ann") {
			t.Errorf("greeting must address the user by name, got %q", reply.Text)
		}
		if n, _ := d.users.Count(ctx); n != 1 {
			t.Errorf("expected exactly one user record, got %d", n)
		}
	})

	t.Run("profile without a language falls back to the default table", func(t *testing.T) {
		d := newFacade(t)

		reply, err := d.facade.HandleStart(ctx, usecase.Profile{TelegramID: 7, FirstName: "Bo"})
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if !strings.HasPrefix(reply.Text, "Hello") {
			t.Errorf("expected the English greeting, got %q", reply.Text)
		}
	})

	t.Run("repeat start welcomes back without a new record", func(t *testing.T) {
		d := newFacade(t)

		if _, err := d.facade.HandleStart(ctx, usecase.Profile{TelegramID: 42, FirstName: "Ann", Lang: "en"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		reply, err := d.facade.HandleStart(ctx, usecase.Profile{TelegramID: 42, FirstName: "Ann", Lang: "en"})
		if err != nil {
			t.Fatalf("repeat start: %v", err)
		}
		if reply.Greet {
			t.Error("a known user must not get the full greeting again")
		}
		if !strings.Contains(reply.Text, "Welcome back") {
			t.Errorf("expected the welcome-back text, got %q", reply.Text)
		}
		if n, _ := d.users.Count(ctx); n != 1 {
			t.Errorf("expected one user record, got %d", n)
		}
	})

	t.Run("storage failure is reported", func(t *testing.T) {
		d := newFacade(t)
		d.users.registerErr = errors.New("db down")

		if _, err := d.facade.HandleStart(ctx, usecase.Profile{TelegramID: 42}); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestBotFacade_MoodButtons(t *testing.T) {
	d := newFacade(t)

	if got := d.facade.HandleApprove(); got != "Красава! Я тоже норм ☺" {
		t.Errorf("unexpected approve reply: %q", got)
	}
	if got := d.facade.HandleDisapprove(); got != "Ну ты это там давай не раскисай" {
		t.Errorf("unexpected disapprove reply: %q", got)
	}
}

func TestBotFacade_HandleBuy(t *testing.T) {
	ctx := context.Background()

	t.Run("successful buy carries the payment link", func(t *testing.T) {
		d := newFacade(t)
		if _, err := d.facade.HandleStart(ctx, usecase.Profile{TelegramID: 42, FirstName: "Ann", Lang: "en"}); err != nil {
			t.Fatalf("seed: %v", err)
		}

		reply, err := d.facade.HandleBuy(ctx, 42)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if reply.PayURL != "https://t.me/CryptoBot?start=IV555" {
			t.Errorf("unexpected pay url: %q", reply.PayURL)
		}
		if reply.Text != "Pay here" || reply.ButtonLabel != "Pay" {
			t.Errorf("unexpected localized labels: %q / %q", reply.Text, reply.ButtonLabel)
		}
	})

	t.Run("gateway failure turns into the generic failure text", func(t *testing.T) {
		d := newFacade(t)
		d.purchases.buyErr = domain.ErrGatewayFailed

		reply, err := d.facade.HandleBuy(ctx, 42)
		if err != nil {
			t.Fatalf("a failed buy must not fault the conversation, got: %v", err)
		}
		if reply.PayURL != "" {
			t.Errorf("no pay url may leak out of a failed buy, got %q", reply.PayURL)
		}
		if reply.Text != "Something went wrong!" {
			t.Errorf("expected the generic failure text, got %q", reply.Text)
		}
	})

	t.Run("failure text follows the user's language", func(t *testing.T) {
		d := newFacade(t)
		if _, err := d.facade.HandleStart(ctx, usecase.Profile{TelegramID: 42, FirstName: "Аня", Lang: "ru"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		d.purchases.buyErr = domain.ErrGatewayFailed

		reply, err := d.facade.HandleBuy(ctx, 42)
		if err != nil {
			t.Fatalf("buy: %v", err)
		}
		if reply.Text != "Что-то пошло не так!" {
			t.Errorf("expected the russian failure text, got %q", reply.Text)
		}
	})
}

func TestBotFacade_Settings(t *testing.T) {
	ctx := context.Background()

	t.Run("settings marks the user as awaiting a locale choice", func(t *testing.T) {
		d := newFacade(t)

		reply, err := d.facade.HandleSettings(ctx, 42)
		if err != nil {
			t.Fatalf("settings: %v", err)
		}
		if reply.Text != "Choose language" || reply.CancelLabel != "Cancel" {
			t.Errorf("unexpected labels: %+v", reply)
		}
		st, _ := d.states.GetState(ctx, 42)
		if st.Step != repository.StepAwaitingLocale {
			t.Errorf("expected awaiting-locale state, got %q", st.Step)
		}
	})

	t.Run("choosing russian confirms in russian and clears the state", func(t *testing.T) {
		d := newFacade(t)
		if _, err := d.facade.HandleStart(ctx, usecase.Profile{TelegramID: 42, FirstName: "Ann", Lang: "en"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if _, err := d.facade.HandleSettings(ctx, 42); err != nil {
			t.Fatalf("settings: %v", err)
		}

		text, err := d.facade.HandleSetLocale(ctx, 42, "ru")
		if err != nil {
			t.Fatalf("set locale: %v", err)
		}
		if text != "Теперь говорим по-русски" {
			t.Errorf("confirmation must be in the new language, got %q", text)
		}
		u, _ := d.users.GetByTelegramID(ctx, 42)
		if u.Lang != "ru" {
			t.Errorf("expected stored lang 'ru', got %q", u.Lang)
		}
		st, _ := d.states.GetState(ctx, 42)
		if st.Step != repository.StepIdle {
			t.Errorf("state must be cleared after the choice, got %q", st.Step)
		}
	})

	t.Run("repeating the same choice still confirms", func(t *testing.T) {
		d := newFacade(t)
		if _, err := d.facade.HandleStart(ctx, usecase.Profile{TelegramID: 42, Lang: "ru"}); err != nil {
			t.Fatalf("seed: %v", err)
		}

		text, err := d.facade.HandleSetLocale(ctx, 42, "ru")
		if err != nil {
			t.Fatalf("repeat choice must succeed: %v", err)
		}
		if text != "Теперь говорим по-русски" {
			t.Errorf("unexpected confirmation: %q", text)
		}
	})

	t.Run("unsupported language is rejected", func(t *testing.T) {
		d := newFacade(t)

		_, err := d.facade.HandleSetLocale(ctx, 42, "de")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("unknown user surfaces not found", func(t *testing.T) {
		d := newFacade(t)

		_, err := d.facade.HandleSetLocale(ctx, 999, "ru")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("cancel clears the pending state silently", func(t *testing.T) {
		d := newFacade(t)
		if _, err := d.facade.HandleSettings(ctx, 42); err != nil {
			t.Fatalf("settings: %v", err)
		}

		if err := d.facade.HandleCancelSettings(ctx, 42); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		st, _ := d.states.GetState(ctx, 42)
		if st.Step != repository.StepIdle {
			t.Errorf("expected idle after cancel, got %q", st.Step)
		}
	})
}

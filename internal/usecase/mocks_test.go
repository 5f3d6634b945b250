//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-crypto-shop/internal/domain"
	"telegram-crypto-shop/internal/domain/model"
	"telegram-crypto-shop/internal/domain/ports/adapter"
	"telegram-crypto-shop/internal/domain/ports/repository"
	"telegram-crypto-shop/internal/infra/i18n"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// newTestRegistry builds a Registry over a tiny in-memory locale set so the
// tests do not depend on the embedded production tables.
func newTestRegistry() *i18n.Registry {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte(
			"greeting: \"Hello, %s!\"\n" +
				"welcome_back: \"Welcome back, %s!\"\n" +
				"buy_text: \"Pay here\"\n" +
				"buy_btn: \"Pay\"\n" +
				"buy_failed: \"Something went wrong!\"\n" +
				"settings: \"Choose language\"\n" +
				"cancel: \"Cancel\"\n" +
				"lang_changed: \"Language set to English\"\n" +
				"payment_received: \"Payment received!\"\n")},
		"locales/ru.yaml": {Data: []byte(
			"greeting: \"Привет, %s!\"\n" +
				"welcome_back: \"С возвращением, %s!\"\n" +
				"buy_text: \"Оплати тут\"\n" +
				"buy_btn: \"Оплатить\"\n" +
				"buy_failed: \"Что-то пошло не так!\"\n" +
				"settings: \"Выбери язык\"\n" +
				"cancel: \"Отмена\"\n" +
				"lang_changed: \"Теперь говорим по-русски\"\n" +
				"payment_received: \"Оплата получена!\"\n")},
	}
	reg, err := i18n.NewRegistry(fsys, []string{"en", "ru"}, "en")
	if err != nil {
		panic(err)
	}
	return reg
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.User

	SaveFunc       func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindFunc       func(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error)
	UpdateLangFunc func(ctx context.Context, tx repository.Tx, tgID int64, lang string) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: make(map[int64]*model.User)}
}

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.TelegramID] = &cp
	return nil
}

func (m *MockUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, tx, tgID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) UpdateLang(ctx context.Context, tx repository.Tx, tgID int64, lang string) error {
	if m.UpdateLangFunc != nil {
		return m.UpdateLangFunc(ctx, tx, tgID, lang)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Lang = lang
	return nil
}

func (m *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

// ---- Mock ItemRepository ----

type MockItemRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Item

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Item, error)
}

var _ repository.ItemRepository = (*MockItemRepo)(nil)

func NewMockItemRepo() *MockItemRepo {
	return &MockItemRepo{store: make(map[string]*model.Item)}
}

func (m *MockItemRepo) Put(item *model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.store[item.ID] = &cp
}

func (m *MockItemRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Item, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

// ---- Mock InvoiceRepository ----

type MockInvoiceRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.Invoice // by gateway invoice id

	SaveFunc     func(ctx context.Context, tx repository.Tx, inv *model.Invoice) error
	MarkPaidFunc func(ctx context.Context, tx repository.Tx, gatewayInvoiceID int64, paidAt time.Time) (bool, error)
}

var _ repository.InvoiceRepository = (*MockInvoiceRepo)(nil)

func NewMockInvoiceRepo() *MockInvoiceRepo {
	return &MockInvoiceRepo{store: make(map[int64]*model.Invoice)}
}

func (m *MockInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, inv)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.store[inv.GatewayInvoiceID] = &cp
	return nil
}

func (m *MockInvoiceRepo) FindByGatewayID(ctx context.Context, tx repository.Tx, gatewayInvoiceID int64) (*model.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.store[gatewayInvoiceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *MockInvoiceRepo) MarkPaid(ctx context.Context, tx repository.Tx, gatewayInvoiceID int64, paidAt time.Time) (bool, error) {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, tx, gatewayInvoiceID, paidAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.store[gatewayInvoiceID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if inv.Status == model.InvoiceStatusPaid {
		return false, nil
	}
	inv.Status = model.InvoiceStatusPaid
	inv.PaidAt = &paidAt
	return true, nil
}

// ---- Mock TransactionManager ----

// MockTxManager runs the callback inline with a nil handle, which every
// repository accepts as the non-transactional path.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	GetMeFunc         func(ctx context.Context) (*adapter.AccountInfo, error)
	GetBalancesFunc   func(ctx context.Context) ([]adapter.Balance, error)
	CreateInvoiceFunc func(ctx context.Context, spec adapter.InvoiceSpec) (*adapter.GatewayInvoice, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) GetMe(ctx context.Context) (*adapter.AccountInfo, error) {
	if m.GetMeFunc != nil {
		return m.GetMeFunc(ctx)
	}
	return &adapter.AccountInfo{AppID: 1, Name: "test-app"}, nil
}

func (m *MockPaymentGateway) GetBalances(ctx context.Context) ([]adapter.Balance, error) {
	if m.GetBalancesFunc != nil {
		return m.GetBalancesFunc(ctx)
	}
	return nil, nil
}

func (m *MockPaymentGateway) CreateInvoice(ctx context.Context, spec adapter.InvoiceSpec) (*adapter.GatewayInvoice, error) {
	if m.CreateInvoiceFunc != nil {
		return m.CreateInvoiceFunc(ctx, spec)
	}
	return &adapter.GatewayInvoice{
		InvoiceID: 1001,
		Status:    "active",
		Asset:     spec.Asset,
		Amount:    spec.Amount,
		PayURL:    "https://t.me/CryptoBot?start=IVXYZ",
		CreatedAt: time.Now(),
	}, nil
}

// ---- Mock TelegramSender ----

type sentMessage struct {
	TgID int64
	Text string
}

type MockSender struct {
	mu   sync.Mutex
	Sent []sentMessage

	SendMessageFunc func(ctx context.Context, tgID int64, text string) error
}

var _ adapter.TelegramSender = (*MockSender)(nil)

func (m *MockSender) record(tgID int64, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentMessage{TgID: tgID, Text: text})
}

func (m *MockSender) SendMessage(ctx context.Context, tgID int64, text string) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, tgID, text)
	}
	m.record(tgID, text)
	return nil
}

func (m *MockSender) SendHTML(ctx context.Context, tgID int64, html string) error {
	m.record(tgID, html)
	return nil
}

func (m *MockSender) SendPhoto(ctx context.Context, tgID int64, photoPath string, rows [][]adapter.InlineButton) error {
	m.record(tgID, photoPath)
	return nil
}

func (m *MockSender) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	m.record(tgID, text)
	return nil
}

package usecase

import (
	"context"
	"errors"

	"telegram-crypto-shop/internal/domain"
	"telegram-crypto-shop/internal/domain/model"
	"telegram-crypto-shop/internal/domain/ports/repository"
	"telegram-crypto-shop/internal/infra/logging"
	"telegram-crypto-shop/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// Profile is the platform-supplied identity attached to every inbound event.
type Profile struct {
	TelegramID int64
	IsBot      bool
	FirstName  string
	Username   string
	Lang       string
}

// UserUseCase exposes user-related operations used by the bot flows.
type UserUseCase interface {
	// RegisterOrFetch creates the user lazily on first sight and reports
	// whether a new record was created.
	RegisterOrFetch(ctx context.Context, p Profile) (*model.User, bool, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	// SetLanguage updates the stored language preference; returns
	// domain.ErrNotFound when the user does not exist.
	SetLanguage(ctx context.Context, tgID int64, lang string) error
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	users       repository.UserRepository
	tm          repository.TransactionManager
	defaultLang string
	log         *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, defaultLang string, logger *zerolog.Logger) *userUC {
	return &userUC{
		users:       users,
		tm:          tm,
		defaultLang: defaultLang,
		log:         logger,
	}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, p Profile) (*model.User, bool, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	var (
		user    *model.User
		created bool
	)
	// The find and the save run as one atomic operation so two rapid
	// first-contact updates cannot both create the record.
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByTelegramID(ctx, tx, p.TelegramID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if usr != nil {
			usr.Touch()
			if p.Username != "" && usr.Username != p.Username {
				usr.Username = p.Username
			}
			if err := u.users.Save(ctx, tx, usr); err != nil {
				return err
			}
			user = usr
			return nil
		}

		lang := p.Lang
		if lang == "" {
			lang = u.defaultLang
		}
		nu, err := model.NewUser(p.TelegramID, p.IsBot, p.FirstName, p.Username, lang)
		if err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		user = nu
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		metrics.IncUserCreated()
		u.log.Info().Int64("tg_id", p.TelegramID).Str("lang", user.Lang).Msg("new user registered")
	}
	return user, created, nil
}

func (u *userUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.GetByTelegramID")()
	return u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *userUC) SetLanguage(ctx context.Context, tgID int64, lang string) error {
	defer logging.TraceDuration(u.log, "UserUC.SetLanguage")()
	if lang == "" {
		return domain.ErrInvalidArgument
	}
	return u.users.UpdateLang(ctx, repository.NoTX, tgID, lang)
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.Count")()
	return u.users.CountUsers(ctx, repository.NoTX)
}

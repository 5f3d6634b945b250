package model

import (
	"time"

	"telegram-crypto-shop/internal/domain"
)

// User is a domain entity representing a Telegram user in our system.
// The Telegram id is the natural key; records are created lazily on the
// first update from an unseen id and never deleted.
type User struct {
	TelegramID int64
	IsBot      bool
	FirstName  string
	Username   string
	Lang       string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

func NewUser(tgID int64, isBot bool, firstName, username, lang string) (*User, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		TelegramID: tgID,
		IsBot:      isBot,
		FirstName:  firstName,
		Username:   username,
		Lang:       lang,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.TelegramID == 0 }
func (u *User) Touch()       { u.LastSeenAt = time.Now() }

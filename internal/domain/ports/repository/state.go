package repository

import (
	"context"
)

// ConversationStep names the user's position in a multi-step conversation.
type ConversationStep string

const (
	StepIdle           ConversationStep = "idle"
	StepAwaitingLocale ConversationStep = "awaiting_locale"
)

// ConversationState holds the user's transient UI state. It expires on its
// own (the infra layer applies a TTL); an expired state simply means the
// conversation is idle.
type ConversationState struct {
	Step ConversationStep `json:"step"`
}

// StateRepository is the port for managing per-user conversational state.
type StateRepository interface {
	SetState(ctx context.Context, tgID int64, state *ConversationState) error
	GetState(ctx context.Context, tgID int64) (*ConversationState, error)
	ClearState(ctx context.Context, tgID int64) error
}

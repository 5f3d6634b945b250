package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telegram-crypto-shop/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

// Ensure the adapter implements the port interface.
var _ repository.StateRepository = (*ConversationStateRepo)(nil)

// ConversationStateRepo keeps the per-user "awaiting locale choice" state in
// Redis with a TTL, so the state evaporates instead of lingering when the
// user abandons the settings keyboard.
type ConversationStateRepo struct {
	client Client
	ttl    time.Duration
}

func NewConversationStateRepo(client Client, ttl time.Duration) *ConversationStateRepo {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ConversationStateRepo{client: client, ttl: ttl}
}

func stateKey(tgID int64) string {
	return fmt.Sprintf("conv_state:%d", tgID)
}

func (s *ConversationStateRepo) SetState(ctx context.Context, tgID int64, state *repository.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, stateKey(tgID), data, s.ttl)
}

// GetState returns the idle state when no entry exists; absence is normal.
func (s *ConversationStateRepo) GetState(ctx context.Context, tgID int64) (*repository.ConversationState, error) {
	data, err := s.client.Get(ctx, stateKey(tgID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &repository.ConversationState{Step: repository.StepIdle}, nil
		}
		return nil, err
	}
	var state repository.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *ConversationStateRepo) ClearState(ctx context.Context, tgID int64) error {
	return s.client.Del(ctx, stateKey(tgID))
}

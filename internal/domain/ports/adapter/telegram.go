package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// TelegramSender is the outbound half of the chat transport. The polling
// adapter implements it; use cases that need to push messages (paid
// notifications) depend on this port rather than the bot client.
type TelegramSender interface {
	SendMessage(ctx context.Context, telegramID int64, text string) error
	SendHTML(ctx context.Context, telegramID int64, html string) error
	SendPhoto(ctx context.Context, telegramID int64, photoPath string, rows [][]InlineButton) error
	SendButtons(ctx context.Context, telegramID int64, text string, rows [][]InlineButton) error
}

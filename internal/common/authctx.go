package common

import "context"

type ctxKey string

const telegramIDKey ctxKey = "auth/telegram-id"

// WithTelegramID stores the authenticated Telegram user identifier on the context.
func WithTelegramID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, telegramIDKey, id)
}

// TelegramID extracts the authenticated Telegram user identifier from the context.
func TelegramID(ctx context.Context) (int64, bool) {
	v := ctx.Value(telegramIDKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

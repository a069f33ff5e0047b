package port

import (
	"context"

	"github.com/expenseflow/expenseflow/internal/domain/event"
)

// CurrencyNormalizer converts a submitted amount into the company's base
// currency. Rate sourcing and caching policy belong to the implementation,
// not to the engine.
type CurrencyNormalizer interface {
	// Convert returns the converted amount and the rate applied.
	Convert(ctx context.Context, amount float64, from, to string) (converted, rate float64, err error)

	// Rate returns the current exchange rate between two currencies.
	Rate(ctx context.Context, from, to string) (float64, error)
}

// NotificationSender delivers a domain event to its recipient.
// Fire-and-forget: delivery failures are logged by callers and must never
// roll back the state transition that produced the event.
type NotificationSender interface {
	Send(ctx context.Context, evt *event.Event) error
}

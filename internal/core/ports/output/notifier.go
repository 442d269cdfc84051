package ports

import "context"

// Notifier delivers alert text to whoever is on call.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

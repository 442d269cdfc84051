package ports

import (
	"context"
	"time"

	"status-notification/internal/core/domain"
)

// MonitorRepository persists objects, their sub-objects and heartbeat state.
type MonitorRepository interface {
	// Touch records a heartbeat, creating the object and sub-object on first
	// sight. The notified flag of an existing sub-object is left as is.
	Touch(ctx context.Context, object, sub string, at time.Time) error
	ListObjects(ctx context.Context) ([]*domain.Object, error)
	SetObjectPaused(ctx context.Context, object string, paused bool) error
	SetSubObjectPaused(ctx context.Context, object, sub string, paused bool) error
	DeleteObject(ctx context.Context, object string) error
	DeleteSubObject(ctx context.Context, object, sub string) error
	SetNotified(ctx context.Context, subID int64, notified bool) error
	Ping(ctx context.Context) error
	Close() error
}

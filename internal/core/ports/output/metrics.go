package ports

import (
	"time"

	"status-notification/internal/core/domain"
)

// Heartbeat outcomes reported to MetricsRecorder.
const (
	OutcomeAccepted     = "accepted"
	OutcomeInvalid      = "invalid"
	OutcomeUnauthorized = "unauthorized"
	OutcomeFailed       = "failed"
)

// Notification kinds reported to MetricsRecorder.
const (
	NotificationAlert    = "alert"
	NotificationRecovery = "recovery"
	NotificationError    = "error"
)

type MetricsRecorder interface {
	HeartbeatReceived(outcome string)
	NotificationSent(kind string, err error)
	CycleCompleted(stats domain.CycleStats, took time.Duration, err error)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) HeartbeatReceived(string) {}
func (NopMetrics) NotificationSent(string, error) {}
func (NopMetrics) CycleCompleted(domain.CycleStats, time.Duration, error) {}

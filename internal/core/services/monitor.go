package services

import (
	"context"
	"fmt"
	"time"

	"status-notification/internal/core/domain"
	output "status-notification/internal/core/ports/output"
)

type MonitorService struct {
	repo         output.MonitorRepository
	metrics      output.MetricsRecorder
	allowedDelay time.Duration
	apiKeys      map[string]struct{}
	now          func() time.Time
}

func NewMonitorService(
	repo output.MonitorRepository,
	metrics output.MetricsRecorder,
	allowedDelay time.Duration,
	apiKeys []string,
) *MonitorService {
	if metrics == nil {
		metrics = output.NopMetrics{}
	}
	keys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		keys[k] = struct{}{}
	}
	return &MonitorService{
		repo:         repo,
		metrics:      metrics,
		allowedDelay: allowedDelay,
		apiKeys:      keys,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// UpdateStatus records a heartbeat. headerKey is the API key the caller sent
// out of band; legacy heartbeats carry theirs in the body instead.
func (s *MonitorService) UpdateStatus(ctx context.Context, hb domain.Heartbeat, headerKey string) error {
	object, sub, legacy, err := hb.Target()
	if err != nil {
		s.metrics.HeartbeatReceived(output.OutcomeInvalid)
		return err
	}

	key := headerKey
	if legacy {
		key = hb.APIKey
	}
	if !s.authorized(key) {
		s.metrics.HeartbeatReceived(output.OutcomeUnauthorized)
		return domain.ErrUnauthorized
	}

	if err := s.repo.Touch(ctx, object, sub, s.now()); err != nil {
		s.metrics.HeartbeatReceived(output.OutcomeFailed)
		return err
	}
	s.metrics.HeartbeatReceived(output.OutcomeAccepted)
	return nil
}

func (s *MonitorService) StatusTree(ctx context.Context) ([]domain.ObjectStatus, error) {
	objects, err := s.repo.ListObjects(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tree := make([]domain.ObjectStatus, 0, len(objects))
	for _, o := range objects {
		tree = append(tree, domain.StatusOf(o, now, s.allowedDelay))
	}
	return tree, nil
}

// CheckStatus lists every object and those with at least one monitored
// sub-object that has gone silent.
func (s *MonitorService) CheckStatus(ctx context.Context) (*domain.LegacyStatus, error) {
	objects, err := s.repo.ListObjects(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := &domain.LegacyStatus{
		InactivePrograms: []string{},
		AllPrograms:      make([]string, 0, len(objects)),
	}
	for _, o := range objects {
		status.AllPrograms = append(status.AllPrograms, o.Name)
		for _, sub := range o.Children {
			if sub.Monitored(o) && sub.Silent(now, s.allowedDelay) {
				status.InactivePrograms = append(status.InactivePrograms, o.Name)
				break
			}
		}
	}
	return status, nil
}

// Pause stops alerting for an object, or for one sub-object when sub is set.
func (s *MonitorService) Pause(ctx context.Context, object, sub string) error {
	return s.setPaused(ctx, object, sub, true)
}

func (s *MonitorService) Resume(ctx context.Context, object, sub string) error {
	return s.setPaused(ctx, object, sub, false)
}

func (s *MonitorService) Delete(ctx context.Context, object, sub string) error {
	if object == "" {
		return domain.ErrMissingObjectName
	}
	if sub != "" {
		return s.repo.DeleteSubObject(ctx, object, sub)
	}
	return s.repo.DeleteObject(ctx, object)
}

// Ready reports whether the backing store is reachable.
func (s *MonitorService) Ready(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("storage unavailable: %w", err)
	}
	return nil
}

func (s *MonitorService) setPaused(ctx context.Context, object, sub string, paused bool) error {
	if object == "" {
		return domain.ErrMissingObjectName
	}
	if sub != "" {
		return s.repo.SetSubObjectPaused(ctx, object, sub, paused)
	}
	return s.repo.SetObjectPaused(ctx, object, paused)
}

func (s *MonitorService) authorized(key string) bool {
	if len(s.apiKeys) == 0 {
		return true
	}
	_, ok := s.apiKeys[key]
	return ok
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"status-notification/internal/core/domain"
	output "status-notification/internal/core/ports/output"
)

const failureReportTimeout = 10 * time.Second

// Watchdog periodically compares every sub-object's last heartbeat with the
// allowed delay and notifies once when it goes silent and once when it
// comes back.
type Watchdog struct {
	repo         output.MonitorRepository
	notifier     output.Notifier
	metrics      output.MetricsRecorder
	interval     time.Duration
	allowedDelay time.Duration
	now          func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWatchdog(
	repo output.MonitorRepository,
	notifier output.Notifier,
	metrics output.MetricsRecorder,
	interval, allowedDelay time.Duration,
) *Watchdog {
	if metrics == nil {
		metrics = output.NopMetrics{}
	}
	return &Watchdog{
		repo:         repo,
		notifier:     notifier,
		metrics:      metrics,
		interval:     interval,
		allowedDelay: allowedDelay,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules a cycle every interval. The first cycle runs one interval
// after Start. A tick is skipped while the previous cycle is still running.
func (w *Watchdog) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cron != nil {
		return errors.New("watchdog already started")
	}

	cronLog := cron.PrintfLogger(log.WithField("component", "watchdog"))
	c := cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)))
	if _, err := c.AddJob(fmt.Sprintf("@every %s", w.interval), w); err != nil {
		return fmt.Errorf("schedule watchdog: %w", err)
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.cron = c
	c.Start()

	log.WithFields(log.Fields{
		"interval":      w.interval.String(),
		"allowed_delay": w.allowedDelay.String(),
	}).Info("watchdog started")
	return nil
}

// Stop cancels the running cycle, if any, and waits for it to return or for
// ctx to expire.
func (w *Watchdog) Stop(ctx context.Context) error {
	w.mu.Lock()
	c, cancel := w.cron, w.cancel
	w.cron, w.cancel = nil, nil
	w.mu.Unlock()

	if c == nil {
		return nil
	}

	done := c.Stop()
	cancel()

	select {
	case <-done.Done():
		log.Info("watchdog stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run implements cron.Job.
func (w *Watchdog) Run() {
	w.mu.Lock()
	parent := w.ctx
	w.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithTimeout(parent, w.interval)
	defer cancel()

	_, _ = w.RunOnce(ctx)
}

// RunOnce performs a single check over all objects.
func (w *Watchdog) RunOnce(ctx context.Context) (domain.CycleStats, error) {
	start := time.Now()
	var stats domain.CycleStats

	objects, err := w.repo.ListObjects(ctx)
	if err != nil {
		err = fmt.Errorf("list objects: %w", err)
		w.finish(ctx, stats, start, err)
		return stats, err
	}

	now := w.now()
	var errs []error
	for _, obj := range objects {
		for _, sub := range obj.Children {
			if !sub.Monitored(obj) {
				stats.Paused++
				continue
			}
			if sub.LastUpdate == nil {
				stats.Inactive++
				continue
			}

			if sub.Silent(now, w.allowedDelay) {
				stats.Inactive++
				if sub.Notified {
					continue
				}
				sent, err := w.transition(ctx, obj, sub, true)
				if err != nil {
					errs = append(errs, err)
				}
				if sent {
					stats.Alerts++
				}
				continue
			}

			stats.Active++
			if !sub.Notified {
				continue
			}
			sent, err := w.transition(ctx, obj, sub, false)
			if err != nil {
				errs = append(errs, err)
			}
			if sent {
				stats.Recoveries++
			}
		}
	}

	cycleErr := errors.Join(errs...)
	w.finish(ctx, stats, start, cycleErr)

	log.WithFields(log.Fields{
		"active":     stats.Active,
		"inactive":   stats.Inactive,
		"paused":     stats.Paused,
		"alerts":     stats.Alerts,
		"recoveries": stats.Recoveries,
	}).Debug("watchdog cycle completed")

	return stats, cycleErr
}

// transition notifies about sub going silent (down) or coming back and then
// flips its notified flag. If the message cannot be delivered the flag is
// left alone so the next cycle tries again; that is not a cycle failure.
func (w *Watchdog) transition(ctx context.Context, obj *domain.Object, sub *domain.SubObject, down bool) (bool, error) {
	kind, text := output.NotificationRecovery, RecoveryMessage(obj.Name, sub.Name)
	if down {
		kind, text = output.NotificationAlert, AlertMessage(obj.Name, sub.Name)
	}

	logger := log.WithFields(log.Fields{
		"object":     obj.Name,
		"sub_object": sub.Name,
		"kind":       kind,
	})

	err := w.notifier.Notify(ctx, text)
	w.metrics.NotificationSent(kind, err)
	if err != nil {
		logger.WithError(err).Error("notification failed")
		return false, nil
	}
	logger.Info("notification sent")

	if err := w.repo.SetNotified(ctx, sub.ID, down); err != nil {
		return true, fmt.Errorf("set notified for %s::%s: %w", obj.Name, sub.Name, err)
	}
	sub.Notified = down
	return true, nil
}

// finish records the cycle and reports a failure. A cycle cut short by Stop
// is not a failure.
func (w *Watchdog) finish(ctx context.Context, stats domain.CycleStats, start time.Time, err error) {
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		log.WithError(err).Info("watchdog cycle interrupted")
		return
	}
	if err != nil {
		w.reportFailure(ctx, err)
	}
	w.metrics.CycleCompleted(stats, time.Since(start), err)
}

func (w *Watchdog) reportFailure(ctx context.Context, err error) {
	log.WithError(err).Error("monitoring cycle failed")

	// The cycle context may already be spent when it ran past its deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureReportTimeout)
	defer cancel()

	notifyErr := w.notifier.Notify(ctx, FailureMessage(err))
	w.metrics.NotificationSent(output.NotificationError, notifyErr)
	if notifyErr != nil {
		log.WithError(notifyErr).Error("failure notification failed")
	}
}

func AlertMessage(object, sub string) string {
	return fmt.Sprintf("🔴 %s::%s is not responding", object, sub)
}

func RecoveryMessage(object, sub string) string {
	return fmt.Sprintf("🟢 %s::%s recovered", object, sub)
}

func FailureMessage(err error) string {
	return fmt.Sprintf("Monitoring error: %v", err)
}

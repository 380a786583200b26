package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/flusswasser/nightbot-uninstall/internal/dedup"
	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	"github.com/flusswasser/nightbot-uninstall/internal/metrics"
	"github.com/flusswasser/nightbot-uninstall/internal/notify"
	"github.com/flusswasser/nightbot-uninstall/internal/store"
	"github.com/flusswasser/nightbot-uninstall/internal/twitch"
)

// liveQuerier is the slice of the Twitch client the poller needs.
type liveQuerier interface {
	LiveStreams(ctx context.Context, userIDs []string) (map[string]twitch.LiveStream, error)
}

// StreamPoller periodically sweeps all stream subscriptions with one
// batched live-status query. The ledger, not the scheduler, is the
// dedup boundary: an overlapping sweep costs extra upstream queries but
// never duplicate notifications.
type StreamPoller struct {
	store    *store.Store
	twitch   liveQuerier
	notifier domain.Notifier
	clock    clockwork.Clock
	interval time.Duration
}

func NewStreamPoller(st *store.Store, tw liveQuerier, notifier domain.Notifier, clock clockwork.Clock, interval time.Duration) *StreamPoller {
	return &StreamPoller{store: st, twitch: tw, notifier: notifier, clock: clock, interval: interval}
}

// Run drives sweeps until ctx is cancelled.
func (p *StreamPoller) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			p.sweep(ctx)
		case <-ctx.Done():
			slog.Info("Stream poller stopped")
			return
		}
	}
}

func (p *StreamPoller) sweep(ctx context.Context) {
	subs := p.store.ListStreams()
	if len(subs) == 0 {
		return
	}

	start := p.clock.Now()
	log := slog.With("sweep_id", uuid.NewString()[:8], "kind", "stream")

	seen := make(map[string]struct{}, len(subs))
	userIDs := make([]string, 0, len(subs))
	for _, sub := range subs {
		if _, ok := seen[sub.UserID]; ok {
			continue
		}
		seen[sub.UserID] = struct{}{}
		userIDs = append(userIDs, sub.UserID)
	}

	live, err := p.twitch.LiveStreams(ctx, userIDs)
	if err != nil {
		// Includes token-exchange failures; skip the cycle, never crash.
		log.Warn("Stream sweep skipped", "error", err)
		metrics.SweepErrors.WithLabelValues("stream").Inc()
		return
	}

	for _, sub := range subs {
		p.checkSubscription(ctx, log, sub, live)
	}

	metrics.SweepDuration.WithLabelValues("stream").Observe(p.clock.Since(start).Seconds())
}

// checkSubscription applies one subscription's outcome. Outcomes are
// independent; a failure here never aborts the sweep. The verdict runs
// against the stored record under the store's lock.
func (p *StreamPoller) checkSubscription(ctx context.Context, log *slog.Logger, sub *domain.StreamSubscription, live map[string]twitch.LiveStream) {
	stream, isLive := live[sub.UserID]
	if !isLive {
		p.store.ClearStreamSession(sub.UserID, sub.DestinationID)
		return
	}

	verdict, current, err := p.store.ApplyStreamVerdict(sub.UserID, sub.DestinationID, stream.SessionID)
	if err != nil || verdict == dedup.Duplicate {
		return
	}

	text := notify.StreamAnnouncement(current, stream.Title)
	if err := p.notifier.Notify(ctx, current.DestinationID, text); err != nil {
		// Delivery not confirmed, but the ledger already advanced:
		// duplicate suppression wins over guaranteed delivery.
		log.Error("Failed to deliver live announcement",
			"login", current.Login, "destination", current.DestinationID, "error", err)
		metrics.NotificationsTotal.WithLabelValues("stream", "error").Inc()
	} else {
		log.Info("Live announcement sent", "login", current.Login, "session_id", stream.SessionID)
		metrics.NotificationsTotal.WithLabelValues("stream", "success").Inc()
	}
}

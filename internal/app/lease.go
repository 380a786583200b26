package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/flusswasser/nightbot-uninstall/internal/metrics"
	"github.com/flusswasser/nightbot-uninstall/internal/store"
)

// renewalInterval keeps a day of slack against the 5-day lease the hub
// grants.
const renewalInterval = 4 * 24 * time.Hour

// LeaseRenewer re-subscribes every tracked channel topic with the push hub
// on startup and on a fixed cycle, so leases never lapse. Per-channel
// failures are logged and do not block renewal of the rest.
type LeaseRenewer struct {
	store *store.Store
	hub   hubAPI
	clock clockwork.Clock
}

func NewLeaseRenewer(st *store.Store, hub hubAPI, clock clockwork.Clock) *LeaseRenewer {
	return &LeaseRenewer{store: st, hub: hub, clock: clock}
}

// Run renews immediately, then on every interval tick until ctx is
// cancelled.
func (r *LeaseRenewer) Run(ctx context.Context) {
	r.RenewAll(ctx)

	ticker := r.clock.NewTicker(renewalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.RenewAll(ctx)
		case <-ctx.Done():
			slog.Info("Lease renewer stopped")
			return
		}
	}
}

// RenewAll re-issues the hub subscribe request for every distinct tracked
// channel.
func (r *LeaseRenewer) RenewAll(ctx context.Context) {
	seen := make(map[string]struct{})
	for _, sub := range r.store.ListVideos() {
		if _, ok := seen[sub.ChannelID]; ok {
			continue
		}
		seen[sub.ChannelID] = struct{}{}

		if err := r.hub.Subscribe(ctx, sub.ChannelID); err != nil {
			slog.Error("Failed to renew hub lease", "channel_id", sub.ChannelID, "error", err)
			metrics.LeaseRenewalsTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.LeaseRenewalsTotal.WithLabelValues("success").Inc()
	}
}

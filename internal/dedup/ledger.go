// Package dedup decides whether a given content id has already been
// notified for a given subscription, and records that it has. It is pure
// logic over the subscription records; callers persist the mutation.
package dedup

import (
	"time"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
)

// RecencyWindow is how far in the past a video's publish time may lie and
// still trigger an announcement. Older videos are recorded in history (so
// they are never reprocessed) but stay silent; this keeps a backfilled or
// replayed feed from flooding a chat with stale uploads.
const RecencyWindow = 24 * time.Hour

type Verdict int

const (
	// Duplicate: already notified, nothing to do.
	Duplicate Verdict = iota
	// Recorded: new id entered into state, but no announcement is due.
	Recorded
	// Announce: new id entered into state and a notification should go out.
	Announce
)

// Video classifies an upload candidate against the subscription's bounded
// history. On a new id it appends to the history (evicting past
// domain.VideoHistorySize) and advances LastNotifiedID. The publish time is
// checked against the recency window to decide Recorded vs Announce.
func Video(sub *domain.VideoSubscription, videoID string, publishedAt, now time.Time) Verdict {
	for _, id := range sub.History {
		if id == videoID {
			return Duplicate
		}
	}

	sub.History = append(sub.History, videoID)
	if len(sub.History) > domain.VideoHistorySize {
		sub.History = sub.History[len(sub.History)-domain.VideoHistorySize:]
	}
	sub.LastNotifiedID = videoID

	if now.Sub(publishedAt) > RecencyWindow {
		return Recorded
	}
	return Announce
}

// Stream classifies a live-session candidate. Session ids are single-slot:
// duplicate iff the candidate equals the last notified session.
func Stream(sub *domain.StreamSubscription, sessionID string) Verdict {
	if sub.LastNotifiedID == sessionID {
		return Duplicate
	}
	sub.LastNotifiedID = sessionID
	return Announce
}

// StreamOffline clears the notified-session slot when the user is seen not
// live, so the next session always announces even if the platform reuses a
// session id. Returns whether the record changed.
func StreamOffline(sub *domain.StreamSubscription) bool {
	if sub.LastNotifiedID == "" {
		return false
	}
	sub.LastNotifiedID = ""
	return true
}

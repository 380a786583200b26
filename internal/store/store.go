// Package store holds the authoritative in-memory subscription collections.
// Mutations are written through the persistence gateway as full snapshots
// before returning, so a successful command is always durable. A failed
// snapshot write is logged; the in-memory state stays authoritative until
// the next successful write.
//
// The store owns its records exclusively: accessors hand out copies, and
// every record mutation, including ledger verdicts, runs under the store's
// mutex. The HTTP handlers and the poller goroutines never touch a shared
// record directly, which is what makes a verdict atomic with the state it
// advances.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/flusswasser/nightbot-uninstall/internal/dedup"
	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	"github.com/flusswasser/nightbot-uninstall/internal/storage"
)

// Gateway is the slice of the persistence layer the store needs.
type Gateway interface {
	Save(name string, v any) error
	Load(name string, v any) error
}

type Store struct {
	gateway Gateway

	mu      sync.Mutex
	videos  []*domain.VideoSubscription
	streams []*domain.StreamSubscription
}

func New(gateway Gateway) *Store {
	return &Store{gateway: gateway}
}

// LoadSnapshots restores both collections from the gateway. Missing
// snapshots leave the collections empty.
func (s *Store) LoadSnapshots() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gateway.Load(storage.VideoSubscriptions, &s.videos); err != nil {
		return err
	}
	return s.gateway.Load(storage.StreamSubscriptions, &s.streams)
}

// ListVideos returns copies of all video subscriptions. Mutating a returned
// record does not touch stored state.
func (s *Store) ListVideos() []*domain.VideoSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.VideoSubscription, len(s.videos))
	for i, sub := range s.videos {
		out[i] = copyVideo(sub)
	}
	return out
}

func (s *Store) ListStreams() []*domain.StreamSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.StreamSubscription, len(s.streams))
	for i, sub := range s.streams {
		out[i] = copyStream(sub)
	}
	return out
}

// VideosByChannel returns copies of every video subscription tracking the
// given source channel. Multiple destinations may subscribe to one channel.
func (s *Store) VideosByChannel(channelID string) []*domain.VideoSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.VideoSubscription
	for _, sub := range s.videos {
		if sub.ChannelID == channelID {
			out = append(out, copyVideo(sub))
		}
	}
	return out
}

// StreamByLogin finds a stream subscription by login and destination,
// returning a copy.
func (s *Store) StreamByLogin(login, destinationID string) (*domain.StreamSubscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.streams {
		if sub.Login == login && sub.DestinationID == destinationID {
			return copyStream(sub), true
		}
	}
	return nil, false
}

func (s *Store) AddVideo(sub *domain.VideoSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.videos {
		if existing.ChannelID == sub.ChannelID && existing.DestinationID == sub.DestinationID {
			return domain.ErrDuplicateSubscription
		}
	}
	s.videos = append(s.videos, copyVideo(sub))
	s.persistVideos()
	return nil
}

func (s *Store) AddStream(sub *domain.StreamSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.streams {
		if existing.UserID == sub.UserID && existing.DestinationID == sub.DestinationID {
			return domain.ErrDuplicateSubscription
		}
	}
	s.streams = append(s.streams, copyStream(sub))
	s.persistStreams()
	return nil
}

// RemoveVideo deletes the (channel, destination) pair, reporting whether it
// was present.
func (s *Store) RemoveVideo(channelID, destinationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.videos {
		if sub.ChannelID == channelID && sub.DestinationID == destinationID {
			s.videos = append(s.videos[:i], s.videos[i+1:]...)
			s.persistVideos()
			return true
		}
	}
	return false
}

func (s *Store) RemoveStream(userID, destinationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.streams {
		if sub.UserID == userID && sub.DestinationID == destinationID {
			s.streams = append(s.streams[:i], s.streams[i+1:]...)
			s.persistStreams()
			return true
		}
	}
	return false
}

// UpdateVideo overwrites the record identified by (channel, destination)
// and snapshots the collection.
func (s *Store) UpdateVideo(sub *domain.VideoSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.videos {
		if existing.ChannelID == sub.ChannelID && existing.DestinationID == sub.DestinationID {
			s.videos[i] = copyVideo(sub)
			s.persistVideos()
			return nil
		}
	}
	return domain.ErrSubscriptionNotFound
}

func (s *Store) UpdateStream(sub *domain.StreamSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.streams {
		if existing.UserID == sub.UserID && existing.DestinationID == sub.DestinationID {
			s.streams[i] = copyStream(sub)
			s.persistStreams()
			return nil
		}
	}
	return domain.ErrSubscriptionNotFound
}

// ApplyVideoVerdict runs the dedup ledger for one upload candidate against
// the stored record, atomically with the history mutation and the snapshot.
// Concurrent deliveries of the same id therefore yield Announce at most
// once. Returns a copy of the record as it stands after the verdict.
func (s *Store) ApplyVideoVerdict(channelID, destinationID, videoID string, publishedAt, now time.Time) (dedup.Verdict, *domain.VideoSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.videos {
		if sub.ChannelID == channelID && sub.DestinationID == destinationID {
			verdict := dedup.Video(sub, videoID, publishedAt, now)
			if verdict != dedup.Duplicate {
				s.persistVideos()
			}
			return verdict, copyVideo(sub), nil
		}
	}
	return dedup.Duplicate, nil, domain.ErrSubscriptionNotFound
}

// ApplyStreamVerdict runs the dedup ledger for one live-session sighting
// against the stored record, atomically with the slot advance and the
// snapshot.
func (s *Store) ApplyStreamVerdict(userID, destinationID, sessionID string) (dedup.Verdict, *domain.StreamSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.streams {
		if sub.UserID == userID && sub.DestinationID == destinationID {
			verdict := dedup.Stream(sub, sessionID)
			if verdict != dedup.Duplicate {
				s.persistStreams()
			}
			return verdict, copyStream(sub), nil
		}
	}
	return dedup.Duplicate, nil, domain.ErrSubscriptionNotFound
}

// ClearStreamSession clears the notified-session slot when the user is seen
// offline, reporting whether the record changed.
func (s *Store) ClearStreamSession(userID, destinationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.streams {
		if sub.UserID == userID && sub.DestinationID == destinationID {
			if dedup.StreamOffline(sub) {
				s.persistStreams()
				return true
			}
			return false
		}
	}
	return false
}

// SetStreamMessage replaces the custom announcement text on the stored
// record, returning a copy of the result.
func (s *Store) SetStreamMessage(login, destinationID, text string) (*domain.StreamSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.streams {
		if sub.Login == login && sub.DestinationID == destinationID {
			sub.CustomMessage = text
			s.persistStreams()
			return copyStream(sub), nil
		}
	}
	return nil, domain.ErrSubscriptionNotFound
}

func copyVideo(sub *domain.VideoSubscription) *domain.VideoSubscription {
	c := *sub
	c.History = append([]string(nil), sub.History...)
	return &c
}

func copyStream(sub *domain.StreamSubscription) *domain.StreamSubscription {
	c := *sub
	return &c
}

// persistVideos must be called with the mutex held.
func (s *Store) persistVideos() {
	if err := s.gateway.Save(storage.VideoSubscriptions, s.videos); err != nil {
		slog.Error("Failed to persist video subscriptions", "error", err)
	}
}

func (s *Store) persistStreams() {
	if err := s.gateway.Save(storage.StreamSubscriptions, s.streams); err != nil {
		slog.Error("Failed to persist stream subscriptions", "error", err)
	}
}

package app

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
	"github.com/flusswasser/nightbot-uninstall/internal/youtube"
)

func TestVideoPollerAnnouncesNewUpload(t *testing.T) {
	clock := clockwork.NewFakeClock()

	st := newTestStore()
	require.NoError(t, st.AddVideo(&domain.VideoSubscription{
		ChannelID: "UCabc", ChannelTitle: "Some Channel", UploadsPlaylistID: "UUabc",
		DestinationID: "1001", LastNotifiedID: "v1", History: []string{"v1"},
	}))

	yt := &mockVideoAPI{
		latestVideoFn: func(ctx context.Context, playlistID string) (*youtube.Video, error) {
			return &youtube.Video{
				ID: "v2", Title: "Fresh Upload", Link: "https://www.youtube.com/watch?v=v2",
				PublishedAt: clock.Now().Add(-time.Minute),
			}, nil
		},
	}
	notifier := &mockNotifier{}

	poller := NewVideoPoller(st, yt, notifier, clock, 2*time.Minute)

	poller.sweep(context.Background())
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].text, "Fresh Upload")

	sub := st.VideosByChannel("UCabc")[0]
	assert.Equal(t, "v2", sub.LastNotifiedID)
	assert.Equal(t, []string{"v1", "v2"}, sub.History)

	// v2 is now in the history; the next sweep stays silent.
	poller.sweep(context.Background())
	assert.Len(t, notifier.sent, 1)
}

func TestVideoPollerRecordsStaleUploadSilently(t *testing.T) {
	clock := clockwork.NewFakeClock()

	st := newTestStore()
	require.NoError(t, st.AddVideo(&domain.VideoSubscription{
		ChannelID: "UCabc", UploadsPlaylistID: "UUabc", DestinationID: "1001",
	}))

	yt := &mockVideoAPI{
		latestVideoFn: func(ctx context.Context, playlistID string) (*youtube.Video, error) {
			return &youtube.Video{ID: "v1", PublishedAt: clock.Now().Add(-48 * time.Hour)}, nil
		},
	}
	notifier := &mockNotifier{}

	poller := NewVideoPoller(st, yt, notifier, clock, 2*time.Minute)
	poller.sweep(context.Background())

	assert.Empty(t, notifier.sent)
	sub := st.VideosByChannel("UCabc")[0]
	assert.Equal(t, "v1", sub.LastNotifiedID)
}

func TestVideoPollerSharesFetchPerPlaylist(t *testing.T) {
	st := newTestStore()
	require.NoError(t, st.AddVideo(&domain.VideoSubscription{
		ChannelID: "UCabc", UploadsPlaylistID: "UUabc", DestinationID: "1001",
	}))
	require.NoError(t, st.AddVideo(&domain.VideoSubscription{
		ChannelID: "UCabc", UploadsPlaylistID: "UUabc", DestinationID: "1002",
	}))

	yt := &mockVideoAPI{
		latestVideoFn: func(ctx context.Context, playlistID string) (*youtube.Video, error) {
			return nil, nil
		},
	}

	poller := NewVideoPoller(st, yt, &mockNotifier{}, clockwork.NewFakeClock(), 2*time.Minute)
	poller.sweep(context.Background())

	assert.Equal(t, 1, yt.latestCalls)
}

func TestVideoPollerResolvesMissingPlaylist(t *testing.T) {
	clock := clockwork.NewFakeClock()

	st := newTestStore()
	require.NoError(t, st.AddVideo(&domain.VideoSubscription{
		ChannelID: "UCabc", DestinationID: "1001",
	}))

	yt := &mockVideoAPI{
		resolveChannelFn: func(ctx context.Context, channelID string) (*youtube.Channel, error) {
			return &youtube.Channel{ID: channelID, Title: "Some Channel", UploadsPlaylistID: "UUabc"}, nil
		},
		latestVideoFn: func(ctx context.Context, playlistID string) (*youtube.Video, error) {
			assert.Equal(t, "UUabc", playlistID)
			return nil, nil
		},
	}

	poller := NewVideoPoller(st, yt, &mockNotifier{}, clock, 2*time.Minute)
	poller.sweep(context.Background())

	sub := st.VideosByChannel("UCabc")[0]
	assert.Equal(t, "UUabc", sub.UploadsPlaylistID)
	assert.Equal(t, "Some Channel", sub.ChannelTitle)
}

func TestVideoPollerFetchFailureSkipsSubscription(t *testing.T) {
	st := newTestStore()
	require.NoError(t, st.AddVideo(&domain.VideoSubscription{
		ChannelID: "UCabc", UploadsPlaylistID: "UUabc", DestinationID: "1001",
	}))

	yt := &mockVideoAPI{
		latestVideoFn: func(ctx context.Context, playlistID string) (*youtube.Video, error) {
			return nil, assert.AnError
		},
	}
	notifier := &mockNotifier{}

	poller := NewVideoPoller(st, yt, notifier, clockwork.NewFakeClock(), 2*time.Minute)
	poller.sweep(context.Background())

	assert.Empty(t, notifier.sent)
	sub := st.VideosByChannel("UCabc")[0]
	assert.Empty(t, sub.LastNotifiedID)
}

package app

import (
	"context"
	"fmt"

	"github.com/flusswasser/nightbot-uninstall/internal/store"
	"github.com/flusswasser/nightbot-uninstall/internal/twitch"
	"github.com/flusswasser/nightbot-uninstall/internal/youtube"
)

// --- Mock implementations ---

type memGateway struct{}

func (memGateway) Save(name string, v any) error { return nil }
func (memGateway) Load(name string, v any) error { return nil }

func newTestStore() *store.Store {
	return store.New(memGateway{})
}

type mockVideoAPI struct {
	resolveChannelFn func(ctx context.Context, channelID string) (*youtube.Channel, error)
	latestVideoFn    func(ctx context.Context, playlistID string) (*youtube.Video, error)
	latestCalls      int
}

func (m *mockVideoAPI) ResolveChannel(ctx context.Context, channelID string) (*youtube.Channel, error) {
	if m.resolveChannelFn != nil {
		return m.resolveChannelFn(ctx, channelID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockVideoAPI) LatestVideo(ctx context.Context, playlistID string) (*youtube.Video, error) {
	m.latestCalls++
	if m.latestVideoFn != nil {
		return m.latestVideoFn(ctx, playlistID)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockStreamAPI struct {
	userByLoginFn func(ctx context.Context, login string) (*twitch.User, error)
}

func (m *mockStreamAPI) UserByLogin(ctx context.Context, login string) (*twitch.User, error) {
	if m.userByLoginFn != nil {
		return m.userByLoginFn(ctx, login)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockLiveQuerier struct {
	liveStreamsFn func(ctx context.Context, userIDs []string) (map[string]twitch.LiveStream, error)
	queries       [][]string
}

func (m *mockLiveQuerier) LiveStreams(ctx context.Context, userIDs []string) (map[string]twitch.LiveStream, error) {
	m.queries = append(m.queries, userIDs)
	if m.liveStreamsFn != nil {
		return m.liveStreamsFn(ctx, userIDs)
	}
	return map[string]twitch.LiveStream{}, nil
}

type mockHub struct {
	subscribeFn func(ctx context.Context, channelID string) error
	subscribed  []string
}

func (m *mockHub) Subscribe(ctx context.Context, channelID string) error {
	m.subscribed = append(m.subscribed, channelID)
	if m.subscribeFn != nil {
		return m.subscribeFn(ctx, channelID)
	}
	return nil
}

type sentMessage struct {
	destinationID string
	text          string
}

type mockNotifier struct {
	notifyFn func(ctx context.Context, destinationID, text string) error
	sent     []sentMessage
}

func (m *mockNotifier) Notify(ctx context.Context, destinationID, text string) error {
	m.sent = append(m.sent, sentMessage{destinationID, text})
	if m.notifyFn != nil {
		return m.notifyFn(ctx, destinationID, text)
	}
	return nil
}

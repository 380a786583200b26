package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
)

type mockSender struct {
	sent    []tgbotapi.MessageConfig
	sendErr error
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m.sendErr != nil {
		return tgbotapi.Message{}, m.sendErr
	}
	m.sent = append(m.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestNotify_SendsToChatID(t *testing.T) {
	sender := &mockSender{}
	n := newTelegramNotifier(sender)

	err := n.Notify(context.Background(), "-1001234", "hello")
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(-1001234), sender.sent[0].ChatID)
	assert.Equal(t, "hello", sender.sent[0].Text)
}

func TestNotify_InvalidDestination(t *testing.T) {
	n := newTelegramNotifier(&mockSender{})

	err := n.Notify(context.Background(), "not-a-chat-id", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid destination id")
}

func TestNotify_DeliveryFailureReturned(t *testing.T) {
	sender := &mockSender{sendErr: errors.New("bot was blocked by the user")}
	n := newTelegramNotifier(sender)

	err := n.Notify(context.Background(), "42", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to deliver to destination 42")
}

func TestNotify_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	sender := &mockSender{sendErr: errors.New("network down")}
	n := newTelegramNotifier(sender)

	for i := 0; i < 5; i++ {
		require.Error(t, n.Notify(context.Background(), "42", "hello"))
	}

	err := n.Notify(context.Background(), "42", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestVideoAnnouncement(t *testing.T) {
	msg := VideoAnnouncement("Some Channel", "New Video", "https://www.youtube.com/watch?v=vid42")
	assert.Equal(t, "Some Channel uploaded a new video: New Video\nhttps://www.youtube.com/watch?v=vid42", msg)
}

func TestStreamAnnouncement_Default(t *testing.T) {
	sub := &domain.StreamSubscription{Login: "somestreamer", DisplayName: "SomeStreamer"}
	msg := StreamAnnouncement(sub, "Speedrunning all night")
	assert.Equal(t, "SomeStreamer is live: Speedrunning all night\nhttps://www.twitch.tv/somestreamer", msg)
}

func TestStreamAnnouncement_FallsBackToLogin(t *testing.T) {
	sub := &domain.StreamSubscription{Login: "somestreamer"}
	msg := StreamAnnouncement(sub, "title")
	assert.Contains(t, msg, "somestreamer is live")
}

func TestStreamAnnouncement_CustomMessage(t *testing.T) {
	sub := &domain.StreamSubscription{Login: "somestreamer", CustomMessage: "We are live, get in here!"}
	assert.Equal(t, "We are live, get in here!", StreamAnnouncement(sub, "ignored"))
}

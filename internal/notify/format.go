package notify

import (
	"fmt"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
)

// VideoAnnouncement formats the message for a new upload.
func VideoAnnouncement(channelTitle, videoTitle, link string) string {
	return fmt.Sprintf("%s uploaded a new video: %s\n%s", channelTitle, videoTitle, link)
}

// StreamAnnouncement formats the message for a live session. A custom
// announcement text on the subscription replaces the default entirely.
func StreamAnnouncement(sub *domain.StreamSubscription, streamTitle string) string {
	if sub.CustomMessage != "" {
		return sub.CustomMessage
	}

	name := sub.DisplayName
	if name == "" {
		name = sub.Login
	}
	return fmt.Sprintf("%s is live: %s\nhttps://www.twitch.tv/%s", name, streamTitle, sub.Login)
}

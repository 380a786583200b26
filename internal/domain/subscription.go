package domain

// VideoHistorySize bounds the per-subscription notified-video history.
// Oldest entries are evicted first.
const VideoHistorySize = 10

// VideoSubscription tracks one YouTube channel announcing new uploads to
// one destination chat. The uploads playlist id is resolved lazily on the
// first poll and cached here; it is an immutable platform identifier.
type VideoSubscription struct {
	ChannelID         string   `json:"channel_id"`
	ChannelTitle      string   `json:"channel_title"`
	UploadsPlaylistID string   `json:"uploads_playlist_id,omitempty"`
	DestinationID     string   `json:"destination_id"`
	LastNotifiedID    string   `json:"last_notified_id,omitempty"`
	History           []string `json:"history,omitempty"`
}

// StreamSubscription tracks one Twitch user announcing live sessions to one
// destination chat. LastNotifiedID holds the id of the live session that
// was last announced; it is cleared whenever the user is seen offline so
// the next session always announces.
type StreamSubscription struct {
	UserID         string `json:"user_id"`
	Login          string `json:"login"`
	DisplayName    string `json:"display_name"`
	DestinationID  string `json:"destination_id"`
	LastNotifiedID string `json:"last_notified_id,omitempty"`
	CustomMessage  string `json:"custom_message,omitempty"`
	AvatarURL      string `json:"avatar_url,omitempty"`
}

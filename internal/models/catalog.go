package models

import "time"

// Channel is a subscribed channel as captured from one subscriptions page.
//
// PageToken is the token that produced the batch this channel arrived in and
// NextPageToken the token for the following batch (empty if none). Timestamp is
// the capture time, used for staleness checks and continuation selection.
type Channel struct {
	ID            string    `json:"id"`
	Position      int       `json:"position"` // ordinal within its fetch batch
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"imageUrl"`
	PlaylistID    string    `json:"playlistId"` // the channel's uploads playlist
	PageToken     string    `json:"pageToken,omitempty"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// PlaylistItem is a single uploaded video captured from one playlist-items page.
// Shares the page-token and timestamp bookkeeping of [Channel], scoped to the
// owning channel.
type PlaylistItem struct {
	ID            string    `json:"id"`
	ChannelID     string    `json:"channelId"`
	Position      int       `json:"position"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"imageUrl"`
	VideoID       string    `json:"videoId"`
	PageToken     string    `json:"pageToken,omitempty"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// WatchURL returns the public watch address for the item's video.
func (p PlaylistItem) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + p.VideoID
}

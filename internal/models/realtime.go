package models

import "encoding/json"

// ChannelEventType enumerates score-sheet mutation events.
type ChannelEventType string

const (
	EventAddScoreSheet    ChannelEventType = "addScoreSheet"
	EventUpdateScoreSheet ChannelEventType = "updateScoreSheet"
	EventDeleteScoreSheet ChannelEventType = "deleteScoreSheet"
)

// ChannelEvent is broadcast to every subscriber of a training channel.
// Delivery is best-effort with per-channel FIFO ordering; there is no
// persistence or replay.
type ChannelEvent struct {
	Type         ChannelEventType `json:"type"`
	ScoreSheetID string           `json:"scoreSheetId"`
	Data         json.RawMessage  `json:"data,omitempty"`
}

// ChannelAccess is the token payload returned to connecting clients.
type ChannelAccess struct {
	Token     string `json:"token"`
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}

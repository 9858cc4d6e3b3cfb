package models

import (
	"time"
)

// Presence states. "online" means the user is looking at a conversation,
// "active" means connected but focused elsewhere. The distinction drives
// notification suppression: only an "online" recipient is spared one.
const (
	StatusOnline  = "online"
	StatusActive  = "active"
	StatusOffline = "offline"
)

// PresenceRecord is the derived, process-local availability view of one
// user. It is never persisted; a restart resets everyone to offline.
type PresenceRecord struct {
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
	// ViewingPeer is the friend whose conversation the user has open, set
	// while status is online via join_chat.
	ViewingPeer string `json:"for,omitempty"`
}

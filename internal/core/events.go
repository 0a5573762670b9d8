package core

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/voxmesh/meetrelay/internal/domain"
)

// Outbound event payloads. Type values are part of the wire contract and
// must not change.

type ExistingPeersEvent struct {
	Type  string      `json:"type"`
	Peers []SessionID `json:"peers"`
}

type RoomStatusEvent struct {
	Type string          `json:"type"` // created | ready | full
	Room domain.RoomName `json:"room,omitempty"`
}

type NewPeerEvent struct {
	Type string    `json:"type"`
	Peer SessionID `json:"peer"`
}

type PeerLeftEvent struct {
	Type string    `json:"type"`
	SID  SessionID `json:"sid"`
}

// SDPRelayEvent carries a directed offer or answer to its single target.
type SDPRelayEvent struct {
	Type string    `json:"type"` // offer | answer
	SDP  string    `json:"sdp"`
	From SessionID `json:"from"`
}

type CandidateRelayEvent struct {
	Type      string                  `json:"type"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	From      SessionID               `json:"from"`
}

// RelayFailedEvent tells a sender its directed message had no reachable
// target. Dropping these silently masks client bugs.
type RelayFailedEvent struct {
	Type  string    `json:"type"`
	To    SessionID `json:"to"`
	Event string    `json:"event"`
}

type TranscriptUpdateEvent struct {
	Type  string                 `json:"type"`
	Room  domain.RoomName        `json:"room"`
	Entry domain.TranscriptEntry `json:"entry"`
}

type AttentionUpdateEvent struct {
	Type  string          `json:"type"`
	SID   SessionID       `json:"sid"`
	Score float64         `json:"score"`
	Room  domain.RoomName `json:"room"`
}

type PongEvent struct {
	Type string  `json:"type"`
	Time float64 `json:"time,omitempty"`
}

// Encode marshals an event into a wire frame. Marshal errors are programmer
// errors (all event types are plain structs) and yield a nil frame.
func Encode(v any) Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.events").Msg("event marshal")
		return nil
	}
	return Frame(b)
}

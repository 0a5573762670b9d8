package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/voxmesh/meetrelay/internal/core"
	"github.com/voxmesh/meetrelay/internal/domain"
)

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad join payload")
		return
	}
	roomName := domain.RoomName(p.Room)
	if roomName == "" {
		roomName = "main"
	}

	// Ceiling is router policy, not a registry invariant.
	if ctl.MaxRoomSize > 0 {
		if room, ok := ctl.Orch.Registry.Room(roomName); ok && !room.Has(sid) && room.MemberCount() >= ctl.MaxRoomSize {
			log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("join rejected, room full")
			ctl.sendJSON(conn, core.RoomStatusEvent{Type: "full", Room: roomName})
			return
		}
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(roomName)).Msg("join")
	res, dep := ctl.Orch.Join(sid, roomName)

	// A join while in another room implies leaving it; tell its members.
	if dep != nil && dep.Remaining > 0 {
		ctl.Orch.Broadcast(dep.Room, core.Encode(core.PeerLeftEvent{Type: "peer-left", SID: sid}), sid)
	}

	// The pre-check above races with concurrent joins. The post-insert count
	// is authoritative: evict the overflow before anyone is told about it.
	if ctl.MaxRoomSize > 0 && res.Count > ctl.MaxRoomSize {
		ctl.Orch.Leave(sid, roomName)
		log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(roomName)).Msg("join rejected, room filled concurrently")
		ctl.sendJSON(conn, core.RoomStatusEvent{Type: "full", Room: roomName})
		return
	}

	ctl.sendJSON(conn, core.ExistingPeersEvent{Type: "existing-peers", Peers: res.ExistingPeers})
	switch {
	case res.IsFirst:
		ctl.sendJSON(conn, core.RoomStatusEvent{Type: "created"})
	case res.IsSecond:
		ctl.Orch.Broadcast(roomName, core.Encode(core.RoomStatusEvent{Type: "ready", Room: roomName}))
	}

	ctl.Orch.Broadcast(roomName, core.Encode(core.NewPeerEvent{Type: "new-peer", Peer: sid}), sid)
}

func (ctl *SignalWSController) handleLeave(
	sid core.SessionID,
	data []byte,
) {
	var p struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		log.Debug().Str("module", "signal").Msg("bad leave payload")
		return
	}
	roomName := domain.RoomName(p.Room)

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("leave")
	remaining := ctl.Orch.Leave(sid, roomName)
	if remaining > 0 {
		ctl.Orch.Broadcast(roomName, core.Encode(core.PeerLeftEvent{Type: "peer-left", SID: sid}), sid)
	}
}

func (ctl *SignalWSController) handleDisconnect(sid core.SessionID) {
	for _, dep := range ctl.Orch.Disconnect(sid) {
		if dep.Remaining > 0 {
			ctl.Orch.Broadcast(dep.Room, core.Encode(core.PeerLeftEvent{Type: "peer-left", SID: sid}), sid)
		}
	}
}

func (ctl *SignalWSController) handlePing(c *WsSignalConn, data []byte) {
	var p struct {
		Time float64 `json:"time"`
	}
	_ = json.Unmarshal(data, &p)
	ctl.sendJSON(c, core.PongEvent{Type: "pong", Time: p.Time})
}

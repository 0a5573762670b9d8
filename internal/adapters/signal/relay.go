package signal

import (
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/voxmesh/meetrelay/internal/app"
	"github.com/voxmesh/meetrelay/internal/core"
)

// handleSDPRelay forwards an offer or answer to its single target. Directed
// messages are never broadcast.
func (ctl *SignalWSController) handleSDPRelay(
	sid core.SessionID,
	conn *WsSignalConn,
	kind string,
	data []byte,
) {
	var p struct {
		Type string `json:"type"`
		To   string `json:"to"`
		SDP  string `json:"sdp"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Debug().Str("module", "signal").Str("type", kind).Msg("bad relay payload")
		return
	}

	f := core.Encode(core.SDPRelayEvent{Type: kind, SDP: p.SDP, From: sid})
	ctl.relay(sid, conn, core.SessionID(p.To), kind, f)
}

func (ctl *SignalWSController) handleCandidate(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		Type      string                  `json:"type"`
		To        string                  `json:"to"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Debug().Str("module", "signal").Msg("bad candidate payload")
		return
	}

	f := core.Encode(core.CandidateRelayEvent{Type: "ice-candidate", Candidate: p.Candidate, From: sid})
	ctl.relay(sid, conn, core.SessionID(p.To), "ice-candidate", f)
}

func (ctl *SignalWSController) relay(
	sid core.SessionID,
	conn *WsSignalConn,
	to core.SessionID,
	kind string,
	f core.Frame,
) {
	err := ctl.Orch.RelayTo(to, f)
	if err == nil {
		log.Debug().Str("module", "signal").Str("from", string(sid)).Str("to", string(to)).Str("type", kind).Msg("relayed")
		return
	}
	if errors.Is(err, app.ErrNoTarget) {
		log.Info().Str("module", "signal").Str("from", string(sid)).Str("to", string(to)).Str("type", kind).Msg("relay target gone")
		ctl.sendJSON(conn, core.RelayFailedEvent{Type: "relay-failed", To: to, Event: kind})
		return
	}
	log.Debug().Err(err).Str("module", "signal").Str("to", string(to)).Msg("relay send failed")
}

package signal

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxmesh/meetrelay/internal/core"
	"github.com/voxmesh/meetrelay/internal/domain"
)

// handleTranscriptText appends client-side recognition output directly to
// the transcript, bypassing the audio pipeline.
func (ctl *SignalWSController) handleTranscriptText(sid core.SessionID, data []byte) {
	var p struct {
		Type string `json:"type"`
		Room string `json:"room"`
		Text string `json:"text"`
		TS   int64  `json:"ts"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" || p.Text == "" {
		log.Debug().Str("module", "signal").Msg("bad transcript-text payload")
		return
	}
	ctl.Orch.TranscriptText(domain.RoomName(p.Room), p.Text, p.TS)
	log.Debug().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("transcript text appended")
}

func (ctl *SignalWSController) handleAttention(sid core.SessionID, data []byte) {
	var p struct {
		Type  string  `json:"type"`
		Room  string  `json:"room"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		log.Debug().Str("module", "signal").Msg("bad attention payload")
		return
	}
	ctl.Orch.Attention(sid, domain.RoomName(p.Room), p.Score)
}

func (ctl *SignalWSController) handleAudioChunk(sid core.SessionID, data []byte) {
	var p struct {
		Type string  `json:"type"`
		Room string  `json:"room"`
		B64  string  `json:"b64"`
		TS   float64 `json:"ts"` // client clock, unix milliseconds
		Seq  int64   `json:"seq"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" || p.B64 == "" {
		log.Debug().Str("module", "signal").Msg("bad audio-chunk payload")
		return
	}

	raw, err := base64.StdEncoding.DecodeString(p.B64)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad base64 audio")
		return
	}

	ts := int64(p.TS)
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	ctl.Orch.Registry.EnqueueAudio(domain.RoomName(p.Room), domain.AudioFragment{
		TS:   ts,
		Seq:  p.Seq,
		Data: raw,
	})
}

package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxmesh/meetrelay/internal/core"
	"github.com/voxmesh/meetrelay/internal/domain"
	"github.com/voxmesh/meetrelay/internal/summarize"
)

// ErrNoTarget reports a directed relay whose addressee has no live
// connection.
var ErrNoTarget = errors.New("no connection for target participant")

// Orchestrator ties the registry to the external collaborators. Transport
// adapters talk to it, never to rooms directly.
type Orchestrator struct {
	Registry   *Registry
	Summarizer summarize.Summarizer
}

func (o *Orchestrator) Connect(sid core.SessionID, conn core.SignalConnection) {
	o.Registry.BindConnection(sid, conn)
}

// Join performs the membership mutation and guarantees the room has a
// running audio worker.
func (o *Orchestrator) Join(sid core.SessionID, room domain.RoomName) (core.JoinResult, *Departure) {
	res, dep := o.Registry.Join(room, sid)
	o.Registry.EnsureWorker(room, o.EmitTranscript)
	return res, dep
}

func (o *Orchestrator) Leave(sid core.SessionID, room domain.RoomName) int {
	return o.Registry.Leave(room, sid)
}

func (o *Orchestrator) Disconnect(sid core.SessionID) []Departure {
	return o.Registry.Disconnect(sid)
}

// RelayTo delivers a frame to exactly one participant, never a room.
func (o *Orchestrator) RelayTo(to core.SessionID, f core.Frame) error {
	conn, ok := o.Registry.LookupConnection(to)
	if !ok {
		return ErrNoTarget
	}
	return conn.TrySend(f)
}

// Broadcast fans a frame out to the room's members, minus any exceptions.
func (o *Orchestrator) Broadcast(room domain.RoomName, f core.Frame, except ...core.SessionID) {
	rm, ok := o.Registry.Room(room)
	if !ok {
		return
	}
	rm.Broadcast(f, except...)
}

// TranscriptText appends a client-recognized entry, bypassing the audio
// pipeline, and notifies the room.
func (o *Orchestrator) TranscriptText(room domain.RoomName, text string, ts int64) domain.TranscriptEntry {
	if ts == 0 {
		ts = time.Now().Unix()
	}
	entry := domain.TranscriptEntry{TS: ts, Text: text}
	o.Registry.AppendTranscript(room, entry)
	o.EmitTranscript(room, entry)
	return entry
}

// EmitTranscript publishes a transcript-update to the room. Also the emit
// callback handed to audio workers.
func (o *Orchestrator) EmitTranscript(room domain.RoomName, entry domain.TranscriptEntry) {
	o.Broadcast(room, core.Encode(core.TranscriptUpdateEvent{
		Type:  "transcript-update",
		Room:  room,
		Entry: entry,
	}))
}

// Attention relays a client attention score to the room. Stateless.
func (o *Orchestrator) Attention(from core.SessionID, room domain.RoomName, score float64) {
	o.Broadcast(room, core.Encode(core.AttentionUpdateEvent{
		Type:  "attention-update",
		SID:   from,
		Score: score,
		Room:  room,
	}))
}

// Summary runs the summarizer over the room's transcript so far. Provider
// failure degrades to the local fallback, never to an error page.
func (o *Orchestrator) Summary(ctx context.Context, room domain.RoomName) string {
	var sb strings.Builder
	for _, e := range o.Registry.Transcript(room) {
		sb.WriteString(e.Text)
		sb.WriteByte('\n')
	}
	transcript := sb.String()

	s := o.Summarizer
	if s == nil {
		s = summarize.Local{}
	}
	out, err := s.Summarize(ctx, transcript)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.orchestrator").Str("room", string(room)).Str("provider", s.Name()).Msg("summarizer failed, using local fallback")
		out, _ = summarize.Local{}.Summarize(ctx, transcript)
	}
	return out
}

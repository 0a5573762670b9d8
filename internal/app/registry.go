package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/voxmesh/meetrelay/internal/core"
	"github.com/voxmesh/meetrelay/internal/domain"
	"github.com/voxmesh/meetrelay/internal/transcribe"
)

// RegistryOptions tunes room bookkeeping.
type RegistryOptions struct {
	QueueSize       int
	KeepTranscripts bool // keep the room record (and its transcript) when it empties
	Worker          WorkerConfig
}

// Departure reports a room a participant was removed from, so the caller can
// notify the remaining members.
type Departure struct {
	Room      domain.RoomName
	Remaining int
}

// Registry is the single source of truth for room membership and the owner
// of per-room audio workers. The registry mutex only guards the maps; every
// Room serializes its own mutations, so unrelated rooms never contend.
type Registry struct {
	ctx  context.Context
	opts RegistryOptions
	tr   transcribe.Transcriber

	mu      sync.RWMutex
	rooms   map[domain.RoomName]*core.Room
	conns   map[core.SessionID]core.SignalConnection
	sidRoom map[core.SessionID]domain.RoomName
}

// NewRegistry binds worker lifetimes to ctx: when ctx ends, every room
// worker ends with it.
func NewRegistry(ctx context.Context, opts RegistryOptions, tr transcribe.Transcriber) *Registry {
	return &Registry{
		ctx:     ctx,
		opts:    opts,
		tr:      tr,
		rooms:   make(map[domain.RoomName]*core.Room),
		conns:   make(map[core.SessionID]core.SignalConnection),
		sidRoom: make(map[core.SessionID]domain.RoomName),
	}
}

// BindConnection registers the transport endpoint for a session id.
func (r *Registry) BindConnection(sid core.SessionID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sid] = conn
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("connection bound")
}

func (r *Registry) UnbindConnection(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("connection unbound")
}

// LookupConnection resolves a directed-relay target.
func (r *Registry) LookupConnection(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[sid]
	return conn, ok
}

// Room returns the live room record, if any.
func (r *Registry) Room(name domain.RoomName) (*core.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[name]
	return room, ok
}

func (r *Registry) getOrCreateRoom(name domain.RoomName) *core.Room {
	r.mu.RLock()
	room, ok := r.rooms[name]
	r.mu.RUnlock()
	if ok {
		return room
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok = r.rooms[name]; ok {
		return room
	}
	room = core.NewRoom(name, r.opts.QueueSize)
	r.rooms[name] = room
	log.Info().Str("module", "app.registry").Str("room", string(name)).Msg("room created")
	return room
}

// Join adds the participant to the room, creating it if absent. A
// participant is in at most one room: joining while elsewhere leaves the
// previous room first, reported in the returned Departure (nil otherwise).
func (r *Registry) Join(name domain.RoomName, sid core.SessionID) (core.JoinResult, *Departure) {
	conn, _ := r.LookupConnection(sid)

	r.mu.Lock()
	prev, hadPrev := r.sidRoom[sid]
	r.sidRoom[sid] = name
	r.mu.Unlock()

	var dep *Departure
	if hadPrev && prev != name {
		if prevRoom, ok := r.Room(prev); ok {
			remaining := prevRoom.Leave(sid)
			if remaining == 0 {
				r.teardown(prevRoom)
			}
			dep = &Departure{Room: prev, Remaining: remaining}
		}
	}

	room := r.getOrCreateRoom(name)
	return room.Join(sid, conn), dep
}

// Leave removes the participant. The empty room is torn down: its worker is
// cancelled and, unless KeepTranscripts is set, the record is dropped.
func (r *Registry) Leave(name domain.RoomName, sid core.SessionID) int {
	room, ok := r.Room(name)
	if !ok {
		return 0
	}
	remaining := room.Leave(sid)

	r.mu.Lock()
	if r.sidRoom[sid] == name {
		delete(r.sidRoom, sid)
	}
	r.mu.Unlock()

	if remaining == 0 {
		r.teardown(room)
	}
	return remaining
}

// Disconnect removes the participant from whichever room holds it and
// unbinds its connection.
func (r *Registry) Disconnect(sid core.SessionID) []Departure {
	r.mu.Lock()
	name, ok := r.sidRoom[sid]
	delete(r.sidRoom, sid)
	delete(r.conns, sid)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	room, exists := r.Room(name)
	if !exists {
		return nil
	}
	remaining := room.Leave(sid)
	if remaining == 0 {
		r.teardown(room)
	}
	return []Departure{{Room: name, Remaining: remaining}}
}

func (r *Registry) teardown(room *core.Room) {
	room.StopWorker()
	if r.opts.KeepTranscripts {
		log.Info().Str("module", "app.registry").Str("room", string(room.Name())).Msg("room empty, transcript retained")
		return
	}
	r.mu.Lock()
	// Re-check under the map lock: a concurrent join may have revived it.
	if room.MemberCount() == 0 {
		delete(r.rooms, room.Name())
		log.Info().Str("module", "app.registry").Str("room", string(room.Name())).Msg("room removed")
	}
	r.mu.Unlock()
}

// EnqueueAudio appends a fragment to the room's inbound queue, creating the
// room record (without a worker) if needed. Audio may legitimately arrive
// before or after membership records and must not be dropped.
func (r *Registry) EnqueueAudio(name domain.RoomName, frag domain.AudioFragment) {
	r.getOrCreateRoom(name).EnqueueAudio(frag)
}

// EnsureWorker starts the room's audio worker if none is running. Idempotent
// and safe under concurrent joins: the room's own lock arbitrates.
func (r *Registry) EnsureWorker(name domain.RoomName, emit EmitFunc) {
	room := r.getOrCreateRoom(name)
	wctx, cancel := context.WithCancel(r.ctx)
	gen, ok := room.BeginWorker(cancel)
	if !ok {
		cancel()
		return
	}
	w := NewWorker(room, r.tr, emit, r.opts.Worker)
	go func() {
		defer room.ClearWorker(gen)
		w.Run(wctx)
	}()
}

// AppendTranscript records an externally supplied entry (a client doing its
// own recognition), creating the room record if needed.
func (r *Registry) AppendTranscript(name domain.RoomName, entry domain.TranscriptEntry) {
	r.getOrCreateRoom(name).AppendTranscript(entry)
}

// Transcript returns a copy of the room's transcript log, oldest first.
func (r *Registry) Transcript(name domain.RoomName) []domain.TranscriptEntry {
	room, ok := r.Room(name)
	if !ok {
		return nil
	}
	return room.Transcript()
}

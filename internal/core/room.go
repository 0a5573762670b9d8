package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/voxmesh/meetrelay/internal/domain"
)

// JoinResult is the membership snapshot handed back to a joiner. The peer
// list is captured strictly before the insert and never contains the joiner.
type JoinResult struct {
	ExistingPeers []SessionID
	Count         int // members after the insert
	IsFirst       bool
	IsSecond      bool
}

// Room is the threadsafe per-room state: participant set with join order,
// transcript log, inbound audio queue and the buffer-worker handle. All
// mutation happens under the room's own lock, so unrelated rooms never
// contend.
type Room struct {
	name domain.RoomName

	mu         sync.RWMutex
	members    map[SessionID]SignalConnection
	order      []SessionID
	transcript []domain.TranscriptEntry

	queue chan domain.AudioFragment

	workerGen    uint64
	workerOn     bool
	workerCancel context.CancelFunc
}

func NewRoom(name domain.RoomName, queueSize int) *Room {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Room{
		name:    name,
		members: make(map[SessionID]SignalConnection),
		queue:   make(chan domain.AudioFragment, queueSize),
	}
}

func (r *Room) Name() domain.RoomName { return r.name }

// Join adds the participant, creating no duplicates on re-join.
func (r *Room) Join(sid SessionID, conn SignalConnection) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers := make([]SessionID, 0, len(r.order))
	for _, id := range r.order {
		if id != sid {
			peers = append(peers, id)
		}
	}

	if _, ok := r.members[sid]; !ok {
		r.order = append(r.order, sid)
	}
	r.members[sid] = conn

	count := len(r.members)
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(sid)).Int("count", count).Msg("member joined")
	return JoinResult{
		ExistingPeers: peers,
		Count:         count,
		IsFirst:       count == 1,
		IsSecond:      count == 2,
	}
}

// Leave removes the participant and returns the remaining member count.
// Removing an absent participant is a no-op.
func (r *Room) Leave(sid SessionID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[sid]; !ok {
		return len(r.members)
	}
	delete(r.members, sid)
	for i, id := range r.order {
		if id == sid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(sid)).Int("remaining", len(r.members)).Msg("member left")
	return len(r.members)
}

func (r *Room) Has(sid SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[sid]
	return ok
}

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Members returns the participant ids in join order.
func (r *Room) Members() []SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionID, len(r.order))
	copy(out, r.order)
	return out
}

// Broadcast fans a frame out to every member not listed in except. Slow
// consumers drop the frame rather than stall the room.
func (r *Room) Broadcast(f Frame, except ...SessionID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sent := 0
	for sid, conn := range r.members {
		skip := false
		for _, ex := range except {
			if sid == ex {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if err := conn.TrySend(f); err != nil {
			log.Debug().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(sid)).Msg("broadcast dropped, backpressure")
			continue
		}
		sent++
	}
	return sent
}

func (r *Room) AppendTranscript(e domain.TranscriptEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript = append(r.transcript, e)
}

func (r *Room) Transcript() []domain.TranscriptEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TranscriptEntry, len(r.transcript))
	copy(out, r.transcript)
	return out
}

func (r *Room) ClearTranscript() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript = nil
}

// EnqueueAudio appends a fragment to the inbound queue without ever blocking
// the producer. A full queue drops the fragment.
func (r *Room) EnqueueAudio(frag domain.AudioFragment) bool {
	select {
	case r.queue <- frag:
		return true
	default:
		log.Debug().Str("module", "core.room").Str("room", string(r.name)).Msg("audio queue full, fragment dropped")
		return false
	}
}

// Queue exposes the inbound audio queue to its single consumer, the room's
// buffer worker.
func (r *Room) Queue() <-chan domain.AudioFragment {
	return r.queue
}

// BeginWorker records the worker handle and returns the claim's generation.
// Returns false when a worker is already running so concurrent joins can
// never start two.
func (r *Room) BeginWorker(cancel context.CancelFunc) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workerOn {
		return 0, false
	}
	r.workerGen++
	r.workerOn = true
	r.workerCancel = cancel
	return r.workerGen, true
}

// StopWorker signals the running worker to exit, if any.
func (r *Room) StopWorker() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.workerOn {
		return
	}
	if r.workerCancel != nil {
		r.workerCancel()
	}
	r.workerOn = false
	r.workerCancel = nil
}

// ClearWorker releases the handle claimed under gen when its worker exits.
// A cancelled worker can exit long after StopWorker, once a successor
// already holds the handle; the generation check makes that late release a
// no-op instead of orphaning the successor.
func (r *Room) ClearWorker(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.workerOn || r.workerGen != gen {
		return
	}
	r.workerOn = false
	r.workerCancel = nil
}

func (r *Room) WorkerRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workerOn
}

package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/voxmesh/meetrelay/internal/core"
	"github.com/voxmesh/meetrelay/internal/domain"
	"github.com/voxmesh/meetrelay/internal/transcribe"
)

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

func newTestRegistry(t *testing.T, opts RegistryOptions) *Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if opts.Worker.FlushInterval == 0 {
		opts.Worker.FlushInterval = 20 * time.Millisecond
	}
	return NewRegistry(ctx, opts, transcribe.Static{})
}

func TestJoinEnforcesSingleRoom(t *testing.T) {
	reg := newTestRegistry(t, RegistryOptions{})
	reg.BindConnection("a", nopConn{})
	reg.BindConnection("b", nopConn{})

	reg.Join("one", "a")
	reg.Join("one", "b")

	_, dep := reg.Join("two", "b")
	if dep == nil {
		t.Fatal("join to a second room reported no departure")
	}
	if dep.Room != "one" || dep.Remaining != 1 {
		t.Fatalf("departure %+v, want room one with 1 remaining", dep)
	}

	one, ok := reg.Room("one")
	if !ok {
		t.Fatal("room one disappeared while still occupied")
	}
	if one.Has("b") {
		t.Fatal("participant still recorded in the room it implicitly left")
	}
}

func TestRejoinSameRoomNoDeparture(t *testing.T) {
	reg := newTestRegistry(t, RegistryOptions{})
	reg.BindConnection("a", nopConn{})

	reg.Join("one", "a")
	res, dep := reg.Join("one", "a")
	if dep != nil {
		t.Fatalf("re-join reported departure %+v", dep)
	}
	if len(res.ExistingPeers) != 0 {
		t.Fatalf("re-joiner saw itself as existing peer: %v", res.ExistingPeers)
	}
}

func TestLeaveTearsDownEmptyRoom(t *testing.T) {
	reg := newTestRegistry(t, RegistryOptions{})
	reg.BindConnection("a", nopConn{})

	reg.Join("r", "a")
	reg.EnsureWorker("r", nil)

	room, ok := reg.Room("r")
	if !ok || !room.WorkerRunning() {
		t.Fatal("worker not running after EnsureWorker")
	}

	if remaining := reg.Leave("r", "a"); remaining != 0 {
		t.Fatalf("remaining %d after sole member left, want 0", remaining)
	}

	if _, ok := reg.Room("r"); ok {
		t.Fatal("empty room still registered")
	}

	deadline := time.Now().Add(time.Second)
	for room.WorkerRunning() {
		if time.Now().After(deadline) {
			t.Fatal("worker of an empty room still running past grace period")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestKeepTranscriptsRetainsEmptyRoom(t *testing.T) {
	reg := newTestRegistry(t, RegistryOptions{KeepTranscripts: true})
	reg.BindConnection("a", nopConn{})

	reg.Join("r", "a")
	reg.AppendTranscript("r", domain.TranscriptEntry{TS: 1, Text: "hello"})
	reg.Leave("r", "a")

	got := reg.Transcript("r")
	if len(got) != 1 || got[0].Text != "hello" {
		t.Fatalf("transcript after transient empty = %v, want retained entry", got)
	}
}

func TestTranscriptDroppedWithRoomByDefault(t *testing.T) {
	reg := newTestRegistry(t, RegistryOptions{})
	reg.BindConnection("a", nopConn{})

	reg.Join("r", "a")
	reg.AppendTranscript("r", domain.TranscriptEntry{TS: 1, Text: "hello"})
	reg.Leave("r", "a")

	if got := reg.Transcript("r"); len(got) != 0 {
		t.Fatalf("transcript survived room teardown: %v", got)
	}
}

func TestEnsureWorkerIdempotentUnderConcurrency(t *testing.T) {
	reg := newTestRegistry(t, RegistryOptions{})
	reg.BindConnection("a", nopConn{})
	reg.Join("r", "a")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.EnsureWorker("r", nil)
		}()
	}
	wg.Wait()

	room, _ := reg.Room("r")
	if !room.WorkerRunning() {
		t.Fatal("no worker after concurrent EnsureWorker calls")
	}
	// Exactly one worker holds the handle; another claim must be refused.
	if _, ok := room.BeginWorker(func() {}); ok {
		t.Fatal("worker handle was free: more than zero or one worker started")
	}
}

// stallTranscriber blocks inside Transcribe until released, ignoring
// cancellation, so a test can hold a worker in flight past its StopWorker.
type stallTranscriber struct {
	entered chan struct{}
	release chan struct{}
}

func (s *stallTranscriber) Name() string { return "stall" }
func (s *stallTranscriber) Transcribe(context.Context, []byte) (string, error) {
	s.entered <- struct{}{}
	<-s.release
	return "late", nil
}

func TestCancelledWorkerExitKeepsSuccessorAlive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	tr := &stallTranscriber{entered: make(chan struct{}, 1), release: make(chan struct{})}
	reg := NewRegistry(ctx, RegistryOptions{
		KeepTranscripts: true,
		Worker:          WorkerConfig{FlushInterval: 10 * time.Millisecond, FlushCount: 1},
	}, tr)
	reg.BindConnection("a", nopConn{})

	reg.Join("r", "a")
	reg.EnsureWorker("r", nil)
	reg.EnqueueAudio("r", domain.AudioFragment{TS: 1, Seq: 1, Data: []byte("x")})

	select {
	case <-tr.entered:
	case <-time.After(time.Second):
		t.Fatal("worker never reached the transcriber")
	}

	// Teardown cancels the worker while it is stuck inside Transcribe; the
	// cancellation cannot take effect until the call returns.
	reg.Leave("r", "a")

	// A re-join starts a fresh worker while the old one is still in flight.
	reg.Join("r", "a")
	reg.EnsureWorker("r", nil)
	room, ok := reg.Room("r")
	if !ok || !room.WorkerRunning() {
		t.Fatal("no worker after re-join")
	}

	// Release the old worker. Its late exit must not free the fresh worker's
	// handle.
	close(tr.release)
	deadline := time.Now().Add(time.Second)
	for {
		entries := room.Transcript()
		if len(entries) > 0 && entries[len(entries)-1].Text == "late" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("released worker never flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if !room.WorkerRunning() {
		t.Fatal("late exit of the cancelled worker cleared the live worker's handle")
	}

	// Teardown must still reach the fresh worker.
	reg.Leave("r", "a")
	deadline = time.Now().Add(time.Second)
	for room.WorkerRunning() {
		if time.Now().After(deadline) {
			t.Fatal("worker of an empty room still running past grace period")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEnqueueAudioBeforeMembership(t *testing.T) {
	reg := newTestRegistry(t, RegistryOptions{})

	reg.EnqueueAudio("early", domain.AudioFragment{TS: 1, Seq: 1, Data: []byte("x")})

	room, ok := reg.Room("early")
	if !ok {
		t.Fatal("audio before membership did not create the room record")
	}
	if room.WorkerRunning() {
		t.Fatal("audio enqueue alone started a worker")
	}
	select {
	case frag := <-room.Queue():
		if string(frag.Data) != "x" {
			t.Fatalf("queued fragment %q, want x", frag.Data)
		}
	default:
		t.Fatal("fragment missing from the queue")
	}
}

func TestDisconnectCleansEveryTrace(t *testing.T) {
	reg := newTestRegistry(t, RegistryOptions{})
	reg.BindConnection("a", nopConn{})
	reg.BindConnection("b", nopConn{})
	reg.Join("r", "a")
	reg.Join("r", "b")

	deps := reg.Disconnect("a")
	if len(deps) != 1 || deps[0].Room != "r" || deps[0].Remaining != 1 {
		t.Fatalf("disconnect departures %v, want [{r 1}]", deps)
	}
	if _, ok := reg.LookupConnection("a"); ok {
		t.Fatal("connection still resolvable after disconnect")
	}
	room, _ := reg.Room("r")
	if room.Has("a") {
		t.Fatal("phantom member after disconnect")
	}

	if deps := reg.Disconnect("a"); deps != nil {
		t.Fatalf("second disconnect reported departures %v", deps)
	}
}

func TestLookupConnection(t *testing.T) {
	reg := newTestRegistry(t, RegistryOptions{})
	conn := nopConn{}
	reg.BindConnection("a", conn)

	if _, ok := reg.LookupConnection("a"); !ok {
		t.Fatal("bound connection not found")
	}
	if _, ok := reg.LookupConnection("ghost"); ok {
		t.Fatal("unknown participant resolved to a connection")
	}
}

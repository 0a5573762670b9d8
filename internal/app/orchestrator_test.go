package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voxmesh/meetrelay/internal/core"
	"github.com/voxmesh/meetrelay/internal/domain"
)

type recConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *recConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *recConn) Close() {}

func (c *recConn) Frames() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *recConn) typesSeen(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, f := range c.Frames() {
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("undecodable frame %s: %v", f, err)
		}
		types = append(types, env.Type)
	}
	return types
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *recConn, *recConn, *recConn) {
	t.Helper()
	reg := newTestRegistry(t, RegistryOptions{Worker: WorkerConfig{FlushInterval: time.Hour}})
	o := &Orchestrator{Registry: reg}

	a, b, c := &recConn{}, &recConn{}, &recConn{}
	o.Connect("a", a)
	o.Connect("b", b)
	o.Connect("c", c)
	o.Join("a", "r")
	o.Join("b", "r")
	o.Join("c", "r")
	return o, a, b, c
}

func TestDirectedRelayReachesOnlyTarget(t *testing.T) {
	o, a, b, c := newTestOrchestrator(t)

	f := core.Encode(core.SDPRelayEvent{Type: "offer", SDP: "v=0...", From: "a"})
	if err := o.RelayTo("b", f); err != nil {
		t.Fatalf("relay failed: %v", err)
	}

	if n := len(b.Frames()); n != 1 {
		t.Fatalf("target received %d frames, want 1", n)
	}
	if len(a.Frames()) != 0 || len(c.Frames()) != 0 {
		t.Fatal("directed offer leaked beyond its target")
	}

	var got core.SDPRelayEvent
	if err := json.Unmarshal(b.Frames()[0], &got); err != nil {
		t.Fatalf("decode relayed offer: %v", err)
	}
	if got.From != "a" || got.SDP != "v=0..." {
		t.Errorf("relayed payload %+v lost sender or sdp", got)
	}
}

func TestRelayToUnknownTarget(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	err := o.RelayTo("ghost", core.Encode(core.SDPRelayEvent{Type: "answer", From: "a"}))
	if !errors.Is(err, ErrNoTarget) {
		t.Fatalf("relay to unknown target returned %v, want ErrNoTarget", err)
	}
}

func TestTranscriptTextAppendsAndNotifies(t *testing.T) {
	o, a, b, c := newTestOrchestrator(t)

	entry := o.TranscriptText("r", "hello room", 0)
	if entry.TS == 0 {
		t.Error("missing timestamp not defaulted to now")
	}

	log := o.Registry.Transcript("r")
	if len(log) != 1 || log[0].Text != "hello room" {
		t.Fatalf("transcript log %v, want the appended entry", log)
	}

	for name, conn := range map[string]*recConn{"a": a, "b": b, "c": c} {
		frames := conn.Frames()
		if len(frames) != 1 {
			t.Fatalf("%s received %d frames, want 1", name, len(frames))
		}
		var got core.TranscriptUpdateEvent
		if err := json.Unmarshal(frames[0], &got); err != nil {
			t.Fatalf("decode update: %v", err)
		}
		if got.Type != "transcript-update" || got.Entry.Text != "hello room" {
			t.Errorf("%s got %+v, want transcript-update with text", name, got)
		}
	}
}

func TestAttentionBroadcast(t *testing.T) {
	o, a, b, _ := newTestOrchestrator(t)

	o.Attention("a", "r", 0.42)

	frames := b.Frames()
	if len(frames) != 1 {
		t.Fatalf("member received %d frames, want 1", len(frames))
	}
	var got core.AttentionUpdateEvent
	if err := json.Unmarshal(frames[0], &got); err != nil {
		t.Fatalf("decode attention-update: %v", err)
	}
	if got.SID != "a" || got.Score != 0.42 || got.Room != "r" {
		t.Errorf("attention-update %+v, want sid a score 0.42 room r", got)
	}
	// Pure relay, no state: the sender gets it too.
	if types := a.typesSeen(t); len(types) != 1 || types[0] != "attention-update" {
		t.Errorf("sender saw %v, want [attention-update]", types)
	}
}

type failingSummarizer struct{}

func (failingSummarizer) Name() string { return "broken" }
func (failingSummarizer) Summarize(context.Context, string) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestSummaryDegradesToLocalFallback(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	o.Summarizer = failingSummarizer{}
	o.Registry.AppendTranscript("r", domain.TranscriptEntry{TS: 1, Text: "we shipped the relay"})

	out := o.Summary(context.Background(), "r")
	if out == "" {
		t.Fatal("summary empty despite local fallback")
	}
}

func TestSummaryOfUnknownRoom(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	out := o.Summary(context.Background(), "nowhere")
	if out == "" {
		t.Fatal("summary of empty transcript should still produce text")
	}
}

package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxmesh/meetrelay/internal/core"
	"github.com/voxmesh/meetrelay/internal/domain"
	"github.com/voxmesh/meetrelay/internal/transcribe"
)

// WorkerConfig tunes the per-room flush scheduler.
type WorkerConfig struct {
	FlushInterval     time.Duration // flush the buffer once this much time passed since the last flush
	FlushCount        int           // or as soon as this many fragments are buffered
	MinFlushBytes     int           // windows smaller than this are discarded untranscribed
	TranscribeTimeout time.Duration // bound on a single transcription call
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.FlushInterval <= 0 {
		c.FlushInterval = 3 * time.Second
	}
	if c.FlushCount <= 0 {
		c.FlushCount = 5
	}
	if c.TranscribeTimeout <= 0 {
		c.TranscribeTimeout = 15 * time.Second
	}
	return c
}

// EmitFunc publishes a fresh transcript entry to the room's members.
type EmitFunc func(room domain.RoomName, entry domain.TranscriptEntry)

// Worker drains one room's audio queue, batches fragments and feeds the
// transcriber. One goroutine per room so a slow transcription call never
// stalls another room's flush cadence.
type Worker struct {
	room *core.Room
	tr   transcribe.Transcriber
	emit EmitFunc
	cfg  WorkerConfig

	now func() time.Time // test hook
}

func NewWorker(room *core.Room, tr transcribe.Transcriber, emit EmitFunc, cfg WorkerConfig) *Worker {
	return &Worker{
		room: room,
		tr:   tr,
		emit: emit,
		cfg:  cfg.withDefaults(),
		now:  time.Now,
	}
}

// Run loops until ctx is cancelled. Cancellation is checked every iteration;
// an unflushed buffer is discarded on exit. The caller that claimed the
// room's worker handle releases it when Run returns.
func (w *Worker) Run(ctx context.Context) {
	room := string(w.room.Name())
	log.Info().Str("module", "app.worker").Str("room", room).Msg("audio worker started")

	var buf []domain.AudioFragment
	lastFlush := w.now()

	for {
		select {
		case <-ctx.Done():
			if len(buf) > 0 {
				log.Debug().Str("module", "app.worker").Str("room", room).Int("fragments", len(buf)).Msg("worker cancelled, buffer discarded")
			}
			log.Info().Str("module", "app.worker").Str("room", room).Msg("audio worker stopped")
			return
		default:
		}

		wait := w.cfg.FlushInterval - w.now().Sub(lastFlush)
		if wait < time.Millisecond {
			wait = time.Millisecond
		}

		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.worker").Str("room", room).Msg("audio worker stopped")
			return
		case frag := <-w.room.Queue():
			buf = append(buf, frag)
			if len(buf) >= w.cfg.FlushCount || w.now().Sub(lastFlush) >= w.cfg.FlushInterval {
				w.flush(ctx, buf)
				buf = nil
				lastFlush = w.now()
			}
		case <-time.After(wait):
			if len(buf) > 0 {
				w.flush(ctx, buf)
				buf = nil
			}
			// Idle windows restart the clock so the first fragment of a
			// burst gets a full interval of accumulation.
			lastFlush = w.now()
		}
	}
}

// flush assembles the window in (timestamp, sequence) order and submits it
// for transcription. Failures end the cycle, never the worker.
func (w *Worker) flush(ctx context.Context, buf []domain.AudioFragment) {
	room := string(w.room.Name())

	sort.Slice(buf, func(i, j int) bool {
		if buf[i].TS != buf[j].TS {
			return buf[i].TS < buf[j].TS
		}
		return buf[i].Seq < buf[j].Seq
	})

	total := 0
	for _, f := range buf {
		total += len(f.Data)
	}
	if total < w.cfg.MinFlushBytes {
		log.Debug().Str("module", "app.worker").Str("room", room).Int("bytes", total).Msg("window below minimum size, discarded")
		return
	}

	data := make([]byte, 0, total)
	for _, f := range buf {
		data = append(data, f.Data...)
	}

	tctx, cancel := context.WithTimeout(ctx, w.cfg.TranscribeTimeout)
	defer cancel()

	text, err := w.tr.Transcribe(tctx, data)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.worker").Str("room", room).Msg("transcription failed, window skipped")
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	entry := domain.TranscriptEntry{TS: w.now().Unix(), Text: text}
	w.room.AppendTranscript(entry)
	log.Debug().Str("module", "app.worker").Str("room", room).Int("bytes", total).Int("fragments", len(buf)).Msg("window transcribed")
	if w.emit != nil {
		w.emit(w.room.Name(), entry)
	}
}

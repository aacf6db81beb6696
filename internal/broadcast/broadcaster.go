// internal/broadcast/broadcaster.go
package broadcast

import (
	"context"
	"sync"

	"github.com/tamzrod/line-inspector/internal/detect"
)

// Mode is the detection health seen by viewers.
type Mode uint8

const (
	// ModeInitializing: no annotated frame published yet.
	ModeInitializing Mode = iota
	// ModeActive: detection is producing annotated frames.
	ModeActive
	// ModeDegraded: the model failed to load; frames are raw.
	ModeDegraded
)

func (m Mode) String() string {
	switch m {
	case ModeInitializing:
		return "initializing"
	case ModeActive:
		return "active"
	case ModeDegraded:
		return "degraded"
	}
	return "unknown"
}

// Broadcaster holds the latest encoded frame and detection snapshot.
// One writer (the detection loop), any number of readers.
// The lock covers only the swap; frames are never mutated after publish.
type Broadcaster struct {
	mu      sync.Mutex
	frame   []byte
	snap    detect.Snapshot
	hasSnap bool
	seq     uint64
	mode    Mode
	reason  string

	// closed and replaced on every publish
	notify chan struct{}
}

// New returns an empty broadcaster in ModeInitializing.
func New() *Broadcaster {
	return &Broadcaster{notify: make(chan struct{})}
}

// Publish replaces the latest frame and snapshot.
func (b *Broadcaster) Publish(frame []byte, snap detect.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frame = frame
	b.snap = snap
	b.hasSnap = true
	if b.mode != ModeDegraded {
		b.mode = ModeActive
	}
	b.bumpLocked()
}

// PublishRaw replaces the latest frame only. The snapshot is left as is.
func (b *Broadcaster) PublishRaw(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frame = frame
	b.bumpLocked()
}

// MarkDegraded records that detection is unavailable.
func (b *Broadcaster) MarkDegraded(reason error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mode = ModeDegraded
	if reason != nil {
		b.reason = reason.Error()
	}
}

// Latest returns the most recent frame, nil before the first publish.
func (b *Broadcaster) Latest() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}

// Snapshot returns the latest detection snapshot and whether one exists.
func (b *Broadcaster) Snapshot() (detect.Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap, b.hasSnap
}

// Seq increases by one on every publish.
func (b *Broadcaster) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// Mode returns the detection mode and, when degraded, the reason.
func (b *Broadcaster) Mode() (Mode, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode, b.reason
}

// Wait blocks until a frame newer than afterSeq exists and returns it with
// its sequence number. Slow readers skip frames; there is no per-reader queue.
func (b *Broadcaster) Wait(ctx context.Context, afterSeq uint64) ([]byte, uint64, error) {
	for {
		b.mu.Lock()
		if b.seq > afterSeq && b.frame != nil {
			frame, seq := b.frame, b.seq
			b.mu.Unlock()
			return frame, seq, nil
		}
		ch := b.notify
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, afterSeq, ctx.Err()
		case <-ch:
		}
	}
}

func (b *Broadcaster) bumpLocked() {
	b.seq++
	close(b.notify)
	b.notify = make(chan struct{})
}

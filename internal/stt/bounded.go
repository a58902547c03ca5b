package stt

import (
	"context"
	"time"

	"github.com/metalagman/coopfunnel/internal/inbound"
	"github.com/metalagman/coopfunnel/internal/logging"
)

// Observer receives the latency and outcome of each transcription.
type Observer func(collaborator string, start time.Time, err error)

// Bounded limits every transcription to a timeout.
type Bounded struct {
	next    inbound.Transcriber
	timeout time.Duration
	observe Observer
}

// NewBounded wraps next. A zero timeout leaves the caller's deadline alone; observe may be nil.
func NewBounded(next inbound.Transcriber, timeout time.Duration, observe Observer) *Bounded {
	return &Bounded{next: next, timeout: timeout, observe: observe}
}

// Transcribe implements inbound.Transcriber.
func (b *Bounded) Transcribe(ctx context.Context, audio []byte, mime string) (string, error) {
	defer logging.Timed("stt.transcribe")()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := b.next.Transcribe(ctx, audio, mime)
	if b.observe != nil {
		b.observe("speech", start, err)
	}
	return text, err
}

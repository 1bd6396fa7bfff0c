package llm

import (
	"context"
	"strings"
	"time"
)

// Streaming batch tuning: content tokens are coalesced until either the
// batch-size target is reached or the flush interval elapses.
const (
	streamBatchSize     = 5
	streamFlushInterval = 100 * time.Millisecond
)

// rawEvent is one unbatched unit from a provider stream. A non-nil err is
// terminal; the provider closes the channel right after.
type rawEvent struct {
	text     string
	thinking bool
	err      error
}

// emitRaw sends one event unless the context is already done; providers use
// it so a cancelled consumer never strands them on a blocked send.
func emitRaw(ctx context.Context, raw chan<- rawEvent, ev rawEvent) {
	select {
	case raw <- ev:
	case <-ctx.Done():
	}
}

// batchStream turns a raw provider stream into the public chunk contract:
// thinking events pass through immediately, content tokens are batched, and
// cancellation or a provider error flushes the buffer before the terminal
// metadata chunk.
func batchStream(ctx context.Context, raw <-chan rawEvent, model string) <-chan StreamChunk {
	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		var buf strings.Builder
		pending := 0
		timer := time.NewTimer(streamFlushInterval)
		defer timer.Stop()

		flush := func() {
			if buf.Len() == 0 {
				return
			}
			out <- StreamChunk{Content: buf.String()}
			buf.Reset()
			pending = 0
		}

		for {
			select {
			case <-ctx.Done():
				flush()
				out <- StreamChunk{Metadata: map[string]any{"cancelled": true}}
				return
			case ev, ok := <-raw:
				if !ok {
					flush()
					return
				}
				if ev.err != nil {
					flush()
					out <- StreamChunk{Metadata: map[string]any{
						"error":      ClassifyError(ev.err, model),
						"error_type": errorKind(ev.err),
					}}
					return
				}
				if ev.thinking {
					out <- StreamChunk{Content: ev.text, Thinking: true}
					continue
				}
				buf.WriteString(ev.text)
				pending++
				if pending >= streamBatchSize {
					flush()
					timer.Reset(streamFlushInterval)
				}
			case <-timer.C:
				flush()
				timer.Reset(streamFlushInterval)
			}
		}
	}()
	return out
}

package redact

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

// ChunkResult is one step of a streaming redaction: the redacted bytes
// released by this step and the spans that closed inside them. Span
// offsets are absolute positions in the concatenated input.
type ChunkResult struct {
	RedactedChunk string
	SpansClosed   []phi.Span
}

// Streamer is the chunked front-end over the engine. A rolling window
// of the policy's streamingBuffer bytes is retained between pushes so
// multi-token detections can cross chunk boundaries; a span is released
// only once the window has advanced past its end. Every input byte
// appears exactly once across the released chunks, in order.
type Streamer struct {
	engine  *Engine
	pol     *policy.Policy
	session string
	buf     []byte
	base    int
	closed  bool
}

// NewStreamer starts a streaming redaction under the policy. Token
// consistency across chunks is session-scoped inside the streamer;
// receipts are not emitted per chunk.
func (e *Engine) NewStreamer(pol *policy.Policy) (*Streamer, error) {
	if pol == nil {
		pol = policy.Default(policy.ProfileHIPAAStrict)
	}
	if err := pol.Validate(); err != nil {
		return nil, err
	}
	pol = pol.Clone()
	pol.EmitReceipt = false
	return &Streamer{
		engine:  e,
		pol:     pol,
		session: uuid.NewString(),
	}, nil
}

// Push appends a chunk and releases whatever the look-behind window
// allows. The returned chunk may be empty while the window fills.
func (st *Streamer) Push(ctx context.Context, chunk string) (*ChunkResult, error) {
	if st.closed {
		return nil, fmt.Errorf("push on closed streamer")
	}
	st.buf = append(st.buf, chunk...)
	keep := st.pol.StreamingBuffer
	if keep <= 0 {
		keep = policy.DefaultStreamingBuffer
	}
	if len(st.buf) <= keep {
		return &ChunkResult{}, nil
	}
	return st.emit(ctx, len(st.buf)-keep)
}

// Close flushes the window, releasing every remaining byte and any
// spans fully contained in it, and ends the stream. Close is also the
// cooperative cancellation path: it never blocks on the caller context.
func (st *Streamer) Close() (*ChunkResult, error) {
	if st.closed {
		return &ChunkResult{}, nil
	}
	st.closed = true
	if len(st.buf) == 0 {
		return &ChunkResult{}, nil
	}
	return st.emit(context.Background(), len(st.buf))
}

// emit redacts the buffered text and releases the prefix up to emitEnd,
// nudged left so no span is cut mid-range.
func (st *Streamer) emit(ctx context.Context, emitEnd int) (*ChunkResult, error) {
	rctx := phi.NewContext(st.session, uuid.NewString(), phi.ScopeSession)
	a, err := st.engine.analyze(ctx, string(st.buf), st.pol, rctx)
	if err != nil {
		return nil, err
	}

	for _, s := range a.spans {
		if s.CharStart < emitEnd && s.CharEnd > emitEnd {
			emitEnd = s.CharStart
		}
	}

	// Replacements are assigned only to the spans actually released, so
	// a tentative match still inside the look-behind window never burns
	// a token counter.
	var closedRel []phi.Span
	for _, s := range a.spans {
		if s.CharEnd <= emitEnd {
			closedRel = append(closedRel, s)
		}
	}
	closedRel = st.engine.replacer.Assign(closedRel, st.pol, rctx)
	prefix := substitute(string(st.buf[:emitEnd]), closedRel)

	closed := make([]phi.Span, len(closedRel))
	for i, s := range closedRel {
		s.CharStart += st.base
		s.CharEnd += st.base
		closed[i] = s
	}

	st.buf = st.buf[emitEnd:]
	st.base += emitEnd
	return &ChunkResult{RedactedChunk: prefix, SpansClosed: closed}, nil
}

// StreamEvent is one element of the channel-driven streaming API.
type StreamEvent struct {
	ChunkResult
	Err error
}

// RedactStream drives a Streamer from a channel of chunks, yielding a
// lazy sequence of results. The output channel closes after the input
// channel closes and the window has flushed, or after the first error.
// Cancelling the context flushes the window and closes cleanly.
func (e *Engine) RedactStream(ctx context.Context, chunks <-chan string, pol *policy.Policy) <-chan StreamEvent {
	out := make(chan StreamEvent)
	go func() {
		defer close(out)
		st, err := e.NewStreamer(pol)
		if err != nil {
			out <- StreamEvent{Err: err}
			return
		}
		flush := func() {
			r, err := st.Close()
			if err != nil {
				out <- StreamEvent{Err: err}
				return
			}
			if r.RedactedChunk != "" || len(r.SpansClosed) > 0 {
				out <- StreamEvent{ChunkResult: *r}
			}
		}
		for {
			select {
			case <-ctx.Done():
				flush()
				return
			case chunk, ok := <-chunks:
				if !ok {
					flush()
					return
				}
				r, err := st.Push(ctx, chunk)
				if err != nil {
					out <- StreamEvent{Err: err}
					return
				}
				if r.RedactedChunk != "" || len(r.SpansClosed) > 0 {
					out <- StreamEvent{ChunkResult: *r}
				}
			}
		}
	}()
	return out
}

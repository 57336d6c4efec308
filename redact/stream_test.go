package redact

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

func collectStream(t *testing.T, chunks []string, pol *policy.Policy) (string, []phi.Span) {
	t.Helper()
	engine := NewEngine()
	st, err := engine.NewStreamer(pol)
	require.NoError(t, err)

	var out strings.Builder
	var spans []phi.Span
	for _, chunk := range chunks {
		r, err := st.Push(context.Background(), chunk)
		require.NoError(t, err)
		out.WriteString(r.RedactedChunk)
		spans = append(spans, r.SpansClosed...)
	}
	r, err := st.Close()
	require.NoError(t, err)
	out.WriteString(r.RedactedChunk)
	spans = append(spans, r.SpansClosed...)
	return out.String(), spans
}

// TestStreamMatchesBatch tests the boundary-crossing name scenario
func TestStreamMatchesBatch(t *testing.T) {
	chunks := []string{"Patient John ", "Smith, MD had ", " a visit"}
	full := strings.Join(chunks, "")
	pol := policy.Default(policy.ProfileHIPAAStrict)
	pol.StreamingBuffer = 32

	batch := mustRedact(t, full, pol)
	streamed, spans := collectStream(t, chunks, pol)

	assert.Equal(t, batch.Text, streamed)
	require.Len(t, spans, 1)
	assert.Equal(t, phi.FilterName, spans[0].FilterType)
	assert.Equal(t, "John Smith, MD", spans[0].OriginalValue)
	// Offsets are absolute in the concatenated input.
	assert.Equal(t, "John Smith, MD", full[spans[0].CharStart:spans[0].CharEnd])
}

// TestStreamEquivalenceAcrossChunkings tests that chunk boundaries are
// not observable in the output
func TestStreamEquivalenceAcrossChunkings(t *testing.T) {
	full := "Patient: JOHNSON, MARY\nSSN: 456-78-9012\nSeen by Philip Phillips, RN on 04/22/2024\n"
	pol := policy.Default(policy.ProfileHIPAAStrict)
	pol.StreamingBuffer = 48
	batch := mustRedact(t, full, pol)

	chunkings := [][]string{
		{full},
		{full[:10], full[10:30], full[30:]},
		splitEvery(full, 7),
		splitEvery(full, 1),
	}
	for i, chunks := range chunkings {
		streamed, _ := collectStream(t, chunks, pol)
		assert.Equal(t, batch.Text, streamed, "chunking %d diverged", i)
	}
}

func splitEvery(s string, n int) []string {
	var chunks []string
	for len(s) > n {
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return append(chunks, s)
}

// TestStreamEmptyInput tests clean shutdown with nothing pushed
func TestStreamEmptyInput(t *testing.T) {
	st, err := NewEngine().NewStreamer(policy.Default(policy.ProfileHIPAAStrict))
	require.NoError(t, err)
	r, err := st.Close()
	require.NoError(t, err)
	assert.Empty(t, r.RedactedChunk)
	assert.Empty(t, r.SpansClosed)

	// Closing twice is harmless; pushing after close is an error.
	_, err = st.Close()
	require.NoError(t, err)
	_, err = st.Push(context.Background(), "more")
	assert.Error(t, err)
}

// TestRedactStreamChannel tests the channel-driven wrapper with
// cooperative cancellation
func TestRedactStreamChannel(t *testing.T) {
	pol := policy.Default(policy.ProfileHIPAAStrict)
	pol.StreamingBuffer = 16

	chunks := make(chan string, 3)
	chunks <- "SSN: 456-78-9012 "
	chunks <- "and MRN: 7834921 follow"
	close(chunks)

	var out strings.Builder
	for ev := range NewEngine().RedactStream(context.Background(), chunks, pol) {
		require.NoError(t, ev.Err)
		out.WriteString(ev.RedactedChunk)
	}

	full := "SSN: 456-78-9012 and MRN: 7834921 follow"
	batch := mustRedact(t, full, pol)
	assert.Equal(t, batch.Text, out.String())
}

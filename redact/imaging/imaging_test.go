package imaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dochatty/vulpes/redact"
	"github.com/dochatty/vulpes/redact/policy"
)

// TestRedactPageDerivesMasks tests span-to-box mapping plus face boxes
func TestRedactPageDerivesMasks(t *testing.T) {
	text := "SSN: 456-78-9012"
	page := Page{
		RecognisedText: text,
		TokenBoxes: []TokenBox{
			{CharStart: 0, CharEnd: 4, BBox: BBox{0, 0, 40, 12}, Confidence: 0.99},
			{CharStart: 5, CharEnd: 11, BBox: BBox{44, 0, 90, 12}, Confidence: 0.97},
			{CharStart: 11, CharEnd: 16, BBox: BBox{90, 0, 130, 12}, Confidence: 0.97},
		},
		FaceBoxes: []FaceBox{
			{BBox: BBox{200, 50, 260, 120}, Confidence: 0.9},
			{BBox: BBox{5, 5, 6, 6}, Confidence: 0.1}, // below threshold
		},
	}

	plan, err := RedactPage(context.Background(), redact.NewEngine(), page, policy.Default(policy.ProfileHIPAAStrict), nil)
	require.NoError(t, err)

	require.Len(t, plan.Spans, 1)
	assert.Equal(t, "456-78-9012", plan.Spans[0].OriginalValue)

	// The SSN overlaps the two value token boxes; their union is one
	// mask, the confident face box is another.
	require.Len(t, plan.Masks, 2)
	assert.Equal(t, BBox{44, 0, 130, 12}, plan.Masks[0])
	assert.Equal(t, BBox{200, 50, 260, 120}, plan.Masks[1])
}

// TestRedactPageNoFindings tests a clean page
func TestRedactPageNoFindings(t *testing.T) {
	page := Page{RecognisedText: "unremarkable chest radiograph"}
	plan, err := RedactPage(context.Background(), redact.NewEngine(), page, policy.Default(policy.ProfileHIPAAStrict), nil)
	require.NoError(t, err)
	assert.Empty(t, plan.Spans)
	assert.Empty(t, plan.Masks)
}

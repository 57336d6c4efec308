// Package imaging adapts the span pipeline to OCR output. The host
// runs recognition over an image or DICOM page and hands the engine
// the recognised text with per-token bounding boxes; the engine
// returns the spans over that text plus the pixel regions to mask.
// Pixel editing itself stays with the collaborator.
package imaging

import (
	"context"

	"github.com/dochatty/vulpes/redact"
	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

// BBox is a pixel rectangle: x1, y1, x2, y2.
type BBox [4]float64

// TokenBox ties a byte range of the recognised text to its pixel
// rectangle on the page.
type TokenBox struct {
	CharStart  int     `json:"charStart"`
	CharEnd    int     `json:"charEnd"`
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// FaceBox is a detected face region; faces are always masked.
type FaceBox struct {
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// Page is one recognised image page.
type Page struct {
	RecognisedText string
	TokenBoxes     []TokenBox
	FaceBoxes      []FaceBox
}

// MaskPlan is what the collaborator applies to the pixels: the spans
// found over the recognised text and the rectangles to mask.
type MaskPlan struct {
	Spans []phi.Span
	Masks []BBox
}

// minFaceConfidence filters face detections too weak to act on.
const minFaceConfidence = 0.25

// RedactPage runs the text pipeline over a recognised page and derives
// the pixel regions to mask: for each final span, the bounding union of
// the token boxes it touches, plus every face box.
func RedactPage(ctx context.Context, engine *redact.Engine, page Page, pol *policy.Policy, rctx *phi.Context) (*MaskPlan, error) {
	res, err := engine.Redact(ctx, page.RecognisedText, pol, rctx)
	if err != nil {
		return nil, err
	}

	plan := &MaskPlan{Spans: res.Spans}
	for _, s := range res.Spans {
		var union BBox
		found := false
		for _, tb := range page.TokenBoxes {
			if tb.CharStart >= s.CharEnd || tb.CharEnd <= s.CharStart {
				continue
			}
			if !found {
				union = tb.BBox
				found = true
				continue
			}
			union = merge(union, tb.BBox)
		}
		if found {
			plan.Masks = append(plan.Masks, union)
		}
	}
	for _, fb := range page.FaceBoxes {
		if fb.Confidence >= minFaceConfidence {
			plan.Masks = append(plan.Masks, fb.BBox)
		}
	}
	return plan, nil
}

func merge(a, b BBox) BBox {
	if b[0] < a[0] {
		a[0] = b[0]
	}
	if b[1] < a[1] {
		a[1] = b[1]
	}
	if b[2] > a[2] {
		a[2] = b[2]
	}
	if b[3] > a[3] {
		a[3] = b[3]
	}
	return a
}

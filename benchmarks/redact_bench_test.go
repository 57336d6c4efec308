package benchmarks

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dochatty/vulpes/redact"
	"github.com/dochatty/vulpes/redact/arbitrate"
	"github.com/dochatty/vulpes/redact/detect"
	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

// clinicalNote builds a synthetic note with n PHI-bearing paragraphs.
func clinicalNote(n int) string {
	var b strings.Builder
	b.WriteString("Patient: JOHNSON, MARY ELIZABETH\nDOB: 04/22/1978\nMRN: 7834921\nSSN: 456-78-9012\n\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "HISTORY: The patient with hypertension and atrial fibrillation was seen by "+
			"Dr. Wilson on 03/%02d/2024. Contact (713) 555-%04d or mary.j%d@example.org. "+
			"Address: 1420 Maple Grove Avenue, Apt 4B, Houston, TX 77030.\n\n", i%28+1, i%10000, i)
	}
	return b.String()
}

// BenchmarkRedactNote measures full-pipeline throughput at varying sizes
func BenchmarkRedactNote(b *testing.B) {
	pol := policy.Default(policy.ProfileHIPAAStrict)
	for _, paragraphs := range []int{1, 10, 100} {
		text := clinicalNote(paragraphs)
		b.Run(fmt.Sprintf("%d_paragraphs", paragraphs), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := redact.Redact(text, pol); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkDetectorFanOut measures raw detection without arbitration
func BenchmarkDetectorFanOut(b *testing.B) {
	text := clinicalNote(10)
	pol := policy.Default(policy.ProfileHIPAAStrict)

	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rctx := phi.NewContext("s", "d", phi.ScopeDocument)
		rctx.FieldMap = arbitrate.ScanFieldLabels(text)
		_ = detect.Run(context.Background(), text, pol, rctx)
	}
}

// BenchmarkArbitration measures the stage pipeline over a raw span set
func BenchmarkArbitration(b *testing.B) {
	text := clinicalNote(10)
	pol := policy.Default(policy.ProfileHIPAAStrict)
	base := phi.NewContext("s", "d", phi.ScopeDocument)
	base.FieldMap = arbitrate.ScanFieldLabels(text)
	raw := detect.Run(context.Background(), text, pol, base).Spans

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rctx := phi.NewContext("s", "d", phi.ScopeDocument)
		rctx.FieldMap = base.FieldMap
		spans := append([]phi.Span(nil), raw...)
		_ = arbitrate.Run(spans, text, pol, rctx)
	}
}

// BenchmarkReceiptEmission measures redaction with trust bundles on
func BenchmarkReceiptEmission(b *testing.B) {
	pol := policy.Default(policy.ProfileHIPAAStrict)
	pol.EmitReceipt = true
	pol.HMACKey = "bench-key"
	text := clinicalNote(10)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := redact.Redact(text, pol); err != nil {
			b.Fatal(err)
		}
	}
}

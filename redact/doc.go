// Package redact is the document-level orchestrator of the Vulpes PHI
// redaction engine. It runs the detector battery over a clinical
// document, arbitrates the raw detections into a frozen non-overlapping
// span set, assigns replacement tokens and rewrites the text, and
// optionally emits a tamper-evident receipt.
//
// Example:
//
//	engine := redact.NewEngine()
//	pol := policy.Default(policy.ProfileHIPAAStrict)
//	result, err := engine.Redact(context.Background(), doc, pol, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Text)
package redact

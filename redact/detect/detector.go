// Package detect implements the detector battery and the parallel
// runner that fans a document across it. Each detector covers one PHI
// family, is side-effect-free and deterministic given its inputs, and
// never aborts the document: a faulting detector is recorded and the
// request continues without it.
package detect

import (
	"errors"
	"fmt"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

// ErrDetectorSkipped indicates the policy disabled a detector. Non-fatal.
var ErrDetectorSkipped = errors.New("detector skipped by policy")

// ErrDetectorFaulted indicates a detector broke an internal invariant.
// The orchestrator records it, marks the detector inert for the rest of
// the request and continues.
var ErrDetectorFaulted = errors.New("detector faulted")

// FaultError carries the faulting detector's identity and reason.
type FaultError struct {
	Source string
	Reason string
}

// Error implements the error interface.
func (e *FaultError) Error() string {
	return fmt.Sprintf("detector %s faulted: %s", e.Source, e.Reason)
}

// Unwrap ties fault errors back to ErrDetectorFaulted.
func (e *FaultError) Unwrap() error { return ErrDetectorFaulted }

// Detector is the single operation every PHI family implements.
type Detector interface {
	// Source is the detector identifier published in Span.MatchSource;
	// it is the audit anchor for every span the detector emits.
	Source() string

	// Types lists the categories the detector can emit, used to decide
	// policy enablement.
	Types() []phi.FilterType

	// Detect scans the text and returns raw spans. It must be pure:
	// no writes outside the returned slice, deterministic for identical
	// inputs. Failures are expressed by returning an error, never by
	// panicking; the runner converts panics into faults regardless.
	Detect(text string, ctx *phi.Context) ([]phi.Span, error)
}

// Registry is the compile-time table of every detector, in a stable
// order. Dynamic registration is deliberately absent: the detector set
// is part of the engine contract.
var Registry = []Detector{
	&ssnDetector{},
	&phoneDetector{},
	&emailDetector{},
	&urlDetector{},
	&ipDetector{},
	&creditCardDetector{},
	&bankAccountDetector{},
	&npiDetector{},
	&deaDetector{},
	&medicareDetector{},
	&medicaidDetector{},
	&mrnDetector{},
	&accountNumberDetector{},
	&healthPlanDetector{},
	&driversLicenseDetector{},
	&passportDetector{},
	&dateDetector{},
	&addressDetector{},
	&zipDetector{},
	&ageDetector{},
	&givenNameDetector{},
	&surnameDetector{},
	&nameAssemblerDetector{},
	&lastNameFirstDetector{},
	&facilityDetector{},
	&deviceDetector{},
	&vehicleDetector{},
	&biometricDetector{},
	&uniqueIDDetector{},
}

// enabled reports whether the policy allows any of the detector's
// categories.
func enabled(d Detector, pol *policy.Policy) bool {
	for _, ft := range d.Types() {
		if pol.Enabled(ft) {
			return true
		}
	}
	return false
}

// Enabled returns the registry detectors the policy allows, in registry
// order.
func Enabled(pol *policy.Policy) []Detector {
	var out []Detector
	for _, d := range Registry {
		if enabled(d, pol) {
			out = append(out, d)
		}
	}
	return out
}

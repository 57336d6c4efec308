// Package receipt emits and verifies trust bundles: tamper-evident,
// hash-linked records of what was redacted and under which policy. The
// receipt commits to the input, the output, a canonical manifest of the
// final spans (categories, offsets, replacements and confidences, never
// original values) and a Merkle root over the per-span hashes. Receipts
// within one session chain through their prior roots.
package receipt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

// ErrReceiptFailure indicates the receipt could not be produced. The
// orchestrator returns the redaction result without a receipt and
// annotates a warning; it never discards completed redaction work over
// a receipt fault.
var ErrReceiptFailure = errors.New("receipt failure")

// ManifestEntry is the per-span record the receipt commits to. Original
// values are deliberately absent: the manifest must be safe to store
// next to the redacted document. Fields are ordered alphabetically so
// the struct's JSON encoding is the canonical form.
type ManifestEntry struct {
	CharEnd     int            `json:"charEnd"`
	CharStart   int            `json:"charStart"`
	Confidence  float64        `json:"confidence"`
	FilterType  phi.FilterType `json:"filterType"`
	Replacement string         `json:"replacement"`
}

// Receipt is the trust bundle header.
type Receipt struct {
	HashOriginal      string          `json:"hashOriginal"`
	HashRedacted      string          `json:"hashRedacted"`
	HashManifest      string          `json:"hashManifest"`
	MerkleRoot        string          `json:"merkleRoot"`
	Timestamp         time.Time       `json:"timestamp"`
	DocumentID        string          `json:"documentId"`
	PolicyFingerprint string          `json:"policyFingerprint"`
	EngineVersion     string          `json:"engineVersion"`
	HMAC              string          `json:"hmac,omitempty"`
	PriorRoot         string          `json:"priorRoot,omitempty"`
	Manifest          []ManifestEntry `json:"-"`
}

// Params carries everything Build needs.
type Params struct {
	Original      []byte
	Redacted      []byte
	Spans         []phi.Span
	Policy        *policy.Policy
	DocumentID    string
	EngineVersion string

	// PriorRoot is the Merkle root of the previous receipt in the same
	// session, empty for the first. Receipts chain through it.
	PriorRoot string

	// Now defaults to time.Now; injectable for deterministic tests.
	Now func() time.Time
}

// Build produces a receipt over a completed redaction.
func Build(p Params) (*Receipt, error) {
	fingerprint, err := p.Policy.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReceiptFailure, err)
	}
	manifest := ManifestOf(p.Spans)
	manifestJSON, err := CanonicalManifest(manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReceiptFailure, err)
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}

	r := &Receipt{
		HashOriginal:      hexSum(p.Original),
		HashRedacted:      hexSum(p.Redacted),
		HashManifest:      hexSum(manifestJSON),
		MerkleRoot:        hex.EncodeToString(MerkleRoot(manifest)),
		Timestamp:         now().UTC(),
		DocumentID:        p.DocumentID,
		PolicyFingerprint: fingerprint,
		EngineVersion:     p.EngineVersion,
		PriorRoot:         p.PriorRoot,
		Manifest:          manifest,
	}
	if key := p.Policy.EffectiveHMACKey(); key != nil {
		r.HMAC = hex.EncodeToString(r.mac(key))
	}
	return r, nil
}

// ManifestOf projects frozen spans onto manifest entries.
func ManifestOf(spans []phi.Span) []ManifestEntry {
	manifest := make([]ManifestEntry, len(spans))
	for i, s := range spans {
		manifest[i] = ManifestEntry{
			CharEnd:     s.CharEnd,
			CharStart:   s.CharStart,
			Confidence:  s.Confidence,
			FilterType:  s.FilterType,
			Replacement: s.Replacement,
		}
	}
	return manifest
}

// CanonicalManifest is the byte string HashManifest commits to: the
// JSON array of entries with sorted keys and no whitespace.
func CanonicalManifest(manifest []ManifestEntry) ([]byte, error) {
	if manifest == nil {
		manifest = []ManifestEntry{}
	}
	return json.Marshal(manifest)
}

// leafHash is SHA-256 over category, offsets and replacement with
// unambiguous separators.
func leafHash(e ManifestEntry) [32]byte {
	h := sha256.New()
	h.Write([]byte(e.FilterType))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(e.CharStart)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(e.CharEnd)))
	h.Write([]byte{0})
	h.Write([]byte(e.Replacement))
	var sum [32]byte
	h.Sum(sum[:0])
	return sum
}

// MerkleRoot builds a binary Merkle tree over the per-span leaf hashes,
// padded with zero leaves to the next power of two. An empty manifest
// has the zero root.
func MerkleRoot(manifest []ManifestEntry) []byte {
	if len(manifest) == 0 {
		return make([]byte, 32)
	}
	width := 1
	for width < len(manifest) {
		width *= 2
	}
	level := make([][32]byte, width)
	for i, e := range manifest {
		level[i] = leafHash(e)
	}
	// Remaining leaves stay zero.
	for len(level) > 1 {
		next := make([][32]byte, len(level)/2)
		for i := range next {
			next[i] = sha256.Sum256(append(level[2*i][:], level[2*i+1][:]...))
		}
		level = next
	}
	return level[0][:]
}

// mac computes the keyed digest over the committed tuple.
func (r *Receipt) mac(key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	for _, field := range []string{
		r.HashOriginal, r.HashRedacted, r.HashManifest, r.MerkleRoot,
		r.DocumentID, r.PolicyFingerprint, r.EngineVersion, r.PriorRoot,
	} {
		mac.Write([]byte(field))
		mac.Write([]byte{0})
	}
	return mac.Sum(nil)
}

func hexSum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

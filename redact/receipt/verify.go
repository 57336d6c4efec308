package receipt

import (
	"crypto/hmac"
	"encoding/hex"

	"github.com/dochatty/vulpes/redact/policy"
)

// Verification is the outcome of an independent receipt check.
type Verification struct {
	Valid bool

	// Reason names the first mismatch when Valid is false.
	Reason string
}

func mismatch(reason string) Verification {
	return Verification{Valid: false, Reason: reason}
}

// Verify reconstructs every commitment in the receipt from the given
// texts, manifest and policy, and compares. Verification is idempotent
// and needs nothing beyond the bundle contents and the inputs; any
// mismatch signals tampering.
func Verify(r *Receipt, original, redacted []byte, pol *policy.Policy) Verification {
	if r == nil {
		return mismatch("no receipt")
	}
	if got := hexSum(original); got != r.HashOriginal {
		return mismatch("original text hash mismatch")
	}
	if got := hexSum(redacted); got != r.HashRedacted {
		return mismatch("redacted text hash mismatch")
	}
	manifestJSON, err := CanonicalManifest(r.Manifest)
	if err != nil {
		return mismatch("manifest not canonicalisable")
	}
	if got := hexSum(manifestJSON); got != r.HashManifest {
		return mismatch("manifest hash mismatch")
	}
	if got := hex.EncodeToString(MerkleRoot(r.Manifest)); got != r.MerkleRoot {
		return mismatch("merkle root mismatch")
	}
	if pol != nil {
		fingerprint, err := pol.Fingerprint()
		if err != nil || fingerprint != r.PolicyFingerprint {
			return mismatch("policy fingerprint mismatch")
		}
		if key := pol.EffectiveHMACKey(); key != nil {
			want, err := hex.DecodeString(r.HMAC)
			if err != nil || !hmac.Equal(want, r.mac(key)) {
				return mismatch("hmac mismatch")
			}
		}
	}
	return Verification{Valid: true}
}

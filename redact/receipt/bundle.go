package receipt

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// The .red bundle is three length-prefixed parts concatenated: the JSON
// header, the canonical manifest JSON, and optionally the redacted
// output text. Lengths are 64-bit unsigned little-endian. When the
// output is included, its SHA-256 must equal the HashRedacted the
// header declares.

// maxBundlePart bounds a single part during decode so a corrupt length
// prefix cannot drive allocation.
const maxBundlePart = 1 << 30

// EncodeBundle writes the receipt as a .red bundle. Pass nil redacted
// to omit the output part.
func EncodeBundle(w io.Writer, r *Receipt, redacted []byte) error {
	header, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%w: encode header: %v", ErrReceiptFailure, err)
	}
	manifest, err := CanonicalManifest(r.Manifest)
	if err != nil {
		return fmt.Errorf("%w: encode manifest: %v", ErrReceiptFailure, err)
	}
	for _, part := range [][]byte{header, manifest, redacted} {
		if part == nil {
			break
		}
		if err := writePart(w, part); err != nil {
			return err
		}
	}
	return nil
}

func writePart(w io.Writer, part []byte) error {
	var prefix [8]byte
	binary.LittleEndian.PutUint64(prefix[:], uint64(len(part)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("%w: write bundle: %v", ErrReceiptFailure, err)
	}
	if _, err := w.Write(part); err != nil {
		return fmt.Errorf("%w: write bundle: %v", ErrReceiptFailure, err)
	}
	return nil
}

// DecodeBundle reads a .red bundle, returning the receipt (with its
// manifest attached) and the redacted text when the bundle includes it.
// An included output that does not hash to the declared HashRedacted is
// rejected.
func DecodeBundle(r io.Reader) (*Receipt, []byte, error) {
	header, err := readPart(r, true)
	if err != nil {
		return nil, nil, err
	}
	var rec Receipt
	if err := json.Unmarshal(header, &rec); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed header: %v", ErrReceiptFailure, err)
	}
	manifest, err := readPart(r, true)
	if err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(manifest, &rec.Manifest); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed manifest: %v", ErrReceiptFailure, err)
	}
	redacted, err := readPart(r, false)
	if err != nil {
		return nil, nil, err
	}
	if redacted != nil && hexSum(redacted) != rec.HashRedacted {
		return nil, nil, fmt.Errorf("%w: bundled output does not match declared hash", ErrReceiptFailure)
	}
	return &rec, redacted, nil
}

// readPart reads one length-prefixed part. A missing part is an error
// only when required; the optional third part may be absent.
func readPart(r io.Reader, required bool) ([]byte, error) {
	var prefix [8]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if !required && (err == io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: truncated bundle: %v", ErrReceiptFailure, err)
	}
	n := binary.LittleEndian.Uint64(prefix[:])
	if n > maxBundlePart {
		return nil, fmt.Errorf("%w: bundle part exceeds %d bytes", ErrReceiptFailure, maxBundlePart)
	}
	part := make([]byte, n)
	if _, err := io.ReadFull(r, part); err != nil {
		return nil, fmt.Errorf("%w: truncated bundle part: %v", ErrReceiptFailure, err)
	}
	return part, nil
}

// EncodeBundleBytes is EncodeBundle into memory.
func EncodeBundleBytes(r *Receipt, redacted []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeBundle(&buf, r, redacted); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

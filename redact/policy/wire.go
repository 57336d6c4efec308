package policy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/dochatty/vulpes/redact/phi"
)

// Parse decodes a policy from its JSON wire form. Unknown keys are
// rejected and the decoded policy is validated; on failure the error
// wraps ErrInvalidPolicy with the offending field path.
func Parse(data []byte) (*Policy, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	p := Default(ProfileHIPAAStrict)
	if err := dec.Decode(p); err != nil {
		if field, ok := unknownField(err); ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		return nil, fieldErr("", "malformed JSON: %v", err)
	}
	if dec.More() {
		return nil, fieldErr("", "trailing data after policy object")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// unknownField extracts the field name from the json package's unknown
// field error, which is only exposed as formatted text.
func unknownField(err error) (string, bool) {
	const marker = `json: unknown field `
	msg := err.Error()
	if !strings.HasPrefix(msg, marker) {
		return "", false
	}
	return strings.Trim(strings.TrimPrefix(msg, marker), `"`), true
}

// LoadFile reads a policy from a JSON or YAML file, keyed on extension.
// YAML documents are converted to the JSON wire form first so the same
// unknown-key and validation rules apply.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fieldErr("", "malformed YAML: %v", err)
		}
		data, err = json.Marshal(doc)
		if err != nil {
			return nil, fieldErr("", "policy not representable as JSON: %v", err)
		}
	}
	return Parse(data)
}

// Canonical returns the canonical wire form of the policy: sorted keys,
// no whitespace, UTF-8 NFC. This is the byte string the policy
// fingerprint hashes; two policies with the same canonical form are the
// same policy.
func (p *Policy) Canonical() ([]byte, error) {
	obj := map[string]any{
		"profile":             string(p.Profile),
		"preserveDates":       p.PreserveDates,
		"ageCap":              p.AgeCap,
		"replacementStrategy": string(p.Strategy()),
		"emitReceipt":         p.EmitReceipt,
		"hmacKey":             p.HMACKey,
		"streamingBuffer":     p.StreamingBuffer,
		"maxDocumentBytes":    p.MaxDocumentBytes,
		"maxSpansPerDoc":      p.MaxSpansPerDoc,
		"softDeadlineMillis":  p.SoftDeadlineMillis,
	}
	if len(p.EnabledFilters) > 0 {
		filters := make([]string, len(p.EnabledFilters))
		for i, ft := range p.EnabledFilters {
			filters[i] = string(ft)
		}
		sort.Strings(filters)
		obj["enabledFilters"] = filters
	}
	if len(p.SensitivityThreshold) > 0 {
		thresholds := make(map[string]float64, len(p.SensitivityThreshold))
		for ft, v := range p.SensitivityThreshold {
			thresholds[string(ft)] = v
		}
		obj["sensitivityThreshold"] = thresholds
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("canonicalise policy: %w", err)
	}
	return norm.NFC.Bytes(data), nil
}

// Fingerprint returns the lowercase hex SHA-256 of the canonical policy.
func (p *Policy) Fingerprint() (string, error) {
	canonical, err := p.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Subset reports whether every category enabled by p is also enabled by
// q. Used by the coverage-monotonicity property tests.
func (p *Policy) Subset(q *Policy) bool {
	for _, ft := range phi.AllFilterTypes {
		if p.Enabled(ft) && !q.Enabled(ft) {
			return false
		}
	}
	return true
}

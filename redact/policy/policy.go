package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dochatty/vulpes/redact/phi"
)

// Profile pre-selects thresholds and the enabled filter set.
type Profile string

const (
	// ProfileHIPAAStrict enables every filter with Safe Harbor defaults.
	ProfileHIPAAStrict Profile = "HIPAA_STRICT"

	// ProfileHIPAALimitedDataset keeps dates as year-only and narrows
	// ZIP codes to their three-digit prefix where the population allows.
	ProfileHIPAALimitedDataset Profile = "HIPAA_LIMITED_DATASET"

	// ProfileDevelopment raises thresholds; receipts still follow
	// EmitReceipt as under the other profiles. For fixture authoring,
	// never for production traffic.
	ProfileDevelopment Profile = "DEVELOPMENT"
)

// ReplacementStrategy selects how frozen spans are rewritten.
type ReplacementStrategy string

const (
	// StrategyCategoryToken replaces with "[<TYPE>-<k>]" where k counts
	// unique original values per type within the scope.
	StrategyCategoryToken ReplacementStrategy = "CATEGORY_TOKEN"

	// StrategyConsistentPseudonym draws a deterministic pseudonym from a
	// keyed pool; dates are shifted by a stable per-document offset.
	StrategyConsistentPseudonym ReplacementStrategy = "CONSISTENT_PSEUDONYM"

	// StrategyStars replaces with '*' repeated to the original length,
	// preserving non-alphanumeric structure.
	StrategyStars ReplacementStrategy = "STARS"

	// StrategyTagAndCount replaces with "[<TYPE>]" only, no counter.
	StrategyTagAndCount ReplacementStrategy = "TAG_AND_COUNT"
)

// EnvHMACKey overrides the policy HMAC key when set in the environment.
const EnvHMACKey = "VULPES_HMAC_KEY"

// EnvPolicyDefault names the default policy file consulted by the CLI.
const EnvPolicyDefault = "VULPES_POLICY_DEFAULT"

// EnvDisableAccel disables native detector accelerators for parity
// testing; the pure-Go detectors are always authoritative.
const EnvDisableAccel = "VULPES_DISABLE_ACCEL"

// Policy is the immutable configuration for a redaction request.
// Construct with Default and adjust, or parse from the wire with Parse.
type Policy struct {
	Profile Profile `json:"profile" validate:"required,oneof=HIPAA_STRICT HIPAA_LIMITED_DATASET DEVELOPMENT"`

	// EnabledFilters restricts detection to the listed categories.
	// Empty means every category the profile enables.
	EnabledFilters []phi.FilterType `json:"enabledFilters,omitempty"`

	// SensitivityThreshold is the minimum confidence per category for a
	// span to survive post-filtering. Categories not listed use the
	// profile default.
	SensitivityThreshold map[phi.FilterType]float64 `json:"sensitivityThreshold,omitempty" validate:"dive,gte=0,lte=1"`

	// PreserveDates keeps dates as year-only (Limited Dataset Safe
	// Harbor) instead of tokenising them.
	PreserveDates bool `json:"preserveDates,omitempty"`

	// AgeCap is the age above which ages are redacted; ages at or below
	// it are left in place.
	AgeCap int `json:"ageCap,omitempty" validate:"gte=0,lte=150"`

	ReplacementStrategy ReplacementStrategy `json:"replacementStrategy,omitempty" validate:"omitempty,oneof=CATEGORY_TOKEN CONSISTENT_PSEUDONYM STARS TAG_AND_COUNT"`

	// EmitReceipt asks the orchestrator to produce a trust bundle.
	EmitReceipt bool `json:"emitReceipt,omitempty"`

	// HMACKey keys the receipt HMAC and the pseudonym pool. Overridden
	// by the VULPES_HMAC_KEY environment variable when set.
	HMACKey string `json:"hmacKey,omitempty"`

	// StreamingBuffer is the byte count of overlap carried between
	// chunks by the streaming adapter.
	StreamingBuffer int `json:"streamingBuffer,omitempty" validate:"gte=0"`

	// MaxDocumentBytes bounds the input size; oversize inputs fail.
	MaxDocumentBytes int `json:"maxDocumentBytes,omitempty" validate:"gte=0"`

	// MaxSpansPerDoc bounds the raw span count per document.
	MaxSpansPerDoc int `json:"maxSpansPerDoc,omitempty" validate:"gte=0"`

	// SoftDeadlineMillis is the soft deadline for detection; past it the
	// orchestrator skips unstarted detectors and flags the result partial.
	// Zero means no deadline.
	SoftDeadlineMillis int `json:"softDeadlineMillis,omitempty" validate:"gte=0"`
}

// Defaults shared by every profile.
const (
	DefaultAgeCap           = 89
	DefaultStreamingBuffer  = 4096
	DefaultMaxDocumentBytes = 16 << 20
	DefaultMaxSpansPerDoc   = 100_000
)

// profileThresholds are the per-category confidence floors applied when
// the policy does not override them. Dictionary categories sit lower
// because arbitration has already vetted them against the vocabulary.
var profileThresholds = map[Profile]map[phi.FilterType]float64{
	ProfileHIPAAStrict: {
		phi.FilterName:      0.35,
		phi.FilterFirstName: 0.35,
		phi.FilterLastName:  0.35,
		phi.FilterAddress:   0.40,
		phi.FilterZIP:       0.40,
		phi.FilterUniqueID:  0.60,
	},
	ProfileHIPAALimitedDataset: {
		phi.FilterName:      0.35,
		phi.FilterFirstName: 0.35,
		phi.FilterLastName:  0.35,
		phi.FilterAddress:   0.40,
		phi.FilterZIP:       0.40,
		phi.FilterUniqueID:  0.60,
	},
	ProfileDevelopment: {
		phi.FilterName:      0.55,
		phi.FilterFirstName: 0.55,
		phi.FilterLastName:  0.55,
		phi.FilterAddress:   0.55,
		phi.FilterZIP:       0.55,
		phi.FilterUniqueID:  0.75,
	},
}

// baseThreshold is the floor for categories without a profile entry.
const baseThreshold = 0.30

// Default returns the canonical policy for a profile.
//
// Example:
//
//	pol := policy.Default(policy.ProfileHIPAAStrict)
//	pol.EmitReceipt = true
func Default(profile Profile) *Policy {
	p := &Policy{
		Profile:             profile,
		AgeCap:              DefaultAgeCap,
		ReplacementStrategy: StrategyCategoryToken,
		StreamingBuffer:     DefaultStreamingBuffer,
		MaxDocumentBytes:    DefaultMaxDocumentBytes,
		MaxSpansPerDoc:      DefaultMaxSpansPerDoc,
	}
	if profile == ProfileHIPAALimitedDataset {
		p.PreserveDates = true
	}
	return p
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the policy against the wire-format constraints and
// returns ErrInvalidPolicy (wrapping a *FieldError with the offending
// path) on the first violation.
func (p *Policy) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fieldErr(jsonPath(f.Namespace()), "failed %q constraint", f.Tag())
		}
		return fieldErr("", "%v", err)
	}
	for i, ft := range p.EnabledFilters {
		if !ft.Valid() {
			return fieldErr(fmt.Sprintf("enabledFilters[%d]", i), "unrecognised category %q", ft)
		}
	}
	for ft := range p.SensitivityThreshold {
		if !ft.Valid() {
			return fieldErr("sensitivityThreshold."+string(ft), "unrecognised category")
		}
	}
	return nil
}

// jsonPath converts a validator namespace like "Policy.AgeCap" into the
// wire field path "ageCap".
func jsonPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		if part != "" {
			parts[i] = strings.ToLower(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, ".")
}

// Enabled reports whether detection for the category is on under this
// policy.
func (p *Policy) Enabled(ft phi.FilterType) bool {
	if len(p.EnabledFilters) == 0 {
		return true
	}
	for _, f := range p.EnabledFilters {
		if f == ft {
			return true
		}
	}
	return false
}

// Threshold returns the minimum confidence for the category under this
// policy.
func (p *Policy) Threshold(ft phi.FilterType) float64 {
	if t, ok := p.SensitivityThreshold[ft]; ok {
		return t
	}
	if profile, ok := profileThresholds[p.Profile]; ok {
		if t, ok := profile[ft]; ok {
			return t
		}
	}
	return baseThreshold
}

// EffectiveHMACKey resolves the HMAC key, preferring the environment
// override.
func (p *Policy) EffectiveHMACKey() []byte {
	if env := os.Getenv(EnvHMACKey); env != "" {
		return []byte(env)
	}
	if p.HMACKey == "" {
		return nil
	}
	return []byte(p.HMACKey)
}

// Strategy returns the replacement strategy with the default applied.
func (p *Policy) Strategy() ReplacementStrategy {
	if p.ReplacementStrategy == "" {
		return StrategyCategoryToken
	}
	return p.ReplacementStrategy
}

// Clone returns a deep copy. Policies handed to the engine are treated
// as immutable; callers that want to tweak one clone it first.
func (p *Policy) Clone() *Policy {
	c := *p
	if p.EnabledFilters != nil {
		c.EnabledFilters = append([]phi.FilterType(nil), p.EnabledFilters...)
	}
	if p.SensitivityThreshold != nil {
		c.SensitivityThreshold = make(map[phi.FilterType]float64, len(p.SensitivityThreshold))
		for k, v := range p.SensitivityThreshold {
			c.SensitivityThreshold[k] = v
		}
	}
	return &c
}

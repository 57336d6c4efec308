package detect

import (
	"regexp"
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// deviceDetector finds medical device identifiers: UDI strings, serial
// numbers near a manufacturer name or "serial"/"model" context.
type deviceDetector struct{}

var (
	udiRe    = regexp.MustCompile(`\(01\)\d{14}(?:\(\d{2}\)[A-Za-z0-9]+)*`)
	serialRe = regexp.MustCompile(`(?i)\b(?:S/?N|Serial(?:\s+(?:No|Number))?)[:.#\s]+([A-Z0-9][A-Z0-9\-]{4,20})`)
)

func (d *deviceDetector) Source() string { return "device" }

func (d *deviceDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterDeviceID} }

func (d *deviceDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range udiRe.FindAllStringIndex(text, -1) {
		s := phi.NewSpan(text, m[0], m[1], phi.FilterDeviceID, 0.95, d.Source())
		s.Pattern = "udi"
		spans = append(spans, s)
	}
	for _, m := range serialRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		if covered(spans, start, end) {
			continue
		}
		conf := 0.75
		if nearManufacturer(text, start) {
			conf = 0.88
		}
		s := phi.NewSpan(text, start, end, phi.FilterDeviceID, conf, d.Source())
		s.Pattern = "serial"
		spans = append(spans, s)
	}
	return spans, nil
}

// nearManufacturer reports whether a device manufacturer name appears
// in the preceding few words.
func nearManufacturer(text string, pos int) bool {
	left := surroundingLeft(text, pos, 48)
	for _, t := range Tokenize(left) {
		if vocab.IsManufacturer(t.Text) {
			return true
		}
	}
	return false
}

// vehicleDetector finds vehicle identifiers: 17-character VINs (which
// exclude I, O and Q) and license plates under plate context.
type vehicleDetector struct{}

var (
	vinRe   = regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`)
	plateRe = regexp.MustCompile(`(?i)\b(?:plate|license plate|tag)[:#\s]+([A-Z0-9]{2,8})\b`)
)

func (d *vehicleDetector) Source() string { return "vehicle" }

func (d *vehicleDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterVehicle} }

func (d *vehicleDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range vinRe.FindAllStringIndex(text, -1) {
		candidate := text[m[0]:m[1]]
		if !containsDigit(candidate) || strings.ToUpper(candidate) != candidate {
			continue
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterVehicle, 0.80, d.Source())
		s.Pattern = "vin"
		spans = append(spans, s)
	}
	for _, m := range plateRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		if covered(spans, start, end) {
			continue
		}
		s := phi.NewSpan(text, start, end, phi.FilterVehicle, 0.82, d.Source())
		s.Pattern = "plate"
		spans = append(spans, s)
	}
	return spans, nil
}

// biometricDetector flags mentions of biometric identifiers attached to
// an id value (fingerprint ids, retinal scan ids). The narrative words
// alone are clinical and stay.
type biometricDetector struct{}

var biometricRe = regexp.MustCompile(`(?i)\b(?:fingerprint|retinal|iris|voiceprint|biometric)\s+(?:scan\s+)?(?:id|identifier|record)[:#\s]+([A-Z0-9\-]{4,24})`)

func (d *biometricDetector) Source() string { return "biometric" }

func (d *biometricDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterBiometric} }

func (d *biometricDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range biometricRe.FindAllStringSubmatchIndex(text, -1) {
		s := phi.NewSpan(text, m[2], m[3], phi.FilterBiometric, 0.85, d.Source())
		s.Pattern = "biometric-id"
		spans = append(spans, s)
	}
	return spans, nil
}

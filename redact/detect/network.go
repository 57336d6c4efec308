package detect

import (
	"net"
	"regexp"
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
)

// emailDetector finds email addresses.
type emailDetector struct{}

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

func (d *emailDetector) Source() string { return "email" }

func (d *emailDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterEmail} }

func (d *emailDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range emailRe.FindAllStringIndex(text, -1) {
		s := phi.NewSpan(text, m[0], m[1], phi.FilterEmail, 0.97, d.Source())
		s.Pattern = "email"
		spans = append(spans, s)
	}
	return spans, nil
}

// urlDetector finds web URLs, both scheme-qualified and bare www hosts.
type urlDetector struct{}

var urlRe = regexp.MustCompile(`\b(?:https?://|www\.)[A-Za-z0-9.\-]+(?:\.[A-Za-z]{2,})(?:/[^\s<>"')\]]*)?`)

func (d *urlDetector) Source() string { return "url" }

func (d *urlDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterURL} }

func (d *urlDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range urlRe.FindAllStringIndex(text, -1) {
		start, end := m[0], m[1]
		// Trailing sentence punctuation is not part of the URL.
		for end > start && strings.ContainsRune(".,;:", rune(text[end-1])) {
			end--
		}
		s := phi.NewSpan(text, start, end, phi.FilterURL, 0.95, d.Source())
		s.Pattern = "url"
		spans = append(spans, s)
	}
	return spans, nil
}

// ipDetector finds IPv4 and IPv6 addresses. Candidates are confirmed
// with net.ParseIP so dotted version strings like 10.2.1 never match.
type ipDetector struct{}

var (
	ipv4Re = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	// Candidate scan is permissive about compressed "::" forms;
	// net.ParseIP is the arbiter.
	ipv6Re = regexp.MustCompile(`\b[0-9a-fA-F]{1,4}(?::[0-9a-fA-F]{0,4}){2,7}\b`)
)

func (d *ipDetector) Source() string { return "ip" }

func (d *ipDetector) Types() []phi.FilterType { return []phi.FilterType{phi.FilterIP} }

func (d *ipDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range ipv4Re.FindAllStringIndex(text, -1) {
		if net.ParseIP(text[m[0]:m[1]]) == nil {
			continue
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterIP, 0.85, d.Source())
		s.Pattern = "ipv4"
		spans = append(spans, s)
	}
	for _, m := range ipv6Re.FindAllStringIndex(text, -1) {
		if net.ParseIP(text[m[0]:m[1]]) == nil {
			continue
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterIP, 0.90, d.Source())
		s.Pattern = "ipv6"
		spans = append(spans, s)
	}
	return spans, nil
}

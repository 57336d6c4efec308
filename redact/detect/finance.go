package detect

import (
	"regexp"
	"strings"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/vocab"
)

// creditCardDetector finds payment card numbers. Candidates must pass
// the Luhn checksum; a Luhn-valid 13-19 digit group is unambiguous and
// carries the top tier.
type creditCardDetector struct{}

var cardRe = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)

func (d *creditCardDetector) Source() string { return "credit-card" }

func (d *creditCardDetector) Types() []phi.FilterType {
	return []phi.FilterType{phi.FilterCreditCard}
}

func (d *creditCardDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	folded := vocab.FoldDigits(text)
	var spans []phi.Span
	for _, m := range cardRe.FindAllStringIndex(folded, -1) {
		digits := digitsOnly(folded[m[0]:m[1]])
		if len(digits) < 13 || len(digits) > 19 || !luhnValid(digits) {
			continue
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterCreditCard, 0.95, d.Source())
		s.Text = folded[m[0]:m[1]]
		s.Pattern = "card-luhn"
		spans = append(spans, s)
	}
	return spans, nil
}

// bankAccountDetector finds IBANs and routing/account pairs.
type bankAccountDetector struct{}

var (
	ibanRe    = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`)
	routingRe = regexp.MustCompile(`\b\d{9}\b[^\n]{0,12}\b\d{6,17}\b`)
)

func (d *bankAccountDetector) Source() string { return "bank-account" }

func (d *bankAccountDetector) Types() []phi.FilterType {
	return []phi.FilterType{phi.FilterBankAccount}
}

func (d *bankAccountDetector) Detect(text string, ctx *phi.Context) ([]phi.Span, error) {
	var spans []phi.Span
	for _, m := range ibanRe.FindAllStringIndex(text, -1) {
		candidate := text[m[0]:m[1]]
		if !ibanChecksumValid(candidate) {
			continue
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterBankAccount, 0.92, d.Source())
		s.Pattern = "iban"
		spans = append(spans, s)
	}
	for _, m := range routingRe.FindAllStringIndex(text, -1) {
		if !labelIs(ctx, m[0], m[1], "ACCOUNT", "BANK") &&
			!strings.Contains(strings.ToLower(surroundingLeft(text, m[0], 24)), "account") {
			continue
		}
		s := phi.NewSpan(text, m[0], m[1], phi.FilterBankAccount, 0.70, d.Source())
		s.Pattern = "routing-account"
		spans = append(spans, s)
	}
	return spans, nil
}

// luhnValid applies the Luhn mod-10 checksum over a digit string.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}

// ibanChecksumValid applies the ISO 13616 mod-97 check.
func ibanChecksumValid(iban string) bool {
	rearranged := iban[4:] + iban[:4]
	rem := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			n := int(c-'A') + 10
			rem = (rem*100 + n) % 97
		default:
			return false
		}
	}
	return rem == 1
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func surroundingLeft(text string, pos, n int) string {
	lo := pos - n
	if lo < 0 {
		lo = 0
	}
	return text[lo:pos]
}

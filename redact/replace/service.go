// Package replace maps frozen spans to replacement strings under the
// policy's strategy and scope. The session-scoped token tables are the
// engine's only writable shared state; a single mutex serialises
// counter allocation so tokens observed across concurrent calls in one
// session are monotonically increasing.
package replace

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dochatty/vulpes/redact/phi"
	"github.com/dochatty/vulpes/redact/policy"
)

// table holds the value-to-token mapping and per-type counters for one
// scope horizon.
type table struct {
	counters map[phi.FilterType]int
	tokens   map[string]string // type + "\x00" + original -> token
	reverse  map[string]string // token -> original, for authorised re-identification
}

func newTable() *table {
	return &table{
		counters: make(map[phi.FilterType]int),
		tokens:   make(map[string]string),
		reverse:  make(map[string]string),
	}
}

func tokenKey(ft phi.FilterType, original string) string {
	return string(ft) + "\x00" + original
}

// Service owns the scope-to-table map. A zero Service is not usable;
// construct with NewService.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*table
}

// NewService returns an empty replacement service.
func NewService() *Service {
	return &Service{sessions: make(map[string]*table)}
}

// Assign sets the Replacement field of every span under the policy
// strategy and the context scope. Spans must be frozen: sorted and
// non-overlapping. The same original value always maps to the same
// token within one scope horizon.
func (svc *Service) Assign(spans []phi.Span, pol *policy.Policy, ctx *phi.Context) []phi.Span {
	var tbl *table
	switch ctx.Scope {
	case phi.ScopeSession, phi.ScopePolicy:
		svc.mu.Lock()
		defer svc.mu.Unlock()
		tbl = svc.sessions[ctx.SessionID]
		if tbl == nil {
			tbl = newTable()
			svc.sessions[ctx.SessionID] = tbl
		}
	default:
		// PER_DOCUMENT needs no locking: the table dies with the call.
		tbl = newTable()
	}

	for i := range spans {
		spans[i].Replacement = svc.replacement(&spans[i], tbl, pol, ctx)
	}
	return spans
}

func (svc *Service) replacement(s *phi.Span, tbl *table, pol *policy.Policy, ctx *phi.Context) string {
	// Limited Dataset carve-outs apply before the strategy: dates keep
	// their year, ZIPs narrow to their three-digit prefix.
	if pol.PreserveDates && s.FilterType == phi.FilterDate {
		if year := yearOf(s.Text); year != "" {
			return year
		}
	}
	if pol.Profile == policy.ProfileHIPAALimitedDataset && s.FilterType == phi.FilterZIP {
		if narrowed, ok := zip3(s.Text); ok {
			return narrowed
		}
	}

	key := tokenKey(s.FilterType, s.OriginalValue)
	if token, ok := tbl.tokens[key]; ok {
		return token
	}

	var token string
	switch pol.Strategy() {
	case policy.StrategyStars:
		token = stars(s.OriginalValue)
	case policy.StrategyTagAndCount:
		token = fmt.Sprintf("[%s]", s.FilterType)
	case policy.StrategyConsistentPseudonym:
		token = pseudonym(s, pol, ctx)
	default:
		tbl.counters[s.FilterType]++
		token = fmt.Sprintf("[%s-%d]", s.FilterType, tbl.counters[s.FilterType])
	}

	tbl.tokens[key] = token
	tbl.reverse[token] = s.OriginalValue
	return token
}

// stars replaces every letter and digit with '*', preserving the
// punctuation skeleton so "456-78-9012" becomes "***-**-****".
func stars(original string) string {
	var b strings.Builder
	b.Grow(len(original))
	for _, r := range original {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			b.WriteRune('*')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Mappings returns a copy of the token-to-original table for a session,
// for authorised re-identification and for PER_POLICY persistence.
func (svc *Service) Mappings(sessionID string) map[string]string {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	tbl := svc.sessions[sessionID]
	if tbl == nil {
		return nil
	}
	out := make(map[string]string, len(tbl.reverse))
	for token, original := range tbl.reverse {
		out[token] = original
	}
	return out
}

// Restore seeds a session table from a previously exported state so the
// PER_POLICY scope survives process restarts. Counters resume above the
// highest restored token index per type.
func (svc *Service) Restore(sessionID string, state ExportedTable) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	tbl := newTable()
	for key, token := range state.Tokens {
		tbl.tokens[key] = token
		ft, original, ok := splitTokenKey(key)
		if ok {
			tbl.reverse[token] = original
			if n := tokenIndex(token); n > tbl.counters[ft] {
				tbl.counters[ft] = n
			}
		}
	}
	svc.sessions[sessionID] = tbl
}

// Export captures a session table for persistence.
func (svc *Service) Export(sessionID string) ExportedTable {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	state := ExportedTable{Tokens: make(map[string]string)}
	if tbl := svc.sessions[sessionID]; tbl != nil {
		for key, token := range tbl.tokens {
			state.Tokens[key] = token
		}
	}
	return state
}

// ExportedTable is the serialisable form of a session table.
type ExportedTable struct {
	Tokens map[string]string `json:"tokens"`
}

func splitTokenKey(key string) (phi.FilterType, string, bool) {
	ft, original, ok := strings.Cut(key, "\x00")
	return phi.FilterType(ft), original, ok
}

// tokenIndex parses the counter out of a "[TYPE-n]" token; 0 otherwise.
func tokenIndex(token string) int {
	open := strings.LastIndexByte(token, '-')
	if open < 0 || !strings.HasSuffix(token, "]") {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(token[open+1:], "%d]", &n); err != nil {
		return 0
	}
	return n
}

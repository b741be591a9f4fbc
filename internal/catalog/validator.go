package catalog

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// ResolutionKind classifies the outcome of validating an extracted item name
// against the catalog.
type ResolutionKind string

const (
	// KindMatched means the query resolved to exactly one catalog entry,
	// either exactly or through a high-confidence fuzzy correction.
	KindMatched ResolutionKind = "matched"

	// KindSuggested means no single entry was confident enough, but there
	// are plausible candidates worth offering as "did you mean" choices.
	KindSuggested ResolutionKind = "suggested"

	// KindUnresolved means nothing in the catalog resembles the query.
	KindUnresolved ResolutionKind = "unresolved"
)

// ValidatedItem is the result of resolving one extracted item name.
//
// Query is the raw extracted name and is empty only when the command carried
// no item at all; callers use that to tell "nothing was extracted" apart from
// "something was extracted but did not match".
type ValidatedItem struct {
	Kind  ResolutionKind `json:"kind"`
	Query string         `json:"query,omitempty"`

	// Entry is set only when Kind is KindMatched.
	Entry *Entry `json:"entry,omitempty"`

	// Confidence is the similarity score of the accepted match, 1.0 for an
	// exact hit. Zero unless Kind is KindMatched.
	Confidence float64 `json:"confidence,omitempty"`

	// Corrected is true when the match was accepted through fuzzy correction
	// rather than an exact key hit.
	Corrected bool `json:"corrected,omitempty"`

	// Suggestions holds the ranked candidate entries when Kind is
	// KindSuggested: best similarity first, popularity rank breaking ties.
	Suggestions []*Entry `json:"suggestions,omitempty"`
}

// NoItem is the ValidatedItem for commands that carried no item slot.
func NoItem() ValidatedItem {
	return ValidatedItem{Kind: KindUnresolved}
}

// noiseWords are tokens that never name a grocery item on their own. A query
// consisting only of these is rejected before any fuzzy work happens, so that
// transcription debris like "um the" cannot fuzzy-match into the catalog.
var noiseWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "some": {}, "my": {}, "me": {},
	"of": {}, "to": {}, "for": {}, "and": {}, "it": {}, "that": {},
	"this": {}, "there": {}, "please": {}, "um": {}, "uh": {},
	"stuff": {}, "thing": {}, "things": {}, "item": {}, "items": {},
}

// Validator resolves extracted item names against a catalog [Index] using the
// same two-stage scheme as the transcript corrector: Double Metaphone codes
// gate the candidate set, Jaro-Winkler similarity ranks it.
// Read-only after construction, safe for concurrent use.
type Validator struct {
	index *Index

	// autoCorrectThreshold accepts a fuzzy hit as a match outright.
	autoCorrectThreshold float64

	// suggestionFloor admits a candidate into the "did you mean" list.
	suggestionFloor float64

	maxSuggestions int
}

// NewValidator builds a Validator over idx. Thresholds outside (0, 1] fall
// back to the tuned defaults (0.82 auto-correct, 0.55 suggestion floor).
func NewValidator(idx *Index, autoCorrectThreshold, suggestionFloor float64, maxSuggestions int) *Validator {
	if autoCorrectThreshold <= 0 || autoCorrectThreshold > 1 {
		autoCorrectThreshold = 0.82
	}
	if suggestionFloor <= 0 || suggestionFloor > 1 {
		suggestionFloor = 0.55
	}
	if maxSuggestions <= 0 {
		maxSuggestions = 6
	}
	return &Validator{
		index:                idx,
		autoCorrectThreshold: autoCorrectThreshold,
		suggestionFloor:      suggestionFloor,
		maxSuggestions:       maxSuggestions,
	}
}

// Validate resolves query against the catalog. An empty query returns the
// no-item result. The resolution order is exact key, whole-word containment,
// then phonetic/fuzzy ranking.
func (v *Validator) Validate(query string) ValidatedItem {
	q := NormalizeKey(stripLeadingNumber(query))
	if q == "" {
		return NoItem()
	}

	if isNoise(q) {
		return ValidatedItem{Kind: KindUnresolved, Query: query}
	}

	// Tier 1: exact key.
	if e := v.index.Get(q); e != nil {
		return ValidatedItem{Kind: KindMatched, Query: query, Entry: e, Confidence: 1.0}
	}

	// Tier 2: whole-word containment. "organic milk" resolves to "milk",
	// "milk bottle" resolves to "milk". Single stray words that are noise
	// were already rejected above; we additionally require the shared word
	// to be meaningful so "of" cannot anchor a match.
	if e := v.wordContainmentMatch(q); e != nil {
		return ValidatedItem{Kind: KindMatched, Query: query, Entry: e, Confidence: 0.95, Corrected: e.NameKey != q}
	}

	// Tier 3: phonetic candidate filter + Jaro-Winkler ranking.
	return v.fuzzyResolve(query, q)
}

// wordContainmentMatch finds a catalog entry whose key shares a meaningful
// word with the query as a full token, preferring the most popular entry
// whose key is fully contained in the query, then the reverse direction.
func (v *Validator) wordContainmentMatch(q string) *Entry {
	qTokens := strings.Fields(q)
	var best *Entry
	for _, e := range v.index.entries {
		eTokens := strings.Fields(e.NameKey)
		if !tokensMeaningfulOverlap(qTokens, eTokens) {
			continue
		}
		if containsAllTokens(qTokens, eTokens) || containsAllTokens(eTokens, qTokens) {
			if best == nil || e.PopularityRank < best.PopularityRank {
				best = e
			}
		}
	}
	return best
}

// fuzzyResolve runs the phonetic + Jaro-Winkler pass across the whole catalog
// and turns the ranked candidates into a Matched, Suggested, or Unresolved
// outcome depending on the best score.
func (v *Validator) fuzzyResolve(rawQuery, q string) ValidatedItem {
	qTokens := strings.Fields(q)
	qCodes := codesForTokens(qTokens)

	type scored struct {
		entry *Entry
		score float64
	}
	var candidates []scored

	for _, e := range v.index.entries {
		eTokens := strings.Fields(e.NameKey)
		score := bestSimilarity(qTokens, eTokens, q, e.NameKey)

		// Non-phonetic candidates need a visibly higher score to qualify,
		// matching the corrector's stricter pure-fuzzy gate.
		if !codesOverlap(qCodes, codesForTokens(eTokens)) {
			if score < v.autoCorrectThreshold {
				continue
			}
		}
		if score < v.suggestionFloor {
			continue
		}
		candidates = append(candidates, scored{entry: e, score: score})
	}

	if len(candidates) == 0 {
		return ValidatedItem{Kind: KindUnresolved, Query: rawQuery}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.PopularityRank < candidates[j].entry.PopularityRank
	})

	if best := candidates[0]; best.score >= v.autoCorrectThreshold {
		return ValidatedItem{
			Kind:       KindMatched,
			Query:      rawQuery,
			Entry:      best.entry,
			Confidence: best.score,
			Corrected:  true,
		}
	}

	n := len(candidates)
	if n > v.maxSuggestions {
		n = v.maxSuggestions
	}
	out := make([]*Entry, 0, n)
	for _, c := range candidates[:n] {
		out = append(out, c.entry)
	}
	return ValidatedItem{Kind: KindSuggested, Query: rawQuery, Suggestions: out}
}

// FindBest returns the closest catalog entry to query together with its
// similarity score, without applying the acceptance thresholds. Used by the
// suggestion sources to map free-form LLM output onto catalog keys.
func (v *Validator) FindBest(query string) (*Entry, float64) {
	q := NormalizeKey(query)
	if q == "" {
		return nil, 0
	}
	if e := v.index.Get(q); e != nil {
		return e, 1.0
	}
	qTokens := strings.Fields(q)
	var (
		best      *Entry
		bestScore float64
	)
	for _, e := range v.index.entries {
		score := bestSimilarity(qTokens, strings.Fields(e.NameKey), q, e.NameKey)
		if score > bestScore || (score == bestScore && best != nil && e.PopularityRank < best.PopularityRank) {
			best, bestScore = e, score
		}
	}
	return best, bestScore
}

// stripLeadingNumber drops a leading digit run ("2 milk" → "milk") so that
// quantities that survived extraction do not pollute the item name.
func stripLeadingNumber(s string) string {
	fields := strings.Fields(s)
	if len(fields) > 1 && isDigits(fields[0]) {
		return strings.Join(fields[1:], " ")
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isNoise reports whether every token of the normalised query is a noise word.
func isNoise(q string) bool {
	for _, t := range strings.Fields(q) {
		if _, ok := noiseWords[t]; !ok {
			return false
		}
	}
	return true
}

// tokensMeaningfulOverlap reports whether a and b share a full token that is
// not a noise word.
func tokensMeaningfulOverlap(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		if _, noise := noiseWords[t]; !noise {
			set[t] = struct{}{}
		}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// containsAllTokens reports whether every token of inner appears in outer.
func containsAllTokens(outer, inner []string) bool {
	set := make(map[string]struct{}, len(outer))
	for _, t := range outer {
		set[t] = struct{}{}
	}
	for _, t := range inner {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// codesForTokens returns the union of Double Metaphone codes for the tokens.
// Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestSimilarity computes the highest Jaro-Winkler similarity between the
// query and a catalog key using three strategies: full strings, space-stripped
// strings, and the best pairwise token score. The pairwise pass handles the
// common voice case where one spoken word corresponds to one key word.
func bestSimilarity(qTokens, eTokens []string, qFull, eFull string) float64 {
	score := matchr.JaroWinkler(qFull, eFull, false)

	if len(qTokens) > 1 || len(eTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(qTokens, ""), strings.Join(eTokens, ""), false); s > score {
			score = s
		}
	}

	for _, qt := range qTokens {
		if _, noise := noiseWords[qt]; noise {
			continue
		}
		for _, et := range eTokens {
			if s := matchr.JaroWinkler(qt, et, false); s > score {
				score = s
			}
		}
	}
	return score
}

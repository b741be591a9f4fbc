package nlu

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/karlvoss/aisle/internal/catalog"
)

// intentPattern binds an intent to its trigger vocabulary. Single words are
// matched on word boundaries; phrases are matched as substrings. Order
// matters: earlier families win, and add_item is intentionally last because
// its verbs ("get", "need") appear inside many other phrasings.
type intentPattern struct {
	intent  Intent
	words   []string
	phrases []string
	wordsRe *regexp.Regexp
}

var intentPatterns = []intentPattern{
	{
		intent:  IntentClearList,
		words:   []string{"clear", "empty", "reset", "wipe"},
		phrases: []string{"start over", "delete all", "remove all", "remove everything", "delete everything"},
	},
	{
		// Bare "list" is deliberately absent: "add bananas to my list" must
		// not classify as list_items.
		intent:  IntentListItems,
		words:   []string{"show", "read", "display", "view"},
		phrases: []string{"tell me", "what's on", "what is on", "what do i have"},
	},
	{
		intent:  IntentGetSuggestions,
		words:   []string{"suggest", "recommend", "ideas", "idea"},
		phrases: []string{"what else", "what should", "help me"},
	},
	{
		intent:  IntentUncheckItem,
		words:   []string{"uncheck", "unmark", "untick"},
		phrases: []string{"didn't get", "did not get", "haven't got", "put back"},
	},
	{
		// Before check_item so "do you have milk" is a search, not a check.
		intent:  IntentSearchItem,
		words:   []string{"search", "find", "where", "locate"},
		phrases: []string{"look for", "do you have", "is there"},
	},
	{
		intent:  IntentCheckItem,
		words:   []string{"check", "mark", "got", "have", "checked", "tick", "bought", "purchased"},
		phrases: []string{"done with"},
	},
	{
		intent:  IntentRemoveItem,
		words:   []string{"remove", "delete"},
		phrases: []string{"take out", "take off", "cross off", "get rid of", "don't need", "do not need"},
	},
	{
		intent:  IntentModifyItem,
		words:   []string{"change", "update", "modify", "set", "adjust"},
		phrases: []string{"make it"},
	},
	{
		intent:  IntentAddItem,
		words:   []string{"add", "put", "get", "buy", "need", "want", "grab", "include"},
		phrases: []string{"throw in", "pick up", "i need", "i want"},
	},
}

// clearRemainderAllowed lists what may follow a "remove all"-style phrase for
// it to still mean clear_list; anything else ("remove all the milk") falls
// through to remove_item.
var clearRemainderAllowed = map[string]struct{}{
	"": {}, "items": {}, "things": {}, "list": {}, "the list": {}, "my list": {},
	"from my list": {}, "from the list": {}, "from list": {},
}

// stopWords never form part of an item name.
var stopWords = map[string]struct{}{
	"list": {}, "all": {}, "everything": {}, "me": {}, "my": {}, "the": {},
	"some": {}, "any": {}, "i": {}, "it": {}, "you": {}, "we": {}, "he": {},
	"she": {}, "they": {}, "us": {}, "that": {}, "this": {}, "thing": {},
	"things": {}, "stuff": {}, "way": {}, "day": {}, "time": {}, "sorry": {},
	"lot": {}, "bit": {}, "something": {}, "nothing": {},
	"a": {}, "an": {}, "to": {}, "from": {}, "on": {}, "in": {}, "at": {},
	"for": {}, "with": {}, "of": {}, "off": {}, "out": {}, "up": {},
	"shopping": {}, "cart": {}, "grocery": {}, "groceries": {},
}

// intentKeywordTokens is every word appearing in any intent vocabulary; used
// to keep trigger verbs out of extracted item spans. Built in init.
var intentKeywordTokens = map[string]struct{}{}

var priceRe = regexp.MustCompile(`(?:\$(\d+(?:\.\d{1,2})?))|(?:\b(\d+(?:\.\d{1,2})?)\s*(?:dollars?|bucks?)\b)`)

func init() {
	for i := range intentPatterns {
		p := &intentPatterns[i]
		escaped := make([]string, len(p.words))
		for j, w := range p.words {
			escaped[j] = regexp.QuoteMeta(w)
		}
		p.wordsRe = regexp.MustCompile(`\b(?:` + strings.Join(escaped, "|") + `)\b`)

		for _, w := range p.words {
			intentKeywordTokens[w] = struct{}{}
		}
		for _, ph := range p.phrases {
			for _, w := range strings.Fields(ph) {
				intentKeywordTokens[w] = struct{}{}
			}
		}
	}
}

// Extractor is the deterministic fast-path command parser. It matches item
// spans against the catalog vocabulary and scores its own confidence so the
// router can decide whether the LLM fallback is worth the latency.
// Read-only after construction, safe for concurrent use.
type Extractor struct {
	catalog *catalog.Index
	logger  *slog.Logger
}

// NewExtractor builds an Extractor over the given catalog index.
func NewExtractor(idx *catalog.Index, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{catalog: idx, logger: logger}
}

// Parse interprets a preprocessed transcript. It always returns a command;
// unclassifiable input yields IntentUnknown with a confidence low enough to
// route to the fallback extractor.
func (e *Extractor) Parse(pre Preprocessed) ParsedCommand {
	text := pre.Text

	intent := detectIntent(text)

	// Itemless intents skip span extraction: "what's on my list" must not
	// surface "list" or a question word as an item.
	var (
		item       string
		catalogHit bool
	)
	if intent.NeedsItem() || intent == IntentUnknown {
		item, catalogHit = e.extractItem(text)
	}
	quantity := extractQuantity(text)
	unit := extractUnit(text)
	priceMax := extractPrice(text)

	cmd := ParsedCommand{
		Intent:   intent,
		Item:     item,
		Quantity: quantity,
		Unit:     unit,
		PriceMax: priceMax,
		Method:   MethodFast,
	}
	cmd.Confidence = scoreConfidence(cmd, catalogHit, pre.VagueQuantity)

	e.logger.Debug("fast extraction",
		"text", text,
		"intent", string(cmd.Intent),
		"item", cmd.Item,
		"confidence", cmd.Confidence)
	return cmd
}

// detectIntent returns the first intent whose vocabulary matches, or
// IntentUnknown when nothing does.
func detectIntent(text string) Intent {
	for _, p := range intentPatterns {
		for _, phrase := range p.phrases {
			idx := strings.Index(text, phrase)
			if idx < 0 {
				continue
			}
			if p.intent == IntentClearList {
				remainder := strings.TrimSpace(text[idx+len(phrase):])
				if _, ok := clearRemainderAllowed[remainder]; !ok {
					continue
				}
			}
			return p.intent
		}
		if p.wordsRe.MatchString(text) {
			return p.intent
		}
	}
	return IntentUnknown
}

// extractItem finds the item span. A catalog phrase match wins: the longest
// contiguous token run equal to a catalog key, earliest such run on ties.
// Otherwise a noun-ish heuristic picks the first contiguous run of content
// tokens, which keeps working for items outside the catalog.
func (e *Extractor) extractItem(text string) (item string, catalogHit bool) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return "", false
	}

	if e.catalog != nil {
		maxWords := e.catalog.MaxKeyWords()
		if maxWords > len(tokens) {
			maxWords = len(tokens)
		}
		for n := maxWords; n >= 1; n-- {
			for i := 0; i+n <= len(tokens); i++ {
				span := strings.Join(tokens[i:i+n], " ")
				if e.catalog.Get(span) != nil {
					return span, true
				}
			}
		}
	}

	// Heuristic span: first contiguous run of tokens that are not stop
	// words, units, numbers, or intent trigger verbs.
	var run []string
	for _, t := range tokens {
		if isContentToken(t) {
			run = append(run, t)
			continue
		}
		if len(run) > 0 {
			break
		}
	}
	if len(run) == 0 {
		return "", false
	}
	return strings.Join(run, " "), false
}

func isContentToken(t string) bool {
	if len(t) < 2 {
		return false
	}
	if _, ok := stopWords[t]; ok {
		return false
	}
	if _, ok := unitWords[t]; ok {
		return false
	}
	if _, ok := intentKeywordTokens[t]; ok {
		return false
	}
	if _, err := strconv.ParseFloat(t, 64); err == nil {
		return false
	}
	return true
}

// extractQuantity returns the first standalone number that is not part of a
// price phrase, or 0 when absent.
func extractQuantity(text string) float64 {
	tokens := strings.Fields(text)
	for i, t := range tokens {
		if strings.HasPrefix(t, "$") {
			continue
		}
		clean := strings.Trim(t, ".,!?;:")
		n, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			continue
		}
		if i+1 < len(tokens) {
			next := strings.Trim(tokens[i+1], ".,!?;:")
			if next == "dollar" || next == "dollars" || next == "buck" || next == "bucks" {
				continue
			}
		}
		return n
	}
	return 0
}

// extractUnit returns the first measurement token, or "" when absent.
func extractUnit(text string) string {
	for _, t := range tokenize(text) {
		if _, ok := unitWords[t]; ok {
			return t
		}
	}
	return ""
}

// extractPrice returns the price ceiling when the text carries an explicit
// currency marker ("$5", "under 10 dollars"); bare numbers are quantities.
func extractPrice(text string) float64 {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return n
}

// scoreConfidence computes the calibrated fast-path confidence. The weights
// were tuned on labelled transcripts: a detected intent plus a catalog item
// hit clears the fallback threshold on its own, a non-catalog item does not.
func scoreConfidence(cmd ParsedCommand, catalogHit, vague bool) float64 {
	score := 0.5

	if cmd.Intent != IntentUnknown {
		score += 0.2
	}

	switch {
	case cmd.Item != "" && catalogHit:
		score += 0.25
	case cmd.Item != "":
		score += 0.1
	case !cmd.Intent.NeedsItem() && cmd.Intent != IntentUnknown:
		// Itemless intents ("what's on my list") are complete without an
		// entity and deserve the same certainty as a catalog hit.
		score += 0.25
	}

	if cmd.Quantity > 0 {
		score += 0.05
	}
	if vague {
		score -= 0.05
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	// Two decimals, same precision the threshold is configured in.
	return float64(int(score*100+0.5)) / 100
}

func tokenize(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

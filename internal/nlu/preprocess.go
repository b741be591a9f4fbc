package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

// numberWords maps spoken numerals to values. "a"/"an" are handled separately
// because they are usually articles, not quantities.
var numberWords = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19, "twenty": 20, "thirty": 30,
	"forty": 40, "fifty": 50,
	"half": 0.5, "couple": 2, "dozen": 12, "handful": 5,
}

// vagueQuantifiers normalise to quantity 1 but lower the extraction
// confidence, since "some milk" says less than "2 bottles of milk".
var vagueQuantifiers = map[string]struct{}{
	"some": {}, "few": {}, "several": {},
}

// fillerWords are hedges and verbal debris stripped before parsing.
var fillerWords = map[string]struct{}{
	"um": {}, "uh": {}, "erm": {}, "er": {}, "hmm": {}, "hm": {},
	"ah": {}, "oh": {}, "like": {}, "basically": {}, "literally": {},
	"actually": {}, "really": {}, "well": {}, "so": {}, "just": {},
	"maybe": {}, "perhaps": {}, "please": {},
}

// unitWords are measurement tokens; also used to decide whether "a"/"an" is a
// quantity ("a dozen eggs") or an article ("add a pizza").
var unitWords = map[string]struct{}{
	"kg": {}, "kilogram": {}, "kilograms": {}, "g": {}, "gram": {}, "grams": {},
	"lb": {}, "lbs": {}, "pound": {}, "pounds": {}, "oz": {}, "ounce": {}, "ounces": {},
	"l": {}, "liter": {}, "liters": {}, "litre": {}, "litres": {},
	"ml": {}, "milliliter": {}, "milliliters": {},
	"piece": {}, "pieces": {}, "pc": {}, "pcs": {},
	"pack": {}, "packs": {}, "packet": {}, "packets": {},
	"bag": {}, "bags": {}, "box": {}, "boxes": {}, "can": {}, "cans": {},
	"bottle": {}, "bottles": {}, "bunch": {}, "bunches": {},
	"dozen": {}, "loaf": {}, "loaves": {}, "jar": {}, "jars": {},
	"carton": {}, "cartons": {}, "tray": {}, "trays": {}, "roll": {}, "rolls": {},
	"cup": {}, "cups": {}, "tbsp": {}, "tablespoon": {}, "tablespoons": {},
	"tsp": {}, "teaspoon": {}, "teaspoons": {}, "slice": {}, "slices": {},
}

// politePrefixRe strips polite openers ("hey", "can you", "i'd like you to")
// from the front of a transcript, repeatedly.
var politePrefixRe = regexp.MustCompile(
	`^(?:hey\s+(?:there\s+)?|hi\s+|hello\s+|okay\s+|ok\s+` +
		`|can\s+you\s+|could\s+you\s+|would\s+you\s+|will\s+you\s+` +
		`|i\s+(?:want\s+(?:you\s+)?to\s+|need\s+you\s+to\s+|'d\s+like\s+(?:you\s+)?to\s+)` +
		`|please\s+)+`)

// multiWordFillers are removed before tokenisation since the single-word pass
// cannot see them.
var multiWordFillers = []string{"you know", "i mean", "kind of", "sort of"}

// Preprocessed is the output of [Preprocess].
type Preprocessed struct {
	// Text is the normalised lowercase transcript, e.g.
	// "Um, can you add two bananas please" → "add 2 bananas".
	Text string

	// VagueQuantity is true when the transcript quantified the item with a
	// vague word ("some", "a few"); the amount defaults to 1 and the
	// extractor lowers its confidence accordingly.
	VagueQuantity bool
}

// Preprocess normalises a voice transcript for parsing: lowercase, polite
// prefixes and filler words stripped, spoken numerals converted to digits,
// whitespace collapsed.
func Preprocess(raw string) Preprocessed {
	text := strings.ToLower(strings.TrimSpace(raw))

	text = politePrefixRe.ReplaceAllString(text, "")

	for _, f := range multiWordFillers {
		text = strings.ReplaceAll(text, f, " ")
	}

	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))
	vague := false
	for i, token := range tokens {
		clean := strings.Trim(token, ".,!?;:")

		if _, ok := vagueQuantifiers[clean]; ok {
			// "a few" already consumed the "a" as an article; the vague word
			// itself becomes quantity 1.
			vague = true
			out = append(out, "1")
			continue
		}
		if clean == "a" || clean == "an" {
			// Before a numeral the article is redundant ("a dozen eggs" →
			// "12 eggs"); before a bare unit it is the quantity ("a bottle
			// of milk" → "1 bottle of milk"); otherwise it stays an article
			// ("add a pizza").
			next := nextClean(tokens, i)
			if _, num := numberWords[next]; num {
				continue
			}
			if _, vg := vagueQuantifiers[next]; vg {
				continue
			}
			if _, unit := unitWords[next]; unit {
				out = append(out, "1")
			} else {
				out = append(out, token)
			}
			continue
		}
		if n, ok := numberWords[clean]; ok {
			out = append(out, formatNumber(n))
			continue
		}
		if _, ok := fillerWords[clean]; ok {
			continue
		}
		out = append(out, token)
	}

	text = strings.Join(out, " ")
	text = strings.Trim(text, ".,!?;: ")
	text = strings.Join(strings.Fields(text), " ")

	return Preprocessed{Text: text, VagueQuantity: vague}
}

func nextClean(tokens []string, i int) string {
	if i+1 >= len(tokens) {
		return ""
	}
	return strings.Trim(tokens[i+1], ".,!?;:")
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

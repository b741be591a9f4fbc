// Package nlu turns a voice transcript into a typed shopping command.
//
// The pipeline is hybrid: a deterministic fast extractor handles the common
// phrasings and reports a calibrated confidence; only transcripts scoring
// below the configured threshold are routed to the LLM fallback extractor.
// Fallback failures degrade back to the fast result, so interpretation never
// fails outright; the worst case is a low-confidence unknown command.
package nlu

// Intent is the category of action a command requests.
type Intent string

const (
	IntentAddItem        Intent = "add_item"
	IntentRemoveItem     Intent = "remove_item"
	IntentModifyItem     Intent = "modify_item"
	IntentCheckItem      Intent = "check_item"
	IntentUncheckItem    Intent = "uncheck_item"
	IntentSearchItem     Intent = "search_item"
	IntentListItems      Intent = "list_items"
	IntentClearList      Intent = "clear_list"
	IntentGetSuggestions Intent = "get_suggestions"
	IntentUnknown        Intent = "unknown"
)

// IsValid reports whether i is a recognised intent.
func (i Intent) IsValid() bool {
	switch i {
	case IntentAddItem, IntentRemoveItem, IntentModifyItem, IntentCheckItem,
		IntentUncheckItem, IntentSearchItem, IntentListItems, IntentClearList,
		IntentGetSuggestions, IntentUnknown:
		return true
	}
	return false
}

// NeedsItem reports whether the intent requires an item slot to act.
func (i Intent) NeedsItem() bool {
	switch i {
	case IntentListItems, IntentClearList, IntentGetSuggestions, IntentUnknown:
		return false
	}
	return true
}

// Method identifies which extraction path produced a ParsedCommand.
type Method string

const (
	// MethodFast marks results from the deterministic rule extractor.
	MethodFast Method = "fast"

	// MethodFallback marks results from the LLM fallback extractor.
	MethodFallback Method = "fallback"
)

// ParsedCommand is the structured interpretation of one transcript.
// Produced fresh per command and never mutated afterwards.
type ParsedCommand struct {
	Intent Intent `json:"intent"`

	// Item is the raw extracted item name. Empty when the command carries no
	// item slot (e.g., "what's on my list").
	Item string `json:"item,omitempty"`

	// Quantity is the parsed amount. Zero means absent; the executor applies
	// the default of 1 for additive intents.
	Quantity float64 `json:"quantity,omitempty"`

	// Unit is the measurement unit ("kg", "bottles", ...), empty when absent.
	Unit string `json:"unit,omitempty"`

	// Category and Brand are optional slots only the fallback extractor fills.
	Category string `json:"category,omitempty"`
	Brand    string `json:"brand,omitempty"`

	// PriceMax is a price ceiling for search_item, zero when absent.
	PriceMax float64 `json:"price_max,omitempty"`

	// Confidence is the calibrated extraction confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Method records which extraction path produced this result.
	Method Method `json:"method"`
}

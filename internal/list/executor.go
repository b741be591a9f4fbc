package list

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/karlvoss/aisle/internal/catalog"
	"github.com/karlvoss/aisle/internal/nlu"
	"github.com/karlvoss/aisle/internal/observe"
)

// Executor applies parsed commands to list aggregates. It owns the per-list
// mutual exclusion: two concurrent mutations of the same list id never
// interleave, while different lists proceed in parallel.
type Executor struct {
	store     Store
	index     *catalog.Index
	validator *catalog.Validator

	// fuzzyThreshold is the minimum Jaro-Winkler similarity for matching a
	// spoken name against an entry already on the list.
	fuzzyThreshold float64

	metrics *observe.Metrics
	logger  *slog.Logger

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewExecutor builds an Executor. fuzzyThreshold outside (0, 1] falls back to
// the tuned default of 0.70. metrics may be nil in tests.
func NewExecutor(store Store, idx *catalog.Index, validator *catalog.Validator, fuzzyThreshold float64, metrics *observe.Metrics, logger *slog.Logger) *Executor {
	if fuzzyThreshold <= 0 || fuzzyThreshold > 1 {
		fuzzyThreshold = 0.70
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		store:          store,
		index:          idx,
		validator:      validator,
		fuzzyThreshold: fuzzyThreshold,
		metrics:        metrics,
		logger:         logger,
		locks:          make(map[string]*sync.Mutex),
	}
}

// listLock returns the mutex for a list id, creating it on first use.
func (e *Executor) listLock(listID string) *sync.Mutex {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()
	l, ok := e.locks[listID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[listID] = l
	}
	return l
}

// mutate runs fn on a private copy of the list under the list's lock and
// persists the copy when fn reports success. A failing fn leaves the stored
// state untouched, which is what makes each command atomic.
func (e *Executor) mutate(ctx context.Context, listID string, fn func(*List) ActionResult) (ActionResult, List, error) {
	lock := e.listLock(listID)
	lock.Lock()
	defer lock.Unlock()

	l, err := e.store.GetList(ctx, listID)
	if err != nil {
		return ActionResult{}, List{}, fmt.Errorf("list: load %q: %w", listID, err)
	}

	result := fn(&l)
	if result.Status == StatusSuccess {
		if err := e.store.SaveList(ctx, l); err != nil {
			return ActionResult{}, List{}, fmt.Errorf("list: save %q: %w", listID, err)
		}
	}
	return result, l, nil
}

// Execute dispatches a parsed command against the list. The returned error is
// reserved for storage failures; every interpretation problem (missing item,
// nothing matched, unknown intent) is expressed as an ActionResult so it can
// be spoken back to the user.
func (e *Executor) Execute(ctx context.Context, listID string, cmd nlu.ParsedCommand) (ActionResult, List, error) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordAction(ctx, string(cmd.Intent), time.Since(start))
		}
	}()

	if cmd.Quantity < 0 {
		l, err := e.store.GetList(ctx, listID)
		if err != nil {
			return ActionResult{}, List{}, fmt.Errorf("list: load %q: %w", listID, err)
		}
		return ActionResult{Status: StatusError, Message: "Quantity must be positive."}, l, nil
	}

	switch cmd.Intent {
	case nlu.IntentAddItem:
		return e.mutate(ctx, listID, func(l *List) ActionResult {
			return e.addFromCommand(l, cmd)
		})
	case nlu.IntentRemoveItem:
		return e.mutate(ctx, listID, func(l *List) ActionResult {
			return e.removeFromCommand(l, cmd)
		})
	case nlu.IntentModifyItem:
		return e.mutate(ctx, listID, func(l *List) ActionResult {
			return e.modifyFromCommand(l, cmd)
		})
	case nlu.IntentCheckItem:
		return e.mutate(ctx, listID, func(l *List) ActionResult {
			return e.toggleFromCommand(l, cmd)
		})
	case nlu.IntentUncheckItem:
		return e.mutate(ctx, listID, func(l *List) ActionResult {
			return e.uncheckFromCommand(l, cmd)
		})
	case nlu.IntentClearList:
		return e.mutate(ctx, listID, func(l *List) ActionResult {
			l.Items = nil
			return ActionResult{Status: StatusSuccess, Message: "List cleared."}
		})
	case nlu.IntentSearchItem:
		return e.readOnly(ctx, listID, e.searchResult(cmd))
	case nlu.IntentListItems:
		return e.readOnly(ctx, listID, ActionResult{Status: StatusSuccess, Message: "Here is your list."})
	case nlu.IntentGetSuggestions:
		return e.readOnly(ctx, listID, ActionResult{Status: StatusSuccess, Message: "Here are some ideas for you."})
	default:
		return e.readOnly(ctx, listID, ActionResult{
			Status:  StatusError,
			Message: "Sorry, I didn't catch that. Please try rephrasing.",
		})
	}
}

// readOnly returns the current list snapshot together with a fixed result.
func (e *Executor) readOnly(ctx context.Context, listID string, result ActionResult) (ActionResult, List, error) {
	l, err := e.store.GetList(ctx, listID)
	if err != nil {
		return ActionResult{}, List{}, fmt.Errorf("list: load %q: %w", listID, err)
	}
	return result, l, nil
}

// addFromCommand resolves the spoken item against the catalog and either
// merges it into an existing entry or appends a new one.
func (e *Executor) addFromCommand(l *List, cmd nlu.ParsedCommand) ActionResult {
	v := e.validator.Validate(cmd.Item)
	switch v.Kind {
	case catalog.KindMatched:
		// fall through below
	case catalog.KindSuggested:
		names := make([]string, len(v.Suggestions))
		for i, s := range v.Suggestions {
			names[i] = s.Name
		}
		return ActionResult{
			Status:  StatusNoChange,
			Message: fmt.Sprintf("I couldn't find %q. Did you mean %s?", cmd.Item, strings.Join(names, ", ")),
		}
	default:
		if v.Query == "" {
			return ActionResult{Status: StatusError, Message: "I didn't catch which item to add."}
		}
		return ActionResult{
			Status:  StatusError,
			Message: fmt.Sprintf("I couldn't find %q in the store.", cmd.Item),
		}
	}

	entry := v.Entry
	qty := quantityOrDefault(cmd.Quantity)
	unit := cmd.Unit
	if unit == "" && len(entry.CommonUnits) > 0 {
		unit = entry.CommonUnits[0]
	}

	if existing := l.FindByKey(entry.NameKey); existing != nil {
		existing.Quantity += qty
		if existing.Unit == "" {
			existing.Unit = unit
		}
		return ActionResult{
			Status:  StatusSuccess,
			Message: fmt.Sprintf("Updated %s quantity to %d.", existing.DisplayName, existing.Quantity),
		}
	}

	id, err := generateID()
	if err != nil {
		return ActionResult{Status: StatusError, Message: "Something went wrong. Please try again."}
	}
	l.Items = append(l.Items, Item{
		ID:          id,
		NameKey:     entry.NameKey,
		DisplayName: entry.Name,
		Quantity:    qty,
		Unit:        unit,
		Category:    entry.Category,
		AddedVia:    ViaVoice,
	})
	return ActionResult{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Added %d %s.", qty, entry.Name),
	}
}

// removeFromCommand deletes the matched entry entirely. Voice removal never
// decrements: "remove milk" takes milk off the list no matter the quantity.
// The stepper decrement is the separate [Executor.DecrementItem] operation.
func (e *Executor) removeFromCommand(l *List, cmd nlu.ParsedCommand) ActionResult {
	if cmd.Item == "" {
		return ActionResult{Status: StatusError, Message: "I didn't catch which item to remove."}
	}
	item := e.findOnList(l, cmd.Item)
	if item == nil {
		return ActionResult{
			Status:  StatusNoChange,
			Message: fmt.Sprintf("%s not found in your list.", cmd.Item),
		}
	}
	name := item.DisplayName
	l.RemoveByID(item.ID)
	return ActionResult{Status: StatusSuccess, Message: fmt.Sprintf("Removed %s.", name)}
}

func (e *Executor) modifyFromCommand(l *List, cmd nlu.ParsedCommand) ActionResult {
	if cmd.Item == "" {
		return ActionResult{Status: StatusError, Message: "I didn't catch which item to change."}
	}
	item := e.findOnList(l, cmd.Item)
	if item == nil {
		return ActionResult{
			Status:  StatusNoChange,
			Message: fmt.Sprintf("%s not found in your list.", cmd.Item),
		}
	}
	if cmd.Quantity > 0 {
		item.Quantity = quantityOrDefault(cmd.Quantity)
	}
	if cmd.Unit != "" {
		item.Unit = cmd.Unit
	}
	return ActionResult{Status: StatusSuccess, Message: fmt.Sprintf("Updated %s.", item.DisplayName)}
}

func (e *Executor) toggleFromCommand(l *List, cmd nlu.ParsedCommand) ActionResult {
	if cmd.Item == "" {
		return ActionResult{Status: StatusError, Message: "I didn't catch which item to check off."}
	}
	item := e.findOnList(l, cmd.Item)
	if item == nil {
		return ActionResult{
			Status:  StatusNoChange,
			Message: fmt.Sprintf("%s not found in your list.", cmd.Item),
		}
	}
	item.Checked = !item.Checked
	state := "unchecked"
	if item.Checked {
		state = "checked"
	}
	return ActionResult{Status: StatusSuccess, Message: fmt.Sprintf("%s %s.", item.DisplayName, state)}
}

func (e *Executor) uncheckFromCommand(l *List, cmd nlu.ParsedCommand) ActionResult {
	if cmd.Item == "" {
		return ActionResult{Status: StatusError, Message: "I didn't catch which item to uncheck."}
	}
	item := e.findOnList(l, cmd.Item)
	if item == nil {
		return ActionResult{
			Status:  StatusNoChange,
			Message: fmt.Sprintf("%s not found in your list.", cmd.Item),
		}
	}
	if !item.Checked {
		return ActionResult{
			Status:  StatusNoChange,
			Message: fmt.Sprintf("%s is not checked.", item.DisplayName),
		}
	}
	item.Checked = false
	return ActionResult{Status: StatusSuccess, Message: fmt.Sprintf("%s unchecked.", item.DisplayName)}
}

// searchResult queries the catalog, never the list. Read-only.
func (e *Executor) searchResult(cmd nlu.ParsedCommand) ActionResult {
	if cmd.Item == "" {
		return ActionResult{Status: StatusNoChange, Message: "What should I search for?"}
	}
	matches := e.index.Search(cmd.Item, cmd.PriceMax, 5)
	if len(matches) == 0 {
		return ActionResult{
			Status:  StatusNoChange,
			Message: fmt.Sprintf("No items found for %q.", cmd.Item),
		}
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Name
	}
	msg := fmt.Sprintf("Found %d results for %q", len(matches), cmd.Item)
	if cmd.PriceMax > 0 {
		msg += fmt.Sprintf(" under $%.2f", cmd.PriceMax)
	}
	return ActionResult{Status: StatusSuccess, Message: msg + ": " + strings.Join(names, ", ")}
}

// findOnList matches a spoken name against the current list contents:
// exact key, article-stripped, substring containment, then Jaro-Winkler
// above the fuzzy threshold. The list is searched rather than the catalog
// because the user is naming something they already added.
func (e *Executor) findOnList(l *List, name string) *Item {
	key := catalog.NormalizeKey(name)
	for _, article := range []string{"the ", "a ", "an ", "some "} {
		if strings.HasPrefix(key, article) {
			key = strings.TrimPrefix(key, article)
			break
		}
	}
	if key == "" {
		return nil
	}

	if item := l.FindByKey(key); item != nil {
		return item
	}

	for i := range l.Items {
		candidate := l.Items[i].NameKey
		if strings.Contains(candidate, key) || strings.Contains(key, candidate) {
			return &l.Items[i]
		}
	}

	var (
		best      *Item
		bestScore float64
	)
	for i := range l.Items {
		score := matchr.JaroWinkler(key, l.Items[i].NameKey, false)
		if score > bestScore {
			best, bestScore = &l.Items[i], score
		}
	}
	if bestScore >= e.fuzzyThreshold {
		return best
	}
	return nil
}

// quantityOrDefault converts the parsed quantity into a list quantity:
// absent becomes 1, fractional amounts round up ("half a dozen" is still a
// purchasable 6, "0.5 kg" still one line with the unit carrying the amount).
func quantityOrDefault(q float64) int {
	if q <= 0 {
		return 1
	}
	n := int(math.Ceil(q))
	if n < 1 {
		n = 1
	}
	return n
}

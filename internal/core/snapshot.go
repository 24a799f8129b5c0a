package core

// Default values used to seed a fresh installation before anything has
// been cached locally or fetched from the remote store.
var DefaultCategories = []string{
	"Infra",
	"Insumos",
	"Pessoal",
	"Impostos",
	"Marketing",
	"Outros",
}

const (
	DefaultFilterStart Date = "2026-01-01"
	DefaultFilterEnd   Date = "2026-01-31"
	DefaultRevenueDate Date = "2026-01-31"
)

// Snapshot is the canonical dashboard state. It is owned and mutated
// exclusively by the sync orchestrator; everything else sees copies.
type Snapshot struct {
	Expenses   []Expense
	Categories []string

	// Single revenue record: amount plus its reference date and the
	// period the figure covers. Overwritten wholesale on update.
	Revenue      Money
	RevenueDate  Date
	RevenueStart Date
	RevenueEnd   Date

	// Last category used for each expense name, learned on create/edit
	// and used to pre-fill the category of repeated entries.
	ItemCategories map[string]string

	// Session view filter; persisted like business data so it survives
	// reloads.
	FilterStart Date
	FilterEnd   Date
}

// DefaultSnapshot returns the built-in state for a first run.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Categories:     append([]string(nil), DefaultCategories...),
		RevenueDate:    DefaultRevenueDate,
		RevenueStart:   DefaultFilterStart,
		RevenueEnd:     DefaultFilterEnd,
		ItemCategories: map[string]string{},
		FilterStart:    DefaultFilterStart,
		FilterEnd:      DefaultFilterEnd,
	}
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Expenses = append([]Expense(nil), s.Expenses...)
	out.Categories = append([]string(nil), s.Categories...)
	out.ItemCategories = make(map[string]string, len(s.ItemCategories))
	for k, v := range s.ItemCategories {
		out.ItemCategories[k] = v
	}
	return out
}

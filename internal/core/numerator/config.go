// Package numerator defines the contract for document number sequences.
package numerator

// Strategy selects how sequence values are allocated.
type Strategy int

const (
	// StrategyStrict takes one value per call with UPDATE ... RETURNING.
	// Gap-free, so invoices and other accounting documents use it.
	StrategyStrict Strategy = iota

	// StrategyCached leases a range of values and hands them out from
	// memory. Restarts leave gaps, which is acceptable for orders and
	// other internal documents.
	StrategyCached
)

// Options tunes a single GetNextNumber call.
type Options struct {
	Strategy Strategy
	// RangeSize is the lease size for StrategyCached. Zero means 50.
	RangeSize int64
}

// DefaultOptions returns the strict, gap-free settings.
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Config describes the shape of generated numbers for one sequence.
type Config struct {
	// Prefix such as "INV" or "SO".
	Prefix string

	// IncludeYear puts the period year into the number.
	IncludeYear bool

	// PadWidth is the zero-padded width of the counter part.
	PadWidth int

	// ResetPeriod is "year", "month" or "never".
	ResetPeriod string
}

// DefaultConfig builds the common yearly sequence: PREFIX-YYYY-NNNNN.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

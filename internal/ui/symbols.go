package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Target collected and healthy
	SymbolFail     = "✗" // Target failed or alerting
	SymbolProgress = "◐" // Collection in progress
	SymbolWarning  = "!" // Alert section marker
)

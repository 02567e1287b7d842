// Package sources registers the datasource adapters with the core registry.
// Import this package to ensure all sources are registered.
package sources

// Source tags as they appear in the indicator catalog.
const (
	TagWorldBank = "WORLD BANK"
	TagOECD      = "OECD"
	TagEurostat  = "EUROSTAT"
	TagWHOEurope = "WHO/Europe"
	TagHESRI     = "WHO/HESRI"
	TagHESRI2    = "WHO/HESRI 2"
)

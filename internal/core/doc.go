// Package core provides indicator retrieval, normalization and reshaping.
//
// This package contains the domain logic independent of any UI or transport
// layer. It can be used by web handlers, CLI tools, or tests without
// modification.
//
// # Architecture
//
//   - Source Definitions: one adapter per statistics provider, registered via
//     the registry. Each turns an indicator code into canonical records.
//   - Dimension Discovery: classifies the columns of wide tables into
//     filterable dimensions, the sex split, the country column and periods.
//   - Pipeline: Filter, SplitBySex, Pivot and LatestPerCountry over records.
//   - Service: explore mode and country profiles on top of reference data.
//
// # Source Registry
//
// Sources are registered at init time using [Register]:
//
//	core.Register(core.SourceDefinition{
//	    Info:      core.SourceInfo{Tag: "WORLD BANK", Label: "World Bank"},
//	    DataURL:   worldBankURL,
//	    LinkURL:   worldBankLink,
//	    Normalize: normalizeWorldBank,
//	})
//
// Every call to a Normalize func builds its own [DimensionRegistry] and sex
// split flag and returns them in the [Result]; nothing is shared between calls.
//
// # Canonical Records
//
// A [Record] is a (country_code, year, value) triple plus an ordered list of
// discovered dimensions. Values may be absent ([NullFloat] with Valid=false).
//
// # Error Handling
//
// Adapters return [FetchError], [ParseError] or [SchemaError]. Technical
// errors are mapped to user-friendly messages using [MapError]:
//
//   - SRC001-SRC003: Provider unreachable, rejected or slow
//   - PRS001, SCH001: Unexpected response or table layout
//   - DAT001: No data for the selection
//   - REQ001-REQ003: Unknown indicator, country or datasource
package core

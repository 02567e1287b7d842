// Package core provides the indicator normalization logic.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
)

// NullFloat is an observation value that may be absent.
// Absent values marshal to JSON null.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float returns a valid NullFloat. NaN and Inf are treated as absent.
func Float(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// ParseFloat parses s into a NullFloat. Empty or unparseable input is absent.
func ParseFloat(s string) NullFloat {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NullFloat{}
	}
	return Float(f)
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*n = NullFloat{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Float(f)
	return nil
}

// Dim is one discovered extra column on a record.
type Dim struct {
	Name  string
	Value string
}

// Dims is a small ordered map of dimension columns.
// Order is the order in which the adapter discovered the columns.
type Dims []Dim

// Get returns the value of the named dimension.
func (d Dims) Get(name string) (string, bool) {
	for _, dim := range d {
		if dim.Name == name {
			return dim.Value, true
		}
	}
	return "", false
}

// Set returns d with name set to value, replacing an existing entry in place.
func (d Dims) Set(name, value string) Dims {
	for i := range d {
		if d[i].Name == name {
			d[i].Value = value
			return d
		}
	}
	return append(d, Dim{Name: name, Value: value})
}

// Keys returns the dimension names in order.
func (d Dims) Keys() []string {
	keys := make([]string, len(d))
	for i, dim := range d {
		keys[i] = dim.Name
	}
	return keys
}

// Clone returns a copy that shares no backing array with d.
func (d Dims) Clone() Dims {
	if d == nil {
		return nil
	}
	out := make(Dims, len(d))
	copy(out, d)
	return out
}

// Record is one canonical observation: the fixed triple plus discovered dimensions.
type Record struct {
	CountryCode string
	Year        int
	Value       NullFloat
	Dims        Dims
}

// MarshalJSON flattens the dimensions next to the fixed triple:
// {"country_code":"ITA","year":2020,"value":1.5,"sex":"F"}.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"country_code":`)
	code, _ := json.Marshal(r.CountryCode)
	buf.Write(code)
	buf.WriteString(`,"year":`)
	buf.WriteString(strconv.Itoa(r.Year))
	buf.WriteString(`,"value":`)
	val, err := r.Value.MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf.Write(val)
	for _, d := range r.Dims {
		buf.WriteByte(',')
		k, _ := json.Marshal(d.Name)
		v, _ := json.Marshal(d.Value)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Dimension is one filterable axis and its distinct values in first-seen order.
type Dimension struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// DimensionRegistry lists the filterable dimensions discovered in one dataset.
// It is rebuilt by every normalization call and never shared between calls.
type DimensionRegistry []Dimension

// Get returns the values for a dimension.
func (r DimensionRegistry) Get(name string) ([]string, bool) {
	for _, d := range r {
		if d.Name == name {
			return d.Values, true
		}
	}
	return nil, false
}

// Names returns the dimension names in discovery order.
func (r DimensionRegistry) Names() []string {
	names := make([]string, len(r))
	for i, d := range r {
		names[i] = d.Name
	}
	return names
}

// Result is the output of one normalization call.
type Result struct {
	Records    []Record
	Dimensions DimensionRegistry
	SexSplit   bool
}

// Fetcher retrieves a raw response body for a URL.
// Implementations return *FetchError on transport failure or non-2xx status.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Env carries what an adapter needs besides the indicator code.
type Env struct {
	Fetcher Fetcher
	Data    DataFiles
}

// DataFiles points at the offline files some adapters read.
type DataFiles struct {
	HESRIWorkbook1  string
	HESRIWorkbook2  string
	OECDOfflineCSV  string
	OECDOfflineUnit string
}

// NormalizeFunc turns one indicator code into canonical records.
type NormalizeFunc func(ctx context.Context, env Env, code string) (Result, error)

// URLFunc builds a source URL for an indicator code.
type URLFunc func(code string) string

// SourceInfo contains display information about a datasource.
type SourceInfo struct {
	Tag         string          `json:"tag"`   // Catalog datasource tag: "WORLD BANK", "EUROSTAT", ...
	Label       string          `json:"label"` // Display name
	CountryCode CountryCodeKind `json:"country_code"`
	Offline     bool            `json:"offline"`             // Reads local files instead of the network
	LatestBy    []string        `json:"latest_by,omitempty"` // When set, charts show the latest year per country and these dims
}

// CountryCodeKind names the country identifier a source emits.
type CountryCodeKind string

const (
	CountryISO3 CountryCodeKind = "iso3"
	CountryISO2 CountryCodeKind = "iso2"
)

// SourceDefinition contains everything needed to normalize one datasource.
type SourceDefinition struct {
	Info      SourceInfo
	DataURL   URLFunc // Request URL; nil for offline sources
	LinkURL   URLFunc // Human-facing page for the indicator
	Normalize NormalizeFunc
}

package sources

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// The OECD and WHO/Europe endpoints both answer with a list of measure
// blocks: declared dimensions plus data points keyed by dimension code.

type measureBlock struct {
	Dimensions []measureDimension `json:"dimensions"`
	Data       []measurePoint     `json:"data"`
}

type measureDimension struct {
	Code string `json:"code"`
}

type measurePoint struct {
	Dimensions map[string]flexString `json:"dimensions"`
	Value      struct {
		Numeric *float64 `json:"numeric"`
	} `json:"value"`
}

// declares reports whether the block declares dimension code.
func (b measureBlock) declares(code string) bool {
	for _, d := range b.Dimensions {
		if d.Code == code {
			return true
		}
	}
	return false
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = flexString(n.String())
	}
	return nil
}

// parseYear accepts "2020", "2020.0" and " 2020 ".
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

package core

import "log/slog"

// Sex is the classification of a raw sex token.
type Sex int

const (
	SexUnmapped Sex = iota
	SexFemale
	SexMale
)

func (s Sex) String() string {
	switch s {
	case SexFemale:
		return "F"
	case SexMale:
		return "M"
	default:
		return "unmapped"
	}
}

// ClassifySex maps a raw token to a Sex. Matching is exact and case-sensitive:
// only "F"/"FEMALE" and "M"/"MALE" are recognised. Totals ("T", "_T", "BTSX")
// and anything else are SexUnmapped.
func ClassifySex(token string) Sex {
	switch token {
	case "F", "FEMALE":
		return SexFemale
	case "M", "MALE":
		return SexMale
	default:
		return SexUnmapped
	}
}

// SexSplitOf reports whether values contain both a female and a male token.
// Empty and unmapped tokens do not count; "F" with "FEMALE" is one sex.
func SexSplitOf(values []string) bool {
	var female, male bool
	for _, v := range values {
		switch ClassifySex(v) {
		case SexFemale:
			female = true
		case SexMale:
			male = true
		}
	}
	return female && male
}

// SexValues collects the sex column of records that carry one.
func SexValues(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		if v, ok := r.Dims.Get(SexColumn); ok {
			out = append(out, v)
		}
	}
	return out
}

// SplitBySex partitions records into female and male subsets.
// Records whose sex is missing or unmapped belong to neither; their count is
// logged so undercounting stays visible.
func SplitBySex(records []Record) (female, male []Record) {
	dropped := 0
	for _, r := range records {
		v, _ := r.Dims.Get(SexColumn)
		switch ClassifySex(v) {
		case SexFemale:
			female = append(female, r)
		case SexMale:
			male = append(male, r)
		default:
			dropped++
		}
	}
	if dropped > 0 {
		slog.Info("sex split left records unassigned",
			"dropped", dropped,
			"female", len(female),
			"male", len(male),
		)
	}
	return female, male
}

package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/healthdash/internal/logging"
	"github.com/JonMunkholm/healthdash/internal/reference"
)

// Narrator writes the narrative part of a country profile.
type Narrator interface {
	Narrate(ctx context.Context, req NarrativeRequest) (Narrative, error)
}

// NarrativeRequest is the input to a Narrator.
type NarrativeRequest struct {
	Country string // Display name
	Digest  string // Plain-text data tables
}

// Narrative is a two-part profile text: a data analysis followed by
// policy advice derived from it.
type Narrative struct {
	Analysis string `json:"analysis"`
	Advice   string `json:"advice"`
	Model    string `json:"model,omitempty"`
}

// ProfileRequest selects the country for a profile.
type ProfileRequest struct {
	Country string // ISO3, ISO2 or name
}

// ProfileSection is one catalog indicator within a profile.
type ProfileSection struct {
	Indicator reference.Indicator `json:"indicator"`
	Source    SourceInfo          `json:"source"`
	Records   []Record            `json:"records"`
	Pivot     *PivotTable         `json:"pivot,omitempty"`
	SexSplit  bool                `json:"sex_split"`
	DataLink  string              `json:"data_link,omitempty"`
	Error     *UserMessage        `json:"error,omitempty"`
}

// Title is "<datasource> - <short name>".
func (p ProfileSection) Title() string {
	return p.Indicator.Datasource + " - " + p.Indicator.ShortName
}

// ProfileReport aggregates every profile indicator for one country.
type ProfileReport struct {
	ID             string            `json:"id"`
	Country        reference.Country `json:"country"`
	GeneratedAt    time.Time         `json:"generated_at"`
	Sections       []ProfileSection  `json:"sections"`
	Narrative      Narrative         `json:"narrative"`
	NarrativeError string            `json:"narrative_error,omitempty"`
}

// Failed returns the number of sections without data.
func (r *ProfileReport) Failed() int {
	n := 0
	for _, s := range r.Sections {
		if s.Error != nil {
			n++
		}
	}
	return n
}

// Profile builds a country profile. Indicators are processed one after
// another; a failing indicator is recorded on its section and the rest
// continue. Only context cancellation aborts the run.
func (s *Service) Profile(ctx context.Context, req ProfileRequest) (*ProfileReport, error) {
	start := time.Now()
	ref := s.Reference()

	country, ok := ref.Country(req.Country)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, req.Country)
	}

	if err := s.profiles.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.profiles.Release()

	report := &ProfileReport{
		ID:          uuid.New().String(),
		Country:     country,
		GeneratedAt: time.Now().UTC(),
	}
	logger := logging.WithFields(ctx, "profile_id", report.ID, "country", country.Code)

	env := Env{Fetcher: NewMemoFetcher(s.fetcher), Data: s.data}

	for _, ind := range ref.ProfileIndicators() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		section := s.profileSection(ctx, env, country, ind)
		if section.Error != nil {
			logger.Warn("profile indicator skipped",
				"datasource", ind.Datasource,
				"indicator", ind.Code,
				"code", section.Error.Code,
			)
		}
		report.Sections = append(report.Sections, section)
	}

	switch {
	case s.narrator == nil:
		logger.Info("no narrator configured, profile has no narrative")
	case len(report.Sections) == report.Failed():
		report.NarrativeError = msgEmpty.Message
	default:
		narrative, err := s.narrator.Narrate(ctx, NarrativeRequest{
			Country: country.ShortName,
			Digest:  report.Digest(),
		})
		if err != nil {
			logger.Warn("narrative failed", "error", err)
			report.NarrativeError = MapError(err).Message
		} else {
			report.Narrative = narrative
		}
	}

	logger.Info("profile completed",
		"sections", len(report.Sections),
		"failed", report.Failed(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func (s *Service) profileSection(ctx context.Context, env Env, country reference.Country, ind reference.Indicator) ProfileSection {
	section := ProfileSection{Indicator: ind}

	fail := func(err error) ProfileSection {
		msg := MapError(err)
		section.Error = &msg
		return section
	}

	def, ok := Get(ind.Datasource)
	if !ok {
		return fail(fmt.Errorf("%w: %s", ErrUnknownSource, ind.Datasource))
	}
	section.Source = def.Info
	if def.LinkURL != nil {
		section.DataLink = def.LinkURL(ind.Code)
	}

	res, err := Normalize(ctx, env, ind.Datasource, ind.Code)
	if err != nil {
		logging.FromContext(ctx).Debug("profile indicator failed", "indicator", ind.Code, "error", err)
		return fail(err)
	}

	code := countryKey(country, def.Info.CountryCode)
	var records []Record
	for _, r := range DropMissing(res.Records) {
		if r.CountryCode == code {
			records = append(records, r)
		}
	}
	if len(records) == 0 {
		return fail(ErrEmptyResult)
	}

	SortByCountryYear(records)
	section.Records = records
	section.SexSplit = res.SexSplit
	section.Pivot = Pivot(records, dimKeys(records)...)
	return section
}

// Digest renders the successful sections as plain-text tables for the
// narrator: one block per indicator, one line per pivot row.
func (r *ProfileReport) Digest() string {
	var b strings.Builder
	for _, s := range r.Sections {
		if s.Error != nil || s.Pivot == nil {
			continue
		}
		fmt.Fprintf(&b, "## %s (%s)\n", s.Title(), s.Indicator.LongName)
		b.WriteString(strings.Join(s.Pivot.Index, " | "))
		for _, y := range s.Pivot.Years {
			b.WriteString(" | ")
			b.WriteString(strconv.Itoa(y))
		}
		b.WriteByte('\n')
		for _, row := range s.Pivot.Rows {
			b.WriteString(strings.Join(row.Key, " | "))
			for _, v := range row.Values {
				b.WriteString(" | ")
				if v.Valid {
					b.WriteString(strconv.FormatFloat(v.Float64, 'f', 2, 64))
				}
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JonMunkholm/healthdash/internal/config"
	"github.com/JonMunkholm/healthdash/internal/reference"
)

// Deps are the collaborators a Service needs besides configuration.
type Deps struct {
	Loader   reference.Loader
	Fetcher  Fetcher  // nil builds an HTTPFetcher from cfg.Fetch
	Narrator Narrator // nil leaves profile narratives empty
}

// Service provides indicator exploration and country profiles.
type Service struct {
	cfg      *config.Config
	loader   reference.Loader
	fetcher  Fetcher
	narrator Narrator
	sessions *Sessions
	profiles *ProfileLimiter
	data     DataFiles

	mu  sync.RWMutex
	ref *reference.Data
}

// NewService creates a Service and loads reference data once.
func NewService(ctx context.Context, cfg *config.Config, deps Deps) (*Service, error) {
	if deps.Loader == nil {
		return nil, errors.New("reference loader is required")
	}

	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(FetchConfig{
			Timeout:      cfg.Fetch.Timeout,
			UserAgent:    cfg.Fetch.UserAgent,
			MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		})
	}

	s := &Service{
		cfg:      cfg,
		loader:   deps.Loader,
		fetcher:  fetcher,
		narrator: deps.Narrator,
		sessions: NewSessions(fetcher, cfg.Session.TTL),
		profiles: NewProfileLimiter(cfg.Profile.MaxConcurrent, cfg.Profile.MaxWait),
		data: DataFiles{
			HESRIWorkbook1:  cfg.Data.HESRIWorkbook1,
			HESRIWorkbook2:  cfg.Data.HESRIWorkbook2,
			OECDOfflineCSV:  cfg.Data.OECDOfflineCSV,
			OECDOfflineUnit: cfg.Data.OECDOfflineUnit,
		},
	}

	if err := s.ReloadReference(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reference returns the current reference data.
func (s *Service) Reference() *reference.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ref
}

// ReloadReference loads reference data and swaps it in. On failure the
// previous data stays in place.
func (s *Service) ReloadReference(ctx context.Context) error {
	ref, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}

	s.mu.Lock()
	s.ref = ref
	s.mu.Unlock()
	return nil
}

// Sessions returns the session store.
func (s *Service) Sessions() *Sessions {
	return s.sessions
}

// ProfileStatus reports how many profile slots are in use.
func (s *Service) ProfileStatus() LimiterStatus {
	return s.profiles.Status()
}

// WaitForProfiles blocks until in-flight profiles finish or ctx is done.
func (s *Service) WaitForProfiles(ctx context.Context) error {
	return s.profiles.WaitForDrain(ctx)
}

// ListSources returns the registered sources that have catalog entries,
// in catalog order.
func (s *Service) ListSources() []SourceInfo {
	var out []SourceInfo
	for _, tag := range s.Reference().Datasources() {
		if def, ok := Get(tag); ok {
			out = append(out, def.Info)
		} else {
			slog.Warn("catalog datasource has no adapter", "datasource", tag)
		}
	}
	return out
}

// resolveCountries maps user input (codes or names) to reference countries.
func resolveCountries(ref *reference.Data, queries []string) ([]reference.Country, error) {
	out := make([]reference.Country, 0, len(queries))
	for _, q := range queries {
		c, ok := ref.Country(q)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, q)
		}
		out = append(out, c)
	}
	return out, nil
}

// countryKey returns the code a source uses for c.
func countryKey(c reference.Country, kind CountryCodeKind) string {
	if kind == CountryISO2 {
		return c.ISO2
	}
	return c.Code
}

// dimKeys returns the dimension names carried by records in first-seen order.
func dimKeys(records []Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		for _, d := range r.Dims {
			if _, ok := seen[d.Name]; ok {
				continue
			}
			seen[d.Name] = struct{}{}
			out = append(out, d.Name)
		}
	}
	return out
}

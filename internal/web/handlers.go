package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/healthdash/internal/core"
	"github.com/JonMunkholm/healthdash/internal/reference"
	"github.com/JonMunkholm/healthdash/internal/report"
)

// dimParamPrefix marks dimension selections in the explore query string:
// ?dim.unit=PC&dim.age=Y15-24
const dimParamPrefix = "dim."

// handleHealth reports liveness plus a few counters.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ref := s.service.Reference()
	writeJSON(w, map[string]any{
		"status":     "ok",
		"sources":    core.SourceCount(),
		"indicators": len(ref.Indicators),
		"countries":  len(ref.Countries),
		"sessions":   s.service.Sessions().Len(),
		"profiles":   s.service.ProfileStatus(),
	})
}

// handleListSources returns the datasources with an adapter, in catalog order.
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	ref := s.service.Reference()

	type sourceResponse struct {
		core.SourceInfo
		Areas []string `json:"areas"`
	}
	sources := s.service.ListSources()
	out := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, sourceResponse{SourceInfo: src, Areas: ref.Areas(src.Tag)})
	}
	writeJSON(w, out)
}

// handleListIndicators returns catalog entries, optionally narrowed by
// ?source= and ?area=.
func (s *Server) handleListIndicators(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	indicators := s.service.Reference().IndicatorsFor(q.Get("source"), q.Get("area"))
	if indicators == nil {
		indicators = []reference.Indicator{}
	}
	writeJSON(w, indicators)
}

// handleListCountries returns the country table, optionally one ?group=.
func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	ref := s.service.Reference()
	countries := ref.CountriesInGroup(r.URL.Query().Get("group"))
	if countries == nil {
		countries = []reference.Country{}
	}
	writeJSON(w, map[string]any{
		"groups":    ref.Groups(),
		"countries": countries,
	})
}

// ExploreResponse is the explore result plus the empty-selection state.
type ExploreResponse struct {
	*core.ExploreResult
	Empty   bool   `json:"empty"`
	Message string `json:"message,omitempty"`
}

// handleExplore normalizes one indicator and applies the selection.
// An empty selection is a normal answer, not an error.
func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	req, err := parseExploreRequest(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	req.SessionID = core.SessionIDFromContext(r.Context())

	res, err := s.service.Explore(r.Context(), req)
	switch {
	case errors.Is(err, core.ErrEmptyResult) && res != nil:
		writeJSON(w, ExploreResponse{
			ExploreResult: res,
			Empty:         true,
			Message:       core.MapError(err).Message,
		})
	case err != nil:
		respondError(w, r, err, statusFor(err))
	default:
		writeJSON(w, ExploreResponse{ExploreResult: res})
	}
}

// parseExploreRequest reads the explore query string. Countries may be
// repeated or comma separated.
func parseExploreRequest(r *http.Request) (core.ExploreRequest, error) {
	q := r.URL.Query()

	req := core.ExploreRequest{
		Indicator: strings.TrimSpace(q.Get("indicator")),
		Group:     strings.TrimSpace(q.Get("group")),
	}
	if req.Indicator == "" {
		return req, fmt.Errorf("%w: indicator is required", core.ErrInvalidRequest)
	}

	for _, v := range q["countries"] {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				req.Countries = append(req.Countries, c)
			}
		}
	}

	var err error
	if req.FromYear, err = parseYearParam(q.Get("from")); err != nil {
		return req, err
	}
	if req.ToYear, err = parseYearParam(q.Get("to")); err != nil {
		return req, err
	}

	for key, values := range q {
		name, ok := strings.CutPrefix(key, dimParamPrefix)
		if !ok || name == "" || len(values) == 0 {
			continue
		}
		if req.Dimensions == nil {
			req.Dimensions = make(map[string]string)
		}
		req.Dimensions[name] = values[0]
	}

	return req, nil
}

// parseYearParam parses an optional year. Empty means zero.
func parseYearParam(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 0 {
		return 0, fmt.Errorf("%w: year %q", core.ErrInvalidRequest, v)
	}
	return y, nil
}

// handleProfile builds a country profile and returns it as JSON.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	rep, err := s.service.Profile(r.Context(), core.ProfileRequest{Country: chi.URLParam(r, "country")})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, rep)
}

// handleProfileExport builds a country profile and returns it as a workbook.
func (s *Server) handleProfileExport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.service.Profile(r.Context(), core.ProfileRequest{Country: chi.URLParam(r, "country")})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	// Buffer so a failed export can still answer with an error status.
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, rep); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(rep)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// handleDashboard renders the explorer page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ref := s.service.Reference()
	data := dashboardData{
		Sources:    s.service.ListSources(),
		Indicators: ref.Indicators,
		Countries:  ref.Countries,
		Groups:     ref.Groups(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	dashboardPage(data).Render(r.Context(), w)
}

// handleProfilePage renders a country profile as HTML.
func (s *Server) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	rep, err := s.service.Profile(r.Context(), core.ProfileRequest{Country: chi.URLParam(r, "country")})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	profilePage(rep).Render(r.Context(), w)
}

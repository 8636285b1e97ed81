// Package query turns SearchFilters into request descriptors for both data sources:
// URL query parameters for the admin API and a predicate plan for the database.
package query

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/homefront-realty/admin-backoffice/internal/model"
)

// Query parameter names used by the admin API.
const (
	ParamQuery       = "query"
	ParamStatus      = "status"
	ParamLeadQuality = "leadQuality"
	ParamIntent      = "intent"
	ParamTags        = "tags"
	ParamScoreRange  = "scoreRange"
	ParamDateFrom    = "dateFrom"
	ParamDateTo      = "dateTo"
	ParamSort        = "sort"
	ParamPage        = "page"
	ParamLimit       = "limit"
)

const (
	// DefaultPageSize is used when no limit is given.
	DefaultPageSize = 20
	// MaxPageSize bounds a single page request.
	MaxPageSize = 100
)

// Normalize returns the canonical form of f that both data sources consume: trimmed
// query, nil for empty lists, score range ordered and bounded to 0..100, and a known
// sort key.
func Normalize(f model.SearchFilters) model.SearchFilters {
	out := model.SearchFilters{
		Query: strings.TrimSpace(f.Query),
		Sort:  f.Sort.Normalize(),
	}

	for _, s := range f.Status {
		if s.Valid() && !slices.Contains(out.Status, s) {
			out.Status = append(out.Status, s)
		}
	}
	for _, q := range f.LeadQuality {
		if q.Valid() && !slices.Contains(out.LeadQuality, q) {
			out.LeadQuality = append(out.LeadQuality, q)
		}
	}
	out.Intent = cleanStrings(f.Intent)
	out.Tags = cleanStrings(f.Tags)

	if f.ScoreRange != nil {
		lo, hi := bound(f.ScoreRange[0]), bound(f.ScoreRange[1])
		if lo > hi {
			lo, hi = hi, lo
		}
		out.ScoreRange = &[2]int{lo, hi}
	}

	if f.DateRange != nil && (!f.DateRange.From.IsZero() || !f.DateRange.To.IsZero()) {
		out.DateRange = &model.DateRange{From: f.DateRange.From.UTC(), To: f.DateRange.To.UTC()}
	}

	return out
}

// Params builds the admin API query string for f. Array fields become repeated
// parameters; url.Values.Encode sorts keys, so the encoded form is stable.
func Params(f model.SearchFilters, page, limit int) url.Values {
	f = Normalize(f)
	v := url.Values{}

	if f.Query != "" {
		v.Set(ParamQuery, f.Query)
	}
	for _, s := range f.Status {
		v.Add(ParamStatus, string(s))
	}
	for _, q := range f.LeadQuality {
		v.Add(ParamLeadQuality, string(q))
	}
	for _, i := range f.Intent {
		v.Add(ParamIntent, i)
	}
	for _, t := range f.Tags {
		v.Add(ParamTags, t)
	}
	if f.ScoreRange != nil {
		v.Set(ParamScoreRange, fmt.Sprintf("%d:%d", f.ScoreRange[0], f.ScoreRange[1]))
	}
	if f.DateRange != nil {
		if !f.DateRange.From.IsZero() {
			v.Set(ParamDateFrom, f.DateRange.From.Format(time.RFC3339Nano))
		}
		if !f.DateRange.To.IsZero() {
			v.Set(ParamDateTo, f.DateRange.To.Format(time.RFC3339Nano))
		}
	}
	v.Set(ParamSort, string(f.Sort))
	if page > 0 {
		v.Set(ParamPage, strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set(ParamLimit, strconv.Itoa(limit))
	}
	return v
}

// ParseParams is the inverse of Params. Status and lead quality accept both repeated and
// comma separated values. Missing page and limit default to 1 and DefaultPageSize.
func ParseParams(v url.Values) (model.SearchFilters, int, int, error) {
	var f model.SearchFilters
	f.Query = v.Get(ParamQuery)

	for _, s := range splitValues(v[ParamStatus]) {
		st := model.Status(s)
		if !st.Valid() {
			return f, 0, 0, fmt.Errorf("invalid status %q", s)
		}
		f.Status = append(f.Status, st)
	}
	for _, s := range splitValues(v[ParamLeadQuality]) {
		q := model.LeadQuality(s)
		if !q.Valid() {
			return f, 0, 0, fmt.Errorf("invalid lead quality %q", s)
		}
		f.LeadQuality = append(f.LeadQuality, q)
	}
	f.Intent = cleanStrings(v[ParamIntent])
	f.Tags = cleanStrings(v[ParamTags])

	if raw := v.Get(ParamScoreRange); raw != "" {
		loStr, hiStr, ok := strings.Cut(raw, ":")
		if !ok {
			return f, 0, 0, fmt.Errorf("invalid score range %q", raw)
		}
		lo, err := strconv.Atoi(loStr)
		if err != nil {
			return f, 0, 0, fmt.Errorf("invalid score range %q: %w", raw, err)
		}
		hi, err := strconv.Atoi(hiStr)
		if err != nil {
			return f, 0, 0, fmt.Errorf("invalid score range %q: %w", raw, err)
		}
		f.ScoreRange = &[2]int{lo, hi}
	}

	from, err := ParseDate(v.Get(ParamDateFrom))
	if err != nil {
		return f, 0, 0, fmt.Errorf("invalid %s: %w", ParamDateFrom, err)
	}
	to, err := ParseDateEnd(v.Get(ParamDateTo))
	if err != nil {
		return f, 0, 0, fmt.Errorf("invalid %s: %w", ParamDateTo, err)
	}
	if !from.IsZero() || !to.IsZero() {
		f.DateRange = &model.DateRange{From: from, To: to}
	}

	f.Sort = model.SortKey(v.Get(ParamSort))

	page := 1
	if p := v.Get(ParamPage); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	limit := DefaultPageSize
	if l := v.Get(ParamLimit); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return Normalize(f), page, limit, nil
}

// Offset returns the row offset of a 1-based page. Offsets past math.MaxInt saturate
// so an absurd page number yields an empty page instead of wrapping negative.
func Offset(page, limit int) int {
	if page <= 1 || limit < 1 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// ParseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates. Empty input is the
// zero time.
func ParseDate(s string) (time.Time, error) {
	t, _, err := parseDate(s)
	return t, err
}

// ParseDateEnd parses an inclusive upper bound like ParseDate, except that a plain
// YYYY-MM-DD date covers the whole day and resolves to its last instant.
func ParseDateEnd(s string) (time.Time, error) {
	t, dateOnly, err := parseDate(s)
	if err != nil || !dateOnly {
		return t, err
	}
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

func parseDate(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}

func splitValues(in []string) []string {
	var out []string
	for _, raw := range in {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func cleanStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func bound(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

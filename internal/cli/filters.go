package cli

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
)

// filterFlags are the list filters shared by list and export. They are parsed through
// the same query parameters the admin API accepts.
type filterFlags struct {
	query       string
	status      []string
	leadQuality []string
	intent      []string
	tags        []string
	score       string
	from        string
	to          string
	sort        string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Search customer name, phone, email and tags")
	cmd.Flags().StringSliceVar(&f.status, "status", nil, "Status: new|in-progress|completed|lost (repeatable)")
	cmd.Flags().StringSliceVar(&f.leadQuality, "lead-quality", nil, "Lead quality: hot|warm|cold (repeatable)")
	cmd.Flags().StringSliceVar(&f.intent, "intent", nil, "Intent (repeatable)")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Require tag (repeatable)")
	cmd.Flags().StringVar(&f.score, "score", "", "Lead score range lo:hi")
	cmd.Flags().StringVar(&f.from, "from", "", "Created on or after (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "Created on or before (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&f.sort, "sort", string(model.SortRecent),
		"Sort: recent|hot|warm|cold|oldest|budget-high|budget-low|follow-up")
}

func (f *filterFlags) values(page, limit int) url.Values {
	v := url.Values{}
	if f.query != "" {
		v.Set(query.ParamQuery, f.query)
	}
	v[query.ParamStatus] = f.status
	v[query.ParamLeadQuality] = f.leadQuality
	v[query.ParamIntent] = f.intent
	v[query.ParamTags] = f.tags
	if f.score != "" {
		v.Set(query.ParamScoreRange, f.score)
	}
	if f.from != "" {
		v.Set(query.ParamDateFrom, f.from)
	}
	if f.to != "" {
		v.Set(query.ParamDateTo, f.to)
	}
	v.Set(query.ParamSort, f.sort)
	if page > 0 {
		v.Set(query.ParamPage, strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set(query.ParamLimit, strconv.Itoa(limit))
	}
	return v
}

// parse validates the flags and returns normalized filters, page and limit.
func (f *filterFlags) parse(page, limit int) (model.SearchFilters, int, int, error) {
	return query.ParseParams(f.values(page, limit))
}

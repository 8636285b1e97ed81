package query

import (
	"cmp"
	"strings"
	"time"

	"github.com/homefront-realty/admin-backoffice/internal/model"
)

// Op is a predicate operator.
type Op string

const (
	OpIn       Op = "in"
	OpContains Op = "contains"
	OpBetween  Op = "between"
	OpLTE      Op = "lte"
	OpText     Op = "text"
)

// Columns of the conversations table referenced by plans.
const (
	ColID              = "id"
	ColStatus          = "status"
	ColLeadQuality     = "lead_quality"
	ColIntent          = "intent"
	ColTags            = "tags"
	ColLeadScore       = "lead_score"
	ColCreatedAt       = "created_at"
	ColConversionValue = "conversion_value"
	ColFollowUpDate    = "follow_up_date"
	ColCustomerName    = "customer_name"
	ColCustomerPhone   = "customer_phone"
	ColCustomerEmail   = "customer_email"
)

// WarmScoreCeiling bounds the warm sort view.
const WarmScoreCeiling = 80

// TextColumns are searched by the free-text query.
var TextColumns = []string{ColCustomerName, ColCustomerPhone, ColCustomerEmail, ColTags}

// Predicate is one condition of a plan. Which fields are set depends on Op.
type Predicate struct {
	Column string
	Op     Op

	// OpIn, OpContains
	Values []string

	// OpBetween, OpLTE on numeric columns
	Min, Max int

	// OpBetween on time columns; zero bounds are open
	From, To time.Time

	// OpText
	Text    string
	Columns []string
}

// Order is one ORDER BY term.
type Order struct {
	Column    string
	Desc      bool
	NullsLast bool
}

// Plan is the database-mode equivalent of a SearchFilters value.
type Plan struct {
	Predicates []Predicate
	Orders     []Order
}

// Build translates f into a plan. It is deterministic: equal input yields an equal plan.
func Build(f model.SearchFilters) Plan {
	f = Normalize(f)
	var p Plan

	if len(f.Status) > 0 {
		vals := make([]string, len(f.Status))
		for i, s := range f.Status {
			vals[i] = string(s)
		}
		p.Predicates = append(p.Predicates, Predicate{Column: ColStatus, Op: OpIn, Values: vals})
	}
	if len(f.LeadQuality) > 0 {
		vals := make([]string, len(f.LeadQuality))
		for i, q := range f.LeadQuality {
			vals[i] = string(q)
		}
		p.Predicates = append(p.Predicates, Predicate{Column: ColLeadQuality, Op: OpIn, Values: vals})
	}
	if len(f.Intent) > 0 {
		p.Predicates = append(p.Predicates, Predicate{Column: ColIntent, Op: OpIn, Values: f.Intent})
	}
	if len(f.Tags) > 0 {
		p.Predicates = append(p.Predicates, Predicate{Column: ColTags, Op: OpContains, Values: f.Tags})
	}
	if f.ScoreRange != nil {
		p.Predicates = append(p.Predicates, Predicate{
			Column: ColLeadScore, Op: OpBetween, Min: f.ScoreRange[0], Max: f.ScoreRange[1],
		})
	}
	if f.DateRange != nil {
		p.Predicates = append(p.Predicates, Predicate{
			Column: ColCreatedAt, Op: OpBetween, From: f.DateRange.From, To: f.DateRange.To,
		})
	}
	if f.Query != "" {
		p.Predicates = append(p.Predicates, Predicate{
			Op: OpText, Text: f.Query, Columns: TextColumns,
		})
	}
	if f.Sort == model.SortWarm {
		p.Predicates = append(p.Predicates, Predicate{Column: ColLeadScore, Op: OpLTE, Max: WarmScoreCeiling})
	}

	p.Orders = orders(f.Sort)
	return p
}

func orders(key model.SortKey) []Order {
	var primary Order
	switch key.Normalize() {
	case model.SortHot, model.SortWarm:
		primary = Order{Column: ColLeadScore, Desc: true}
	case model.SortCold:
		primary = Order{Column: ColLeadScore}
	case model.SortOldest:
		primary = Order{Column: ColCreatedAt}
	case model.SortBudgetHigh:
		primary = Order{Column: ColConversionValue, Desc: true}
	case model.SortBudgetLow:
		primary = Order{Column: ColConversionValue}
	case model.SortFollowUp:
		primary = Order{Column: ColFollowUpDate, NullsLast: true}
	default:
		primary = Order{Column: ColCreatedAt, Desc: true}
	}

	out := []Order{primary}
	if primary.Column != ColCreatedAt {
		out = append(out, Order{Column: ColCreatedAt, Desc: true})
	}
	return append(out, Order{Column: ColID})
}

// Match reports whether c satisfies every predicate of the plan.
func (p Plan) Match(c *model.Conversation) bool {
	for _, pred := range p.Predicates {
		if !pred.match(c) {
			return false
		}
	}
	return true
}

func (pred Predicate) match(c *model.Conversation) bool {
	switch pred.Op {
	case OpIn:
		v := stringColumn(c, pred.Column)
		for _, want := range pred.Values {
			if v == want {
				return true
			}
		}
		return false
	case OpContains:
		for _, want := range pred.Values {
			if !c.HasTag(want) {
				return false
			}
		}
		return true
	case OpBetween:
		if pred.Column == ColCreatedAt {
			if !pred.From.IsZero() && c.CreatedAt.Before(pred.From) {
				return false
			}
			if !pred.To.IsZero() && c.CreatedAt.After(pred.To) {
				return false
			}
			return true
		}
		n := c.LeadScore
		return n >= pred.Min && n <= pred.Max
	case OpLTE:
		return c.LeadScore <= pred.Max
	case OpText:
		needle := strings.ToLower(pred.Text)
		for _, col := range pred.Columns {
			if strings.Contains(strings.ToLower(stringColumn(c, col)), needle) {
				return true
			}
		}
		return false
	}
	return false
}

// Less reports whether a sorts before b under the plan's ordering.
func (p Plan) Less(a, b *model.Conversation) bool {
	for _, o := range p.Orders {
		if r := compareColumn(a, b, o); r != 0 {
			return r < 0
		}
	}
	return false
}

func compareColumn(a, b *model.Conversation, o Order) int {
	var r int
	switch o.Column {
	case ColLeadScore:
		r = cmp.Compare(a.LeadScore, b.LeadScore)
	case ColConversionValue:
		r = cmp.Compare(a.ConversionValue, b.ConversionValue)
	case ColCreatedAt:
		r = a.CreatedAt.Compare(b.CreatedAt)
	case ColFollowUpDate:
		switch {
		case a.FollowUpDate == nil && b.FollowUpDate == nil:
			return 0
		case a.FollowUpDate == nil:
			return nullOrder(o)
		case b.FollowUpDate == nil:
			return -nullOrder(o)
		}
		r = a.FollowUpDate.Compare(*b.FollowUpDate)
	case ColID:
		r = strings.Compare(a.ID, b.ID)
	}
	if o.Desc {
		return -r
	}
	return r
}

// nullOrder is the comparison result of NULL against a value, matching Postgres:
// NULLS LAST when requested or ascending, NULLS FIRST otherwise.
func nullOrder(o Order) int {
	if o.NullsLast || !o.Desc {
		return 1
	}
	return -1
}

func stringColumn(c *model.Conversation, col string) string {
	switch col {
	case ColStatus:
		return string(c.Status)
	case ColLeadQuality:
		return string(c.LeadQuality)
	case ColIntent:
		return c.Intent
	case ColCustomerName:
		return c.CustomerName
	case ColCustomerPhone:
		return c.CustomerPhone
	case ColCustomerEmail:
		return c.CustomerEmail
	case ColTags:
		return strings.Join(c.Tags, ",")
	case ColID:
		return c.ID
	}
	return ""
}

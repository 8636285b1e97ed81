// Package controller owns the view state of a conversation list: filters, sort,
// pagination and the loaded page.
package controller

import (
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
)

// Status is the load status of a list view.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusErrored Status = "errored"
)

// State is an immutable snapshot of a list view. Transitions return a new State.
type State struct {
	Filters  model.SearchFilters
	Page     int
	PageSize int

	Status Status
	Data   []model.Conversation
	Total  int
	Source string
	Err    error
}

// NewState returns an idle view on page 1 with the default page size.
func NewState() State {
	return State{
		Filters:  model.SearchFilters{Sort: model.SortRecent},
		Page:     1,
		PageSize: query.DefaultPageSize,
		Status:   StatusIdle,
	}
}

// TotalPages returns max(1, ceil(total/size)). A non-positive size counts as one row
// per page.
func TotalPages(total, size int) int {
	if size < 1 {
		size = 1
	}
	if total < 1 {
		return 1
	}
	return (total + size - 1) / size
}

// TotalPages returns the page count for the loaded total.
func (s State) TotalPages() int {
	return TotalPages(s.Total, s.PageSize)
}

// SetFilters replaces the filters and returns to page 1. The sort key is kept unless f
// carries one.
func (s State) SetFilters(f model.SearchFilters) State {
	if f.Sort == "" {
		f.Sort = s.Filters.Sort
	}
	s.Filters = query.Normalize(f)
	s.Page = 1
	return s
}

// SetSort changes the sort key and returns to page 1.
func (s State) SetSort(k model.SortKey) State {
	s.Filters.Sort = k.Normalize()
	s.Page = 1
	return s
}

// SetPage moves to page p clamped to [1, TotalPages].
func (s State) SetPage(p int) State {
	s.Page = clamp(p, s.TotalPages())
	return s
}

// SetPageSize changes the page size, bounded to [1, MaxPageSize], and returns to page 1.
func (s State) SetPageSize(n int) State {
	switch {
	case n < 1:
		n = query.DefaultPageSize
	case n > query.MaxPageSize:
		n = query.MaxPageSize
	}
	s.PageSize = n
	s.Page = 1
	return s
}

// Loading marks a fetch as started. Loaded data stays visible.
func (s State) Loading() State {
	s.Status = StatusLoading
	return s
}

// Loaded applies a fetched page. When the new total no longer reaches the requested page,
// the page is clamped and the state is left loading with no rows. Rows already held in a newer version, for example from
// a realtime update that raced the fetch, win over the fetched copy.
func (s State) Loaded(data []model.Conversation, total int, source string) State {
	s.Data = mergePage(s.Data, data)
	s.Total = total
	if s.Total < len(s.Data) {
		s.Total = len(s.Data)
	}
	s.Source = source
	s.Status = StatusLoaded
	s.Err = nil
	if p := clamp(s.Page, s.TotalPages()); p != s.Page {
		// The requested page no longer exists; its rows are stale until the clamped
		// page is fetched.
		s.Page = p
		s.Data = []model.Conversation{}
		s.Status = StatusLoading
	}
	return s
}

// Stale reports whether the view moved to another page and needs a fetch.
func (s State) Stale() bool {
	return s.Status == StatusLoading
}

// Failed records a fetch error and keeps the previously loaded data.
func (s State) Failed(err error) State {
	s.Status = StatusErrored
	s.Err = err
	return s
}

// ApplyInsert merges a realtime insert. A row that does not match the active filters is
// ignored; a row already present is replaced only by a newer version.
func (s State) ApplyInsert(c model.Conversation) State {
	if i := indexOf(s.Data, c.ID); i >= 0 {
		return s.replaceIfNewer(i, c)
	}
	if !query.Build(s.Filters).Match(&c) {
		return s
	}

	data := make([]model.Conversation, 0, len(s.Data)+1)
	data = append(data, c)
	data = append(data, s.Data...)
	s.Data = data
	s.Total++
	return s
}

// ApplyUpdate merges a realtime update into a row on the current page.
func (s State) ApplyUpdate(c model.Conversation) State {
	if i := indexOf(s.Data, c.ID); i >= 0 {
		return s.replaceIfNewer(i, c)
	}
	return s
}

func (s State) replaceIfNewer(i int, c model.Conversation) State {
	if c.UpdatedAt.Before(s.Data[i].UpdatedAt) {
		return s
	}
	data := append([]model.Conversation(nil), s.Data...)
	data[i] = c
	s.Data = data
	return s
}

// mergePage de-duplicates incoming by id and keeps the newer of the incoming and
// current version of each row.
func mergePage(current, incoming []model.Conversation) []model.Conversation {
	known := make(map[string]model.Conversation, len(current))
	for _, c := range current {
		known[c.ID] = c
	}

	out := make([]model.Conversation, 0, len(incoming))
	pos := make(map[string]int, len(incoming))
	for _, c := range incoming {
		if prev, ok := known[c.ID]; ok && prev.UpdatedAt.After(c.UpdatedAt) {
			c = prev
		}
		if i, dup := pos[c.ID]; dup {
			if c.UpdatedAt.After(out[i].UpdatedAt) {
				out[i] = c
			}
			continue
		}
		pos[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}

// changedFrom reports whether a realtime merge produced a new view. Merges copy the
// row slice whenever they change it.
func (s State) changedFrom(prev State) bool {
	if s.Total != prev.Total || len(s.Data) != len(prev.Data) {
		return true
	}
	return len(s.Data) > 0 && &s.Data[0] != &prev.Data[0]
}

func indexOf(data []model.Conversation, id string) int {
	for i := range data {
		if data[i].ID == id {
			return i
		}
	}
	return -1
}

func clamp(p, pages int) int {
	if p < 1 {
		return 1
	}
	if p > pages {
		return pages
	}
	return p
}

// Package pagination windows an order collection for display.
//
// Two interchangeable paginators exist. InternalPaginator owns the full
// collection and slices it locally. ExternalPaginator only holds the page the
// caller already fetched and forwards page requests to the caller, which
// owns the page state. Both clamp requested indexes and notify change
// listeners on every page request.
package pagination

import (
	apperrors "github.com/zatekoja/orderdesk/backend/pkg/errors"
)

// Mode selects the paginator variant
type Mode string

const (
	ModeInternal Mode = "internal"
	ModeExternal Mode = "external"
)

// State is the page state reported to screens. PageIndex is 0-based in both modes.
type State struct {
	Mode       Mode `json:"mode"`
	PageIndex  int  `json:"page_index"`
	PageSize   int  `json:"page_size,omitempty"`
	TotalPages int  `json:"total_pages"`
	TotalItems int  `json:"total_items,omitempty"`
}

// Page is a batch of items delivered to a paginator. Internal paginators
// treat Items as the full collection and ignore Current and Total.
type Page[T any] struct {
	Items   []T
	Current int
	Total   int
}

// Paginator is implemented by InternalPaginator and ExternalPaginator
type Paginator[T any] interface {
	// Items returns the items of the current page
	Items() []T

	// State returns the current page state
	State() State

	// GoToPage requests page n, clamped into [0, TotalPages-1], and returns the clamped index
	GoToPage(n int) int

	// Load replaces the paginator's data after a fetch
	Load(page Page[T])

	// OnChange registers a listener fired on every page request
	OnChange(fn func(page int))
}

// Options configures New
type Options struct {
	// PageSize is the window size for internal paging
	PageSize int

	// CurrentPage and TotalPages seed external paging
	CurrentPage int
	TotalPages  int

	// OnRequest receives clamped page requests in external mode
	OnRequest func(page int)
}

// New builds the paginator for the given mode
func New[T any](mode Mode, items []T, opts Options) (Paginator[T], error) {
	switch mode {
	case ModeInternal:
		if opts.PageSize < 1 {
			return nil, apperrors.NewValidationError("page size must be at least 1")
		}
		return NewInternal(items, opts.PageSize), nil
	case ModeExternal:
		if opts.OnRequest == nil {
			return nil, apperrors.NewValidationError("external paging requires a page request callback")
		}
		return NewExternal(items, opts.CurrentPage, opts.TotalPages, opts.PageSize, opts.OnRequest), nil
	default:
		return nil, apperrors.NewValidationError("unknown paging mode: " + string(mode))
	}
}

type listeners []func(int)

func (l listeners) fire(page int) {
	for _, fn := range l {
		fn(page)
	}
}

func clamp(n, total int) int {
	if n > total-1 {
		n = total - 1
	}
	if n < 0 {
		n = 0
	}
	return n
}

package pagination

// ExternalPaginator holds only the page the caller fetched. It never slices:
// the items it was given are assumed to be the intended page.
type ExternalPaginator[T any] struct {
	items       []T
	currentPage int
	totalPages  int
	pageSize    int
	onRequest   func(page int)
	listeners   listeners
}

// NewExternal creates an external paginator. onRequest is called with the
// clamped index whenever a page change is requested.
func NewExternal[T any](items []T, currentPage, totalPages, pageSize int, onRequest func(page int)) *ExternalPaginator[T] {
	p := &ExternalPaginator[T]{pageSize: pageSize, onRequest: onRequest}
	p.Load(Page[T]{Items: items, Current: currentPage, Total: totalPages})
	return p
}

// Items returns the page as received
func (p *ExternalPaginator[T]) Items() []T {
	return p.items
}

// State reports the caller-owned page state
func (p *ExternalPaginator[T]) State() State {
	return State{
		Mode:       ModeExternal,
		PageIndex:  p.currentPage,
		PageSize:   p.pageSize,
		TotalPages: p.totalPages,
	}
}

// GoToPage forwards the clamped request to the caller. The current page does
// not move until the caller loads the new page.
func (p *ExternalPaginator[T]) GoToPage(n int) int {
	target := clamp(n, p.totalPages)
	p.listeners.fire(target)
	if p.onRequest != nil {
		p.onRequest(target)
	}
	return target
}

// Load installs the page the caller fetched
func (p *ExternalPaginator[T]) Load(page Page[T]) {
	p.items = page.Items
	p.totalPages = page.Total
	if p.totalPages < 1 {
		p.totalPages = 1
	}
	p.currentPage = clamp(page.Current, p.totalPages)
}

// OnChange registers a page change listener
func (p *ExternalPaginator[T]) OnChange(fn func(page int)) {
	p.listeners = append(p.listeners, fn)
}

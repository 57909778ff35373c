package pagination

// InternalPaginator slices a full collection held in memory
type InternalPaginator[T any] struct {
	items     []T
	pageSize  int
	pageIndex int
	listeners listeners
}

// NewInternal creates an internal paginator. Page sizes below 1 are raised to 1.
func NewInternal[T any](items []T, pageSize int) *InternalPaginator[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	return &InternalPaginator[T]{items: items, pageSize: pageSize}
}

// TotalPages is ceil(len/pageSize) but never less than 1, so an empty
// collection still renders a single empty page.
func (p *InternalPaginator[T]) TotalPages() int {
	total := (len(p.items) + p.pageSize - 1) / p.pageSize
	if total < 1 {
		return 1
	}
	return total
}

// Page returns collection[n*pageSize:(n+1)*pageSize], truncated to the collection bounds
func (p *InternalPaginator[T]) Page(n int) []T {
	if n < 0 {
		return []T{}
	}
	start := n * p.pageSize
	if start >= len(p.items) {
		return []T{}
	}
	end := start + p.pageSize
	if end > len(p.items) {
		end = len(p.items)
	}
	return p.items[start:end]
}

// Items returns the current page
func (p *InternalPaginator[T]) Items() []T {
	return p.Page(p.pageIndex)
}

// State reports the page state
func (p *InternalPaginator[T]) State() State {
	return State{
		Mode:       ModeInternal,
		PageIndex:  p.pageIndex,
		PageSize:   p.pageSize,
		TotalPages: p.TotalPages(),
		TotalItems: len(p.items),
	}
}

// GoToPage moves to page n, clamped into range
func (p *InternalPaginator[T]) GoToPage(n int) int {
	p.pageIndex = clamp(n, p.TotalPages())
	p.listeners.fire(p.pageIndex)
	return p.pageIndex
}

// Load replaces the collection. The current index is kept when still in range.
func (p *InternalPaginator[T]) Load(page Page[T]) {
	p.items = page.Items
	p.pageIndex = clamp(p.pageIndex, p.TotalPages())
}

// OnChange registers a page change listener
func (p *InternalPaginator[T]) OnChange(fn func(page int)) {
	p.listeners = append(p.listeners, fn)
}

package pagination_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/orderdesk/backend/pkg/pagination"
)

var (
	_ pagination.Paginator[string] = (*pagination.InternalPaginator[string])(nil)
	_ pagination.Paginator[string] = (*pagination.ExternalPaginator[string])(nil)
)

func orders(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestInternalPaginator_Page(t *testing.T) {
	p := pagination.NewInternal(orders(23), 10)

	assert.Equal(t, 3, p.TotalPages())
	assert.Equal(t, orders(10), p.Page(0))
	assert.Equal(t, []int{21, 22, 23}, p.Page(2))
	assert.Empty(t, p.Page(3))
	assert.Empty(t, p.Page(-1))
}

func TestInternalPaginator_SamePageTwiceIsIdentical(t *testing.T) {
	p := pagination.NewInternal(orders(15), 4)

	first := p.Page(2)
	second := p.Page(2)
	assert.Equal(t, first, second)
}

func TestInternalPaginator_EmptyCollectionHasOnePage(t *testing.T) {
	p := pagination.NewInternal([]int{}, 10)

	assert.Equal(t, 1, p.TotalPages())
	assert.Equal(t, 1, p.State().TotalPages)
	assert.Equal(t, 0, p.GoToPage(4))
	assert.Empty(t, p.Items())
}

func TestInternalPaginator_GoToPageClamps(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"in range", 1, 1},
		{"negative", -3, 0},
		{"past end", 99, 2},
		{"last", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pagination.NewInternal(orders(25), 10)
			assert.Equal(t, tt.want, p.GoToPage(tt.requested))
			assert.Equal(t, tt.want, p.State().PageIndex)
		})
	}
}

func TestInternalPaginator_LoadKeepsIndexInRange(t *testing.T) {
	p := pagination.NewInternal(orders(30), 10)
	p.GoToPage(2)

	p.Load(pagination.Page[int]{Items: orders(12)})

	assert.Equal(t, 1, p.State().PageIndex)
	assert.Equal(t, []int{11, 12}, p.Items())
}

func TestPaginator_PageChangeFiresListeners(t *testing.T) {
	p := pagination.NewInternal(orders(30), 10)
	expanded := "order-7"
	p.OnChange(func(int) { expanded = "" })

	p.GoToPage(1)

	assert.Empty(t, expanded)
}

func TestExternalPaginator_DelegatesWithoutSlicing(t *testing.T) {
	var requested []int
	current := []int{11, 12, 13}
	p := pagination.NewExternal(current, 1, 4, 3, func(page int) {
		requested = append(requested, page)
	})

	assert.Equal(t, current, p.Items())

	assert.Equal(t, 3, p.GoToPage(10))
	assert.Equal(t, 0, p.GoToPage(-2))
	assert.Equal(t, []int{3, 0}, requested)

	// the caller owns the index until it loads a new page
	assert.Equal(t, 1, p.State().PageIndex)
	assert.Equal(t, current, p.Items())

	p.Load(pagination.Page[int]{Items: []int{31, 32}, Current: 3, Total: 4})
	assert.Equal(t, 3, p.State().PageIndex)
	assert.Equal(t, []int{31, 32}, p.Items())
}

func TestExternalPaginator_PageChangeFiresListeners(t *testing.T) {
	p := pagination.NewExternal([]int{1}, 0, 2, 1, func(int) {})
	fired := 0
	p.OnChange(func(int) { fired++ })

	p.GoToPage(1)

	assert.Equal(t, 1, fired)
}

func TestNew(t *testing.T) {
	internal, err := pagination.New(pagination.ModeInternal, orders(5), pagination.Options{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, pagination.ModeInternal, internal.State().Mode)
	assert.Equal(t, 3, internal.State().TotalPages)

	external, err := pagination.New(pagination.ModeExternal, orders(2), pagination.Options{
		CurrentPage: 0,
		TotalPages:  0,
		OnRequest:   func(int) {},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, external.State().TotalPages)

	_, err = pagination.New(pagination.ModeExternal, orders(2), pagination.Options{})
	assert.Error(t, err)

	_, err = pagination.New[int](pagination.Mode("sideways"), nil, pagination.Options{PageSize: 1})
	assert.Error(t, err)
}

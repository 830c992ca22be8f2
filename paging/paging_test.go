package paging

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageSizesInvariant(t *testing.T) {
	for total := 0; total <= 57; total++ {
		for _, size := range []int{1, 3, 10, 20} {
			items := make([]int, total)
			pages := TotalPages(total, size)
			assert.Equal(t, (total+size-1)/size, pages)

			seen := 0
			for page := 1; page <= pages; page++ {
				p := Paginate(items, page, size)
				assert.LessOrEqual(t, len(p.Items), size)
				seen += len(p.Items)
				if page == pages {
					want := total % size
					if want == 0 {
						want = size
					}
					assert.Equal(t, want, len(p.Items), "total=%d size=%d", total, size)
				}
			}
			assert.Equal(t, total, seen)
		}
	}
}

func TestPaginateTwentyThree(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i + 1
	}
	var sizes []int
	for page := 1; page <= 3; page++ {
		sizes = append(sizes, len(Paginate(items, page, 10).Items))
	}
	assert.Equal(t, []int{10, 10, 3}, sizes)
	assert.Equal(t, 11, Paginate(items, 2, 10).Items[0])

	beyond := Paginate(items, 4, 10)
	assert.NotNil(t, beyond.Items)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 3, beyond.TotalPages)

	assert.Empty(t, Paginate(items, 0, 10).Items)
}

func TestItemRange(t *testing.T) {
	from, to := ItemRange(3, 10, 23)
	assert.Equal(t, 21, from)
	assert.Equal(t, 23, to)

	from, to = ItemRange(1, 10, 0)
	assert.Zero(t, from)
	assert.Zero(t, to)

	assert.False(t, Visible(1))
	assert.True(t, Visible(2))
}

func pagesOf(tokens []Token) []any {
	var out []any
	for _, tk := range tokens {
		if tk.Ellipsis {
			out = append(out, "...")
			continue
		}
		out = append(out, tk.Page)
	}
	return out
}

func TestPageNumbers(t *testing.T) {
	tests := []struct {
		current, total int
		want           []any
	}{
		{1, 1, []any{1}},
		{2, 5, []any{1, 2, 3, 4, 5}},
		{1, 10, []any{1, 2, 3, 4, "...", 10}},
		{3, 10, []any{1, 2, 3, 4, "...", 10}},
		{5, 10, []any{1, "...", 4, 5, 6, "...", 10}},
		{8, 10, []any{1, "...", 7, 8, 9, 10}},
		{10, 10, []any{1, "...", 7, 8, 9, 10}},
		{4, 6, []any{1, "...", 3, 4, 5, 6}},
		{3, 6, []any{1, 2, 3, 4, "...", 6}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pagesOf(PageNumbers(tt.current, tt.total)), "current=%d total=%d", tt.current, tt.total)
	}
	assert.Nil(t, PageNumbers(1, 0))

	b, err := json.Marshal(PageNumbers(5, 10))
	require.NoError(t, err)
	assert.JSONEq(t, `[1,"...",4,5,6,"...",10]`, string(b))
}

func TestPagerClampsAndScrolls(t *testing.T) {
	var scrolled []int
	p := NewPager(10, func(page int) { scrolled = append(scrolled, page) })

	p.SetTotal(23)
	assert.Equal(t, 3, p.Go(7))
	assert.Equal(t, 1, p.Go(-2))
	assert.Equal(t, 2, p.Next())
	assert.Equal(t, 1, p.Prev())
	assert.Equal(t, []int{3, 1, 2, 1}, scrolled)

	p.Go(3)
	p.SetTotal(12)
	assert.Equal(t, 2, p.State().CurrentPage)

	p.SetTotal(0)
	assert.Equal(t, 1, p.State().CurrentPage)
	assert.Equal(t, 0, p.State().TotalPages)
}

func TestPagerResetAndPageSize(t *testing.T) {
	p := NewPager(0, nil)
	require.Equal(t, DefaultPageSize, p.State().ItemsPerPage)

	items := make([]string, 45)
	p.SetTotal(len(items))
	p.Go(4)
	p.Reset()
	assert.Equal(t, 1, p.State().CurrentPage)

	p.Go(2)
	p.SetPageSize(20)
	page := Apply(p, items)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 20)
	assert.Equal(t, 3, page.TotalPages)
}

// Package pagination slices ordered results into fixed-size numbered pages.
package pagination

import (
	"context"
	"strconv"
	"strings"
)

// PostsPerPage is the page size of every post feed.
const PostsPerPage = 10

// Page is one page of an ordered result together with navigation metadata.
type Page[T any] struct {
	Items              []T  `json:"object_list"`
	Number             int  `json:"number"`
	NumPages           int  `json:"num_pages"`
	Count              int  `json:"count"`
	PerPage            int  `json:"per_page"`
	HasPrevious        bool `json:"has_previous"`
	HasNext            bool `json:"has_next"`
	PreviousPageNumber int  `json:"previous_page_number,omitempty"`
	NextPageNumber     int  `json:"next_page_number,omitempty"`
	StartIndex         int  `json:"start_index"`
	EndIndex           int  `json:"end_index"`
}

// PageRange lists every page number, for rendering the navigation bar.
func (p *Page[T]) PageRange() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// NumPages returns the number of pages needed for count items. An empty result still
// has one (empty) page.
func NumPages(count, perPage int) int {
	if perPage <= 0 {
		perPage = PostsPerPage
	}
	if count <= 0 {
		return 1
	}
	return (count + perPage - 1) / perPage
}

// Resolve turns the raw page query value into a valid page number.
// Absent or non-integer input selects the first page; an integer outside
// [1, numPages] selects the last page.
func Resolve(raw string, numPages int) int {
	if numPages < 1 {
		numPages = 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	if n < 1 || n > numPages {
		return numPages
	}
	return n
}

// New builds the metadata of page number for count items. Items are left empty.
func New[T any](count, perPage, number int) *Page[T] {
	if perPage <= 0 {
		perPage = PostsPerPage
	}
	if count < 0 {
		count = 0
	}
	numPages := NumPages(count, perPage)

	p := &Page[T]{
		Number:      number,
		NumPages:    numPages,
		Count:       count,
		PerPage:     perPage,
		HasPrevious: number > 1,
		HasNext:     number < numPages,
	}
	if p.HasPrevious {
		p.PreviousPageNumber = number - 1
	}
	if p.HasNext {
		p.NextPageNumber = number + 1
	}
	if count > 0 {
		p.StartIndex = (number-1)*perPage + 1
		p.EndIndex = min(number*perPage, count)
	}
	return p
}

// Offset returns the zero-based index of the first item on the page.
func (p *Page[T]) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Counter returns the total number of items of a query.
type Counter func(ctx context.Context) (int64, error)

// Fetcher loads limit items starting at offset, in the query's order.
type Fetcher[T any] func(ctx context.Context, limit, offset int) ([]T, error)

// Query paginates a store-backed sequence: it counts, resolves the page number and
// fetches only the selected page.
func Query[T any](ctx context.Context, count Counter, fetch Fetcher[T], perPage int, raw string) (*Page[T], error) {
	if perPage <= 0 {
		perPage = PostsPerPage
	}
	total, err := count(ctx)
	if err != nil {
		return nil, err
	}

	number := Resolve(raw, NumPages(int(total), perPage))
	p := New[T](int(total), perPage, number)
	if total == 0 {
		p.Items = []T{}
		return p, nil
	}

	items, err := fetch(ctx, perPage, p.Offset())
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	p.Items = items
	return p, nil
}

//  This file is part of the eliona project.
//  Copyright © 2022 LEICOM iTEC AG. All Rights Reserved.
//  ______ _ _
// |  ____| (_)
// | |__  | |_  ___  _ __   __ _
// |  __| | | |/ _ \| '_ \ / _` |
// | |____| | | (_) | | | | (_| |
// |______|_|_|\___/|_| |_|\__,_|
//
//  THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING
//  BUT NOT LIMITED  TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
//  NON INFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM,
//  DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
//  OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package paging slices result lists into pages and tracks the page a screen
// is showing.
package paging

import (
	"sync"
)

const DefaultPageSize = 10

// PageSizes are the sizes a screen offers.
var PageSizes = []int{10, 20, 50, 100}

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
	TotalItems int `json:"totalItems"`
}

func TotalPages(totalItems, pageSize int) int {
	if totalItems <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalItems + pageSize - 1) / pageSize
}

// Paginate returns the page-th slice of items. A page past the end yields an
// empty slice.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(len(items), pageSize),
		TotalItems: len(items),
	}
	if page < 1 {
		return p
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return p
	}
	end := min(start+pageSize, len(items))
	p.Items = items[start:end:end]
	return p
}

// ItemRange is the 1-based span of items shown on a page, as in "Showing 11
// to 20 of 23". Both bounds are zero when there is nothing to show.
func ItemRange(page, pageSize, totalItems int) (from, to int) {
	if totalItems <= 0 || page < 1 || pageSize <= 0 {
		return 0, 0
	}
	from = (page-1)*pageSize + 1
	if from > totalItems {
		return 0, 0
	}
	return from, min(page*pageSize, totalItems)
}

// Visible reports whether page controls are shown at all.
func Visible(totalPages int) bool {
	return totalPages > 1
}

// State is a snapshot of a Pager.
type State struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalItems   int `json:"totalItems"`
	TotalPages   int `json:"totalPages"`
}

// Pager keeps 1 <= CurrentPage <= max(TotalPages, 1). OnChange runs after
// every explicit page change so the view can scroll back to the top.
type Pager struct {
	mu       sync.Mutex
	current  int
	size     int
	total    int
	onChange func(page int)
}

func NewPager(pageSize int, onChange func(page int)) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{current: 1, size: pageSize, onChange: onChange}
}

func (p *Pager) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// SetTotal records a new item count, clamping the current page into range.
func (p *Pager) SetTotal(totalItems int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = max(totalItems, 0)
	p.current = p.clampLocked(p.current)
}

// Go moves to page, clamped into range, and reports the page shown.
func (p *Pager) Go(page int) int {
	p.mu.Lock()
	p.current = p.clampLocked(page)
	current := p.current
	onChange := p.onChange
	p.mu.Unlock()
	if onChange != nil {
		onChange(current)
	}
	return current
}

func (p *Pager) Next() int {
	return p.Go(p.State().CurrentPage + 1)
}

func (p *Pager) Prev() int {
	return p.Go(p.State().CurrentPage - 1)
}

// Reset returns to the first page. Every new search result calls it.
func (p *Pager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = 1
}

// SetPageSize changes the page size and returns to the first page.
func (p *Pager) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.size = size
	p.current = 1
}

// Apply records items as the pager's total and returns the current page of
// them.
func Apply[T any](p *Pager, items []T) Page[T] {
	p.SetTotal(len(items))
	s := p.State()
	return Paginate(items, s.CurrentPage, s.ItemsPerPage)
}

func (p *Pager) stateLocked() State {
	return State{
		CurrentPage:  p.current,
		ItemsPerPage: p.size,
		TotalItems:   p.total,
		TotalPages:   TotalPages(p.total, p.size),
	}
}

func (p *Pager) clampLocked(page int) int {
	last := max(TotalPages(p.total, p.size), 1)
	return min(max(page, 1), last)
}

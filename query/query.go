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

// Package query turns a filter state into a backend search and keeps the
// normalized result list of one screen.
package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"roomadmin/filter"
	"roomadmin/model"
	"roomadmin/normalize"
	"roomadmin/paging"

	"github.com/eliona-smart-building-assistant/go-utils/log"
	"github.com/volatiletech/null/v8"
)

// Policy decides what a search with no filter axis set does.
type Policy string

const (
	PolicyBlock Policy = "block"
	PolicyAllow Policy = "allow"
)

// NarrowFunc keeps an event on the current page list. It runs against the
// live filter state, after the search.
type NarrowFunc func(state filter.State, e model.ViewEvent) bool

// NarrowByEventID keeps events whose id contains the settled text query,
// ignoring case.
func NarrowByEventID(state filter.State, e model.ViewEvent) bool {
	q := strings.ToLower(strings.TrimSpace(state.DebouncedTextQuery))
	return q == "" || strings.Contains(strings.ToLower(e.ID), q)
}

type Options struct {
	Policy Policy
	// Pager is reset to the first page after every search.
	Pager   *paging.Pager
	Timeout time.Duration
	Narrow  NarrowFunc
	// InitialRange is the screen's default date range. A search still at it
	// counts as empty.
	InitialRange filter.DateRange
}

type Result struct {
	Events []model.ViewEvent
	// Warning is an advisory validation problem. The search still ran.
	Warning error
}

// Orchestrator runs searches for one screen. Only the most recently issued
// search may update the list.
type Orchestrator struct {
	source Source
	opts   Options

	mu        sync.Mutex
	gen       uint64
	events    []model.ViewEvent
	narrowKey string
}

func New(source Source, opts Options) *Orchestrator {
	if opts.Policy == "" {
		opts.Policy = PolicyBlock
	}
	if opts.Pager == nil {
		opts.Pager = paging.NewPager(paging.DefaultPageSize, nil)
	}
	return &Orchestrator{source: source, opts: opts}
}

func (o *Orchestrator) Kind() model.SourceKind {
	return o.source.Kind()
}

func (o *Orchestrator) Pager() *paging.Pager {
	return o.opts.Pager
}

// Search fetches, normalizes and stores the events matching state. Explicit
// searches always run at once; debouncing happens in the filter.
func (o *Orchestrator) Search(ctx context.Context, state filter.State) (Result, error) {
	if o.opts.Policy == PolicyBlock && state.IsDefault(o.opts.InitialRange) {
		return Result{}, ErrEmptyQuery
	}
	warning := state.Validate()
	if warning != nil {
		log.Warn("query", "searching %s with %v", o.source.Kind(), warning)
	}

	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.mu.Unlock()

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}
	log.Debug("query", "searching %s: %+v", o.source.Kind(), state)
	batch, err := o.source.Fetch(ctx, state)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		log.Debug("query", "dropping superseded %s search", o.source.Kind())
		return Result{}, ErrStaleResponse
	}
	if err != nil {
		var verr *filter.ValidationError
		if errors.As(err, &verr) {
			return Result{Warning: warning}, err
		}
		o.events = nil
		o.opts.Pager.SetTotal(0)
		o.opts.Pager.Reset()
		log.Error("query", "searching %s: %v", o.source.Kind(), err)
		return Result{Warning: warning}, transportError("search "+string(o.source.Kind()), err)
	}

	o.events = batch.Events()
	o.narrowKey = state.DebouncedTextQuery
	o.opts.Pager.SetTotal(len(o.narrowLocked(state)))
	o.opts.Pager.Reset()
	log.Info("query", "Found %d %s events.", len(o.events), o.source.Kind())
	return Result{Events: o.copyLocked(), Warning: warning}, nil
}

// Events returns the stored list, unnarrowed.
func (o *Orchestrator) Events() []model.ViewEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.copyLocked()
}

// Page narrows the stored list against state and returns the pager's current
// page of it. Changing the narrowing text returns to the first page.
func (o *Orchestrator) Page(state filter.State) paging.Page[model.ViewEvent] {
	o.mu.Lock()
	narrowed := o.narrowLocked(state)
	changed := o.opts.Narrow != nil && state.DebouncedTextQuery != o.narrowKey
	o.narrowKey = state.DebouncedTextQuery
	o.mu.Unlock()

	if changed {
		o.opts.Pager.Reset()
	}
	return paging.Apply(o.opts.Pager, narrowed)
}

func (o *Orchestrator) Get(id string) (model.ViewEvent, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.events {
		if e.ID == id {
			return e, true
		}
	}
	return model.ViewEvent{}, false
}

// Replace swaps the stored event with the same id for e.
func (o *Orchestrator) Replace(e model.ViewEvent) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.events {
		if o.events[i].ID == e.ID {
			o.events[i] = e
			return true
		}
	}
	return false
}

// Remove drops the stored event with id.
func (o *Orchestrator) Remove(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.events {
		if o.events[i].ID == id {
			o.events = append(o.events[:i:i], o.events[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the list and invalidates any search in flight.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.events = nil
	o.opts.Pager.SetTotal(0)
	o.opts.Pager.Reset()
}

// FocusDate is the day a calendar view of the list should open on.
func (o *Orchestrator) FocusDate() null.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return normalize.FocusDate(o.events)
}

func (o *Orchestrator) narrowLocked(state filter.State) []model.ViewEvent {
	if o.opts.Narrow == nil {
		return o.copyLocked()
	}
	var out []model.ViewEvent
	for _, e := range o.events {
		if o.opts.Narrow(state, e) {
			out = append(out, e)
		}
	}
	return out
}

func (o *Orchestrator) copyLocked() []model.ViewEvent {
	return append([]model.ViewEvent(nil), o.events...)
}

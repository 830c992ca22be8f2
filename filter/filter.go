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

// Package filter holds the search inputs shared by every list screen: a date
// range, a debounced free-text query, a room and a user axis, plus the
// visibility flag of the collapsible filter panel.
package filter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"roomadmin/clock"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
)

const DefaultDebounce = 500 * time.Millisecond

type DateRange struct {
	Start null.Time `json:"start"`
	End   null.Time `json:"end"`
}

func (r DateRange) IsEmpty() bool {
	return !r.Start.Valid && !r.End.Valid
}

// Equal compares both bounds as instants.
func (r DateRange) Equal(o DateRange) bool {
	return sameTime(r.Start, o.Start) && sameTime(r.End, o.End)
}

func sameTime(a, b null.Time) bool {
	return a.Valid == b.Valid && (!a.Valid || a.Time.Equal(b.Time))
}

type State struct {
	DateRange          DateRange `json:"dateRange"`
	TextQuery          string    `json:"textQuery"`
	DebouncedTextQuery string    `json:"debouncedTextQuery"`
	ResourceID         string    `json:"resourceId"`
	UserID             string    `json:"userId"`
	PanelOpen          bool      `json:"panelOpen"`
}

// IsEmpty reports whether no query axis is set. The panel flag is
// presentation only and is ignored.
func (s State) IsEmpty() bool {
	return s.IsDefault(DateRange{})
}

// IsDefault reports whether every query axis is at its default, the date
// range being initial.
func (s State) IsDefault(initial DateRange) bool {
	return s.DateRange.Equal(initial) &&
		strings.TrimSpace(s.TextQuery) == "" &&
		strings.TrimSpace(s.ResourceID) == "" &&
		strings.TrimSpace(s.UserID) == ""
}

// ValidationError describes malformed filter input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var validate = validator.New()

type boundedRange struct {
	Start time.Time
	End   time.Time `validate:"gtefield=Start"`
}

// Validate checks that the range does not end before it starts. Open-ended
// ranges are always valid.
func (s State) Validate() error {
	r := s.DateRange
	if !r.Start.Valid || !r.End.Valid {
		return nil
	}
	if err := validate.Struct(boundedRange{Start: r.Start.Time, End: r.End.Time}); err != nil {
		return &ValidationError{Field: "dateRange", Reason: "start is after end"}
	}
	return nil
}

type Options struct {
	Clock    clock.Clock
	Debounce time.Duration
	// NarrowViewport opens the filter panel initially.
	NarrowViewport bool
	InitialRange   DateRange
	// OnSettled is called after the debounced text query changes.
	OnSettled func(State)
}

// Composer owns one screen's filter state. All methods are safe for
// concurrent use.
type Composer struct {
	opts      Options
	debouncer *Debouncer

	mu    sync.Mutex
	state State
}

func NewComposer(opts Options) *Composer {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Composer{
		opts:      opts,
		debouncer: NewDebouncer(opts.Clock, opts.Debounce),
		state: State{
			DateRange: opts.InitialRange,
			PanelOpen: opts.NarrowViewport,
		},
	}
}

func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsEmpty reports whether the filter is still at the screen's initial state.
func (c *Composer) IsEmpty() bool {
	return c.State().IsDefault(c.opts.InitialRange)
}

func (c *Composer) Validate() error {
	return c.State().Validate()
}

func (c *Composer) SetDateRange(r DateRange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.DateRange = r
}

func (c *Composer) SetStart(t null.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.DateRange.Start = t
}

func (c *Composer) SetEnd(t null.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.DateRange.End = t
}

func (c *Composer) SetResourceID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ResourceID = strings.TrimSpace(id)
}

func (c *Composer) SetUserID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.UserID = strings.TrimSpace(id)
}

// SetTextQuery records a keystroke. The debounced value follows once input
// has been stable for the debounce delay; an empty query clears both values
// at once.
func (c *Composer) SetTextQuery(q string) {
	if q == "" {
		c.ClearText()
		return
	}
	c.mu.Lock()
	c.state.TextQuery = q
	c.mu.Unlock()

	c.debouncer.Trigger(func() {
		c.mu.Lock()
		changed := c.state.DebouncedTextQuery != c.state.TextQuery
		c.state.DebouncedTextQuery = c.state.TextQuery
		s := c.state
		c.mu.Unlock()
		if changed && c.opts.OnSettled != nil {
			c.opts.OnSettled(s)
		}
	})
}

func (c *Composer) ClearText() {
	c.debouncer.Cancel()
	c.mu.Lock()
	changed := c.state.DebouncedTextQuery != ""
	c.state.TextQuery = ""
	c.state.DebouncedTextQuery = ""
	s := c.state
	c.mu.Unlock()
	if changed && c.opts.OnSettled != nil {
		c.opts.OnSettled(s)
	}
}

func (c *Composer) TogglePanel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PanelOpen = !c.state.PanelOpen
}

func (c *Composer) OpenPanel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PanelOpen = true
}

func (c *Composer) ClosePanel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PanelOpen = false
}

// Reset returns every query axis to its initial value. The panel is left as
// it is.
func (c *Composer) Reset() {
	c.debouncer.Cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{
		DateRange: c.opts.InitialRange,
		PanelOpen: c.state.PanelOpen,
	}
}

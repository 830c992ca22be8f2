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

package filter

import (
	"context"
	"strings"
	"sync"
	"time"

	"roomadmin/clock"
	"roomadmin/model"

	"github.com/eliona-smart-building-assistant/go-utils/log"
)

const DefaultMinUserQuery = 3

type UserSearcher interface {
	SearchUsers(ctx context.Context, query string) ([]model.User, error)
}

type PickerOptions struct {
	Clock    clock.Clock
	Debounce time.Duration
	// MinLength is the shortest trimmed query that is sent to the backend.
	MinLength int
	Timeout   time.Duration
}

type PickerState struct {
	Query        string       `json:"query"`
	Results      []model.User `json:"results"`
	Selected     *model.User  `json:"selected"`
	ShowDropdown bool         `json:"showDropdown"`
}

// UserPicker is the owner/attendee typeahead. It searches only while no user
// is selected and the query is long enough.
type UserPicker struct {
	searcher  UserSearcher
	opts      PickerOptions
	debouncer *Debouncer

	mu    sync.Mutex
	state PickerState
	gen   uint64
}

func NewUserPicker(searcher UserSearcher, opts PickerOptions) *UserPicker {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinUserQuery
	}
	return &UserPicker{
		searcher:  searcher,
		opts:      opts,
		debouncer: NewDebouncer(opts.Clock, opts.Debounce),
	}
}

func (p *UserPicker) State() PickerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Results = append([]model.User(nil), p.state.Results...)
	return s
}

func (p *UserPicker) SetQuery(q string) {
	p.mu.Lock()
	p.state.Query = q
	p.gen++
	p.mu.Unlock()
	p.debouncer.Trigger(p.search)
}

// Select fixes the chosen user and shows its email in the input.
func (p *UserPicker) Select(u model.User) {
	p.debouncer.Cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.state = PickerState{Query: u.Email, Selected: &u}
}

func (p *UserPicker) Clear() {
	p.debouncer.Cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.state = PickerState{}
}

func (p *UserPicker) search() {
	p.mu.Lock()
	raw := p.state.Query
	q := strings.TrimSpace(raw)
	gen := p.gen
	if len([]rune(q)) < p.opts.MinLength || p.state.Selected != nil {
		p.state.Results = nil
		p.state.ShowDropdown = false
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	ctx := context.Background()
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	users, err := p.searcher.SearchUsers(ctx, raw)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	if err != nil {
		log.Error("filter", "searching users for %q: %v", q, err)
		p.state.Results = nil
		return
	}
	p.state.Results = users
	p.state.ShowDropdown = true
}

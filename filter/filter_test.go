package filter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roomadmin/clock"
	"roomadmin/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func newFakeComposer(onSettled func(State)) (*Composer, *clock.Fake) {
	fake := clock.NewFake(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	return NewComposer(Options{Clock: fake, Debounce: 500 * time.Millisecond, OnSettled: onSettled}), fake
}

func TestDebouncedQuerySettlesOnce(t *testing.T) {
	var settled []string
	c, fake := newFakeComposer(func(s State) { settled = append(settled, s.DebouncedTextQuery) })

	c.SetTextQuery("r")
	fake.Advance(100 * time.Millisecond)
	c.SetTextQuery("ro")
	fake.Advance(100 * time.Millisecond)
	c.SetTextQuery("roo")

	fake.Advance(499 * time.Millisecond)
	assert.Equal(t, "", c.State().DebouncedTextQuery)
	assert.Equal(t, "roo", c.State().TextQuery)

	fake.Advance(time.Millisecond)
	assert.Equal(t, "roo", c.State().DebouncedTextQuery)
	assert.Equal(t, []string{"roo"}, settled)
	assert.Equal(t, 0, fake.Pending())
}

func TestClearingQueryIsImmediate(t *testing.T) {
	var settled int
	c, fake := newFakeComposer(func(State) { settled++ })

	c.SetTextQuery("r")
	fake.Advance(100 * time.Millisecond)
	c.SetTextQuery("ro")
	fake.Advance(100 * time.Millisecond)
	c.SetTextQuery("roo")
	fake.Advance(50 * time.Millisecond)
	c.SetTextQuery("")

	s := c.State()
	assert.Equal(t, "", s.TextQuery)
	assert.Equal(t, "", s.DebouncedTextQuery)

	fake.Advance(time.Second)
	assert.Equal(t, "", c.State().DebouncedTextQuery)
	assert.Zero(t, settled)
}

func TestClearAfterSettleNotifies(t *testing.T) {
	var got []string
	c, fake := newFakeComposer(func(s State) { got = append(got, s.DebouncedTextQuery) })

	c.SetTextQuery("evt-1")
	fake.Advance(time.Second)
	c.ClearText()

	assert.Equal(t, []string{"evt-1", ""}, got)
}

func TestIsEmptyPerAxis(t *testing.T) {
	base := State{}
	require.True(t, base.IsEmpty())

	mutations := map[string]func(*State){
		"start":    func(s *State) { s.DateRange.Start = null.TimeFrom(time.Now()) },
		"end":      func(s *State) { s.DateRange.End = null.TimeFrom(time.Now()) },
		"text":     func(s *State) { s.TextQuery = "abc" },
		"resource": func(s *State) { s.ResourceID = "room1@example.com" },
		"user":     func(s *State) { s.UserID = "u1" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			s := base
			mutate(&s)
			assert.False(t, s.IsEmpty())
		})
	}

	panel := base
	panel.PanelOpen = true
	assert.True(t, panel.IsEmpty())

	blank := base
	blank.TextQuery = "   "
	assert.True(t, blank.IsEmpty())
}

func TestComposerEmptyAtInitialRange(t *testing.T) {
	may := DateRange{
		Start: null.TimeFrom(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		End:   null.TimeFrom(time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)),
	}
	c := NewComposer(Options{InitialRange: may})
	assert.True(t, c.IsEmpty())
	assert.False(t, c.State().IsEmpty())

	c.SetEnd(null.TimeFrom(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)))
	assert.False(t, c.IsEmpty())

	c.Reset()
	assert.True(t, c.IsEmpty())

	c.SetDateRange(DateRange{
		Start: null.TimeFrom(may.Start.Time.In(time.FixedZone("CEST", 2*3600))),
		End:   may.End,
	})
	assert.True(t, c.IsEmpty())
}

func TestValidateRange(t *testing.T) {
	start := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	s := State{DateRange: DateRange{Start: null.TimeFrom(start), End: null.TimeFrom(end)}}
	err := s.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "dateRange", verr.Field)

	s.DateRange = DateRange{Start: null.TimeFrom(end), End: null.TimeFrom(start)}
	assert.NoError(t, s.Validate())

	s.DateRange = DateRange{Start: null.TimeFrom(start)}
	assert.NoError(t, s.Validate())

	s.DateRange = DateRange{Start: null.TimeFrom(start), End: null.TimeFrom(start)}
	assert.NoError(t, s.Validate())
}

func TestPanelDefaultsAndReset(t *testing.T) {
	initial := DateRange{Start: null.TimeFrom(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))}
	narrow := NewComposer(Options{NarrowViewport: true, InitialRange: initial})
	wide := NewComposer(Options{})

	assert.True(t, narrow.State().PanelOpen)
	assert.False(t, wide.State().PanelOpen)

	narrow.SetResourceID(" room1 ")
	narrow.SetUserID("u1")
	narrow.SetEnd(null.TimeFrom(time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)))
	narrow.TogglePanel()
	assert.Equal(t, "room1", narrow.State().ResourceID)

	narrow.Reset()
	s := narrow.State()
	assert.Equal(t, initial, s.DateRange)
	assert.Empty(t, s.ResourceID)
	assert.Empty(t, s.UserID)
	assert.False(t, s.PanelOpen)
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	users   []model.User
	err     error
}

func (f *fakeSearcher) SearchUsers(_ context.Context, q string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.users, f.err
}

func TestUserPickerSearchesAfterMinLength(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	searcher := &fakeSearcher{users: []model.User{{ID: "u1", Name: "Ann", Email: "ann@example.com"}}}
	p := NewUserPicker(searcher, PickerOptions{Clock: fake})

	p.SetQuery("an")
	fake.Advance(time.Second)
	assert.Empty(t, searcher.queries)
	assert.False(t, p.State().ShowDropdown)

	p.SetQuery("ann")
	fake.Advance(499 * time.Millisecond)
	assert.Empty(t, searcher.queries)
	fake.Advance(time.Millisecond)
	assert.Equal(t, []string{"ann"}, searcher.queries)

	s := p.State()
	assert.True(t, s.ShowDropdown)
	assert.Len(t, s.Results, 1)
}

func TestUserPickerSelectStopsSearching(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	searcher := &fakeSearcher{}
	p := NewUserPicker(searcher, PickerOptions{Clock: fake})

	p.SetQuery("ann")
	p.Select(model.User{ID: "u1", Email: "ann@example.com"})
	fake.Advance(time.Second)

	s := p.State()
	assert.Empty(t, searcher.queries)
	assert.Equal(t, "ann@example.com", s.Query)
	require.NotNil(t, s.Selected)
	assert.Equal(t, "u1", s.Selected.ID)
	assert.False(t, s.ShowDropdown)

	p.SetQuery("ann@example.co")
	fake.Advance(time.Second)
	assert.Empty(t, searcher.queries)

	p.Clear()
	assert.Equal(t, PickerState{}, p.State())
}

func TestUserPickerErrorClearsResults(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	searcher := &fakeSearcher{err: errors.New("boom")}
	p := NewUserPicker(searcher, PickerOptions{Clock: fake})

	p.SetQuery("bob")
	fake.Advance(time.Second)
	assert.Empty(t, p.State().Results)
	assert.Len(t, searcher.queries, 1)
}

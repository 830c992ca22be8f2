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

// Package notify keeps the transient notifications shown after searches and
// sync repairs, and streams them to connected consoles.
package notify

import (
	"sort"
	"sync"
	"time"

	"roomadmin/clock"

	"github.com/google/uuid"
)

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

type TTLs struct {
	Success time.Duration
	Error   time.Duration
	Info    time.Duration
}

var DefaultTTLs = TTLs{
	Success: 8 * time.Second,
	Error:   10 * time.Second,
	Info:    3 * time.Second,
}

func (t TTLs) For(k Kind) time.Duration {
	switch k {
	case Success:
		return t.Success
	case Error:
		return t.Error
	}
	return t.Info
}

type Notification struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
	Expires time.Time `json:"expires"`
}

type EventType string

const (
	Published EventType = "published"
	Dismissed EventType = "dismissed"
)

type Event struct {
	Type         EventType    `json:"type"`
	Notification Notification `json:"notification"`
}

type entry struct {
	n     Notification
	timer clock.Timer
}

// Hub holds the active notifications. Each one is dismissed automatically
// when its kind's TTL runs out.
type Hub struct {
	clock clock.Clock
	ttls  TTLs

	mu     sync.Mutex
	active map[string]*entry
	subs   map[chan Event]struct{}
}

func NewHub(c clock.Clock, ttls TTLs) *Hub {
	if c == nil {
		c = clock.Real{}
	}
	if ttls.Success <= 0 {
		ttls.Success = DefaultTTLs.Success
	}
	if ttls.Error <= 0 {
		ttls.Error = DefaultTTLs.Error
	}
	if ttls.Info <= 0 {
		ttls.Info = DefaultTTLs.Info
	}
	return &Hub{
		clock:  c,
		ttls:   ttls,
		active: make(map[string]*entry),
		subs:   make(map[chan Event]struct{}),
	}
}

func (h *Hub) Publish(kind Kind, message string) Notification {
	now := h.clock.Now()
	ttl := h.ttls.For(kind)
	n := Notification{
		ID:      uuid.NewString(),
		Kind:    kind,
		Message: message,
		Created: now,
		Expires: now.Add(ttl),
	}
	h.mu.Lock()
	e := &entry{n: n}
	h.active[n.ID] = e
	h.broadcastLocked(Event{Type: Published, Notification: n})
	h.mu.Unlock()

	timer := h.clock.AfterFunc(ttl, func() { h.Dismiss(n.ID) })
	h.mu.Lock()
	if _, ok := h.active[n.ID]; ok {
		e.timer = timer
	} else {
		timer.Stop()
	}
	h.mu.Unlock()
	return n
}

// Dismiss removes a notification before it expires.
func (h *Hub) Dismiss(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.active[id]
	if !ok {
		return false
	}
	delete(h.active, id)
	if e.timer != nil {
		e.timer.Stop()
	}
	h.broadcastLocked(Event{Type: Dismissed, Notification: e.n})
	return true
}

// Active lists the live notifications, oldest first.
func (h *Hub) Active() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Notification, 0, len(h.active))
	for _, e := range h.active {
		out = append(out, e.n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Subscribe streams events until cancel is called. Events are dropped for a
// subscriber that falls behind.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) broadcastLocked(ev Event) {
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

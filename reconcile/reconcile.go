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

// Package reconcile drives the per-record sync repair state machine of the
// missing-sync report.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"roomadmin/clock"
	"roomadmin/model"
	syncmodel "roomadmin/model/sync"
	"roomadmin/notify"

	"github.com/eliona-smart-building-assistant/go-utils/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrRepairInFlight = errors.New("repair already in flight")
	ErrAlreadySynced  = errors.New("record already has all sync identifiers")
	ErrUnknownRecord  = errors.New("record not loaded")
)

// SyncFailure is returned when the backend refused or failed a repair. The
// record is left as it was.
type SyncFailure struct {
	EventID string
	Errors  []string
}

func (e *SyncFailure) Error() string {
	return fmt.Sprintf("sync failed for %s: %s", e.EventID, strings.Join(e.Errors, "; "))
}

type Repairer interface {
	RepairSync(ctx context.Context, eventID string) (*syncmodel.RepairResponse, error)
}

type Publisher interface {
	Publish(kind notify.Kind, message string) notify.Notification
}

type Options struct {
	Clock      clock.Clock
	SuccessTTL time.Duration
	FailureTTL time.Duration
	Publisher  Publisher
	// OnChange is called after a record's state changed, outside any lock.
	OnChange func(eventID string, state syncmodel.State)
}

type entry struct {
	item      model.LoggedEventItem
	transient syncmodel.State
	errors    []string
	timer     clock.Timer
	gen       uint64
}

// Reconciler holds the loaded report rows. Repairs of different records run
// independently; a record with a repair in flight rejects another one.
type Reconciler struct {
	repairer Repairer
	opts     Options

	mu       sync.Mutex
	records  map[string]*entry
	order    []string
	inflight map[string]bool
}

func New(repairer Repairer, opts Options) *Reconciler {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.SuccessTTL <= 0 {
		opts.SuccessTTL = notify.DefaultTTLs.Success
	}
	if opts.FailureTTL <= 0 {
		opts.FailureTTL = notify.DefaultTTLs.Error
	}
	return &Reconciler{
		repairer: repairer,
		opts:     opts,
		records:  make(map[string]*entry),
		inflight: make(map[string]bool),
	}
}

// Load replaces the report rows. Repairs still in flight keep their guard
// and merge into the new row if it carries the same id.
func (r *Reconciler) Load(items []model.LoggedEventItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.records {
		stopLocked(e)
	}
	r.records = make(map[string]*entry, len(items))
	r.order = r.order[:0]
	for _, item := range items {
		if _, dup := r.records[item.ID]; !dup {
			r.order = append(r.order, item.ID)
		}
		r.records[item.ID] = &entry{item: item}
	}
}

func (r *Reconciler) Record(id string) (model.LoggedEventItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.records[id]
	if !ok {
		return model.LoggedEventItem{}, false
	}
	return e.item, true
}

// Records returns the loaded rows in load order.
func (r *Reconciler) Records() []model.LoggedEventItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.LoggedEventItem, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id].item)
	}
	return out
}

// Replace swaps a loaded row for a fresh copy, e.g. after a manual edit.
func (r *Reconciler) Replace(item model.LoggedEventItem) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.records[item.ID]
	if !ok {
		return false
	}
	e.item = item
	return true
}

func (r *Reconciler) State(id string) syncmodel.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked(id)
}

func (r *Reconciler) Status(id string) (syncmodel.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.records[id]
	if !ok {
		return syncmodel.Status{}, false
	}
	return syncmodel.IDsOf(e.item).Status(), true
}

// Errors returns the messages of the last failed repair while it is shown.
func (r *Reconciler) Errors(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.records[id]
	if !ok || e.transient != syncmodel.SyncFailed {
		return nil
	}
	return append([]string(nil), e.errors...)
}

// CanRepair reports whether the repair trigger for id is enabled.
func (r *Reconciler) CanRepair(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkLocked(id) == nil
}

// Dismiss ends a success or failure state before it expires.
func (r *Reconciler) Dismiss(id string) {
	r.mu.Lock()
	e, ok := r.records[id]
	if !ok || e.transient == "" {
		r.mu.Unlock()
		return
	}
	stopLocked(e)
	state := r.stateLocked(id)
	r.mu.Unlock()
	r.changed(id, state)
}

type Row struct {
	Item   model.LoggedEventItem `json:"item"`
	State  syncmodel.State       `json:"state"`
	Status syncmodel.Status      `json:"status"`
	Errors []string              `json:"errors,omitempty"`
}

// Snapshot lists every row with its current state, in load order.
func (r *Reconciler) Snapshot() []Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]Row, 0, len(r.order))
	for _, id := range r.order {
		e := r.records[id]
		row := Row{
			Item:   e.item,
			State:  r.stateLocked(id),
			Status: syncmodel.IDsOf(e.item).Status(),
		}
		if e.transient == syncmodel.SyncFailed {
			row.Errors = append([]string(nil), e.errors...)
		}
		rows = append(rows, row)
	}
	return rows
}

// Repair asks the backend to fill the missing identifiers of one record and
// merges what it returns. On failure the record is untouched and a
// *SyncFailure is returned.
func (r *Reconciler) Repair(ctx context.Context, id string) (model.LoggedEventItem, error) {
	r.mu.Lock()
	if err := r.checkLocked(id); err != nil {
		r.mu.Unlock()
		return model.LoggedEventItem{}, err
	}
	r.inflight[id] = true
	stopLocked(r.records[id])
	r.mu.Unlock()
	r.changed(id, syncmodel.Syncing)

	log.Debug("reconcile", "repairing %s", id)
	outcome := syncmodel.OutcomeOf(r.repairer.RepairSync(ctx, id))

	r.mu.Lock()
	delete(r.inflight, id)
	var item model.LoggedEventItem
	e, loaded := r.records[id]
	if loaded {
		e.item = syncmodel.WithIDs(e.item, syncmodel.Merge(syncmodel.IDsOf(e.item), outcome))
		item = e.item
		r.showLocked(id, e, outcome)
	}
	state := r.stateLocked(id)
	r.mu.Unlock()

	var err error
	switch o := outcome.(type) {
	case syncmodel.Succeeded:
		log.Info("reconcile", "Repaired sync identifiers of %s.", id)
		r.publish(notify.Success, fmt.Sprintf("Sync completed for event %s", id))
	case syncmodel.Failed:
		err = &SyncFailure{EventID: id, Errors: o.Errors}
		log.Error("reconcile", "%v", err)
		r.publish(notify.Error, err.Error())
	}
	if loaded {
		r.changed(id, state)
	}
	return item, err
}

type Result struct {
	EventID string
	Err     error
}

// RepairAll repairs the given records with at most concurrency requests in
// flight. Records that cannot be repaired right now are reported, not retried.
func (r *Reconciler) RepairAll(ctx context.Context, ids []string, concurrency int) []Result {
	results := make([]Result, len(ids))
	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			_, err := r.Repair(ctx, id)
			results[i] = Result{EventID: id, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Incomplete lists the loaded record ids still missing an identifier.
func (r *Reconciler) Incomplete() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, id := range r.order {
		if !syncmodel.IDsOf(r.records[id].item).Status().Complete() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Reconciler) checkLocked(id string) error {
	e, ok := r.records[id]
	if !ok {
		return fmt.Errorf("repairing %s: %w", id, ErrUnknownRecord)
	}
	if r.inflight[id] {
		return fmt.Errorf("repairing %s: %w", id, ErrRepairInFlight)
	}
	if syncmodel.IDsOf(e.item).Status().Complete() {
		return fmt.Errorf("repairing %s: %w", id, ErrAlreadySynced)
	}
	return nil
}

func (r *Reconciler) stateLocked(id string) syncmodel.State {
	if r.inflight[id] {
		return syncmodel.Syncing
	}
	e, ok := r.records[id]
	if !ok {
		return ""
	}
	if e.transient != "" {
		return e.transient
	}
	return syncmodel.DeriveState(syncmodel.IDsOf(e.item))
}

func (r *Reconciler) showLocked(id string, e *entry, outcome syncmodel.Outcome) {
	ttl := r.opts.SuccessTTL
	e.transient = syncmodel.SyncSucceeded
	e.errors = nil
	if f, ok := outcome.(syncmodel.Failed); ok {
		ttl = r.opts.FailureTTL
		e.transient = syncmodel.SyncFailed
		e.errors = f.Errors
	}
	e.gen++
	gen := e.gen
	e.timer = r.opts.Clock.AfterFunc(ttl, func() { r.expire(id, e, gen) })
}

func (r *Reconciler) expire(id string, e *entry, gen uint64) {
	r.mu.Lock()
	if r.records[id] != e || e.gen != gen || e.transient == "" {
		r.mu.Unlock()
		return
	}
	e.transient = ""
	e.errors = nil
	e.timer = nil
	state := r.stateLocked(id)
	r.mu.Unlock()
	r.changed(id, state)
}

func stopLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	e.timer = nil
	e.transient = ""
	e.errors = nil
}

func (r *Reconciler) publish(kind notify.Kind, message string) {
	if r.opts.Publisher != nil {
		r.opts.Publisher.Publish(kind, message)
	}
}

func (r *Reconciler) changed(id string, state syncmodel.State) {
	if r.opts.OnChange != nil {
		r.opts.OnChange(id, state)
	}
}

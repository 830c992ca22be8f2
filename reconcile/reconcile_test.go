package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roomadmin/clock"
	"roomadmin/model"
	syncmodel "roomadmin/model/sync"
	"roomadmin/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

type fakeRepairer struct {
	mu        sync.Mutex
	responses map[string]*syncmodel.RepairResponse
	errs      map[string]error
	calls     map[string]int
	started   chan string
	release   map[string]chan struct{}
}

func newFakeRepairer() *fakeRepairer {
	return &fakeRepairer{
		responses: map[string]*syncmodel.RepairResponse{},
		errs:      map[string]error{},
		calls:     map[string]int{},
		release:   map[string]chan struct{}{},
	}
}

func (f *fakeRepairer) RepairSync(ctx context.Context, id string) (*syncmodel.RepairResponse, error) {
	f.mu.Lock()
	f.calls[id]++
	release := f.release[id]
	started := f.started
	resp, err := f.responses[id], f.errs[id]
	f.mu.Unlock()
	if started != nil {
		started <- id
	}
	if release != nil {
		<-release
	}
	return resp, err
}

func (f *fakeRepairer) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []notify.Kind
}

func (p *recordingPublisher) Publish(kind notify.Kind, message string) notify.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, kind)
	return notify.Notification{Kind: kind, Message: message}
}

func partial(id string) model.LoggedEventItem {
	return model.LoggedEventItem{
		ID:             id,
		ResourceSyncID: null.StringFrom("r1"),
	}
}

func TestRepairMergesOnlyUpdatedFields(t *testing.T) {
	repairer := newFakeRepairer()
	repairer.responses["e1"] = &syncmodel.RepairResponse{
		Success: true,
		Updated: &syncmodel.Updated{GlobalSyncID: null.StringFrom("g1")},
	}
	pub := &recordingPublisher{}
	fake := clock.NewFake(time.Unix(0, 0))
	r := New(repairer, Options{Clock: fake, Publisher: pub})
	r.Load([]model.LoggedEventItem{partial("e1")})

	assert.Equal(t, syncmodel.PartiallyMissing, r.State("e1"))

	item, err := r.Repair(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, null.StringFrom("g1"), item.GlobalSyncID)
	assert.Equal(t, null.StringFrom("r1"), item.ResourceSyncID)
	assert.False(t, item.SyncID.Valid)

	assert.Equal(t, syncmodel.SyncSucceeded, r.State("e1"))
	status, ok := r.Status("e1")
	require.True(t, ok)
	assert.Equal(t, syncmodel.Status{GlobalOK: true, ResourceOK: true, SyncOK: false}, status)
	assert.Equal(t, []notify.Kind{notify.Success}, pub.kinds)

	fake.Advance(8 * time.Second)
	assert.Equal(t, syncmodel.PartiallyMissing, r.State("e1"))
	assert.True(t, r.CanRepair("e1"))
}

func TestRepairFailureLeavesRecordUntouched(t *testing.T) {
	repairer := newFakeRepairer()
	repairer.responses["e1"] = &syncmodel.RepairResponse{Success: false, Errors: []string{"room not found"}}
	fake := clock.NewFake(time.Unix(0, 0))
	r := New(repairer, Options{Clock: fake})
	before := partial("e1")
	r.Load([]model.LoggedEventItem{before})

	_, err := r.Repair(context.Background(), "e1")
	var failure *SyncFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, []string{"room not found"}, failure.Errors)

	item, _ := r.Record("e1")
	assert.Equal(t, before, item)
	assert.Equal(t, syncmodel.SyncFailed, r.State("e1"))
	assert.Equal(t, []string{"room not found"}, r.Errors("e1"))

	fake.Advance(9 * time.Second)
	assert.Equal(t, syncmodel.SyncFailed, r.State("e1"))
	fake.Advance(time.Second)
	assert.Equal(t, syncmodel.PartiallyMissing, r.State("e1"))
	assert.Nil(t, r.Errors("e1"))
}

func TestRepairTransportErrorIsSyncFailure(t *testing.T) {
	repairer := newFakeRepairer()
	repairer.errs["e1"] = errors.New("connection refused")
	r := New(repairer, Options{Clock: clock.NewFake(time.Unix(0, 0))})
	r.Load([]model.LoggedEventItem{partial("e1")})

	_, err := r.Repair(context.Background(), "e1")
	var failure *SyncFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, []string{"connection refused"}, failure.Errors)
}

func TestRepairInFlightGuard(t *testing.T) {
	repairer := newFakeRepairer()
	repairer.started = make(chan string, 4)
	repairer.release["e1"] = make(chan struct{})
	repairer.responses["e1"] = &syncmodel.RepairResponse{Success: true}
	r := New(repairer, Options{Clock: clock.NewFake(time.Unix(0, 0))})
	r.Load([]model.LoggedEventItem{partial("e1")})

	done := make(chan error, 1)
	go func() {
		_, err := r.Repair(context.Background(), "e1")
		done <- err
	}()
	<-repairer.started

	assert.Equal(t, syncmodel.Syncing, r.State("e1"))
	assert.False(t, r.CanRepair("e1"))
	_, err := r.Repair(context.Background(), "e1")
	assert.ErrorIs(t, err, ErrRepairInFlight)

	close(repairer.release["e1"])
	require.NoError(t, <-done)
	assert.Equal(t, 1, repairer.count("e1"))
}

func TestDistinctRecordsRepairConcurrently(t *testing.T) {
	repairer := newFakeRepairer()
	repairer.started = make(chan string, 4)
	for _, id := range []string{"e1", "e2"} {
		repairer.release[id] = make(chan struct{})
		repairer.responses[id] = &syncmodel.RepairResponse{
			Success: true,
			Updated: &syncmodel.Updated{GlobalSyncID: null.StringFrom("g"), SyncID: null.StringFrom("s")},
		}
	}
	r := New(repairer, Options{Clock: clock.NewFake(time.Unix(0, 0))})
	r.Load([]model.LoggedEventItem{partial("e1"), partial("e2")})

	results := make(chan []Result, 1)
	go func() {
		results <- r.RepairAll(context.Background(), []string{"e1", "e2"}, 2)
	}()
	<-repairer.started
	<-repairer.started
	assert.Equal(t, syncmodel.Syncing, r.State("e1"))
	assert.Equal(t, syncmodel.Syncing, r.State("e2"))

	close(repairer.release["e1"])
	close(repairer.release["e2"])
	for _, res := range <-results {
		assert.NoError(t, res.Err, res.EventID)
	}
	assert.Empty(t, r.Incomplete())
	assert.False(t, r.CanRepair("e1"))
}

func TestAlreadySyncedAndUnknown(t *testing.T) {
	r := New(newFakeRepairer(), Options{Clock: clock.NewFake(time.Unix(0, 0))})
	r.Load([]model.LoggedEventItem{{
		ID:             "done",
		GlobalSyncID:   null.StringFrom("g"),
		ResourceSyncID: null.StringFrom(""),
		SyncID:         null.StringFrom("s"),
	}})

	assert.Equal(t, syncmodel.AllSynced, r.State("done"))
	_, err := r.Repair(context.Background(), "done")
	assert.ErrorIs(t, err, ErrAlreadySynced)
	_, err = r.Repair(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownRecord)
}

func TestDismissAndStateChanges(t *testing.T) {
	repairer := newFakeRepairer()
	repairer.responses["e1"] = &syncmodel.RepairResponse{Success: false, Message: "backend down"}
	fake := clock.NewFake(time.Unix(0, 0))
	var states []syncmodel.State
	r := New(repairer, Options{
		Clock:    fake,
		OnChange: func(_ string, s syncmodel.State) { states = append(states, s) },
	})
	r.Load([]model.LoggedEventItem{partial("e1")})

	_, err := r.Repair(context.Background(), "e1")
	require.Error(t, err)
	r.Dismiss("e1")
	assert.Equal(t, 0, fake.Pending())

	assert.Equal(t, []syncmodel.State{
		syncmodel.Syncing,
		syncmodel.SyncFailed,
		syncmodel.PartiallyMissing,
	}, states)

	rows := r.Snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, syncmodel.PartiallyMissing, rows[0].State)
	assert.Equal(t, []string{"globalSyncId", "syncId"}, rows[0].Status.Missing())
}

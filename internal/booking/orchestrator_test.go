package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chair-reservation-backend/internal/clock"
	"chair-reservation-backend/internal/interval"
	"chair-reservation-backend/internal/model"
	"chair-reservation-backend/internal/payment"
	"chair-reservation-backend/internal/reservation"
	"chair-reservation-backend/internal/session"
	"chair-reservation-backend/internal/status"
	"chair-reservation-backend/internal/store"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// fakeStore backs both the repository and the machine.
type fakeStore struct {
	mu           sync.Mutex
	reservations map[string]model.Reservation
	open         map[int64]model.OccupancyOpen
	history      []model.OccupancyHistory
	failInsertOn int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reservations: make(map[string]model.Reservation),
		open:         make(map[int64]model.OccupancyOpen),
	}
}

func (f *fakeStore) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reservation
	for _, r := range f.reservations {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) InsertReservation(ctx context.Context, r *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertOn != 0 && r.ChairID == f.failInsertOn {
		return fmt.Errorf("insert: %w", store.ErrPersistence)
	}
	f.reservations[r.ID] = *r
	return nil
}

func (f *fakeStore) DeleteReservation(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reservations[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.reservations, id)
	return nil
}

func (f *fakeStore) ListOpenOccupancies(ctx context.Context) ([]model.OccupancyOpen, error) {
	return nil, nil
}

func (f *fakeStore) OpenOccupancy(ctx context.Context, o model.OccupancyOpen) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open[o.ChairID] = o
	return nil
}

func (f *fakeStore) CloseOccupancy(ctx context.Context, o model.OccupancyOpen, end time.Time, minutes, fee int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.open, o.ChairID)
	f.history = append(f.history, model.OccupancyHistory{
		ChairID: o.ChairID, UserID: o.UserID, PeriodStart: o.StartedAt, PeriodEnd: end, Minutes: minutes, Fee: fee,
	})
	return nil
}

func (f *fakeStore) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reservations)
}

type fakeVerifier map[string]string

func (v fakeVerifier) VerifyCredential(ctx context.Context, userID, secret string) (bool, error) {
	want, ok := v[userID]
	return ok && want == secret, nil
}

type recordingNotifier struct{ chairs []int64 }

func (n *recordingNotifier) Dispatch(chairID int64) { n.chairs = append(n.chairs, chairID) }

type recordingPublisher struct{ keys []string }

func (p *recordingPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	p.keys = append(p.keys, key)
	return nil
}

type fixture struct {
	clk      *clock.Manual
	db       *fakeStore
	repo     *reservation.Repository
	machine  *session.Machine
	gateway  *payment.Simulated
	notifier *recordingNotifier
	events   *recordingPublisher
	o        *Orchestrator
}

var (
	alice = Actor{UserID: "alice", Name: "Alice"}
	bob   = Actor{UserID: "bob", Name: "Bob"}
	guest = Actor{UserID: "guest-1", Name: "ゲスト", IsGuest: true}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clk:      clock.NewManual(t0),
		db:       newFakeStore(),
		gateway:  payment.NewSimulated(0),
		notifier: &recordingNotifier{},
		events:   &recordingPublisher{},
	}
	chairs := []model.Chair{{ID: 1, DisplayName: "チェア 1"}, {ID: 2, DisplayName: "チェア 2"}, {ID: 3, DisplayName: "チェア 3"}}
	f.repo = reservation.NewRepository(f.db, f.clk)
	f.machine = session.NewMachine(chairs, 100, f.clk, f.db)
	f.o = New(f.repo, f.machine, fakeVerifier{"alice": "alice-pass"}, f.gateway, f.clk, Options{
		AdvanceBooking: 6 * time.Hour,
		CardLimit:      2,
		Currency:       "JPY",
	}).WithEvents(f.events).WithNotifier(f.notifier)
	return f
}

func slot(from, to time.Duration) interval.Interval {
	return interval.Interval{Start: t0.Add(from), End: t0.Add(to)}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name  string
		facts Facts
		want  Action
	}{
		{"registered occupant", Facts{OccupiedBySelf: true, Occupied: true}, ActionCheckOut},
		{"guest occupant", Facts{IsGuest: true, OccupiedBySelf: true, Occupied: true}, ActionCheckOut},
		{"guest with live reservation", Facts{IsGuest: true, HasLive: true}, ActionGuestCheckInWithCredential},
		{"guest on free chair", Facts{IsGuest: true}, ActionDirectCheckIn},
		{"guest on chair used by another", Facts{IsGuest: true, Occupied: true}, ActionUnavailable},
		{"registered with own reservation", Facts{HasOwn: true}, ActionModifyReservation},
		{"registered with own reservation on occupied chair", Facts{HasOwn: true, Occupied: true}, ActionModifyReservation},
		{"registered without reservation", Facts{}, ActionCreateReservation},
		{"registered on chair used by another", Facts{Occupied: true, HasLive: true}, ActionCreateReservation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.facts))
		})
	}
}

func TestCreateReservations_ScenarioA(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.o.CreateReservations(ctx, alice, Submission{ChairIDs: []int64{1}, Slot: slot(time.Minute, 61*time.Minute)})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 1, created[0].PartySize)

	_, err = f.o.CreateReservations(ctx, bob, Submission{ChairIDs: []int64{1}, Slot: slot(30*time.Minute, 90*time.Minute)})
	var conflict *SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(1), conflict.ChairID)
	assert.Equal(t, created[0].ID, conflict.Conflicting.ID)
	assert.Equal(t, 1, f.db.stored())
}

func TestCreateReservations_BatchIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.o.CreateReservations(ctx, bob, Submission{ChairIDs: []int64{2}, Slot: slot(time.Hour, 2*time.Hour)})
	require.NoError(t, err)

	_, err = f.o.CreateReservations(ctx, alice, Submission{ChairIDs: []int64{1, 2, 3}, Slot: slot(90*time.Minute, 150*time.Minute)})
	var conflict *SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(2), conflict.ChairID)
	assert.Empty(t, f.repo.List(1))
	assert.Empty(t, f.repo.List(3))

	created, err := f.o.CreateReservations(ctx, alice, Submission{ChairIDs: []int64{1, 3, 1}, Slot: slot(90*time.Minute, 150*time.Minute)})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, 2, created[0].PartySize, "party size defaults to the number of chairs")
}

func TestCreateReservations_PersistenceFailureUndoesBatch(t *testing.T) {
	f := newFixture(t)
	f.db.failInsertOn = 2

	_, err := f.o.CreateReservations(context.Background(), alice, Submission{ChairIDs: []int64{1, 2}, Slot: slot(time.Hour, 2*time.Hour)})
	require.ErrorIs(t, err, store.ErrPersistence)
	assert.Empty(t, f.repo.List(1))
	assert.Equal(t, 0, f.db.stored())
}

func TestCreateReservations_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.o.CreateReservations(ctx, guest, Submission{ChairIDs: []int64{1}, Slot: slot(time.Hour, 2*time.Hour)})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = f.o.CreateReservations(ctx, alice, Submission{ChairIDs: []int64{1}, Slot: slot(-2*time.Hour, -time.Hour)})
	assert.ErrorIs(t, err, ErrSlotInPast)

	_, err = f.o.CreateReservations(ctx, alice, Submission{ChairIDs: []int64{1}, Slot: slot(2*time.Hour, time.Hour)})
	assert.ErrorIs(t, err, interval.ErrInvalid)

	_, err = f.o.CreateReservations(ctx, alice, Submission{ChairIDs: []int64{99}, Slot: slot(time.Hour, 2*time.Hour)})
	assert.ErrorIs(t, err, session.ErrUnknownChair)

	_, err = f.o.CreateReservations(ctx, alice, Submission{Slot: slot(time.Hour, 2*time.Hour)})
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestSubmit_ScenarioC_AdvanceBookingOnOccupiedChair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.o.CheckIn(ctx, bob, 1, "")
	require.NoError(t, err)

	wf, err := f.o.Select(ctx, alice, 1)
	require.NoError(t, err)
	assert.Equal(t, ActionCreateReservation, wf.Action)
	assert.Equal(t, StageEditor, wf.Stage)
	require.NotNil(t, wf.Suggested)
	assert.False(t, wf.Suggested.Start.Before(t0.Add(6*time.Hour)))

	_, err = f.o.Submit(ctx, alice, Submission{Slot: slot(3*time.Hour, 4*time.Hour)})
	var tooSoon *AdvanceBookingTooSoonError
	require.ErrorAs(t, err, &tooSoon)
	assert.Equal(t, t0.Add(6*time.Hour), tooSoon.EarliestStart)
	assert.Equal(t, 0, f.db.stored())

	still, err := f.o.Workflow(alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, StageEditor, still.Stage)

	res, err := f.o.Submit(ctx, alice, Submission{Slot: slot(6*time.Hour, 7*time.Hour)})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Nil(t, res.Workflow)

	_, err = f.o.Workflow(alice.UserID)
	assert.ErrorIs(t, err, ErrNoWorkflow)
	assert.Contains(t, f.events.keys, "reservation.created")
}

func TestSelect_SuggestedSlotOnFreeChair(t *testing.T) {
	f := newFixture(t)
	f.clk.Set(t0.Add(30 * time.Second))

	wf, err := f.o.Select(context.Background(), alice, 2)
	require.NoError(t, err)
	require.NotNil(t, wf.Suggested)
	assert.Equal(t, t0.Add(time.Minute), wf.Suggested.Start)
	assert.Equal(t, t0.Add(61*time.Minute), wf.Suggested.End)
	assert.Equal(t, PathCreate, wf.Path.Kind)
}

func TestCheckIn_ScenarioD_GuestCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.repo.Create(ctx, model.Reservation{ChairID: 2, UserID: "alice", StartAt: t0.Add(-10 * time.Minute), EndAt: t0.Add(50 * time.Minute)})
	require.NoError(t, err)

	wf, err := f.o.Select(ctx, guest, 2)
	require.NoError(t, err)
	assert.Equal(t, ActionGuestCheckInWithCredential, wf.Action)
	assert.Equal(t, StageGuestCheckIn, wf.Stage)

	_, err = f.o.CheckIn(ctx, guest, 2, "wrong")
	require.ErrorIs(t, err, ErrInvalidCredential)
	ch, _ := f.machine.Chair(2)
	assert.False(t, ch.IsOccupied())
	assert.Empty(t, f.db.open)

	ch, err = f.o.CheckIn(ctx, guest, 2, "alice-pass")
	require.NoError(t, err)
	assert.True(t, ch.OccupiedBy(guest.UserID))
	_, err = f.o.Workflow(guest.UserID)
	assert.ErrorIs(t, err, ErrNoWorkflow)
}

func TestCheckIn_DirectAndMisuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wf, err := f.o.Select(ctx, guest, 3)
	require.NoError(t, err)
	assert.Equal(t, StageDirectCheckIn, wf.Stage)

	_, err = f.o.CheckIn(ctx, guest, 3, "")
	require.NoError(t, err)

	_, err = f.o.CheckIn(ctx, alice, 3, "")
	assert.ErrorIs(t, err, session.ErrAlreadyOccupied)

	_, err = f.o.Select(ctx, Actor{UserID: "guest-2", IsGuest: true}, 3)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCheckIn_HolderNeedsNoCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.repo.Create(ctx, model.Reservation{ChairID: 1, UserID: "alice", StartAt: t0, EndAt: t0.Add(time.Hour)})
	require.NoError(t, err)

	_, err = f.o.CheckIn(ctx, bob, 1, "")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	ch, err := f.o.CheckIn(ctx, alice, 1, "")
	require.NoError(t, err)
	assert.True(t, ch.OccupiedBy("alice"))
}

func TestModify_ConfirmAndDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orig, err := f.repo.Create(ctx, model.Reservation{ChairID: 1, UserID: "alice", StartAt: t0.Add(time.Hour), EndAt: t0.Add(2 * time.Hour)})
	require.NoError(t, err)

	wf, err := f.o.Select(ctx, alice, 1)
	require.NoError(t, err)
	assert.Equal(t, ActionModifyReservation, wf.Action)
	require.NotNil(t, wf.Path)
	assert.Equal(t, Path{Kind: PathModify, ReplacedID: orig.ID}, *wf.Path)
	assert.Equal(t, orig.Interval(), *wf.Suggested)

	// Overlapping the reservation being replaced is fine.
	res, err := f.o.Submit(ctx, alice, Submission{Slot: slot(90*time.Minute, 150*time.Minute)})
	require.NoError(t, err)
	require.NotNil(t, res.Workflow)
	assert.Equal(t, StageConfirmModification, res.Workflow.Stage)
	assert.Equal(t, orig.ID, res.Workflow.Pending.Before.ID)
	_, stillThere := f.repo.Get(orig.ID)
	assert.True(t, stillThere)

	back, err := f.o.DeclineModification(alice)
	require.NoError(t, err)
	assert.Equal(t, StageEditor, back.Stage)
	assert.Nil(t, back.Pending)
	assert.Equal(t, slot(90*time.Minute, 150*time.Minute), *back.Suggested)
	assert.Equal(t, 1, f.db.stored())

	_, err = f.o.ConfirmModification(ctx, alice)
	assert.ErrorIs(t, err, ErrWrongStage)

	_, err = f.o.Submit(ctx, alice, Submission{Slot: slot(3*time.Hour, 4*time.Hour)})
	require.NoError(t, err)
	done, err := f.o.ConfirmModification(ctx, alice)
	require.NoError(t, err)
	require.Len(t, done.Created, 1)

	_, stillThere = f.repo.Get(orig.ID)
	assert.False(t, stillThere)
	list := f.repo.List(1)
	require.Len(t, list, 1)
	assert.Equal(t, t0.Add(3*time.Hour), list[0].StartAt)
	assert.Equal(t, []string{"reservation.cancelled", "reservation.created"}, f.events.keys)
}

func TestModify_ConflictWithAnotherReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.repo.Create(ctx, model.Reservation{ChairID: 1, UserID: "alice", StartAt: t0.Add(time.Hour), EndAt: t0.Add(2 * time.Hour)})
	require.NoError(t, err)
	other, err := f.repo.Create(ctx, model.Reservation{ChairID: 1, UserID: "bob", StartAt: t0.Add(3 * time.Hour), EndAt: t0.Add(4 * time.Hour)})
	require.NoError(t, err)

	_, err = f.o.Select(ctx, alice, 1)
	require.NoError(t, err)
	_, err = f.o.Submit(ctx, alice, Submission{Slot: slot(150*time.Minute, 210*time.Minute)})
	var conflict *SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, other.ID, conflict.Conflicting.ID)
}

func TestCancelReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.repo.Create(ctx, model.Reservation{ChairID: 1, UserID: "alice", StartAt: t0.Add(time.Hour), EndAt: t0.Add(2 * time.Hour)})
	require.NoError(t, err)

	_, err = f.o.Select(ctx, alice, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, f.o.CancelReservation(ctx, bob, res.ID), ErrNotOwner)

	require.NoError(t, f.o.CancelReservation(ctx, alice, res.ID))
	_, err = f.o.Workflow(alice.UserID)
	assert.ErrorIs(t, err, ErrNoWorkflow, "editor on the cancelled reservation is cleared")

	assert.ErrorIs(t, f.o.CancelReservation(ctx, alice, res.ID), store.ErrNotFound)
}

func TestCheckOutPaymentFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.o.CheckIn(ctx, alice, 1, "")
	require.NoError(t, err)
	f.clk.Advance(15 * time.Minute)

	wf, err := f.o.Select(ctx, alice, 1)
	require.NoError(t, err)
	assert.Equal(t, StageCheckOutConfirmation, wf.Stage)
	assert.Equal(t, int64(1500), wf.Quote.Fee)

	_, err = f.o.Pay(ctx, alice, payment.MethodTouch)
	assert.ErrorIs(t, err, ErrWrongStage)

	wf, err = f.o.ProceedToPayment(alice)
	require.NoError(t, err)
	assert.Equal(t, StagePayment, wf.Stage)

	f.gateway.DeclineChair(1, true)
	_, err = f.o.Pay(ctx, alice, payment.MethodTouch)
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, payment.ErrDeclined)
	ch, _ := f.machine.Chair(1)
	assert.True(t, ch.IsOccupied(), "failed payment leaves the chair occupied")
	assert.Empty(t, f.notifier.chairs)

	f.gateway.DeclineChair(1, false)
	done, err := f.o.Pay(ctx, alice, payment.MethodTouch)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), done.Receipt.Fee)
	assert.Equal(t, int64(1500), done.Capture.Amount)
	require.NotNil(t, done.Workflow)
	assert.Equal(t, StageCompleted, done.Workflow.Stage)
	assert.Equal(t, []int64{1}, f.notifier.chairs)
	require.Len(t, f.db.history, 1)
	assert.Equal(t, int64(15), f.db.history[0].Minutes)

	require.NoError(t, f.o.Acknowledge(alice))
	_, err = f.o.Workflow(alice.UserID)
	assert.ErrorIs(t, err, ErrNoWorkflow)
}

func TestCheckOutAndPay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.o.CheckOutAndPay(ctx, alice, 1, payment.MethodCard)
	assert.ErrorIs(t, err, session.ErrNotOccupied)

	_, err = f.o.CheckIn(ctx, guest, 1, "")
	require.NoError(t, err)
	f.clk.Advance(90 * time.Second)

	_, err = f.o.CheckOutAndPay(ctx, alice, 1, payment.MethodCard)
	assert.ErrorIs(t, err, ErrUnavailable)

	done, err := f.o.CheckOutAndPay(ctx, guest, 1, payment.MethodCard)
	require.NoError(t, err)
	assert.Equal(t, int64(2), done.Receipt.Minutes)
	assert.Equal(t, int64(200), done.Receipt.Fee)
	ch, _ := f.machine.Chair(1)
	assert.False(t, ch.IsOccupied())
}

func TestClose_DiscardsLateResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wf, err := f.o.Select(ctx, alice, 1)
	require.NoError(t, err)
	stale := wf

	f.o.Close(alice.UserID)
	_, ok := f.o.advance(alice.UserID, stale.generation, func(w *Workflow) { w.Stage = StageConfirmModification })
	assert.False(t, ok)
	_, err = f.o.Workflow(alice.UserID)
	assert.ErrorIs(t, err, ErrNoWorkflow)

	// A newer workflow is not touched by the old generation either.
	_, err = f.o.Select(ctx, alice, 2)
	require.NoError(t, err)
	_, ok = f.o.advance(alice.UserID, stale.generation, func(w *Workflow) { w.Stage = StageConfirmModification })
	assert.False(t, ok)
	cur, err := f.o.Workflow(alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, StageEditor, cur.Stage)
	assert.Equal(t, int64(2), cur.ChairID)

	_, err = f.o.Submit(ctx, Actor{UserID: "nobody"}, Submission{Slot: slot(time.Hour, 2*time.Hour)})
	assert.True(t, errors.Is(err, ErrNoWorkflow))
}

func TestBoard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.repo.Create(ctx, model.Reservation{ChairID: 1, UserID: "bob", StartAt: t0.Add(-time.Minute), EndAt: t0.Add(time.Hour)})
	require.NoError(t, err)
	_, err = f.o.CheckIn(ctx, alice, 1, "")
	require.ErrorIs(t, err, ErrInvalidCredential)
	_, err = f.o.CheckIn(ctx, bob, 1, "")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, err = f.repo.Create(ctx, model.Reservation{ChairID: 2, UserID: "alice", StartAt: t0.Add(time.Duration(i) * time.Hour), EndAt: t0.Add(time.Duration(i)*time.Hour + 30*time.Minute)})
		require.NoError(t, err)
	}

	b := f.o.Board(alice, 3)
	require.Len(t, b.Chairs, 3)
	assert.Equal(t, status.Occupied, b.Chairs[0].Status)
	assert.NotNil(t, b.Chairs[0].Since)
	assert.False(t, b.Chairs[0].OccupiedBy)

	assert.Equal(t, status.ReservedByCurrentUser, b.Chairs[1].Status)
	assert.Len(t, b.Chairs[1].Upcoming, 2, "cards show at most two reservations")
	require.NotNil(t, b.Chairs[1].Mine)
	assert.Equal(t, t0.Add(time.Hour), b.Chairs[1].Mine.StartAt)

	assert.Equal(t, status.SelectedInUI, b.Chairs[2].Status)

	gb := f.o.Board(guest, 0)
	assert.Equal(t, status.Free, gb.Chairs[1].Status)
	assert.Nil(t, gb.Chairs[1].Mine)
	assert.Equal(t, status.Free, gb.Chairs[2].Status)
}

func TestAvailabilityAndFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.o.CreateReservations(ctx, alice, Submission{ChairIDs: []int64{1}, Slot: slot(0, time.Hour)})
	require.NoError(t, err)

	ok, blocking, err := f.o.Availability(1, slot(time.Hour, 2*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, blocking)

	ok, blocking, err = f.o.Availability(1, slot(59*time.Minute, 2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotNil(t, blocking)

	_, _, err = f.o.Availability(42, slot(0, time.Hour))
	assert.ErrorIs(t, err, session.ErrUnknownChair)

	_, err = f.o.Fee(1)
	assert.ErrorIs(t, err, session.ErrNotOccupied)
}

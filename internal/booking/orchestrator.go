package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"chair-reservation-backend/internal/clock"
	"chair-reservation-backend/internal/events"
	"chair-reservation-backend/internal/interval"
	"chair-reservation-backend/internal/model"
	"chair-reservation-backend/internal/payment"
	"chair-reservation-backend/internal/reservation"
	"chair-reservation-backend/internal/session"
	"chair-reservation-backend/internal/store"
)

// Actor is the signed-in user performing an action.
type Actor struct {
	UserID  string
	Name    string
	IsGuest bool
}

// CredentialVerifier checks a secret against a registered account.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, userID, secret string) (bool, error)
}

// EventPublisher emits booking events. Optional.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// ChairFreedNotifier is told when a chair returns to Free. Optional.
type ChairFreedNotifier interface {
	Dispatch(chairID int64)
}

// Options are the booking rules.
type Options struct {
	AdvanceBooking time.Duration
	CardLimit      int
	Currency       string
}

// Orchestrator runs the guarded booking actions on top of the reservation
// repository and the session machine. Writes are serialized by mu; open
// workflows are guarded separately by wfMu so closing a dialog never waits on
// an in-flight write.
type Orchestrator struct {
	mu           sync.Mutex
	reservations *reservation.Repository
	sessions     *session.Machine
	verifier     CredentialVerifier
	gateway      payment.Gateway
	clock        clock.Clock
	opts         Options

	events   EventPublisher
	notifier ChairFreedNotifier

	wfMu        sync.Mutex
	workflows   map[string]*Workflow
	generations map[string]uint64
}

// New creates an orchestrator.
func New(reservations *reservation.Repository, sessions *session.Machine, verifier CredentialVerifier,
	gateway payment.Gateway, c clock.Clock, opts Options) *Orchestrator {
	if opts.AdvanceBooking <= 0 {
		opts.AdvanceBooking = 6 * time.Hour
	}
	if opts.CardLimit <= 0 {
		opts.CardLimit = 2
	}
	return &Orchestrator{
		reservations: reservations,
		sessions:     sessions,
		verifier:     verifier,
		gateway:      gateway,
		clock:        c,
		opts:         opts,
		workflows:    make(map[string]*Workflow),
		generations:  make(map[string]uint64),
	}
}

// WithEvents sets the event publisher.
func (o *Orchestrator) WithEvents(p EventPublisher) *Orchestrator {
	o.events = p
	return o
}

// WithNotifier sets the chair-freed notifier.
func (o *Orchestrator) WithNotifier(n ChairFreedNotifier) *Orchestrator {
	o.notifier = n
	return o
}

// Facts observes the decision inputs for actor on chairID right now.
func (o *Orchestrator) Facts(actor Actor, chairID int64) (Facts, session.Chair, error) {
	ch, ok := o.sessions.Chair(chairID)
	if !ok {
		return Facts{}, session.Chair{}, fmt.Errorf("chair %d: %w", chairID, session.ErrUnknownChair)
	}
	now := o.clock.Now()
	_, live := o.reservations.Current(chairID, now)
	own := false
	if !actor.IsGuest {
		_, own = o.reservations.ForUser(chairID, actor.UserID)
	}
	return Facts{
		IsGuest:        actor.IsGuest,
		OccupiedBySelf: ch.OccupiedBy(actor.UserID),
		Occupied:       ch.IsOccupied(),
		HasLive:        live,
		HasOwn:         own,
	}, ch, nil
}

// Select opens the actor's workflow on chairID at the stage the current
// facts call for, replacing any workflow the actor had open.
func (o *Orchestrator) Select(ctx context.Context, actor Actor, chairID int64) (Workflow, error) {
	facts, ch, err := o.Facts(actor, chairID)
	if err != nil {
		return Workflow{}, err
	}
	now := o.clock.Now()
	wf := &Workflow{
		UserID:   actor.UserID,
		ChairID:  chairID,
		Action:   Decide(facts),
		OpenedAt: now,
	}

	switch wf.Action {
	case ActionCheckOut:
		q, err := o.sessions.Quote(chairID)
		if err != nil {
			return Workflow{}, err
		}
		wf.Stage = StageCheckOutConfirmation
		wf.Quote = &q
	case ActionGuestCheckInWithCredential:
		wf.Stage = StageGuestCheckIn
	case ActionDirectCheckIn:
		wf.Stage = StageDirectCheckIn
	case ActionModifyReservation:
		existing, ok := o.reservations.ForUser(chairID, actor.UserID)
		if !ok {
			return Workflow{}, fmt.Errorf("reservation for chair %d: %w", chairID, store.ErrNotFound)
		}
		iv := existing.Interval()
		wf.Stage = StageEditor
		wf.Path = &Path{Kind: PathModify, ReplacedID: existing.ID}
		wf.Existing = &existing
		wf.Suggested = &iv
	case ActionCreateReservation:
		iv := suggestedSlot(now, ch.IsOccupied(), o.opts.AdvanceBooking)
		wf.Stage = StageEditor
		wf.Path = &Path{Kind: PathCreate}
		wf.Suggested = &iv
	default:
		return Workflow{}, fmt.Errorf("chair %d: %w", chairID, ErrUnavailable)
	}

	return o.open(wf), nil
}

// Workflow returns the actor's open workflow.
func (o *Orchestrator) Workflow(userID string) (Workflow, error) {
	o.wfMu.Lock()
	defer o.wfMu.Unlock()
	wf, ok := o.workflows[userID]
	if !ok {
		return Workflow{}, ErrNoWorkflow
	}
	return wf.clone(), nil
}

// Close dismisses the actor's workflow. Results of actions still in flight
// are discarded when they arrive; their writes still land.
func (o *Orchestrator) Close(userID string) {
	o.wfMu.Lock()
	defer o.wfMu.Unlock()
	delete(o.workflows, userID)
	o.generations[userID]++
}

// SubmitResult is the outcome of an editor submission.
type SubmitResult struct {
	Workflow *Workflow           `json:"workflow,omitempty"`
	Created  []model.Reservation `json:"created,omitempty"`
}

// Submit validates an editor submission. A create path books immediately and
// closes the workflow; a modify path moves to the confirmation stage without
// touching stored reservations.
func (o *Orchestrator) Submit(ctx context.Context, actor Actor, sub Submission) (SubmitResult, error) {
	wf, err := o.expect(actor.UserID, StageEditor)
	if err != nil {
		return SubmitResult{}, err
	}
	if len(sub.ChairIDs) == 0 {
		sub.ChairIDs = []int64{wf.ChairID}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if wf.Path == nil || wf.Path.Kind == PathCreate {
		created, err := o.createLocked(ctx, actor, sub)
		if err != nil {
			return SubmitResult{}, err
		}
		o.finish(actor.UserID, wf.generation)
		return SubmitResult{Created: created}, nil
	}

	before, ok := o.reservations.Get(wf.Path.ReplacedID)
	if !ok {
		return SubmitResult{}, fmt.Errorf("reservation %s: %w", wf.Path.ReplacedID, store.ErrNotFound)
	}
	sub.ChairIDs = dedupe(sub.ChairIDs)
	if err := o.validateLocked(sub, before.ID); err != nil {
		return SubmitResult{}, err
	}
	pending := &PendingModification{
		Before:    before,
		After:     sub.Slot,
		ChairIDs:  sub.ChairIDs,
		PartySize: partySize(sub),
	}
	next, ok := o.advance(actor.UserID, wf.generation, func(w *Workflow) {
		w.Stage = StageConfirmModification
		w.Pending = pending
	})
	if !ok {
		return SubmitResult{}, ErrNoWorkflow
	}
	return SubmitResult{Workflow: &next}, nil
}

// ConfirmModification re-validates the pending change, then cancels the
// replaced reservation and creates the new one.
func (o *Orchestrator) ConfirmModification(ctx context.Context, actor Actor) (SubmitResult, error) {
	wf, err := o.expect(actor.UserID, StageConfirmModification)
	if err != nil {
		return SubmitResult{}, err
	}
	p := wf.Pending
	sub := Submission{ChairIDs: p.ChairIDs, Slot: p.After, PartySize: p.PartySize}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.reservations.Get(p.Before.ID); !ok {
		return SubmitResult{}, fmt.Errorf("reservation %s: %w", p.Before.ID, store.ErrNotFound)
	}
	if err := o.validateLocked(sub, p.Before.ID); err != nil {
		return SubmitResult{}, err
	}
	if err := o.reservations.Cancel(ctx, p.Before.ID); err != nil {
		return SubmitResult{}, err
	}
	o.publish(ctx, events.RKReservationCancelled, reservationEvent(p.Before))

	created, err := o.insertLocked(ctx, actor, sub)
	if err != nil {
		log.Printf("modification of %s: replaced reservation cancelled but create failed: %v", p.Before.ID, err)
		return SubmitResult{}, err
	}
	o.finish(actor.UserID, wf.generation)
	return SubmitResult{Created: created}, nil
}

// DeclineModification returns to the editor, keeping the proposed slot as the
// prefill. Nothing stored changes.
func (o *Orchestrator) DeclineModification(actor Actor) (Workflow, error) {
	wf, err := o.expect(actor.UserID, StageConfirmModification)
	if err != nil {
		return Workflow{}, err
	}
	after := wf.Pending.After
	next, ok := o.advance(actor.UserID, wf.generation, func(w *Workflow) {
		w.Stage = StageEditor
		w.Pending = nil
		w.Suggested = &after
	})
	if !ok {
		return Workflow{}, ErrNoWorkflow
	}
	return next, nil
}

// CreateReservations books one slot on every chair of the batch, or nothing.
func (o *Orchestrator) CreateReservations(ctx context.Context, actor Actor, sub Submission) ([]model.Reservation, error) {
	if actor.IsGuest {
		return nil, ErrUnavailable
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.createLocked(ctx, actor, sub)
}

// CheckIn occupies chairID for actor. When a reservation covers now and is
// held by someone else, credential must verify against the holder's account.
func (o *Orchestrator) CheckIn(ctx context.Context, actor Actor, chairID int64, credential string) (session.Chair, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch, ok := o.sessions.Chair(chairID)
	if !ok {
		return session.Chair{}, fmt.Errorf("chair %d: %w", chairID, session.ErrUnknownChair)
	}
	if ch.IsOccupied() {
		log.Printf("check-in on occupied chair %d by %s", chairID, actor.UserID)
		return ch, fmt.Errorf("chair %d: %w", chairID, session.ErrAlreadyOccupied)
	}

	if live, ok := o.reservations.Current(chairID, o.clock.Now()); ok && live.UserID != actor.UserID {
		verified, err := o.verifier.VerifyCredential(ctx, live.UserID, credential)
		if err != nil {
			return ch, err
		}
		if !verified {
			return ch, ErrInvalidCredential
		}
	}

	ch, err := o.sessions.CheckIn(ctx, chairID, actor.UserID)
	if err != nil {
		return ch, err
	}
	o.publish(ctx, events.RKSessionCheckedIn, events.SessionEvent{
		ChairID: chairID,
		UserID:  actor.UserID,
		At:      ch.Occupancy.StartedAt.Unix(),
	})
	o.finishOn(actor.UserID, chairID)
	return ch, nil
}

// ProceedToPayment confirms check-out and refreshes the fee preview.
func (o *Orchestrator) ProceedToPayment(actor Actor) (Workflow, error) {
	wf, err := o.expect(actor.UserID, StageCheckOutConfirmation)
	if err != nil {
		return Workflow{}, err
	}
	q, err := o.sessions.Quote(wf.ChairID)
	if err != nil {
		return Workflow{}, err
	}
	next, ok := o.advance(actor.UserID, wf.generation, func(w *Workflow) {
		w.Stage = StagePayment
		w.Quote = &q
	})
	if !ok {
		return Workflow{}, ErrNoWorkflow
	}
	return next, nil
}

// Completion is a paid and closed session.
type Completion struct {
	Workflow *Workflow       `json:"workflow,omitempty"`
	Receipt  session.Receipt `json:"receipt"`
	Capture  payment.Capture `json:"capture"`
}

// Pay captures the fee and, only on success, checks the actor out.
func (o *Orchestrator) Pay(ctx context.Context, actor Actor, method payment.Method) (Completion, error) {
	wf, err := o.expect(actor.UserID, StagePayment)
	if err != nil {
		return Completion{}, err
	}

	o.mu.Lock()
	c, err := o.settleLocked(ctx, actor, wf.ChairID, method)
	o.mu.Unlock()
	if err != nil {
		return Completion{}, err
	}

	rcpt, capture := c.Receipt, c.Capture
	if next, ok := o.advance(actor.UserID, wf.generation, func(w *Workflow) {
		w.Stage = StageCompleted
		w.Receipt = &rcpt
		w.Capture = &capture
	}); ok {
		c.Workflow = &next
	}
	return c, nil
}

// Acknowledge closes a completed workflow.
func (o *Orchestrator) Acknowledge(actor Actor) error {
	wf, err := o.expect(actor.UserID, StageCompleted)
	if err != nil {
		return err
	}
	o.finish(actor.UserID, wf.generation)
	return nil
}

// CheckOutAndPay runs confirmation, payment and check-out in one call.
func (o *Orchestrator) CheckOutAndPay(ctx context.Context, actor Actor, chairID int64, method payment.Method) (Completion, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, err := o.settleLocked(ctx, actor, chairID, method)
	if err != nil {
		return Completion{}, err
	}
	o.finishOn(actor.UserID, chairID)
	return c, nil
}

// CancelReservation removes one of the actor's reservations and closes any
// workflow editing it.
func (o *Orchestrator) CancelReservation(ctx context.Context, actor Actor, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	res, ok := o.reservations.Get(id)
	if !ok {
		return fmt.Errorf("reservation %s: %w", id, store.ErrNotFound)
	}
	if res.UserID != actor.UserID {
		return ErrNotOwner
	}
	if err := o.reservations.Cancel(ctx, id); err != nil {
		return err
	}

	o.wfMu.Lock()
	for userID, wf := range o.workflows {
		if wf.references(id) {
			delete(o.workflows, userID)
			o.generations[userID]++
		}
	}
	o.wfMu.Unlock()

	o.publish(ctx, events.RKReservationCancelled, reservationEvent(res))
	return nil
}

// Reservations lists a chair's upcoming reservations.
func (o *Orchestrator) Reservations(chairID int64) ([]model.Reservation, error) {
	if _, ok := o.sessions.Chair(chairID); !ok {
		return nil, fmt.Errorf("chair %d: %w", chairID, session.ErrUnknownChair)
	}
	return o.reservations.List(chairID), nil
}

// Availability reports whether iv is free on chairID and, if not, what blocks it.
func (o *Orchestrator) Availability(chairID int64, iv interval.Interval) (bool, *model.Reservation, error) {
	if _, ok := o.sessions.Chair(chairID); !ok {
		return false, nil, fmt.Errorf("chair %d: %w", chairID, session.ErrUnknownChair)
	}
	if res, found := o.reservations.Conflict(chairID, iv, ""); found {
		return false, &res, nil
	}
	return true, nil, nil
}

// Fee previews the running session's fee on chairID.
func (o *Orchestrator) Fee(chairID int64) (session.Receipt, error) {
	return o.sessions.Quote(chairID)
}

func (o *Orchestrator) settleLocked(ctx context.Context, actor Actor, chairID int64, method payment.Method) (Completion, error) {
	ch, ok := o.sessions.Chair(chairID)
	if !ok {
		return Completion{}, fmt.Errorf("chair %d: %w", chairID, session.ErrUnknownChair)
	}
	if !ch.IsOccupied() {
		log.Printf("check-out on free chair %d by %s", chairID, actor.UserID)
		return Completion{}, fmt.Errorf("chair %d: %w", chairID, session.ErrNotOccupied)
	}
	if !ch.OccupiedBy(actor.UserID) {
		return Completion{}, fmt.Errorf("chair %d: %w", chairID, ErrUnavailable)
	}

	q, err := o.sessions.Quote(chairID)
	if err != nil {
		return Completion{}, err
	}
	capture, err := o.gateway.Capture(ctx, payment.Charge{
		ChairID:  chairID,
		UserID:   actor.UserID,
		Amount:   q.Fee,
		Currency: o.opts.Currency,
		Method:   method,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}

	rcpt, err := o.sessions.CheckOutAt(ctx, chairID, q.End)
	if err != nil {
		log.Printf("capture %s taken for chair %d but check-out failed: %v", capture.ID, chairID, err)
		return Completion{}, err
	}

	o.publish(ctx, events.RKSessionCheckedOut, events.SessionEvent{
		ChairID: chairID,
		UserID:  actor.UserID,
		At:      rcpt.End.Unix(),
		Minutes: rcpt.Minutes,
		Fee:     rcpt.Fee,
	})
	if o.notifier != nil {
		o.notifier.Dispatch(chairID)
	}
	return Completion{Receipt: rcpt, Capture: capture}, nil
}

func (o *Orchestrator) validateLocked(sub Submission, excludeID string) error {
	if !sub.Slot.End.After(sub.Slot.Start) {
		return interval.ErrInvalid
	}
	if len(sub.ChairIDs) == 0 {
		return ErrEmptyBatch
	}
	now := o.clock.Now()
	if !sub.Slot.End.After(now) {
		return ErrSlotInPast
	}

	earliest := now.Add(o.opts.AdvanceBooking)
	for _, id := range sub.ChairIDs {
		ch, ok := o.sessions.Chair(id)
		if !ok {
			return fmt.Errorf("chair %d: %w", id, session.ErrUnknownChair)
		}
		if res, found := o.reservations.Conflict(id, sub.Slot, excludeID); found {
			return &SlotConflictError{ChairID: id, Conflicting: res}
		}
		if ch.IsOccupied() && sub.Slot.Start.Before(earliest) {
			return &AdvanceBookingTooSoonError{ChairID: id, EarliestStart: earliest}
		}
	}
	return nil
}

func (o *Orchestrator) createLocked(ctx context.Context, actor Actor, sub Submission) ([]model.Reservation, error) {
	sub.ChairIDs = dedupe(sub.ChairIDs)
	if err := o.validateLocked(sub, ""); err != nil {
		return nil, err
	}
	return o.insertLocked(ctx, actor, sub)
}

// insertLocked creates the batch. If a write fails part-way, the reservations
// already written are cancelled again.
func (o *Orchestrator) insertLocked(ctx context.Context, actor Actor, sub Submission) ([]model.Reservation, error) {
	people := partySize(sub)
	created := make([]model.Reservation, 0, len(sub.ChairIDs))
	for _, id := range sub.ChairIDs {
		res, err := o.reservations.Create(ctx, model.Reservation{
			ChairID:   id,
			UserID:    actor.UserID,
			UserName:  actor.Name,
			StartAt:   sub.Slot.Start,
			EndAt:     sub.Slot.End,
			PartySize: people,
		})
		if err != nil {
			for _, done := range created {
				if cerr := o.reservations.Cancel(ctx, done.ID); cerr != nil && !errors.Is(cerr, store.ErrNotFound) {
					log.Printf("Error undoing reservation %s: %v", done.ID, cerr)
				}
			}
			return nil, err
		}
		created = append(created, res)
	}
	for _, res := range created {
		o.publish(ctx, events.RKReservationCreated, reservationEvent(res))
	}
	return created, nil
}

func (o *Orchestrator) publish(ctx context.Context, key string, v any) {
	if o.events == nil {
		return
	}
	if err := o.events.PublishJSON(ctx, key, v); err != nil {
		log.Printf("Error publishing %s: %v", key, err)
	}
}

// open installs wf as the user's workflow under a new generation.
func (o *Orchestrator) open(wf *Workflow) Workflow {
	o.wfMu.Lock()
	defer o.wfMu.Unlock()
	o.generations[wf.UserID]++
	wf.generation = o.generations[wf.UserID]
	o.workflows[wf.UserID] = wf
	return wf.clone()
}

// expect returns a copy of the user's workflow if it is at stage.
func (o *Orchestrator) expect(userID string, stage Stage) (Workflow, error) {
	wf, err := o.Workflow(userID)
	if err != nil {
		return Workflow{}, err
	}
	if wf.Stage != stage {
		return Workflow{}, fmt.Errorf("%w: at %s, want %s", ErrWrongStage, wf.Stage, stage)
	}
	return wf, nil
}

// advance applies fn if the workflow is still the one of generation gen.
func (o *Orchestrator) advance(userID string, gen uint64, fn func(*Workflow)) (Workflow, bool) {
	o.wfMu.Lock()
	defer o.wfMu.Unlock()
	wf, ok := o.workflows[userID]
	if !ok || wf.generation != gen {
		return Workflow{}, false
	}
	fn(wf)
	return wf.clone(), true
}

// finish removes the workflow of generation gen.
func (o *Orchestrator) finish(userID string, gen uint64) {
	o.wfMu.Lock()
	defer o.wfMu.Unlock()
	if wf, ok := o.workflows[userID]; ok && wf.generation == gen {
		delete(o.workflows, userID)
		o.generations[userID]++
	}
}

// finishOn removes the user's workflow if it is on chairID.
func (o *Orchestrator) finishOn(userID string, chairID int64) {
	o.wfMu.Lock()
	defer o.wfMu.Unlock()
	if wf, ok := o.workflows[userID]; ok && wf.ChairID == chairID {
		delete(o.workflows, userID)
		o.generations[userID]++
	}
}

func (w *Workflow) references(reservationID string) bool {
	if w.Path != nil && w.Path.ReplacedID == reservationID {
		return true
	}
	if w.Existing != nil && w.Existing.ID == reservationID {
		return true
	}
	return w.Pending != nil && w.Pending.Before.ID == reservationID
}

func reservationEvent(r model.Reservation) events.ReservationEvent {
	return events.ReservationEvent{
		ReservationID: r.ID,
		ChairID:       r.ChairID,
		UserID:        r.UserID,
		Start:         r.StartAt.Unix(),
		End:           r.EndAt.Unix(),
		PartySize:     r.PartySize,
	}
}

func partySize(sub Submission) int {
	if sub.PartySize > 0 {
		return sub.PartySize
	}
	return len(sub.ChairIDs)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

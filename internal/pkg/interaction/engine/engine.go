package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/gateway/port"
	"go-parley/internal/pkg/interaction/projection"
)

// Phase labels where a mutation's outcome landed.
type Phase string

const (
	// PhaseApplied: the prediction is in the cache, the remote call has not
	// settled. Callers only observe this phase through the cache itself.
	PhaseApplied Phase = "applied"
	// PhaseConfirmed: the gateway accepted the mutation; the cache holds the
	// authoritative record and the affected entries are marked for refetch.
	PhaseConfirmed Phase = "confirmed"
	// PhaseRolledBack: the gateway call failed; every affected entry was
	// restored to its pre-apply snapshot.
	PhaseRolledBack Phase = "rolled_back"
)

// Outcome is the explicit result of one mutation, reported after settle.
type Outcome struct {
	Phase     Phase
	Predicted *interaction.Interaction
	Actual    *interaction.Interaction
}

// ErrMutationInFlight rejects a second mutation on a record whose first
// mutation has not settled yet. Without this guard the second snapshot would
// capture the first's optimistic state and a rollback would clobber it.
var ErrMutationInFlight = errors.New("engine: mutation already in flight for record")

// Engine orchestrates every state-changing operation against the shared
// projection store: snapshot, optimistic apply, remote call, rollback on
// failure, invalidate on settle. It is bound to one acting party and safe for
// concurrent use. The store must only ever be written through this engine.
type Engine struct {
	actorID string
	store   *projection.Store
	gw      port.Gateway
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New constructs an engine for the given actor over an injected store and
// gateway.
func New(actorID string, store *projection.Store, gw port.Gateway) *Engine {
	return &Engine{
		actorID:  actorID,
		store:    store,
		gw:       gw,
		now:      func() time.Time { return time.Now().UTC() },
		inflight: make(map[string]struct{}),
	}
}

// WithClock overrides the engine's clock. Intended for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Store exposes the projection store for read accessors (view composition).
func (e *Engine) Store() *projection.Store { return e.store }

// ActorID returns the identity of the acting party.
func (e *Engine) ActorID() string { return e.actorID }

// List is the read-through accessor for one {kind, perspective} listing. A
// fresh cache entry is served directly; a missing or stale one triggers a
// gateway fetch. Hidden records are always fetched and kept in the cache so
// the show-hidden toggle is purely local (see the view package).
func (e *Engine) List(ctx context.Context, kind interaction.Kind, perspective interaction.Perspective) ([]interaction.Interaction, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", interaction.ErrValidation, string(kind))
	}
	if !perspective.Valid() {
		return nil, fmt.Errorf("%w: unknown perspective %q", interaction.ErrValidation, string(perspective))
	}
	key := projection.Key{Kind: kind, Perspective: perspective}
	if records, ok := e.store.Get(key); ok {
		return records, nil
	}
	records, err := e.gw.ListByPerspective(ctx, e.actorID, kind, perspective, true)
	if err != nil {
		return nil, transportErr(err)
	}
	e.store.Put(key, records)
	return records, nil
}

// Create sends a new record through the gateway and, on success, prepends the
// authoritative result to the actor's "sent" listing. There is no optimistic
// phase: the id does not exist until the gateway assigns it.
func (e *Engine) Create(ctx context.Context, rec interaction.Interaction) (Outcome, error) {
	rec.InitiatorID = e.actorID
	validated, err := interaction.NewInteraction(rec)
	if err != nil {
		return Outcome{}, err
	}
	actual, err := e.gw.Create(ctx, *validated)
	if err != nil {
		return Outcome{Phase: PhaseRolledBack}, transportErr(err)
	}
	sent := projection.Key{Kind: actual.Kind, Perspective: interaction.PerspectiveSent}
	e.store.Insert(sent, actual)
	e.store.MarkStale(sent)
	return Outcome{Phase: PhaseConfirmed, Actual: actual}, nil
}

// Respond applies an accept or reject decision to a record the actor received.
// The optional note becomes the rejection reason or the acceptance note.
func (e *Engine) Respond(ctx context.Context, kind interaction.Kind, id string, decision interaction.Status, note *string) (Outcome, error) {
	if decision != interaction.StatusAccepted && decision != interaction.StatusRejected {
		return Outcome{}, fmt.Errorf("%w: decision must be accepted or rejected, got %q", interaction.ErrValidation, string(decision))
	}
	rec, err := e.cached(kind, id)
	if err != nil {
		return Outcome{}, err
	}
	action := interaction.ActionAccept
	if decision == interaction.StatusRejected {
		action = interaction.ActionReject
	}
	predicted, err := interaction.Transition(rec, action, e.actorID, e.now())
	if err != nil {
		return Outcome{}, err
	}
	if note != nil {
		if decision == interaction.StatusRejected {
			predicted.RejectionReason = note
		} else {
			predicted.AcceptanceNote = note
		}
	}
	return e.mutate(ctx, kind, []string{id}, []*interaction.Interaction{predicted}, func(ctx context.Context) (*interaction.Interaction, error) {
		return e.gw.Respond(ctx, e.actorID, id, decision, note)
	})
}

// Withdraw retires a record the actor initiated.
func (e *Engine) Withdraw(ctx context.Context, kind interaction.Kind, id string) (Outcome, error) {
	rec, err := e.cached(kind, id)
	if err != nil {
		return Outcome{}, err
	}
	predicted, err := interaction.Transition(rec, interaction.ActionWithdraw, e.actorID, e.now())
	if err != nil {
		return Outcome{}, err
	}
	return e.mutate(ctx, kind, []string{id}, []*interaction.Interaction{predicted}, func(ctx context.Context) (*interaction.Interaction, error) {
		return e.gw.Withdraw(ctx, e.actorID, id)
	})
}

// MarkViewed moves a pending record to viewed on first read. Records already
// past pending settle locally as a no-op.
func (e *Engine) MarkViewed(ctx context.Context, kind interaction.Kind, id string) (Outcome, error) {
	rec, err := e.cached(kind, id)
	if err != nil {
		return Outcome{}, err
	}
	if rec.Status != interaction.StatusPending {
		return Outcome{Phase: PhaseConfirmed, Actual: rec}, nil
	}
	predicted, err := interaction.Transition(rec, interaction.ActionView, e.actorID, e.now())
	if err != nil {
		return Outcome{}, err
	}
	return e.mutate(ctx, kind, []string{id}, []*interaction.Interaction{predicted}, func(ctx context.Context) (*interaction.Interaction, error) {
		return e.gw.MarkViewed(ctx, e.actorID, id)
	})
}

// SetHidden flips the actor's hidden flag on every record in the batch. The
// flip is all-or-nothing: the guard is taken for the whole batch up front and
// a transport failure rolls every record back together. Setting a flag to its
// current value is a no-op for that record, never an error.
func (e *Engine) SetHidden(ctx context.Context, kind interaction.Kind, ids []string, role interaction.Role, hidden bool) (Outcome, error) {
	if len(ids) == 0 {
		return Outcome{}, fmt.Errorf("%w: empty id batch", interaction.ErrValidation)
	}
	predicted := make([]*interaction.Interaction, 0, len(ids))
	for _, id := range ids {
		rec, err := e.cached(kind, id)
		if err != nil {
			return Outcome{}, err
		}
		if got, ok := rec.RoleFor(e.actorID); !ok || got != role {
			return Outcome{}, fmt.Errorf("%w: actor %s does not hold role %s on record %s", interaction.ErrStaleState, e.actorID, role, id)
		}
		next := rec.Clone()
		next.SetHiddenBy(role, hidden)
		predicted = append(predicted, next)
	}
	return e.mutate(ctx, kind, ids, predicted, func(ctx context.Context) (*interaction.Interaction, error) {
		return nil, e.gw.SetHidden(ctx, e.actorID, kind, ids, role, hidden)
	})
}

// Ask appends a question to an invitation's thread, optimistically first.
func (e *Engine) Ask(ctx context.Context, id, question string) (Outcome, error) {
	rec, err := e.cached(interaction.KindInvitation, id)
	if err != nil {
		return Outcome{}, err
	}
	predicted, err := interaction.AskQuestion(rec, question, e.now())
	if err != nil {
		return Outcome{}, err
	}
	return e.mutate(ctx, interaction.KindInvitation, []string{id}, []*interaction.Interaction{predicted}, func(ctx context.Context) (*interaction.Interaction, error) {
		return e.gw.Ask(ctx, e.actorID, id, question)
	})
}

// Answer records an answer on the thread entry keyed by askedAt. The
// authoritative answered-at timestamp is reconciled by the settle refetch.
func (e *Engine) Answer(ctx context.Context, id string, askedAt time.Time, answer string) (Outcome, error) {
	rec, err := e.cached(interaction.KindInvitation, id)
	if err != nil {
		return Outcome{}, err
	}
	predicted, err := interaction.AnswerQuestion(rec, askedAt, answer, e.now())
	if err != nil {
		return Outcome{}, err
	}
	return e.mutate(ctx, interaction.KindInvitation, []string{id}, []*interaction.Interaction{predicted}, func(ctx context.Context) (*interaction.Interaction, error) {
		return e.gw.Answer(ctx, e.actorID, id, askedAt, answer)
	})
}

// Invalidate marks both perspective entries of a kind stale, forcing the next
// read through the gateway. Wired to server-pushed change events.
func (e *Engine) Invalidate(kind interaction.Kind) {
	e.store.MarkStale(projection.KeysFor(kind)...)
}

// mutate runs the shared three-phase protocol: snapshot both perspective
// entries, write the predictions, invoke the gateway, restore on failure, and
// mark the entries stale on settle either way so the next read reconciles
// with the authoritative store.
func (e *Engine) mutate(ctx context.Context, kind interaction.Kind, ids []string, predicted []*interaction.Interaction, call func(context.Context) (*interaction.Interaction, error)) (Outcome, error) {
	if err := e.acquire(ids); err != nil {
		return Outcome{}, err
	}
	defer e.release(ids)

	keys := projection.KeysFor(kind)
	snap := e.store.Snapshot(keys...)

	for _, rec := range predicted {
		for _, key := range keys {
			e.store.Update(key, rec)
		}
	}

	actual, err := call(ctx)

	if err != nil {
		e.store.Restore(snap)
		e.store.MarkStale(keys...)
		out := Outcome{Phase: PhaseRolledBack}
		if len(predicted) == 1 {
			out.Predicted = predicted[0]
		}
		return out, transportErr(err)
	}

	if actual != nil {
		for _, key := range keys {
			e.store.Update(key, actual)
		}
	}
	e.store.MarkStale(keys...)

	out := Outcome{Phase: PhaseConfirmed, Actual: actual}
	if len(predicted) == 1 {
		out.Predicted = predicted[0]
	}
	return out, nil
}

// cached resolves the actor's current view of a record. Mutations operate on
// listed records only; an id the cache has never seen is treated as stale.
func (e *Engine) cached(kind interaction.Kind, id string) (*interaction.Interaction, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: record id is required", interaction.ErrValidation)
	}
	rec, ok := e.store.Find(kind, id)
	if !ok {
		return nil, fmt.Errorf("%w: record %s is not in the local projection", interaction.ErrStaleState, id)
	}
	return rec, nil
}

func (e *Engine) acquire(ids []string) error {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range sorted {
		if _, busy := e.inflight[id]; busy {
			return fmt.Errorf("%w: %s", ErrMutationInFlight, id)
		}
	}
	for _, id := range sorted {
		e.inflight[id] = struct{}{}
	}
	return nil
}

func (e *Engine) release(ids []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		delete(e.inflight, id)
	}
}

// transportErr labels gateway failures retryable. Errors that already carry a
// domain or port sentinel pass through so callers can branch on them.
func transportErr(err error) error {
	switch {
	case errors.Is(err, interaction.ErrStaleState),
		errors.Is(err, interaction.ErrValidation),
		errors.Is(err, port.ErrNotFound),
		errors.Is(err, port.ErrForbidden):
		return err
	}
	return fmt.Errorf("%w: %v", interaction.ErrTransport, err)
}

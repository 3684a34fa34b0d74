package port

import (
	"context"
	"errors"
	"time"

	interaction "go-parley/internal/pkg/interaction/domain"
)

// Gateway is the only component allowed to durably mutate or fetch interaction
// records. The client engine holds one behind this port; the reference server
// implements it over Postgres. Implementations must be safe for concurrent use
// and honor context cancellation on every call.
//
// The server is the final arbiter of every transition: implementations must
// re-validate lifecycle and ownership, not trust the caller's local checks.
type Gateway interface {
	// ListByPerspective returns the records actorID sees from the given
	// viewpoint, newest-relevant first. Records are returned in every
	// status, terminal ones included, so they stay addressable for hiding
	// and audit; excluding withdrawn and cancelled from default listings is
	// presentation's job. When includeHidden is false, records hidden by the
	// actor's own role are skipped; the other party's hidden flag never
	// matters.
	ListByPerspective(ctx context.Context, actorID string, kind interaction.Kind, perspective interaction.Perspective, includeHidden bool) ([]interaction.Interaction, error)

	// Create persists a new pending record and returns it with the assigned id.
	Create(ctx context.Context, rec interaction.Interaction) (*interaction.Interaction, error)

	// Respond applies an accept or reject decision on behalf of actorID.
	// The optional note is recorded as the rejection reason or acceptance note.
	Respond(ctx context.Context, actorID, id string, decision interaction.Status, note *string) (*interaction.Interaction, error)

	// Withdraw retires a record on behalf of its initiator.
	Withdraw(ctx context.Context, actorID, id string) (*interaction.Interaction, error)

	// SetHidden flips the hidden flag owned by role for every id in the batch.
	// The batch is applied atomically: all ids or none.
	SetHidden(ctx context.Context, actorID string, kind interaction.Kind, ids []string, role interaction.Role, hidden bool) error

	// Ask appends a question to an invitation's thread.
	Ask(ctx context.Context, actorID, id, question string) (*interaction.Interaction, error)

	// Answer records an answer on the thread entry keyed by askedAt.
	Answer(ctx context.Context, actorID, id string, askedAt time.Time, answer string) (*interaction.Interaction, error)

	// MarkViewed moves a pending record to viewed on first read. Calling it on
	// a record that already left pending is a no-op, not an error.
	MarkViewed(ctx context.Context, actorID, id string) (*interaction.Interaction, error)
}

var (
	// ErrNotFound means no record matches the id for this actor.
	ErrNotFound = errors.New("gateway: record not found")

	// ErrForbidden means the record exists but the actor does not own the
	// attempted operation.
	ErrForbidden = errors.New("gateway: operation not permitted for actor")
)

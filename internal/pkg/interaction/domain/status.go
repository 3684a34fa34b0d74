package interaction

import "time"

// Status is the lifecycle position of an interaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusViewed    Status = "viewed"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusWithdrawn Status = "withdrawn"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is permitted. Terminal
// records stay immutable except for the per-party hidden flags.
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusExpired, StatusWithdrawn, StatusCancelled:
		return true
	}
	return false
}

// ValidFor reports whether the status exists in the given kind's lifecycle.
// Talk requests skip the viewed checkpoint and are never cancelled; cancelled
// itself is only ever assigned by the authoritative store, never by a client
// transition.
func (s Status) ValidFor(kind Kind) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusExpired, StatusWithdrawn:
		return true
	case StatusViewed, StatusCancelled:
		return kind != KindTalkRequest
	}
	return false
}

// Action is a client-initiated lifecycle transition.
type Action string

const (
	ActionView     Action = "view"
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionWithdraw Action = "withdraw"
)

// Transition validates the action against the record's current status and the
// actor's role, then returns a clone carrying the predicted post-action state.
// Accept/reject belong to the counterparty, withdraw to the initiator, and
// either party may mark a pending record viewed on first read.
//
// A rejection here is always local; the authoritative store remains the final
// arbiter and re-validates on its side.
func Transition(rec *Interaction, action Action, actorID string, now time.Time) (*Interaction, error) {
	role, ok := rec.RoleFor(actorID)
	if !ok {
		return nil, wrapStale("actor %s is not a party to record %s", actorID, rec.ID)
	}
	if rec.Status.Terminal() {
		return nil, wrapStale("record %s is already %s", rec.ID, rec.Status)
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	next := rec.Clone()
	switch action {
	case ActionView:
		if rec.Kind == KindTalkRequest {
			return nil, wrapStale("talk requests have no viewed state")
		}
		if rec.Status != StatusPending {
			return nil, wrapStale("record %s is %s, not pending", rec.ID, rec.Status)
		}
		next.Status = StatusViewed
		ts := now
		next.ViewedAt = &ts

	case ActionAccept, ActionReject:
		if role != RoleCounterparty {
			return nil, wrapStale("only the counterparty may respond to record %s", rec.ID)
		}
		if !respondable(rec.Kind, rec.Status) {
			return nil, wrapStale("record %s is %s and cannot be responded to", rec.ID, rec.Status)
		}
		if action == ActionAccept {
			next.Status = StatusAccepted
		} else {
			next.Status = StatusRejected
		}
		ts := now
		next.RespondedAt = &ts

	case ActionWithdraw:
		if role != RoleInitiator {
			return nil, wrapStale("only the initiator may withdraw record %s", rec.ID)
		}
		next.Status = StatusWithdrawn

	default:
		return nil, wrapValidation("unknown action %q", string(action))
	}
	return next, nil
}

// respondable mirrors the lifecycle tables: invitations and applications must
// pass through viewed before a response; talk requests respond straight from
// pending.
func respondable(kind Kind, s Status) bool {
	if kind == KindTalkRequest {
		return s == StatusPending
	}
	return s == StatusViewed
}

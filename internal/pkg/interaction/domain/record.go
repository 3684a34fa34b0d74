package interaction

import (
	"strings"
	"time"
)

// Kind tags the three interaction flavours sharing the same record shape.
type Kind string

const (
	KindInvitation  Kind = "invitation"
	KindApplication Kind = "application"
	KindTalkRequest Kind = "talk_request"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInvitation, KindApplication, KindTalkRequest:
		return true
	}
	return false
}

// Role identifies which side of an interaction a party occupies.
// The initiator sent the record; the counterparty received it.
type Role string

const (
	RoleInitiator    Role = "initiator"
	RoleCounterparty Role = "counterparty"
)

// Perspective is the viewpoint a listing is rendered from.
type Perspective string

const (
	PerspectiveSent     Perspective = "sent"
	PerspectiveReceived Perspective = "received"
)

// Valid reports whether p is "sent" or "received".
func (p Perspective) Valid() bool {
	return p == PerspectiveSent || p == PerspectiveReceived
}

// Interaction is the unified record for invitations, applications and talk
// requests. Kind determines which optional fields are meaningful: TargetID and
// QAThread belong to invitations/applications; talk requests carry neither.
// Perspective is always derived from the acting party, never stored.
type Interaction struct {
	ID             string  `json:"id"`
	Kind           Kind    `json:"kind"`
	InitiatorID    string  `json:"initiator_id"`
	CounterpartyID string  `json:"counterparty_id"`
	TargetID       *string `json:"target_id,omitempty"`
	Status         Status  `json:"status"`
	Message        *string `json:"message,omitempty"`

	IsHiddenByInitiator    bool `json:"is_hidden_by_initiator"`
	IsHiddenByCounterparty bool `json:"is_hidden_by_counterparty"`

	SentAt      time.Time  `json:"sent_at"`
	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`

	RejectionReason *string `json:"rejection_reason,omitempty"`
	AcceptanceNote  *string `json:"acceptance_note,omitempty"`

	QAThread []QAEntry `json:"qa_thread,omitempty"`
}

// PerspectiveFor derives how actorID sees this record, or ("", false) when the
// actor is neither party.
func (in *Interaction) PerspectiveFor(actorID string) (Perspective, bool) {
	switch actorID {
	case "":
		return "", false
	case in.InitiatorID:
		return PerspectiveSent, true
	case in.CounterpartyID:
		return PerspectiveReceived, true
	}
	return "", false
}

// RoleFor derives which side actorID occupies, or ("", false) for strangers.
func (in *Interaction) RoleFor(actorID string) (Role, bool) {
	switch actorID {
	case "":
		return "", false
	case in.InitiatorID:
		return RoleInitiator, true
	case in.CounterpartyID:
		return RoleCounterparty, true
	}
	return "", false
}

// HiddenBy reports the hidden flag owned by the given role.
func (in *Interaction) HiddenBy(role Role) bool {
	if role == RoleInitiator {
		return in.IsHiddenByInitiator
	}
	return in.IsHiddenByCounterparty
}

// SetHiddenBy flips the hidden flag owned by the given role. The two flags are
// orthogonal: one party hiding a record never affects the other party's view.
func (in *Interaction) SetHiddenBy(role Role, hidden bool) {
	if role == RoleInitiator {
		in.IsHiddenByInitiator = hidden
		return
	}
	in.IsHiddenByCounterparty = hidden
}

// RelevantAt is the most recent lifecycle timestamp, used for listing order.
func (in *Interaction) RelevantAt() time.Time {
	ts := in.SentAt
	if in.ViewedAt != nil && in.ViewedAt.After(ts) {
		ts = *in.ViewedAt
	}
	if in.RespondedAt != nil && in.RespondedAt.After(ts) {
		ts = *in.RespondedAt
	}
	return ts
}

// Clone returns a deep copy. The projection cache hands out and snapshots
// clones only, so rollback restores are never aliased by callers.
func (in *Interaction) Clone() *Interaction {
	if in == nil {
		return nil
	}
	out := *in
	out.TargetID = cloneStr(in.TargetID)
	out.Message = cloneStr(in.Message)
	out.ViewedAt = cloneTime(in.ViewedAt)
	out.RespondedAt = cloneTime(in.RespondedAt)
	out.ExpiresAt = cloneTime(in.ExpiresAt)
	out.RejectionReason = cloneStr(in.RejectionReason)
	out.AcceptanceNote = cloneStr(in.AcceptanceNote)
	if in.QAThread != nil {
		out.QAThread = make([]QAEntry, len(in.QAThread))
		for i := range in.QAThread {
			out.QAThread[i] = in.QAThread[i].clone()
		}
	}
	return &out
}

// NewInteraction validates and normalizes a record about to be created.
// The ID is left empty; the authoritative store assigns it.
func NewInteraction(in Interaction) (*Interaction, error) {
	if !in.Kind.Valid() {
		return nil, wrapValidation("unknown kind %q", string(in.Kind))
	}
	if in.InitiatorID == "" || in.CounterpartyID == "" {
		return nil, wrapValidation("initiator and counterparty are required")
	}
	if in.InitiatorID == in.CounterpartyID {
		return nil, wrapValidation("initiator and counterparty must differ")
	}
	if in.Message != nil {
		trimmed := strings.TrimSpace(*in.Message)
		if trimmed == "" {
			in.Message = nil
		} else {
			in.Message = &trimmed
		}
	}
	if in.Kind == KindTalkRequest && in.TargetID != nil {
		return nil, wrapValidation("talk requests carry no target")
	}
	if in.Kind != KindInvitation && len(in.QAThread) > 0 {
		return nil, wrapValidation("only invitations carry a question thread")
	}
	if in.SentAt.IsZero() {
		in.SentAt = time.Now().UTC()
	}
	in.Status = StatusPending
	in.IsHiddenByInitiator = false
	in.IsHiddenByCounterparty = false
	return &in, nil
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

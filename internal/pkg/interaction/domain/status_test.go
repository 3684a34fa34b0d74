package interaction

import (
	"errors"
	"testing"
	"time"
)

func testRecord(kind Kind, status Status) *Interaction {
	return &Interaction{
		ID:             "rec-1",
		Kind:           kind,
		InitiatorID:    "alice",
		CounterpartyID: "bob",
		Status:         status,
		SentAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTransitionTable(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		kind    Kind
		status  Status
		action  Action
		actor   string
		want    Status
		wantErr error
	}{
		{"view pending invitation", KindInvitation, StatusPending, ActionView, "bob", StatusViewed, nil},
		{"initiator may trigger view", KindInvitation, StatusPending, ActionView, "alice", StatusViewed, nil},
		{"view already viewed", KindInvitation, StatusViewed, ActionView, "bob", "", ErrStaleState},
		{"talk request has no viewed", KindTalkRequest, StatusPending, ActionView, "bob", "", ErrStaleState},
		{"accept viewed invitation", KindInvitation, StatusViewed, ActionAccept, "bob", StatusAccepted, nil},
		{"reject viewed application", KindApplication, StatusViewed, ActionReject, "bob", StatusRejected, nil},
		{"accept pending invitation too early", KindInvitation, StatusPending, ActionAccept, "bob", "", ErrStaleState},
		{"accept pending talk request", KindTalkRequest, StatusPending, ActionAccept, "bob", StatusAccepted, nil},
		{"initiator cannot accept", KindInvitation, StatusViewed, ActionAccept, "alice", "", ErrStaleState},
		{"withdraw pending", KindInvitation, StatusPending, ActionWithdraw, "alice", StatusWithdrawn, nil},
		{"withdraw viewed", KindApplication, StatusViewed, ActionWithdraw, "alice", StatusWithdrawn, nil},
		{"counterparty cannot withdraw", KindInvitation, StatusPending, ActionWithdraw, "bob", "", ErrStaleState},
		{"stranger is rejected", KindInvitation, StatusPending, ActionView, "mallory", "", ErrStaleState},
		{"unknown action", KindInvitation, StatusPending, Action("bogus"), "alice", "", ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := testRecord(tc.kind, tc.status)
			next, err := Transition(rec, tc.action, tc.actor, now)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if next.Status != tc.want {
				t.Fatalf("want status %s, got %s", tc.want, next.Status)
			}
			if rec.Status != tc.status {
				t.Fatalf("input record mutated: %s", rec.Status)
			}
		})
	}
}

func TestTransitionTimestamps(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	viewed, err := Transition(testRecord(KindInvitation, StatusPending), ActionView, "bob", now)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if viewed.ViewedAt == nil || !viewed.ViewedAt.Equal(now) {
		t.Fatalf("viewedAt not set to now: %v", viewed.ViewedAt)
	}
	if !viewed.ViewedAt.After(viewed.SentAt) {
		t.Fatal("viewedAt must follow sentAt")
	}

	responded, err := Transition(viewed, ActionReject, "bob", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if responded.RespondedAt == nil || !responded.RespondedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("respondedAt not set: %v", responded.RespondedAt)
	}
}

func TestTerminalMonotonicity(t *testing.T) {
	terminals := []Status{StatusAccepted, StatusRejected, StatusExpired, StatusWithdrawn, StatusCancelled}
	actions := []Action{ActionView, ActionAccept, ActionReject, ActionWithdraw}
	actors := []string{"alice", "bob"}

	for _, status := range terminals {
		for _, action := range actions {
			for _, actor := range actors {
				rec := testRecord(KindInvitation, status)
				if _, err := Transition(rec, action, actor, time.Time{}); !errors.Is(err, ErrStaleState) {
					t.Errorf("%s + %s by %s: want ErrStaleState, got %v", status, action, actor, err)
				}
			}
		}
	}
}

func TestStatusValidFor(t *testing.T) {
	if StatusViewed.ValidFor(KindTalkRequest) {
		t.Error("talk requests must not reach viewed")
	}
	if StatusCancelled.ValidFor(KindTalkRequest) {
		t.Error("talk requests must not reach cancelled")
	}
	if !StatusViewed.ValidFor(KindInvitation) || !StatusCancelled.ValidFor(KindApplication) {
		t.Error("full lifecycle expected for invitations and applications")
	}
}

func TestNewInteraction(t *testing.T) {
	msg := "  hello  "
	rec, err := NewInteraction(Interaction{
		Kind:           KindTalkRequest,
		InitiatorID:    "alice",
		CounterpartyID: "bob",
		Message:        &msg,
		Status:         StatusAccepted, // must be ignored
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if rec.Status != StatusPending {
		t.Fatalf("new records start pending, got %s", rec.Status)
	}
	if rec.IsHiddenByInitiator || rec.IsHiddenByCounterparty {
		t.Fatal("hidden flags must default to false")
	}
	if rec.Message == nil || *rec.Message != "hello" {
		t.Fatalf("message not trimmed: %v", rec.Message)
	}

	if _, err := NewInteraction(Interaction{Kind: KindInvitation, InitiatorID: "a", CounterpartyID: "a"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("self-interaction must fail validation, got %v", err)
	}
	target := "proj-1"
	if _, err := NewInteraction(Interaction{Kind: KindTalkRequest, InitiatorID: "a", CounterpartyID: "b", TargetID: &target}); !errors.Is(err, ErrValidation) {
		t.Fatalf("talk request with target must fail validation, got %v", err)
	}
}

package interaction

import (
	"errors"
	"testing"
	"time"
)

func TestAskPrependsNewestFirst(t *testing.T) {
	rec := testRecord(KindInvitation, StatusPending)
	t1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	rec, err := AskQuestion(rec, "first?", t1)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	rec, err = AskQuestion(rec, "second?", t2)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if len(rec.QAThread) != 2 {
		t.Fatalf("want 2 entries, got %d", len(rec.QAThread))
	}
	if rec.QAThread[0].Question != "second?" {
		t.Fatalf("newest entry must lead the thread, got %q", rec.QAThread[0].Question)
	}
	if rec.QAThread[0].Answer != nil {
		t.Fatal("fresh question must be unanswered")
	}
}

func TestAskValidation(t *testing.T) {
	if _, err := AskQuestion(testRecord(KindApplication, StatusPending), "hm?", time.Time{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("thread on application: want ErrValidation, got %v", err)
	}
	if _, err := AskQuestion(testRecord(KindInvitation, StatusPending), "   ", time.Time{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank question: want ErrValidation, got %v", err)
	}
}

func TestAnswerByAskedAt(t *testing.T) {
	rec := testRecord(KindInvitation, StatusViewed)
	asked := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rec, _ = AskQuestion(rec, "when do we start?", asked)

	now := asked.Add(time.Hour)
	rec, err := AnswerQuestion(rec, asked, "next monday", now)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	entry := rec.QAThread[0]
	if entry.Answer == nil || *entry.Answer != "next monday" {
		t.Fatalf("answer not recorded: %v", entry.Answer)
	}
	if entry.AnsweredAt == nil || !entry.AnsweredAt.Equal(now) {
		t.Fatalf("answeredAt not recorded: %v", entry.AnsweredAt)
	}

	if _, err := AnswerQuestion(rec, asked, "again", now.Add(time.Minute)); !errors.Is(err, ErrStaleState) {
		t.Fatalf("double answer: want ErrStaleState, got %v", err)
	}
	if _, err := AnswerQuestion(rec, asked.Add(time.Second), "nobody asked", now); !errors.Is(err, ErrStaleState) {
		t.Fatalf("unknown key: want ErrStaleState, got %v", err)
	}
}

// Two questions forced onto the same AskedAt are indistinguishable by key; the
// resolution must still be deterministic: the most recently asked entry wins.
func TestAnswerCollidingAskedAt(t *testing.T) {
	rec := testRecord(KindInvitation, StatusViewed)
	asked := time.Date(2026, 3, 2, 9, 0, 0, 1_000_000, time.UTC)

	rec, _ = AskQuestion(rec, "older question?", asked)
	rec, _ = AskQuestion(rec, "newer question?", asked)

	rec, err := AnswerQuestion(rec, asked, "answering", asked.Add(time.Minute))
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	if rec.QAThread[0].Question != "newer question?" {
		t.Fatalf("thread head changed: %q", rec.QAThread[0].Question)
	}
	if rec.QAThread[0].Answer == nil {
		t.Fatal("the newer colliding entry must receive the answer")
	}
	if rec.QAThread[1].Answer != nil {
		t.Fatal("the older colliding entry must stay unanswered")
	}
}

func TestCloneIsDeep(t *testing.T) {
	rec := testRecord(KindInvitation, StatusViewed)
	asked := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rec, _ = AskQuestion(rec, "q?", asked)
	note := "welcome"
	rec.AcceptanceNote = &note

	cp := rec.Clone()
	cp.QAThread[0].Question = "mutated"
	*cp.AcceptanceNote = "mutated"
	cp.SetHiddenBy(RoleInitiator, true)

	if rec.QAThread[0].Question != "q?" {
		t.Fatal("clone shares the thread slice")
	}
	if *rec.AcceptanceNote != "welcome" {
		t.Fatal("clone shares pointer fields")
	}
	if rec.IsHiddenByInitiator {
		t.Fatal("clone shares flags")
	}
}

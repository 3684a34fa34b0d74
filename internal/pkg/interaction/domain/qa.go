package interaction

import (
	"strings"
	"time"
)

// QAEntry is one question on an invitation's thread, keyed by the time it was
// asked. There is no separate entry id; AskedAt is the join key the answer
// operation uses, so the tie-break below matters when two questions land on
// the same instant.
type QAEntry struct {
	Question   string     `json:"question"`
	AskedAt    time.Time  `json:"asked_at"`
	Answer     *string    `json:"answer,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

func (q QAEntry) clone() QAEntry {
	q.Answer = cloneStr(q.Answer)
	q.AnsweredAt = cloneTime(q.AnsweredAt)
	return q
}

// AskQuestion appends a new unanswered entry to the front of the thread and
// returns the predicted record. Only invitations carry a thread.
func AskQuestion(rec *Interaction, question string, now time.Time) (*Interaction, error) {
	if rec.Kind != KindInvitation {
		return nil, wrapValidation("only invitations carry a question thread")
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, wrapValidation("question text is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	next := rec.Clone()
	next.QAThread = append([]QAEntry{{Question: question, AskedAt: now}}, next.QAThread...)
	return next, nil
}

// AnswerQuestion resolves the thread entry whose AskedAt equals the supplied
// key and records the answer. When several entries collide on the same
// AskedAt, the most recently asked one wins: the thread is kept newest-first,
// so the scan takes the first match from the front. Answering an entry that
// already has an answer is a stale-state rejection.
func AnswerQuestion(rec *Interaction, askedAt time.Time, answer string, now time.Time) (*Interaction, error) {
	if rec.Kind != KindInvitation {
		return nil, wrapValidation("only invitations carry a question thread")
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, wrapValidation("answer text is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	next := rec.Clone()
	for i := range next.QAThread {
		if !next.QAThread[i].AskedAt.Equal(askedAt) {
			continue
		}
		if next.QAThread[i].Answer != nil {
			return nil, wrapStale("question asked at %s is already answered", askedAt.Format(time.RFC3339Nano))
		}
		next.QAThread[i].Answer = &answer
		ts := now
		next.QAThread[i].AnsweredAt = &ts
		return next, nil
	}
	return nil, wrapStale("no question asked at %s on record %s", askedAt.Format(time.RFC3339Nano), rec.ID)
}

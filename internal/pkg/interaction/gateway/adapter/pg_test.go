package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/gateway/port"
)

var recordCols = []string{
	"id", "kind", "initiator_id", "counterparty_id", "target_id", "status", "message",
	"is_hidden_by_initiator", "is_hidden_by_counterparty",
	"sent_at", "viewed_at", "responded_at", "expires_at",
	"rejection_reason", "acceptance_note", "qa_thread",
}

func newMockGateway(t *testing.T) (*PgGateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	g := NewPgGateway(db)
	g.now = func() time.Time { return time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC) }
	return g, mock
}

func recordRow(id string, status interaction.Status) *sqlmock.Rows {
	sentAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	row := sqlmock.NewRows(recordCols)
	var viewedAt any
	if status == interaction.StatusViewed {
		viewedAt = sentAt.Add(time.Hour)
	}
	row.AddRow(id, "invitation", "alice", "bob", nil, string(status), "hello",
		false, false, sentAt, viewedAt, nil, nil, nil, nil, []byte("[]"))
	return row
}

func TestListByPerspective(t *testing.T) {
	g, mock := newMockGateway(t)

	mock.ExpectQuery("SELECT (.+) FROM\\s+interactions").
		WithArgs("invitation", "bob").
		WillReturnRows(recordRow("inv-1", interaction.StatusPending))

	records, err := g.ListByPerspective(context.Background(), "bob", interaction.KindInvitation, interaction.PerspectiveReceived, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].ID != "inv-1" {
		t.Fatalf("unexpected records: %+v", records)
	}
	if records[0].Message == nil || *records[0].Message != "hello" {
		t.Fatalf("message not scanned: %v", records[0].Message)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListKeepsTerminalRecords(t *testing.T) {
	g, mock := newMockGateway(t)

	// The WHERE clause stops at the party match: no status predicate. A
	// withdrawn record stays listed so its parties can still hide it;
	// the view layer owns terminal filtering.
	mock.ExpectQuery(`WHERE kind = \$1\s+AND counterparty_id = \$2\s+ORDER BY`).
		WithArgs("invitation", "bob").
		WillReturnRows(recordRow("inv-1", interaction.StatusWithdrawn))

	records, err := g.ListByPerspective(context.Background(), "bob", interaction.KindInvitation, interaction.PerspectiveReceived, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].Status != interaction.StatusWithdrawn {
		t.Fatalf("terminal records must stay listed: %+v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRespondPersistsDecision(t *testing.T) {
	g, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").
		WithArgs("inv-1").
		WillReturnRows(recordRow("inv-1", interaction.StatusViewed))
	mock.ExpectExec("UPDATE interactions").
		WithArgs("inv-1", "rejected", sqlmock.AnyArg(), sqlmock.AnyArg(), "not a fit", nil, []byte("[]")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reason := "not a fit"
	rec, err := g.Respond(context.Background(), "bob", "inv-1", interaction.StatusRejected, &reason)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if rec.Status != interaction.StatusRejected || rec.RespondedAt == nil {
		t.Fatalf("decision not applied: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRespondRevalidatesLifecycle(t *testing.T) {
	g, mock := newMockGateway(t)

	// The store is the final arbiter: a record that went terminal under a
	// concurrent actor rejects the decision without writing.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").
		WithArgs("inv-1").
		WillReturnRows(recordRow("inv-1", interaction.StatusWithdrawn))
	mock.ExpectRollback()

	_, err := g.Respond(context.Background(), "bob", "inv-1", interaction.StatusAccepted, nil)
	if !errors.Is(err, interaction.ErrStaleState) {
		t.Fatalf("want ErrStaleState, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRespondUnknownRecord(t *testing.T) {
	g, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(recordCols))
	mock.ExpectRollback()

	_, err := g.Respond(context.Background(), "bob", "nope", interaction.StatusAccepted, nil)
	if !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSetHiddenBatchAtomicity(t *testing.T) {
	g, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE interactions").
		WithArgs(true, "bob", "invitation", "inv-1", "inv-2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := g.SetHidden(context.Background(), "bob", interaction.KindInvitation, []string{"inv-1", "inv-2"}, interaction.RoleCounterparty, true)
	if err != nil {
		t.Fatalf("set hidden: %v", err)
	}

	// A batch that only partially matches the actor's rows must not commit.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE interactions").
		WithArgs(true, "bob", "invitation", "inv-1", "inv-9").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err = g.SetHidden(context.Background(), "bob", interaction.KindInvitation, []string{"inv-1", "inv-9"}, interaction.RoleCounterparty, true)
	if !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("want ErrNotFound on partial match, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMarkViewedIsIdempotent(t *testing.T) {
	g, mock := newMockGateway(t)

	// Already viewed: commit without an update statement.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").
		WithArgs("inv-1").
		WillReturnRows(recordRow("inv-1", interaction.StatusViewed))
	mock.ExpectCommit()

	rec, err := g.MarkViewed(context.Background(), "bob", "inv-1")
	if err != nil {
		t.Fatalf("mark viewed: %v", err)
	}
	if rec.Status != interaction.StatusViewed {
		t.Fatalf("status changed on no-op: %s", rec.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestExpireSkipsSettledRecords(t *testing.T) {
	g, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").
		WithArgs("inv-1").
		WillReturnRows(recordRow("inv-1", interaction.StatusRejected)).
		RowsWillBeClosed()
	mock.ExpectCommit()

	rec, err := g.Expire(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if rec.Status != interaction.StatusRejected {
		t.Fatalf("terminal record must not expire, got %s", rec.Status)
	}
}

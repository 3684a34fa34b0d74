package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/gateway/port"
)

// PgGateway is the authoritative store behind the gateway port, backed by a
// single interactions table keyed by kind. Lifecycle and ownership are
// re-validated here with the same state machine clients run locally; the
// store never trusts a caller's local check.
type PgGateway struct {
	db  *sql.DB
	now func() time.Time
}

// NewPgGateway wraps a database handle.
func NewPgGateway(db *sql.DB) *PgGateway {
	return &PgGateway{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ port.Gateway = (*PgGateway)(nil)

const recordColumns = `id, kind, initiator_id, counterparty_id, target_id, status, message,
	is_hidden_by_initiator, is_hidden_by_counterparty,
	sent_at, viewed_at, responded_at, expires_at,
	rejection_reason, acceptance_note, qa_thread`

func (g *PgGateway) ListByPerspective(ctx context.Context, actorID string, kind interaction.Kind, perspective interaction.Perspective, includeHidden bool) ([]interaction.Interaction, error) {
	partyColumn := "initiator_id"
	hiddenColumn := "is_hidden_by_initiator"
	if perspective == interaction.PerspectiveReceived {
		partyColumn = "counterparty_id"
		hiddenColumn = "is_hidden_by_counterparty"
	}

	// Records are returned in every status. Terminal ones stay addressable so
	// a party can still hide a withdrawn record; dropping them from default
	// listings is the view composer's job.
	query := fmt.Sprintf(`
		SELECT %s
		FROM interactions
		WHERE kind = $1
			AND %s = $2`, recordColumns, partyColumn)
	if !includeHidden {
		query += fmt.Sprintf(" AND NOT %s", hiddenColumn)
	}
	query += `
		ORDER BY GREATEST(sent_at, COALESCE(viewed_at, sent_at), COALESCE(responded_at, sent_at)) DESC, id`

	rows, err := g.db.QueryContext(ctx, query, string(kind), actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []interaction.Interaction
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (g *PgGateway) Create(ctx context.Context, rec interaction.Interaction) (*interaction.Interaction, error) {
	validated, err := interaction.NewInteraction(rec)
	if err != nil {
		return nil, err
	}
	validated.ID = uuid.NewString()

	thread, err := marshalThread(validated.QAThread)
	if err != nil {
		return nil, err
	}
	_, err = g.db.ExecContext(ctx, `
		INSERT INTO interactions (
			id, kind, initiator_id, counterparty_id, target_id, status, message,
			is_hidden_by_initiator, is_hidden_by_counterparty,
			sent_at, expires_at, qa_thread
		) VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, FALSE, $8, $9, $10)
	`, validated.ID, string(validated.Kind), validated.InitiatorID, validated.CounterpartyID,
		validated.TargetID, string(validated.Status), validated.Message,
		validated.SentAt, validated.ExpiresAt, thread)
	if err != nil {
		return nil, err
	}
	return validated, nil
}

func (g *PgGateway) Respond(ctx context.Context, actorID, id string, decision interaction.Status, note *string) (*interaction.Interaction, error) {
	if decision != interaction.StatusAccepted && decision != interaction.StatusRejected {
		return nil, fmt.Errorf("%w: decision must be accepted or rejected", interaction.ErrValidation)
	}
	action := interaction.ActionAccept
	if decision == interaction.StatusRejected {
		action = interaction.ActionReject
	}
	return g.transact(ctx, id, func(rec *interaction.Interaction) (*interaction.Interaction, error) {
		next, err := interaction.Transition(rec, action, actorID, g.now())
		if err != nil {
			return nil, err
		}
		if note != nil {
			if decision == interaction.StatusRejected {
				next.RejectionReason = note
			} else {
				next.AcceptanceNote = note
			}
		}
		return next, nil
	})
}

func (g *PgGateway) Withdraw(ctx context.Context, actorID, id string) (*interaction.Interaction, error) {
	return g.transact(ctx, id, func(rec *interaction.Interaction) (*interaction.Interaction, error) {
		return interaction.Transition(rec, interaction.ActionWithdraw, actorID, g.now())
	})
}

func (g *PgGateway) SetHidden(ctx context.Context, actorID string, kind interaction.Kind, ids []string, role interaction.Role, hidden bool) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: empty id batch", interaction.ErrValidation)
	}
	flagColumn := "is_hidden_by_initiator"
	ownerColumn := "initiator_id"
	if role == interaction.RoleCounterparty {
		flagColumn = "is_hidden_by_counterparty"
		ownerColumn = "counterparty_id"
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, hidden, actorID, string(kind))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+4)
		args = append(args, id)
	}

	// One statement keeps the batch atomic: either every row the actor owns
	// flips, or the count mismatch rolls the whole thing back.
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
		UPDATE interactions
		SET %s = $1
		WHERE %s = $2 AND kind = $3 AND id IN (%s)
	`, flagColumn, ownerColumn, strings.Join(placeholders, ", "))

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != int64(len(ids)) {
		return fmt.Errorf("%w: batch matched %d of %d records", port.ErrNotFound, affected, len(ids))
	}
	return tx.Commit()
}

func (g *PgGateway) Ask(ctx context.Context, actorID, id, question string) (*interaction.Interaction, error) {
	return g.transact(ctx, id, func(rec *interaction.Interaction) (*interaction.Interaction, error) {
		if _, ok := rec.RoleFor(actorID); !ok {
			return nil, port.ErrForbidden
		}
		return interaction.AskQuestion(rec, question, g.now())
	})
}

func (g *PgGateway) Answer(ctx context.Context, actorID, id string, askedAt time.Time, answer string) (*interaction.Interaction, error) {
	return g.transact(ctx, id, func(rec *interaction.Interaction) (*interaction.Interaction, error) {
		if _, ok := rec.RoleFor(actorID); !ok {
			return nil, port.ErrForbidden
		}
		return interaction.AnswerQuestion(rec, askedAt, answer, g.now())
	})
}

func (g *PgGateway) MarkViewed(ctx context.Context, actorID, id string) (*interaction.Interaction, error) {
	return g.transact(ctx, id, func(rec *interaction.Interaction) (*interaction.Interaction, error) {
		if _, ok := rec.RoleFor(actorID); !ok {
			return nil, port.ErrForbidden
		}
		if rec.Status != interaction.StatusPending {
			// First read already happened; idempotent no-op.
			return rec, nil
		}
		return interaction.Transition(rec, interaction.ActionView, actorID, g.now())
	})
}

// Expire moves a past-due record to expired. Used by the maintenance worker,
// not exposed on the gateway port. Records that already settled are left
// alone.
func (g *PgGateway) Expire(ctx context.Context, id string) (*interaction.Interaction, error) {
	return g.transact(ctx, id, func(rec *interaction.Interaction) (*interaction.Interaction, error) {
		if rec.Status.Terminal() {
			return rec, nil
		}
		if rec.ExpiresAt == nil || rec.ExpiresAt.After(g.now()) {
			return rec, nil
		}
		next := rec.Clone()
		next.Status = interaction.StatusExpired
		return next, nil
	})
}

// transact loads the record under a row lock, applies fn and persists the
// result when fn changed it.
func (g *PgGateway) transact(ctx context.Context, id string, fn func(*interaction.Interaction) (*interaction.Interaction, error)) (*interaction.Interaction, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM interactions WHERE id = $1 FOR UPDATE
	`, recordColumns), id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrNotFound
		}
		return nil, err
	}

	next, err := fn(rec)
	if err != nil {
		return nil, err
	}
	if next == rec {
		// fn settled as a no-op; nothing to write.
		return rec, tx.Commit()
	}

	thread, err := marshalThread(next.QAThread)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE interactions
		SET status = $2, viewed_at = $3, responded_at = $4,
			rejection_reason = $5, acceptance_note = $6, qa_thread = $7
		WHERE id = $1
	`, next.ID, string(next.Status), next.ViewedAt, next.RespondedAt,
		next.RejectionReason, next.AcceptanceNote, thread)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*interaction.Interaction, error) {
	var (
		rec       interaction.Interaction
		kind      string
		status    string
		targetID  sql.NullString
		message   sql.NullString
		viewedAt  sql.NullTime
		responded sql.NullTime
		expiresAt sql.NullTime
		reason    sql.NullString
		note      sql.NullString
		thread    []byte
	)
	err := row.Scan(&rec.ID, &kind, &rec.InitiatorID, &rec.CounterpartyID, &targetID, &status, &message,
		&rec.IsHiddenByInitiator, &rec.IsHiddenByCounterparty,
		&rec.SentAt, &viewedAt, &responded, &expiresAt,
		&reason, &note, &thread)
	if err != nil {
		return nil, err
	}
	rec.Kind = interaction.Kind(kind)
	rec.Status = interaction.Status(status)
	rec.TargetID = nullStr(targetID)
	rec.Message = nullStr(message)
	rec.ViewedAt = nullTime(viewedAt)
	rec.RespondedAt = nullTime(responded)
	rec.ExpiresAt = nullTime(expiresAt)
	rec.RejectionReason = nullStr(reason)
	rec.AcceptanceNote = nullStr(note)
	if len(thread) > 0 {
		if err := json.Unmarshal(thread, &rec.QAThread); err != nil {
			return nil, fmt.Errorf("pg: decode qa thread for %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func marshalThread(thread []interaction.QAEntry) ([]byte, error) {
	if thread == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(thread)
	if err != nil {
		return nil, fmt.Errorf("pg: encode qa thread: %w", err)
	}
	return b, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

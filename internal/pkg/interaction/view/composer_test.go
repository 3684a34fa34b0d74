package view

import (
	"context"
	"errors"
	"testing"
	"time"

	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/engine"
	"go-parley/internal/pkg/interaction/projection"
)

func rec(id string, status interaction.Status, sentAt time.Time) interaction.Interaction {
	return interaction.Interaction{
		ID:             id,
		Kind:           interaction.KindInvitation,
		InitiatorID:    "alice",
		CounterpartyID: "bob",
		Status:         status,
		SentAt:         sentAt,
	}
}

func TestFilterDefaults(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	hidden := rec("hidden", interaction.StatusPending, base)
	hidden.IsHiddenByCounterparty = true
	hiddenByOther := rec("other", interaction.StatusPending, base)
	hiddenByOther.IsHiddenByInitiator = true

	records := []interaction.Interaction{
		rec("plain", interaction.StatusPending, base),
		rec("gone", interaction.StatusWithdrawn, base),
		rec("axed", interaction.StatusCancelled, base),
		hidden,
		hiddenByOther,
	}

	got := Filter(append([]interaction.Interaction(nil), records...), interaction.RoleCounterparty, false)
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	want := []string{"plain", "other"}
	if len(ids) != len(want) || ids[0] != want[0] || ids[1] != want[1] {
		t.Fatalf("default filter: want %v, got %v", want, ids)
	}

	// Show-hidden reveals the viewer's hidden records but never resurrects
	// withdrawn or cancelled ones.
	got = Filter(append([]interaction.Interaction(nil), records...), interaction.RoleCounterparty, true)
	if len(got) != 3 {
		t.Fatalf("show-hidden: want 3 records, got %d", len(got))
	}
}

// flakyGateway serves a fixed listing until err is set. Only the listing path
// is exercised by the composer.
type flakyGateway struct {
	records []interaction.Interaction
	err     error
}

func (g *flakyGateway) ListByPerspective(context.Context, string, interaction.Kind, interaction.Perspective, bool) ([]interaction.Interaction, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.records, nil
}

func (g *flakyGateway) Create(context.Context, interaction.Interaction) (*interaction.Interaction, error) {
	return nil, g.err
}

func (g *flakyGateway) Respond(context.Context, string, string, interaction.Status, *string) (*interaction.Interaction, error) {
	return nil, g.err
}

func (g *flakyGateway) Withdraw(context.Context, string, string) (*interaction.Interaction, error) {
	return nil, g.err
}

func (g *flakyGateway) SetHidden(context.Context, string, interaction.Kind, []string, interaction.Role, bool) error {
	return g.err
}

func (g *flakyGateway) Ask(context.Context, string, string, string) (*interaction.Interaction, error) {
	return nil, g.err
}

func (g *flakyGateway) Answer(context.Context, string, string, time.Time, string) (*interaction.Interaction, error) {
	return nil, g.err
}

func (g *flakyGateway) MarkViewed(context.Context, string, string) (*interaction.Interaction, error) {
	return nil, g.err
}

func TestForPerspectiveServesLastKnownOnOutage(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	gw := &flakyGateway{records: []interaction.Interaction{rec("inv-1", interaction.StatusPending, base)}}
	eng := engine.New("bob", projection.NewStore(), gw)
	ctx := context.Background()
	opts := Options{Kinds: []interaction.Kind{interaction.KindInvitation}}

	// Prime the cache, then take the gateway down and invalidate.
	if _, err := ForPerspective(ctx, eng, interaction.PerspectiveReceived, opts); err != nil {
		t.Fatalf("prime: %v", err)
	}
	gw.err = errors.New("down")
	eng.Invalidate(interaction.KindInvitation)

	if _, err := ForPerspective(ctx, eng, interaction.PerspectiveReceived, opts); !errors.Is(err, interaction.ErrTransport) {
		t.Fatalf("strict view must surface the outage, got %v", err)
	}

	opts.AllowStale = true
	got, err := ForPerspective(ctx, eng, interaction.PerspectiveReceived, opts)
	if err != nil {
		t.Fatalf("stale view: %v", err)
	}
	if len(got) != 1 || got[0].ID != "inv-1" {
		t.Fatalf("last-known listing not served: %+v", got)
	}
}

func TestSortByRecencyUsesLatestTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	old := rec("old", interaction.StatusViewed, base)
	responded := rec("responded", interaction.StatusAccepted, base.Add(-time.Hour))
	ts := base.Add(2 * time.Hour)
	responded.RespondedAt = &ts
	newer := rec("newer", interaction.StatusPending, base.Add(time.Hour))

	records := []interaction.Interaction{old, responded, newer}
	SortByRecency(records)

	want := []string{"responded", "newer", "old"}
	for i, id := range want {
		if records[i].ID != id {
			t.Fatalf("position %d: want %s, got %s", i, id, records[i].ID)
		}
	}
}

func TestSortStabilityOnTies(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []interaction.Interaction{
		rec("a", interaction.StatusPending, base),
		rec("b", interaction.StatusPending, base),
		rec("c", interaction.StatusPending, base),
	}

	for i := 0; i < 5; i++ {
		SortByRecency(records)
		if records[0].ID != "a" || records[1].ID != "b" || records[2].ID != "c" {
			t.Fatalf("tie order drifted: %s %s %s", records[0].ID, records[1].ID, records[2].ID)
		}
	}
}

package view

import (
	"context"
	"errors"
	"sort"

	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/engine"
	"go-parley/internal/pkg/interaction/projection"
)

// Options controls listing composition. The zero value renders the default
// view: every kind, hidden records filtered out.
type Options struct {
	Kinds      []interaction.Kind
	ShowHidden bool

	// AllowStale falls back to the last-known cached listing when a refetch
	// fails on transport, so an outage degrades the view instead of blanking
	// it. The entry stays stale and is refetched on the next render.
	AllowStale bool
}

// RoleFor maps a perspective onto the hidden-flag owner: the sent view is the
// initiator's, the received view the counterparty's.
func RoleFor(perspective interaction.Perspective) interaction.Role {
	if perspective == interaction.PerspectiveSent {
		return interaction.RoleInitiator
	}
	return interaction.RoleCounterparty
}

// ForPerspective reads the requested kinds through the engine, merges them
// and renders one presentation listing. Hidden filtering is local, so
// toggling ShowHidden never refetches.
func ForPerspective(ctx context.Context, eng *engine.Engine, perspective interaction.Perspective, opts Options) ([]interaction.Interaction, error) {
	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = []interaction.Kind{interaction.KindInvitation, interaction.KindApplication, interaction.KindTalkRequest}
	}
	var merged []interaction.Interaction
	for _, kind := range kinds {
		records, err := eng.List(ctx, kind, perspective)
		if err != nil {
			if opts.AllowStale && errors.Is(err, interaction.ErrTransport) {
				if stale, ok := eng.Store().Peek(projection.Key{Kind: kind, Perspective: perspective}); ok {
					merged = append(merged, stale...)
					continue
				}
			}
			return nil, err
		}
		merged = append(merged, records...)
	}
	merged = Filter(merged, RoleFor(perspective), opts.ShowHidden)
	SortByRecency(merged)
	return merged, nil
}

// Filter drops withdrawn and cancelled records from the listing (they stay
// addressable by id for audit) and, unless showHidden is set, the records the
// viewing role has hidden. The other party's hidden flag is never consulted.
func Filter(records []interaction.Interaction, role interaction.Role, showHidden bool) []interaction.Interaction {
	out := records[:0]
	for _, rec := range records {
		if rec.Status == interaction.StatusWithdrawn || rec.Status == interaction.StatusCancelled {
			continue
		}
		if !showHidden && rec.HiddenBy(role) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// SortByRecency orders records by their most recent relevant timestamp,
// newest first. Records sharing a timestamp keep their incoming relative
// order, so repeated renders are stable.
func SortByRecency(records []interaction.Interaction) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RelevantAt().After(records[j].RelevantAt())
	})
}

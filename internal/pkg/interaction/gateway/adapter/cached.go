package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	cacheport "go-parley/internal/infrastructure/cache/port"
	queueport "go-parley/internal/infrastructure/queue/port"
	"go-parley/internal/infrastructure/realtime"
	"go-parley/internal/pkg/interaction/application/task"
	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/gateway/port"
)

const listCacheTTL = time.Minute

// CachedGateway decorates the authoritative gateway with the server-side
// plumbing around every operation: listing responses cached in Redis,
// invalidation and change-event fan-out on mutation, and expiry scheduling on
// create. Cache and feed work is best effort; only the inner gateway decides
// whether an operation succeeded.
type CachedGateway struct {
	inner port.Gateway
	cache cacheport.Cache
	hub   *realtime.Hub
	queue queueport.Client
}

// NewCachedGateway wraps inner. Any of cache, hub and queue may be nil; the
// corresponding concern is skipped.
func NewCachedGateway(inner port.Gateway, cache cacheport.Cache, hub *realtime.Hub, queue queueport.Client) *CachedGateway {
	return &CachedGateway{inner: inner, cache: cache, hub: hub, queue: queue}
}

var _ port.Gateway = (*CachedGateway)(nil)

// ListCacheKeys enumerates every cached listing an actor holds for a kind:
// both perspectives, with and without hidden records.
func ListCacheKeys(actorID string, kind interaction.Kind) []string {
	keys := make([]string, 0, 4)
	for _, p := range []interaction.Perspective{interaction.PerspectiveSent, interaction.PerspectiveReceived} {
		for _, hidden := range []bool{false, true} {
			keys = append(keys, listCacheKey(actorID, kind, p, hidden))
		}
	}
	return keys
}

func listCacheKey(actorID string, kind interaction.Kind, perspective interaction.Perspective, includeHidden bool) string {
	return fmt.Sprintf("interactions:%s:%s:%s:%t", actorID, kind, perspective, includeHidden)
}

func (c *CachedGateway) ListByPerspective(ctx context.Context, actorID string, kind interaction.Kind, perspective interaction.Perspective, includeHidden bool) ([]interaction.Interaction, error) {
	key := listCacheKey(actorID, kind, perspective, includeHidden)
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key); err == nil {
			var records []interaction.Interaction
			if json.Unmarshal([]byte(raw), &records) == nil {
				return records, nil
			}
		} else if !errors.Is(err, cacheport.ErrMiss) {
			log.Printf("gateway: list cache get %s: %v", key, err)
		}
	}

	records, err := c.inner.ListByPerspective(ctx, actorID, kind, perspective, includeHidden)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(records); err == nil {
			if err := c.cache.Set(ctx, key, string(raw), listCacheTTL); err != nil {
				log.Printf("gateway: list cache set %s: %v", key, err)
			}
		}
	}
	return records, nil
}

func (c *CachedGateway) Create(ctx context.Context, rec interaction.Interaction) (*interaction.Interaction, error) {
	created, err := c.inner.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	c.scheduleExpiry(ctx, created)
	c.settle(ctx, created)
	return created, nil
}

func (c *CachedGateway) Respond(ctx context.Context, actorID, id string, decision interaction.Status, note *string) (*interaction.Interaction, error) {
	rec, err := c.inner.Respond(ctx, actorID, id, decision, note)
	if err != nil {
		return nil, err
	}
	c.settle(ctx, rec)
	return rec, nil
}

func (c *CachedGateway) Withdraw(ctx context.Context, actorID, id string) (*interaction.Interaction, error) {
	rec, err := c.inner.Withdraw(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	c.settle(ctx, rec)
	return rec, nil
}

func (c *CachedGateway) SetHidden(ctx context.Context, actorID string, kind interaction.Kind, ids []string, role interaction.Role, hidden bool) error {
	if err := c.inner.SetHidden(ctx, actorID, kind, ids, role, hidden); err != nil {
		return err
	}
	// A hidden flag only moves the owner's own view: invalidate and notify
	// the acting party alone (their other devices follow the feed too).
	c.invalidate(ctx, kind, actorID)
	if c.hub != nil {
		for _, id := range ids {
			c.hub.Publish(realtime.ChangeEvent{Kind: string(kind), ID: id}, actorID)
		}
	}
	return nil
}

func (c *CachedGateway) Ask(ctx context.Context, actorID, id, question string) (*interaction.Interaction, error) {
	rec, err := c.inner.Ask(ctx, actorID, id, question)
	if err != nil {
		return nil, err
	}
	c.settle(ctx, rec)
	return rec, nil
}

func (c *CachedGateway) Answer(ctx context.Context, actorID, id string, askedAt time.Time, answer string) (*interaction.Interaction, error) {
	rec, err := c.inner.Answer(ctx, actorID, id, askedAt, answer)
	if err != nil {
		return nil, err
	}
	c.settle(ctx, rec)
	return rec, nil
}

func (c *CachedGateway) MarkViewed(ctx context.Context, actorID, id string) (*interaction.Interaction, error) {
	rec, err := c.inner.MarkViewed(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	c.settle(ctx, rec)
	return rec, nil
}

// settle invalidates both parties' cached listings and pushes the change
// event to their feeds.
func (c *CachedGateway) settle(ctx context.Context, rec *interaction.Interaction) {
	c.invalidate(ctx, rec.Kind, rec.InitiatorID, rec.CounterpartyID)
	if c.hub != nil {
		c.hub.Publish(realtime.ChangeEvent{Kind: string(rec.Kind), ID: rec.ID}, rec.InitiatorID, rec.CounterpartyID)
	}
}

func (c *CachedGateway) invalidate(ctx context.Context, kind interaction.Kind, actorIDs ...string) {
	if c.cache == nil {
		return
	}
	var keys []string
	for _, actorID := range actorIDs {
		keys = append(keys, ListCacheKeys(actorID, kind)...)
	}
	if _, err := c.cache.Del(ctx, keys...); err != nil {
		log.Printf("gateway: list cache invalidate: %v", err)
	}
}

func (c *CachedGateway) scheduleExpiry(ctx context.Context, rec *interaction.Interaction) {
	if c.queue == nil || rec.ExpiresAt == nil {
		return
	}
	payload, err := json.Marshal(task.ExpirePayload{ID: rec.ID})
	if err != nil {
		return
	}
	_, err = c.queue.Enqueue(ctx, queueport.Task{Type: task.TypeExpire, Payload: payload}, queueport.EnqueueOption{
		Queue:     "maintenance",
		ProcessAt: *rec.ExpiresAt,
		MaxRetry:  5,
		UniqueTTL: time.Until(*rec.ExpiresAt) + time.Hour,
	})
	if err != nil {
		log.Printf("gateway: schedule expiry for %s: %v", rec.ID, err)
	}
}

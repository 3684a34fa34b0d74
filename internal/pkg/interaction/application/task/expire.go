package task

import (
	"context"
	"encoding/json"
	"log"
	"time"

	queueport "go-parley/internal/infrastructure/queue/port"
	"go-parley/internal/infrastructure/realtime"
	interaction "go-parley/internal/pkg/interaction/domain"
)

// TypeExpire is the queue task moving a past-due record to expired. One task
// is scheduled per record at creation time, to run at its expiry instant.
const TypeExpire = "interaction:expire"

// ExpirePayload is the JSON payload carried by an expiry task.
type ExpirePayload struct {
	ID string `json:"id"`
}

// Expirer is the slice of the store the expiry worker needs.
type Expirer interface {
	Expire(ctx context.Context, id string) (*interaction.Interaction, error)
}

// RegisterExpireTask binds the expiry handler to the worker server. After a
// record expires, invalidate is called so the server's listing caches drop
// it, and both parties' feeds receive the change event. The handler is
// idempotent: a record that already settled is left alone.
func RegisterExpireTask(srv queueport.Server, store Expirer, hub *realtime.Hub, invalidate func(ctx context.Context, rec *interaction.Interaction)) {
	srv.Register(TypeExpire, func(ctx context.Context, t queueport.Task) error {
		var p ExpirePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// Malformed payload will never succeed; drop it.
			log.Printf("task: expire payload: %v", err)
			return nil
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		rec, err := store.Expire(ctx, p.ID)
		if err != nil {
			return err
		}
		if rec.Status != interaction.StatusExpired {
			return nil
		}
		if invalidate != nil {
			invalidate(ctx, rec)
		}
		if hub != nil {
			hub.Publish(realtime.ChangeEvent{Kind: string(rec.Kind), ID: rec.ID}, rec.InitiatorID, rec.CounterpartyID)
		}
		return nil
	})
}

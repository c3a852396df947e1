package repository

import (
	"context"
	"fmt"
	"sync"

	"taskroom/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Collections carried by the room change feed.
const (
	CollectionTasks    = "tasks"
	CollectionMessages = "messages"
)

// EventRepository is the change-notification side of the document store:
// every mutation of a room collection publishes, and each subscriber gets a
// signal to re-read the collection. Payloads carry no data; the snapshot is
// always re-queried from the store.
type EventRepository interface {
	Publish(ctx context.Context, roomID uuid.UUID, collection string) error
	Subscribe(ctx context.Context, roomID uuid.UUID, collection string) (*Subscription, error)
}

// Subscription delivers coalesced change signals until closed. Close is
// idempotent and releases the underlying listener.
type Subscription struct {
	ch        chan struct{}
	closeFn   func() error
	closeOnce sync.Once
}

// NewSubscription wraps a raw signal channel. closeFn releases the
// underlying listener and may be nil for in-process feeds.
func NewSubscription(ch chan struct{}, closeFn func() error) *Subscription {
	return &Subscription{ch: ch, closeFn: closeFn}
}

func (s *Subscription) Events() <-chan struct{} {
	return s.ch
}

func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.closeFn != nil {
			err = s.closeFn()
		}
	})
	return err
}

type eventRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewEventRepository(rdb *redis.Client, log logger.Logger) EventRepository {
	return &eventRepository{rdb: rdb, log: log}
}

func channelName(roomID uuid.UUID, collection string) string {
	return fmt.Sprintf("room:%s:%s", roomID.String(), collection)
}

func (r *eventRepository) Publish(ctx context.Context, roomID uuid.UUID, collection string) error {
	if err := r.rdb.Publish(ctx, channelName(roomID, collection), "1").Err(); err != nil {
		r.log.Error("Failed to publish change event", "error", err, "room_id", roomID, "collection", collection)
		return err
	}
	return nil
}

func (r *eventRepository) Subscribe(ctx context.Context, roomID uuid.UUID, collection string) (*Subscription, error) {
	pubsub := r.rdb.Subscribe(ctx, channelName(roomID, collection))

	// Confirm the subscription before handing it out so no event published
	// after this point is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		r.log.Error("Failed to subscribe to change feed", "error", err, "room_id", roomID, "collection", collection)
		return nil, err
	}

	sub := NewSubscription(make(chan struct{}, 1), pubsub.Close)

	go func() {
		defer close(sub.ch)
		for range pubsub.Channel() {
			// Coalesce bursts: one pending signal is enough, the
			// consumer re-reads the full snapshot anyway.
			select {
			case sub.ch <- struct{}{}:
			default:
			}
		}
	}()

	return sub, nil
}

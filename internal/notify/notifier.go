package notify

import (
	"context"
	"encoding/json"
	"time"

	"shareit/internal/config"
	"shareit/internal/events"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Notification is the unit pushed to the redis queue. Downstream delivery
// workers (mail, push) consume it from there.
type Notification struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Attempts  int             `json:"attempts"`
}

// Notifier bridges in-process domain events to a durable redis list. Events
// are buffered in a channel so publishers never block on redis.
type Notifier struct {
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan Notification
	queueKey      string
	deadLetterKey string
	logger        zerolog.Logger
}

func NewNotifier(client *redis.Client, cfg config.NotifyConfig, logger *zerolog.Logger) *Notifier {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	retry := RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  2 * time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2,
	}
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}

	return &Notifier{
		redis:         client,
		retryPolicy:   retry,
		queue:         make(chan Notification, queueSize),
		queueKey:      cfg.QueueKey,
		deadLetterKey: cfg.DeadLetterKey,
		logger:        logger.With().Str("component", "notifier").Logger(),
	}
}

// BindTo subscribes the notifier to every booking and comment event.
func (n *Notifier) BindTo(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingApproved,
		events.EventBookingRejected,
		events.EventCommentAdded,
	} {
		bus.Subscribe(eventType, n.enqueue)
	}
}

// enqueue buffers an event for delivery. A full buffer drops the event; a
// notification is advisory, not part of the booking transaction.
func (n *Notifier) enqueue(event *events.Event) error {
	notification := Notification{
		Event:     event.Type,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt,
	}

	select {
	case n.queue <- notification:
	default:
		n.logger.Warn().Str("event", event.Type).Msg("notification buffer full, event dropped")
	}
	return nil
}

// Run drains the buffer into redis until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	n.logger.Info().Msg("notifier started")
	defer n.logger.Info().Msg("notifier stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case notification := <-n.queue:
			n.deliver(ctx, notification)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, notification Notification) {
	for attempt := 1; ; attempt++ {
		notification.Attempts = attempt
		err := n.push(ctx, n.queueKey, notification)
		if err == nil {
			return
		}

		if attempt >= n.retryPolicy.MaxRetries {
			n.logger.Error().Err(err).Str("event", notification.Event).
				Int("attempts", attempt).Msg("notification delivery failed")
			if dlErr := n.push(ctx, n.deadLetterKey, notification); dlErr != nil {
				n.logger.Error().Err(dlErr).Str("event", notification.Event).Msg("dead letter push failed")
			}
			return
		}

		delay := n.retryPolicy.NextDelay(attempt)
		n.logger.Warn().Err(err).Str("event", notification.Event).
			Int("attempt", attempt).Dur("retry_in", delay).Msg("notification push failed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (n *Notifier) push(ctx context.Context, key string, notification Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return n.redis.LPush(ctx, key, data).Err()
}

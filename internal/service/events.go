package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/middleware"
	"github.com/noah-isme/gema-grader/internal/models"
)

const eventBufferSize = 16

// Grading event types.
const (
	EventGradingCompleted = "grading.completed"
	EventPenaltyApplied   = "grading.penalty_applied"
	EventPenaltyRestored  = "grading.penalty_restored"
	EventResultRemoved    = "archive.removed"
	EventArchiveCleared   = "archive.cleared"
)

// GradingEvent announces a change of the archive to interested listeners.
type GradingEvent struct {
	ID            string                `json:"id"`
	Type          string                `json:"type"`
	Source        string                `json:"source"`
	CorrelationID string                `json:"correlation_id,omitempty"`
	ResultID      string                `json:"result_id,omitempty"`
	StudentID     string                `json:"student_id,omitempty"`
	Group         string                `json:"group,omitempty"`
	Result        *models.GradingResult `json:"result,omitempty"`
	OccurredAt    time.Time             `json:"occurred_at"`
}

// EventPublisher fans grading events out to local subscribers and, when configured,
// to redis pubsub and NATS so other instances see them too.
type EventPublisher interface {
	Publish(ctx context.Context, event GradingEvent)
	Subscribe() (<-chan GradingEvent, func())
	Start(ctx context.Context)
}

type eventPublisher struct {
	redis   *redis.Client
	channel string
	nats    *nats.Conn
	subject string
	logger  zerolog.Logger
	nodeID  string

	mu          sync.RWMutex
	subscribers map[chan GradingEvent]struct{}
}

// NewEventPublisher constructs the publisher. redisClient and natsConn are optional.
func NewEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channel string, logger zerolog.Logger) EventPublisher {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "grader.events"
	}
	return &eventPublisher{
		redis:       redisClient,
		channel:     channel,
		nats:        natsConn,
		subject:     channel,
		logger:      logger.With().Str("component", "event_publisher").Logger(),
		nodeID:      uuid.NewString(),
		subscribers: map[chan GradingEvent]struct{}{},
	}
}

func (p *eventPublisher) Publish(ctx context.Context, event GradingEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = middleware.CorrelationIDFromContext(ctx)
	}
	event.Source = p.nodeID

	p.broadcast(event)

	if p.redis == nil && p.nats == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to encode grading event")
		return
	}

	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.channel, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish grading event to redis")
		}
	}
	if p.nats != nil {
		if err := p.nats.Publish(p.subject, payload); err != nil {
			p.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish grading event to nats")
		}
	}
}

func (p *eventPublisher) Subscribe() (<-chan GradingEvent, func()) {
	ch := make(chan GradingEvent, eventBufferSize)

	p.mu.Lock()
	p.subscribers[ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subscribers, ch)
			p.mu.Unlock()
			close(ch)
		})
	}
}

// Start consumes events published by other instances until ctx is cancelled. Redis
// is preferred when both transports are configured, so remote events arrive once.
func (p *eventPublisher) Start(ctx context.Context) {
	switch {
	case p.redis != nil:
		go p.consumeRedis(ctx)
	case p.nats != nil:
		p.consumeNATS(ctx)
	}
}

func (p *eventPublisher) broadcast(event GradingEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for ch := range p.subscribers {
		select {
		case ch <- event:
		default:
			p.logger.Warn().Str("event", event.Type).Msg("dropping grading event for slow subscriber")
		}
	}
}

func (p *eventPublisher) consumeRedis(ctx context.Context) {
	pubsub := p.redis.Subscribe(ctx, p.channel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			p.logger.Error().Err(err).Msg("grading event redis subscription closed")
			return
		}
		p.handleRemote([]byte(msg.Payload))
	}
}

func (p *eventPublisher) consumeNATS(ctx context.Context) {
	sub, err := p.nats.QueueSubscribe(p.subject, "grader-events-"+p.nodeID, func(msg *nats.Msg) {
		p.handleRemote(msg.Data)
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to subscribe to grading event subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			p.logger.Warn().Err(err).Msg("failed to drain grading event subscription")
		}
	}()
}

func (p *eventPublisher) handleRemote(payload []byte) {
	var event GradingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		p.logger.Warn().Err(err).Msg("invalid grading event payload")
		return
	}
	if event.Source == p.nodeID {
		return
	}
	p.broadcast(event)
}

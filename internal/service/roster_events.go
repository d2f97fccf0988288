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
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/observability"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
)

const rosterEventBufferSize = 16

// RosterEvents fans roster changes out to live subscribers and other instances.
type RosterEvents interface {
	Publish(ctx context.Context, event models.ChangeEvent)
	Subscribe() (<-chan models.ChangeEvent, func())
	AddListener(listener func(models.ChangeEvent))
	Start(ctx context.Context)
}

type rosterEvents struct {
	store       repository.Store
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	nodeID      string
	now         func() time.Time

	mu          sync.RWMutex
	subscribers map[chan models.ChangeEvent]struct{}
	listeners   []func(models.ChangeEvent)
}

type rosterEnvelope struct {
	Source string             `json:"source"`
	Event  models.ChangeEvent `json:"event"`
}

// NewRosterEvents builds the broker. natsConn may be nil for single-instance deployments.
func NewRosterEvents(store repository.Store, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) RosterEvents {
	subject := ""
	if channelBase != "" {
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".roster.changes"
	}

	return &rosterEvents{
		store:       store,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "roster_events").Logger(),
		nodeID:      uuid.NewString(),
		now:         time.Now,
		subscribers: make(map[chan models.ChangeEvent]struct{}),
	}
}

func (e *rosterEvents) Start(ctx context.Context) {
	if watcher, ok := e.store.(repository.Watcher); ok {
		events, err := watcher.Watch(ctx)
		switch {
		case errors.Is(err, repository.ErrWatchUnsupported):
		case err != nil:
			e.logger.Error().Err(err).Msg("failed to watch store changes")
		default:
			go e.consumeStore(ctx, events)
		}
	}
	if e.nats != nil && e.natsSubject != "" {
		e.consumeNATS(ctx)
	}
}

// Publish broadcasts a local write and forwards it to other instances.
func (e *rosterEvents) Publish(ctx context.Context, event models.ChangeEvent) {
	if event.At.IsZero() {
		event.At = e.now().UTC()
	}
	if event.Source == "" && e.store != nil {
		event.Source = e.store.Name()
	}
	e.broadcast(event)

	if e.nats == nil || e.natsSubject == "" {
		return
	}
	payload, err := json.Marshal(rosterEnvelope{Source: e.nodeID, Event: event})
	if err != nil {
		return
	}
	if err := e.nats.Publish(e.natsSubject, payload); err != nil {
		e.logger.Warn().Err(err).Msg("failed to publish roster change to nats")
	}
}

func (e *rosterEvents) Subscribe() (<-chan models.ChangeEvent, func()) {
	channel := make(chan models.ChangeEvent, rosterEventBufferSize)

	e.mu.Lock()
	e.subscribers[channel] = struct{}{}
	e.mu.Unlock()
	observability.LiveSubscribers().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subscribers, channel)
			close(channel)
			e.mu.Unlock()
			observability.LiveSubscribers().Dec()
		})
	}
	return channel, cleanup
}

// AddListener registers a callback run synchronously for every change.
func (e *rosterEvents) AddListener(listener func(models.ChangeEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, listener)
}

func (e *rosterEvents) broadcast(event models.ChangeEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, listener := range e.listeners {
		listener(event)
	}
	for ch := range e.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (e *rosterEvents) consumeStore(ctx context.Context, events <-chan models.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			e.broadcast(event)
		}
	}
}

func (e *rosterEvents) consumeNATS(ctx context.Context) {
	sub, err := e.nats.Subscribe(e.natsSubject, func(msg *nats.Msg) {
		e.handleRemote(msg.Data)
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to subscribe to nats roster subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			e.logger.Warn().Err(err).Msg("failed to drain roster nats subscription")
		}
	}()
}

func (e *rosterEvents) handleRemote(payload []byte) {
	var envelope rosterEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		e.logger.Warn().Err(err).Msg("invalid roster event payload")
		return
	}
	if envelope.Source == e.nodeID {
		return
	}
	e.broadcast(envelope.Event)
}

func changeEvent(collection, action, id string) models.ChangeEvent {
	return models.ChangeEvent{Collection: collection, Action: action, ID: id}
}

package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oddsfeed/sdk/internal/apiclient"
	"github.com/oddsfeed/sdk/internal/feed"
	"github.com/oddsfeed/sdk/internal/routing"
	"github.com/oddsfeed/sdk/internal/urn"
)

// LivenessSink receives producer liveness and recovery signals.
// Satisfied by the recovery manager.
type LivenessSink interface {
	RecordAlive(producerID int, at time.Time)
	OnSnapshotComplete(producerID int, requestID string)
	OnFeedDown()
	OnFeedUp()
}

// ProducerInfo answers producer flag lookups. Satisfied by the producer
// registry.
type ProducerInfo interface {
	IsVirtual(id int) bool
}

// EventInvalidator is the slice of the sport-event cache the dispatcher
// touches on a fixture change.
type EventInvalidator interface {
	Purge(id urn.URN)
	MarkFixtureChange(id urn.URN) bool
}

// StatusSink is the event-status cache surface used by the dispatcher.
type StatusSink interface {
	Merge(id urn.URN, st apiclient.EventStatus)
	Purge(id urn.URN)
}

// Instruments receives dispatcher telemetry. Satisfied by the metrics
// package; a nil sink disables instrumentation.
type Instruments interface {
	ObserveMessage(msgType string)
	ObserveRouted(msgType string)
	ObserveParseError()
	ObserveFeedConnected(up bool)
}

// Config holds dispatcher configuration.
type Config struct {
	OddsBufferSize   int // Default: 5000
	MarketBufferSize int // Default: 1000
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		OddsBufferSize:   5000,
		MarketBufferSize: 1000,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	MessagesReceived int64
	MessagesRouted   int64
	ParseErrors      int64
	UnknownMessages  int64
	OddsBuffer       BufferStats
	MarketBuffer     BufferStats
}

// Dispatcher consumes raw feed frames and routes them. A single
// goroutine does all routing so messages for one event are processed in
// arrival order.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger

	input  <-chan feed.RawMessage
	events <-chan feed.ConnEvent

	liveness    LivenessSink
	producers   ProducerInfo
	eventsUC    EventInvalidator
	statuses    StatusSink
	instruments Instruments

	oddsBuf   *GrowableBuffer[OddsChange]
	marketBuf *GrowableBuffer[MarketEvent]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.RWMutex
	received    int64
	routed      int64
	parseErrors int64
	unknown     int64
}

// NewDispatcher creates a dispatcher over the feed channels.
func NewDispatcher(
	cfg Config,
	input <-chan feed.RawMessage,
	events <-chan feed.ConnEvent,
	liveness LivenessSink,
	producers ProducerInfo,
	eventCache EventInvalidator,
	statusCache StatusSink,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OddsBufferSize <= 0 {
		cfg.OddsBufferSize = DefaultConfig().OddsBufferSize
	}
	if cfg.MarketBufferSize <= 0 {
		cfg.MarketBufferSize = DefaultConfig().MarketBufferSize
	}

	return &Dispatcher{
		cfg:       cfg,
		logger:    logger,
		input:     input,
		events:    events,
		liveness:  liveness,
		producers: producers,
		eventsUC:  eventCache,
		statuses:  statusCache,
		oddsBuf:   NewGrowableBuffer[OddsChange](cfg.OddsBufferSize),
		marketBuf: NewGrowableBuffer[MarketEvent](cfg.MarketBufferSize),
	}
}

// SetInstruments wires the telemetry sink. Must be called before Start.
func (d *Dispatcher) SetInstruments(in Instruments) {
	d.instruments = in
}

// Start begins routing messages.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.routeLoop()
	}()

	d.logger.Info("dispatcher started",
		"odds_buffer", d.cfg.OddsBufferSize,
		"market_buffer", d.cfg.MarketBufferSize,
	)
	return nil
}

// Stop gracefully shuts down and closes the output buffers.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
	case <-ctx.Done():
		d.logger.Warn("dispatcher stop timed out")
	}

	d.oddsBuf.Close()
	d.marketBuf.Close()
	return nil
}

// OddsChanges returns the buffer of priced odds updates.
func (d *Dispatcher) OddsChanges() *GrowableBuffer[OddsChange] {
	return d.oddsBuf
}

// MarketEvents returns the buffer of stop/cancel/settlement events.
func (d *Dispatcher) MarketEvents() *GrowableBuffer[MarketEvent] {
	return d.marketBuf
}

// Stats returns current statistics.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return Stats{
		MessagesReceived: d.received,
		MessagesRouted:   d.routed,
		ParseErrors:      d.parseErrors,
		UnknownMessages:  d.unknown,
		OddsBuffer:       d.oddsBuf.Stats(),
		MarketBuffer:     d.marketBuf.Stats(),
	}
}

func (d *Dispatcher) routeLoop() {
	for {
		select {
		case <-d.ctx.Done():
			return
		case ev, ok := <-d.events:
			if !ok {
				continue
			}
			switch ev.Type {
			case feed.ConnUp:
				d.liveness.OnFeedUp()
				if d.instruments != nil {
					d.instruments.ObserveFeedConnected(true)
				}
			case feed.ConnDown:
				d.liveness.OnFeedDown()
				if d.instruments != nil {
					d.instruments.ObserveFeedConnected(false)
				}
			}
		case raw, ok := <-d.input:
			if !ok {
				d.logger.Info("feed channel closed")
				return
			}
			d.route(raw)
		}
	}
}

// route parses and routes a single frame.
func (d *Dispatcher) route(raw feed.RawMessage) {
	d.mu.Lock()
	d.received++
	d.mu.Unlock()

	env, err := parseEnvelope(raw.Data)
	if err != nil {
		d.logger.Warn("failed to parse message envelope", "error", err)
		d.countParseError()
		return
	}

	if d.instruments != nil {
		d.instruments.ObserveMessage(env.Type)
	}

	key := routing.Parse(env.RoutingKey)

	switch env.Type {
	case typeAlive:
		d.liveness.RecordAlive(env.Product, raw.ReceivedAt)

	case typeSnapshotComplete:
		d.liveness.OnSnapshotComplete(env.Product, env.RequestID)

	case typeFixtureChange:
		d.liveness.RecordAlive(env.Product, raw.ReceivedAt)
		d.handleFixtureChange(env, key)

	case typeOddsChange:
		d.liveness.RecordAlive(env.Product, raw.ReceivedAt)
		d.handleOddsChange(env, key, raw.ReceivedAt)

	case typeBetStop, typeBetCancel, typeRollbackBetCancel, typeBetSettlement:
		d.liveness.RecordAlive(env.Product, raw.ReceivedAt)
		d.handleMarketEvent(env, key, raw.ReceivedAt)

	default:
		d.logger.Debug("unknown message type", "type", env.Type, "routing_key", env.RoutingKey)
		d.mu.Lock()
		d.unknown++
		d.mu.Unlock()
		return
	}

	d.mu.Lock()
	d.routed++
	d.mu.Unlock()
	if d.instruments != nil {
		d.instruments.ObserveRouted(env.Type)
	}
}

// handleFixtureChange invalidates the cached event and its status. The
// forced re-fetch mark is skipped for virtual producers, whose fixtures
// do not need the non-cached endpoint.
func (d *Dispatcher) handleFixtureChange(env envelope, key routing.Key) {
	eventID := d.eventID(env, key)
	if !eventID.Valid() {
		d.logger.Warn("fixture change without event id", "routing_key", env.RoutingKey)
		d.countParseError()
		return
	}

	if !d.producers.IsVirtual(env.Product) {
		d.eventsUC.MarkFixtureChange(eventID)
	}
	d.eventsUC.Purge(eventID)
	d.statuses.Purge(eventID)

	d.logger.Debug("fixture invalidated",
		"event_id", eventID,
		"change_type", env.ChangeType,
	)
}

func (d *Dispatcher) handleOddsChange(env envelope, key routing.Key, receivedAt time.Time) {
	eventID := d.eventID(env, key)
	if !eventID.Valid() {
		d.logger.Warn("odds change without event id", "routing_key", env.RoutingKey)
		d.countParseError()
		return
	}

	if env.Status != nil {
		d.statuses.Merge(eventID, *env.Status)
	}

	markets := make([]MarketUpdate, 0, len(env.Markets))
	for _, m := range env.Markets {
		upd := MarketUpdate{
			ID:         m.ID,
			Specifiers: m.Specifiers,
			Status:     m.Status,
			Outcomes:   make([]OutcomeOdds, 0, len(m.Outcomes)),
		}
		for _, o := range m.Outcomes {
			upd.Outcomes = append(upd.Outcomes, OutcomeOdds{
				ID:     o.ID,
				Odds:   o.Odds,
				Active: o.Active == nil || *o.Active,
			})
		}
		markets = append(markets, upd)
	}

	d.oddsBuf.Send(OddsChange{
		Producer:   env.Product,
		EventID:    eventID,
		RoutingKey: key,
		Markets:    markets,
		SentAt:     env.sentAt(),
		ReceivedAt: receivedAt,
	})
}

// handleMarketEvent translates a stop/cancel/settlement payload into a
// MarketEvent. A bet stop riding a status block also merges it into the
// status cache; nothing here touches the entity caches.
func (d *Dispatcher) handleMarketEvent(env envelope, key routing.Key, receivedAt time.Time) {
	eventID := d.eventID(env, key)
	if !eventID.Valid() {
		d.logger.Warn("market message without event id",
			"type", env.Type,
			"routing_key", env.RoutingKey,
		)
		d.countParseError()
		return
	}

	ev := MarketEvent{
		Producer:   env.Product,
		EventID:    eventID,
		RoutingKey: key,
		SentAt:     env.sentAt(),
		ReceivedAt: receivedAt,
	}

	switch env.Type {
	case typeBetStop:
		ev.Kind = KindBetStop
		ev.Groups = env.Groups
		ev.MarketStatus = env.MarketStatus
		if env.Status != nil {
			d.statuses.Merge(eventID, *env.Status)
		}

	case typeBetCancel:
		ev.Kind = KindBetCancel
		ev.Markets = marketRefs(env.Markets)
		if env.StartTime != 0 {
			ev.StartTime = time.UnixMilli(env.StartTime)
		}
		if env.EndTime != 0 {
			ev.EndTime = time.UnixMilli(env.EndTime)
		}

	case typeRollbackBetCancel:
		ev.Kind = KindRollbackBetCancel
		ev.Markets = marketRefs(env.Markets)

	case typeBetSettlement:
		ev.Kind = KindBetSettlement
		ev.Certainty = env.Certainty
		ev.Settled = make([]SettledMarket, 0, len(env.Markets))
		for _, m := range env.Markets {
			sm := SettledMarket{
				ID:         m.ID,
				Specifiers: m.Specifiers,
				Outcomes:   make([]SettledOutcome, 0, len(m.Outcomes)),
			}
			for _, o := range m.Outcomes {
				result := 0
				if o.Result != nil {
					result = *o.Result
				}
				sm.Outcomes = append(sm.Outcomes, SettledOutcome{ID: o.ID, Result: result})
			}
			ev.Settled = append(ev.Settled, sm)
		}
	}

	d.marketBuf.Send(ev)
}

// eventID resolves the event id from the payload, falling back to the
// routing key scope.
func (d *Dispatcher) eventID(env envelope, key routing.Key) urn.URN {
	if env.EventID != "" {
		if id, err := urn.Parse(env.EventID); err == nil {
			return id
		}
	}
	return key.EventID
}

func (d *Dispatcher) countParseError() {
	d.mu.Lock()
	d.parseErrors++
	d.mu.Unlock()
	if d.instruments != nil {
		d.instruments.ObserveParseError()
	}
}

func marketRefs(wire []marketWire) []MarketRef {
	refs := make([]MarketRef, 0, len(wire))
	for _, m := range wire {
		refs = append(refs, MarketRef{ID: m.ID, Specifiers: m.Specifiers})
	}
	return refs
}

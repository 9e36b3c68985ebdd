package producer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecoveryRequester issues a recovery request for one producer.
// Satisfied by the API client.
type RecoveryRequester interface {
	InitiateRecovery(ctx context.Context, producer, requestID string, after time.Time) error
}

// Config holds recovery manager configuration.
type Config struct {
	// CheckInterval is the health-check tick granularity.
	CheckInterval time.Duration

	// RetryInterval is the minimum gap between recovery requests for a
	// producer that stays Down.
	RetryInterval time.Duration

	// MaxAfterAge caps the recovery window. A producer down for longer
	// gets a full snapshot instead of a bounded replay.
	MaxAfterAge time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval: 3 * time.Second,
		RetryInterval: 30 * time.Second,
		MaxAfterAge:   72 * time.Hour,
	}
}

// Manager drives the per-producer liveness state machine. Alive signals
// arrive from the dispatcher, timer ticks from the manager's own health
// loop; both paths serialize through the registry's locks.
type Manager struct {
	cfg       Config
	registry  *Registry
	requester RecoveryRequester
	logger    *slog.Logger

	// nowFn is swapped in tests.
	nowFn func() time.Time

	// feedUp tracks transport availability. Recovery requests are held
	// back while the feed connection is down.
	mu     sync.Mutex
	feedUp bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a recovery manager over the registry.
func NewManager(cfg Config, registry *Registry, requester RecoveryRequester, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultConfig().CheckInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultConfig().RetryInterval
	}
	if cfg.MaxAfterAge <= 0 {
		cfg.MaxAfterAge = DefaultConfig().MaxAfterAge
	}

	return &Manager{
		cfg:       cfg,
		registry:  registry,
		requester: requester,
		logger:    logger,
		nowFn:     time.Now,
	}
}

// Start seeds liveness timestamps and begins the health-check loop.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	now := m.nowFn()
	for _, p := range m.registry.All() {
		m.registry.recordAlive(p.ID, now)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.healthLoop(m.ctx)
	}()

	m.logger.Info("recovery manager started",
		"producers", len(m.registry.All()),
		"check_interval", m.cfg.CheckInterval,
	)
	return nil
}

// Stop gracefully shuts down.
func (m *Manager) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("recovery manager stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordAlive refreshes a producer's liveness timestamp. Called for
// every alive message and for every event-scoped message from the
// producer. It never changes state on its own.
func (m *Manager) RecordAlive(producerID int, at time.Time) {
	if !m.registry.recordAlive(producerID, at) {
		m.logger.Warn("alive signal for unknown producer", "producer_id", producerID)
	}
}

// OnSnapshotComplete handles a snapshot-complete system message. The
// producer returns to Up only when the request id matches the in-flight
// recovery.
func (m *Manager) OnSnapshotComplete(producerID int, requestID string) {
	p, ok := m.registry.Producer(producerID)
	if !ok {
		m.logger.Warn("snapshot complete for unknown producer", "producer_id", producerID)
		return
	}

	now := m.nowFn()
	_, ok = m.registry.transition(producerID, StateUp, now,
		func(p *Producer) bool {
			return p.State == StateRecovering && p.RecoveryID == requestID
		},
		func(p *Producer) {
			p.RecoveryID = ""
			p.RecoveryStartedAt = time.Time{}
			p.LastAlive = now
			p.recoverFrom = now
		})
	if !ok {
		m.logger.Warn("ignoring snapshot complete with stale request id",
			"producer", p.Name,
			"request_id", requestID,
		)
		return
	}
	m.logger.Info("producer recovered", "producer", p.Name, "request_id", requestID)
}

// OnFeedDown marks the transport as lost and takes every enabled
// producer Down. Their recovery windows stay anchored at the last alive
// timestamp.
func (m *Manager) OnFeedDown() {
	m.mu.Lock()
	m.feedUp = false
	m.mu.Unlock()

	now := m.nowFn()
	for _, p := range m.registry.All() {
		if !p.Enabled || p.State == StateDown {
			continue
		}
		if _, ok := m.registry.transition(p.ID, StateDown, now, nil, func(p *Producer) {
			p.RecoveryID = ""
			p.RecoveryStartedAt = time.Time{}
		}); ok {
			m.logger.Warn("producer down, feed connection lost", "producer", p.Name)
		}
	}
}

// OnFeedUp marks the transport as available again. Down producers get
// recovery requests on the next health tick.
func (m *Manager) OnFeedUp() {
	m.mu.Lock()
	m.feedUp = true
	m.mu.Unlock()
}

func (m *Manager) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkProducers(ctx)
		}
	}
}

// checkProducers runs one health tick over every enabled producer.
func (m *Manager) checkProducers(ctx context.Context) {
	now := m.nowFn()

	for _, p := range m.registry.All() {
		if !p.Enabled {
			continue
		}

		switch p.State {
		case StateUp:
			if now.Sub(p.LastAlive) > p.MaxInactivity {
				// The guard re-checks under the registry lock: an alive
				// signal may have landed since the snapshot was taken.
				if _, ok := m.registry.transition(p.ID, StateDown, now,
					func(p *Producer) bool {
						return p.State == StateUp && now.Sub(p.LastAlive) > p.MaxInactivity
					}, nil); ok {
					m.logger.Warn("producer down, alive interval violated",
						"producer", p.Name,
						"last_alive", p.LastAlive,
						"max_inactivity", p.MaxInactivity,
					)
				}
			}

		case StateRecovering:
			if now.Sub(p.RecoveryStartedAt) >= p.MaxRecoveryExecution {
				// Guarded so a snapshot_complete landing between the
				// snapshot and this verdict wins; the producer stays Up.
				if _, ok := m.registry.transition(p.ID, StateDown, now,
					func(p *Producer) bool {
						return p.State == StateRecovering && now.Sub(p.RecoveryStartedAt) >= p.MaxRecoveryExecution
					},
					func(p *Producer) {
						p.RecoveryID = ""
						p.RecoveryStartedAt = time.Time{}
					}); ok {
					m.logger.Warn("recovery timed out",
						"producer", p.Name,
						"request_id", p.RecoveryID,
						"started_at", p.RecoveryStartedAt,
					)
				}
			}

		case StateDown:
			m.maybeStartRecovery(ctx, p, now)
		}
	}
}

// maybeStartRecovery issues a recovery request for a Down producer when
// the feed is up and the retry interval has passed.
func (m *Manager) maybeStartRecovery(ctx context.Context, p Producer, now time.Time) {
	m.mu.Lock()
	feedUp := m.feedUp
	m.mu.Unlock()
	if !feedUp {
		return
	}
	if !p.lastRecoveryAttempt.IsZero() && now.Sub(p.lastRecoveryAttempt) < m.cfg.RetryInterval {
		return
	}

	requestID := uuid.NewString()
	after := p.recoverFrom
	if after.IsZero() || now.Sub(after) > m.cfg.MaxAfterAge {
		// Too far behind for a bounded replay, ask for a full snapshot.
		after = time.Time{}
	}

	if err := m.requester.InitiateRecovery(ctx, p.Name, requestID, after); err != nil {
		m.logger.Error("recovery request failed", "producer", p.Name, "err", err)
		m.registry.touchRecoveryAttempt(p.ID, now)
		return
	}

	if _, ok := m.registry.transition(p.ID, StateRecovering, now,
		func(p *Producer) bool { return p.State == StateDown },
		func(p *Producer) {
			p.RecoveryID = requestID
			p.RecoveryStartedAt = now
			p.lastRecoveryAttempt = now
		}); ok {
		m.logger.Info("recovery initiated",
			"producer", p.Name,
			"request_id", requestID,
			"after", after,
		)
	}
}

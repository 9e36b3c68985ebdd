package producer

import (
	"sync"
	"time"
)

// State is the liveness state of one producer.
type State string

const (
	StateUp         State = "up"
	StateDown       State = "down"
	StateRecovering State = "recovering"
)

// ChangeBufferSize bounds the status-change channel. When the consumer
// falls behind the oldest notification is dropped.
const ChangeBufferSize = 64

// Producer is one upstream message source. All mutation happens inside
// the recovery manager; everyone else reads snapshots.
type Producer struct {
	ID      int
	Name    string
	Enabled bool
	Virtual bool

	State     State
	LastAlive time.Time

	MaxInactivity        time.Duration
	MaxRecoveryExecution time.Duration

	// RecoveryID is the request id of the in-flight recovery, empty
	// outside StateRecovering.
	RecoveryID        string
	RecoveryStartedAt time.Time

	// recoverFrom is the timestamp the next recovery window opens at:
	// the last moment the producer was known healthy.
	recoverFrom time.Time

	// lastRecoveryAttempt rate-limits repeated recovery requests for a
	// producer that stays Down.
	lastRecoveryAttempt time.Time
}

// StatusChange is one producer state transition, emitted in transition
// order.
type StatusChange struct {
	ProducerID int
	Name       string
	From       State
	To         State
	At         time.Time
}

// Registry holds every configured producer. Reads return copies so
// callers never observe a producer mid-transition.
type Registry struct {
	mu        sync.RWMutex
	producers map[int]*Producer

	changes chan StatusChange
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		producers: make(map[int]*Producer),
		changes:   make(chan StatusChange, ChangeBufferSize),
	}
}

// Add registers a producer. Its initial state is Up with LastAlive set
// by the recovery manager on start. Adding twice replaces the entry.
func (r *Registry) Add(p Producer) {
	if p.State == "" {
		p.State = StateUp
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := p
	r.producers[p.ID] = &entry
}

// Producer returns a snapshot of one producer.
func (r *Registry) Producer(id int) (Producer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.producers[id]
	if !ok {
		return Producer{}, false
	}
	return *p, true
}

// All returns a snapshot of every registered producer.
func (r *Registry) All() []Producer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Producer, 0, len(r.producers))
	for _, p := range r.producers {
		out = append(out, *p)
	}
	return out
}

// IsVirtual reports whether the producer is a virtual/test producer.
// Unknown producers are not virtual.
func (r *Registry) IsVirtual(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.producers[id]
	return ok && p.Virtual
}

// Changes returns the status-change channel. One notification per
// transition, in transition order per producer.
func (r *Registry) Changes() <-chan StatusChange {
	return r.changes
}

// recordAlive refreshes the liveness timestamp. It never changes state;
// transitions happen only in the manager's explicit paths.
func (r *Registry) recordAlive(id int, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.producers[id]
	if !ok {
		return false
	}
	if at.After(p.LastAlive) {
		p.LastAlive = at
	}
	if p.State == StateUp {
		p.recoverFrom = p.LastAlive
	}
	return true
}

// touchRecoveryAttempt records a failed recovery request so the next
// attempt waits out the retry interval.
func (r *Registry) touchRecoveryAttempt(id int, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.producers[id]; ok {
		p.lastRecoveryAttempt = at
	}
}

// transition moves one producer to a new state under the write lock.
// check runs under the same lock and aborts the transition when it
// returns false, so decisions made against an earlier snapshot are
// re-validated against the current state. The notification is sent
// before the lock is released; the send never blocks, and holding the
// lock keeps the channel in commit order per producer.
func (r *Registry) transition(id int, to State, at time.Time, check func(*Producer) bool, mutate func(*Producer)) (StatusChange, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.producers[id]
	if !ok || p.State == to {
		return StatusChange{}, false
	}
	if check != nil && !check(p) {
		return StatusChange{}, false
	}

	change := StatusChange{
		ProducerID: p.ID,
		Name:       p.Name,
		From:       p.State,
		To:         to,
		At:         at,
	}
	p.State = to
	if mutate != nil {
		mutate(p)
	}

	r.notifyChange(change)
	return change, true
}

// notifyChange sends a change without blocking. When the buffer is full
// the oldest entry is dropped in favour of the newest.
func (r *Registry) notifyChange(change StatusChange) {
	select {
	case r.changes <- change:
	default:
		select {
		case <-r.changes:
			r.changes <- change
		default:
		}
	}
}

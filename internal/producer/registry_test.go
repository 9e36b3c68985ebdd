package producer

import (
	"sync"
	"testing"
	"time"
)

func TestRegistrySnapshotIsolation(t *testing.T) {
	reg := NewRegistry()
	reg.Add(Producer{ID: 1, Name: "liveodds", Enabled: true})

	p, ok := reg.Producer(1)
	if !ok {
		t.Fatal("producer not found")
	}
	p.Name = "mutated"

	again, _ := reg.Producer(1)
	if again.Name != "liveodds" {
		t.Errorf("Name = %q, snapshot mutation leaked into registry", again.Name)
	}
}

func TestRegistryTransitionSkipsSameState(t *testing.T) {
	reg := NewRegistry()
	reg.Add(Producer{ID: 1, Name: "liveodds"})

	if _, ok := reg.transition(1, StateUp, time.Now(), nil, nil); ok {
		t.Error("transition to current state must be a no-op")
	}
	if len(reg.changes) != 0 {
		t.Errorf("len(changes) = %d, want 0", len(reg.changes))
	}
}

func TestRegistryTransitionGuardRejectsStaleDecision(t *testing.T) {
	reg := NewRegistry()
	reg.Add(Producer{ID: 1, Name: "liveodds", State: StateRecovering, RecoveryID: "req-1"})

	// A health tick reads the producer as Recovering past its deadline,
	// but the snapshot completes before the tick's verdict lands.
	if _, ok := reg.transition(1, StateUp, time.Now(), nil, func(p *Producer) {
		p.RecoveryID = ""
	}); !ok {
		t.Fatal("recovery completion transition failed")
	}

	// The stale verdict re-checks under the lock and aborts.
	_, ok := reg.transition(1, StateDown, time.Now(), func(p *Producer) bool {
		return p.State == StateRecovering
	}, nil)
	if ok {
		t.Fatal("stale transition applied, want guard rejection")
	}
	if p, _ := reg.Producer(1); p.State != StateUp {
		t.Errorf("state = %q, want up", p.State)
	}
	if len(reg.changes) != 1 {
		t.Errorf("len(changes) = %d, want 1 (recovery completion only)", len(reg.changes))
	}
}

func TestRegistryNotificationsFollowCommitOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Add(Producer{ID: 1, Name: "liveodds"})

	// Two writers race over the same producer; every published change
	// must chain onto the previous one.
	states := []State{StateDown, StateRecovering, StateUp}
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				reg.transition(1, states[i%len(states)], time.Now(), nil, nil)
			}
		}()
	}
	wg.Wait()

	prev := StateUp
	for len(reg.changes) > 0 {
		ch := <-reg.changes
		if ch.From != prev {
			t.Fatalf("change %s->%s does not follow committed state %s", ch.From, ch.To, prev)
		}
		prev = ch.To
	}
}

func TestNotifyChangeDropsOldestWhenFull(t *testing.T) {
	reg := NewRegistry()

	for i := 0; i < ChangeBufferSize+1; i++ {
		reg.notifyChange(StatusChange{ProducerID: i})
	}

	if len(reg.changes) != ChangeBufferSize {
		t.Fatalf("len(changes) = %d, want %d", len(reg.changes), ChangeBufferSize)
	}

	first := <-reg.changes
	if first.ProducerID != 1 {
		t.Errorf("first queued id = %d, want 1 (oldest dropped)", first.ProducerID)
	}

	var last StatusChange
	for len(reg.changes) > 0 {
		last = <-reg.changes
	}
	if last.ProducerID != ChangeBufferSize {
		t.Errorf("last queued id = %d, want %d", last.ProducerID, ChangeBufferSize)
	}
}

func TestIsVirtual(t *testing.T) {
	reg := NewRegistry()
	reg.Add(Producer{ID: 1, Name: "liveodds"})
	reg.Add(Producer{ID: 2, Name: "virtual-sports", Virtual: true})

	if reg.IsVirtual(1) {
		t.Error("IsVirtual(1) = true, want false")
	}
	if !reg.IsVirtual(2) {
		t.Error("IsVirtual(2) = false, want true")
	}
	if reg.IsVirtual(99) {
		t.Error("IsVirtual(unknown) = true, want false")
	}
}

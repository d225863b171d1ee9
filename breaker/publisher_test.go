package breaker

import (
	"testing"
	"time"
)

func TestSubscribeReceivesNotifications(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	var got []Snapshot
	unsub := b.Subscribe(func(s Snapshot) { got = append(got, s) })
	defer unsub()

	b.RecordFailure(connFailure())

	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if got[0].FailureCount != 1 {
		t.Errorf("snapshot failure count = %d, want 1", got[0].FailureCount)
	}
	if got[0].IsServerReachable {
		t.Error("snapshot should mark server unreachable")
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	var first, second int
	unsubFirst := b.Subscribe(func(Snapshot) { first++ })
	unsubSecond := b.Subscribe(func(Snapshot) { second++ })
	defer unsubSecond()

	b.RecordFailure(connFailure())
	unsubFirst()
	b.RecordFailure(connFailure())

	if first != 1 {
		t.Errorf("unsubscribed listener received %d notifications, want 1", first)
	}
	if second != 2 {
		t.Errorf("remaining listener received %d notifications, want 2", second)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	unsub := b.Subscribe(func(Snapshot) {})
	unsub()
	unsub() // must not panic or affect other listeners

	var count int
	defer b.Subscribe(func(Snapshot) { count++ })()

	b.RecordFailure(connFailure())
	if count != 1 {
		t.Errorf("expected 1 notification, got %d", count)
	}
}

func TestListenersInvokedInRegistrationOrder(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	var order []string
	defer b.Subscribe(func(Snapshot) { order = append(order, "a") })()
	defer b.Subscribe(func(Snapshot) { order = append(order, "b") })()
	defer b.Subscribe(func(Snapshot) { order = append(order, "c") })()

	b.RecordFailure(connFailure())

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestPanickingListenerDoesNotStopOthers(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	var after int
	defer b.Subscribe(func(Snapshot) { panic("listener exploded") })()
	defer b.Subscribe(func(Snapshot) { after++ })()

	b.RecordFailure(connFailure())

	if after != 1 {
		t.Errorf("listener after the panicking one received %d notifications, want 1", after)
	}
	// Breaker state is unaffected by the listener failure.
	if b.FailureCount() != 1 {
		t.Errorf("failure count = %d, want 1", b.FailureCount())
	}
}

func TestLazyTransitionNotifiesListeners(t *testing.T) {
	b := New(testConfig())
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.RecordFailure(connFailure())
	}

	var states []State
	defer b.Subscribe(func(s Snapshot) { states = append(states, s.State) })()

	time.Sleep(60 * time.Millisecond)
	b.CanProceed()

	if len(states) != 1 || states[0] != StateHalfOpen {
		t.Errorf("expected one half-open notification, got %v", states)
	}
}

func TestCloseClearsListeners(t *testing.T) {
	b := New(testConfig())

	var count int
	b.Subscribe(func(Snapshot) { count++ })
	b.Close()

	if b.pub.count() != 0 {
		t.Errorf("expected 0 listeners after Close, got %d", b.pub.count())
	}
}

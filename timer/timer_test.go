package timer

import (
	"testing"
	"time"
)

func TestScheduleDeliversCallbackToChannel(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	fired := make(chan struct{}, 1)
	m.Schedule(50*time.Millisecond, 0, func() { fired <- struct{}{} })

	select {
	case fn := <-m.C:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("Due callback was never delivered")
	}

	select {
	case <-fired:
	default:
		t.Fatal("Delivered callback did not run")
	}
}

func TestIntervalTaskRepeats(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	m.Schedule(50*time.Millisecond, 50*time.Millisecond, func() {})

	for i := 0; i < 2; i++ {
		select {
		case <-m.C:
		case <-time.After(2 * time.Second):
			t.Fatalf("Interval task only fired %d times", i)
		}
	}
}

func TestCancelPreventsDelivery(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	id := m.Schedule(time.Hour, 0, func() {})
	if !m.Cancel(id) {
		t.Fatal("Cancel should find the pending task")
	}
	if m.Cancel(id) {
		t.Error("Cancelling twice should fail")
	}

	select {
	case <-m.C:
		t.Fatal("Cancelled task must not be delivered")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestOrderFollowsDeadlines(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var order []int
	run := func(n int) func() { return func() { order = append(order, n) } }

	// 先注册晚到期的
	m.Schedule(150*time.Millisecond, 0, run(2))
	m.Schedule(50*time.Millisecond, 0, run(1))

	for i := 0; i < 2; i++ {
		select {
		case fn := <-m.C:
			fn()
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for tasks")
		}
	}

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("Expected delivery order [1 2], got %v", order)
	}
}

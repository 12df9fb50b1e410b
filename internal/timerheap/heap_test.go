package timerheap

import "testing"

func TestAddFiresInExpiryOrder(t *testing.T) {
	now := int64(1000)
	h := New(func() int64 { return now })

	var fired []int
	_ = h.Add(1, 30, func(fd int) { fired = append(fired, fd) })
	_ = h.Add(2, 10, func(fd int) { fired = append(fired, fd) })
	_ = h.Add(3, 20, func(fd int) { fired = append(fired, fd) })

	now = 1025
	next := h.Tick()
	if len(fired) != 2 || fired[0] != 2 || fired[1] != 3 {
		t.Fatalf("expected fds 2,3 fired in order, got %v", fired)
	}
	if next != 5 {
		t.Fatalf("expected 5ms until fd 1 expires, got %d", next)
	}
}

func TestAddDuplicateFdErrors(t *testing.T) {
	h := New(func() int64 { return 0 })
	if err := h.Add(1, 100, func(int) {}); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := h.Add(1, 100, func(int) {}); err == nil {
		t.Fatal("expected duplicate-fd error")
	}
}

func TestAdjustPostponesExpiry(t *testing.T) {
	now := int64(0)
	h := New(func() int64 { return now })
	fired := false
	_ = h.Add(1, 10, func(int) { fired = true })

	now = 5
	h.Adjust(1, 10) // new expiry = 15

	now = 12
	h.Tick()
	if fired {
		t.Fatal("timer fired before adjusted expiry")
	}

	now = 16
	h.Tick()
	if !fired {
		t.Fatal("timer did not fire after adjusted expiry")
	}
}

func TestCancelSuppressesCallback(t *testing.T) {
	now := int64(0)
	h := New(func() int64 { return now })
	fired := false
	_ = h.Add(1, 10, func(int) { fired = true })
	h.Cancel(1)

	now = 20
	h.Tick()
	if fired {
		t.Fatal("cancelled timer still fired")
	}
	if h.Len() != 0 {
		t.Fatalf("expected 0 live nodes, got %d", h.Len())
	}
}

func TestTickReturnsMinusOneWhenEmpty(t *testing.T) {
	h := New(func() int64 { return 0 })
	if got := h.Tick(); got != -1 {
		t.Fatalf("expected -1 on empty heap, got %d", got)
	}
}

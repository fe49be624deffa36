package hatch

import (
	"errors"
	"testing"
)

func TestSendNow_full(t *testing.T) {
	for i := 0; i < 1_000; i++ {
		s, _ := New[int](nil)
		if _, replaced, err := s.Send(42).Now(); replaced || err != nil {
			t.Fatal(replaced, err)
		}
		op := s.Send(420)
		if _, _, err := op.Now(); !errors.Is(err, ErrExisting) {
			t.Fatal(err)
		}
		if v := op.Value(); v != 420 {
			t.Fatal(v)
		}
	}
}

func TestSendNow_overwrite(t *testing.T) {
	for i := 0; i < 1_000; i++ {
		s, r := New[int](nil)
		if _, _, err := s.Send(42).Now(); err != nil {
			t.Fatal(err)
		}
		prev, replaced, err := s.Send(420).Overwrite(true).Now()
		if err != nil || !replaced || prev != 42 {
			t.Fatal(prev, replaced, err)
		}
		if v, ok, err := r.Receive().Now(); err != nil || !ok || v != 420 {
			t.Fatal(v, ok, err)
		}
	}
}

func TestSendNow_senderOverwriteOption(t *testing.T) {
	s, r := New[int](nil)
	s.Overwrite(true)
	if _, _, err := s.Send(1).Now(); err != nil {
		t.Fatal(err)
	}
	// inherited from the handle
	if prev, replaced, err := s.Send(2).Now(); err != nil || !replaced || prev != 1 {
		t.Fatal(prev, replaced, err)
	}
	// per-operation override
	if _, _, err := s.Send(3).Overwrite(false).Now(); !errors.Is(err, ErrExisting) {
		t.Fatal(err)
	}
	if v, ok, err := r.Receive().Now(); err != nil || !ok || v != 2 {
		t.Fatal(v, ok, err)
	}
}

func TestSendNow_receiverClosed(t *testing.T) {
	for i := 0; i < 1_000; i++ {
		s, r := New[int](nil)
		_ = r.Close()
		op := s.Send(42)
		if _, _, err := op.Now(); !errors.Is(err, ErrClosed) {
			t.Fatal(err)
		}
		if v := op.Value(); v != 42 {
			t.Fatal(v)
		}
		if !s.IsClosed() {
			t.Fatal(`expected close to be visible to the sender`)
		}
	}
}

func TestSendNow_closeOnReceive(t *testing.T) {
	for i := 0; i < 1_000; i++ {
		s, r := New[int](nil)
		if _, _, err := s.Send(42).Now(); err != nil {
			t.Fatal(err)
		}
		if v, ok, err := r.Receive().CloseOnReceive(true).Now(); err != nil || !ok || v != 42 {
			t.Fatal(v, ok, err)
		}
		if _, _, err := s.Send(42).Now(); !errors.Is(err, ErrClosed) {
			t.Fatal(err)
		}
	}
}

func TestSendNow_senderClosed(t *testing.T) {
	s, _ := New[int](nil)
	_ = s.Close()
	if _, _, err := s.Send(42).Now(); !errors.Is(err, ErrClosed) {
		t.Fatal(err)
	}
}

func TestReceiveNow_empty(t *testing.T) {
	for i := 0; i < 1_000; i++ {
		s, r := New[int](nil)
		if v, ok, err := r.Receive().Now(); ok || err != nil || v != 0 {
			t.Fatal(v, ok, err)
		}
		if v, ok, err := r.Receive().Now(); ok || err != nil || v != 0 {
			t.Fatal(v, ok, err)
		}
		if _, _, err := s.Send(42).Now(); err != nil {
			t.Fatal(err)
		}
		if v, ok, err := r.Receive().Now(); err != nil || !ok || v != 42 {
			t.Fatal(v, ok, err)
		}
	}
}

func TestReceiveNow_emptySenderClosed(t *testing.T) {
	for i := 0; i < 1_000; i++ {
		s, r := New[int](nil)
		_ = s.Close()
		if _, _, err := r.Receive().Now(); !errors.Is(err, ErrClosed) {
			t.Fatal(err)
		}
	}
}

func TestReceiveNow_fullSenderClosed(t *testing.T) {
	for i := 0; i < 1_000; i++ {
		s, r := New[int](nil)
		if _, _, err := s.Send(42).Now(); err != nil {
			t.Fatal(err)
		}
		_ = s.Close()
		// the value delivered before the close is still received
		if v, ok, err := r.Receive().Now(); err != nil || !ok || v != 42 {
			t.Fatal(v, ok, err)
		}
		if _, _, err := r.Receive().Now(); !errors.Is(err, ErrClosed) {
			t.Fatal(err)
		}
	}
}

func TestReceiveNow_closeOnSend(t *testing.T) {
	for i := 0; i < 1_000; i++ {
		s, r := New[int](nil)
		if _, ok, err := r.Receive().Now(); ok || err != nil {
			t.Fatal(ok, err)
		}
		if _, _, err := s.Send(42).CloseOnSend(true).Now(); err != nil {
			t.Fatal(err)
		}
		if !s.IsClosed() {
			t.Fatal(`expected close on send to close the sender`)
		}
		if v, ok, err := r.Receive().Now(); err != nil || !ok || v != 42 {
			t.Fatal(v, ok, err)
		}
		if _, _, err := r.Receive().Now(); !errors.Is(err, ErrClosed) {
			t.Fatal(err)
		}
	}
}

func TestReceiveNow_receiverClosed(t *testing.T) {
	_, r := New[int](nil)
	_ = r.Close()
	if _, _, err := r.Receive().Now(); !errors.Is(err, ErrClosed) {
		t.Fatal(err)
	}
}

func TestClose_idempotent(t *testing.T) {
	s, r := New[int](nil)
	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := r.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSender_Recover(t *testing.T) {
	s, r := New[int](nil)
	if _, err := s.Recover(); !errors.Is(err, ErrLive) {
		t.Fatal(err)
	}
	// leave an undelivered value to check the reset clears it
	if _, _, err := s.Send(42).Now(); err != nil {
		t.Fatal(err)
	}
	_ = r.Close()
	r2, err := s.Recover()
	if err != nil {
		t.Fatal(err)
	}
	if v, ok, err := r2.Receive().Now(); ok || err != nil || v != 0 {
		t.Fatal(v, ok, err)
	}
	if _, _, err := s.Send(7).Now(); err != nil {
		t.Fatal(err)
	}
	if v, ok, err := r2.Receive().Now(); err != nil || !ok || v != 7 {
		t.Fatal(v, ok, err)
	}
	_ = s.Close()
	if _, err := s.Recover(); !errors.Is(err, ErrClosed) {
		t.Fatal(err)
	}
}

func TestReceiver_Recover(t *testing.T) {
	s, r := New[int](nil)
	if _, err := r.Recover(); !errors.Is(err, ErrLive) {
		t.Fatal(err)
	}
	_ = s.Close()
	s2, err := r.Recover()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s2.Send(7).Now(); err != nil {
		t.Fatal(err)
	}
	if v, ok, err := r.Receive().Now(); err != nil || !ok || v != 7 {
		t.Fatal(v, ok, err)
	}
	_ = r.Close()
	if _, err := r.Recover(); !errors.Is(err, ErrClosed) {
		t.Fatal(err)
	}
}

func TestRecover_repeatedGenerations(t *testing.T) {
	s, r := New[int](nil)
	for i := 0; i < 100; i++ {
		if _, _, err := s.Send(i).Now(); err != nil {
			t.Fatal(i, err)
		}
		if v, ok, err := r.Receive().Now(); err != nil || !ok || v != i {
			t.Fatal(i, v, ok, err)
		}
		_ = r.Close()
		var err error
		if r, err = s.Recover(); err != nil {
			t.Fatal(i, err)
		}
	}
}

func TestNewOneShot(t *testing.T) {
	s, r := NewOneShot[string](nil)
	if _, _, err := s.Send(`hello`).Now(); err != nil {
		t.Fatal(err)
	}
	if !s.IsClosed() {
		t.Fatal(`expected sender closed after one-shot send`)
	}
	if v, ok, err := r.Receive().Now(); err != nil || !ok || v != `hello` {
		t.Fatal(v, ok, err)
	}
	if !r.IsClosed() {
		t.Fatal(`expected receiver closed after one-shot receive`)
	}
	if _, _, err := s.Send(`again`).Now(); !errors.Is(err, ErrClosed) {
		t.Fatal(err)
	}
}

func TestLeak_noCloseVisible(t *testing.T) {
	s, r := New[int](nil)
	s.Leak()
	if !s.IsClosed() {
		t.Fatal(`expected leaked handle to act closed locally`)
	}
	// the partner never finds out
	if _, ok, err := r.Receive().Now(); ok || err != nil {
		t.Fatal(ok, err)
	}
	if r.IsClosed() {
		t.Fatal(`expected leak to be invisible to the partner`)
	}
	r.Leak()
}

func TestOptionGetters(t *testing.T) {
	s, r := New[int](nil)
	if s.HasOverwrite() || s.HasCloseOnSend() || s.HasMarkOnDrop() {
		t.Fatal(s)
	}
	s.Overwrite(true).CloseOnSend(true).MarkOnDrop(true)
	if !s.HasOverwrite() || !s.HasCloseOnSend() || !s.HasMarkOnDrop() {
		t.Fatal(s)
	}
	// operations snapshot the handle's options at creation
	op := s.Send(1)
	if !op.HasOverwrite() || !op.HasCloseOnSend() {
		t.Fatal(op)
	}
	op.Overwrite(false)
	if op.HasOverwrite() || !s.HasOverwrite() {
		t.Fatal(op)
	}
	op.Cancel()
	if r.HasCloseOnReceive() || r.HasMarkOnDrop() {
		t.Fatal(r)
	}
	rop := r.Receive().CloseOnReceive(true)
	if !rop.HasCloseOnReceive() || r.HasCloseOnReceive() {
		t.Fatal(rop)
	}
	rop.Cancel()
}

func TestSending_doubleConsumePanics(t *testing.T) {
	defer func() {
		if r := recover(); r != `hatch: send operation already consumed` {
			t.Fatal(r)
		}
	}()
	s, _ := New[int](nil)
	op := s.Send(42)
	_, _, _ = op.Now()
	_, _, _ = op.Now()
}

func TestReceiving_doubleConsumePanics(t *testing.T) {
	defer func() {
		if r := recover(); r != `hatch: receive operation already consumed` {
			t.Fatal(r)
		}
	}()
	_, r := New[int](nil)
	op := r.Receive()
	_, _, _ = op.Now()
	_, _, _ = op.Now()
}

func TestSending_nilWakerPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != `hatch: nil waker` {
			t.Fatal(r)
		}
	}()
	s, _ := New[int](nil)
	_, _ = s.Send(42).Poll(nil)
}

func TestBorrowed_nilChannelPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != `hatch: nil channel` {
			t.Fatal(r)
		}
	}()
	_, _ = Borrowed[int](nil)
}

func TestExternal_nilReleasePanics(t *testing.T) {
	defer func() {
		if r := recover(); r != `hatch: nil release` {
			t.Fatal(r)
		}
	}()
	_, _ = External[int](NewChannel[int](nil), nil)
}

package router

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"

	"midi-selector/midi"
)

// recorder keeps the order of port operations across fakes
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(ev string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeInput struct {
	name      string
	rec       *recorder
	listenErr error

	mu     sync.Mutex
	fn     func(gomidi.Message)
	closes int
}

func (f *fakeInput) Name() string { return f.name }

func (f *fakeInput) Listen(fn func(gomidi.Message)) (func(), error) {
	if f.listenErr != nil {
		return nil, f.listenErr
	}
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.fn = nil
		f.mu.Unlock()
		f.rec.add("stop " + f.name)
	}, nil
}

// play delivers msgs as the driver thread would
func (f *fakeInput) play(msgs ...gomidi.Message) {
	for _, msg := range msgs {
		f.mu.Lock()
		fn := f.fn
		f.mu.Unlock()
		if fn != nil {
			fn(msg)
		}
	}
}

func (f *fakeInput) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	f.rec.add("close " + f.name)
	return nil
}

type fakeOutput struct {
	name string
	rec  *recorder

	mu      sync.Mutex
	msgs    []gomidi.Message
	sendErr error
	closes  int
}

func (f *fakeOutput) Name() string { return f.name }

func (f *fakeOutput) Send(msg gomidi.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.msgs = append(f.msgs, append(gomidi.Message(nil), msg...))
	if _, ok := midi.NoteEnd(msg); ok {
		f.rec.add("note off " + f.name)
	}
	return nil
}

func (f *fakeOutput) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	f.rec.add("close " + f.name)
	return nil
}

func (f *fakeOutput) setErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *fakeOutput) sent() []gomidi.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gomidi.Message(nil), f.msgs...)
}

func (f *fakeOutput) reset() {
	f.mu.Lock()
	f.msgs = nil
	f.mu.Unlock()
}

// fakeDriver hands out fakes and can fail on one port name
type fakeDriver struct {
	rec    *recorder
	failOn string

	ins  []*fakeInput
	outs []*fakeOutput
}

var errPortBusy = errors.New("port busy")

func (d *fakeDriver) OpenVirtualIn(name string) (midi.Input, error) {
	if name == d.failOn {
		return nil, errPortBusy
	}
	in := &fakeInput{name: name, rec: d.rec}
	d.ins = append(d.ins, in)
	return in, nil
}

func (d *fakeDriver) OpenVirtualOut(name string) (midi.Output, error) {
	if name == d.failOn {
		return nil, errPortBusy
	}
	out := &fakeOutput{name: name, rec: d.rec}
	d.outs = append(d.outs, out)
	return out, nil
}

func (d *fakeDriver) Close() error { return nil }

// flush waits until everything queued before it has been handled
func flush(t *testing.T, l *loop) {
	t.Helper()
	l.do(func() (bool, error) { return false, nil })
}

func assertMessages(t *testing.T, got []gomidi.Message, want ...gomidi.Message) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d messages %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("message %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func assertNotes(t *testing.T, s Status, want ...uint8) {
	t.Helper()
	if len(s.Notes) != len(want) {
		t.Fatalf("active notes = %v, want %v", s.Notes, want)
	}
	for i := range want {
		if s.Notes[i] != want[i] {
			t.Fatalf("active notes = %v, want %v", s.Notes, want)
		}
	}
}

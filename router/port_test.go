package router

import (
	"errors"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"

	"midi-selector/midi"
)

func newTestPortRouter(t *testing.T, labels ...string) (*PortRouter, *fakeInput, map[string]*fakeOutput) {
	t.Helper()
	in := &fakeInput{name: "MIDI-IN"}
	outs := make([]midi.Output, len(labels))
	byLabel := make(map[string]*fakeOutput, len(labels))
	for i, l := range labels {
		o := &fakeOutput{name: "MIDI-" + l}
		outs[i] = o
		byLabel[l] = o
	}
	r, err := NewPortRouter(in, outs, labels)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { r.Shutdown() })
	return r, in, byLabel
}

func TestPortRouterScenario(t *testing.T) {
	r, in, outs := newTestPortRouter(t, "1", "2", "3")

	if got := r.Status().Current; got != "1" {
		t.Fatalf("initial destination = %q, want 1", got)
	}

	in.play(gomidi.NoteOn(0, 60, 100))
	flush(t, r.loop)
	assertMessages(t, outs["1"].sent(), gomidi.NoteOn(0, 60, 100))
	assertNotes(t, r.Status(), 60)

	if !r.OnKey("2") {
		t.Fatal("key 2 reported no change")
	}
	s := r.Status()
	assertNotes(t, s)
	if s.Current != "2" {
		t.Fatalf("current = %q, want 2", s.Current)
	}
	// all notes off reaches every output
	assertMessages(t, outs["1"].sent(), gomidi.NoteOn(0, 60, 100), gomidi.NoteOff(0, 60))
	assertMessages(t, outs["2"].sent(), gomidi.NoteOff(0, 60))
	assertMessages(t, outs["3"].sent(), gomidi.NoteOff(0, 60))

	for _, o := range outs {
		o.reset()
	}
	in.play(gomidi.NoteOn(0, 64, 90))
	flush(t, r.loop)

	assertMessages(t, outs["2"].sent(), gomidi.NoteOn(0, 64, 90))
	assertMessages(t, outs["1"].sent())
	assertMessages(t, outs["3"].sent())
}

func TestPortRouterForwardsUnmodified(t *testing.T) {
	r, in, outs := newTestPortRouter(t, "a", "b")

	in.play(gomidi.ControlChange(7, 1, 64), gomidi.NoteOn(11, 40, 3))
	flush(t, r.loop)

	assertMessages(t, outs["a"].sent(), gomidi.ControlChange(7, 1, 64), gomidi.NoteOn(11, 40, 3))
}

func TestPortRouterNeverForwardsClock(t *testing.T) {
	r, in, outs := newTestPortRouter(t, "1", "2", "3")

	for _, label := range []string{"1", "2", "3", "1"} {
		r.SwitchOutput(label)
		in.play(gomidi.TimingClock())
	}
	flush(t, r.loop)

	for label, o := range outs {
		for _, msg := range o.sent() {
			if midi.Classify(msg) == midi.KindClock {
				t.Errorf("clock delivered to %s", label)
			}
		}
	}
	if s := r.Status(); s.Dropped != 4 || s.Forwarded != 0 {
		t.Errorf("dropped=%d forwarded=%d", s.Dropped, s.Forwarded)
	}
}

func TestPortRouterSwitchNoops(t *testing.T) {
	r, in, outs := newTestPortRouter(t, "1", "2")

	in.play(gomidi.NoteOn(0, 60, 100))
	flush(t, r.loop)
	outs["1"].reset()

	if r.SwitchOutput("1") {
		t.Error("switch to current output reported a change")
	}
	if r.OnKey("9") {
		t.Error("unknown label switched")
	}
	if len(outs["1"].sent())+len(outs["2"].sent()) != 0 {
		t.Error("no-op switch sent messages")
	}
	s := r.Status()
	assertNotes(t, s, 60)
	if s.Current != "1" || s.Switches != 0 {
		t.Errorf("status = %+v", s)
	}
}

func TestPortRouterNoteOffUsesChannelZero(t *testing.T) {
	r, in, outs := newTestPortRouter(t, "1", "2")

	in.play(gomidi.NoteOn(6, 48, 80))
	flush(t, r.loop)
	outs["1"].reset()

	r.SwitchOutput("2")
	assertMessages(t, outs["1"].sent(), gomidi.NoteOff(0, 48))
	assertMessages(t, outs["2"].sent(), gomidi.NoteOff(0, 48))
}

func TestNewPortRouterValidates(t *testing.T) {
	in := &fakeInput{name: "in"}
	a := &fakeOutput{name: "a"}
	b := &fakeOutput{name: "b"}

	cases := []struct {
		name   string
		outs   []midi.Output
		labels []string
	}{
		{"no labels", nil, nil},
		{"count mismatch", []midi.Output{a}, []string{"1", "2"}},
		{"duplicate", []midi.Output{a, b}, []string{"1", "1"}},
		{"empty", []midi.Output{a, b}, []string{"1", ""}},
		{"nil output", []midi.Output{a, nil}, []string{"1", "2"}},
	}
	for _, tc := range cases {
		if _, err := NewPortRouter(in, tc.outs, tc.labels); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestOpenPortRouter(t *testing.T) {
	drv := &fakeDriver{}

	r, err := OpenPortRouter(drv, "MIDI-IN", "MIDI-", []string{"1", "2", "3", "0", "q"})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Shutdown()

	if len(drv.ins) != 1 || drv.ins[0].name != "MIDI-IN" {
		t.Errorf("inputs = %+v", drv.ins)
	}
	want := []string{"MIDI-1", "MIDI-2", "MIDI-3", "MIDI-0", "MIDI-q"}
	if len(drv.outs) != len(want) {
		t.Fatalf("opened %d outputs, want %d", len(drv.outs), len(want))
	}
	for i, o := range drv.outs {
		if o.name != want[i] {
			t.Errorf("output %d = %q, want %q", i, o.name, want[i])
		}
	}
	if got := r.Labels(); len(got) != 5 || got[0] != "1" {
		t.Errorf("labels = %v", got)
	}
}

func TestOpenPortRouterCleansUpOnFailure(t *testing.T) {
	drv := &fakeDriver{failOn: "MIDI-3"}

	_, err := OpenPortRouter(drv, "MIDI-IN", "MIDI-", []string{"1", "2", "3"})
	if !errors.Is(err, errPortBusy) {
		t.Fatalf("err = %v, want %v", err, errPortBusy)
	}
	if drv.ins[0].closes != 1 {
		t.Error("input not closed")
	}
	if len(drv.outs) != 2 {
		t.Fatalf("opened %d outputs before failing, want 2", len(drv.outs))
	}
	for _, o := range drv.outs {
		if o.closes != 1 {
			t.Errorf("%s not closed", o.name)
		}
	}
}

package midi

import (
	"bytes"
	"strings"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		msg  gomidi.Message
		want Kind
	}{
		{gomidi.NoteOn(1, 60, 100), KindNoteOn},
		{gomidi.NoteOff(1, 60), KindNoteOff},
		{gomidi.ControlChange(2, 7, 90), KindControlChange},
		{gomidi.ProgramChange(3, 12), KindProgramChange},
		{gomidi.Pitchbend(4, -200), KindPitchBend},
		{gomidi.TimingClock(), KindClock},
		{gomidi.Message{0xFA}, KindOther}, // start
	}
	for _, tc := range cases {
		if got := Classify(tc.msg); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.msg, got, tc.want)
		}
	}
}

func TestChannelScoped(t *testing.T) {
	for _, k := range []Kind{KindNoteOn, KindNoteOff, KindControlChange, KindProgramChange, KindPitchBend} {
		if !ChannelScoped(k) {
			t.Errorf("%s should be channel scoped", k)
		}
	}
	for _, k := range []Kind{KindClock, KindOther} {
		if ChannelScoped(k) {
			t.Errorf("%s should not be channel scoped", k)
		}
	}
}

func TestWithChannel(t *testing.T) {
	orig := gomidi.NoteOn(3, 60, 100)
	snapshot := append(gomidi.Message(nil), orig...)

	got := WithChannel(orig, 9)
	if !bytes.Equal(got, gomidi.NoteOn(9, 60, 100)) {
		t.Errorf("WithChannel = %v", got)
	}
	if !bytes.Equal(orig, snapshot) {
		t.Error("original message was modified")
	}
	if ch, ok := Channel(got); !ok || ch != 9 {
		t.Errorf("Channel = %d, %v", ch, ok)
	}

	clock := gomidi.TimingClock()
	if !bytes.Equal(WithChannel(clock, 5), clock) {
		t.Error("system message was rewritten")
	}
	if _, ok := Channel(clock); ok {
		t.Error("clock reported a channel")
	}
}

func TestNoteStartEnd(t *testing.T) {
	if key, ok := NoteStart(gomidi.NoteOn(0, 61, 1)); !ok || key != 61 {
		t.Errorf("NoteStart(note on) = %d, %v", key, ok)
	}
	if _, ok := NoteStart(gomidi.NoteOn(0, 61, 0)); ok {
		t.Error("velocity 0 note on counted as a start")
	}
	if _, ok := NoteStart(gomidi.NoteOff(0, 61)); ok {
		t.Error("note off counted as a start")
	}

	if key, ok := NoteEnd(gomidi.NoteOn(0, 62, 0)); !ok || key != 62 {
		t.Errorf("NoteEnd(velocity 0) = %d, %v", key, ok)
	}
	if key, ok := NoteEnd(gomidi.NoteOff(4, 63)); !ok || key != 63 {
		t.Errorf("NoteEnd(note off) = %d, %v", key, ok)
	}
	if _, ok := NoteEnd(gomidi.NoteOn(0, 64, 10)); ok {
		t.Error("sounding note on counted as an end")
	}
}

func TestNoteOffHasZeroVelocity(t *testing.T) {
	var ch, key, vel uint8
	if !NoteOff(2, 70).GetNoteOff(&ch, &key, &vel) {
		t.Fatal("not a note off")
	}
	if ch != 2 || key != 70 || vel != 0 {
		t.Errorf("got ch=%d key=%d vel=%d", ch, key, vel)
	}
}

func TestNoteName(t *testing.T) {
	for note, want := range map[uint8]string{0: "C-1", 60: "C4", 61: "C#4", 69: "A4", 127: "G9"} {
		if got := NoteName(note); got != want {
			t.Errorf("NoteName(%d) = %s, want %s", note, got, want)
		}
	}
}

func TestDescribe(t *testing.T) {
	cases := map[string]gomidi.Message{
		"NoteOn ch=1 key=60 vel=100": gomidi.NoteOn(1, 60, 100),
		"CC ch=0 ctl=7 val=64":       gomidi.ControlChange(0, 7, 64),
		"ProgramChange ch=2 prog=5":  gomidi.ProgramChange(2, 5),
		"Clock":                      gomidi.TimingClock(),
	}
	for want, msg := range cases {
		if got := Describe(msg); got != want {
			t.Errorf("Describe = %q, want %q", got, want)
		}
	}
	if got := Describe(gomidi.Message{0xF6}); !strings.Contains(got, "F6") {
		t.Errorf("Describe(tune request) = %q", got)
	}
}

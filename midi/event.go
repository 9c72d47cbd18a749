package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Kind classifies an inbound message for routing decisions
type Kind int

const (
	KindOther Kind = iota
	KindNoteOn
	KindNoteOff
	KindControlChange
	KindProgramChange
	KindPitchBend
	KindClock
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note_on"
	case KindNoteOff:
		return "note_off"
	case KindControlChange:
		return "control_change"
	case KindProgramChange:
		return "program_change"
	case KindPitchBend:
		return "pitch_bend"
	case KindClock:
		return "clock"
	}
	return "other"
}

// Classify returns the routing kind of msg.
// A note on with velocity 0 is still KindNoteOn; use NoteEnd for note-off semantics.
func Classify(msg gomidi.Message) Kind {
	var channel, a, b uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteOn(&channel, &a, &b):
		return KindNoteOn
	case msg.GetNoteOff(&channel, &a, &b):
		return KindNoteOff
	case msg.GetControlChange(&channel, &a, &b):
		return KindControlChange
	case msg.GetProgramChange(&channel, &a):
		return KindProgramChange
	case msg.GetPitchBend(&channel, &rel, &abs):
		return KindPitchBend
	case msg.Is(gomidi.TimingClockMsg):
		return KindClock
	}
	return KindOther
}

// ChannelScoped reports whether the channel router rewrites this kind
func ChannelScoped(k Kind) bool {
	switch k {
	case KindNoteOn, KindNoteOff, KindControlChange, KindProgramChange, KindPitchBend:
		return true
	}
	return false
}

// WithChannel returns a copy of msg addressed to channel (0-15).
// Messages without a channel nibble are returned unchanged.
func WithChannel(msg gomidi.Message, channel uint8) gomidi.Message {
	if len(msg) == 0 || msg[0] < 0x80 || msg[0] > 0xEF {
		return msg
	}
	out := make(gomidi.Message, len(msg))
	copy(out, msg)
	out[0] = (msg[0] & 0xF0) | (channel & 0x0F)
	return out
}

// Channel returns the channel nibble of a channel message
func Channel(msg gomidi.Message) (uint8, bool) {
	var ch uint8
	if msg.GetChannel(&ch) {
		return ch, true
	}
	return 0, false
}

// NoteStart reports a note on with velocity > 0
func NoteStart(msg gomidi.Message) (key uint8, ok bool) {
	var channel, velocity uint8
	if msg.GetNoteOn(&channel, &key, &velocity) && velocity > 0 {
		return key, true
	}
	return 0, false
}

// NoteEnd reports a note off, or a note on with velocity 0
func NoteEnd(msg gomidi.Message) (key uint8, ok bool) {
	var channel, velocity uint8
	if msg.GetNoteOff(&channel, &key, &velocity) {
		return key, true
	}
	if msg.GetNoteOn(&channel, &key, &velocity) && velocity == 0 {
		return key, true
	}
	return 0, false
}

// NoteOff builds the velocity-0 note off used to silence a tracked note
func NoteOff(channel, key uint8) gomidi.Message {
	return gomidi.NoteOff(channel, key)
}

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName converts a note number to a name like C4 (middle C = 60)
func NoteName(note uint8) string {
	octave := int(note)/12 - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}

// Describe renders a message for logs and the status view
func Describe(msg gomidi.Message) string {
	var channel, key, velocity, ctl, val, prog uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		return fmt.Sprintf("NoteOn ch=%d key=%d vel=%d", channel, key, velocity)
	case msg.GetNoteOff(&channel, &key, &velocity):
		return fmt.Sprintf("NoteOff ch=%d key=%d vel=%d", channel, key, velocity)
	case msg.GetControlChange(&channel, &ctl, &val):
		return fmt.Sprintf("CC ch=%d ctl=%d val=%d", channel, ctl, val)
	case msg.GetProgramChange(&channel, &prog):
		return fmt.Sprintf("ProgramChange ch=%d prog=%d", channel, prog)
	case msg.GetPitchBend(&channel, &rel, &abs):
		return fmt.Sprintf("PitchBend ch=%d val=%d", channel, rel)
	case msg.Is(gomidi.TimingClockMsg):
		return "Clock"
	}
	return fmt.Sprintf("% X", []byte(msg))
}

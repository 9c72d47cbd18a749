package router

import (
	gomidi "gitlab.com/gomidi/midi/v2"

	"midi-selector/midi"
)

// Notes is the set of currently sounding note numbers (0-127).
// It is owned by a single control loop and is not safe for concurrent use.
type Notes struct {
	on  [128]bool
	len int
}

// Add marks key as sounding
func (n *Notes) Add(key uint8) {
	if key > 127 || n.on[key] {
		return
	}
	n.on[key] = true
	n.len++
}

// Remove marks key as silent
func (n *Notes) Remove(key uint8) {
	if key > 127 || !n.on[key] {
		return
	}
	n.on[key] = false
	n.len--
}

func (n *Notes) Has(key uint8) bool {
	return key <= 127 && n.on[key]
}

func (n *Notes) Len() int {
	return n.len
}

func (n *Notes) Clear() {
	n.on = [128]bool{}
	n.len = 0
}

// Keys returns the sounding notes in ascending order
func (n *Notes) Keys() []uint8 {
	keys := make([]uint8, 0, n.len)
	for k, on := range n.on {
		if on {
			keys = append(keys, uint8(k))
		}
	}
	return keys
}

// Track applies a forwarded message: note on (velocity > 0) adds,
// note off or note on with velocity 0 removes
func (n *Notes) Track(msg gomidi.Message) {
	if key, ok := midi.NoteStart(msg); ok {
		n.Add(key)
		return
	}
	if key, ok := midi.NoteEnd(msg); ok {
		n.Remove(key)
	}
}

package tui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tito/keylogger"

	"midi-selector/debug"
)

// ErrKeyboardClosed is returned by RunKeyboard when the device goes away
var ErrKeyboardClosed = errors.New("keyboard device closed")

// KeyEvent is one evdev key event
type KeyEvent struct {
	Code  uint16
	Value int32 // 0 release, 1 press, 2 autorepeat
}

// evdev key codes of the characters usable as selector keys (US layout)
var keyRunes = map[uint16]rune{
	2: '1', 3: '2', 4: '3', 5: '4', 6: '5', 7: '6', 8: '7', 9: '8', 10: '9', 11: '0',
	12: '-', 13: '=',
	16: 'q', 17: 'w', 18: 'e', 19: 'r', 20: 't', 21: 'y', 22: 'u', 23: 'i', 24: 'o', 25: 'p',
	30: 'a', 31: 's', 32: 'd', 33: 'f', 34: 'g', 35: 'h', 36: 'j', 37: 'k', 38: 'l',
	44: 'z', 45: 'x', 46: 'c', 47: 'v', 48: 'b', 49: 'n', 50: 'm',
}

// KeyRune maps a key press to its character. Releases, repeats and keys
// without a character report false.
func KeyRune(ev KeyEvent) (rune, bool) {
	if ev.Value != 1 {
		return 0, false
	}
	r, ok := keyRunes[ev.Code]
	return r, ok
}

// OpenKeyboard reads key events from an input device, so keys switch routes
// while another application has focus. device is /dev/input/eventN, N, or
// part of the device name. Reading evdev needs root or the input group.
func OpenKeyboard(ctx context.Context, device string) (<-chan KeyEvent, error) {
	devs, err := keylogger.NewDevices()
	if err != nil {
		return nil, errors.Wrap(err, "list input devices")
	}

	var dev *keylogger.InputDevice
	for _, d := range devs {
		if matchDevice(device, d.Id, d.Name) {
			dev = d
			break
		}
	}
	if dev == nil {
		return nil, errors.Errorf("no input device matching %q", device)
	}

	in, err := keylogger.NewKeyLogger(dev).Read()
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dev.Name)
	}
	debug.Log("keys", "reading keyboard %s (event%d)", dev.Name, dev.Id)

	events := make(chan KeyEvent, 16)
	go func() {
		defer close(events)
		for ev := range in {
			if ev.Type != keylogger.EV_KEY {
				continue
			}
			select {
			case events <- KeyEvent{Code: ev.Code, Value: ev.Value}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

func matchDevice(device string, id int, name string) bool {
	n := strings.TrimPrefix(strings.TrimPrefix(device, "/dev/input/"), "event")
	if v, err := strconv.Atoi(n); err == nil {
		return v == id
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(device))
}

// RunKeyboard sends every key press from events to rt until ctx is done.
// It fails with ErrKeyboardClosed if events closes first.
func RunKeyboard(ctx context.Context, rt Router, events <-chan KeyEvent, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return ErrKeyboardClosed
			}
			key, ok := KeyRune(ev)
			if !ok {
				continue
			}
			if rt.OnKey(string(key)) {
				fmt.Fprintf(w, "switched: %s\n", rt.Status().LastSwitch)
			}
		}
	}
}

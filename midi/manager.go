package midi

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// ErrScanTimeout is returned when the OS MIDI service does not answer in time
var ErrScanTimeout = errors.New("midi port scan timed out")

// Ports is a snapshot of the port names visible to the system
type Ports struct {
	Ins  []string
	Outs []string
}

// Equal reports whether both snapshots list the same ports
func (p Ports) Equal(o Ports) bool {
	return strings.Join(p.Ins, "\x00") == strings.Join(o.Ins, "\x00") &&
		strings.Join(p.Outs, "\x00") == strings.Join(o.Outs, "\x00")
}

// HasIn reports whether an input with exactly this name exists
func (p Ports) HasIn(name string) bool {
	for _, n := range p.Ins {
		if n == name {
			return true
		}
	}
	return false
}

// ListPorts scans ports, giving up after timeout (CoreMIDI can hang)
func ListPorts(timeout time.Duration) (Ports, error) {
	ch := make(chan Ports, 1)
	go func() {
		var p Ports
		for _, in := range gomidi.GetInPorts() {
			p.Ins = append(p.Ins, in.String())
		}
		for _, out := range gomidi.GetOutPorts() {
			p.Outs = append(p.Outs, out.String())
		}
		sort.Strings(p.Ins)
		sort.Strings(p.Outs)
		ch <- p
	}()

	select {
	case p := <-ch:
		return p, nil
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return Ports{}, ErrScanTimeout
	}
}

// PortWatcher polls the port list and reports changes
type PortWatcher struct {
	events   chan Ports
	pollRate time.Duration
	timeout  time.Duration
	scan     func(time.Duration) (Ports, error)
}

// NewPortWatcher creates a watcher polling at the given rate
func NewPortWatcher(pollRate time.Duration) *PortWatcher {
	return &PortWatcher{
		events:   make(chan Ports, 16),
		pollRate: pollRate,
		timeout:  3 * time.Second,
		scan:     ListPorts,
	}
}

// Events returns a channel of changed port snapshots
func (w *PortWatcher) Events() <-chan Ports {
	return w.events
}

// Run starts the polling loop (blocking - run in goroutine)
func (w *PortWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()
	defer close(w.events)

	var last Ports
	first := true
	check := func() {
		p, err := w.scan(w.timeout)
		if err != nil {
			// skip this scan
			return
		}
		if first || !p.Equal(last) {
			first = false
			last = p
			select {
			case w.events <- p:
			case <-ctx.Done():
			}
		}
	}

	// Initial scan
	check()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

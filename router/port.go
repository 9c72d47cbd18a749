package router

import (
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/multierr"

	"midi-selector/debug"
	"midi-selector/midi"
)

// PortRouter forwards messages unmodified to the selected output port.
// Timing clock is never forwarded.
type PortRouter struct {
	*loop

	labels []string
	outs   map[string]midi.Output
	order  []midi.Output
	label  string
	notes  Notes
}

// NewPortRouter creates a router over already opened ports; outs[i] belongs
// to labels[i] and the first label is the initial destination
func NewPortRouter(in midi.Input, outs []midi.Output, labels []string, opts ...Option) (*PortRouter, error) {
	if len(labels) == 0 {
		return nil, errors.New("no output labels")
	}
	if len(outs) != len(labels) {
		return nil, errors.Errorf("%d outputs for %d labels", len(outs), len(labels))
	}

	r := &PortRouter{
		labels: append([]string(nil), labels...),
		outs:   make(map[string]midi.Output, len(labels)),
		order:  append([]midi.Output(nil), outs...),
		label:  labels[0],
	}
	dests := make([]Destination, 0, len(labels))
	for i, label := range labels {
		if label == "" {
			return nil, errors.Errorf("output %d has an empty label", i+1)
		}
		if outs[i] == nil {
			return nil, errors.Errorf("output %d is nil", i+1)
		}
		if _, dup := r.outs[label]; dup {
			return nil, errors.Errorf("duplicate label %q", label)
		}
		r.outs[label] = outs[i]
		dests = append(dests, Destination{ID: label, Key: label, Name: outs[i].Name()})
	}

	r.loop = newLoop("port", in, r.order, r, dests, applyOptions(opts))
	return r, nil
}

// OpenPortRouter opens the virtual input and one virtual output per label,
// named prefix+label. Any failure closes what was opened and is returned:
// ports are a hard prerequisite.
func OpenPortRouter(drv midi.Driver, inName, prefix string, labels []string, opts ...Option) (*PortRouter, error) {
	in, err := drv.OpenVirtualIn(inName)
	if err != nil {
		return nil, err
	}
	debug.Log("ports", "input %q created", inName)

	outs := make([]midi.Output, 0, len(labels))
	cleanup := func(err error) error {
		err = multierr.Append(err, in.Close())
		for _, out := range outs {
			err = multierr.Append(err, out.Close())
		}
		return err
	}

	for _, label := range labels {
		out, err := drv.OpenVirtualOut(prefix + label)
		if err != nil {
			return nil, cleanup(err)
		}
		debug.Log("ports", "output %q created for key %s", prefix+label, label)
		outs = append(outs, out)
	}

	r, err := NewPortRouter(in, outs, labels, opts...)
	if err != nil {
		return nil, cleanup(err)
	}
	return r, nil
}

// Labels returns the configured labels in order
func (r *PortRouter) Labels() []string {
	return append([]string(nil), r.labels...)
}

// OnKey treats the key itself as a label
func (r *PortRouter) OnKey(key string) bool {
	return r.SwitchOutput(key)
}

// SwitchOutput selects the output for label after silencing tracked notes.
// Unknown labels and the current label are no-ops.
func (r *PortRouter) SwitchOutput(label string) bool {
	if _, ok := r.outs[label]; !ok {
		return false
	}
	return r.do(func() (bool, error) {
		return r.switchOutput(label)
	})
}

func (r *PortRouter) switchOutput(label string) (bool, error) {
	if _, ok := r.outs[label]; !ok || label == r.label {
		return false, nil
	}
	err := r.silence()
	r.label = label
	return true, err
}

func (r *PortRouter) forward(msg gomidi.Message) (bool, error) {
	if midi.Classify(msg) == midi.KindClock {
		return false, nil
	}
	out := r.outs[r.label]
	if err := out.Send(msg); err != nil {
		return false, err
	}
	r.notes.Track(msg)
	return true, nil
}

// silence sends note off (channel 0, velocity 0) for every tracked note to
// every output, not only the active one
func (r *PortRouter) silence() error {
	var err error
	keys := r.notes.Keys()
	for _, out := range r.order {
		for _, key := range keys {
			err = multierr.Append(err, errors.Wrapf(out.Send(midi.NoteOff(0, key)), "note off %d on %s", key, out.Name()))
		}
	}
	r.notes.Clear()
	return err
}

func (r *PortRouter) current() string {
	return r.label
}

func (r *PortRouter) active() []uint8 {
	return r.notes.Keys()
}

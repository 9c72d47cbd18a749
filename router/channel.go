package router

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/multierr"

	"midi-selector/debug"
	"midi-selector/midi"
)

// ChannelRouter forwards everything to one output, rewriting the channel
// of channel-scoped messages to the selected channel
type ChannelRouter struct {
	*loop

	out     midi.Output
	keys    map[string]uint8
	channel uint8
	notes   Notes
}

// NewChannelRouter creates a router over already opened ports.
// keys maps a key press to a channel (0-15); out may be nil, in which case
// messages are dropped.
func NewChannelRouter(in midi.Input, out midi.Output, keys map[string]uint8, opts ...Option) *ChannelRouter {
	o := applyOptions(opts)
	r := &ChannelRouter{
		out:     out,
		keys:    make(map[string]uint8, len(keys)),
		channel: o.initialChannel,
	}
	for k, ch := range keys {
		r.keys[k] = ch & 0x0F
	}

	var outs []midi.Output
	if out != nil {
		outs = append(outs, out)
	}
	r.loop = newLoop("channel", in, outs, r, channelDestinations(r.keys), o)
	return r
}

// OpenChannelRouter opens the virtual input and output and builds the router.
// On failure every port opened so far is closed.
func OpenChannelRouter(drv midi.Driver, inName, outName string, keys map[string]uint8, opts ...Option) (*ChannelRouter, error) {
	out, err := drv.OpenVirtualOut(outName)
	if err != nil {
		return nil, err
	}
	debug.Log("ports", "output %q created", outName)

	in, err := drv.OpenVirtualIn(inName)
	if err != nil {
		return nil, multierr.Append(err, out.Close())
	}
	debug.Log("ports", "input %q created", inName)

	return NewChannelRouter(in, out, keys, opts...), nil
}

func channelDestinations(keys map[string]uint8) []Destination {
	dests := make([]Destination, 0, len(keys))
	for k, ch := range keys {
		dests = append(dests, Destination{
			ID:   channelID(ch),
			Key:  k,
			Name: fmt.Sprintf("Channel %d", ch+1),
		})
	}
	sort.Slice(dests, func(i, j int) bool { return dests[i].Key < dests[j].Key })
	return dests
}

func channelID(ch uint8) string {
	return strconv.Itoa(int(ch))
}

// OnKey switches to the channel mapped to key; unknown keys are ignored
func (r *ChannelRouter) OnKey(key string) bool {
	ch, ok := r.keys[key]
	if !ok {
		return false
	}
	return r.SwitchChannel(ch)
}

// SwitchChannel selects a new channel after silencing tracked notes on the
// current one. Returns false when nothing changed.
func (r *ChannelRouter) SwitchChannel(ch uint8) bool {
	return r.do(func() (bool, error) {
		return r.switchChannel(ch)
	})
}

func (r *ChannelRouter) switchChannel(ch uint8) (bool, error) {
	if ch > 15 || ch == r.channel {
		return false, nil
	}
	err := r.silence()
	r.channel = ch
	return true, err
}

func (r *ChannelRouter) forward(msg gomidi.Message) (bool, error) {
	if midi.ChannelScoped(midi.Classify(msg)) {
		msg = midi.WithChannel(msg, r.channel)
	}
	if r.out == nil {
		return false, nil
	}
	if err := r.out.Send(msg); err != nil {
		return false, err
	}
	r.notes.Track(msg)
	return true, nil
}

// silence sends note off on the current channel for every tracked note
func (r *ChannelRouter) silence() error {
	var err error
	if r.out != nil {
		for _, key := range r.notes.Keys() {
			err = multierr.Append(err, errors.Wrapf(r.out.Send(midi.NoteOff(r.channel, key)), "note off %d", key))
		}
	}
	r.notes.Clear()
	return err
}

func (r *ChannelRouter) current() string {
	return channelID(r.channel)
}

func (r *ChannelRouter) active() []uint8 {
	return r.notes.Keys()
}

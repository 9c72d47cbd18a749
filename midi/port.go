package midi

import (
	"sync"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Input is a port the router reads from
type Input interface {
	Name() string
	// Listen delivers every inbound message to fn until stop is called
	Listen(fn func(msg gomidi.Message)) (stop func(), err error)
	Close() error
}

// Output is a port the router writes to
type Output interface {
	Name() string
	Send(msg gomidi.Message) error
	Close() error
}

// Driver creates the virtual ports other applications connect to by name
type Driver interface {
	OpenVirtualIn(name string) (Input, error)
	OpenVirtualOut(name string) (Output, error)
	Close() error
}

// RtDriver opens virtual ports through rtmidi
type RtDriver struct {
	drv *rtmididrv.Driver
}

// NewRtDriver initialises the rtmidi backend
func NewRtDriver() (*RtDriver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, errors.Wrap(err, "create rtmidi driver")
	}
	return &RtDriver{drv: drv}, nil
}

func (d *RtDriver) OpenVirtualIn(name string) (Input, error) {
	in, err := d.drv.OpenVirtualIn(name)
	if err != nil {
		return nil, errors.Wrapf(err, "open virtual input %q", name)
	}
	return &inPort{name: name, port: in}, nil
}

func (d *RtDriver) OpenVirtualOut(name string) (Output, error) {
	out, err := d.drv.OpenVirtualOut(name)
	if err != nil {
		return nil, errors.Wrapf(err, "open virtual output %q", name)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		out.Close()
		return nil, errors.Wrapf(err, "open sender for %q", name)
	}
	return &outPort{name: name, port: out, send: send}, nil
}

func (d *RtDriver) Close() error {
	return d.drv.Close()
}

// inPort adapts a drivers.In to Input
type inPort struct {
	name string
	port drivers.In

	mu     sync.Mutex
	closed bool
}

func (p *inPort) Name() string {
	return p.name
}

func (p *inPort) Listen(fn func(msg gomidi.Message)) (func(), error) {
	stop, err := gomidi.ListenTo(p.port, func(msg gomidi.Message, timestampms int32) {
		fn(msg)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %q", p.name)
	}
	return stop, nil
}

func (p *inPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.port.Close()
}

// outPort adapts a drivers.Out to Output
type outPort struct {
	name string
	port drivers.Out
	send func(msg gomidi.Message) error

	mu     sync.Mutex
	closed bool
}

func (p *outPort) Name() string {
	return p.name
}

func (p *outPort) Send(msg gomidi.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.Errorf("output %q is closed", p.name)
	}
	if err := p.send(msg); err != nil {
		return errors.Wrapf(err, "send to %q", p.name)
	}
	return nil
}

func (p *outPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.port.Close()
}

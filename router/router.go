package router

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/multierr"

	"midi-selector/debug"
	"midi-selector/midi"
)

// ErrAlreadyStarted is returned by Start on a router that was started before
var ErrAlreadyStarted = errors.New("router already started")

// State is the router lifecycle state
type State int32

const (
	Uninitialized State = iota
	Running
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting down"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Destination is one selectable route
type Destination struct {
	ID   string // value of Status.Current when active
	Key  string // key that selects it
	Name string // port name or channel name for display
}

// Status is a snapshot of router state for display
type Status struct {
	Mode         string
	State        State
	Current      string
	Destinations []Destination
	Notes        []uint8

	Forwarded uint64
	Dropped   uint64 // filtered or no output
	Failed    uint64 // send errors
	Switches  uint64

	LastMessage string
	LastSwitch  string
}

// route is the part that differs between the channel and port routers.
// All methods run on the control loop goroutine (or after it exited).
type route interface {
	forward(msg gomidi.Message) (delivered bool, err error)
	silence() error
	current() string
	active() []uint8
}

// request is one entry of the control queue: an inbound message or a
// control function (switch), processed strictly in arrival order
type request struct {
	msg  gomidi.Message
	fn   func() (bool, error)
	done chan bool
}

// Option configures a router
type Option func(*options)

type options struct {
	queueSize      int
	initialChannel uint8
	onSwitch       func(from, to string)
}

// WithQueueSize sets the control queue buffer (default 256)
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithInitialChannel sets the channel router's starting channel (0-15)
func WithInitialChannel(ch uint8) Option {
	return func(o *options) {
		o.initialChannel = ch & 0x0F
	}
}

// WithOnSwitch registers a hook called on the control goroutine after each switch
func WithOnSwitch(fn func(from, to string)) Option {
	return func(o *options) {
		o.onSwitch = fn
	}
}

func applyOptions(opts []Option) options {
	o := options{queueSize: 256}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// loop owns the routing state through a single goroutine.
// Start and Shutdown are expected to be called from one goroutine (main).
type loop struct {
	mode  string
	in    midi.Input
	outs  []midi.Output
	route route
	dests []Destination
	opts  options

	queue  chan request
	ctx    context.Context
	cancel context.CancelFunc
	exited chan struct{}

	state      atomic.Int32
	launched   bool
	stopListen func()

	shutdownOnce sync.Once
	shutdownErr  error

	// counters, owned by the loop goroutine
	forwarded, dropped, failed, switches uint64
	lastMessage, lastSwitch              string

	mu      sync.RWMutex
	status  Status
	updates chan struct{}
}

func newLoop(mode string, in midi.Input, outs []midi.Output, r route, dests []Destination, o options) *loop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{
		mode:    mode,
		in:      in,
		outs:    outs,
		route:   r,
		dests:   dests,
		opts:    o,
		queue:   make(chan request, o.queueSize),
		ctx:     ctx,
		cancel:  cancel,
		exited:  make(chan struct{}),
		updates: make(chan struct{}, 1),
	}
	l.publish()
	return l
}

// Start subscribes to the input and launches the control goroutine
func (l *loop) Start() error {
	if l.launched || State(l.state.Load()) != Uninitialized {
		return ErrAlreadyStarted
	}

	if l.in != nil {
		stop, err := l.in.Listen(l.receive)
		if err != nil {
			return err
		}
		l.stopListen = stop
	}

	l.launched = true
	l.setState(Running)
	go l.run()

	debug.Log("router", "%s router running, destination %s", l.mode, l.Status().Current)
	return nil
}

// receive is the input callback; it runs on the driver's thread
func (l *loop) receive(msg gomidi.Message) {
	// the driver may reuse its buffer
	cp := make(gomidi.Message, len(msg))
	copy(cp, msg)

	select {
	case l.queue <- request{msg: cp}:
	case <-l.ctx.Done():
	}
}

// do runs fn on the control goroutine and reports its result.
// Requests made while not running are ignored.
func (l *loop) do(fn func() (bool, error)) bool {
	if State(l.state.Load()) != Running {
		return false
	}

	req := request{fn: fn, done: make(chan bool, 1)}
	select {
	case l.queue <- req:
	case <-l.ctx.Done():
		return false
	}

	select {
	case ok := <-req.done:
		return ok
	case <-l.exited:
		return false
	}
}

func (l *loop) run() {
	defer close(l.exited)

	for {
		select {
		case <-l.ctx.Done():
			return
		case req := <-l.queue:
			l.handle(req)
		}
	}
}

func (l *loop) handle(req request) {
	if req.fn != nil {
		from := l.route.current()
		ok, err := req.fn()
		if err != nil {
			debug.Warn("router", "all notes off: %v", err)
		}
		if ok {
			to := l.route.current()
			l.switches++
			l.lastSwitch = from + " -> " + to
			debug.Log("router", "switch %s", l.lastSwitch)
			if l.opts.onSwitch != nil {
				l.opts.onSwitch(from, to)
			}
		}
		req.done <- ok
		l.publish()
		return
	}

	l.lastMessage = midi.Describe(req.msg)
	delivered, err := l.route.forward(req.msg)
	switch {
	case err != nil:
		l.failed++
		debug.Warn("router", "forward %s: %v", l.lastMessage, err)
	case delivered:
		l.forwarded++
		debug.LogEvery(100, "fwd", "%s", l.lastMessage)
	default:
		l.dropped++
	}
	l.publish()
}

// publish copies the routing state into the shared snapshot.
// Must only run on the control goroutine, or when it is not running.
func (l *loop) publish() {
	s := Status{
		Mode:         l.mode,
		State:        State(l.state.Load()),
		Current:      l.route.current(),
		Destinations: l.dests,
		Notes:        l.route.active(),
		Forwarded:    l.forwarded,
		Dropped:      l.dropped,
		Failed:       l.failed,
		Switches:     l.switches,
		LastMessage:  l.lastMessage,
		LastSwitch:   l.lastSwitch,
	}

	l.mu.Lock()
	l.status = s
	l.mu.Unlock()
	l.notify()
}

func (l *loop) setState(s State) {
	l.state.Store(int32(s))
	l.mu.Lock()
	l.status.State = s
	l.mu.Unlock()
	l.notify()
}

func (l *loop) notify() {
	select {
	case l.updates <- struct{}{}:
	default:
	}
}

// Status returns the latest snapshot
func (l *loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Updates is signalled whenever the status changes
func (l *loop) Updates() <-chan struct{} {
	return l.updates
}

// Shutdown stops routing, silences tracked notes and closes every port.
// It is idempotent and safe on a router that never started.
func (l *loop) Shutdown() error {
	l.shutdownOnce.Do(func() {
		l.setState(ShuttingDown)

		// no more key or message requests
		l.cancel()
		if l.launched {
			<-l.exited
		}
		if l.stopListen != nil {
			l.stopListen()
		}

		var err error
		err = multierr.Append(err, errors.Wrap(l.route.silence(), "all notes off"))
		if l.in != nil {
			err = multierr.Append(err, errors.Wrapf(l.in.Close(), "close %s", l.in.Name()))
		}
		for _, out := range l.outs {
			err = multierr.Append(err, errors.Wrapf(out.Close(), "close %s", out.Name()))
		}

		l.state.Store(int32(Stopped))
		l.publish()
		l.shutdownErr = err
		debug.Log("router", "%s router stopped", l.mode)
	})
	return l.shutdownErr
}

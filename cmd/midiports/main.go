package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"midi-selector/midi"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "poll":
		err = pollPorts()
	case "monitor":
		if len(os.Args) < 3 {
			usage()
			return
		}
		err = monitor(strings.Join(os.Args[2:], " "))
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MIDI port tools")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list            - List all MIDI ports")
	fmt.Println("  poll            - Print port changes every 2 seconds")
	fmt.Println("  monitor <name>  - Print messages arriving on an input (e.g. MIDI-1)")
}

func listPorts() error {
	fmt.Println("(waiting up to 3 seconds...)")
	ports, err := midi.ListPorts(3 * time.Second)
	if err != nil {
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}
	printPorts(ports)
	return nil
}

func printPorts(p midi.Ports) {
	fmt.Println("=== MIDI Input Ports ===")
	for i, name := range p.Ins {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range p.Outs {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

func pollPorts() error {
	fmt.Println("Polling for port changes every 2 seconds... Ctrl+C to exit.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := midi.NewPortWatcher(2 * time.Second)
	go w.Run(ctx)

	for p := range w.Events() {
		fmt.Printf("\n[%s] Port change detected!\n", time.Now().Format("15:04:05"))
		printPorts(p)
	}
	return nil
}

// monitor listens on an existing input, e.g. a router output seen from the
// other side of a virtual cable
func monitor(name string) error {
	var in drivers.In
	for _, p := range gomidi.GetInPorts() {
		if p.String() == name || strings.Contains(strings.ToLower(p.String()), strings.ToLower(name)) {
			in = p
			break
		}
	}
	if in == nil {
		return errors.Errorf("no input port matching %q", name)
	}

	fmt.Printf("Monitoring %s... Ctrl+C to exit.\n", in.String())
	stopListen, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		fmt.Printf("%8dms  %-14s %s\n", timestampms, midi.Classify(msg), midi.Describe(msg))
	})
	if err != nil {
		return err
	}
	defer stopListen()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	return nil
}

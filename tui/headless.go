package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// RunHeadless reads one key per line from r (the first character counts)
// until ctx is done. The end of r does not stop it. For use without a terminal.
func RunHeadless(ctx context.Context, rt Router, r io.Reader, w io.Writer) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if err != nil {
				return err
			}
			// stdin closed (service, </dev/null): keep routing until ctx is done
			errc = nil
		case line := <-lines:
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			key, _ := utf8.DecodeRuneInString(line)
			if rt.OnKey(string(key)) {
				s := rt.Status()
				fmt.Fprintf(w, "switched: %s\n", s.LastSwitch)
			}
		}
	}
}

package telemetry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// lineCursor remembers how far into a growing text file the last scan got.
// Only newline-terminated lines are consumed, so a row still being written
// is picked up by the next scan.
type lineCursor struct {
	path   string
	offset int64
	// onReset runs before rescanning a file that shrank (rewritten by the
	// simulator).
	onReset func()
}

// scan passes the whitespace-separated fields of each complete line after
// the cursor to fn. When fn returns false the line is left unconsumed and
// scanning stops.
func (c *lineCursor) scan(fn func(fields []string) bool) error {
	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", c.path, ErrNotReady)
		}
		return fmt.Errorf("opening %s: %w", c.path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", c.path, err)
	}
	if info.Size() < c.offset {
		c.offset = 0
		if c.onReset != nil {
			c.onReset()
		}
	}
	if _, err := f.Seek(c.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking %s: %w", c.path, err)
	}

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", c.path, err)
		}
		if !fn(strings.Fields(line)) {
			return nil
		}
		c.offset += int64(len(line))
	}
}

package telemetry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// sketchSentinel marks unused trailing slots of a sketch row ("-1na").
const sketchSentinel = "na"

// Sketch is one snapshot of the switches' heavy-part flow sketches.
type Sketch struct {
	// Time is the timestamp of the last valid row.
	Time float64
	// Sizes maps switch id -> flow id -> size reported this round.
	Sizes map[string]map[string]int64
}

// ParseSketch parses rows of "time switch_id [flowid-size]*". A slot
// containing the sentinel ends its row; malformed rows and slots are
// dropped. A stream without any valid row is ErrNotReady.
func ParseSketch(r io.Reader) (*Sketch, error) {
	sk := &Sketch{Sizes: make(map[string]map[string]int64)}
	rows := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		switchID := fields[1]
		flows, ok := sk.Sizes[switchID]
		if !ok {
			flows = make(map[string]int64)
			sk.Sizes[switchID] = flows
		}
		for _, slot := range fields[2:] {
			if strings.Contains(slot, sketchSentinel) {
				break
			}
			sep := strings.LastIndexByte(slot, '-')
			if sep <= 0 {
				continue
			}
			size, err := strconv.ParseInt(slot[sep+1:], 10, 64)
			if err != nil {
				continue
			}
			flows[slot[:sep]] = size
		}
		sk.Time = t
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning sketch: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotReady
	}
	return sk, nil
}

// ReadSketch parses the sketch file at path.
func ReadSketch(path string) (*Sketch, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotReady)
		}
		return nil, fmt.Errorf("opening sketch: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseSketch(f)
}

// Fingerprint hashes the content of the file at path so unchanged sketches
// can be skipped without parsing.
func Fingerprint(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%s: %w", path, ErrNotReady)
		}
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return h.Sum64(), nil
}

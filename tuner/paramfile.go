package tuner

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNoParameters reports a parameter file that is missing or carries no
// recognised key. Readers treat it as "no update yet".
var ErrNoParameters = errors.New("no parameters deployed")

// ParamStore is where the live candidate is published and read back.
type ParamStore interface {
	Load() (ParameterVector, error)
	Publish(v ParameterVector) error
}

// ParamFile is the key=value parameter file read by the simulation.
type ParamFile struct {
	path  string
	space *ParameterSpace
}

// NewParamFile creates a ParamFile at path.
func NewParamFile(path string, space *ParameterSpace) *ParamFile {
	return &ParamFile{path: path, space: space}
}

// Path returns the file location.
func (f *ParamFile) Path() string {
	return f.path
}

// Load reads the deployed vector. Keys missing from a short file keep their
// default; values are clamped to range.
func (f *ParamFile) Load() (ParameterVector, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f.space.Defaults(), ErrNoParameters
		}
		return f.space.Defaults(), fmt.Errorf("opening parameter file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ParseParameters(bufio.NewScanner(file), f.space)
}

// Publish replaces the file with v. The content is written to a temporary
// file in the same directory and renamed over the target, so readers see
// either the old or the new vector.
func (f *ParamFile) Publish(v ParameterVector) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating parameter file: %w", err)
	}
	_, werr := tmp.WriteString(FormatParameters(f.space, v))
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing parameter file: %w", werr)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replacing parameter file: %w", err)
	}
	return nil
}

// FormatParameters renders v as one key=value line per knob, in schema
// order. Fractional knobs are written as decimals, the others as integers.
func FormatParameters(space *ParameterSpace, v ParameterVector) string {
	var b strings.Builder
	for i, spec := range space.specs {
		b.WriteString(spec.Key)
		b.WriteByte('=')
		if spec.Fractional {
			b.WriteString(strconv.FormatFloat(v[i], 'f', -1, 64))
		} else {
			b.WriteString(strconv.FormatInt(int64(v[i]), 10))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseParameters reads key=value lines. Unknown keys and unparsable values
// are skipped; knobs not present keep their default.
func ParseParameters(scanner *bufio.Scanner, space *ParameterSpace) (ParameterVector, error) {
	v := space.Defaults()
	found := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, raw = strings.TrimSpace(key), strings.TrimSpace(raw)
		p, ok := space.Lookup(key)
		if !ok {
			logrus.Debugf("ignoring unknown parameter %q", key)
			continue
		}
		var value float64
		if space.specs[p].Fractional {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			value = f
		} else {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			value = float64(n)
		}
		v[p] = space.Clamp(p, value)
		found++
	}
	if err := scanner.Err(); err != nil {
		return space.Defaults(), fmt.Errorf("reading parameter file: %w", err)
	}
	if found == 0 {
		return v, ErrNoParameters
	}
	space.orderThresholds(&v)
	return v, nil
}

package trace

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// MetricLog appends one line per measurement round. It is safe for
// concurrent use.
type MetricLog struct {
	mu   sync.Mutex
	path string
}

// NewMetricLog opens the log at path. When truncate is set any previous
// content is discarded.
func NewMetricLog(path string, truncate bool) (*MetricLog, error) {
	if truncate {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("truncating metric log: %w", err)
		}
	}
	return &MetricLog{path: path}, nil
}

// Path returns the file the log appends to.
func (l *MetricLog) Path() string {
	return l.path
}

// Append writes rec as "time avg_throughput avg_rtt avg_pfc utility".
func (l *MetricLog) Append(rec MetricRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening metric log: %w", err)
	}
	_, werr := fmt.Fprintln(f, FormatMetric(rec))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("writing metric log: %w", werr)
	}
	return nil
}

// FormatMetric renders rec as one metric-log line without the newline.
func FormatMetric(rec MetricRecord) string {
	fields := []float64{rec.Time, rec.Throughput, rec.RTT, rec.Pause, rec.Utility}
	parts := make([]string, len(fields))
	for i, v := range fields {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// ReadMetricLog parses a metric log. Lines that do not carry five numeric
// columns are skipped.
func ReadMetricLog(path string) ([]MetricRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening metric log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []MetricRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 5 {
			continue
		}
		var vals [5]float64
		ok := true
		for i, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		records = append(records, MetricRecord{
			Time: vals[0], Throughput: vals[1], RTT: vals[2], Pause: vals[3], Utility: vals[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading metric log: %w", err)
	}
	return records, nil
}

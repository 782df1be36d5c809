package telemetry

import (
	"strconv"
	"strings"
)

// throughputReader tracks the latest rx byte counter of each monitored port
// in rows of "time switch port rxBytes".
type throughputReader struct {
	cursor    lineCursor
	monitored map[int]bool
	portMin   int
	portMax   int
	interval  float64

	latest   map[PortKey]float64
	lastTime float64
	seen     bool
}

func newThroughputReader(path string, cfg Config, interval float64) *throughputReader {
	r := &throughputReader{
		monitored: make(map[int]bool, len(cfg.MonitoredSwitches)),
		portMin:   cfg.PortMin,
		portMax:   cfg.PortMax,
		interval:  interval,
		latest:    make(map[PortKey]float64),
	}
	for _, sw := range cfg.MonitoredSwitches {
		r.monitored[sw] = true
	}
	r.cursor = lineCursor{path: path, onReset: r.reset}
	return r
}

func (r *throughputReader) reset() {
	r.latest = make(map[PortKey]float64)
	r.lastTime = 0
	r.seen = false
}

func (r *throughputReader) refresh() error {
	return r.cursor.scan(func(fields []string) bool {
		if len(fields) < 4 {
			return true
		}
		t, err1 := strconv.ParseFloat(fields[0], 64)
		sw, err2 := parseID(fields[1])
		port, err3 := parseID(fields[2])
		rx, err4 := strconv.ParseFloat(fields[3], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return true
		}
		r.lastTime, r.seen = t, true
		if r.monitored[sw] && port >= r.portMin && port <= r.portMax {
			r.latest[PortKey{Switch: sw, Port: port}] = rx
		}
		return true
	})
}

// gbps converts the latest byte counters to Gbps over one interval.
func (r *throughputReader) gbps() map[PortKey]float64 {
	out := make(map[PortKey]float64, len(r.latest))
	for k, rx := range r.latest {
		out[k] = rx * 8 / r.interval / 1e9
	}
	return out
}

// rttReader tracks the latest RTT per host pair in rows of
// "time sip-dip rtt_ns", converted to microseconds.
type rttReader struct {
	cursor lineCursor
	latest map[PairKey]float64
}

func newRTTReader(path string) *rttReader {
	r := &rttReader{latest: make(map[PairKey]float64)}
	r.cursor = lineCursor{path: path, onReset: func() { r.latest = make(map[PairKey]float64) }}
	return r
}

func (r *rttReader) refresh() error {
	return r.cursor.scan(func(fields []string) bool {
		if len(fields) < 3 {
			return true
		}
		src, dst, ok := strings.Cut(fields[1], "-")
		if !ok {
			return true
		}
		s, err1 := parseID(src)
		d, err2 := parseID(dst)
		ns, err3 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return true
		}
		r.latest[PairKey{Src: s, Dst: d}] = ns / 1000
		return true
	})
}

func (r *rttReader) snapshot() map[PairKey]float64 {
	out := make(map[PairKey]float64, len(r.latest))
	for k, v := range r.latest {
		out[k] = v
	}
	return out
}

// pauseReader counts pause events per interface in rows of
// "time node_id node_type if_index pfc_type".
type pauseReader struct {
	cursor lineCursor
	code   int
}

func newPauseReader(path string, code int) *pauseReader {
	return &pauseReader{cursor: lineCursor{path: path}, code: code}
}

// window counts pause events in [start, stop]. Rows before start are
// consumed; the first row after stop is left for the next window.
func (r *pauseReader) window(start, stop float64) (map[IfaceKey]int, error) {
	counts := make(map[IfaceKey]int)
	err := r.cursor.scan(func(fields []string) bool {
		if len(fields) < 5 {
			return true
		}
		t, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return true
		}
		if t > stop {
			return false
		}
		if t < start {
			return true
		}
		node, err1 := parseID(fields[1])
		iface, err2 := parseID(fields[3])
		code, err3 := parseID(fields[len(fields)-1])
		if err1 != nil || err2 != nil || err3 != nil {
			return true
		}
		if code == r.code {
			counts[IfaceKey{Node: node, Iface: iface}]++
		}
		return true
	})
	return counts, err
}

// parseID accepts integer ids that may be written as floats ("128.0").
func parseID(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

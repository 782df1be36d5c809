package tuner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/paraleon-ns3/paraleon/tuner/telemetry"
	"github.com/paraleon-ns3/paraleon/tuner/trace"
)

// unmeasured is the utility sentinel before the first measured round.
const unmeasured = -1

// EpisodeState is the lifecycle stage of an Episode.
type EpisodeState string

const (
	StateInit      EpisodeState = "init"
	StateMeasuring EpisodeState = "measuring"
	StateCommitted EpisodeState = "committed"
)

// MetricSink receives one record per measurement.
type MetricSink interface {
	Append(rec trace.MetricRecord) error
}

// EpisodeOptions wires an Episode to its collaborators.
type EpisodeOptions struct {
	Space      *ParameterSpace
	Ratios     *RatioStore
	Source     telemetry.Source
	Params     ParamStore
	Metrics    MetricSink
	Waiter     telemetry.Waiter
	RNG        *rand.Rand
	Anneal     AnnealConfig
	Utility    UtilityConfig
	NoiseFloor float64
}

// Episode is one simulated-annealing search, from Init to Committed.
// Rounds are strictly sequential and the episode is owned by one goroutine.
type Episode struct {
	ID      int
	Mode    Mode
	Weights Weights
	State   EpisodeState

	Current      ParameterVector
	Best         ParameterVector
	CurrentValue float64
	BestValue    float64
	Temperature  float64
	Round        int

	// Trace records every measuring round.
	Trace *trace.EpisodeTrace

	opts      EpisodeOptions
	gen       *Generator
	candidate ParameterVector
	measured  bool
	stop      float64
}

// NewEpisode prepares an episode triggered at simulated time now on the flow
// mix snapshot.
func NewEpisode(id int, now float64, snapshot FlowRatio, opts EpisodeOptions) *Episode {
	mode, weights := JudgeMode(snapshot)
	return &Episode{
		ID:           id,
		Mode:         mode,
		Weights:      weights,
		State:        StateInit,
		CurrentValue: unmeasured,
		BestValue:    unmeasured,
		Trace:        trace.NewEpisodeTrace(id, string(mode)),
		opts:         opts,
		gen:          NewGenerator(opts.Space, opts.Ratios, opts.RNG),
		stop:         now,
	}
}

// Run executes the episode to completion and returns the committed vector.
// It only returns early when ctx is cancelled (process shutdown).
func (e *Episode) Run(ctx context.Context) (ParameterVector, error) {
	if err := e.init(); err != nil {
		return e.Best, err
	}

	e.State = StateMeasuring
	for e.Temperature > e.opts.Anneal.FinalTemperature {
		episodeTemperature.Set(e.Temperature)
		for i := 0; i < e.opts.Anneal.AttemptTimes; i++ {
			if err := e.step(ctx); err != nil {
				return e.Best, err
			}
		}
		e.Temperature *= e.opts.Anneal.CoolingRate
	}

	return e.Best, e.commit()
}

// init loads the deployed vector, logs the baseline window and publishes the
// default vector as the first candidate.
func (e *Episode) init() error {
	current, err := e.opts.Params.Load()
	if err != nil {
		logrus.Debugf("episode %d: using defaults as deployed vector: %v", e.ID, err)
	}
	e.Current = current
	e.Best = current

	start := e.stop - e.opts.Anneal.TuneInterval
	summary, err := e.measure(start, e.stop)
	if err != nil {
		logrus.Warnf("episode %d: baseline telemetry unavailable: %v", e.ID, err)
	}
	e.logMetric(e.stop, summary, unmeasured)

	e.Temperature = e.opts.Anneal.InitialTemperature
	e.candidate = e.gen.Next(ModeDefault, e.Current)
	if err := e.opts.Params.Publish(e.candidate); err != nil {
		return fmt.Errorf("publishing initial candidate: %w", err)
	}
	logrus.Infof("episode %d: mode=%s weights=%+v T0=%v", e.ID, e.Mode, e.Weights, e.Temperature)
	return nil
}

// step runs one measuring round for the published candidate.
func (e *Episode) step(ctx context.Context) error {
	start := e.stop
	e.stop += e.opts.Anneal.TuneInterval
	if err := e.awaitWindow(ctx); err != nil {
		return err
	}

	summary, err := e.measure(start, e.stop)
	if err != nil {
		logrus.Warnf("episode %d round %d: telemetry unreadable: %v", e.ID, e.Round, err)
	}
	value := e.opts.Utility.Evaluate(summary, e.Weights, e.opts.Anneal.TuneInterval)
	e.logMetric(e.stop, summary, value)

	accepted := e.accept(value)
	if accepted {
		e.Current = e.candidate
		e.CurrentValue = value
		episodeRounds.WithLabelValues("accepted").Inc()
	} else {
		episodeRounds.WithLabelValues("rejected").Inc()
	}
	if e.CurrentValue > e.BestValue {
		e.Best = e.Current
		e.BestValue = e.CurrentValue
	}
	episodeUtility.WithLabelValues("measured").Set(value)
	episodeUtility.WithLabelValues("best").Set(e.BestValue)

	e.Trace.RecordRound(trace.RoundRecord{
		Round:       e.Round,
		Time:        e.stop,
		Temperature: e.Temperature,
		Throughput:  summary.Throughput,
		RTT:         summary.RTT,
		Pause:       summary.Pause,
		Utility:     value,
		Accepted:    accepted,
		Candidate:   append([]float64(nil), e.candidate[:]...),
	})
	logrus.Debugf("episode %d round %d: T=%.3f utility=%.4f accepted=%v best=%.4f",
		e.ID, e.Round, e.Temperature, value, accepted, e.BestValue)

	e.candidate = e.gen.Next(e.Mode, e.Current)
	if err := e.opts.Params.Publish(e.candidate); err != nil {
		logrus.Warnf("episode %d round %d: publishing candidate: %v", e.ID, e.Round, err)
	}
	e.Round++
	return nil
}

// accept applies the Metropolis rule. The first measured round is always
// accepted.
func (e *Episode) accept(value float64) bool {
	if !e.measured {
		e.measured = true
		return true
	}
	delta := value - e.CurrentValue
	return delta > 0 || math.Exp(delta/e.Temperature) > e.opts.RNG.Float64()
}

// awaitWindow blocks until telemetry extends past the current window end.
func (e *Episode) awaitWindow(ctx context.Context) error {
	began := time.Now()
	defer func() { episodeWaitSeconds.Observe(time.Since(began).Seconds()) }()

	for {
		latest, err := e.opts.Source.LatestTime()
		if err == nil && latest > e.stop {
			e.opts.Waiter.Reset()
			return nil
		}
		if err != nil && !errors.Is(err, telemetry.ErrNotReady) {
			logrus.Warnf("episode %d: reading telemetry clock: %v", e.ID, err)
		}
		if err := e.opts.Waiter.Wait(ctx); err != nil {
			return err
		}
	}
}

func (e *Episode) measure(start, stop float64) (telemetry.Summary, error) {
	w, err := e.opts.Source.Window(start, stop)
	if err != nil {
		return telemetry.Summary{}, err
	}
	return w.Summarize(e.opts.NoiseFloor), nil
}

func (e *Episode) logMetric(t float64, s telemetry.Summary, utility float64) {
	rec := trace.MetricRecord{Time: t, Throughput: s.Throughput, RTT: s.RTT, Pause: s.Pause, Utility: utility}
	if err := e.opts.Metrics.Append(rec); err != nil {
		logrus.Warnf("episode %d: %v", e.ID, err)
	}
}

// commit publishes the best vector found.
func (e *Episode) commit() error {
	e.State = StateCommitted
	e.Trace.Commit(e.Best[:])
	if err := e.opts.Params.Publish(e.Best); err != nil {
		return fmt.Errorf("publishing best solution: %w", err)
	}
	return nil
}

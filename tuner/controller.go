package tuner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/paraleon-ns3/paraleon/tuner/telemetry"
	"github.com/paraleon-ns3/paraleon/tuner/trace"
)

// ControllerOptions wires a Controller to its files and waiters.
type ControllerOptions struct {
	Source  telemetry.Source
	Params  ParamStore
	Metrics MetricSink
	// SketchWaiter paces the monitoring loop; WindowWaiter paces episodes.
	SketchWaiter telemetry.Waiter
	WindowWaiter telemetry.Waiter
}

// Controller runs the monitoring loop and admits at most one tuning episode
// at a time.
type Controller struct {
	cfg        Config
	opts       ControllerOptions
	space      *ParameterSpace
	tracker    *FlowTracker
	classifier *Classifier
	ratios     *RatioStore
	trigger    *Trigger
	rng        *PartitionedRNG

	// admit holds one slot; an episode owns it from admission until it
	// returns. active mirrors it for the trigger and callers.
	admit    *semaphore.Weighted
	active   atomic.Bool
	wg       sync.WaitGroup
	episodes int

	lastHash uint64
	hashed   bool

	mu          sync.Mutex
	lastSummary *trace.EpisodeSummary
}

// NewController creates a Controller for a validated cfg.
func NewController(cfg Config, opts ControllerOptions) *Controller {
	ratios := NewRatioStore()
	return &Controller{
		cfg:        cfg,
		opts:       opts,
		space:      DefaultSpace(),
		tracker:    NewFlowTracker(cfg.Monitor.ResetInterval, cfg.Monitor.HistoryLimit),
		classifier: NewClassifier(cfg.Monitor.LargeFlowThreshold, cfg.Monitor.WindowSize, cfg.Monitor.ResetInterval),
		ratios:     ratios,
		trigger:    NewTrigger(cfg.Monitor.TriggerThreshold, ratios),
		rng:        NewPartitionedRNG(NewSeedKey(cfg.Seed)),
		admit:      semaphore.NewWeighted(1),
	}
}

// Tracker exposes the flow store.
func (c *Controller) Tracker() *FlowTracker {
	return c.tracker
}

// Active reports whether an episode is running.
func (c *Controller) Active() bool {
	return c.active.Load()
}

// LastEpisode returns the summary of the most recently committed episode.
func (c *Controller) LastEpisode() *trace.EpisodeSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSummary
}

// Run polls the flow sketch until ctx is done. Telemetry errors are logged
// and retried; the only error returned is the context's.
func (c *Controller) Run(ctx context.Context) error {
	for {
		changed, err := c.Poll(ctx)
		if err != nil && !errors.Is(err, telemetry.ErrNotReady) {
			logrus.Warnf("monitor: %v", err)
		}
		if changed {
			c.opts.SketchWaiter.Reset()
			continue
		}
		if err := c.opts.SketchWaiter.Wait(ctx); err != nil {
			return err
		}
	}
}

// Poll processes the flow sketch if its content changed since the last call.
func (c *Controller) Poll(ctx context.Context) (bool, error) {
	hash, err := telemetry.Fingerprint(c.cfg.Paths.Sketch)
	if err != nil {
		return false, err
	}
	if c.hashed && hash == c.lastHash {
		return false, nil
	}
	c.lastHash, c.hashed = hash, true

	sk, err := telemetry.ReadSketch(c.cfg.Paths.Sketch)
	if err != nil {
		return false, err
	}
	c.Observe(ctx, sk.Time, sk.Sizes)
	return true, nil
}

// Observe runs one monitoring round on the sizes reported at now and starts
// an episode when the trigger fires.
func (c *Controller) Observe(ctx context.Context, now float64, sizes map[string]map[string]int64) Decision {
	monitorRoundsTotal.Inc()

	c.tracker.Update(now, sizes)
	cls := c.classifier.Classify(c.tracker, now)
	c.ratios.Accumulate(cls.Ratio)

	large, potential, small := cls.Counts()
	monitorFlows.WithLabelValues(ClassLarge.String()).Set(float64(large))
	monitorFlows.WithLabelValues(ClassPotentialLarge.String()).Set(float64(potential))
	monitorFlows.WithLabelValues(ClassSmall.String()).Set(float64(small))

	d := c.trigger.Check(c.active.Load())
	monitorDivergence.Set(d.KL)
	logrus.Debugf("monitor t=%v: large=%d potential=%d small=%d ratio=%+v kl=%.5f",
		now, large, potential, small, d.Snapshot, d.KL)

	if d.Fire && !c.startEpisode(ctx, now, d.Snapshot) {
		episodesSuppressed.Inc()
	}
	return d
}

// startEpisode admits a new episode unless one is running. The episode runs
// in its own goroutine until it commits.
func (c *Controller) startEpisode(ctx context.Context, now float64, snapshot FlowRatio) bool {
	if !c.admit.TryAcquire(1) {
		return false
	}
	c.active.Store(true)

	c.episodes++
	ep := NewEpisode(c.episodes, now, snapshot, EpisodeOptions{
		Space:      c.space,
		Ratios:     c.ratios,
		Source:     c.opts.Source,
		Params:     c.opts.Params,
		Metrics:    c.opts.Metrics,
		Waiter:     c.opts.WindowWaiter,
		RNG:        c.rng.ForSubsystem(SubsystemEpisode(c.episodes)),
		Anneal:     c.cfg.Anneal,
		Utility:    c.cfg.Utility,
		NoiseFloor: c.cfg.Telemetry.NoiseFloor,
	})
	episodesStarted.WithLabelValues(string(ep.Mode)).Inc()
	logrus.Infof("starting tuning episode %d at t=%v (large=%.3f small=%.3f)", ep.ID, now, snapshot.Large, snapshot.Small)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.active.Store(false)
			c.admit.Release(1)
		}()

		best, err := ep.Run(ctx)
		summary := trace.Summarize(ep.Trace)
		c.mu.Lock()
		c.lastSummary = summary
		c.mu.Unlock()
		if err != nil {
			logrus.Warnf("episode %d stopped after %d rounds: %v", ep.ID, ep.Round, err)
			return
		}
		logrus.Infof("episode %d committed after %d rounds (accepted %d, best utility %.4f): %s",
			ep.ID, summary.Rounds, summary.AcceptedCount, ep.BestValue, strings.Join(strings.Fields(FormatParameters(c.space, best)), " "))
	}()
	return true
}

// Wait blocks until the running episode, if any, has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

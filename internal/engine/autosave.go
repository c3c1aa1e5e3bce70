package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/arborlabs/arbor/pkg/domain"
)

// AutosaveTrigger identifies the mutation kind that requested an autosave.
type AutosaveTrigger string

const (
	TriggerChoice     AutosaveTrigger = "choice"
	TriggerFlagChange AutosaveTrigger = "flag-change"
	TriggerStateLoad  AutosaveTrigger = "state-load"
	TriggerManual     AutosaveTrigger = "manual"
)

// AutosaveConfig controls the autosave controller.
type AutosaveConfig struct {
	Enabled bool

	// Triggers selects which mutation kinds autosave. Empty means all of
	// choice, flag-change and state-load.
	Triggers []AutosaveTrigger

	// MinInterval throttles autosaves: triggers arriving within the
	// interval of the previous save are dropped, never queued.
	MinInterval time.Duration

	// EmbedMetadata attaches the standard summary fields to autosave
	// checkpoints.
	EmbedMetadata bool
}

// AutosaveResult reports a completed autosave attempt.
type AutosaveResult struct {
	OK           bool
	CheckpointID string
	Trigger      AutosaveTrigger
	Duration     time.Duration
	Size         int
}

// autosaver owns the throttle and single-flight guard. Saves run on a
// goroutine over a snapshot taken synchronously at mutation commit, so an
// autosave for mutation N always observes exactly the state after N.
type autosaver struct {
	cfg      AutosaveConfig
	triggers map[AutosaveTrigger]bool
	limiter  *rate.Limiter

	mu       sync.Mutex
	inFlight bool

	// saveMu serializes the actual checkpoint write so a manual save never
	// interleaves with an in-flight triggered one.
	saveMu sync.Mutex

	wg sync.WaitGroup

	count        int
	lastDuration time.Duration
}

func newAutosaver(cfg AutosaveConfig) *autosaver {
	a := &autosaver{cfg: cfg}

	if len(cfg.Triggers) > 0 {
		a.triggers = make(map[AutosaveTrigger]bool, len(cfg.Triggers))
		for _, t := range cfg.Triggers {
			a.triggers[t] = true
		}
	}
	if cfg.MinInterval > 0 {
		a.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	return a
}

func (a *autosaver) wants(trigger AutosaveTrigger) bool {
	if a.triggers == nil {
		return trigger != TriggerManual
	}
	return a.triggers[trigger]
}

// acquire claims the single-flight slot if the trigger is admissible.
// A trigger arriving while a save is in flight counts as throttled.
func (a *autosaver) acquire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight {
		return false
	}
	if a.limiter != nil && !a.limiter.Allow() {
		return false
	}
	a.inFlight = true
	return true
}

func (a *autosaver) release(duration time.Duration) {
	a.mu.Lock()
	a.inFlight = false
	a.count++
	a.lastDuration = duration
	a.mu.Unlock()
}

func (a *autosaver) stats() (int, time.Duration) {
	if a == nil {
		return 0, 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count, a.lastDuration
}

// flush waits for any in-flight autosave to finish.
func (a *autosaver) flush() {
	if a == nil {
		return
	}
	a.wg.Wait()
}

// notifyAutosave is called at the end of every committed mutation. It never
// blocks the caller: the save itself runs on a goroutine over the snapshot
// taken here.
func (e *Engine) notifyAutosave(ctx context.Context, trigger AutosaveTrigger) {
	a := e.autosave
	if a == nil || !a.cfg.Enabled || e.replaying {
		return
	}
	if !a.wants(trigger) {
		return
	}
	if !a.acquire() {
		e.logger.Debug("autosave throttled", "trigger", trigger)
		e.metrics.AutosaveOutcome("throttled")
		return
	}

	snapshot := e.state.Clone()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		result := e.performAutosave(ctx, trigger, snapshot)
		a.release(result.Duration)
	}()
}

// ManualAutosave saves immediately, bypassing the throttle and the trigger
// set. It runs synchronously and returns the result.
func (e *Engine) ManualAutosave(ctx context.Context) (*AutosaveResult, error) {
	snapshot := e.state.Clone()
	result := e.performAutosave(ctx, TriggerManual, snapshot)
	return &result, nil
}

func (e *Engine) performAutosave(ctx context.Context, trigger AutosaveTrigger, snapshot *domain.State) AutosaveResult {
	var saveMu *sync.Mutex
	if e.autosave != nil {
		saveMu = &e.autosave.saveMu
		saveMu.Lock()
		defer saveMu.Unlock()
	}

	start := time.Now()

	size := 0
	if payload, err := json.Marshal(snapshot); err == nil {
		size = len(payload)
	}

	skipMeta := false
	if e.autosave != nil {
		skipMeta = !e.autosave.cfg.EmbedMetadata
	}

	cp := e.newCheckpoint(snapshot, "autosave", &CheckpointOptions{
		Tags:         []string{"autosave", string(trigger)},
		SkipMetadata: skipMeta,
	})
	e.checkpoints.add(cp)
	e.metrics.SetCheckpoints(e.checkpoints.len())

	result := AutosaveResult{
		OK:           true,
		CheckpointID: cp.ID,
		Trigger:      trigger,
		Duration:     time.Since(start),
		Size:         size,
	}

	e.logger.Debug("autosave complete",
		"trigger", trigger,
		"checkpoint", cp.ID,
		"size", size)
	e.metrics.AutosaveOutcome("saved")

	if e.hooks.OnAutosave != nil {
		e.hooks.OnAutosave(ctx, &domain.AutosaveEvent{
			EventBase:    domain.EventBase{Timestamp: e.clock(), Type: domain.EventAutosave},
			CheckpointID: result.CheckpointID,
			Trigger:      string(result.Trigger),
			Success:      result.OK,
			Duration:     result.Duration,
			Size:         result.Size,
		})
	}

	return result
}

// FlushAutosave blocks until any in-flight autosave has completed. Useful
// before shutdown or in tests that assert on checkpoint contents.
func (e *Engine) FlushAutosave() {
	e.autosave.flush()
}

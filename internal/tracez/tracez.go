// Package tracez implements the observability surface of spec §6:
// trace events (V8.GCIncrementalMarkingStart, V8.GCIncrementalMarking),
// per-step duration histograms, and the trace_incremental_marking log
// lines, using the libraries the teacher and the pack already pull in
// rather than a bespoke logger.
package tracez

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/pprof/profile"
	"github.com/mattn/go-colorable"

	incmark "github.com/domyhero/v8gc"
)

// Tracer implements incmark.Tracer. It logs trace_incremental_marking
// lines (colorized via go-colorable when writing to a terminal) and
// accumulates per-step durations into a pprof profile keyed by start
// reason, flushed by Flush.
type Tracer struct {
	mu       sync.Mutex
	logger   *log.Logger
	lockPath string
	reason   incmark.StartReason
	samples  []stepSample
	enabled  bool
}

type stepSample struct {
	reason   incmark.StartReason
	duration time.Duration
}

// New returns a Tracer writing colorized trace_incremental_marking lines
// to w (use colorable.NewColorableStdout() for terminal coloring). enabled
// mirrors the trace_incremental_marking flag of spec §6: when false,
// Logf/StepEvent/StartEvent are no-ops beyond histogram accumulation.
func New(w io.Writer, enabled bool) *Tracer {
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Tracer{logger: log.New(w, "", log.LstdFlags), enabled: enabled}
}

// StartEvent emits the V8.GCIncrementalMarkingStart trace event.
func (t *Tracer) StartEvent(reason incmark.StartReason) {
	t.mu.Lock()
	t.reason = reason
	t.mu.Unlock()
	if t.enabled {
		t.logger.Printf("\x1b[36mV8.GCIncrementalMarkingStart\x1b[0m reason=%s", reason)
	}
}

// StepEvent emits the V8.GCIncrementalMarking trace event and records a
// histogram sample for the step's duration.
func (t *Tracer) StepEvent(d time.Duration) {
	t.mu.Lock()
	t.samples = append(t.samples, stepSample{reason: t.reason, duration: d})
	reason := t.reason
	t.mu.Unlock()
	if t.enabled {
		t.logger.Printf("\x1b[33mV8.GCIncrementalMarking\x1b[0m reason=%s step_ms=%.3f", reason, d.Seconds()*1000)
	}
}

// Logf writes a plain trace_incremental_marking log line.
func (t *Tracer) Logf(format string, args ...interface{}) {
	if !t.enabled {
		return
	}
	t.logger.Printf(format, args...)
}

// SetLockPath configures the path of the shared trace-log lock file: with
// concurrent marking, multiple worker goroutines (and, in cmd/gcdemo's
// multi-process mode, multiple processes) may log simultaneously;
// gofrs/flock gives Flush exclusive access to the destination file while
// it writes the pprof profile out.
func (t *Tracer) SetLockPath(path string) { t.lockPath = path }

// Flush writes the accumulated per-step duration samples to path as a
// pprof profile, one sample value per step, labeled by start reason
// (spec §6 "histogram samples for start reason and per-step duration").
func (t *Tracer) Flush(path string) error {
	t.mu.Lock()
	samples := append([]stepSample(nil), t.samples...)
	t.mu.Unlock()

	if t.lockPath != "" {
		fl := flock.New(t.lockPath)
		if err := fl.Lock(); err != nil {
			return fmt.Errorf("tracez: lock %s: %w", t.lockPath, err)
		}
		defer fl.Unlock()
	}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "step", Unit: "nanoseconds"}},
		TimeNanos:  time.Now().UnixNano(),
	}
	loc := &profile.Location{ID: 1}
	fn := &profile.Function{ID: 1, Name: "incmark.Step"}
	loc.Line = []profile.Line{{Function: fn}}
	p.Function = []*profile.Function{fn}
	p.Location = []*profile.Location{loc}

	for _, s := range samples {
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{s.duration.Nanoseconds()},
			Label:    map[string][]string{"start_reason": {string(s.reason)}},
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tracez: create %s: %w", path, err)
	}
	defer f.Close()
	if err := p.Write(f); err != nil {
		return fmt.Errorf("tracez: write profile: %w", err)
	}
	return nil
}

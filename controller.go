package incmark

import (
	"time"
)

// State is the controller's state-machine enum (spec §3 "Controller
// state").
type State int

const (
	Stopped State = iota
	Sweeping
	Marking
	Complete
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Sweeping:
		return "SWEEPING"
	case Marking:
		return "MARKING"
	case Complete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// StartReason tags why a cycle was started, threaded through to the
// V8.GCIncrementalMarkingStart trace event and the pprof profile's sample
// label (SPEC_FULL §12).
type StartReason string

const (
	ReasonAllocationLimit StartReason = "allocation_limit"
	ReasonExternalAPI      StartReason = "external_api"
	ReasonIdleTask         StartReason = "idle_task"
	ReasonTesting          StartReason = "testing"
)

// IncrementalMarkingLimit classifies how urgently a cycle should start
// (SPEC_FULL §12).
type IncrementalMarkingLimit int

const (
	NoLimit IncrementalMarkingLimit = iota
	SoftLimit
	HardLimit
)

// Tuning holds the numeric constants of spec §4.5's step-size formula and
// §4.7's finalization rounds; internal/config loads these from YAML.
type Tuning struct {
	// AllocatedThreshold is the allocator-observer sampling interval
	// (spec §6).
	AllocatedThreshold uintptr
	// OldGenerationDivisor is the "128" in
	// initial_old_generation_size/128 (spec §4.5).
	OldGenerationDivisor uintptr
	// MinStepSize is THRESHOLD in max(.../128, THRESHOLD) (spec §4.5).
	MinStepSize uintptr
	// StepSizeWindowMs is the "300" in elapsed_ms/300 (spec §4.5).
	StepSizeWindowMs float64
	// OOMDivisor replaces OldGenerationDivisor (128 -> 16) once near
	// out-of-memory (spec §4.5, §7 "collapse step-count target").
	OOMDivisor uintptr
	// YoungGenerationCapacity and OOMSlackBytes together form the slack
	// threshold that triggers the OOM step-size collapse (spec §4.5).
	YoungGenerationCapacity uintptr
	OOMSlackBytes           uintptr
	// MaxStepSizeMs bounds bytes_to_process via estimate_for (spec §4.5).
	MaxStepSizeMs float64
	// MaxFinalizationRounds is MAX_ROUNDS (spec §4.7).
	MaxFinalizationRounds int
	// MinFinalizationProgress is MIN_PROGRESS (spec §4.7): a count of
	// worklist entries plus cached wrappers, not a byte quantity.
	MinFinalizationProgress uintptr
	// MaxMapAge is MAX_AGE (spec §3 "Retained-map list").
	MaxMapAge int
	// IdleDelayLimit bounds idle_marking_delay_counter before requesting
	// completion (spec §7 "Idle-marker stall").
	IdleDelayLimit int
}

// DefaultTuning matches the magnitudes named in spec §4.5 and §4.7.
func DefaultTuning() Tuning {
	return Tuning{
		AllocatedThreshold:      64 * 1024,
		OldGenerationDivisor:    128,
		MinStepSize:             64 * 1024,
		StepSizeWindowMs:        300,
		OOMDivisor:              16,
		YoungGenerationCapacity: 16 * 1024 * 1024,
		OOMSlackBytes:           64 * 1024 * 1024,
		MaxStepSizeMs:           1,
		MaxFinalizationRounds:   3,
		MinFinalizationProgress: 1000,
		MaxMapAge:               4,
		IdleDelayLimit:          3,
	}
}

// Controller is the incremental marker controller of spec §4.5: it owns
// the state machine, schedules steps, computes step sizes from allocation
// rate and elapsed time, and arbitrates with sweeper/scavenger/concurrent
// marker. It exclusively owns the worklist, the state flags, and the
// counters (spec §3 "Ownership").
type Controller struct {
	tuning Tuning

	colors   *ColorStore
	worklist *Worklist
	visitor  *Visitor
	barrier  *WriteBarrier

	pages      PageSpace
	compactor  Compactor
	embedder   EmbedderTracer
	concurrent ConcurrentMarker
	stackGuard StackGuard
	stubs      StubsRegistry
	tracer     Tracer
	roots      RootSet
	maps       *RetainedMaps

	// state machine (spec §3)
	state                      State
	isCompacting               bool
	blackAllocation            bool
	finalizeMarkingCompleted   bool
	shouldHurry                bool
	wasActivated               bool
	concurrentMarkingEnabled   bool
	featureEnabled             bool
	serializerEnabled          bool
	deserializationFinished    bool
	reduceMemoryFootprint      bool

	// counters (spec §3)
	bytesAllocated                      uintptr
	bytesMarkedAheadOfSchedule          uintptr
	incrementalMarkingFinalizationRounds int
	idleMarkingDelayCounter             int
	startTimeMs                         float64
	initialOldGenerationSize            uintptr
	oldGenerationAllocationCounter      uintptr
	oldGenerationAllocationSnapshot     uintptr
	promotedSize                        uintptr

	traceWrapperToggle bool
	startReason        StartReason

	now func() time.Time
}

// RootSet is the strong-roots collaborator: ColorRootsGrey is called at
// StartMarking and again at every FinalizeIncrementally round (spec §4.5,
// §4.7 step 1).
type RootSet interface {
	ColorRootsGrey(colors *ColorStore, worklist *Worklist)
}

// Tracer receives the observability events of spec §6 "Observability".
// internal/tracez implements this.
type Tracer interface {
	StartEvent(reason StartReason)
	StepEvent(d time.Duration)
	Logf(format string, args ...interface{})
}

// NewController wires a Controller to the shared core state and its
// peers. Any nil peer is treated as absent (safe to omit in tests that
// don't exercise that collaborator).
func NewController(tuning Tuning, colors *ColorStore, worklist *Worklist, visitor *Visitor, barrier *WriteBarrier, roots RootSet, tracer Tracer) *Controller {
	return &Controller{
		tuning:         tuning,
		colors:         colors,
		worklist:       worklist,
		visitor:        visitor,
		barrier:        barrier,
		roots:          roots,
		tracer:         tracer,
		state:          Stopped,
		featureEnabled: true,
		now:            time.Now,
		maps:           NewRetainedMaps(),
	}
}

// SetPeers attaches the out-of-core collaborators (spec §6); all are
// optional.
func (c *Controller) SetPeers(pages PageSpace, compactor Compactor, embedder EmbedderTracer, concurrent ConcurrentMarker, stackGuard StackGuard, stubs StubsRegistry) {
	c.pages = pages
	c.compactor = compactor
	c.embedder = embedder
	c.concurrent = concurrent
	c.stackGuard = stackGuard
	c.stubs = stubs
}

// State returns the current controller state.
func (c *Controller) State() State { return c.state }

// IsMarking reports whether the controller is in the MARKING state; write
// barriers consult this advisorily (spec §5).
func (c *Controller) IsMarking() bool { return c.state == Marking }

// SetFeatureEnabled, SetSerializerEnabled, and SetDeserializationFinished
// back the CanBeActivated conjunction of spec §4.5.
func (c *Controller) SetFeatureEnabled(v bool)          { c.featureEnabled = v }
func (c *Controller) SetSerializerEnabled(v bool)       { c.serializerEnabled = v }
func (c *Controller) SetDeserializationFinished(v bool) { c.deserializationFinished = v }
func (c *Controller) SetReduceMemoryFootprint(v bool)   { c.reduceMemoryFootprint = v }

// CanBeActivated implements spec §4.5 "Start conditions": feature enabled
// AND heap not currently collecting AND deserialization finished AND
// serializer not enabled.
func (c *Controller) CanBeActivated(heapIsCollecting bool) bool {
	return c.featureEnabled && !heapIsCollecting && c.deserializationFinished && !c.serializerEnabled
}

// ShouldActivate classifies start urgency (SPEC_FULL §12), using the same
// slack computation as the OOM step-size collapse (spec §4.5).
func (c *Controller) ShouldActivate(heapIsCollecting bool) IncrementalMarkingLimit {
	if !c.CanBeActivated(heapIsCollecting) {
		return NoLimit
	}
	slack := c.tuning.YoungGenerationCapacity + c.tuning.OOMSlackBytes
	if c.promotedSize+c.bytesAllocated >= slack {
		return HardLimit
	}
	if c.bytesAllocated >= c.tuning.MinStepSize {
		return SoftLimit
	}
	return NoLimit
}

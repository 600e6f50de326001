package nav

import "time"

const (
	// settleDelay is how long the incoming view's camera damps before the
	// cross-fade starts revealing it.
	settleDelay = 400 * time.Millisecond
	// fadeDuration is the cross-fade between the outgoing snapshot and the
	// incoming view.
	fadeDuration = 400 * time.Millisecond
)

// Clock abstracts timer scheduling so transitions are testable without
// real time.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable scheduled callback.
type Timer interface {
	Stop() bool
}

// RealClock schedules on the runtime timer heap.
type RealClock struct{}

// AfterFunc implements Clock.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Phase is where a transition currently is.
type Phase int

const (
	// PhaseIdle means no transition is running.
	PhaseIdle Phase = iota
	// PhaseSettling is the camera-damping window before the fade.
	PhaseSettling
	// PhaseFading is the cross-fade window.
	PhaseFading
)

// Transitioner runs the two-phase view swap: let the incoming view's camera
// settle, then cross-fade the outgoing snapshot away. Only one transition
// runs at a time; starting a new one flushes the previous to completion
// synchronously so callbacks never interleave.
type Transitioner struct {
	clock Clock

	phase  Phase
	timer  Timer
	onFade func()
	onDone func()
}

// NewTransitioner builds a Transitioner on the given clock.
func NewTransitioner(clock Clock) *Transitioner {
	if clock == nil {
		clock = RealClock{}
	}
	return &Transitioner{clock: clock}
}

// Phase returns the current phase.
func (tr *Transitioner) Phase() Phase { return tr.phase }

// Begin starts a transition. onFade fires when the cross-fade should start,
// onDone when the outgoing snapshot can be dropped. Any in-flight transition
// is flushed first. Only flies need the settle window, since only they move
// the camera before revealing; fades start fading immediately, and instants
// fire both callbacks synchronously.
func (tr *Transitioner) Begin(kind TransitionKind, onFade, onDone func()) {
	tr.Flush()

	tr.onFade = onFade
	tr.onDone = onDone

	switch kind {
	case TransitionInstant:
		tr.fire(&tr.onFade)
		tr.fire(&tr.onDone)
		tr.phase = PhaseIdle
	case TransitionFade:
		tr.startFade()
	default:
		tr.phase = PhaseSettling
		tr.timer = tr.clock.AfterFunc(settleDelay, tr.startFade)
	}
}

func (tr *Transitioner) startFade() {
	tr.phase = PhaseFading
	tr.fire(&tr.onFade)
	tr.timer = tr.clock.AfterFunc(fadeDuration, tr.finish)
}

func (tr *Transitioner) finish() {
	tr.phase = PhaseIdle
	tr.timer = nil
	tr.fire(&tr.onDone)
}

// Flush completes any in-flight transition synchronously: remaining phase
// callbacks run in order before Flush returns.
func (tr *Transitioner) Flush() {
	if tr.phase == PhaseIdle {
		return
	}
	if tr.timer != nil {
		tr.timer.Stop()
		tr.timer = nil
	}
	tr.fire(&tr.onFade)
	tr.fire(&tr.onDone)
	tr.phase = PhaseIdle
}

// fire runs and clears a callback slot so each fires at most once.
func (tr *Transitioner) fire(slot *func()) {
	f := *slot
	*slot = nil
	if f != nil {
		f()
	}
}

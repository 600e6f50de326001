package nav

import (
	"testing"
	"time"

	"crafttree/pkg/craft"
)

func treeState(itemID string, locs ...string) *ViewState {
	v := &ViewState{
		Kind:          ViewTree,
		ItemID:        itemID,
		Mode:          craft.ModeRecipe,
		ItemLocations: make(map[string]ScreenRect),
	}
	if itemID != "" {
		v.ItemLocations[itemID] = ScreenRect{X: 100, Y: 100, W: 128}
	}
	for _, id := range locs {
		v.ItemLocations[id] = ScreenRect{X: 200, Y: 300, W: 96}
	}
	return v
}

func TestPushTruncatesForwardTail(t *testing.T) {
	h := NewHistory()
	s0 := treeState("s0")
	s1 := treeState("s1")
	s2 := treeState("s2")
	h.Push(s0)
	h.Push(s1)
	h.Push(s2)

	if _, ok := h.Back(); !ok {
		t.Fatal("back from the tip should move")
	}
	if got := h.Current().ItemID; got != "s1" {
		t.Fatalf("cursor at %q, want s1", got)
	}

	h.Push(treeState("s3"))

	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3 after truncation", h.Len())
	}
	if h.CanForward() {
		t.Error("forward tail should be gone after a push")
	}
	if _, ok := h.Back(); !ok {
		t.Fatal("back should still work")
	}
	if got := h.Current().ItemID; got != "s1" {
		t.Errorf("entry before the new tip = %q, want s1", got)
	}
}

func TestHistoryBoundsAndJump(t *testing.T) {
	h := NewHistory()
	if _, ok := h.Back(); ok {
		t.Error("back on empty history should refuse")
	}
	h.Push(treeState("a"))
	if _, ok := h.Back(); ok {
		t.Error("back from the only entry should refuse")
	}
	if _, ok := h.Forward(); ok {
		t.Error("forward from the tip should refuse")
	}
	h.Push(treeState("b"))
	if v, ok := h.JumpTo(0); !ok || v.ItemID != "a" {
		t.Error("jump to index 0 should land on the first entry")
	}
	if _, ok := h.JumpTo(5); ok {
		t.Error("jump out of range should refuse")
	}
}

func TestPushClonesSnapshots(t *testing.T) {
	h := NewHistory()
	v := treeState("a")
	v.Expanded = map[string]bool{"a": true}
	h.Push(v)

	v.Expanded["mutated"] = true
	v.ItemLocations["mutated"] = ScreenRect{}

	stored := h.Current()
	if stored.Expanded["mutated"] {
		t.Error("history entry shares the expanded map with live state")
	}
	if _, ok := stored.ItemLocations["mutated"]; ok {
		t.Error("history entry shares the locations map with live state")
	}
}

func TestReconcileKinds(t *testing.T) {
	home := &ViewState{Kind: ViewHome}
	category := &ViewState{Kind: ViewCategory, Category: "Melee Weapons"}

	swordTree := treeState("sword", "bar")
	barTree := treeState("bar", "sword")
	lonelyTree := treeState("shield")

	discover := &ViewState{
		Kind: ViewTree,
		Mode: craft.ModeDiscover,
		ItemLocations: map[string]ScreenRect{
			"sword": {X: 50, Y: 60, W: 96},
		},
	}

	cases := []struct {
		name       string
		from, to   *ViewState
		backward   bool
		want       TransitionKind
		wantBridge string
	}{
		{"first render", nil, swordTree, false, TransitionInstant, ""},
		{"home to tree", home, swordTree, false, TransitionFade, ""},
		{"tree to category", swordTree, category, false, TransitionFade, ""},
		{"forward fly", swordTree, barTree, false, TransitionFly, "bar"},
		{"backward fly", barTree, swordTree, true, TransitionFly, "bar"},
		{"no shared card", swordTree, lonelyTree, false, TransitionFade, ""},
		{"into discover with shared card", swordTree, discover, false, TransitionFly, "sword"},
		{"out of discover backward", discover, swordTree, true, TransitionFly, "sword"},
		{"discover without shared card", lonelyTree, discover, false, TransitionFade, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, bridge := Reconcile(tc.from, tc.to, tc.backward)
			if kind != tc.want || bridge != tc.wantBridge {
				t.Errorf("Reconcile = (%v, %q), want (%v, %q)", kind, bridge, tc.want, tc.wantBridge)
			}
		})
	}
}

func TestBridgeEntryPoseOverlaysAnchor(t *testing.T) {
	// The clicked card is 96px wide at screen (500, 300); the incoming
	// root is 128px wide at local (200, 80).
	pose := BridgeEntryPose(ScreenRect{X: 500, Y: 300, W: 96}, 200, 80, 128)

	if pose.Scale != 0.75 {
		t.Fatalf("scale = %v, want 0.75", pose.Scale)
	}
	if gotX := 200*pose.Scale + pose.X; gotX != 500 {
		t.Errorf("anchor lands at x=%v, want 500", gotX)
	}
	if gotY := 80*pose.Scale + pose.Y; gotY != 300 {
		t.Errorf("anchor lands at y=%v, want 300", gotY)
	}
}

func TestURLRoundTrip(t *testing.T) {
	cases := []struct {
		state *ViewState
		raw   string
	}{
		{&ViewState{Kind: ViewTree, ItemID: "copper-sword"}, "?id=copper-sword"},
		{&ViewState{Kind: ViewCategory, Category: "Melee Weapons"}, "?category=Melee+Weapons"},
		{&ViewState{Kind: ViewHome}, "?"},
	}
	for _, tc := range cases {
		if got := EncodeURL(tc.state); got != tc.raw {
			t.Errorf("EncodeURL = %q, want %q", got, tc.raw)
		}
		parsed := ParseURL(tc.raw)
		if parsed.Kind != tc.state.Kind || parsed.ItemID != tc.state.ItemID || parsed.Category != tc.state.Category {
			t.Errorf("ParseURL(%q) = %+v, want %+v", tc.raw, parsed, tc.state)
		}
	}

	if v := ParseURL("?id=sword&category=Tools"); v.Kind != ViewTree {
		t.Error("id should win when both parameters are present")
	}
	if v := ParseURL("?junk=1"); v.Kind != ViewHome {
		t.Error("unknown parameters fall back to home")
	}
}

// fakeClock collects scheduled callbacks and fires them on demand.
type fakeClock struct {
	pending []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	c.pending = append(c.pending, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fireNext runs the oldest live timer.
func (c *fakeClock) fireNext(t *testing.T) {
	t.Helper()
	for len(c.pending) > 0 {
		timer := c.pending[0]
		c.pending = c.pending[1:]
		if timer.stopped {
			continue
		}
		timer.f()
		return
	}
	t.Fatal("no pending timer")
}

func TestTransitionTwoPhaseOrdering(t *testing.T) {
	clock := &fakeClock{}
	tr := NewTransitioner(clock)

	var events []string
	tr.Begin(TransitionFly,
		func() { events = append(events, "fade") },
		func() { events = append(events, "done") },
	)

	if tr.Phase() != PhaseSettling {
		t.Fatalf("phase = %v, want settling", tr.Phase())
	}
	if len(events) != 0 {
		t.Fatal("no callbacks before the settle window elapses")
	}

	clock.fireNext(t)
	if tr.Phase() != PhaseFading || len(events) != 1 || events[0] != "fade" {
		t.Fatalf("after settle: phase %v events %v", tr.Phase(), events)
	}

	clock.fireNext(t)
	if tr.Phase() != PhaseIdle || len(events) != 2 || events[1] != "done" {
		t.Fatalf("after fade: phase %v events %v", tr.Phase(), events)
	}
}

func TestTransitionInstantFiresSynchronously(t *testing.T) {
	tr := NewTransitioner(&fakeClock{})
	var events []string
	tr.Begin(TransitionInstant,
		func() { events = append(events, "fade") },
		func() { events = append(events, "done") },
	)
	if len(events) != 2 || events[0] != "fade" || events[1] != "done" {
		t.Fatalf("events = %v, want fade then done with no timers", events)
	}
}

func TestFadeSkipsSettleWindow(t *testing.T) {
	clock := &fakeClock{}
	tr := NewTransitioner(clock)

	var events []string
	tr.Begin(TransitionFade,
		func() { events = append(events, "fade") },
		func() { events = append(events, "done") },
	)
	if tr.Phase() != PhaseFading || len(events) != 1 || events[0] != "fade" {
		t.Fatalf("fade should start immediately: phase %v events %v", tr.Phase(), events)
	}
	clock.fireNext(t)
	if tr.Phase() != PhaseIdle || len(events) != 2 {
		t.Fatalf("after fade window: phase %v events %v", tr.Phase(), events)
	}
}

func TestBeginFlushesInFlightTransition(t *testing.T) {
	clock := &fakeClock{}
	tr := NewTransitioner(clock)

	var events []string
	tr.Begin(TransitionFly,
		func() { events = append(events, "fade1") },
		func() { events = append(events, "done1") },
	)
	clock.fireNext(t) // into the fading phase, done1 still pending

	tr.Begin(TransitionFly,
		func() { events = append(events, "fade2") },
		func() { events = append(events, "done2") },
	)

	// The first transition's remaining callback ran synchronously before
	// the second was scheduled, and fade1 did not fire twice.
	want := []string{"fade1", "done1"}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("events = %v, want %v", events, want)
	}
	if tr.Phase() != PhaseSettling {
		t.Errorf("phase = %v, want the second transition settling", tr.Phase())
	}

	clock.fireNext(t)
	clock.fireNext(t)
	if events[len(events)-1] != "done2" {
		t.Errorf("events = %v, want the second transition to complete", events)
	}
}

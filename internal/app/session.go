package app

import (
	"context"
	"fmt"

	"crafttree/internal/camera"
	"crafttree/internal/graph"
	"crafttree/internal/nav"
	"crafttree/internal/tree"
	"crafttree/pkg/craft"
)

// Session is one client's live view state: the mounted tree, the camera,
// the navigation history, and the persisted collections. Not safe for
// concurrent use; the transport serializes calls per session.
type Session struct {
	app *App
	ID  string

	view    *nav.ViewState
	tr      *tree.Tree
	layout  *tree.Layout
	cam     *camera.Camera
	history *nav.History
	trans   *nav.Transitioner

	collected   tree.CollectedSet
	expanded    map[string]bool
	selected    map[string]int
	discoverBox []string

	showTransmutations bool

	// ghost is true while an outgoing view snapshot is still cross-fading.
	ghost bool
}

// OpenSession restores or creates a session and loads its persisted state.
func (a *App) OpenSession(ctx context.Context, sessionID string) (*Session, error) {
	id, err := a.store.EnsureSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ensuring session: %w", err)
	}

	s := &Session{
		app:     a,
		ID:      id,
		cam:     camera.New(a.cfg.ViewportW, a.cfg.ViewportH),
		history: nav.NewHistory(),
		trans:   nav.NewTransitioner(a.cfg.Clock),
		view:    &nav.ViewState{Kind: nav.ViewHome},
	}

	state, err := a.store.LoadState(ctx, id)
	if err != nil {
		return nil, err
	}
	s.collected = make(tree.CollectedSet, len(state.Collected))
	for _, itemID := range state.Collected {
		s.collected[itemID] = true
	}
	s.expanded = make(map[string]bool, len(state.Expanded))
	for _, itemID := range state.Expanded {
		s.expanded[itemID] = true
	}
	s.discoverBox = state.DiscoverBox
	s.selected = state.RecipeIndices

	s.history.Push(s.view)

	a.logger.Info("session opened", "session", id,
		"collected", len(s.collected), "expanded", len(s.expanded))
	return s, nil
}

// resolver returns the session's resolver view, honoring its transmutation
// toggle over the app's shared catalog.
func (s *Session) resolver() *graph.Resolver {
	return s.app.resolver.WithTransmutations(s.showTransmutations)
}

// View returns the current view skeleton.
func (s *Session) View() *nav.ViewState { return s.view }

// Tree returns the mounted tree, nil outside tree views.
func (s *Session) Tree() *tree.Tree { return s.tr }

// Layout returns the current tree layout, nil outside tree views.
func (s *Session) Layout() *tree.Layout { return s.layout }

// Camera returns the session camera.
func (s *Session) Camera() *camera.Camera { return s.cam }

// History returns the navigation history.
func (s *Session) History() *nav.History { return s.history }

// Collected returns the collected-item set.
func (s *Session) Collected() tree.CollectedSet { return s.collected }

// DiscoverBox returns the discover box contents in order.
func (s *Session) DiscoverBox() []string { return s.discoverBox }

// URL returns the canonical query string for the current view.
func (s *Session) URL() string { return nav.EncodeURL(s.view) }

// Ghost reports whether an outgoing view snapshot is still fading.
func (s *Session) Ghost() bool { return s.ghost }

// TransitionPhase exposes the transition state machine's phase.
func (s *Session) TransitionPhase() nav.Phase { return s.trans.Phase() }

// Tick advances the camera one animation frame and reports whether more
// ticks are needed.
func (s *Session) Tick() bool { return s.cam.Step() }

// SetViewport records a viewport resize.
func (s *Session) SetViewport(w, h float64) { s.cam.SetViewport(w, h) }

// ShowTransmutations reports the transmutation toggle.
func (s *Session) ShowTransmutations() bool { return s.showTransmutations }

// ─────────────────────────────────────────────────────────────────────────
// Navigation
// ─────────────────────────────────────────────────────────────────────────

// ViewItem opens a crafting tree for an item in the given mode and pushes
// it onto history. An empty mode keeps the session's current mode, or
// defaults to recipe mode when coming from a non-tree view.
func (s *Session) ViewItem(ctx context.Context, itemID string, mode craft.Mode) error {
	if mode == "" {
		if s.view.Kind == nav.ViewTree && s.view.Mode != "" && s.view.Mode != craft.ModeDiscover {
			mode = s.view.Mode
		} else {
			mode = craft.ModeRecipe
		}
	}
	if !mode.IsValid() {
		return fmt.Errorf("invalid mode %q", mode)
	}

	next := &nav.ViewState{Kind: nav.ViewTree, ItemID: itemID, Mode: mode}
	return s.navigate(ctx, next, false)
}

// ViewDiscover opens the discover tree over the current box contents.
func (s *Session) ViewDiscover(ctx context.Context) error {
	next := &nav.ViewState{Kind: nav.ViewTree, Mode: craft.ModeDiscover,
		DiscoverBox: append([]string(nil), s.discoverBox...)}
	return s.navigate(ctx, next, false)
}

// ViewCategory opens a category grid.
func (s *Session) ViewCategory(ctx context.Context, category string) error {
	return s.navigate(ctx, &nav.ViewState{Kind: nav.ViewCategory, Category: category}, false)
}

// GoHome returns to the landing page.
func (s *Session) GoHome(ctx context.Context) error {
	return s.navigate(ctx, &nav.ViewState{Kind: nav.ViewHome}, false)
}

// OpenURL navigates to whatever a query string names. Used for deep links
// and popstate events.
func (s *Session) OpenURL(ctx context.Context, raw string) error {
	target := nav.ParseURL(raw)
	switch target.Kind {
	case nav.ViewTree:
		return s.ViewItem(ctx, target.ItemID, "")
	case nav.ViewCategory:
		return s.ViewCategory(ctx, target.Category)
	default:
		return s.GoHome(ctx)
	}
}

// Back moves one history entry older.
func (s *Session) Back(ctx context.Context) error {
	s.snapshotCurrent()
	prev, ok := s.history.Back()
	if !ok {
		return nil
	}
	return s.restore(ctx, prev, true)
}

// Forward moves one history entry newer.
func (s *Session) Forward(ctx context.Context) error {
	s.snapshotCurrent()
	next, ok := s.history.Forward()
	if !ok {
		return nil
	}
	return s.restore(ctx, next, false)
}

// JumpTo moves the history cursor to an absolute index and restores that
// entry the way Back and Forward do. Used by hosts that render the history
// list itself, like a long-press on the browser back button.
func (s *Session) JumpTo(ctx context.Context, index int) error {
	s.snapshotCurrent()
	cur := s.history.Cursor()
	if index == cur {
		return nil
	}
	entry, ok := s.history.JumpTo(index)
	if !ok {
		return nil
	}
	return s.restore(ctx, entry, index < cur)
}

// SwitchMode rebuilds the current tree under a different traversal mode.
// Entering discover mode with an empty box seeds it with the current root,
// so the player immediately sees what that item makes. Leaving discover
// anchors on the given item, then the tree root, then the last box item;
// with nothing to anchor on it falls back home.
func (s *Session) SwitchMode(ctx context.Context, mode craft.Mode, anchorItemID string) error {
	if !mode.IsValid() {
		return fmt.Errorf("invalid mode %q", mode)
	}
	if s.view.Kind != nav.ViewTree {
		return fmt.Errorf("no tree to switch mode on")
	}
	if mode == s.view.Mode {
		return nil
	}

	if mode == craft.ModeDiscover {
		if len(s.discoverBox) == 0 && s.view.ItemID != "" {
			s.discoverBox = []string{s.view.ItemID}
		}
		return s.ViewDiscover(ctx)
	}

	itemID := anchorItemID
	if itemID == "" {
		itemID = s.view.ItemID
	}
	if itemID == "" && len(s.discoverBox) > 0 {
		itemID = s.discoverBox[len(s.discoverBox)-1]
	}
	if itemID == "" {
		return s.GoHome(ctx)
	}
	return s.ViewItem(ctx, itemID, mode)
}

// navigate swaps to a new view forward: snapshot the outgoing view, push
// the new one, build it, and run the reconciled transition.
func (s *Session) navigate(ctx context.Context, next *nav.ViewState, backward bool) error {
	s.snapshotCurrent()
	from := s.view

	if err := s.build(next); err != nil {
		return err
	}
	s.history.Push(s.view)
	s.runTransition(from, backward)
	return s.persist(ctx)
}

// restore rebuilds a history entry, bringing back its expansion state,
// recipe selections, and camera.
func (s *Session) restore(ctx context.Context, entry *nav.ViewState, backward bool) error {
	from := s.view

	restored := entry.Clone()
	if restored.Expanded != nil {
		s.expanded = restored.Expanded
	}
	if restored.RecipeIndices != nil {
		s.selected = restored.RecipeIndices
	}
	if restored.Kind == nav.ViewTree && restored.Mode == craft.ModeDiscover {
		s.discoverBox = restored.DiscoverBox
	}

	if err := s.build(restored); err != nil {
		return err
	}
	s.runTransition(from, backward)
	return s.persist(ctx)
}

// build mounts a view: tree views get a fresh node arena and layout, grid
// views drop both.
func (s *Session) build(next *nav.ViewState) error {
	if next.Kind != nav.ViewTree {
		s.view = next
		s.tr = nil
		s.layout = nil
		return nil
	}

	if next.Mode == "" {
		next.Mode = craft.ModeRecipe
	}
	box := next.DiscoverBox
	if next.Mode == craft.ModeDiscover && box == nil {
		box = s.discoverBox
	}

	s.tr = tree.New(s.resolver(), next.ItemID, next.Mode, box, s.expanded, s.selected)
	s.layout = s.tr.ComputeLayout()
	s.view = next
	return nil
}

// snapshotCurrent refreshes the history entry for the view being left:
// expansion state, selections, camera pose, and the on-screen card
// locations that bridge transitions anchor to.
func (s *Session) snapshotCurrent() {
	if s.view == nil {
		return
	}
	snap := s.view.Clone()
	snap.Expanded = copySet(s.expanded)
	snap.RecipeIndices = copyIndices(s.selected)
	snap.DiscoverBox = append([]string(nil), s.discoverBox...)
	snap.Camera = s.cam.Current()
	snap.ItemLocations = s.screenLocations()
	s.view = snap
	s.history.ReplaceCurrent(snap)
}

// screenLocations projects the current layout's item cards to screen space.
func (s *Session) screenLocations() map[string]nav.ScreenRect {
	if s.layout == nil {
		return nil
	}
	pose := s.cam.Current()
	out := make(map[string]nav.ScreenRect, len(s.layout.Items))
	for id, loc := range s.layout.Items {
		sx, sy := s.cam.LocalToScreen(loc.X, loc.Y)
		out[id] = nav.ScreenRect{X: sx, Y: sy, W: loc.W * pose.Scale}
	}
	return out
}

// runTransition reconciles the outgoing and incoming views and drives the
// camera accordingly: flies bridge through a shared card and damp into the
// framed pose, fades and instants jump straight to it.
func (s *Session) runTransition(from *nav.ViewState, backward bool) {
	to := s.currentSnapshotForReconcile()
	kind, bridge := nav.Reconcile(from, to, backward)

	framed := s.framedPose(backward)

	switch kind {
	case nav.TransitionFly:
		if loc, ok := from.ItemLocations[bridge]; ok && s.layout != nil {
			if local, lok := s.layout.Items[bridge]; lok {
				s.cam.SnapTo(nav.BridgeEntryPose(loc, local.X, local.Y, local.W))
			}
		}
		s.cam.SetTarget(framed)
	default:
		s.cam.SnapTo(framed)
	}

	// Begin flushes any in-flight transition first, which may clear the
	// previous ghost; only then is the new one armed.
	s.trans.Begin(kind, nil, func() { s.ghost = false })
	s.ghost = s.trans.Phase() != nav.PhaseIdle
}

// currentSnapshotForReconcile builds a throwaway snapshot of the just-built
// view carrying its item locations, which Reconcile needs to validate a
// bridge. The camera pose used for projection is the framed pose the view
// will settle at.
func (s *Session) currentSnapshotForReconcile() *nav.ViewState {
	snap := s.view.Clone()
	if s.layout != nil {
		out := make(map[string]nav.ScreenRect, len(s.layout.Items))
		for id, loc := range s.layout.Items {
			out[id] = nav.ScreenRect{X: loc.X, Y: loc.Y, W: loc.W}
		}
		snap.ItemLocations = out
	}
	return snap
}

// framedPose is where the incoming view's camera should end up: the saved
// pose when going back to a view that had one, otherwise the fitted reset
// pose.
func (s *Session) framedPose(backward bool) camera.Pose {
	if backward {
		if saved := s.view.Camera; saved.Scale > 0 {
			return saved
		}
	}
	if s.layout != nil {
		return s.cam.FitBounds(s.layout.Width, s.layout.Height)
	}
	return camera.Pose{Scale: 1}
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyIndices(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Package nav owns navigation state: the view-state history stack, the
// transition reconciler that picks fly/fade/instant between two views, and
// the URL contract.
package nav

import (
	"crafttree/internal/camera"
	"crafttree/pkg/craft"
)

// ViewKind identifies what a view shows.
type ViewKind int

const (
	// ViewHome is the landing page with the category grid.
	ViewHome ViewKind = iota
	// ViewCategory is a single category's item grid.
	ViewCategory
	// ViewTree is an interactive crafting tree.
	ViewTree
)

// ScreenRect is an on-screen card placement captured when a view is left:
// center coordinates plus rendered width. Bridge poses are derived from
// these.
type ScreenRect struct {
	X float64
	Y float64
	W float64
}

// ViewState is a full snapshot of one view, captured the moment the user
// navigates away so that going back restores the view exactly.
type ViewState struct {
	Kind     ViewKind
	ItemID   string
	Category string
	Mode     craft.Mode

	Expanded      map[string]bool
	DiscoverBox   []string
	RecipeIndices map[string]int

	Camera camera.Pose
	// ItemLocations maps item ids to their on-screen cards at capture
	// time. Duplicate instances keep the last one; any instance anchors.
	ItemLocations map[string]ScreenRect
}

// Clone deep-copies the snapshot so later mutation of live session state
// cannot corrupt history entries.
func (v *ViewState) Clone() *ViewState {
	if v == nil {
		return nil
	}
	out := *v
	out.Expanded = copyBoolSet(v.Expanded)
	out.DiscoverBox = append([]string(nil), v.DiscoverBox...)
	out.RecipeIndices = copyIntMap(v.RecipeIndices)
	out.ItemLocations = copyRects(v.ItemLocations)
	return &out
}

func copyBoolSet(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyRects(m map[string]ScreenRect) map[string]ScreenRect {
	if m == nil {
		return nil
	}
	out := make(map[string]ScreenRect, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// History is a linear back/forward stack with a cursor. Pushing while the
// cursor sits mid-stack discards the forward tail, the way browser history
// does.
type History struct {
	stack  []*ViewState
	cursor int
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{cursor: -1}
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.stack) }

// Cursor returns the current position, -1 when empty.
func (h *History) Cursor() int { return h.cursor }

// Current returns the entry at the cursor.
func (h *History) Current() *ViewState {
	if h.cursor < 0 || h.cursor >= len(h.stack) {
		return nil
	}
	return h.stack[h.cursor]
}

// Push records a new entry after the cursor, discarding any forward tail.
func (h *History) Push(v *ViewState) {
	h.stack = append(h.stack[:h.cursor+1], v.Clone())
	h.cursor = len(h.stack) - 1
}

// ReplaceCurrent overwrites the cursor entry in place. Used to refresh the
// snapshot of the view being left before moving the cursor.
func (h *History) ReplaceCurrent(v *ViewState) {
	if h.cursor >= 0 && h.cursor < len(h.stack) {
		h.stack[h.cursor] = v.Clone()
	}
}

// CanBack reports whether Back would move.
func (h *History) CanBack() bool { return h.cursor > 0 }

// CanForward reports whether Forward would move.
func (h *History) CanForward() bool { return h.cursor >= 0 && h.cursor < len(h.stack)-1 }

// Back moves the cursor one entry older and returns it.
func (h *History) Back() (*ViewState, bool) {
	if !h.CanBack() {
		return nil, false
	}
	h.cursor--
	return h.stack[h.cursor], true
}

// Forward moves the cursor one entry newer and returns it.
func (h *History) Forward() (*ViewState, bool) {
	if !h.CanForward() {
		return nil, false
	}
	h.cursor++
	return h.stack[h.cursor], true
}

// JumpTo moves the cursor to an absolute index.
func (h *History) JumpTo(index int) (*ViewState, bool) {
	if index < 0 || index >= len(h.stack) {
		return nil, false
	}
	h.cursor = index
	return h.stack[index], true
}

// TransitionKind is the animation class between two views.
type TransitionKind int

const (
	// TransitionInstant swaps views with no animation.
	TransitionInstant TransitionKind = iota
	// TransitionFade cross-fades without camera continuity.
	TransitionFade
	// TransitionFly bridges the two views through a shared item card.
	TransitionFly
)

// Reconcile decides how to move between two views and which item, if any,
// bridges them. A fly needs both views to be trees and the bridge item to
// have a known card in both; everything else degrades to a fade. Discover
// trees have no root item, so a crossing into or out of discover flies only
// when the non-discover side's root appears somewhere in the discover tree.
func Reconcile(from, to *ViewState, backward bool) (TransitionKind, string) {
	if from == nil || to == nil {
		return TransitionInstant, ""
	}
	if from.Kind != ViewTree || to.Kind != ViewTree {
		return TransitionFade, ""
	}

	bridge := to.ItemID
	if backward {
		bridge = from.ItemID
	}
	if bridge == "" {
		// One side is a discover tree; try the other side's root.
		if bridge = from.ItemID; bridge == "" {
			bridge = to.ItemID
		}
	}
	if bridge == "" {
		return TransitionFade, ""
	}

	if _, ok := from.ItemLocations[bridge]; !ok {
		return TransitionFade, ""
	}
	if _, ok := to.ItemLocations[bridge]; !ok {
		return TransitionFade, ""
	}
	return TransitionFly, bridge
}

// BridgeEntryPose computes the camera pose at which the incoming tree's
// local anchor card exactly overlays the outgoing view's on-screen anchor
// card: scale matches the card widths, translation matches the centers.
// The incoming view starts at this pose and damps toward its framed pose,
// which reads as the clicked card growing into the new root.
func BridgeEntryPose(anchorScreen ScreenRect, anchorLocalX, anchorLocalY, anchorLocalW float64) camera.Pose {
	if anchorLocalW <= 0 || anchorScreen.W <= 0 {
		return camera.Pose{Scale: 1}
	}
	scale := anchorScreen.W / anchorLocalW
	return camera.Pose{
		X:     anchorScreen.X - anchorLocalX*scale,
		Y:     anchorScreen.Y - anchorLocalY*scale,
		Scale: scale,
	}
}

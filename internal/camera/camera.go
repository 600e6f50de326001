// Package camera implements the damped pan/zoom engine: a current pose
// chasing a target pose, pointer-invariant zoom, and the view-framing
// helpers for reset and subtree focus.
package camera

// Pose is a camera position: the tree-local origin's screen offset plus the
// uniform scale.
type Pose struct {
	X     float64
	Y     float64
	Scale float64
}

const (
	// damping is the per-tick convergence factor toward the target pose.
	damping = 0.15
	// settleEpsilon is the L1 pose distance below which the camera snaps
	// to the target and the tick loop stops.
	settleEpsilon = 0.001

	maxScale = 4.0

	resetPadding  = 80.0
	resetMaxScale = 1.1
	resetMinY     = 40.0

	focusPadding  = 120.0
	focusMaxScale = 1.5

	nudgePadding = 60.0
)

// Camera is the damped pan/zoom state for one view. Not safe for concurrent
// use; the owning session serializes access.
type Camera struct {
	current Pose
	target  Pose

	// interacting suppresses the settle snap so an active drag or pinch
	// never fights the damping.
	interacting bool
	animating   bool

	viewportW float64
	viewportH float64
}

// New creates a camera with a unit pose and the given viewport.
func New(viewportW, viewportH float64) *Camera {
	p := Pose{Scale: 1}
	return &Camera{current: p, target: p, viewportW: viewportW, viewportH: viewportH}
}

// Current returns the pose applied to the rendered frame.
func (c *Camera) Current() Pose { return c.current }

// Target returns the pose the camera is converging toward.
func (c *Camera) Target() Pose { return c.target }

// Animating reports whether ticks are still moving the camera.
func (c *Camera) Animating() bool { return c.animating }

// SetViewport records a viewport resize. Scale bounds depend on it.
func (c *Camera) SetViewport(w, h float64) {
	c.viewportW = w
	c.viewportH = h
}

// MinScale is the zoom-out floor, loosened on narrow viewports so small
// screens can still see a whole tree.
func (c *Camera) MinScale() float64 {
	switch {
	case c.viewportW < 600:
		return 0.40
	case c.viewportW < 1024:
		return 0.25
	default:
		return 0.15
	}
}

func (c *Camera) clampScale(s float64) float64 {
	if floor := c.MinScale(); s < floor {
		return floor
	}
	if s > maxScale {
		return maxScale
	}
	return s
}

// SetTarget retargets the camera and restarts the damped approach.
func (c *Camera) SetTarget(p Pose) {
	p.Scale = c.clampScale(p.Scale)
	c.target = p
	c.animating = true
}

// SnapTo jumps both poses with no animation. Used for instant transitions
// and for restoring a saved pose.
func (c *Camera) SnapTo(p Pose) {
	p.Scale = c.clampScale(p.Scale)
	c.current = p
	c.target = p
	c.animating = false
}

// SnapToTarget completes any in-flight approach immediately.
func (c *Camera) SnapToTarget() {
	c.current = c.target
	c.animating = false
}

// StartInteraction marks a drag or pinch in progress. While interacting the
// settle snap is suppressed and ticks keep running.
func (c *Camera) StartInteraction() { c.interacting = true }

// EndInteraction releases the interaction hold.
func (c *Camera) EndInteraction() { c.interacting = false }

// Step advances the damped approach by one tick and reports whether another
// tick is needed. Each component moves a fixed fraction of its remaining
// distance; once the total L1 distance drops below the epsilon the pose
// snaps exactly onto the target and ticking stops.
func (c *Camera) Step() bool {
	dx := c.target.X - c.current.X
	dy := c.target.Y - c.current.Y
	ds := c.target.Scale - c.current.Scale

	dist := abs(dx) + abs(dy) + abs(ds)
	if dist < settleEpsilon {
		if !c.interacting {
			c.current = c.target
			c.animating = false
			return false
		}
		return true
	}

	c.current.X += dx * damping
	c.current.Y += dy * damping
	c.current.Scale += ds * damping
	c.animating = true
	return true
}

// ScreenToLocal maps a screen point into tree-local coordinates under the
// current pose.
func (c *Camera) ScreenToLocal(sx, sy float64) (float64, float64) {
	return (sx - c.current.X) / c.current.Scale, (sy - c.current.Y) / c.current.Scale
}

// LocalToScreen maps a tree-local point onto the screen under the current
// pose.
func (c *Camera) LocalToScreen(lx, ly float64) (float64, float64) {
	return lx*c.current.Scale + c.current.X, ly*c.current.Scale + c.current.Y
}

// Pan shifts the target by a screen-space delta and snaps the current pose
// along with it, since drags track the pointer exactly.
func (c *Camera) Pan(dx, dy float64) {
	c.target.X += dx
	c.target.Y += dy
	c.current.X = c.target.X
	c.current.Y = c.target.Y
}

// ZoomAt applies a wheel delta as an exponential zoom about a screen point.
// The tree-local point under the pointer stays fixed on screen once the
// damped approach settles.
func (c *Camera) ZoomAt(sx, sy, wheelDelta float64) {
	factor := 1 + (-wheelDelta * 0.0015)
	c.scaleAbout(sx, sy, c.target.Scale*factor)
}

// PinchAt rescales about a screen point by the ratio of the current pinch
// spread to the spread at gesture start.
func (c *Camera) PinchAt(sx, sy, startScale, spreadRatio float64) {
	c.scaleAbout(sx, sy, startScale*spreadRatio)
}

// scaleAbout retargets the scale, keeping the tree-local point under
// (sx, sy) stationary at the target pose. Wheel and pinch both land here,
// so every zoom converges through the damped tick like any other retarget.
func (c *Camera) scaleAbout(sx, sy, newScale float64) {
	newScale = c.clampScale(newScale)
	lx := (sx - c.target.X) / c.target.Scale
	ly := (sy - c.target.Y) / c.target.Scale
	c.SetTarget(Pose{
		X:     sx - lx*newScale,
		Y:     sy - ly*newScale,
		Scale: newScale,
	})
}

// FitBounds frames a tree of the given local size: scale to fit with the
// reset padding, capped so small trees don't blow up past readable size,
// centered horizontally and clamped below the top chrome. Used by the reset
// view action and initial placement.
func (c *Camera) FitBounds(treeW, treeH float64) Pose {
	scale := 1.0
	if treeW > 0 && treeH > 0 {
		sw := (c.viewportW - resetPadding) / treeW
		sh := (c.viewportH - resetPadding) / treeH
		scale = min(sw, sh)
	}
	if scale > resetMaxScale {
		scale = resetMaxScale
	}
	scale = c.clampScale(scale)

	x := (c.viewportW - treeW*scale) / 2
	y := (c.viewportH - treeH*scale) / 2
	if y < resetMinY {
		y = resetMinY
	}
	return Pose{X: x, Y: y, Scale: scale}
}

// FocusBounds frames a subtree region (local-space rectangle) with the focus
// padding and a tighter scale cap. Recipe subtrees grow downward so the
// region's top edge is pinned near the viewport top; usage subtrees grow
// upward and pin the bottom edge instead.
func (c *Camera) FocusBounds(x, y, w, h float64, pinBottom bool) Pose {
	scale := 1.0
	if w > 0 && h > 0 {
		sw := (c.viewportW - focusPadding) / w
		sh := (c.viewportH - focusPadding) / h
		scale = min(sw, sh)
	}
	if scale > focusMaxScale {
		scale = focusMaxScale
	}
	scale = c.clampScale(scale)

	px := (c.viewportW-w*scale)/2 - x*scale
	var py float64
	if pinBottom {
		py = c.viewportH - focusPadding/2 - (y+h)*scale
	} else {
		py = focusPadding/2 - y*scale
	}
	return Pose{X: px, Y: py, Scale: scale}
}

// NudgeIntoView pans the target by the minimal delta that brings a
// local-space rectangle inside the viewport with the nudge padding. Called
// after a node expands so the new children don't land off screen. Scale is
// untouched; a rectangle already in view leaves the camera alone.
func (c *Camera) NudgeIntoView(x0, y0, x1, y1 float64) {
	p := c.target
	dx := nudgeDelta(x0*p.Scale+p.X, x1*p.Scale+p.X, c.viewportW)
	dy := nudgeDelta(y0*p.Scale+p.Y, y1*p.Scale+p.Y, c.viewportH)
	if dx == 0 && dy == 0 {
		return
	}
	p.X += dx
	p.Y += dy
	c.SetTarget(p)
}

// nudgeDelta is the smallest shift bringing [lo, hi] inside the padded span.
// When the range cannot fit, the lo edge wins: the expanded node itself stays
// visible over its farthest child.
func nudgeDelta(lo, hi, span float64) float64 {
	if hi > span-nudgePadding {
		d := span - nudgePadding - hi
		if lo+d < nudgePadding {
			d = nudgePadding - lo
		}
		return d
	}
	if lo < nudgePadding {
		return nudgePadding - lo
	}
	return 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

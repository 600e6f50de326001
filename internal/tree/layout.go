package tree

// Card dimensions in tree-local pixels. Cards are square; the discover box
// root is a wide panel instead.
const (
	rootCardSize  = 128.0
	childCardSize = 96.0

	discoverBoxWidth  = 384.0
	discoverBoxHeight = 160.0

	siblingGap   = 24.0
	levelGap     = 72.0
	layoutMargin = 16.0
)

// Location is a node's placement in tree-local coordinates: the center of
// its card plus the card width. The camera maps these to screen space.
type Location struct {
	X float64
	Y float64
	W float64
}

// Layout is a full placement pass over the mounted tree.
type Layout struct {
	// Nodes places every mounted node by arena id.
	Nodes map[int]Location
	// Items places nodes by item id. Duplicate ids across branches keep the
	// last placement, which is what cross-view anchoring wants: any instance
	// of the item is a valid anchor.
	Items map[string]Location
	// Width and Height bound the occupied area including margins.
	Width  float64
	Height float64
}

// ComputeLayout places the mounted tree top-down: each node is centered over
// the span of its expanded children, siblings sit side by side, and each
// level steps down by the card height plus the connector gap. Coordinates
// are tree-local; usage trees use the same downward growth and leave any
// visual flip to the presentation layer.
func (t *Tree) ComputeLayout() *Layout {
	l := &Layout{
		Nodes: make(map[int]Location),
		Items: make(map[string]Location),
	}
	root := t.Root()
	if root == nil {
		return l
	}

	span := t.subtreeSpan(root)
	t.place(l, root, layoutMargin, layoutMargin, span)
	l.Width = span + 2*layoutMargin
	l.Height = t.subtreeDepth(root) + 2*layoutMargin
	return l
}

func (t *Tree) cardSize(n *Node) (w, h float64) {
	switch {
	case n.Kind == NodeDiscoverRoot:
		return discoverBoxWidth, discoverBoxHeight
	case n.Parent < 0:
		return rootCardSize, rootCardSize
	default:
		return childCardSize, childCardSize
	}
}

// subtreeSpan is the horizontal extent a node's subtree occupies.
func (t *Tree) subtreeSpan(n *Node) float64 {
	w, _ := t.cardSize(n)
	if !n.Expanded || len(n.Children) == 0 {
		return w
	}
	total := 0.0
	for i, childID := range n.Children {
		child, ok := t.nodes[childID]
		if !ok {
			continue
		}
		if i > 0 {
			total += siblingGap
		}
		total += t.subtreeSpan(child)
	}
	return max(w, total)
}

// subtreeDepth is the vertical extent from a node's top edge to the bottom
// of its deepest descendant.
func (t *Tree) subtreeDepth(n *Node) float64 {
	_, h := t.cardSize(n)
	if !n.Expanded || len(n.Children) == 0 {
		return h
	}
	deepest := 0.0
	for _, childID := range n.Children {
		child, ok := t.nodes[childID]
		if !ok {
			continue
		}
		deepest = max(deepest, t.subtreeDepth(child))
	}
	return h + levelGap + deepest
}

// place positions a node centered within span starting at x, then recurses
// into its children on the next level.
func (t *Tree) place(l *Layout, n *Node, x, y, span float64) {
	w, h := t.cardSize(n)
	loc := Location{X: x + span/2, Y: y + h/2, W: w}
	l.Nodes[n.ID] = loc
	if n.Kind == NodeItem {
		l.Items[n.ItemID] = loc
	}

	if !n.Expanded || len(n.Children) == 0 {
		return
	}

	childY := y + h + levelGap
	childrenSpan := 0.0
	for i, childID := range n.Children {
		child, ok := t.nodes[childID]
		if !ok {
			continue
		}
		if i > 0 {
			childrenSpan += siblingGap
		}
		childrenSpan += t.subtreeSpan(child)
	}

	childX := x + (span-childrenSpan)/2
	for _, childID := range n.Children {
		child, ok := t.nodes[childID]
		if !ok {
			continue
		}
		childSpan := t.subtreeSpan(child)
		t.place(l, child, childX, childY, childSpan)
		childX += childSpan + siblingGap
	}
}

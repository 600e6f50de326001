package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"crafttree/internal/app"
	"crafttree/internal/camera"
	"crafttree/internal/catalog"
	"crafttree/internal/tree"
	"crafttree/pkg/craft"
)

func (s *Server) registerHandlers() {
	s.handlers = map[string]MethodHandler{
		"session.open": s.handleSessionOpen,
		"data.load":    s.handleDataLoad,

		"view.item":     s.handleViewItem,
		"view.category": s.handleViewCategory,
		"view.home":     s.handleViewHome,
		"view.discover": s.handleViewDiscover,
		"view.url":      s.handleViewURL,
		"view.state":    s.handleViewState,

		"nav.back":    s.handleNavBack,
		"nav.forward": s.handleNavForward,
		"nav.jump":    s.handleNavJump,
		"mode.switch": s.handleModeSwitch,

		"tree.toggle":       s.handleTreeToggle,
		"tree.deep_expand":  s.handleTreeDeepExpand,
		"tree.expand_all":   s.handleTreeExpandAll,
		"tree.collapse_all": s.handleTreeCollapseAll,

		"recipe.select": s.handleRecipeSelect,
		"recipe.cycle":  s.handleRecipeCycle,
		"recipe.smart":  s.handleRecipeSmart,

		"collect.set":   s.handleCollectSet,
		"collect.clear": s.handleCollectClear,

		"discover.add":    s.handleDiscoverAdd,
		"discover.remove": s.handleDiscoverRemove,
		"discover.clear":  s.handleDiscoverClear,

		"settings.transmutations": s.handleTransmutations,

		"camera.tick":     s.handleCameraTick,
		"camera.reset":    s.handleCameraReset,
		"camera.focus":    s.handleCameraFocus,
		"camera.pan":      s.handleCameraPan,
		"camera.zoom":     s.handleCameraZoom,
		"camera.pinch":    s.handleCameraPinch,
		"camera.interact": s.handleCameraInteract,
		"camera.viewport": s.handleCameraViewport,

		"search":         s.handleSearch,
		"categories":     s.handleCategories,
		"category.items": s.handleCategoryItems,
	}
}

func decode[T any](params json.RawMessage) (T, error) {
	var p T
	if len(params) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return p, fmt.Errorf("invalid params: %w", err)
	}
	return p, nil
}

// ─────────────────────────────────────────────────────────────────────────
// Session and views
// ─────────────────────────────────────────────────────────────────────────

type sessionOpenParams struct {
	SessionID string  `json:"session_id,omitempty"`
	ViewportW float64 `json:"viewport_w,omitempty"`
	ViewportH float64 `json:"viewport_h,omitempty"`
}

func (s *Server) handleSessionOpen(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[sessionOpenParams](params)
	if err != nil {
		return nil, err
	}
	session, err := s.app.OpenSession(ctx, p.SessionID)
	if err != nil {
		return nil, err
	}
	if p.ViewportW > 0 && p.ViewportH > 0 {
		session.SetViewport(p.ViewportW, p.ViewportH)
	}
	s.session = session
	return map[string]any{
		"session_id": session.ID,
		"items":      s.app.Catalog().Len(),
		"source":     s.app.DataSource(),
	}, nil
}

type dataLoadParams struct {
	Path string          `json:"path,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// handleDataLoad replaces the item database from a file path or an inline
// JSON export. This is the manual-load path for a server that started with
// no working data source, so it works before session.open.
func (s *Server) handleDataLoad(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[dataLoadParams](params)
	if err != nil {
		return nil, err
	}

	var cat *catalog.Catalog
	var source string
	switch {
	case p.Path != "":
		cat, err = catalog.LoadFile(ctx, p.Path)
		source = p.Path
	case len(p.Data) > 0:
		cat, err = catalog.Load(p.Data)
		source = "upload"
	default:
		return nil, fmt.Errorf("data.load needs a path or an inline payload")
	}
	if err != nil {
		return nil, err
	}

	s.app.ReplaceCatalog(cat, source)
	return map[string]any{"items": cat.Len(), "source": source}, nil
}

type viewItemParams struct {
	ID   string     `json:"id"`
	Mode craft.Mode `json:"mode,omitempty"`
}

func (s *Server) handleViewItem(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[viewItemParams](params)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	if err := session.ViewItem(ctx, p.ID, p.Mode); err != nil {
		return nil, err
	}
	return s.viewState(session), nil
}

type viewCategoryParams struct {
	Category string `json:"category"`
}

func (s *Server) handleViewCategory(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[viewCategoryParams](params)
	if err != nil {
		return nil, err
	}
	if err := session.ViewCategory(ctx, p.Category); err != nil {
		return nil, err
	}
	return s.viewState(session), nil
}

func (s *Server) handleViewHome(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if err := session.GoHome(ctx); err != nil {
		return nil, err
	}
	return s.viewState(session), nil
}

func (s *Server) handleViewDiscover(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if err := session.ViewDiscover(ctx); err != nil {
		return nil, err
	}
	return s.viewState(session), nil
}

type viewURLParams struct {
	Query string `json:"query"`
}

func (s *Server) handleViewURL(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[viewURLParams](params)
	if err != nil {
		return nil, err
	}
	if err := session.OpenURL(ctx, p.Query); err != nil {
		return nil, err
	}
	return s.viewState(session), nil
}

func (s *Server) handleViewState(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	return s.viewState(session), nil
}

func (s *Server) handleNavBack(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if err := session.Back(ctx); err != nil {
		return nil, err
	}
	return s.viewState(session), nil
}

func (s *Server) handleNavForward(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if err := session.Forward(ctx); err != nil {
		return nil, err
	}
	return s.viewState(session), nil
}

type navJumpParams struct {
	Index int `json:"index"`
}

func (s *Server) handleNavJump(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[navJumpParams](params)
	if err != nil {
		return nil, err
	}
	if err := session.JumpTo(ctx, p.Index); err != nil {
		return nil, err
	}
	return s.viewState(session), nil
}

type modeSwitchParams struct {
	Mode   craft.Mode `json:"mode"`
	Anchor string     `json:"anchor,omitempty"`
}

func (s *Server) handleModeSwitch(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[modeSwitchParams](params)
	if err != nil {
		return nil, err
	}
	if err := session.SwitchMode(ctx, p.Mode, p.Anchor); err != nil {
		return nil, err
	}
	return s.viewState(session), nil
}

// ─────────────────────────────────────────────────────────────────────────
// Tree operations
// ─────────────────────────────────────────────────────────────────────────

type nodeParams struct {
	Node   int    `json:"node"`
	Target string `json:"target,omitempty"` // "open", "close", or flip
}

func (s *Server) handleTreeToggle(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[nodeParams](params)
	if err != nil {
		return nil, err
	}
	target := tree.ToggleFlip
	switch p.Target {
	case "open":
		target = tree.ToggleOpen
	case "close":
		target = tree.ToggleClose
	case "":
	default:
		return nil, fmt.Errorf("invalid target %q", p.Target)
	}
	changed, err := session.ToggleNode(ctx, p.Node, target)
	if err != nil {
		return nil, err
	}
	return map[string]any{"changed": changed, "tree": s.treeState(session)}, nil
}

func (s *Server) handleTreeDeepExpand(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[nodeParams](params)
	if err != nil {
		return nil, err
	}
	changed, err := session.DeepExpandNode(ctx, p.Node)
	if err != nil {
		return nil, err
	}
	return map[string]any{"changed": changed, "tree": s.treeState(session)}, nil
}

type expandAllParams struct {
	Force bool `json:"force,omitempty"`
}

func (s *Server) handleTreeExpandAll(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[expandAllParams](params)
	if err != nil {
		return nil, err
	}
	res, err := session.ExpandAll(ctx, p.Force)
	if err != nil {
		return nil, err
	}
	confirm := res.Passes == 0 && res.Nodes == 0 && (res.Truncated || res.Estimated > 0)
	return map[string]any{
		"passes":        res.Passes,
		"nodes":         res.Nodes,
		"estimated":     res.Estimated,
		"truncated":     res.Truncated,
		"needs_confirm": confirm && !p.Force,
		"tree":          s.treeState(session),
	}, nil
}

func (s *Server) handleTreeCollapseAll(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if err := session.CollapseAll(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"tree": s.treeState(session)}, nil
}

type recipeSelectParams struct {
	Item  string `json:"item"`
	Index int    `json:"index"`
}

func (s *Server) handleRecipeSelect(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[recipeSelectParams](params)
	if err != nil {
		return nil, err
	}
	if err := session.SelectRecipe(ctx, p.Item, p.Index); err != nil {
		return nil, err
	}
	return map[string]any{"tree": s.treeState(session)}, nil
}

type recipeCycleParams struct {
	Item  string `json:"item"`
	Delta int    `json:"delta"`
}

func (s *Server) handleRecipeCycle(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[recipeCycleParams](params)
	if err != nil {
		return nil, err
	}
	if p.Delta == 0 {
		p.Delta = 1
	}
	if err := session.CycleRecipe(ctx, p.Item, p.Delta); err != nil {
		return nil, err
	}
	return map[string]any{"tree": s.treeState(session)}, nil
}

type recipeSmartParams struct {
	Item string `json:"item"`
}

func (s *Server) handleRecipeSmart(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[recipeSmartParams](params)
	if err != nil {
		return nil, err
	}
	if err := session.UseSmartRecipe(ctx, p.Item); err != nil {
		return nil, err
	}
	return map[string]any{"tree": s.treeState(session)}, nil
}

// ─────────────────────────────────────────────────────────────────────────
// Collected items and discover box
// ─────────────────────────────────────────────────────────────────────────

type collectSetParams struct {
	Node  int  `json:"node"`
	Value bool `json:"value"`
}

func (s *Server) handleCollectSet(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[collectSetParams](params)
	if err != nil {
		return nil, err
	}
	if err := session.SetCollected(ctx, p.Node, p.Value); err != nil {
		return nil, err
	}
	return map[string]any{"collected": session.Collected().IDs()}, nil
}

func (s *Server) handleCollectClear(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if err := session.ClearCollected(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"collected": []string{}}, nil
}

type discoverParams struct {
	ID string `json:"id"`
}

func (s *Server) handleDiscoverAdd(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[discoverParams](params)
	if err != nil {
		return nil, err
	}
	if err := session.AddToDiscoverBox(ctx, p.ID); err != nil {
		return nil, err
	}
	return map[string]any{"box": session.DiscoverBox()}, nil
}

func (s *Server) handleDiscoverRemove(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[discoverParams](params)
	if err != nil {
		return nil, err
	}
	if err := session.RemoveFromDiscoverBox(ctx, p.ID); err != nil {
		return nil, err
	}
	return map[string]any{"box": session.DiscoverBox()}, nil
}

func (s *Server) handleDiscoverClear(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if err := session.ClearDiscoverBox(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"box": []string{}}, nil
}

type transmutationsParams struct {
	Show bool `json:"show"`
}

func (s *Server) handleTransmutations(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[transmutationsParams](params)
	if err != nil {
		return nil, err
	}
	if err := session.SetShowTransmutations(ctx, p.Show); err != nil {
		return nil, err
	}
	return map[string]any{"show": p.Show, "tree": s.treeState(session)}, nil
}

// ─────────────────────────────────────────────────────────────────────────
// Camera
// ─────────────────────────────────────────────────────────────────────────

func (s *Server) handleCameraTick(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	more := session.Tick()
	return map[string]any{"pose": session.Camera().Current(), "animating": more}, nil
}

func (s *Server) handleCameraReset(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if err := session.ResetView(); err != nil {
		return nil, err
	}
	return map[string]any{"target": session.Camera().Target()}, nil
}

func (s *Server) handleCameraFocus(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[nodeParams](params)
	if err != nil {
		return nil, err
	}
	if err := session.FocusNode(p.Node); err != nil {
		return nil, err
	}
	return map[string]any{"target": session.Camera().Target()}, nil
}

type panParams struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (s *Server) handleCameraPan(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[panParams](params)
	if err != nil {
		return nil, err
	}
	session.Camera().Pan(p.DX, p.DY)
	return map[string]any{"pose": session.Camera().Current()}, nil
}

type zoomParams struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Delta float64 `json:"delta"`
}

func (s *Server) handleCameraZoom(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[zoomParams](params)
	if err != nil {
		return nil, err
	}
	session.Camera().ZoomAt(p.X, p.Y, p.Delta)
	// Zoom retargets; the client keeps ticking until the pose converges.
	return map[string]any{"pose": session.Camera().Target()}, nil
}

type pinchParams struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	StartScale float64 `json:"start_scale"`
	Ratio      float64 `json:"ratio"`
}

func (s *Server) handleCameraPinch(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[pinchParams](params)
	if err != nil {
		return nil, err
	}
	session.Camera().PinchAt(p.X, p.Y, p.StartScale, p.Ratio)
	return map[string]any{"pose": session.Camera().Target()}, nil
}

type interactParams struct {
	Active bool `json:"active"`
}

// handleCameraInteract brackets a drag or pinch gesture so the settle snap
// never fights the pointer.
func (s *Server) handleCameraInteract(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[interactParams](params)
	if err != nil {
		return nil, err
	}
	if p.Active {
		session.Camera().StartInteraction()
	} else {
		session.Camera().EndInteraction()
	}
	return map[string]any{"interacting": p.Active}, nil
}

type viewportParams struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (s *Server) handleCameraViewport(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[viewportParams](params)
	if err != nil {
		return nil, err
	}
	session.SetViewport(p.W, p.H)
	return map[string]any{"min_scale": session.Camera().MinScale()}, nil
}

// ─────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────

type searchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Server) handleSearch(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[searchParams](params)
	if err != nil {
		return nil, err
	}
	return map[string]any{"hits": session.Search(p.Query, p.Limit)}, nil
}

func (s *Server) handleCategories(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	return map[string]any{"categories": session.Categories()}, nil
}

type categoryItemsParams struct {
	Category string `json:"category"`
}

func (s *Server) handleCategoryItems(ctx context.Context, params json.RawMessage) (any, error) {
	session, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	p, err := decode[categoryItemsParams](params)
	if err != nil {
		return nil, err
	}
	items := session.CategoryItems(p.Category)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		entry := map[string]any{
			"id":       item.ID,
			"name":     item.DisplayName,
			"category": item.Category,
		}
		if item.Stats != nil {
			entry["damage"] = item.Stats.Damage
		}
		out = append(out, entry)
	}
	return map[string]any{"items": out}, nil
}

// ─────────────────────────────────────────────────────────────────────────
// State serialization
// ─────────────────────────────────────────────────────────────────────────

// treeNodeState is a node as sent over the wire.
type treeNodeState struct {
	ID         int      `json:"id"`
	Parent     int      `json:"parent"`
	Kind       string   `json:"kind"`
	ItemID     string   `json:"item_id,omitempty"`
	Name       string   `json:"name"`
	Amount     int      `json:"amount,omitempty"`
	ViaGroup   string   `json:"via_group,omitempty"`
	Members    []string `json:"members,omitempty"`
	Expanded   bool     `json:"expanded"`
	Expandable bool     `json:"expandable"`
	Collected  bool     `json:"collected,omitempty"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	W          float64  `json:"w"`
}

func nodeKindName(k tree.NodeKind) string {
	switch k {
	case tree.NodeItem:
		return "item"
	case tree.NodeGroup:
		return "group"
	case tree.NodePlaceholder:
		return "placeholder"
	case tree.NodeDiscoverRoot:
		return "discover"
	default:
		return "unknown"
	}
}

func (s *Server) treeState(session *app.Session) any {
	tr := session.Tree()
	if tr == nil {
		return nil
	}
	layout := session.Layout()

	var nodes []treeNodeState
	tr.Walk(func(n *tree.Node) {
		state := treeNodeState{
			ID:         n.ID,
			Parent:     n.Parent,
			Kind:       nodeKindName(n.Kind),
			ItemID:     n.ItemID,
			Name:       n.Name,
			Amount:     n.Amount,
			ViaGroup:   n.ViaGroup,
			Members:    n.Members,
			Expanded:   n.Expanded,
			Expandable: n.Expandable,
		}
		if n.Kind == tree.NodeItem {
			state.Collected = session.IsCollected(n.ItemID)
		}
		if layout != nil {
			if loc, ok := layout.Nodes[n.ID]; ok {
				state.X, state.Y, state.W = loc.X, loc.Y, loc.W
			}
		}
		nodes = append(nodes, state)
	})

	width, height := 0.0, 0.0
	if layout != nil {
		width, height = layout.Width, layout.Height
	}
	return map[string]any{
		"nodes":  nodes,
		"width":  width,
		"height": height,
	}
}

func poseState(p camera.Pose) map[string]any {
	return map[string]any{"x": p.X, "y": p.Y, "scale": p.Scale}
}

func (s *Server) viewState(session *app.Session) any {
	view := session.View()
	state := map[string]any{
		"url":       session.URL(),
		"mode":      view.Mode,
		"item":      view.ItemID,
		"category":  view.Category,
		"camera":    poseState(session.Camera().Current()),
		"target":    poseState(session.Camera().Target()),
		"animating": session.Camera().Animating(),
		"ghost":     session.Ghost(),
		"can_back":  session.History().CanBack(),
		"can_fwd":   session.History().CanForward(),
	}
	if t := s.treeState(session); t != nil {
		state["tree"] = t
	}
	return state
}

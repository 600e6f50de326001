// Package app wires the catalog, graph resolver, tree state, camera, and
// navigation into per-session view logic.
package app

import (
	"context"
	"errors"
	"log/slog"

	"crafttree/internal/catalog"
	"crafttree/internal/graph"
	"crafttree/internal/nav"
	"crafttree/internal/store"
	"crafttree/pkg/craft"
)

// Config carries application-wide settings.
type Config struct {
	// DataPaths are item database sources tried in order.
	DataPaths []string
	// DBPath is the session store location; ":memory:" works.
	DBPath string

	// ViewportW and ViewportH size the camera viewport for new sessions.
	ViewportW float64
	ViewportH float64

	// UpwardCascade recomputes ancestors when collecting items. On by
	// default; some players prefer checkmarks that never move on their own.
	UpwardCascade bool

	// Clock drives transition timers. Nil uses real time.
	Clock nav.Clock

	Logger *slog.Logger
}

// App is the shared, read-mostly core: the loaded catalog, the graph
// resolver, and the session store. Sessions hold all mutable view state.
type App struct {
	cfg      Config
	logger   *slog.Logger
	store    *store.Store
	resolver *graph.Resolver
	groups   craft.GroupTable

	// dataSource is where the item database came from: the path that
	// loaded, "upload" after an inline manual load, or "" before any
	// database exists.
	dataSource string
}

// New loads the item database from the first working source, builds the
// resolver, and opens the session store. When every source fails the app
// starts with an empty catalog so a client can still connect and load a
// database manually.
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ViewportW == 0 {
		cfg.ViewportW = 1280
	}
	if cfg.ViewportH == 0 {
		cfg.ViewportH = 800
	}

	cat, source, err := catalog.LoadAny(ctx, logger, cfg.DataPaths...)
	if err != nil {
		if !errors.Is(err, catalog.ErrNoData) {
			return nil, err
		}
		logger.Error("no item database source loaded; waiting for a manual load", "error", err)
		cat = catalog.New(nil)
		source = ""
	}

	st, err := store.OpenAndInit(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	groups := craft.DefaultGroups()
	a := &App{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		resolver:   graph.NewResolver(cat, groups),
		groups:     groups,
		dataSource: source,
	}
	logger.Info("application ready",
		"source", source,
		"items", cat.Len(),
		"categories", len(cat.Categories()))
	return a, nil
}

// NewWithCatalog builds an App around an already-loaded catalog. Used by
// tests and by manual database uploads.
func NewWithCatalog(ctx context.Context, cfg Config, cat *catalog.Catalog) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ViewportW == 0 {
		cfg.ViewportW = 1280
	}
	if cfg.ViewportH == 0 {
		cfg.ViewportH = 800
	}
	st, err := store.OpenAndInit(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	groups := craft.DefaultGroups()
	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		resolver: graph.NewResolver(cat, groups),
		groups:   groups,
	}, nil
}

// Close releases the session store.
func (a *App) Close() error {
	return a.store.Close()
}

// Catalog exposes the loaded item database.
func (a *App) Catalog() *catalog.Catalog { return a.resolver.Catalog() }

// DataSource reports where the item database came from.
func (a *App) DataSource() string { return a.dataSource }

// Resolver exposes the graph resolver.
func (a *App) Resolver() *graph.Resolver { return a.resolver }

// Search proxies catalog search.
func (a *App) Search(query string, limit int) []catalog.SearchHit {
	return a.Catalog().Search(query, limit)
}

// ReplaceCatalog swaps in a new item database, rebuilding the resolver and
// its indices wholesale. Existing sessions pick up the new data on their
// next tree rebuild.
func (a *App) ReplaceCatalog(cat *catalog.Catalog, source string) {
	a.resolver = graph.NewResolver(cat, a.groups)
	a.dataSource = source
	a.logger.Info("item database replaced", "source", source, "items", cat.Len())
}

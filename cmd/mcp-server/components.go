package main

import (
	"context"
	"io/fs"
	"os"

	"cityquest-mcp-service/pkg/baseurl"
	"cityquest-mcp-service/pkg/config"
	"cityquest-mcp-service/pkg/games"
	"cityquest-mcp-service/pkg/tools"
	"cityquest-mcp-service/pkg/widgets"
)

func (c *cli) baseURL() string {
	return baseurl.ResolveFromEnvironment(c.cfg.Widgets.BaseURL)
}

// templates returns the configured template directory, or nil for the
// embedded one
func (c *cli) templates() fs.FS {
	if dir := c.cfg.Widgets.TemplateDir; dir != "" {
		return os.DirFS(dir)
	}
	return nil
}

func (c *cli) catalog(base string, templates fs.FS) widgets.Catalog {
	return widgets.NewCatalog(widgets.CatalogOptions{
		BaseURL:   base,
		Templates: templates,
	})
}

func (c *cli) newRegistry(base string) *tools.Registry {
	return tools.NewRegistry(c.cfg.Widgets.BuildID, base, c.logs.GetLogger("tools"))
}

// registerCatalog builds the registry and attaches the whole catalog to it
func (c *cli) registerCatalog(ctx context.Context) (*tools.Registry, tools.RegistrationReport, error) {
	base := c.baseURL()
	registry := c.newRegistry(base)
	report, err := registry.RegisterAll(ctx, c.catalog(base, c.templates()))
	return registry, report, err
}

// openStore connects the configured game store backend
func (c *cli) openStore(ctx context.Context) (games.Store, error) {
	switch c.cfg.Games.Backend {
	case config.BackendPostgres:
		store, err := games.NewPostgresStore(ctx, c.cfg.Games.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		return games.NewRedisStore(ctx, c.cfg.Games.RedisAddr)
	default:
		return games.NewMemoryStore(), nil
	}
}

func (c *cli) gameService(ctx context.Context) (*games.Service, error) {
	store, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return games.NewService(store, c.logs.GetLogger("games")), nil
}

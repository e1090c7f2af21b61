package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cityquest-mcp-service/internal/server"
	"cityquest-mcp-service/pkg/config"
	"cityquest-mcp-service/pkg/monitor"
	"cityquest-mcp-service/pkg/prompts"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Register the widget catalog and serve MCP",
		Long: `serve registers every widget tool, then answers MCP requests on the
configured transport. With "stdio" the process exits when stdin closes; with
"http" or "both" it runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("transport", config.TransportStdio, "transport to serve (stdio, http, both)")
	flags.String("addr", ":8080", "HTTP listen address")
	bindFlags(c.v, flags, map[string]string{
		"server.transport": "transport",
		"server.addr":      "addr",
	})
	return cmd
}

func (c *cli) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	logger := c.logs.GetLogger("main")
	base := c.baseURL()

	var promptMonitor *monitor.FileSystemMonitor
	if c.cfg.Widgets.PromptDir != "" {
		m, err := monitor.NewFileSystemMonitor(config.JSONExtension)
		if err != nil {
			return err
		}
		m.SetLogger(c.logs.GetLogger("monitor"))
		promptMonitor = m
	}

	gameService, err := c.gameService(ctx)
	if err != nil {
		return err
	}

	srv := server.NewMCPServer(server.Components{
		Registry:       c.newRegistry(base),
		Catalog:        c.catalog(base, c.templates()),
		Prompts:        prompts.NewPromptManager(c.cfg.Widgets.PromptDir, promptMonitor, c.logs.GetLogger("prompts")),
		Games:          gameService,
		Monitor:        promptMonitor,
		LoggingManager: c.logs,
	})
	if err := srv.Initialize(ctx); err != nil {
		_ = srv.Shutdown(context.Background())
		return err
	}

	logger.WithContext("transport", c.cfg.Server.Transport).
		WithContext("base_url", base).
		WithContext("games_backend", c.cfg.Games.Backend).
		Info("CityQuest MCP service started")

	g, gctx := errgroup.WithContext(ctx)
	transport := c.cfg.Server.Transport
	if transport == config.TransportStdio || transport == config.TransportBoth {
		g.Go(func() error {
			return srv.ServeStdio(gctx, in, out)
		})
	}
	if transport == config.TransportHTTP || transport == config.TransportBoth {
		g.Go(func() error {
			return srv.ListenAndServe(gctx, c.cfg.Server)
		})
	}
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(c.cfg.Server))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}

	if errors.Is(runErr, context.Canceled) {
		logger.Info("Shutdown signal received")
		return nil
	}
	return runErr
}

func shutdownTimeout(cfg config.ServerConfig) time.Duration {
	if cfg.ShutdownTimeout > 0 {
		return cfg.ShutdownTimeout
	}
	return 10 * time.Second
}

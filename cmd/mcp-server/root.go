package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cityquest-mcp-service/pkg/config"
	"cityquest-mcp-service/pkg/logging"
)

// cli carries state shared by every subcommand. cfg and logs are populated
// by the root PersistentPreRunE before any RunE executes.
type cli struct {
	v         *viper.Viper
	cfgFile   string
	logOutput io.Writer

	cfg  *config.Config
	logs *logging.LoggingManager
}

// persistentFlags maps viper keys onto root flags
var persistentFlags = map[string]string{
	"log.level":            "log-level",
	"widgets.build_id":     "build-id",
	"widgets.base_url":     "base-url",
	"widgets.template_dir": "template-dir",
	"widgets.prompt_dir":   "prompt-dir",
	"games.backend":        "games-backend",
	"games.postgres_dsn":   "postgres-dsn",
	"games.redis_addr":     "redis-addr",
}

func newRootCmd(logOutput io.Writer) *cobra.Command {
	c := &cli{
		v:         config.NewViper(),
		logOutput: logOutput,
	}

	root := &cobra.Command{
		Use:   "mcp-server",
		Short: "CityQuest widget tool and resource registry",
		Long: `mcp-server registers the CityQuest widget catalog as MCP tools and
ui://widget resources and serves them over stdio, HTTP or both.

Configuration is read from --config, CITYQUEST_* environment variables
and the flags below, in increasing order of precedence.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("build-id", config.BuildID, "build identifier appended to every widget name")
	flags.String("base-url", "", "externally reachable base URL (resolved from the environment when empty)")
	flags.String("template-dir", "", "directory overriding the embedded widget templates")
	flags.String("prompt-dir", "", "directory of additional prompt definitions, watched for changes")
	flags.String("games-backend", config.BackendMemory, "game store backend (memory, postgres, redis)")
	flags.String("postgres-dsn", "", "PostgreSQL connection string for the postgres backend")
	flags.String("redis-addr", "", "Redis URL for the redis backend")
	bindFlags(c.v, flags, persistentFlags)

	root.AddCommand(
		newServeCmd(c),
		newToolsCmd(c),
		newBaseURLCmd(c),
		newWidgetsCmd(c),
		newGamesCmd(c),
	)
	return root
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// load resolves the configuration and the logging manager
func (c *cli) load(cmd *cobra.Command, args []string) error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg, err := config.FromViper(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	c.logs = logging.NewLoggingManagerWithWriter(c.logOutput)
	c.logs.SetLogLevel(cfg.Log.Level)
	return nil
}

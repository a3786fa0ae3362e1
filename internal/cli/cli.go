// Package cli implements the depscope command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/matzehuels/depscope/pkg/buildinfo"
	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/deps"
	"github.com/matzehuels/depscope/pkg/deps/ecosystems"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
	"github.com/matzehuels/depscope/pkg/index/indexes"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "depscope"

	// envPrefix prefixes every environment variable read through viper.
	envPrefix = "DEPSCOPE"

	// memoSize bounds the decoded repository databases kept in memory.
	memoSize = 16
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	config     *viper.Viper
	configFile string
	runner     deps.Runner
	memo       *index.Memo
	cache      cache.Cache
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		config: viper.New(),
		runner: deps.ExecRunner,
		memo:   index.NewMemo(memoSize),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Depscope inspects project dependencies and package indexes",
		Long: `Depscope reads Cargo, Node (npm, pnpm, yarn, bun) and Deno projects, builds
their dependency trees from lockfiles, runs vulnerability audits, and compares
locked versions against registries and Linux distribution repositories.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.initConfig(); err != nil {
				return err
			}
			if c.config.GetBool("verbose") {
				c.SetLogLevel(LogDebug)
				installHooks(c.Logger)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default ./depscope.yaml or $XDG_CONFIG_HOME/depscope/depscope.yaml)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.StringP("dir", "C", ".", "project directory")
	flags.String("cache-url", "", "cache backend: empty for the file cache, redis://..., mongodb://..., or none")
	flags.String("cache-dir", "", "file cache directory")
	flags.Duration("cache-ttl", indexes.DefaultTTL, "lifetime of cached responses")
	flags.Bool("refresh", false, "ignore cached responses but store fresh ones")
	flags.Bool("no-cache", false, "disable the response cache")
	c.bind(flags.Lookup("verbose"), "verbose")
	c.bind(flags.Lookup("dir"), "dir")
	c.bind(flags.Lookup("cache-url"), "cache.url")
	c.bind(flags.Lookup("cache-dir"), "cache.dir")
	c.bind(flags.Lookup("cache-ttl"), "cache.ttl")
	c.bind(flags.Lookup("refresh"), "refresh")
	c.bind(flags.Lookup("no-cache"), "no-cache")

	root.AddCommand(c.depsCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.installedCommand())
	root.AddCommand(c.auditCommand())
	root.AddCommand(c.outdatedCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.versionsCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.indexesCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

func (c *CLI) initConfig() error {
	c.config.SetEnvPrefix(envPrefix)
	c.config.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	c.config.AutomaticEnv()

	if c.configFile != "" {
		c.config.SetConfigFile(c.configFile)
		if err := c.config.ReadInConfig(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "read config file %s", c.configFile)
		}
		return nil
	}

	c.config.SetConfigName(appName)
	c.config.SetConfigType("yaml")
	c.config.AddConfigPath(".")
	if dir, err := configDir(); err == nil {
		c.config.AddConfigPath(dir)
	}
	if err := c.config.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "read config file %s", c.config.ConfigFileUsed())
	}
	return nil
}

// bind maps a persistent flag onto a config key so that flag, environment
// and config file share one lookup.
func (c *CLI) bind(flag *pflag.Flag, key string) {
	_ = c.config.BindPFlag(key, flag)
}

// indexSetting reads "<index>.<key>", letting an explicit flag win.
func (c *CLI) indexSetting(cmd *cobra.Command, name, key string) string {
	if f := cmd.Flags().Lookup(key); f != nil && f.Changed {
		return f.Value.String()
	}
	return c.config.GetString(name + "." + key)
}

// =============================================================================
// Factories
// =============================================================================

// openCache returns the shared response cache, opening it on first use.
func (c *CLI) openCache(ctx context.Context) (cache.Cache, error) {
	if c.cache != nil {
		return c.cache, nil
	}
	if c.config.GetBool("no-cache") {
		c.cache = cache.NewNullCache()
		return c.cache, nil
	}

	dir := c.config.GetString("cache.dir")
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "err", err)
			c.cache = cache.NewNullCache()
			return c.cache, nil
		}
		dir = d
	}
	cc, err := cache.Open(ctx, c.config.GetString("cache.url"), dir)
	if err != nil {
		return nil, err
	}
	if c.config.GetBool("refresh") {
		cc = cache.WriteOnly(cc)
	}
	c.cache = cc
	return cc, nil
}

func (c *CLI) close() error {
	if c.cache == nil {
		return nil
	}
	err := c.cache.Close()
	c.cache = nil
	return err
}

// openIndex constructs the named package index with the CLI's cache and
// per-index settings.
func (c *CLI) openIndex(ctx context.Context, cmd *cobra.Command, name string) (index.PackageIndex, error) {
	cc, err := c.openCache(ctx)
	if err != nil {
		return nil, err
	}
	return indexes.Open(name, indexes.Options{
		Cache:   cc,
		TTL:     c.cacheTTL(),
		Logger:  c.Logger,
		Channel: c.indexSetting(cmd, name, "channel"),
		Mirror:  c.indexSetting(cmd, name, "mirror"),
		Arch:    c.indexSetting(cmd, name, "arch"),
		Libc:    c.indexSetting(cmd, name, "libc"),
		Memo:    c.memo,
	})
}

// openEcosystem returns the named ecosystem or detects it from the project
// directory.
func (c *CLI) openEcosystem(name string, maxDepth int) (deps.Ecosystem, string, error) {
	dir, err := filepath.Abs(c.config.GetString("dir"))
	if err != nil {
		return nil, "", err
	}
	opts := deps.Options{MaxDepth: maxDepth, Logger: c.Logger}
	if name != "" {
		eco, err := ecosystems.Open(name, opts, c.runner)
		return eco, dir, err
	}
	eco, err := ecosystems.Detect(dir, opts, c.runner)
	if err != nil {
		return nil, "", err
	}
	c.Logger.Debug("detected ecosystem", "ecosystem", eco.Name(), "dir", dir)
	return eco, dir, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/depscope/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns $XDG_CONFIG_HOME/depscope or ~/.config/depscope.
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

func (c *CLI) cacheTTL() time.Duration {
	if ttl := c.config.GetDuration("cache.ttl"); ttl > 0 {
		return ttl
	}
	return indexes.DefaultTTL
}

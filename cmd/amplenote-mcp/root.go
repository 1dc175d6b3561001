package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/db"
	"github.com/mikekwright/amplenote-cache-mcp/internal/config"
	"github.com/mikekwright/amplenote-cache-mcp/internal/logging"
	"github.com/mikekwright/amplenote-cache-mcp/internal/service"
	"github.com/mikekwright/amplenote-cache-mcp/internal/tools"
	"github.com/mikekwright/amplenote-cache-mcp/internal/ui"
)

var (
	configFile   string
	dbPath       string
	logLevel     string
	logFile      string
	outputFormat string
)

var (
	settings  config.Settings
	logger    = slog.New(slog.DiscardHandler)
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "amplenote-mcp",
	Short: "Read-only MCP server and CLI over the Amplenote desktop cache",
	Long: `Query the notes and tasks in Amplenote's local SQLite cache.

The cache is opened read-only, one connection per request. Run 'serve' to
expose the query tools to an MCP host, or use the 'tasks' and 'notes'
commands directly.

Settings come from flags, AMPLENOTE_* environment variables, a config file
(--config) and a .env file in the working directory, in that order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := setup(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "query", Title: "Query Commands:"},
		&cobra.Group{ID: "server", Title: "Server Commands:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (yaml, toml, json, ...)")
	flags.StringVar(&dbPath, "db", "", "Path to amplenote.db (default "+config.DefaultDBPath+")")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "Write logs to a rotating file instead of stderr")
	flags.StringVarP(&outputFormat, "format", "o", "", "Output format: json, yaml, table (default table on a terminal, json otherwise)")
}

// setup resolves settings and builds the logger. Flags only override the
// other sources when given explicitly.
func setup(cmd *cobra.Command) error {
	overrides := map[string]any{}
	if cmd.Flags().Changed("db") {
		overrides[config.KeyDBPath] = dbPath
	}
	if cmd.Flags().Changed("log-level") {
		overrides[config.KeyLogLevel] = logLevel
	}
	if cmd.Flags().Changed("log-file") {
		overrides[config.KeyLogFile] = logFile
	}

	s, err := config.Load(config.Options{ConfigFile: configFile, Overrides: overrides})
	if err != nil {
		return err
	}
	settings = s

	l, closer, err := logging.New(logging.Options{
		Level:      s.LogLevel,
		File:       s.LogFile,
		MaxSizeMB:  s.LogMaxSizeMB,
		MaxBackups: s.LogMaxBackups,
		MaxAgeDays: s.LogMaxAgeDays,
	})
	if err != nil {
		return err
	}
	logger, logCloser = l, closer
	logger.Debug("settings loaded", "db_path", s.DBPath, "max_query_limit", s.MaxQueryLimit)
	return nil
}

func closeLog() {
	if logCloser != nil {
		_ = logCloser.Close()
	}
}

func newServices() (*service.TasksService, *service.NotesService) {
	cache := db.New(settings.DBPath, logger)
	cfg := &service.Config{MaxQueryLimit: settings.MaxQueryLimit, Logger: logger}
	return service.NewTasksService(cache, cfg), service.NewNotesService(cache, cfg)
}

func newRegistry() *tools.Registry {
	tasks, notes := newServices()
	registry, err := tools.New(tools.Deps{
		Tasks:       tasks,
		Notes:       notes,
		SearchLimit: settings.DefaultSearchLimit,
		ListLimit:   settings.DefaultListLimit,
		Logger:      logger,
	})
	if err != nil {
		fatal(err)
	}
	return registry
}

// render writes v to the command's stdout in the selected format.
func render(cmd *cobra.Command, v any) {
	format, err := ui.ParseFormat(outputFormat, term.IsTerminal(int(os.Stdout.Fd())))
	if err != nil {
		fatal(err)
	}
	if err := ui.Render(cmd.OutOrStdout(), format, v); err != nil {
		fatal(err)
	}
}

// fatal prints err with a hint for the common failures and exits.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
	switch {
	case errors.Is(err, db.ErrDatabaseNotFound):
		fmt.Fprintf(os.Stderr, "Set --db or AMPLENOTE_DB_PATH to the location of amplenote.db\n")
	case errors.Is(err, service.ErrInvalidQuery):
		fmt.Fprintf(os.Stderr, "Limits must be between 1 and %d; offsets must be >= 0\n", settings.MaxQueryLimit)
	}
	closeLog()
	os.Exit(1)
}

// limitFlag returns --limit when given, otherwise def.
func limitFlag(cmd *cobra.Command, def int) int {
	if cmd.Flags().Changed("limit") {
		n, _ := cmd.Flags().GetInt("limit")
		return n
	}
	return def
}

package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/duanju/pkg/api"
	"github.com/mchmarny/duanju/pkg/config"
	"github.com/mchmarny/duanju/pkg/data"
	"github.com/mchmarny/duanju/pkg/logging"
	"github.com/mchmarny/duanju/pkg/session"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "duanju"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"

	envAPIURL = "DUANJU_API_URL"
	envToken  = "DUANJU_TOKEN"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	dbFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "Path to the SQLite database file or a postgres:// DSN",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	configDirFlag = &cli.StringFlag{
		Name:  "config-dir",
		Usage: "Directory holding config, session, and the default database (default: ~/.duanju)",
	}

	apiURLFlag = &cli.StringFlag{
		Name:    "api-url",
		Usage:   "Sentence-breaking API base URL (overrides config)",
		Sources: cli.EnvVars(envAPIURL),
	}

	// local so auth can define its own --token
	tokenFlag = &cli.StringFlag{
		Name:    "token",
		Usage:   "API token (overrides the stored session token)",
		Sources: cli.EnvVars(envToken),
		Local:   true,
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false)

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Dir     string
	DBPath  string
	Debug   bool
	Format  string
	Token   string
	DB      *sql.DB
	Config  *config.Config
	Store   *session.Store
	Session *session.Session
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Practice sentence segmentation of classical Chinese texts",
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			debugFlag,
			dbFlag,
			formatFlag,
			configDirFlag,
			apiURLFlag,
			tokenFlag,
		},
		Commands: []*cli.Command{
			authCmd,
			skillsCmd,
			scoreCmd,
			practiceCmd,
			historyCmd,
			statsCmd,
			syncCmd,
			serverCmd,
			resetCmd,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			debug := cmd.Bool(debugFlag.Name)
			if debug {
				initLogging(true)
			}

			format := formatJSON
			if f := cmd.String(formatFlag.Name); f == formatYAML || f == "yml" {
				format = formatYAML
			}

			dir := cmd.String(configDirFlag.Name)
			if dir == "" {
				dir = getHomeDir()
			}

			cfg, err := config.ReadOrCreate(dir)
			if err != nil {
				return ctx, fmt.Errorf("reading config: %w", err)
			}
			if u := cmd.String(apiURLFlag.Name); u != "" {
				cfg.APIURL = strings.TrimSuffix(u, "/")
			}

			store, err := session.NewStore(dir)
			if err != nil {
				return ctx, fmt.Errorf("opening session store: %w", err)
			}
			sess, err := session.Load(store)
			if err != nil {
				return ctx, fmt.Errorf("loading session: %w", err)
			}
			dbPath := cmd.String(dbFlag.Name)
			if dbPath == "" {
				dbPath = filepath.Join(dir, data.DataFileName)
			}
			if err := data.Init(dbPath); err != nil {
				return ctx, fmt.Errorf("initializing database: %w", err)
			}
			db, err := data.GetDB(dbPath)
			if err != nil {
				return ctx, fmt.Errorf("opening database: %w", err)
			}

			cmd.Metadata[appConfigKey] = &appConfig{
				Dir:     dir,
				DBPath:  dbPath,
				Debug:   debug,
				Format:  format,
				Token:   cmd.String(tokenFlag.Name),
				DB:      db,
				Config:  cfg,
				Store:   store,
				Session: sess,
			}
			return ctx, nil
		},
		After: func(_ context.Context, cmd *cli.Command) error {
			if cfg, ok := cmd.Metadata[appConfigKey].(*appConfig); ok && cfg.DB != nil {
				cfg.DB.Close()
			}
			return nil
		},
	}
}

func initLogging(debug bool) {
	level := "info"
	if debug {
		level = "debug"
	}
	logging.SetDefaultCLILogger(level)
}

func getHomeDir() string {
	dir, created, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}
	if created {
		slog.Debug("created app dir", "path", dir)
	}
	return dir
}

// apiClient returns a client authenticated with the --token override or,
// without one, the stored session token.
func apiClient(ctx context.Context, cfg *appConfig) (*api.Client, error) {
	token := cfg.Token
	if token == "" {
		t, err := cfg.Session.RequireToken()
		if err != nil {
			return nil, err
		}
		token = t
	}
	return api.NewClient(ctx, cfg.Config, token), nil
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func reader(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

func encode(cmd *cli.Command, v any) error {
	w := writer(cmd)
	if getConfig(cmd).Format == formatYAML {
		return yaml.NewEncoder(w).Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

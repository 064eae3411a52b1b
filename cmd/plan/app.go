package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/baiirun/planner/internal/config"
	"github.com/baiirun/planner/internal/db"
	"github.com/baiirun/planner/internal/logger"
	"github.com/baiirun/planner/internal/parse"
	"github.com/baiirun/planner/internal/tree"
)

// app is everything a command needs once config and storage are loaded.
type app struct {
	cfg    config.Config
	db     *db.DB
	store  *tree.Store
	parser *parse.Parser
	loc    *time.Location
	log    zerolog.Logger
	logOut *os.File
}

func (g *globalFlags) open() (*app, error) {
	cfgPath := g.configPath
	if cfgPath == "" {
		cfgPath = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if g.verbose {
		level = "debug"
	}
	var (
		log    zerolog.Logger
		logOut *os.File
	)
	if cfg.LogFile != "" {
		log, logOut, err = logger.File(cfg.LogFile, level)
	} else {
		log, err = logger.Console(level)
	}
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*app, error) {
		if logOut != nil {
			_ = logOut.Close()
		}
		return nil, err
	}

	dbPath := g.dbPath
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	if dbPath == "" {
		if dbPath, err = db.DefaultPath(); err != nil {
			return fail(err)
		}
	}
	database, err := db.Open(dbPath)
	if err != nil {
		return fail(err)
	}
	if err := database.Init(); err != nil {
		_ = database.Close()
		return fail(err)
	}
	database.SetLogger(log)

	loc, err := cfg.Location()
	if err != nil {
		_ = database.Close()
		return fail(err)
	}
	rule, err := cfg.Recurrence()
	if err != nil {
		_ = database.Close()
		return fail(err)
	}

	parser := parse.New(parse.Options{IndentWidth: cfg.IndentWidth})
	store := tree.New(
		tree.WithLocation(loc),
		tree.WithLogger(log),
		tree.WithParser(parser),
		tree.WithEventLength(cfg.EventLength()),
		tree.WithDefaultRecurrence(rule),
		tree.WithSink(database),
	)

	items, err := database.LoadItems()
	if err != nil {
		_ = database.Close()
		return fail(err)
	}
	store.Restore(items)
	log.Debug().Str("db", dbPath).Int("items", len(items)).Msg("opened planner")

	return &app{cfg: cfg, db: database, store: store, parser: parser, loc: loc, log: log, logOut: logOut}, nil
}

func (a *app) Close() error {
	err := a.db.Close()
	if a.logOut != nil {
		if cerr := a.logOut.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (a *app) now() time.Time { return time.Now().In(a.loc) }

// withApp opens the app for the duration of fn.
func withApp(g *globalFlags, fn func(a *app) error) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

// writeFormatted prints v as JSON or YAML.
func writeFormatted(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (use text, json or yaml)", format)
}

func addFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "format", "f", "text", "output format: text, json or yaml")
}

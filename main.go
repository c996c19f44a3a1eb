package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/wherewasi/internal/commands"
	"github.com/colonyops/wherewasi/internal/core/config"
	"github.com/colonyops/wherewasi/internal/core/eventbus"
	"github.com/colonyops/wherewasi/internal/core/logging"
	"github.com/colonyops/wherewasi/internal/data/db"
	"github.com/colonyops/wherewasi/internal/data/stores"
	"github.com/colonyops/wherewasi/internal/tracker"
	"github.com/colonyops/wherewasi/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() reads
	// them from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

// openDatabase opens the database, moving a corrupted file aside and
// starting fresh when SQLite reports corruption.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	opts := db.OpenOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	}

	database, err := db.Open(cfg.DataDir, opts)
	if err == nil || !stores.IsCorruptionError(err) {
		return database, err
	}

	backup, rerr := stores.RecoverFromCorruption(cfg.DataDir)
	if rerr != nil {
		return nil, fmt.Errorf("recover corrupted database: %w (open error: %w)", rerr, err)
	}
	log.Warn().Err(err).Str("backup", backup).Msg("database corrupted, moved aside and starting fresh")

	return db.Open(cfg.DataDir, opts)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		app       = &tracker.App{}
		database  *db.DB
		busCancel context.CancelFunc
		busDone   chan struct{}
	)

	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "wherewasi",
		Usage:     "Track what you are working on and where your time went",
		UsageText: "wherewasi [global options] command [command options]",
		Description: `wherewasi keeps a list of work items, at most one of them in progress,
and records every status change. The timeline commands rebuild when you
worked on what from that record.

Run 'wherewasi item add <title>' to create an item and
'wherewasi item start <id>' to begin working on it.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("WHEREWASI_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/wherewasi.log)",
				Sources:     cli.EnvVars("WHEREWASI_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("WHEREWASI_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("WHEREWASI_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logFile := flags.LogFile
			if logFile == "" {
				logFile = commands.DefaultLogFile(flags.DataDir)
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}

			database, err = openDatabase(cfg)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			var (
				itemStore  = stores.NewItemStore(database)
				eventStore = stores.NewEventStore(database)
				txRunner   = stores.NewTxRunner(database)
				bus        = eventbus.New(64)
			)

			eventbus.RegisterDebugLogger(bus, logging.Component(log.Logger, "eventbus"))
			tracker.RegisterActivityLog(bus, logging.Component(log.Logger, "activity"))

			busCtx, cancel := context.WithCancel(context.Background())
			busCancel = cancel
			busDone = make(chan struct{})
			go func() {
				defer close(busDone)
				bus.Start(busCtx)
			}()

			lifecycle := tracker.NewLifecycleService(txRunner, itemStore, eventStore, bus, log.Logger,
				tracker.LifecycleOptions{Strict: cfg.Lifecycle.Strict()})
			timelineSvc := tracker.NewTimelineService(txRunner, log.Logger, cfg.Timeline.Weekday(), nil)

			// Commands already hold a pointer to app.
			*app = *tracker.NewApp(lifecycle, timelineSvc, bus, cfg, database)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if busCancel != nil {
				// Let queued events reach the log before it closes.
				busCancel()
				<-busDone
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	root = commands.NewItemCmd(flags, app).Register(root)
	root = commands.NewTimelineCmd(flags, app).Register(root)
	root = commands.NewConfigCmd(flags, app).Register(root)

	exitCode := 0
	if err := root.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}

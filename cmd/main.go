package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gdqcal/internal/config"
	"gdqcal/internal/document"
	"gdqcal/internal/google"
	"gdqcal/internal/publish"
	"gdqcal/internal/schedule"
	"gdqcal/internal/syncer"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "gdqcal",
		Usage: "Export a GDQ event schedule to iCalendar files and Google Calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "gdqcal.yaml", Usage: "Path to the YAML config file."},
			&cli.StringFlag{Name: "loglevel", Usage: "Log level: debug, info, warn or error.", EnvVars: []string{"LOG_LEVEL"}},
		},
		Commands: []*cli.Command{
			authCommand(),
			syncCommand(),
			inspectCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if c.IsSet("loglevel") {
		cfg.LogLevel = c.String("loglevel")
	}
	return cfg, setupLogger(cfg.LogLevel), nil
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account and store the API token.",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger.Info("Starting Google authentication flow.")

			oc, err := google.OAuthConfig(cfg.Google)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}
			token, err := google.Authorize(c.Context, oc, os.Stdin, os.Stderr)
			if err != nil {
				return err
			}
			if err := google.SaveToken(cfg.Google.TokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", cfg.Google.TokenFile)
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Export the schedule, optionally reconciling Google calendars.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "id", Usage: "The event ID to run for. Defaults to the config or id.txt."},
			&cli.BoolFlag{Name: "subset", Aliases: []string{"fatales"}, Usage: "Also create the tagged-runner calendar."},
			&cli.BoolFlag{Name: "gcal", Usage: "Create and update Google calendars."},
			&cli.BoolFlag{Name: "disable-general", Usage: "Skip the general Google calendar."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making remote changes."},
			&cli.StringFlag{Name: "output-dir", Usage: "Directory for the .ics files."},
			&cli.StringFlag{Name: "watch", Usage: "Run repeatedly on a cron schedule, e.g. '@every 10m' or '*/15 * * * *'."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("id") {
				cfg.EventID = c.Int("id")
			}
			if c.IsSet("output-dir") {
				cfg.OutputDir = c.String("output-dir")
			}

			eventID, err := cfg.ResolveEventID()
			if err != nil {
				return err
			}
			ref, err := cfg.ReferenceLocation()
			if err != nil {
				return err
			}

			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No remote changes will be made.")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var remote syncer.Remote
			if c.Bool("gcal") {
				gClient, err := newGoogleClient(ctx, logger, cfg)
				if err != nil {
					return err
				}
				remote = gClient
			}

			var pub syncer.Publisher
			if cfg.Publish.URL != "" {
				p, err := publish.NewPublisher(logger, cfg.Publish.URL, cfg.Publish.Username, cfg.Publish.Password, cfg.UserAgent)
				if err != nil {
					return err
				}
				pub = p
			}

			s := syncer.NewSyncer(logger, schedule.NewFetcher(logger, cfg.HTTPTimeout, cfg.UserAgent), remote, pub, syncer.Options{
				ScheduleURL:     cfg.ScheduleURL(eventID),
				TaggedNamesFile: cfg.TaggedNamesFile,
				OutputDir:       cfg.OutputDir,
				Subset:          c.Bool("subset"),
				SubsetLabel:     cfg.SubsetLabel,
				SubsetSuffix:    cfg.SubsetSuffix,
				DisableGeneral:  c.Bool("disable-general"),
				DryRun:          c.Bool("dry-run"),
				Reference:       ref,
				ReferenceLabel:  referenceLabel(cfg.ReferenceTimezone),
			})
			if err := s.CheckConfig(); err != nil {
				return err
			}

			if c.IsSet("watch") {
				return s.Watch(ctx, c.String("watch"))
			}
			logger.Info("Running a single sync cycle.", "eventID", eventID)
			if err := s.Run(ctx); err != nil {
				return fmt.Errorf("sync cycle failed: %w", err)
			}
			return nil
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Report the byte-order mark and entry count of written .ics files.",
		ArgsUsage: "<file.ics>...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("at least one file is required")
			}
			for _, path := range c.Args().Slice() {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				report, err := document.Inspect(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Printf("%s\tbom=%s\tevents=%d\n", filepath.Base(path), report.BOM, report.Events)
			}
			return nil
		},
	}
}

func newGoogleClient(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*google.CalendarClient, error) {
	oc, err := google.OAuthConfig(cfg.Google)
	if err != nil {
		return nil, fmt.Errorf("failed to get google oauth config: %w", err)
	}
	token, err := google.LoadOrAuthorize(ctx, logger, oc, cfg.Google.TokenFile, os.Stdin, os.Stderr)
	if err != nil {
		return nil, err
	}
	return google.NewClient(ctx, logger, oc, token, cfg.Google.TokenFile)
}

// referenceLabel abbreviates well-known zones for the "last updated" line.
func referenceLabel(tz string) string {
	switch tz {
	case "America/New_York", "US/Eastern":
		return "ET"
	case "America/Chicago", "US/Central":
		return "CT"
	case "America/Denver", "US/Mountain":
		return "MT"
	case "America/Los_Angeles", "US/Pacific":
		return "PT"
	default:
		return tz
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error", "critical":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

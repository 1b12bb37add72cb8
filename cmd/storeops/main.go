package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/yangwenmai/storeops/internal/catalog"
	"github.com/yangwenmai/storeops/internal/config"
	"github.com/yangwenmai/storeops/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

// flags are the global options shared by every command.
type flags struct {
	LogLevel    string
	LogFile     string
	CatalogPath string
}

// env is what Before prepares for the commands.
type env struct {
	cfg config.Config
	log zerolog.Logger
	cat *catalog.Catalog
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	var (
		f        = &flags{}
		e        = &env{}
		logClose func()
	)

	app := &cli.Command{
		Name:      "storeops",
		Usage:     "Store operations assistant",
		UsageText: "storeops [global options] command [command options]",
		Description: `storeops scores shelf scans, turns detections into restock tasks and
runs the store assistant chat in the terminal.

Configuration is read from the environment and from .env.local / .env.`,
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("LOG_LEVEL"),
				Value:       "warn",
				Destination: &f.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "write JSON logs to this file instead of the console",
				Sources:     cli.EnvVars("LOG_FILE"),
				Destination: &f.LogFile,
			},
			&cli.StringFlag{
				Name:        "catalog",
				Usage:       "path to a YAML catalog overriding the built-in data",
				Sources:     cli.EnvVars("CATALOG_PATH"),
				Destination: &f.CatalogPath,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if err := config.LoadEnvFiles(config.DefaultEnvFiles...); err != nil {
				return ctx, fmt.Errorf("load env files: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			cfg.LogLevel, cfg.LogFile, cfg.CatalogPath = f.LogLevel, f.LogFile, f.CatalogPath
			e.cfg = cfg

			if cfg.LogFile != "" {
				log, closer, err := logging.New(cfg.LogLevel, cfg.LogFile)
				if err != nil {
					return ctx, fmt.Errorf("setup logger: %w", err)
				}
				e.log, logClose = log, closer
			} else {
				log, err := logging.Pretty(c.Root().ErrWriter, cfg.LogLevel)
				if err != nil {
					return ctx, fmt.Errorf("setup logger: %w", err)
				}
				e.log = log
			}

			e.cat, err = catalog.Load(cfg.CatalogPath)
			if err != nil {
				return ctx, fmt.Errorf("load catalog: %w", err)
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logClose != nil {
				logClose()
			}
			return nil
		},
	}

	app = newChatCmd(e).Register(app)
	app = newScoreCmd().Register(app)
	app = newScanCmd(e).Register(app)
	return app
}

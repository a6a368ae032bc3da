// Package main is the bookworm CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/bookworm/internal/config"
	"github.com/hyperjump/bookworm/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/bookworm/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the config named by --config and builds a logger honoring --debug.
func setup(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || c.Bool("debug")
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger, nil
}

func newApp() *cli.App {
	outputFlag := &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output format (text, json)",
		Value:   "text",
	}
	return &cli.App{
		Name:    "bookworm",
		Usage:   "Book ingestion and recommendation service",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   defaultConfigPath,
				EnvVars: []string{"BOOKWORM_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the HTTP server and the population worker",
				Action: serverCommand,
			},
			{
				Name:   "populate",
				Usage:  "Embed stored books into the similarity index",
				Action: populateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "cursor",
						Usage: "Offset of the first candidate to ingest",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Keep ingesting pages until the candidate set is exhausted",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show a progress bar",
						Value: true,
					},
					outputFlag,
				},
			},
			{
				Name:      "recommend",
				Usage:     "Recommend books for a free-text query",
				ArgsUsage: "<query>",
				Action:    recommendCommand,
				Flags:     []cli.Flag{outputFlag},
			},
			{
				Name:      "search",
				Usage:     "Keyword search over titles and authors",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of hits",
						Value: 10,
					},
					outputFlag,
				},
			},
			{
				Name:      "import",
				Usage:     "Import a Goodreads library export (CSV) into the record store",
				ArgsUsage: "<file.csv>",
				Action:    importCommand,
			},
			{
				Name:   "status",
				Usage:  "Show record, index, catalog and queue sizes",
				Action: statusCommand,
				Flags:  []cli.Flag{outputFlag},
			},
			{
				Name:   "version",
				Usage:  "Print the version",
				Action: versionCommand,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

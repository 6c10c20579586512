// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	govchat "github.com/crazybass81/GovChat"
	"github.com/crazybass81/GovChat/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// runner carries engine options so tests can swap the AI provider.
type runner struct {
	engineOpts []govchat.EngineOption
	logger     *slog.Logger
}

func newApp(opts ...govchat.EngineOption) *cli.App {
	r := &runner{engineOpts: opts}
	return &cli.App{
		Name:  "govmatch",
		Usage: "Match users to government support programs through a short conversation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file (default ./govchat.yaml when present)",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "BadgerDB directory, overriding storage.data_dir",
			},
		},
		Before: r.setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Ingest programs from the configured feed or from page files",
				Action: r.ingestCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "JSON or XML feed page to ingest instead of the live feed",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source type of the ingested items (api, document, manual, discovered)",
					},
					&cli.StringFlag{
						Name:  "feed-url",
						Usage: "Feed URL, overriding feed.base_url",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent embedding workers (0 keeps ingestion.pool_size)",
					},
				},
			},
			{
				Name:   "drain",
				Usage:  "Retry embeddings that failed during ingestion",
				Action: r.drainCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum queued programs to retry (0 for all)",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute the embedding of every indexed program",
				Action: r.reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of programs per embedding call (0 keeps the configured value)",
					},
				},
			},
			{
				Name:   "chat",
				Usage:  "Run a matching conversation on the terminal",
				Action: r.chatCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session id to resume (a new one is generated when empty)",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the conversation API over HTTP",
				Action: r.serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address, overriding server.addr",
					},
				},
			},
		},
	}
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	return cfg, nil
}

func (r *runner) openEngine(c *cli.Context, cfg *config.Config) (*govchat.Engine, error) {
	opts := append([]govchat.EngineOption{govchat.WithLogger(r.logger)}, r.engineOpts...)
	engine, err := govchat.NewEngine(c.Context, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func (r *runner) setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	r.logger = slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(r.logger)

	return nil
}

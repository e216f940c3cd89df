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
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/poiesic/docraptor"
	"github.com/poiesic/docraptor/config"
	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/importer"
	"github.com/poiesic/docraptor/ingestion"
	"github.com/poiesic/docraptor/storage"
	"github.com/poiesic/docraptor/storage/badger"
	"github.com/poiesic/docraptor/vectorstore"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docraptor",
		Usage: "Crawl documentation into a vector store and build hierarchical summaries",
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
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"DOCRAPTOR_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "crawler-url",
				Usage:   "Crawl4AI base URL",
				EnvVars: []string{"CRAWL4AI_URL"},
			},
			&cli.StringFlag{
				Name:    "weaviate-url",
				Usage:   "Weaviate base URL",
				EnvVars: []string{"WEAVIATE_URL"},
			},
			&cli.StringFlag{
				Name:    "ai-host",
				Usage:   "OpenAI-compatible API host",
				EnvVars: []string{"DOCRAPTOR_AI_HOST"},
			},
			&cli.StringFlag{
				Name:    "summary-model",
				Usage:   "Model used for summaries",
				EnvVars: []string{"DOCRAPTOR_SUMMARY_MODEL"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the summary database directory",
				EnvVars: []string{"DOCRAPTOR_DB"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "crawl",
				Usage:     "Crawl a site, embed its pages and optionally summarize them",
				ArgsUsage: "URL",
				Action:    crawlCommand,
				Flags:     crawlFlags(),
			},
			{
				Name:      "import",
				Usage:     "Embed local documentation files",
				ArgsUsage: "DIR",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to write in each batch",
						Value: importer.DefaultBatchSize,
					},
					&cli.StringSliceFlag{
						Name:  "ext",
						Usage: "File extension to import (repeatable, default: common text formats)",
					},
				},
			},
			{
				Name:      "summarize",
				Usage:     "Build and store a summary tree over one or more files",
				ArgsUsage: "FILE...",
				Action:    summarizeCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-tokens",
						Usage: "Token budget of the root summary",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "levels",
						Usage: "Number of hierarchy levels",
						Value: 3,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search embedded documents",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.StringSliceFlag{
						Name:  "filter",
						Usage: "Metadata filter as key=value; keys: " + strings.Join(vectorstore.FilterKeys, ", "),
					},
				},
			},
			{
				Name:      "delete-document",
				Usage:     "Delete a document from the vector store",
				ArgsUsage: "STORE_ID",
				Action:    deleteDocumentCommand,
			},
			{
				Name:  "summaries",
				Usage: "Manage stored summaries",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List stored summaries",
						Action: listSummariesCommand,
					},
					{
						Name:      "get",
						Usage:     "Print a stored summary tree",
						ArgsUsage: "ID",
						Action:    getSummaryCommand,
					},
					{
						Name:      "delete",
						Usage:     "Delete a stored summary",
						ArgsUsage: "ID",
						Action:    deleteSummaryCommand,
					},
				},
			},
			{
				Name:  "config",
				Usage: "Configuration helpers",
				Subcommands: []*cli.Command{
					{
						Name:      "init",
						Usage:     "Write the default configuration to a file",
						ArgsUsage: "PATH",
						Action:    configInitCommand,
					},
				},
			},
		},
	}
}

// loadConfig reads the configuration file and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("crawler-url") {
		cfg.Crawler.URL = c.String("crawler-url")
	}
	if c.IsSet("weaviate-url") {
		cfg.Weaviate.URL = c.String("weaviate-url")
	}
	if c.IsSet("ai-host") {
		cfg.AI.Host = c.String("ai-host")
		cfg.AI.EmbeddingHost = ""
	}
	if c.IsSet("summary-model") {
		cfg.AI.SummaryModel = c.String("summary-model")
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func openService(ctx context.Context, c *cli.Context) (*docraptor.Service, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	svc, err := docraptor.NewService(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, cfg, nil
}

func openSummaries(c *cli.Context) (storage.SummaryRepository, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	repo, err := badger.NewSummaryRepository(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return repo, nil
}

func requireArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() < n {
		return fmt.Errorf("%w: usage: %s %s", core.ErrInvalidArgument, c.Command.FullName(), usage)
	}
	return nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func crawlFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "preset",
			Usage: fmt.Sprintf("Crawl a known documentation site (%s); URL becomes optional", strings.Join(ingestion.PresetNames(), ", ")),
		},
		&cli.IntFlag{
			Name:  "max-pages",
			Usage: "Maximum number of pages to crawl",
			Value: 100,
		},
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "URL pattern to include (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "URL pattern to exclude (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "skip-assets",
			Usage: "Exclude scripts, stylesheets, images and fonts",
		},
		&cli.BoolFlag{
			Name:  "summaries",
			Usage: "Generate a summary tree per page",
		},
		&cli.BoolFlag{
			Name:  "fail-fast",
			Usage: "Abort when any page fails to summarize",
		},
	}
}

// crawlRequest builds the request from flags. A preset supplies defaults that
// explicitly set flags override; patterns given on the command line are added
// to the preset's.
func crawlRequest(c *cli.Context) (ingestion.CrawlRequest, error) {
	var req ingestion.CrawlRequest
	if name := c.String("preset"); name != "" {
		preset, err := ingestion.LookupPreset(name)
		if err != nil {
			return ingestion.CrawlRequest{}, err
		}
		req = preset.Request()
		if c.NArg() > 0 {
			req.URL = c.Args().First()
		}
		if c.IsSet("max-pages") {
			req.MaxPages = c.Int("max-pages")
		}
		if c.IsSet("summaries") {
			req.GenerateSummaries = c.Bool("summaries")
		}
	} else {
		if err := requireArgs(c, 1, "URL"); err != nil {
			return ingestion.CrawlRequest{}, err
		}
		req = ingestion.CrawlRequest{
			URL:               c.Args().First(),
			MaxPages:          c.Int("max-pages"),
			GenerateSummaries: c.Bool("summaries"),
		}
	}

	req.IncludePatterns = append(req.IncludePatterns, c.StringSlice("include")...)
	req.ExcludePatterns = append(req.ExcludePatterns, c.StringSlice("exclude")...)
	if c.Bool("skip-assets") {
		for _, pattern := range ingestion.StaticAssetPatterns {
			if !slices.Contains(req.ExcludePatterns, pattern) {
				req.ExcludePatterns = append(req.ExcludePatterns, pattern)
			}
		}
	}
	return req, nil
}

func crawlCommand(c *cli.Context) error {
	req, err := crawlRequest(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	svc, cfg, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	var opts []ingestion.Option
	if c.Bool("fail-fast") {
		opts = append(opts, ingestion.WithFailurePolicy(core.FailFast))
	}
	orchestrator, err := svc.NewOrchestrator(opts...)
	if err != nil {
		return err
	}
	defer orchestrator.Release()

	fmt.Fprintf(c.App.ErrWriter, "Crawler: %s\n", cfg.Crawler.URL)
	fmt.Fprintf(c.App.ErrWriter, "Weaviate: %s\n", cfg.Weaviate.URL)

	result, err := orchestrator.CrawlAndStore(ctx, req)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	return printJSON(c, result)
}

func importCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "DIR"); err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	svc, _, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	importConfig := importer.DefaultConfig()
	importConfig.BatchSize = c.Int("batch-size")
	importConfig.ReportInterval = c.Int("batch-size")
	importConfig.Extensions = normalizeExtensions(c.StringSlice("ext"))
	if importConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	im, err := importer.NewImporter(svc.Store(), importConfig, c.App.ErrWriter)
	if err != nil {
		return err
	}
	result, err := im.Run(ctx, c.Args().First())
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return printJSON(c, result)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

func summarizeCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "FILE..."); err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	documents := make([]string, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		documents = append(documents, string(data))
	}

	svc, _, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	id, record, err := svc.Summarize(ctx, documents, c.Int("max-tokens"), c.Int("levels"))
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Stored summary %s\n", id)
	return printJSON(c, record)
}

// parseFilters converts key=value pairs into a filter map.
func parseFilters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: filter %q must be key=value", core.ErrInvalidArgument, pair)
		}
		if !vectorstore.IsFilterKey(key) {
			return nil, fmt.Errorf("%w: unknown filter key %q", core.ErrInvalidArgument, key)
		}
		filters[key] = value
	}
	return filters, nil
}

func searchCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "QUERY"); err != nil {
		return err
	}
	filters, err := parseFilters(c.StringSlice("filter"))
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	svc, _, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	response, err := svc.Search(ctx, strings.Join(c.Args().Slice(), " "), c.Int("limit"), filters)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if response.Degraded {
		fmt.Fprintf(c.App.ErrWriter, "Warning: results are placeholders (%s)\n", response.DegradedReason)
	}
	return printJSON(c, response)
}

func deleteDocumentCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "STORE_ID"); err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	svc, _, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	deleted, err := svc.Store().DeleteDocument(ctx, c.Args().First())
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if !deleted {
		return fmt.Errorf("document %s: %w", c.Args().First(), core.ErrNotFound)
	}
	fmt.Fprintf(c.App.Writer, "Deleted %s\n", c.Args().First())
	return nil
}

func listSummariesCommand(c *cli.Context) error {
	repo, err := openSummaries(c)
	if err != nil {
		return err
	}
	defer repo.Close()

	infos, err := repo.List(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c, infos)
}

func getSummaryCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "ID"); err != nil {
		return err
	}
	repo, err := openSummaries(c)
	if err != nil {
		return err
	}
	defer repo.Close()

	record, err := repo.Get(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(c, record)
}

func deleteSummaryCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "ID"); err != nil {
		return err
	}
	repo, err := openSummaries(c)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Delete(c.Context, c.Args().First()); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted %s\n", c.Args().First())
	return nil
}

func configInitCommand(c *cli.Context) error {
	if err := requireArgs(c, 1, "PATH"); err != nil {
		return err
	}
	path := c.Args().First()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.NewConfig().WriteYAML(path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}

func setupLogger(c *cli.Context) error {
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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// Package command defines the vault command-line interface.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/vaultsearch/internal"
	"github.com/starford/vaultsearch/internal/search"
	"github.com/starford/vaultsearch/internal/vault"
	pkgconfig "github.com/starford/vaultsearch/pkg/config"
)

// ModeSimple marks lexical fallback results in JSON output.
const ModeSimple = "simple"

type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// New returns the root vault command. Command output goes to out, logs to
// errOut, and the mcp subcommand reads requests from in.
func New(in io.Reader, out, errOut io.Writer) *cli.Command {
	a := &app{in: in, out: out, errOut: errOut}

	return &cli.Command{
		Name:   "vault",
		Usage:  "Offline semantic search over a Markdown notes vault",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("VAULT_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault root directory (overrides vault.path)",
				Sources: cli.EnvVars("VAULT_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "Build the semantic search index",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "status", Usage: "Show index status only"},
					&cli.BoolFlag{Name: "rebuild", Usage: "Drop the existing index first"},
					jsonFlag(),
				},
				Action: a.index,
			},
			{
				Name:   "sync",
				Usage:  "Re-index notes changed since the last run",
				Flags:  []cli.Flag{jsonFlag()},
				Action: a.sync,
			},
			{
				Name:      "semantic-search",
				Aliases:   []string{"ss"},
				Usage:     "Search notes by meaning",
				ArgsUsage: "QUERY",
				Flags: []cli.Flag{
					limitFlag(),
					jsonFlag(),
					&cli.BoolFlag{Name: "fallback", Usage: "Use simple keyword matching instead of the index"},
				},
				Action: a.semanticSearch,
			},
			{
				Name:      "related",
				Usage:     "List notes similar to a given note",
				ArgsUsage: "NOTE",
				Flags:     []cli.Flag{limitFlag(), jsonFlag()},
				Action:    a.related,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: a.mcp,
			},
		},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output as JSON"}
}

func limitFlag() cli.Flag {
	return &cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of results"}
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cli.Command) (*internal.Config, *slog.Logger, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	return cfg, internal.NewLogger(cfg.App, a.errOut), nil
}

func (a *app) open(cmd *cli.Command) (*internal.Services, error) {
	cfg, logger, err := a.setup(cmd)
	if err != nil {
		return nil, err
	}
	return internal.Open(cfg, logger)
}

// limit resolves --limit against the configured default and maximum.
func limit(cmd *cli.Command, cfg *internal.Config) int {
	if !cmd.IsSet("limit") {
		return cfg.Search.DefaultLimit
	}
	return min(max(int(cmd.Int("limit")), 1), cfg.Search.MaxLimit)
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func indexExists(path string) (os.FileInfo, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	return info, true
}

// indexStatus is the JSON shape of `index --status`.
type indexStatus struct {
	Exists         bool   `json:"exists"`
	Error          string `json:"error,omitempty"`
	DocumentCount  int    `json:"document_count"`
	EmbeddingCount int    `json:"embedding_count"`
	LastIndexed    int64  `json:"last_indexed"`
	IndexedCount   int    `json:"indexed_count"`
	FileSizeBytes  int64  `json:"file_size_bytes"`
}

func (a *app) index(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("status") {
		return a.indexStatus(cmd)
	}

	svc, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	st := newStyles(a.out)
	asJSON := cmd.Bool("json")

	if cmd.Bool("rebuild") {
		if err := svc.DB.Reset(); err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
		if !asJSON {
			fmt.Fprintf(a.out, "%s Removed existing index\n", st.muted.Render("→"))
		}
	}
	if !asJSON {
		fmt.Fprintf(a.out, "%s Building search index...\n", st.muted.Render("→"))
	}

	stats, err := svc.Engine.IndexAll()
	if err != nil {
		return err
	}
	if asJSON {
		return a.writeJSON(stats)
	}
	st.printIndexStats(a.out, stats, svc.Config.DBPath())
	return nil
}

func (a *app) indexStatus(cmd *cli.Command) error {
	cfg, logger, err := a.setup(cmd)
	if err != nil {
		return err
	}
	asJSON := cmd.Bool("json")
	st := newStyles(a.out)

	info, ok := indexExists(cfg.DBPath())
	if !ok {
		if asJSON {
			return a.writeJSON(indexStatus{Exists: false, Error: "Index not found"})
		}
		fmt.Fprintf(a.out, "%s Index not found. Run %s first.\n", st.fair.Render("!"), st.name.Render("vault index"))
		return nil
	}

	svc, err := internal.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	stats, err := svc.Engine.Stats()
	if err != nil {
		return err
	}
	if asJSON {
		out := indexStatus{
			Exists:         true,
			DocumentCount:  stats.DocumentCount,
			EmbeddingCount: stats.EmbeddingCount,
			LastIndexed:    stats.LastIndexed,
			FileSizeBytes:  info.Size(),
		}
		if v, ok, err := svc.Engine.Meta(search.MetaIndexedCount); err == nil && ok {
			out.IndexedCount, _ = strconv.Atoi(v)
		}
		return a.writeJSON(out)
	}
	st.printStatus(a.out, stats, info.Size())
	return nil
}

func (a *app) sync(ctx context.Context, cmd *cli.Command) error {
	svc, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	stats, err := svc.Engine.Sync()
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return a.writeJSON(stats)
	}
	newStyles(a.out).printSyncStats(a.out, stats)
	return nil
}

// lexicalResult is a fallback hit as written by --json.
type lexicalResult struct {
	search.Result
	Mode string `json:"mode"`
}

func (a *app) semanticSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return errors.New("semantic-search: QUERY is required")
	}

	cfg, logger, err := a.setup(cmd)
	if err != nil {
		return err
	}
	k := limit(cmd, cfg)
	asJSON := cmd.Bool("json")
	st := newStyles(a.out)

	if _, ok := indexExists(cfg.DBPath()); cmd.Bool("fallback") || !ok {
		return a.lexicalSearch(cfg, logger, query, k, asJSON, st)
	}

	svc, err := internal.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	results, err := svc.Engine.Search(query, k)
	if err != nil {
		return err
	}
	if asJSON {
		return a.writeJSON(results)
	}
	st.printResults(a.out, query, results, false)
	return nil
}

func (a *app) lexicalSearch(cfg *internal.Config, logger *slog.Logger, query string, k int, asJSON bool, st styles) error {
	fsys, err := vault.NewFS(cfg.Vault.Path, logger)
	if err != nil {
		return err
	}
	notes, err := fsys.Collect()
	if err != nil {
		return err
	}
	results := search.LexicalSearch(notes, query, k)

	if asJSON {
		out := make([]lexicalResult, len(results))
		for i, r := range results {
			out[i] = lexicalResult{Result: r, Mode: ModeSimple}
		}
		return a.writeJSON(out)
	}
	fmt.Fprintf(a.out, "%s Using simple search (semantic index not available)\n\n", st.fair.Render("!"))
	st.printResults(a.out, query, results, true)
	return nil
}

func (a *app) related(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return errors.New("related: NOTE is required")
	}

	svc, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	id := name
	if n, err := svc.Vault.Find(name); err == nil {
		id = n.ID
	}
	results, err := svc.Engine.Related(id, limit(cmd, svc.Config))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return a.writeJSON(results)
	}
	newStyles(a.out).printRelated(a.out, id, results)
	return nil
}

func (a *app) mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := a.setup(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx,
		internal.WithConfig(cfg),
		internal.WithLogger(logger),
		internal.WithStdio(a.in, a.out),
	); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

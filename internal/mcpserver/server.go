// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes vault search tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vaultsearch/internal/apperr"
	"github.com/starford/vaultsearch/internal/models"
	"github.com/starford/vaultsearch/internal/search"
	"github.com/starford/vaultsearch/internal/vectordb"
)

// Tool limits.
const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 100
	DefaultListLimit   = 50
	MaxListLimit       = 500
)

// Searcher is the part of the search engine the tools use.
type Searcher interface {
	Search(query string, k int) ([]search.Result, error)
	Stats() (vectordb.IndexStats, error)
}

// Notes gives read access to the vault.
type Notes interface {
	Collect() ([]models.Note, error)
	Find(name string) (*models.Note, error)
	Read(path string) ([]byte, error)
}

// Server wraps the MCP server with the vault tools.
type Server struct {
	mcp          *server.MCPServer
	engine       Searcher
	notes        Notes
	logger       *slog.Logger
	defaultLimit int
	maxLimit     int
}

// Option configures a Server.
type Option func(*Server)

// WithSearchLimits overrides the vault_search default and maximum limit.
func WithSearchLimits(def, hi int) Option {
	return func(s *Server) {
		s.defaultLimit = def
		s.maxLimit = hi
	}
}

// WithLogger sets the logger used for tool failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a new MCP server with all vault tools registered.
func New(engine Searcher, notes Notes, opts ...Option) *Server {
	s := &Server{
		engine:       engine,
		notes:        notes,
		logger:       slog.Default(),
		defaultLimit: DefaultSearchLimit,
		maxLimit:     MaxSearchLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"vaultsearch",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("vault_search",
		mcp.WithDescription("Search the vault by semantic similarity. Returns notes whose gist is close in meaning to the query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language search query")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum number of results (default: %d, max: %d)", s.defaultLimit, s.maxLimit))),
	), s.vaultSearch)

	s.mcp.AddTool(mcp.NewTool("vault_get_note",
		mcp.WithDescription("Get the full content and metadata of a note."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note id (file name without .md) or a fragment of its path")),
	), s.vaultGetNote)

	s.mcp.AddTool(mcp.NewTool("vault_list_notes",
		mcp.WithDescription("List vault notes with optional type and area filters."),
		mcp.WithString("note_type", mcp.Description("Filter by type: note, term, project, log")),
		mcp.WithString("area", mcp.Description("Filter by area: work, tech, life, career, learning, reference")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum results (default: %d, max: %d)", DefaultListLimit, MaxListLimit))),
	), s.vaultListNotes)

	s.mcp.AddTool(mcp.NewTool("vault_status",
		mcp.WithDescription("Vault summary: note counts by type and area."),
	), s.vaultStatus)

	s.mcp.AddTool(mcp.NewTool("vault_health",
		mcp.WithDescription("Vault health score (0-100) from gist, type and area coverage."),
	), s.vaultHealth)

	s.mcp.AddTool(mcp.NewTool("vault_index_status",
		mcp.WithDescription("Semantic index statistics: document count, embedding count, last indexed time."),
	), s.vaultIndexStatus)

	s.mcp.AddResource(
		mcp.NewResource(NoteFormatURI, "Vault Note Format",
			mcp.WithResourceDescription("Frontmatter fields read by the semantic index."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// Serve runs the MCP protocol over in/out until ctx is cancelled or in is
// closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// clampLimit maps a requested limit onto [1, hi], treating 0 as def.
func clampLimit(requested, def, hi int) int {
	if requested == 0 {
		return def
	}
	return min(max(requested, 1), hi)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("JSON serialization failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) vaultSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := clampLimit(req.GetInt("limit", s.defaultLimit), s.defaultLimit, s.maxLimit)

	results, err := s.engine.Search(query, limit)
	if err != nil {
		s.logger.Error("mcp: search failed", slog.String("error", err.Error()))
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}
	return jsonResult(results)
}

// noteInfo is the metadata block returned by the note tools.
type noteInfo struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Path   string   `json:"path"`
	Type   string   `json:"note_type,omitempty"`
	Status string   `json:"status,omitempty"`
	Area   string   `json:"area,omitempty"`
	Gist   string   `json:"gist,omitempty"`
	Tags   []string `json:"tags"`
}

func toNoteInfo(n *models.Note) noteInfo {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return noteInfo{
		ID:     n.ID,
		Title:  n.Title,
		Path:   n.Path,
		Type:   n.Type,
		Status: n.Status,
		Area:   n.Area,
		Gist:   n.Gist,
		Tags:   tags,
	}
}

func (s *Server) vaultGetNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	n, err := s.notes.Find(name)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultText(fmt.Sprintf("Note not found: %s", name)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	content, err := s.notes.Read(n.Path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read note: %v", err)), nil
	}
	meta, _ := json.MarshalIndent(toNoteInfo(n), "", "  ")
	out := fmt.Sprintf("## Metadata\n```json\n%s\n```\n\n## Content\n%s", meta, content)
	return mcp.NewToolResultText(out), nil
}

func (s *Server) vaultListNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteType := req.GetString("note_type", "")
	area := req.GetString("area", "")
	limit := clampLimit(req.GetInt("limit", DefaultListLimit), DefaultListLimit, MaxListLimit)

	notes, err := s.notes.Collect()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := make([]noteInfo, 0, min(len(notes), limit))
	for i := range notes {
		n := &notes[i]
		if noteType != "" && n.Type != noteType {
			continue
		}
		if area != "" && n.Area != area {
			continue
		}
		out = append(out, toNoteInfo(n))
		if len(out) == limit {
			break
		}
	}
	return jsonResult(out)
}

func (s *Server) vaultStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.notes.Collect()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	byType := map[string]int{}
	byArea := map[string]int{}
	for _, n := range notes {
		if n.Type != "" {
			byType[n.Type]++
		}
		if n.Area != "" {
			byArea[n.Area]++
		}
	}
	return jsonResult(map[string]any{
		"total_notes": len(notes),
		"by_type":     byType,
		"by_area":     byArea,
	})
}

// Health holds the coverage figures behind vault_health.
type Health struct {
	Score        int    `json:"score"`
	TotalNotes   int    `json:"total_notes"`
	GistCoverage string `json:"gist_coverage"`
	TypeCoverage string `json:"type_coverage"`
	AreaCoverage string `json:"area_coverage"`
}

// ComputeHealth weights gist coverage at 40 points and type and area
// coverage at 30 points each.
func ComputeHealth(notes []models.Note) Health {
	var withGist, withType, withArea int
	for _, n := range notes {
		if n.HasGist() {
			withGist++
		}
		if n.Type != "" {
			withType++
		}
		if n.Area != "" {
			withArea++
		}
	}

	ratio := func(k int) float64 {
		if len(notes) == 0 {
			return 0
		}
		return float64(k) / float64(len(notes))
	}
	pct := func(k int) string {
		return fmt.Sprintf("%.0f%%", ratio(k)*100)
	}

	score := ratio(withGist)*40 + ratio(withType)*30 + ratio(withArea)*30
	return Health{
		Score:        int(math.Round(score)),
		TotalNotes:   len(notes),
		GistCoverage: pct(withGist),
		TypeCoverage: pct(withType),
		AreaCoverage: pct(withArea),
	}
}

func (s *Server) vaultHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.notes.Collect()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ComputeHealth(notes))
}

func (s *Server) vaultIndexStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.engine.Stats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(stats)
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

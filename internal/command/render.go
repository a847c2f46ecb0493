package command

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/vaultsearch/internal/search"
	"github.com/starford/vaultsearch/internal/vectordb"
)

// Colors
var (
	PrimaryColor = lipgloss.Color("39")  // Blue
	AccentColor  = lipgloss.Color("76")  // Green
	ErrorColor   = lipgloss.Color("196") // Red
	WarningColor = lipgloss.Color("214") // Orange
)

const maxGistRunes = 100

// styles renders terminal output for one writer. Colors are dropped
// automatically when the writer is not a terminal.
type styles struct {
	title lipgloss.Style
	name  lipgloss.Style
	muted lipgloss.Style
	good  lipgloss.Style
	fair  lipgloss.Style
	bad   lipgloss.Style
	rank  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true),
		name:  r.NewStyle().Foreground(PrimaryColor),
		muted: r.NewStyle().Faint(true),
		good:  r.NewStyle().Foreground(AccentColor).Bold(true),
		fair:  r.NewStyle().Foreground(WarningColor),
		bad:   r.NewStyle().Foreground(ErrorColor),
		rank:  r.NewStyle().Bold(true),
	}
}

// score colors a similarity: green above 0.8, yellow above 0.6, faint otherwise.
func (s styles) score(v float32) string {
	text := fmt.Sprintf("%.2f", v)
	switch {
	case v > 0.8:
		return s.good.Render(text)
	case v > 0.6:
		return s.fair.Render(text)
	default:
		return s.muted.Render(text)
	}
}

// truncateGist shortens g to maxGistRunes runes, appending "..." when cut.
func truncateGist(g string) string {
	runes := []rune(g)
	if len(runes) <= maxGistRunes {
		return g
	}
	return string(runes[:maxGistRunes]) + "..."
}

func (s styles) printResults(w io.Writer, query string, results []search.Result, lexical bool) {
	if len(results) == 0 {
		fmt.Fprintf(w, "%s No results found for: %s\n", s.muted.Render("→"), s.name.Render(query))
		return
	}
	fmt.Fprintf(w, "%s %d results for: %s\n\n", s.muted.Render("→"), len(results), s.name.Render(query))

	for i, r := range results {
		score := s.score(r.Score)
		if lexical {
			score = s.muted.Render(fmt.Sprintf("%.0f%%", r.Score*100))
		}
		fmt.Fprintf(w, "%s. [%s] %s\n", s.rank.Render(fmt.Sprint(i+1)), score, s.name.Render(r.Title))
		if r.Gist != "" {
			fmt.Fprintf(w, "   %s\n", s.muted.Render(truncateGist(r.Gist)))
		}
		if !lexical && r.Type != "" && r.Area != "" {
			fmt.Fprintf(w, "   %s | %s\n", r.Type, r.Area)
		}
		fmt.Fprintln(w)
	}
}

func (s styles) printIndexStats(w io.Writer, stats search.IndexingStats, dbPath string) {
	fmt.Fprintf(w, "\n%s Indexed %s notes in %.2fs\n",
		s.good.Render("✓"), s.name.Render(fmt.Sprint(stats.Indexed)), float64(stats.DurationMS)/1000)
	if stats.Skipped > 0 {
		fmt.Fprintf(w, "  %s %d notes skipped (no gist)\n", s.muted.Render("→"), stats.Skipped)
	}
	if stats.Failed > 0 {
		fmt.Fprintf(w, "  %s %d notes failed\n", s.bad.Render("✗"), stats.Failed)
	}
	fmt.Fprintf(w, "  %s Index saved to: %s\n", s.muted.Render("→"), dbPath)
}

func (s styles) printSyncStats(w io.Writer, stats search.SyncStats) {
	fmt.Fprintf(w, "%s Synced in %.2fs: %s indexed, %d unchanged, %d removed\n",
		s.good.Render("✓"), float64(stats.DurationMS)/1000,
		s.name.Render(fmt.Sprint(stats.Indexed)), stats.Unchanged, stats.Removed)
	if stats.Skipped > 0 {
		fmt.Fprintf(w, "  %s %d notes skipped (no gist)\n", s.muted.Render("→"), stats.Skipped)
	}
	if stats.Failed > 0 {
		fmt.Fprintf(w, "  %s %d notes failed\n", s.bad.Render("✗"), stats.Failed)
	}
}

func (s styles) printStatus(w io.Writer, stats vectordb.IndexStats, sizeBytes int64) {
	fmt.Fprintf(w, "%s\n\n", s.title.Render("Index Status"))
	fmt.Fprintf(w, "  %s %s notes indexed\n", s.muted.Render("→"), s.name.Render(fmt.Sprint(stats.DocumentCount)))
	fmt.Fprintf(w, "  %s %s embeddings\n", s.muted.Render("→"), s.name.Render(fmt.Sprint(stats.EmbeddingCount)))
	fmt.Fprintf(w, "  %s Size: %.2f KB\n", s.muted.Render("→"), float64(sizeBytes)/1024)
	if stats.LastIndexed > 0 {
		ts := time.Unix(stats.LastIndexed, 0).Format("2006-01-02 15:04:05")
		fmt.Fprintf(w, "  %s Last indexed: %s\n", s.muted.Render("→"), ts)
	}
}

func (s styles) printRelated(w io.Writer, id string, results []search.Result) {
	fmt.Fprintf(w, "%s\n", s.title.Render("Related Notes"))
	fmt.Fprintf(w, "Source: %s\n\n", s.name.Render(id))
	if len(results) == 0 {
		fmt.Fprintf(w, "%s\n", s.fair.Render("No related notes found."))
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%s. [%s] %s\n", s.rank.Render(fmt.Sprint(i+1)), s.score(r.Score), s.name.Render(r.Title))
		if r.Gist != "" {
			fmt.Fprintf(w, "   %s\n", s.muted.Render(truncateGist(r.Gist)))
		}
	}
}

package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/starford/vaultsearch/internal/models"
)

// LexicalSearch ranks notes by the fraction of query terms found in their
// gist. It needs no index or model and is used when the store is unavailable.
// Notes without a gist, and notes matching no term, are left out.
func LexicalSearch(notes []models.Note, query string, k int) []Result {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || k <= 0 {
		return nil
	}

	var out []Result
	for _, n := range notes {
		if !n.HasGist() {
			continue
		}
		gist := strings.ToLower(n.Gist)
		matched := 0
		for _, t := range terms {
			if strings.Contains(gist, t) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		out = append(out, Result{
			ID:    n.ID,
			Path:  n.Path,
			Title: n.Title,
			Gist:  n.Gist,
			Type:  n.Type,
			Area:  n.Area,
			Score: float32(matched) / float32(len(terms)),
		})
	}

	slices.SortFunc(out, func(a, b Result) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

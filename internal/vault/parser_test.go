package vault

import (
	"slices"
	"testing"
)

func TestParse_FrontmatterFields(t *testing.T) {
	input := []byte("---\ntype: note\nstatus: active\narea: tech\ngist: GPU memory sharing methods\ntags: [gpu, memory]\n---\n# Heading\nBody text.\n")
	n := Parse("Notes/gpu-sharing.md", input)

	if n.ID != "gpu-sharing" || n.Title != "gpu-sharing" {
		t.Errorf("id/title = %q/%q, want gpu-sharing", n.ID, n.Title)
	}
	if n.Type != "note" || n.Status != "active" || n.Area != "tech" {
		t.Errorf("type/status/area = %q/%q/%q", n.Type, n.Status, n.Area)
	}
	if n.Gist != "GPU memory sharing methods" {
		t.Errorf("gist = %q", n.Gist)
	}
	if !slices.Equal(n.Tags, []string{"gpu", "memory"}) {
		t.Errorf("tags = %v", n.Tags)
	}
	if n.Body != "# Heading\nBody text.\n" {
		t.Errorf("body = %q", n.Body)
	}
}

func TestParse_TitleFromFrontmatter(t *testing.T) {
	n := Parse("Notes/x.md", []byte("---\ntitle: Human Title\n---\nbody"))
	if n.Title != "Human Title" {
		t.Errorf("title = %q, want Human Title", n.Title)
	}
	if n.ID != "x" {
		t.Errorf("id = %q, want x", n.ID)
	}
}

func TestParse_FoldedGist(t *testing.T) {
	input := []byte("---\ntype: note\ngist: >\n  first line\n  second line\ntags:\n  - a\n---\nbody")
	n := Parse("Notes/folded.md", input)
	if n.Gist != "first line second line" {
		t.Errorf("gist = %q", n.Gist)
	}
	if !slices.Equal(n.Tags, []string{"a"}) {
		t.Errorf("tags = %v", n.Tags)
	}
}

func TestParse_LiteralGistJoined(t *testing.T) {
	input := []byte("---\ngist: |\n  line one\n  line two\n---\n")
	n := Parse("Notes/literal.md", input)
	if n.Gist != "line one line two" {
		t.Errorf("gist = %q", n.Gist)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	n := Parse("Notes/plain.md", []byte("# Just a heading\nSome text.\n"))
	if n.Gist != "" || n.HasGist() {
		t.Errorf("gist = %q, want empty", n.Gist)
	}
	if n.Tags == nil {
		t.Error("tags should be an empty slice, not nil")
	}
	if n.Title != "plain" {
		t.Errorf("title = %q, want plain", n.Title)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	n := Parse("Notes/bad.md", []byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if n.Gist != "" || n.Type != "" {
		t.Errorf("invalid YAML should yield no fields, got %+v", n)
	}
}

func TestParseFrontmatter_Unterminated(t *testing.T) {
	fm, body := ParseFrontmatter([]byte("---\ngist: never closed\n"))
	if fm != nil {
		t.Errorf("expected nil frontmatter, got %+v", fm)
	}
	if body != "---\ngist: never closed\n" {
		t.Errorf("body = %q", body)
	}
}

func TestParseFrontmatter_ScalarTags(t *testing.T) {
	fm, _ := ParseFrontmatter([]byte("---\ntags: alpha, beta ,\n---\n"))
	if fm == nil {
		t.Fatal("expected frontmatter")
	}
	if !slices.Equal([]string(fm.Tags), []string{"alpha", "beta"}) {
		t.Errorf("tags = %v", fm.Tags)
	}
}

func TestParseFrontmatter_EmptyGist(t *testing.T) {
	fm, _ := ParseFrontmatter([]byte("---\ngist:\ntype: note\n---\n"))
	if fm == nil {
		t.Fatal("expected frontmatter")
	}
	if fm.Gist != "" {
		t.Errorf("gist = %q, want empty", fm.Gist)
	}
}

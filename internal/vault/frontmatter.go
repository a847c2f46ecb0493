package vault

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter holds the YAML fields the vault schema defines.
type Frontmatter struct {
	Title  string  `yaml:"title"`
	Type   string  `yaml:"type"`
	Status string  `yaml:"status"`
	Area   string  `yaml:"area"`
	Gist   string  `yaml:"gist"`
	Tags   tagList `yaml:"tags"`
}

// ParseFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. It returns nil frontmatter when the block is missing,
// unterminated, or not valid YAML; none of these are errors.
func ParseFrontmatter(data []byte) (*Frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm Frontmatter
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	fm.normalize()
	return &fm, body
}

// normalize trims scalar fields and drops blank tags. Folded gists keep
// their words joined by single spaces.
func (fm *Frontmatter) normalize() {
	fm.Title = strings.TrimSpace(fm.Title)
	fm.Type = strings.TrimSpace(fm.Type)
	fm.Status = strings.TrimSpace(fm.Status)
	fm.Area = strings.TrimSpace(fm.Area)
	fm.Gist = strings.Join(strings.Fields(fm.Gist), " ")

	tags := fm.Tags[:0]
	for _, t := range fm.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	fm.Tags = tags
}

// tagList accepts both a YAML sequence and a single comma-separated scalar.
type tagList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *tagList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*t = strings.Split(node.Value, ",")
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*t = list
	return nil
}

package mcpserver

// NoteFormatURI is the resource URI of NoteFormatContract.
const NoteFormatURI = "vault://note-format"

// NoteFormatContract describes the frontmatter the search index reads. It is
// served to MCP clients so they write notes that can be found.
const NoteFormatContract = `# Vault Note Format

Searchable notes live directly inside ` + "`Notes/`, `Projects/` or `Archive/`" + `.
Subfolders, ` + "`_system/`" + ` and ` + "`inbox.md`" + ` are not indexed.

## Frontmatter

` + "```" + `markdown
---
type: note          # note | term | project | log
status: active      # active | done | archived
area: tech          # work | tech | life | career | learning | reference
gist: >
  One or two sentences summarising the note.
tags: [gpu, memory] # at most 5, lowercase, no hierarchy
---
` + "```" + `

## Rules

1. The ` + "`gist`" + ` field is what gets embedded. A note without a gist is skipped
   by the index and never returned by ` + "`vault_search`" + `.
2. The note id is the file name without ` + "`.md`" + `. Keep it unique across folders.
3. ` + "`title`" + ` is optional; the file name is used when it is missing.
4. Folded (` + "`>`" + `) and literal (` + "`|`" + `) gists are joined into one line.
`

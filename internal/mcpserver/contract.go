package mcpserver

// NoteFormatContract describes the note conventions the doctor checks and
// repairs. LLM consumers should follow it when writing notes.
const NoteFormatContract = `# hagal Note Format Contract

A workspace is a directory holding a ` + "`hagal.yml`" + ` marker that lists one or
more vaults. Each vault is a flat directory of ` + "`<fname>.md`" + ` files. The fname is
a dot-separated hierarchy (` + "`projects.alpha.todo`" + `) and is unique within its vault.

## Header

Every note starts with a YAML header between ` + "`---`" + ` fences:

` + "```" + `markdown
---
id: 4f2kq9x1m0ab          # REQUIRED - unique across the whole workspace
title: Todo               # defaults to the last fname segment, capitalised
desc: ''
updated: 1700000000000    # milliseconds since the Unix epoch
created: 1700000000000
---
` + "```" + `

1. **id** is required and must be unique in the workspace. It starts with a letter,
   digit or underscore and may continue with letters, digits, ` + "`_`" + ` or ` + "`-`" + `.
2. Unknown header keys are kept as they are.
3. A note with no header, a malformed header, or a blank id is repaired by
   ` + "`fix-metadata`" + `.

## Wiki links

- ` + "`[[fname]]`" + ` links to a note in the same vault.
- ` + "`[[label|fname]]`" + ` shows label instead of the target name.
- ` + "`[[dendron://vault/fname]]`" + ` links into another vault.
- A trailing ` + "`#anchor`" + ` is ignored when resolving.
- Links inside code blocks or inline code are not links.

` + "`create-missing-linked-notes`" + ` creates a stub for every link whose target
note does not exist.
`

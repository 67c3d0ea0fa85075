package mcpserver

// EngineContract describes the vault layout, the supported markup engines
// and how notes are rendered, for LLM consumers that create or edit notes.
const EngineContract = `# quire Engine Contract

A quire vault is a directory with a ` + "`" + `notes/` + "`" + ` subdirectory. Every note is a
single LaTeX or Typst source file somewhere under ` + "`" + `notes/` + "`" + `.

## Engines

| Engine | Extension | Compiled with |
|--------|-----------|---------------|
| latex  | .tex      | latexmk -pdf, or pdflatex twice when latexmk is absent |
| typst  | .typ      | typst compile |

Files with any other extension are not notes and are never listed or rendered.

## Paths

1. Tool paths are relative to the vault root and use forward slashes
   (e.g. ` + "`" + `notes/midterm-notes.tex` + "`" + `). Absolute paths and ` + "`" + `..` + "`" + ` are rejected.
2. ` + "`" + `create_note` + "`" + ` chooses the filename: the title is lowercased, spaces,
   hyphens and underscores become single hyphens, other characters are dropped.
   An existing name gets a ` + "`" + `-2` + "`" + `, ` + "`" + `-3` + "`" + `, ... suffix.
3. The rendered PDF always sits beside its note with the same stem
   (` + "`" + `notes/a.typ` + "`" + ` renders to ` + "`" + `notes/a.pdf` + "`" + `).

## Editing

- ` + "`" + `save_note` + "`" + ` replaces the whole file. It never creates a note; use ` + "`" + `create_note` + "`" + ` first.
- Content is stored verbatim as UTF-8. Keep the preamble produced by the template.
- Rendering is never automatic from tools: call ` + "`" + `render_note` + "`" + ` after saving.

## Templates

LaTeX:

` + "```" + `latex
\documentclass{article}
\usepackage{amsmath,amssymb,amsthm}

\title{<title>}
\begin{document}
\maketitle

% Write your theorem / derivation here

\end{document}
` + "```" + `

Typst:

` + "```" + `typst
#set document(title: "<title>")

= <title>

// Write your theorem / derivation here
` + "```" + `

## Errors

Tool errors start with a kind in brackets:

- ` + "`" + `[not_found]` + "`" + ` the note, vault or expected PDF does not exist.
- ` + "`" + `[invalid_input]` + "`" + ` bad arguments, a missing compiler, or a compile error
  (the compiler's own output follows).
- ` + "`" + `[io]` + "`" + ` a filesystem or process failure on the server.
`

package engine

import (
	"fmt"
	"strings"
)

const latexTemplate = `\documentclass{article}
\usepackage{amsmath,amssymb,amsthm}

\title{%s}
\begin{document}
\maketitle

%% Write your theorem / derivation here

\end{document}
`

const typstTemplate = `#set document(title: "%s")

= %s

// Write your theorem / derivation here
`

var typstStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Template returns the initial content of a new note titled title.
func (e Engine) Template(title string) string {
	switch e {
	case Latex:
		return fmt.Sprintf(latexTemplate, title)
	case Typst:
		return fmt.Sprintf(typstTemplate, typstStringEscaper.Replace(title), title)
	}
	panic(fmt.Sprintf("engine: unknown engine %d", int(e)))
}

package render

import (
	"github.com/ledongthuc/pdf"
)

// PageCount returns the number of pages in the PDF at path, or 0 when the
// file cannot be parsed.
func PageCount(path string) (n int) {
	// The parser panics on some malformed files.
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return r.NumPage()
}

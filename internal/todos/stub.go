//go:build !cgo

package todos

import "context"

// treeParser is unavailable without cgo; every file goes through the line scanner.
type treeParser struct{}

func newTreeParser() *treeParser {
	return nil
}

// TreeSitterAvailable reports whether comments are located by parsing.
func TreeSitterAvailable() bool { return false }

func (p *treeParser) comments(ctx context.Context, file string, src []byte) ([]comment, bool) {
	return nil, false
}

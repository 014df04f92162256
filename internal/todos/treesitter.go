//go:build cgo

package todos

import (
	"context"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// treeParser wraps a tree-sitter parser. It is not safe for concurrent use.
type treeParser struct {
	parser *sitter.Parser
}

func newTreeParser() *treeParser {
	return &treeParser{parser: sitter.NewParser()}
}

// TreeSitterAvailable reports whether comments are located by parsing.
func TreeSitterAvailable() bool { return true }

// languageFor returns the grammar for a file extension.
func languageFor(file string) *sitter.Language {
	switch strings.ToLower(path.Ext(file)) {
	case ".go":
		return golang.GetLanguage()
	case ".js", ".jsx", ".mjs", ".cjs":
		return javascript.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	case ".py", ".pyw":
		return python.GetLanguage()
	case ".rs":
		return rust.GetLanguage()
	case ".java":
		return java.GetLanguage()
	case ".kt", ".kts":
		return kotlin.GetLanguage()
	default:
		return nil
	}
}

// comments returns every comment line in src. ok is false when the file's
// language has no grammar or parsing failed, and the caller should scan instead.
func (p *treeParser) comments(ctx context.Context, file string, src []byte) ([]comment, bool) {
	if p == nil {
		return nil, false
	}
	lang := languageFor(file)
	if lang == nil {
		return nil, false
	}
	p.parser.SetLanguage(lang)
	tree, err := p.parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return nil, false
	}
	defer tree.Close()

	var out []comment
	walkComments(tree.RootNode(), src, &out)
	return out, true
}

func walkComments(node *sitter.Node, src []byte, out *[]comment) {
	if node == nil {
		return
	}
	// Grammars name these comment, line_comment, block_comment and so on.
	if strings.Contains(node.Type(), "comment") {
		start := int(node.StartPoint().Row) + 1
		for i, line := range strings.Split(node.Content(src), "\n") {
			*out = append(*out, comment{Line: start + i, Text: line})
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkComments(node.Child(i), src, out)
	}
}

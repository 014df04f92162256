package planning

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	linkRe    = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	doneMarks = []string{"✅", "✔️", "✔", "(done)", "[done]"}
)

// markdown parses planning documents as CommonMark with GFM task lists.
var markdown = goldmark.New(goldmark.WithExtensions(extension.TaskList, extension.Strikethrough))

// section tracks the innermost heading and whether it lists planned work.
type section struct {
	title        string
	plannedLevel int // level of the heading that opened a planned section, 0 if none
}

// parseMarkdown reads front matter and the document body.
// Checklist items count anywhere; plain bullets only under planned headings
// or when front matter sets planned = true. Code and HTML blocks are skipped.
func (e *Extractor) parseMarkdown(content string) ([]entry, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	fm, bodyStart, fmErr := e.parseFrontMatter(lines)
	entries := fm.entries
	if fm.optOut() {
		return entries, fmErr
	}

	body := []byte(strings.Join(lines[bodyStart:], "\n"))
	lineOf := lineIndex(body, bodyStart)
	doc := markdown.Parser().Parse(text.NewReader(body))

	var sec section
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil

		case *ast.Heading:
			title := collapse(plainText(n, body))
			if sec.plannedLevel > 0 && n.Level <= sec.plannedLevel {
				sec.plannedLevel = 0
			}
			if sec.plannedLevel == 0 && e.planned(title) {
				sec.plannedLevel = n.Level
			}
			sec.title = title
			return ast.WalkSkipChildren, nil

		case *ast.ListItem:
			if en, ok := e.listEntry(n, body, sec, fm); ok {
				en.Line = lineOf(n.FirstChild().Lines().At(0).Start)
				entries = append(entries, en)
			}
		}
		return ast.WalkContinue, nil
	})
	return entries, fmErr
}

// listEntry reads the first paragraph of a list item. Nested lists are
// visited as items of their own.
func (e *Extractor) listEntry(item *ast.ListItem, src []byte, sec section, fm frontMatter) (entry, bool) {
	block := item.FirstChild()
	if block == nil || block.Lines().Len() == 0 {
		return entry{}, false
	}
	if _, ok := block.(*ast.TextBlock); !ok {
		if _, ok := block.(*ast.Paragraph); !ok {
			return entry{}, false
		}
	}

	box := checkBox(block)
	if box == nil && sec.plannedLevel == 0 && !fm.allPlanned() {
		return entry{}, false
	}
	if struckThrough(block, src) {
		return entry{}, false
	}

	claim := ""
	switch {
	case box != nil && box.IsChecked:
		claim = "implemented"
	case box == nil && fm.Status != "":
		claim = claimFor(fm.Status)
	}
	desc, marked := stripDoneMarks(collapse(plainText(block, src)))
	if marked && claim == "" {
		claim = "implemented"
	}
	return entry{Description: collapse(desc), Section: sec.title, Claim: claim}, true
}

func checkBox(block ast.Node) *extast.TaskCheckBox {
	if box, ok := block.FirstChild().(*extast.TaskCheckBox); ok {
		return box
	}
	return nil
}

// struckThrough reports whether every inline of block is struck out.
func struckThrough(block ast.Node, src []byte) bool {
	seen := false
	for c := block.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *extast.TaskCheckBox:
		case *extast.Strikethrough:
			seen = true
		case *ast.Text:
			if strings.TrimSpace(string(c.Segment.Value(src))) != "" {
				return false
			}
		default:
			return false
		}
	}
	return seen
}

// plainText concatenates the text of n's inlines, dropping markup.
func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Text:
				b.Write(c.Segment.Value(src))
				if c.SoftLineBreak() || c.HardLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(c.Value)
			case *ast.AutoLink:
				b.Write(c.Label(src))
			case *ast.RawHTML, *extast.TaskCheckBox:
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

// lineIndex maps a byte offset in body to its 1-based line in the whole document.
func lineIndex(body []byte, firstLine int) func(int) int {
	var breaks []int
	for i, c := range body {
		if c == '\n' {
			breaks = append(breaks, i)
		}
	}
	return func(offset int) int {
		return firstLine + 1 + sort.SearchInts(breaks, offset)
	}
}

func stripDoneMarks(s string) (string, bool) {
	for _, mark := range doneMarks {
		if strings.HasSuffix(s, mark) {
			return strings.TrimSpace(strings.TrimSuffix(s, mark)), true
		}
		if strings.HasPrefix(s, mark) {
			return strings.TrimSpace(strings.TrimPrefix(s, mark)), true
		}
	}
	return s, false
}

func collapse(s string) string {
	return strings.TrimRight(strings.Join(strings.Fields(s), " "), ":;, ")
}

// cleanText drops inline markdown from a value that was not parsed as markdown,
// such as a front matter or YAML roadmap entry.
func cleanText(s string) string {
	s = linkRe.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
	return collapse(s)
}

package todos

import (
	"path"
	"strings"
)

// Comment leaders by language family. Block comment bodies are recognized by
// their leading "*" inside a C-style block.
var (
	cStyle   = []string{"//", "/*"}
	hashOnly = []string{"#"}
	dashes   = []string{"--"}
	markup   = []string{"<!--", "//", "/*"}
)

func leadersFor(file string) []string {
	switch strings.ToLower(path.Ext(file)) {
	case ".py", ".rb", ".sh", ".pl":
		return hashOnly
	case ".sql", ".lua", ".hs", ".elm":
		return dashes
	case ".vue", ".svelte", ".html":
		return markup
	default:
		return cStyle
	}
}

// scanComments finds comment lines without parsing the file.
// It tracks C-style block comments across lines and otherwise looks for the
// earliest comment leader on each line.
func scanComments(file, src string) []comment {
	leaders := leadersFor(file)
	blockAware := leaders[0] != "#" && leaders[0] != "--"

	var (
		out     []comment
		inBlock bool
	)
	for i, line := range strings.Split(src, "\n") {
		lineNo := i + 1
		if inBlock {
			out = append(out, comment{Line: lineNo, Text: line})
			if strings.Contains(line, "*/") || strings.Contains(line, "-->") {
				inBlock = false
			}
			continue
		}

		idx, leader := firstLeader(line, leaders)
		if idx < 0 {
			continue
		}
		text := line[idx:]
		out = append(out, comment{Line: lineNo, Text: text})
		if blockAware && (leader == "/*" || leader == "<!--") {
			closer := "*/"
			if leader == "<!--" {
				closer = "-->"
			}
			if !strings.Contains(text[len(leader):], closer) {
				inBlock = true
			}
		}
	}
	return out
}

// firstLeader returns the position and text of the earliest comment leader in
// line that is not inside a string literal. A ' or " that never closes on the
// line is not a string (Rust lifetimes, regex literals), so scanning resumes
// right after it. Backquotes may legitimately span lines and stay open.
func firstLeader(line string, leaders []string) (int, string) {
	var (
		quote      byte
		quoteStart int
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' || c == '`' {
			quote, quoteStart = c, i
			continue
		}
		for _, l := range leaders {
			if strings.HasPrefix(line[i:], l) {
				return i, l
			}
		}
	}
	if quote == '"' || quote == '\'' {
		rest := quoteStart + 1
		if idx, l := firstLeader(line[rest:], leaders); idx >= 0 {
			return rest + idx, l
		}
	}
	return -1, ""
}

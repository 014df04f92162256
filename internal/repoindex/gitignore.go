package repoindex

import (
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ignoreScope is one .gitignore file and the directory holding it.
type ignoreScope struct {
	base  string // "" for the repository root
	rules *ignore.GitIgnore
}

type ignoreMatcher struct {
	scopes []ignoreScope
}

// add compiles content as a .gitignore located in base.
func (m *ignoreMatcher) add(base, content string) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	m.scopes = append(m.scopes, ignoreScope{base: base, rules: ignore.CompileIgnoreLines(lines...)})
}

// ignored reports whether rel is excluded by any .gitignore above it.
// Directories are matched with a trailing slash so "dir/" rules apply.
func (m *ignoreMatcher) ignored(rel string, isDir bool) bool {
	for _, s := range m.scopes {
		sub, ok := relativeTo(rel, s.base)
		if !ok {
			continue
		}
		if isDir {
			sub += "/"
		}
		if s.rules.MatchesPath(sub) {
			return true
		}
	}
	return false
}

func relativeTo(rel, base string) (string, bool) {
	if base == "" {
		return rel, true
	}
	if strings.HasPrefix(rel, base+"/") {
		return rel[len(base)+1:], true
	}
	return "", false
}

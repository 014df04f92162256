package evidence

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// findPatterns records the first occurrence of each keyword in each source
// file that is not already a found file, up to MaxPatternMatches in total.
func (r *run) findPatterns(keys Keys, found []string) []CodePattern {
	if len(keys.Keywords) == 0 {
		return nil
	}
	skip := make(map[string]bool, len(found)+1)
	for _, f := range found {
		skip[f] = true
	}
	skip[r.own] = true

	limit := r.p.cfg.MaxPatternMatches
	var patterns []CodePattern
	for _, src := range r.corpus.Sources {
		if r.ctx.Err() != nil || len(patterns) >= limit {
			break
		}
		if skip[src] {
			continue
		}
		text, ok := r.read(src)
		if !ok {
			continue
		}
		lowerText := strings.ToLower(text)

		for _, kw := range keys.Keywords {
			if len(patterns) >= limit {
				break
			}
			if !strings.Contains(lowerText, kw) {
				continue
			}
			for i, line := range strings.Split(text, "\n") {
				if wordStartIndex(line, kw) >= 0 {
					patterns = append(patterns, CodePattern{
						File:    src,
						Line:    i + 1,
						Keyword: kw,
						Snippet: truncate(line, r.p.cfg.MaxStatementLength),
					})
					break
				}
			}
		}
	}
	return patterns
}

// wordStartIndex finds kw (lowercase) in line case-insensitively where it
// begins an identifier or a camelCase hump, returning -1 if absent.
func wordStartIndex(line, kw string) int {
	lower := strings.ToLower(line)
	if len(lower) != len(line) {
		// Case folding changed byte offsets; fall back to a plain search.
		return strings.Index(lower, kw)
	}
	for start := 0; ; {
		i := strings.Index(lower[start:], kw)
		if i < 0 {
			return -1
		}
		i += start
		if i == 0 {
			return i
		}
		prev, _ := utf8.DecodeLastRuneInString(line[:i])
		cur, _ := utf8.DecodeRuneInString(line[i:])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return i
		}
		if unicode.IsLower(prev) && unicode.IsUpper(cur) {
			return i
		}
		start = i + 1
	}
}

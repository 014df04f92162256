package evidence

import (
	"regexp"
	"strings"
	"unicode"
)

// markerPrefix matches a leading TODO-style marker such as "FIXME(alice):".
var markerPrefix = regexp.MustCompile(`(?i)^\s*(?://|#|/\*|\*|--)?\s*(TODO|FIXME|BUG|HACK|XXX|OPTIMIZE)\b(\([^)]*\))?\s*[:\-]?\s*`)

// Key is a candidate file name expressed as its words, e.g. [rate limiter].
type Key []string

// Joined returns the lowercase words concatenated without separators.
func (k Key) Joined() string {
	return strings.Join(k, "")
}

// Variants renders the key as PascalCase, camelCase, kebab-case and snake_case.
func (k Key) Variants() []string {
	if len(k) == 0 {
		return nil
	}
	var pascal strings.Builder
	for _, w := range k {
		pascal.WriteString(capitalize(w))
	}
	p := pascal.String()
	camel := k[0] + p[len(k[0]):]

	variants := []string{p, camel, strings.Join(k, "-"), strings.Join(k, "_")}
	return uniqueStrings(variants)
}

// Keys holds everything derived from a candidate's text.
type Keys struct {
	// Salient are the stemmed words left after stop-word removal, in order.
	Salient []string
	// Names are plausible implementation file names.
	Names []Key
	// Keywords are the words searched for as code patterns.
	Keywords []string
}

// KeyOptions tunes key derivation.
type KeyOptions struct {
	StopWords        []string
	MinKeywordLength int
	MaxNameKeys      int
}

// minNameKeyLength keeps very short names from matching unrelated files.
const minNameKeyLength = 4

// DeriveKeys tokenizes text, removes stop words and builds name keys from
// adjacent word pairs, the whole phrase (up to three words) and agent nouns
// of gerunds ("limiting" also yields "limiter").
func DeriveKeys(text string, opts KeyOptions) Keys {
	stop := make(map[string]bool, len(opts.StopWords))
	for _, w := range opts.StopWords {
		stop[strings.ToLower(w)] = true
	}

	text = markerPrefix.ReplaceAllString(text, "")

	var salient []string
	agent := make(map[string]string)
	seen := make(map[string]bool)
	for _, raw := range tokenize(text) {
		if stop[raw] || len(raw) < 2 || isNumber(raw) {
			continue
		}
		s := stem(raw)
		if stop[s] || seen[s] {
			continue
		}
		seen[s] = true
		salient = append(salient, s)
		if strings.HasSuffix(raw, "ing") && s != raw {
			agent[s] = agentNoun(s)
		}
	}

	keys := Keys{Salient: salient}
	for _, s := range salient {
		if len(s) >= opts.MinKeywordLength {
			keys.Keywords = append(keys.Keywords, s)
		}
	}

	var names []Key
	add := func(k Key) {
		if len(k.Joined()) >= minNameKeyLength {
			names = append(names, k)
		}
	}
	withAgent := func(words []string) {
		add(Key(words))
		last := words[len(words)-1]
		if a, ok := agent[last]; ok {
			k := make(Key, len(words))
			copy(k, words)
			k[len(k)-1] = a
			add(k)
		}
	}

	switch {
	case len(salient) == 1:
		withAgent(salient)
	case len(salient) > 1:
		for i := 0; i+1 < len(salient); i++ {
			withAgent(salient[i : i+2])
		}
		if len(salient) == 3 {
			withAgent(salient)
		}
	}

	keys.Names = dedupeKeys(names)
	if opts.MaxNameKeys > 0 && len(keys.Names) > opts.MaxNameKeys {
		keys.Names = keys.Names[:opts.MaxNameKeys]
	}
	return keys
}

// tokenize lowercases text and splits it into words, breaking camelCase too.
func tokenize(text string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(text)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// stem strips -ing, -ed and plural endings, undoubling a final consonant
// left behind ("running" → "run").
func stem(w string) string {
	orig := w
	switch {
	case strings.HasSuffix(w, "ing") && len(w) > 5 && hasVowel(w[:len(w)-3]):
		w = w[:len(w)-3]
	case strings.HasSuffix(w, "ied") && len(w) > 4:
		w = w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "ed") && len(w) > 4 && !strings.HasSuffix(w, "eed"):
		w = w[:len(w)-2]
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		w = w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"), strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"), strings.HasSuffix(w, "xes"):
		w = w[:len(w)-2]
	case strings.HasSuffix(w, "s") && len(w) > 3 && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us") && !strings.HasSuffix(w, "is"):
		w = w[:len(w)-1]
	}
	if w != orig && (strings.HasSuffix(orig, "ing") || strings.HasSuffix(orig, "ed")) {
		n := len(w)
		if n >= 3 && w[n-1] == w[n-2] && !strings.ContainsRune("lsz", rune(w[n-1])) && isConsonant(w[n-1]) {
			w = w[:n-1]
		}
	}
	return w
}

// matchForm is the comparison form of a name: stemmed, without a trailing "e",
// so that "cache", "caches" and "caching" compare equal.
func matchForm(s string) string {
	s = stem(s)
	if len(s) > 3 && strings.HasSuffix(s, "e") {
		s = s[:len(s)-1]
	}
	return s
}

func agentNoun(s string) string {
	if strings.HasSuffix(s, "e") {
		return s + "r"
	}
	return s + "er"
}

func hasVowel(s string) bool {
	return strings.ContainsAny(s, "aeiouy")
}

func isConsonant(b byte) bool {
	return !strings.ContainsRune("aeiou", rune(b))
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func dedupeKeys(keys []Key) []Key {
	seen := make(map[string]bool, len(keys))
	var out []Key
	for _, k := range keys {
		j := strings.Join(k, " ")
		if !seen[j] {
			seen[j] = true
			out = append(out, k)
		}
	}
	return out
}

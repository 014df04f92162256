// Package evidence gathers the signals that suggest a candidate is done:
// implementation files, references to them, tests, keyword occurrences and,
// for TODOs, archival and age signals.
package evidence

import (
	"sort"
)

// UsageSite is an import or reference statement naming a found file.
type UsageSite struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Statement string `json:"statement"`
}

// CodePattern is a keyword occurrence outside any dedicated file.
type CodePattern struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Keyword string `json:"keyword"`
	Snippet string `json:"snippet"`
}

// ArchivalSignal reports whether a TODO lives in archived or deprecated code.
type ArchivalSignal struct {
	Archived bool   `json:"archived"`
	Reason   string `json:"reason,omitempty"`
}

// AgeSignal is the age of a TODO line relative to the run's reference time.
type AgeSignal struct {
	Known  bool   `json:"known"`
	Days   int    `json:"days,omitempty"`
	Source string `json:"source,omitempty"`
}

// Evidence is everything collected for one candidate.
type Evidence struct {
	FilesFound    []string      `json:"filesFound"`
	UsageDetected []UsageSite   `json:"usageDetected"`
	TestsFound    []string      `json:"testsFound"`
	CodePatterns  []CodePattern `json:"codePatterns"`

	// TODO-only signals.
	Archival       ArchivalSignal `json:"archival"`
	Age            AgeSignal      `json:"age"`
	ResolvedMarker bool           `json:"resolvedMarker,omitempty"`
}

// Empty reports whether no files, usage, tests or patterns were found.
func (e Evidence) Empty() bool {
	return len(e.FilesFound) == 0 &&
		len(e.UsageDetected) == 0 &&
		len(e.TestsFound) == 0 &&
		len(e.CodePatterns) == 0
}

// DistinctKeywords counts the distinct keywords among CodePatterns.
func (e Evidence) DistinctKeywords() int {
	seen := make(map[string]bool, len(e.CodePatterns))
	for _, p := range e.CodePatterns {
		seen[p.Keyword] = true
	}
	return len(seen)
}

// Merge adds other's findings to e. Nothing already present is removed;
// duplicates are dropped. Boolean signals are ORed and a known age wins over an unknown one.
func (e *Evidence) Merge(other Evidence) {
	e.FilesFound = appendUnique(e.FilesFound, other.FilesFound...)
	e.TestsFound = appendUnique(e.TestsFound, other.TestsFound...)

	seenUsage := make(map[UsageSite]bool, len(e.UsageDetected))
	for _, u := range e.UsageDetected {
		seenUsage[u] = true
	}
	for _, u := range other.UsageDetected {
		if !seenUsage[u] {
			seenUsage[u] = true
			e.UsageDetected = append(e.UsageDetected, u)
		}
	}

	type patternKey struct {
		file    string
		keyword string
	}
	seenPattern := make(map[patternKey]bool, len(e.CodePatterns))
	for _, p := range e.CodePatterns {
		seenPattern[patternKey{p.File, p.Keyword}] = true
	}
	for _, p := range other.CodePatterns {
		k := patternKey{p.File, p.Keyword}
		if !seenPattern[k] {
			seenPattern[k] = true
			e.CodePatterns = append(e.CodePatterns, p)
		}
	}

	if other.Archival.Archived && !e.Archival.Archived {
		e.Archival = other.Archival
	}
	if other.Age.Known && (!e.Age.Known || other.Age.Days > e.Age.Days) {
		e.Age = other.Age
	}
	e.ResolvedMarker = e.ResolvedMarker || other.ResolvedMarker
}

// Normalize sorts the list fields so that evidence compares equal regardless
// of the order collectors ran in.
func (e *Evidence) Normalize() {
	sort.Strings(e.FilesFound)
	sort.Strings(e.TestsFound)
	sort.SliceStable(e.UsageDetected, func(i, j int) bool {
		a, b := e.UsageDetected[i], e.UsageDetected[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	sort.SliceStable(e.CodePatterns, func(i, j int) bool {
		a, b := e.CodePatterns[i], e.CodePatterns[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Keyword < b.Keyword
	})
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			dst = append(dst, v)
		}
	}
	return dst
}

package evidence

import (
	"fmt"
	"math"
	"path"
	"strings"
)

// headerLines is how much of a file is checked for a deprecation marker.
const headerLines = 20

// todoSignals computes the archival, age and resolved-marker signals of a TODO.
func (r *run) todoSignals() Evidence {
	todo := r.item.Todo
	if todo == nil {
		return Evidence{}
	}
	return Evidence{
		Archival:       r.archival(todo.File),
		Age:            r.age(todo.File, todo.Line),
		ResolvedMarker: r.resolvedMarker(todo.Text),
	}
}

func (r *run) archival(file string) ArchivalSignal {
	dir := path.Dir(file)
	if dir != "." {
		for _, seg := range strings.Split(dir, "/") {
			if r.p.archiveDirs[strings.ToLower(seg)] {
				return ArchivalSignal{Archived: true, Reason: fmt.Sprintf("file is under %q", seg+"/")}
			}
		}
	}

	if len(r.p.cfg.DeprecationMarkers) == 0 || !r.corpus.Exists(file) {
		return ArchivalSignal{}
	}
	text, ok := r.read(file)
	if !ok {
		return ArchivalSignal{}
	}
	lines := strings.SplitN(text, "\n", headerLines+1)
	if len(lines) > headerLines {
		lines = lines[:headerLines]
	}
	header := strings.Join(lines, "\n")
	for _, marker := range r.p.cfg.DeprecationMarkers {
		if strings.Contains(header, marker) {
			return ArchivalSignal{Archived: true, Reason: fmt.Sprintf("file header contains %q", marker)}
		}
	}
	return ArchivalSignal{}
}

func (r *run) age(file string, line int) AgeSignal {
	if r.p.ages == nil {
		return AgeSignal{}
	}
	authored, err := r.p.ages.LineTime(r.ctx, file, line)
	if err != nil || authored.IsZero() {
		if err != nil {
			r.p.logger.Debug("Age unavailable", "file", file, "line", line, "error", err.Error())
		}
		return AgeSignal{}
	}
	days := int(math.Floor(r.p.refTime.Sub(authored).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return AgeSignal{Known: true, Days: days, Source: r.p.ages.Name()}
}

// resolvedMarker reports whether the comment itself says the work is done.
func (r *run) resolvedMarker(text string) bool {
	words := make(map[string]bool)
	for _, w := range tokenize(markerPrefix.ReplaceAllString(text, "")) {
		words[w] = true
	}
	for _, m := range r.p.cfg.ResolvedMarkers {
		if words[strings.ToLower(m)] {
			return true
		}
	}
	return false
}

package evidence

import (
	"path"
	"strings"
)

// containerStems are file names that take their identity from their directory.
var containerStems = map[string]bool{
	"index":    true,
	"mod":      true,
	"__init__": true,
	"main":     true,
}

// findFiles checks category-prefixed paths for every name variant, then
// matches name keys against the base names of all source files.
func (r *run) findFiles(keys Keys) []string {
	if len(keys.Names) == 0 {
		return nil
	}

	var found []string
	seen := make(map[string]bool)
	add := func(f string) {
		if f == r.own || seen[f] || r.p.IsTestFile(f) || r.p.inBuildDir(f) {
			return
		}
		seen[f] = true
		found = append(found, f)
	}

	prefixes := append(r.p.taskTypes.Prefixes(r.item.Text()), r.p.cfg.DefaultPrefixes...)
	for _, prefix := range uniqueStrings(prefixes) {
		for _, key := range keys.Names {
			for _, variant := range key.Variants() {
				for _, ext := range r.p.cfg.SourceExtensions {
					candidate := variant + ext
					if prefix != "" {
						candidate = strings.TrimSuffix(prefix, "/") + "/" + candidate
					}
					if r.corpus.Exists(candidate) {
						add(candidate)
					}
				}
			}
		}
	}

	want := make(map[string]bool, len(keys.Names)*2)
	for _, key := range keys.Names {
		want[key.Joined()] = true
		want[matchForm(key.Joined())] = true
	}
	for _, f := range r.corpus.Sources {
		name := compact(fileIdentity(f))
		if name == "" {
			continue
		}
		if want[name] || want[matchForm(name)] {
			add(f)
		}
	}
	return found
}

// fileIdentity is the base name without extension, or the directory name
// for container files such as index.ts or __init__.py.
func fileIdentity(file string) string {
	base := path.Base(file)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if containerStems[strings.ToLower(stem)] {
		dir := path.Dir(file)
		if dir == "." || dir == "/" {
			return ""
		}
		return path.Base(dir)
	}
	return stem
}

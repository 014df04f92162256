package evidence

import (
	"path"
	"regexp"
	"strings"
)

// importLine matches statements that pull in another module.
var importLine = regexp.MustCompile(`^\s*(import\b|from\b|use\b|using\b|include\b|#include\b|require\b|export\b.*\bfrom\b|mod\b|@import\b)|\brequire\s*\(|\bimport\s*\(`)

// findUsage searches source files for import statements naming any found file.
// References from a ReferenceSource are merged in when configured.
func (r *run) findUsage(found []string) []UsageSite {
	if len(found) == 0 {
		return nil
	}

	type target struct {
		file   string
		module string
		name   string
	}
	targets := make([]target, 0, len(found))
	for _, f := range found {
		module, name := moduleRef(f)
		targets = append(targets, target{file: f, module: module, name: name})
	}

	var sites []UsageSite
	seen := make(map[UsageSite]bool)
	goModuleBlock := false

	for _, src := range r.corpus.Sources {
		if r.ctx.Err() != nil {
			return sites
		}
		text, ok := r.read(src)
		if !ok {
			continue
		}

		goModuleBlock = false
		for i, line := range strings.Split(text, "\n") {
			trimmed := strings.TrimSpace(line)
			// Lines inside a Go import ( ... ) block carry no keyword.
			if strings.HasPrefix(trimmed, "import (") {
				goModuleBlock = true
				continue
			}
			if goModuleBlock && trimmed == ")" {
				goModuleBlock = false
				continue
			}
			if !goModuleBlock && !importLine.MatchString(line) {
				continue
			}
			for _, t := range targets {
				if src == t.file {
					continue
				}
				if !references(line, t.module, t.name) {
					continue
				}
				site := UsageSite{
					File:      src,
					Line:      i + 1,
					Statement: truncate(line, r.p.cfg.MaxStatementLength),
				}
				if !seen[site] {
					seen[site] = true
					sites = append(sites, site)
				}
				break
			}
		}
	}

	if r.p.references != nil {
		for _, t := range targets {
			refs, err := r.p.references.References(r.ctx, t.file)
			if err != nil {
				r.p.logger.Debug("Reference lookup failed", "file", t.file, "error", err.Error())
				continue
			}
			for _, site := range refs {
				if site.File == t.file || r.p.IsTestFile(site.File) || r.p.inBuildDir(site.File) {
					continue
				}
				site.Statement = truncate(site.Statement, r.p.cfg.MaxStatementLength)
				if !seen[site] {
					seen[site] = true
					sites = append(sites, site)
				}
			}
		}
	}
	return sites
}

// moduleRef returns the import path of file (without extension, or the
// package directory for Go) and the last path element an import names.
func moduleRef(file string) (module, name string) {
	if strings.HasSuffix(file, ".go") {
		dir := path.Dir(file)
		if dir == "." {
			return "", ""
		}
		return dir, path.Base(dir)
	}
	module = strings.TrimSuffix(file, path.Ext(file))
	base := path.Base(module)
	if containerStems[strings.ToLower(base)] && path.Dir(module) != "." {
		module = path.Dir(module)
	}
	return module, path.Base(module)
}

// references reports whether line names module by path or by its last element
// in any of the usual import spellings.
func references(line, module, name string) bool {
	if name == "" {
		return false
	}
	if module != "" && strings.Contains(line, module) {
		return true
	}
	if strings.Contains(line, strings.ReplaceAll(module, "/", ".")) && strings.Contains(module, "/") {
		return true
	}
	return containsBounded(line, name)
}

// containsBounded finds name delimited like an import path element.
func containsBounded(line, name string) bool {
	const before = `/.:'"<` + " \t"
	const after = `/.:'";>)` + " \t,"
	for start := 0; ; {
		i := strings.Index(line[start:], name)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(name)
		okBefore := i > 0 && strings.IndexByte(before, line[i-1]) >= 0
		okAfter := end == len(line) || strings.IndexByte(after, line[end]) >= 0
		if okBefore && okAfter {
			return true
		}
		start = i + 1
	}
}

package evidence

import (
	"path"
	"strings"
)

// findTests matches test files by stem against name keys and found files,
// and accepts files under test directories whose content mentions a key.
func (r *run) findTests(keys Keys, found []string) []string {
	if len(keys.Names) == 0 && len(found) == 0 {
		return nil
	}

	stems := make(map[string]bool)
	for _, key := range keys.Names {
		stems[key.Joined()] = true
		stems[matchForm(key.Joined())] = true
	}
	for _, f := range found {
		id := compact(fileIdentity(f))
		if id != "" {
			stems[id] = true
			stems[matchForm(id)] = true
		}
	}

	var spellings []string
	for _, key := range keys.Names {
		if len(key) < 2 && len(keys.Names) > 1 {
			continue
		}
		spellings = append(spellings,
			key.Joined(),
			strings.Join(key, "-"),
			strings.Join(key, "_"),
			strings.Join(key, " "),
		)
	}
	spellings = uniqueStrings(spellings)

	var tests []string
	for _, f := range r.corpus.Tests {
		if r.ctx.Err() != nil {
			break
		}
		if f == r.own {
			continue
		}

		stem, _ := r.p.stripTestMarker(path.Base(f))
		if containerStems[strings.ToLower(stem)] {
			stem = path.Base(path.Dir(f))
		}
		name := compact(stem)
		if name != "" && (stems[name] || stems[matchForm(name)]) {
			tests = append(tests, f)
			continue
		}

		if !r.p.inTestDir(f) || len(spellings) == 0 {
			continue
		}
		text, ok := r.read(f)
		if !ok {
			continue
		}
		lower := strings.ToLower(text)
		for _, s := range spellings {
			if strings.Contains(lower, s) {
				tests = append(tests, f)
				break
			}
		}
	}
	return tests
}

package planning

import (
	"fmt"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// frontMatter is the document-level metadata a planning document may carry.
//
//	---
//	planned: true          # every bullet is planned work, whatever the heading
//	status: in-progress    # claim for items without a checkbox
//	features:
//	  - Rate limiting
//	  - description: Webhooks
//	    status: done
//	---
//
// TOML front matter between +++ lines uses the same keys.
type frontMatter struct {
	Planned *bool
	Status  string
	entries []entry
}

func (fm frontMatter) optOut() bool     { return fm.Planned != nil && !*fm.Planned }
func (fm frontMatter) allPlanned() bool { return fm.Planned != nil && *fm.Planned }

// parseFrontMatter decodes a leading front matter block and returns the index
// of the first body line. A block that is never closed is treated as body text.
func (e *Extractor) parseFrontMatter(lines []string) (frontMatter, int, error) {
	if len(lines) == 0 {
		return frontMatter{}, 0, nil
	}
	delim := strings.TrimSpace(strings.TrimPrefix(lines[0], "\ufeff"))
	if delim != "---" && delim != "+++" {
		return frontMatter{}, 0, nil
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t == delim || (delim == "---" && t == "...") {
			end = i
			break
		}
	}
	if end < 0 {
		return frontMatter{}, 0, nil
	}

	raw := strings.Join(lines[1:end], "\n")
	data := make(map[string]interface{})
	var err error
	if delim == "+++" {
		err = toml.Unmarshal([]byte(raw), &data)
	} else {
		err = yaml.Unmarshal([]byte(raw), &data)
	}
	if err != nil {
		return frontMatter{}, end + 1, fmt.Errorf("front matter: %w", err)
	}

	var fm frontMatter
	if v, ok := data["planned"].(bool); ok {
		fm.Planned = &v
	}
	if v, ok := data["status"].(string); ok {
		fm.Status = v
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	loc := lineLocator{lines: lines[:end], next: 1}
	for _, k := range keys {
		list, ok := data[k].([]interface{})
		if !ok || !e.planned(k) {
			continue
		}
		for _, item := range list {
			desc, status := describe(item)
			if desc == "" {
				continue
			}
			fm.entries = append(fm.entries, entry{
				Line:        loc.find(desc),
				Description: cleanText(desc),
				Section:     k,
				Claim:       claimFor(status),
			})
		}
	}
	return fm, end + 1, nil
}

// describe reads a front matter list element: a plain string or a table
// with a description-like field and an optional status.
func describe(item interface{}) (string, string) {
	switch v := item.(type) {
	case string:
		return strings.TrimSpace(v), ""
	case map[string]interface{}:
		var desc, status string
		for _, k := range []string{"description", "summary", "title", "name", "id"} {
			if s, ok := v[k].(string); ok && strings.TrimSpace(s) != "" {
				desc = strings.TrimSpace(s)
				break
			}
		}
		for _, k := range []string{"status", "state"} {
			if s, ok := v[k].(string); ok {
				status = s
				break
			}
		}
		if done, ok := v["done"].(bool); ok && done && status == "" {
			status = "done"
		}
		return desc, status
	}
	return "", ""
}

// lineLocator maps decoded front matter values back to 1-based source lines,
// scanning forward so repeated descriptions get successive lines.
type lineLocator struct {
	lines []string
	next  int
}

func (l *lineLocator) find(desc string) int {
	for i := l.next; i < len(l.lines); i++ {
		if strings.Contains(l.lines[i], desc) {
			l.next = i + 1
			return i + 1
		}
	}
	return 1
}

package planning

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// listKeys name YAML lists of planned work beyond the configured headings.
var listKeys = map[string]bool{"use_cases": true, "items": true, "requirements": true, "goals": true}

// parseYAMLRoadmap walks a YAML roadmap such as
//
//	releases:
//	  - version: "1.1"
//	    name: Sync
//	    use_cases:
//	      - id: UC-3
//	        summary: Offline sync
//	        status: done
//
// collecting every list under a planned key. Lines come from the YAML nodes.
func (e *Extractor) parseYAMLRoadmap(content string) ([]entry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(content), &root); err != nil {
		return nil, err
	}
	var out []entry
	e.walkYAML(&root, "", &out)
	return out, nil
}

func (e *Extractor) walkYAML(n *yaml.Node, section string, out *[]entry) {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			e.walkYAML(c, section, out)
		}
	case yaml.MappingNode:
		if name := scalarField(n, "name", "title", "version"); name != "" {
			section = name
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if val.Kind == yaml.SequenceNode && (listKeys[strings.ToLower(key.Value)] || e.planned(key.Value)) {
				for _, item := range val.Content {
					if en, ok := yamlEntry(item, section); ok {
						*out = append(*out, en)
					}
				}
				continue
			}
			e.walkYAML(val, section, out)
		}
	case yaml.AliasNode:
		// Aliases repeat content defined elsewhere; counting them would duplicate features.
	}
}

func yamlEntry(n *yaml.Node, section string) (entry, bool) {
	switch n.Kind {
	case yaml.ScalarNode:
		return entry{Line: n.Line, Description: cleanText(n.Value), Section: section}, n.Value != ""
	case yaml.MappingNode:
		desc := scalarField(n, "description", "summary", "title", "name", "id")
		if desc == "" {
			return entry{}, false
		}
		status := scalarField(n, "status", "state")
		if status == "" && scalarField(n, "done") == "true" {
			status = "done"
		}
		return entry{Line: n.Line, Description: cleanText(desc), Section: section, Claim: claimFor(status)}, true
	}
	return entry{}, false
}

// scalarField returns the first non-empty scalar value among keys of mapping n.
func scalarField(n *yaml.Node, keys ...string) string {
	for _, k := range keys {
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == k && n.Content[i+1].Kind == yaml.ScalarNode {
				if v := strings.TrimSpace(n.Content[i+1].Value); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

package planning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donecheck/internal/candidate"
	"donecheck/internal/config"
	dcerrors "donecheck/internal/errors"
	"donecheck/internal/repoindex"
	"donecheck/internal/slogutil"
)

func newExtractor() *Extractor {
	return New(OptionsFromConfig(config.DefaultConfig(), slogutil.NewDiscardLogger()))
}

type feature struct {
	line    int
	desc    string
	section string
	claim   string
}

func features(items []candidate.Item) []feature {
	out := make([]feature, 0, len(items))
	for _, it := range items {
		out = append(out, feature{it.Feature.Line, it.Feature.Description, it.Feature.Section, it.Feature.PriorClaim})
	}
	return out
}

const roadmapMD = `# Project

Intro paragraph.

- not planned, just prose bullets

## Roadmap

- Add **rate limiting** to the API
- [x] README with usage examples
- [ ] Webhooks for [build events](https://example.com)
- ~~Drop XML export~~

### Later

1. Offline sync ✅

` + "```" + `
- inside a fence
` + "```" + `

## Changelog

- fixed a crash
- [ ] Plugin API
`

func TestParseMarkdown(t *testing.T) {
	items, err := newExtractor().ParseDocument("ROADMAP.md", roadmapMD)
	require.NoError(t, err)

	assert.Equal(t, []feature{
		{9, "Add rate limiting to the API", "Roadmap", ""},
		{10, "README with usage examples", "Roadmap", "implemented"},
		{11, "Webhooks for build events", "Roadmap", ""},
		{16, "Offline sync", "Later", "implemented"},
		{25, "Plugin API", "Changelog", ""},
	}, features(items))

	for _, it := range items {
		assert.Equal(t, "ROADMAP.md", it.Feature.Document)
		assert.NoError(t, it.Validate())
	}
	assert.True(t, items[1].Claimed())
	assert.False(t, items[0].Claimed())
}

func TestParseMarkdownBlocks(t *testing.T) {
	doc := `Roadmap
=======

- Sync engine
- Conflict UI
  - [x] Merge preview

<!--
- [ ] Describe the feature here
-->

    - indented code, not a list

- Offline mode

  spans a loose item

Changelog
=========

- shipped long ago
`
	items, err := newExtractor().ParseDocument("ROADMAP.md", doc)
	require.NoError(t, err)
	assert.Equal(t, []feature{
		{4, "Sync engine", "Roadmap", ""},
		{5, "Conflict UI", "Roadmap", ""},
		{6, "Merge preview", "Roadmap", "implemented"},
		{14, "Offline mode", "Roadmap", ""},
	}, features(items))
}

func TestYAMLFrontMatter(t *testing.T) {
	doc := `---
planned: true
status: in-progress
features:
  - Audit log export
  - description: Single sign-on
    status: done
---
# Notes

- Bulk delete
- [x] Dark mode
`
	items, err := newExtractor().ParseDocument("docs/plan.md", doc)
	require.NoError(t, err)
	assert.Equal(t, []feature{
		{5, "Audit log export", "features", ""},
		{6, "Single sign-on", "features", "done"},
		{11, "Bulk delete", "Notes", "in-progress"},
		{12, "Dark mode", "Notes", "implemented"},
	}, features(items))
}

func TestTOMLFrontMatter(t *testing.T) {
	doc := `+++
title = "Backlog"

[[tasks]]
description = "CSV import"
done = true

[[tasks]]
description = "Saved searches"
+++
Body without lists.
`
	items, err := newExtractor().ParseDocument("docs/backlog.md", doc)
	require.NoError(t, err)
	assert.Equal(t, []feature{
		{5, "CSV import", "tasks", "done"},
		{9, "Saved searches", "tasks", ""},
	}, features(items))
}

func TestFrontMatterOptOut(t *testing.T) {
	doc := "---\nplanned: false\n---\n## Roadmap\n- [ ] Hidden\n"
	items, err := newExtractor().ParseDocument("docs/archive.md", doc)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMalformedFrontMatter(t *testing.T) {
	doc := "---\nfeatures: [unclosed\n---\n## Roadmap\n- Search\n"
	items, err := newExtractor().ParseDocument("docs/bad.md", doc)
	require.Error(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Search", items[0].Feature.Description)
	assert.Equal(t, 5, items[0].Feature.Line)
}

func TestUnclosedFrontMatterIsBody(t *testing.T) {
	doc := "---\n## Tasks\n- Export\n"
	items, err := newExtractor().ParseDocument("TODO.md", doc)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Feature.Line)
}

func TestYAMLRoadmap(t *testing.T) {
	doc := `id: rm
title: Road map
releases:
  - version: "1.0"
    name: Core
    status: done
    use_cases:
      - id: UC-1
        summary: Import repositories
        status: done
      - id: UC-2
  - version: "1.1"
    name: Sync
    use_cases:
      - summary: Offline sync
        status: planned
features:
  - Keyboard shortcuts
`
	items, err := newExtractor().ParseDocument("docs/road-map.yaml", doc)
	require.NoError(t, err)
	assert.Equal(t, []feature{
		{8, "Import repositories", "Core", "done"},
		{11, "UC-2", "Core", ""},
		{15, "Offline sync", "Sync", "planned"},
		{18, "Keyboard shortcuts", "Road map", ""},
	}, features(items))
}

func TestExtract(t *testing.T) {
	index := repoindex.NewMemIndex(map[string]string{
		"ROADMAP.md":          "## Planned\n- Rate limiting\n",
		"docs/features.md":    "# Features\n- [ ] Webhooks\n",
		"docs/road-map.yaml":  "features:\n  - Sync\n",
		"docs/diagram.png":    "\x00\x01",
		"notes/ideas.md":      "## Roadmap\n- Not a planning path\n",
		"docs/broken.md":      "---\nfeatures: [x\n---\n",
		"src/app/rate.go":     "package app\n",
		"CHANGELOG.markdown":  "## Todo\n- outside paths\n",
		"docs/sub/nested.md":  "## Backlog\n- Nested item\n",
		"docs/sub/readme.txt": "## Backlog\n- excluded by include\n",
	})
	items, warnings, err := newExtractor().Extract(context.Background(), index)
	require.NoError(t, err)

	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID())
	}
	assert.Equal(t, []string{
		"feature:ROADMAP.md:2",
		"feature:docs/features.md:2",
		"feature:docs/road-map.yaml:2",
		"feature:docs/sub/nested.md:2",
	}, ids)

	require.Len(t, warnings, 1)
	assert.Equal(t, dcerrors.CollectionFailed, warnings[0].Code)
	assert.Equal(t, "docs/broken.md", warnings[0].Path)
}

func TestPlannedHeadings(t *testing.T) {
	e := New(Options{PlannedHeadings: []string{"roadmap", "todo"}})
	assert.True(t, e.planned("2026 Roadmap"))
	assert.True(t, e.planned("TODOs"))
	assert.True(t, e.planned("Q3 road-map / roadmap"))
	assert.False(t, e.planned("Roadmapping notes"))
	assert.False(t, e.planned("Done"))
}

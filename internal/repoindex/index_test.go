package repoindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donecheck/internal/errors"
	"donecheck/internal/slogutil"
	"donecheck/internal/testutil"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"", "src/a.go", true},
		{"**", "src/a.go", true},
		{"*.go", "src/deep/a.go", true},
		{"*.go", "src/a.ts", false},
		{"src/*.go", "src/a.go", true},
		{"src/*.go", "src/deep/a.go", false},
		{"src/**/*.go", "src/deep/er/a.go", true},
		{"src/**/*.go", "src/a.go", true},
		{"**/tests/**", "pkg/tests/x/a_test.go", true},
		{"**/tests/**", "pkg/test/a_test.go", false},
		{"docs/**", "docs/plan/ROADMAP.md", true},
		{"node_modules", "web/node_modules", true},
		{"*.{md,markdown}", "docs/PLAN.markdown", true},
		{"{docs,notes}/**/*.md", "notes/q3/ideas.md", true},
		{"{docs,notes}/**/*.md", "src/ideas.md", false},
		{"src/[", "src/[", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.name))
		})
	}
}

func TestMemIndex(t *testing.T) {
	idx := NewMemIndex(map[string]string{
		"./lib/rateLimiter.ts": "export class RateLimiter {}\n",
		"assets/logo.png":      "\x89PNG\x00\x00",
		"src/app.ts":           "import { RateLimiter } from '../lib/rateLimiter'\n",
	})

	assert.True(t, idx.Exists("lib/rateLimiter.ts"))
	assert.True(t, idx.Exists("./lib/rateLimiter.ts"))
	assert.False(t, idx.Exists("lib/missing.ts"))

	assert.Equal(t, []string{"lib/rateLimiter.ts", "src/app.ts"}, idx.ListFiles("*.ts"))

	text, err := idx.ReadText("lib/rateLimiter.ts", 6)
	require.NoError(t, err)
	assert.Equal(t, "export", text)

	_, err = idx.ReadText("assets/logo.png", 0)
	assert.ErrorIs(t, err, ErrBinary)

	_, err = idx.ReadText("nope.ts", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	idx.WithMaxFileSize(4)
	_, err = idx.ReadText("src/app.ts", 0)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFSIndex_Gitignore(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		".gitignore":              "dist/\n*.log\n!keep.log\n/generated\n**/cache/\n",
		"pkg/cache/blob.go":       "cached",
		"src/app.ts":              "app",
		"src/debug.log":           "noise",
		"src/keep.log":            "kept",
		"dist/app.js":             "compiled",
		"generated/types.ts":      "gen",
		"src/generated/types.ts":  "not anchored here",
		"node_modules/x/index.js": "dep",
		"web/.gitignore":          "local.ts\n",
		"web/local.ts":            "local",
		"web/shared.ts":           "shared",
		".donecheck/config.json":  "{}",
	})

	idx, err := NewFSIndex(root, Options{
		Ignore:           []string{"node_modules", ".donecheck"},
		RespectGitignore: true,
		Logger:           slogutil.NewDiscardLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		".gitignore",
		"src/app.ts",
		"src/generated/types.ts",
		"src/keep.log",
		"web/.gitignore",
		"web/shared.ts",
	}, idx.ListFiles(""))
	assert.False(t, idx.Truncated())
}

func TestFSIndex_WithoutGitignore(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		".gitignore":  "dist/\n",
		"dist/app.js": "compiled",
	})

	idx, err := NewFSIndex(root, Options{Logger: slogutil.NewDiscardLogger()})
	require.NoError(t, err)
	assert.True(t, idx.Exists("dist/app.js"))
}

func TestFSIndex_ReadText(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"a.go":   "package a\n",
		"big.go": "package big // padded past the limit\n",
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin.dat"), []byte{0x01, 0x00, 0x02}, 0o644))

	idx, err := NewFSIndex(root, Options{MaxFileSizeBytes: 20, Logger: slogutil.NewDiscardLogger()})
	require.NoError(t, err)

	text, err := idx.ReadText("a.go", 0)
	require.NoError(t, err)
	assert.Equal(t, "package a\n", text)

	// Served from cache after the file disappears.
	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))
	text, err = idx.ReadText("a.go", 7)
	require.NoError(t, err)
	assert.Equal(t, "package", text)

	_, err = idx.ReadText("big.go", 0)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = idx.ReadText("bin.dat", 0)
	assert.ErrorIs(t, err, ErrBinary)
}

func TestFSIndex_MaxFiles(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"a.go": "a", "b.go": "b", "c.go": "c",
	})

	idx, err := NewFSIndex(root, Options{MaxFiles: 2, Logger: slogutil.NewDiscardLogger()})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Truncated())
}

func TestFSIndex_MissingRoot(t *testing.T) {
	_, err := NewFSIndex(filepath.Join(t.TempDir(), "nope"), Options{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.IndexUnavailable))
}

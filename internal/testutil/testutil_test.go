package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteTree(t *testing.T) {
	root := WriteTree(t, map[string]string{
		"src/components/Button.tsx": "export const Button = () => null\n",
		"README.md":                 "# demo\n",
	})

	data, err := os.ReadFile(filepath.Join(root, "src", "components", "Button.tsx"))
	if err != nil {
		t.Fatalf("fixture file missing: %v", err)
	}
	if string(data) != "export const Button = () => null\n" {
		t.Errorf("content = %q", data)
	}
}

func TestSameJSON(t *testing.T) {
	a := []byte(`{"runId":"a","summary":{"total":3},"path":"/tmp/x/src/a.go"}`)
	b := []byte(`{"runId":"b","summary":{"total":3},"path":"/tmp/x/src/a.go"}`)
	if !SameJSON(t, a, b, "/tmp/x") {
		t.Error("documents differing only in runId should compare equal")
	}

	c := []byte(`{"runId":"a","summary":{"total":4}}`)
	if SameJSON(t, a, c, "") {
		t.Error("documents with different totals should differ")
	}
}

func TestNormalizeJSON_ReplacesRoot(t *testing.T) {
	got := NormalizeJSON(t, []byte(`{"path":"/work/repo/src/a.go"}`), "/work/repo")
	m := got.(map[string]any)
	if m["path"] != "<repo>/src/a.go" {
		t.Errorf("path = %v", m["path"])
	}
}

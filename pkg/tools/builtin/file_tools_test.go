package builtin_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tendo33/AgentTracks/pkg/tools/builtin"
)

func writeFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "notes.txt", "one\ntwo\nthree\nfour")

	tool := builtin.NewReadTool(root)
	res, err := tool.Execute(context.Background(), "c1", map[string]any{"path": "notes.txt"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Text != "one\ntwo\nthree\nfour" {
		t.Errorf("text = %q", res.Text)
	}

	res, _ = tool.Execute(context.Background(), "c2", map[string]any{"path": "notes.txt", "offset": float64(2), "limit": float64(2)})
	if !strings.HasPrefix(res.Text, "two\nthree") {
		t.Errorf("paged text = %q", res.Text)
	}
	if !strings.Contains(res.Text, "offset=4") {
		t.Errorf("missing continuation hint: %q", res.Text)
	}
}

func TestReadFileRejectsEscape(t *testing.T) {
	root := t.TempDir()
	tool := builtin.NewReadTool(root)
	res, err := tool.Execute(context.Background(), "c1", map[string]any{"path": "../../etc/passwd"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError || !strings.Contains(res.Text, "outside the workspace") {
		t.Errorf("result = %+v, want workspace escape error", res)
	}
}

func TestWriteThenEdit(t *testing.T) {
	root := t.TempDir()
	w := builtin.NewWriteTool(root)
	e := builtin.NewEditTool(root)

	res, err := w.Execute(context.Background(), "c1", map[string]any{
		"path": "sub/dir/report.md", "content": "# Report\n\ndraft body\n",
	})
	if err != nil || res.IsError {
		t.Fatalf("write: %v %+v", err, res)
	}

	res, err = e.Execute(context.Background(), "c2", map[string]any{
		"path": "sub/dir/report.md", "old_text": "draft body", "new_text": "final body",
	})
	if err != nil || res.IsError {
		t.Fatalf("edit: %v %+v", err, res)
	}

	got, _ := os.ReadFile(filepath.Join(root, "sub/dir/report.md"))
	if !strings.Contains(string(got), "final body") {
		t.Errorf("file = %q", got)
	}

	// Append mode.
	if res, _ = e.Execute(context.Background(), "c3", map[string]any{
		"path": "sub/dir/report.md", "new_text": "appendix\n",
	}); res.IsError {
		t.Fatalf("append: %+v", res)
	}
	got, _ = os.ReadFile(filepath.Join(root, "sub/dir/report.md"))
	if !strings.HasSuffix(string(got), "appendix\n") {
		t.Errorf("file after append = %q", got)
	}
}

func TestEditAmbiguousFragment(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "a.txt", "x\nx\n")
	e := builtin.NewEditTool(root)
	res, _ := e.Execute(context.Background(), "c1", map[string]any{
		"path": "a.txt", "old_text": "x", "new_text": "y",
	})
	if !res.IsError || !strings.Contains(res.Text, "unique") {
		t.Errorf("result = %+v, want ambiguity error", res)
	}
}

func TestListDirectory(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "b.txt", "")
	writeFixture(t, root, "sub/a.txt", "")

	tool := builtin.NewListTool(root)
	res, err := tool.Execute(context.Background(), "c1", map[string]any{"path": "."})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// Directories first.
	if res.Text != "sub/\nb.txt" {
		t.Errorf("listing = %q", res.Text)
	}
}

func TestSearchFilesCapsResults(t *testing.T) {
	root := t.TempDir()
	var lines []string
	for range 20 {
		lines = append(lines, "needle here")
	}
	writeFixture(t, root, "hay.txt", strings.Join(lines, "\n"))

	tool := builtin.NewSearchTool(root)
	res, err := tool.Execute(context.Background(), "c1", map[string]any{"pattern": "needle"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	matches := 0
	for _, l := range strings.Split(res.Text, "\n") {
		if strings.Contains(l, "needle") {
			matches++
		}
	}
	if matches != builtin.SearchMaxResults {
		t.Errorf("matches = %d, want %d", matches, builtin.SearchMaxResults)
	}
	if !strings.Contains(res.Text, "stopped after") {
		t.Errorf("missing cap marker: %q", res.Text)
	}
}

func TestSearchFilesNoMatch(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "hay.txt", "nothing to see")
	tool := builtin.NewSearchTool(root)
	res, _ := tool.Execute(context.Background(), "c1", map[string]any{"pattern": "absent\\d+"})
	if res.Text != "No matches found." {
		t.Errorf("text = %q", res.Text)
	}
}

func TestExecuteShell(t *testing.T) {
	root := t.TempDir()
	tool := builtin.NewShellTool(root)
	res, err := tool.Execute(context.Background(), "c1", map[string]any{"command": "echo hello && pwd"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(res.Text, "hello") {
		t.Errorf("output = %q", res.Text)
	}
	if !strings.Contains(res.Text, filepath.Base(root)) {
		t.Errorf("command did not run in workspace root: %q", res.Text)
	}

	res, _ = tool.Execute(context.Background(), "c2", map[string]any{"command": "exit 3"})
	if !res.IsError {
		t.Error("nonzero exit should be an error result")
	}
}

func TestRegisterBaseline(t *testing.T) {
	root := t.TempDir()
	reg := newRegistry(t, root)
	for _, name := range builtin.BaselineNames() {
		if reg.Get(name) == nil {
			t.Errorf("baseline tool %q not registered", name)
		}
	}
	for _, name := range []string{"execute_shell", "fetch_url"} {
		if reg.Get(name) == nil {
			t.Errorf("tool %q not registered", name)
		}
	}
}

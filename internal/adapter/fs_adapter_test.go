package adapter

import (
	"os"
	"path/filepath"
	"testing"

	m "zest.dev/pkg/zest/internal/model"
)

func TestLocalFSAdapter_Walk(t *testing.T) {
	t.Run("non recursive skips nested files", func(t *testing.T) {
		adapter := NewLocalFSAdapter()

		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "basics.yaml"), "id: a\n")

		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		writeTestFile(t, filepath.Join(nestedDir, "child.yaml"), "id: b\n")

		var visited []string
		err := adapter.Walk(m.Path(root), false, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}

		if containsPath(visited, filepath.Join(nestedDir, "child.yaml")) {
			t.Fatalf("Walk() visited nested file when recursive is false")
		}

		if !containsPath(visited, filepath.Join(root, "basics.yaml")) {
			t.Fatalf("Walk() did not visit top-level file")
		}
	})

	t.Run("recursive visits nested files", func(t *testing.T) {
		adapter := NewLocalFSAdapter()

		root := t.TempDir()
		nestedDir := filepath.Join(root, "nested")
		mustMkdir(t, nestedDir)
		child := filepath.Join(nestedDir, "child.yaml")
		writeTestFile(t, child, "id: b\n")

		var visited []string
		err := adapter.Walk(m.Path(root), true, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visited = append(visited, path)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}

		if !containsPath(visited, child) {
			t.Fatalf("Walk() did not visit nested file when recursive")
		}
	})
}

func TestLocalFSAdapter_WriteFileCreatesParents(t *testing.T) {
	adapter := NewLocalFSAdapter()

	path := filepath.Join(t.TempDir(), "a", "b", "run.yaml")
	if err := adapter.WriteFile(m.Path(path), []byte("id: x\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := adapter.ReadFile(m.Path(path))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if string(got) != "id: x\n" {
		t.Fatalf("ReadFile() = %q, want %q", string(got), "id: x\n")
	}
}

func TestLocalFSAdapter_FileInfo(t *testing.T) {
	adapter := NewLocalFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "run.yaml")
	writeTestFile(t, path, "id: a\n")

	info, err := adapter.FileInfo(m.Path(path))
	if err != nil {
		t.Fatalf("FileInfo() error = %v", err)
	}

	if info.IsDir() {
		t.Fatalf("FileInfo() reported file as directory")
	}

	if _, err := adapter.FileInfo(m.Path(filepath.Join(root, "missing"))); !os.IsNotExist(err) {
		t.Fatalf("FileInfo() error = %v, want not exist", err)
	}
}

func TestLocalFSAdapter_CreateTempDirAndRemoveAll(t *testing.T) {
	adapter := NewLocalFSAdapter()

	for _, root := range []m.Path{"", m.Path(filepath.Join(t.TempDir(), "scratch"))} {
		tmp, err := adapter.CreateTempDir(root, "zest-test-*")
		if err != nil {
			t.Fatalf("CreateTempDir(%q) error = %v", root, err)
		}

		if fi, err := os.Stat(string(tmp)); err != nil || !fi.IsDir() {
			t.Fatalf("CreateTempDir(%q) did not create directory, stat err=%v", root, err)
		}

		if root != "" && filepath.Dir(string(tmp)) != string(root) {
			t.Fatalf("CreateTempDir(%q) = %s, want a child of the root", root, tmp)
		}

		writeTestFile(t, filepath.Join(string(tmp), "file.txt"), "data\n")

		if err := adapter.RemoveAll(tmp); err != nil {
			t.Fatalf("RemoveAll() error = %v", err)
		}

		if _, err := os.Stat(string(tmp)); !os.IsNotExist(err) {
			t.Fatalf("RemoveAll() did not remove directory, stat err=%v", err)
		}
	}
}

func TestLocalFSAdapter_JoinPath(t *testing.T) {
	adapter := NewLocalFSAdapter()

	joined := adapter.JoinPath("/tmp", ".zest_results", "basics.yaml")
	if string(joined) != filepath.Join("/tmp", ".zest_results", "basics.yaml") {
		t.Fatalf("JoinPath() = %s", joined)
	}
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("failed to create dir %s: %v", path, err)
	}
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}

	return false
}

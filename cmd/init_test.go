package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// chdirTemp moves the test into a fresh directory for the duration of t.
func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	return dir
}

func executeInit(t *testing.T) error {
	t.Helper()

	cmd := newRootCmd()
	cmd.AddCommand(newInitCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init"})

	return cmd.Execute()
}

func TestInitCmd(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		wantErr  bool
	}{
		{name: "writes defaults"},
		{name: "keeps an existing file", existing: "run:\n  parallel: 8\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useMockWorkflow(t)

			target := filepath.Join(chdirTemp(t), configFileName)
			if tt.existing != "" {
				require.NoError(t, os.WriteFile(target, []byte(tt.existing), 0o600))
			}

			err := executeInit(t)

			contents, readErr := os.ReadFile(target)
			require.NoError(t, readErr)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.existing, string(contents))

				return
			}

			require.NoError(t, err)

			var written map[string]any
			require.NoError(t, yaml.Unmarshal(contents, &written))
			assert.Contains(t, written, "run")
			assert.Contains(t, written, "select")
			assert.Contains(t, written, "output")
		})
	}
}

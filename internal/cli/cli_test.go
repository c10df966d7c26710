package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/narrascan/internal/model"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, model.ExtractorName+" v"+model.ExtractorVersion+"\n", out)
}

func TestTaxonomyCommand(t *testing.T) {
	out, err := runCLI(t, "", "taxonomy")
	require.NoError(t, err)
	assert.Contains(t, out, "version:")
	assert.Contains(t, out, "contextual:")
}

func TestExtractCommand_Stdin(t *testing.T) {
	out, err := runCLI(t, "Patient denies suicidal ideation.", "extract", "-", "--backend", "rules", "--case-id", "stdin-1")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "stdin-1", doc["case_id"])
	assert.Equal(t, "Patient denies suicidal ideation.", doc["text"])

	meta := doc["meta"].(map[string]any)
	assert.Equal(t, "rules", meta["llm_backend"])
}

func TestExtractCommand_Files(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(in, []byte("Attempted overdose last year."), 0o644))
	jsonPath := filepath.Join(dir, "out.json")
	mdPath := filepath.Join(dir, "out.md")

	_, err := runCLI(t, "", "extract", in, "--backend", "rules", "--json", jsonPath, "--md", mdPath, "--project")
	outJSON, outMD = "", ""
	require.NoError(t, err)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"projections"`)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "**overdose**")
}

func TestExtractCommand_UnknownBackend(t *testing.T) {
	_, err := runCLI(t, "text", "extract", "-", "--backend", "oracle")
	assert.Error(t, err)
}

func TestReadSingleCase_MultipleCases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"case_id\":\"a\",\"text\":\"x\"}\n{\"case_id\":\"b\",\"text\":\"y\"}\n"), 0o644))

	_, err := readSingleCase(&cobra.Command{}, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch")
}

package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCases_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "case-01.txt", "Patient reports feeling hopeless.\n")

	cases, err := LoadCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "case-01", cases[0].ID)
	assert.Equal(t, "Patient reports feeling hopeless.\n", cases[0].Text)
}

func TestLoadCases_HTML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "note.html", `<html><head><title>x</title><style>p{}</style></head>
<body><p>Denies <b>suicidal ideation</b>.</p><script>alert(1)</script></body></html>`)

	cases, err := LoadCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "Denies suicidal ideation .", cases[0].Text)
	assert.NotContains(t, cases[0].Text, "alert")
}

func TestLoadCases_JSONL(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cases.jsonl", strings.Join([]string{
		`{"case_id": "a", "text": "first", "language": "en"}`,
		``,
		`# comment`,
		`{"text": "no id", "notes": "synthetic"}`,
	}, "\n"))

	cases, err := LoadCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "a", cases[0].ID)
	assert.Equal(t, "en", cases[0].Language)
	assert.NotEmpty(t, cases[1].ID, "missing IDs get a generated one")
	assert.Equal(t, "synthetic", cases[1].Notes)
}

func TestLoadCases_JSONLBadLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.jsonl", "{\"case_id\": \"a\", \"text\": \"ok\"}\n{not json}\n")

	_, err := LoadCases(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadCases_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cases.yaml", `
- case_id: pt-01
  text: "Não aguento mais."
  language: pt-BR
- text: "Second case"
`)

	cases, err := LoadCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "pt-01", cases[0].ID)
	assert.Equal(t, "pt-BR", cases[0].Language)
	assert.NotEmpty(t, cases[1].ID)
}

func TestLoadCases_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "second")
	writeFile(t, dir, "a.txt", "first")
	writeFile(t, dir, "ignored.csv", "x,y")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	cases, err := LoadCases(dir)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "a", cases[0].ID)
	assert.Equal(t, "b", cases[1].ID)
}

func TestLoadCases_DuplicateIDsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "I want to die.")
	writeFile(t, dir, "a.html", "<p>Denies SI.</p>")

	cases, err := LoadCases(dir)
	require.Error(t, err)
	assert.Nil(t, cases)
	assert.Contains(t, err.Error(), `duplicate case id "a"`)
	assert.Contains(t, err.Error(), "a.html")
	assert.Contains(t, err.Error(), "a.txt")
}

func TestLoadCases_DuplicateIDsInFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		where   string
	}{
		{
			name:    "jsonl",
			file:    "cases.jsonl",
			content: "{\"case_id\": \"x\", \"text\": \"one\"}\n{\"case_id\": \"x\", \"text\": \"two\"}\n",
			where:   "cases.jsonl:2",
		},
		{
			name:    "yaml",
			file:    "cases.yaml",
			content: "- case_id: x\n  text: one\n- case_id: \" x \"\n  text: two\n",
			where:   "cases.yaml entry 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := LoadCases(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), `duplicate case id "x"`)
			assert.Contains(t, err.Error(), tt.where)
		})
	}
}

func TestLoadCases_DuplicateAcrossJSONLAndText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "batch.jsonl", `{"case_id": "note", "text": "one"}`)
	writeFile(t, dir, "note.txt", "two")

	_, err := LoadCases(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch.jsonl:1")
}

func TestLoadCases_Errors(t *testing.T) {
	_, err := LoadCases(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	path := writeFile(t, t.TempDir(), "x.csv", "a")
	_, err = LoadCases(path)
	assert.Error(t, err)
}

func TestReadCase(t *testing.T) {
	c, err := ReadCase(strings.NewReader("from stdin"), "")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", c.Text)
	assert.NotEmpty(t, c.ID)
}

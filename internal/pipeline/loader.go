package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/narrascan/internal/model"
)

// maxLineBytes bounds a single JSONL record
const maxLineBytes = 4 << 20

// LoadCases reads narratives from a file or directory.
// Supported: .txt (one case), .html/.htm (visible text), .jsonl, .yaml/.yml.
// A directory loads every supported file in name order.
// Case IDs must be unique across everything loaded: a.txt and a.html in the
// same directory are both case "a" and are rejected.
func LoadCases(path string) ([]model.Case, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		found, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		return uniqueCases(found)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var found []sourcedCase
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		loaded, err := loadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		found = append(found, loaded...)
	}
	return uniqueCases(found)
}

// sourcedCase remembers where a case was read from for error messages
type sourcedCase struct {
	c      model.Case
	source string
}

func uniqueCases(found []sourcedCase) ([]model.Case, error) {
	seen := make(map[string]string, len(found))
	cases := make([]model.Case, 0, len(found))
	for _, f := range found {
		if first, dup := seen[f.c.ID]; dup {
			return nil, fmt.Errorf("duplicate case id %q in %s and %s", f.c.ID, first, f.source)
		}
		seen[f.c.ID] = f.source
		cases = append(cases, f.c)
	}
	return cases, nil
}

// Supported reports whether LoadCases understands the file extension
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".html", ".htm", ".jsonl", ".yaml", ".yml":
		return true
	}
	return false
}

// ReadCase builds a single case from r, e.g. stdin
func ReadCase(r io.Reader, id string) (model.Case, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Case{}, fmt.Errorf("read narrative: %w", err)
	}
	return finishCase(model.Case{ID: id, Text: string(data)}), nil
}

func loadFile(path string) ([]sourcedCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return []sourcedCase{{finishCase(model.Case{ID: base, Text: string(data)}), path}}, nil

	case ".html", ".htm":
		doc, err := html.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse HTML %s: %w", path, err)
		}
		return []sourcedCase{{finishCase(model.Case{ID: base, Text: VisibleText(doc)}), path}}, nil

	case ".jsonl":
		cases, err := parseJSONL(path, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return cases, nil

	case ".yaml", ".yml":
		var cases []model.Case
		if err := yaml.Unmarshal(data, &cases); err != nil {
			return nil, fmt.Errorf("parse YAML %s: %w", path, err)
		}
		out := make([]sourcedCase, len(cases))
		for i := range cases {
			out[i] = sourcedCase{finishCase(cases[i]), fmt.Sprintf("%s entry %d", path, i+1)}
		}
		return out, nil
	}

	return nil, fmt.Errorf("unsupported case file: %s", path)
}

func parseJSONL(path string, data []byte) ([]sourcedCase, error) {
	var cases []sourcedCase

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		var c model.Case
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cases = append(cases, sourcedCase{finishCase(c), fmt.Sprintf("%s:%d", path, line)})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return cases, nil
}

func finishCase(c model.Case) model.Case {
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return c
}

// VisibleText extracts text nodes from HTML, skipping scripts/styles
func VisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

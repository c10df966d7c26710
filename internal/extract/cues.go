package extract

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/narrascan/internal/model"
	"github.com/ppiankov/narrascan/internal/span"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

var defaultTaxonomy = mustParseTaxonomy(taxonomyYAML)

// Taxonomy is a versioned set of cue phrases grouped by category
type Taxonomy struct {
	Version    string   `yaml:"version"`
	Contextual []string `yaml:"contextual"`
	Subjective []string `yaml:"subjective"`
	Ambiguous  []string `yaml:"ambiguous"`
}

// DefaultTaxonomy returns a copy of the embedded taxonomy
func DefaultTaxonomy() *Taxonomy {
	return defaultTaxonomy.clone()
}

// ParseTaxonomy decodes a taxonomy document
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if t.Version == "" {
		return nil, fmt.Errorf("taxonomy has no version")
	}
	return &t, nil
}

// LoadTaxonomy reads a taxonomy document from disk
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy: %w", err)
	}
	return ParseTaxonomy(data)
}

// YAML renders the taxonomy as a YAML document
func (t *Taxonomy) YAML() ([]byte, error) {
	return yaml.Marshal(t)
}

func (t *Taxonomy) clone() *Taxonomy {
	return &Taxonomy{
		Version:    t.Version,
		Contextual: append([]string(nil), t.Contextual...),
		Subjective: append([]string(nil), t.Subjective...),
		Ambiguous:  append([]string(nil), t.Ambiguous...),
	}
}

func mustParseTaxonomy(data []byte) *Taxonomy {
	t, err := ParseTaxonomy(data)
	if err != nil {
		panic(err)
	}
	return t
}

// CueAnnotator matches taxonomy phrases literally and case-insensitively.
// Its hits never feed back into signal presence.
type CueAnnotator struct {
	taxonomy *Taxonomy
}

// NewCueAnnotator creates an annotator; a nil taxonomy selects the embedded one
func NewCueAnnotator(t *Taxonomy) *CueAnnotator {
	if t == nil {
		t = DefaultTaxonomy()
	}
	return &CueAnnotator{taxonomy: t}
}

// Version returns the taxonomy version in use
func (a *CueAnnotator) Version() string {
	return a.taxonomy.Version
}

// Annotate returns one hit per phrase that occurs in text, in taxonomy order.
// Phrases with no occurrence are omitted.
func (a *CueAnnotator) Annotate(text string) model.CueHits {
	return model.CueHits{
		Contextual: matchCues(text, a.taxonomy.Contextual),
		Subjective: matchCues(text, a.taxonomy.Subjective),
		Ambiguous:  matchCues(text, a.taxonomy.Ambiguous),
	}
}

func matchCues(text string, cues []string) []model.CueHit {
	hits := []model.CueHit{}
	for _, cue := range cues {
		matches := span.Dedupe(span.FindAll(text, cue))
		if len(matches) == 0 {
			continue
		}
		evidence := make([]model.EvidenceSpan, 0, len(matches))
		for _, m := range matches {
			evidence = append(evidence, model.NewEvidenceSpan(m.Text, m.Start, m.End, model.SourceCueMatcher))
		}
		hits = append(hits, model.CueHit{Cue: cue, Evidence: evidence})
	}
	return hits
}

package model

// Case is one narrative submitted for extraction
type Case struct {
	ID       string `json:"case_id" yaml:"case_id"`
	Text     string `json:"text" yaml:"text"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	Notes    string `json:"notes,omitempty" yaml:"notes,omitempty"`
}
